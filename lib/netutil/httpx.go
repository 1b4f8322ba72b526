// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds HTTP helpers shared by the webchat client and
// the mock backend.
//
// The backend answers with small JSON documents: a reply, or at most
// a page of history (history_limit messages). ReadResponse and
// DecodeResponse cap reads at MaxResponseSize so a misbehaving
// endpoint (a proxy returning an HTML error page in a loop, a
// runaway history) cannot exhaust memory inside a long-lived host.
// ErrorBody reads a short excerpt for diagnostic error messages.
// IsExpectedCloseError separates graceful shutdown from failures.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize bounds JSON response reads: 8 MiB, two orders of
// magnitude above a full page of history.
const MaxResponseSize int64 = 8 << 20

// MaxErrorExcerpt bounds the body text carried in error messages.
const MaxErrorExcerpt = 512

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (up to MaxResponseSize bytes)
// and JSON-decodes it into v. An empty body decodes as the zero value.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads up to MaxErrorExcerpt bytes of an error response for
// inclusion in an error message. Read errors are ignored: a partial
// body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorExcerpt))
	return strings.TrimSpace(string(data))
}
