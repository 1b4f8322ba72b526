// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"errors"
	"fmt"
)

// ErrEmptyReply is returned for a 2xx response with no reply text and
// no manual-mode flag. An empty reply is only acceptable when a human
// operator has taken over.
var ErrEmptyReply = errors.New("chat: empty reply from assistant")

// TransportError is returned by RetryingTransport.Send after every
// attempt failed. Err is the last attempt's error.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chat: send failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
