// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webchat

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the webchat backend.
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests { ... }
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Method and Path identify the request.
	Method string
	Path   string
	// Body is a bounded excerpt of the response body, possibly empty.
	Body string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webchat: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("webchat: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == statusCode
	}
	return false
}
