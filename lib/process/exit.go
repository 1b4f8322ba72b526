// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is an error that carries its own process exit code.
type ExitCoder interface {
	error
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with the code from
// ExitCode. Use it in main() for errors from run() where the
// structured logger may not be initialized.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes err to w and returns the exit code for it: the code
// of the first ExitCoder in the chain, otherwise 1. An ExitCoder with
// an empty message is not printed.
func Report(w io.Writer, err error) int {
	var coder ExitCoder
	if errors.As(err, &coder) {
		if message := coder.Error(); message != "" {
			fmt.Fprintf(w, "error: %s\n", message)
		}
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}

// Exit is an ExitCoder for a bare exit status.
type Exit struct {
	Code    int
	Message string
}

func (e *Exit) Error() string { return e.Message }
func (e *Exit) ExitCode() int { return e.Code }
