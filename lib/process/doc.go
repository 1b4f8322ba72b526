// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the webchat
// binaries. It holds the raw I/O that happens outside the structured
// logger: fatal error reporting to stderr when the logger may not be
// initialized, and the process exit that follows.
package process
