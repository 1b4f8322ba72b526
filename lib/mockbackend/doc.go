// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mockbackend is an in-memory webchat backend for local
// development and tests.
//
// [Backend] stores conversations per session id and answers the three
// widget endpoints (send, history, close) with the same wire shapes the
// production backend uses. A [Responder] produces assistant replies;
// operator endpoints let a developer play the human agent: switch a
// session into manual mode and post messages as that agent. Failures
// can be injected with [Backend.FailSends] to exercise client retries.
//
// [Backend.Handler] returns a gin engine; mount it on an
// httptest.Server or serve it from cmd/talia-webchat-mock.
package mockbackend
