// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package webchat is the HTTP client for the webchat backend that the
// public chat widget talks to.
//
// The surface is three endpoints under a configured base URL (by
// default "<server>/api/webchat"):
//
//   - POST {base}/messages sends one user message and returns the
//     assistant reply plus conversation metadata ([Client.SendMessage]).
//   - GET {base}/messages?session_id=&limit= returns the server's view
//     of the conversation, oldest first ([Client.History]).
//   - POST {base}/close tells the backend the visitor is gone
//     ([Client.CloseSession], [Client.Beacon]).
//
// Non-2xx responses are returned as [*APIError] carrying the status
// code and a bounded excerpt of the body. The client does not retry:
// retry policy belongs to the caller (chat.RetryingTransport), because
// "retryable" depends on the meaning of the reply, not only on HTTP.
//
// The backend is lenient about types (ids may be numbers or strings,
// flags may be any truthy value), so decoding is lenient too: see
// [FlexString] and the UnmarshalJSON methods on the response types.
package webchat
