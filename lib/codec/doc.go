// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR configuration for on-disk webchat state.
//
// JSON is the wire format (the webchat backend speaks JSON). CBOR is
// the at-rest format for local state written by the file-backed
// key/value store: compact, binary-safe, and deterministic. The
// encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same logical content always produces identical bytes and a rewrite
// of unchanged state is byte-for-byte stable.
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
package codec
