// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for webchat clients.
//
// Configuration is loaded from a single file specified by either the
// TALIA_WEBCHAT_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no automatic file search. The file
// is YAML, or JSON with comments when it ends in .json or .jsonc.
//
// Every field has a default matching the public widget (4s polling,
// 100-message history pages, 45-minute hidden timeout, [1s, 2s] retry
// schedule), so a minimal file only names the server:
//
//	server_url: https://talia.example
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches.
//
// Variable expansion is performed on storage paths, the redis address,
// and the server URL after loading: ${VAR} and ${VAR:-default}
// patterns are expanded from the environment. No other environment
// variables override config values.
//
// This package depends on no other webchat packages.
package config
