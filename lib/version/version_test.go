// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, commit, dirty, buildTime string) {
	t.Helper()
	savedCommit, savedDirty, savedTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() {
		GitCommit, GitDirty, BuildTime = savedCommit, savedDirty, savedTime
	})
	GitCommit, GitDirty, BuildTime = commit, dirty, buildTime
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name     string
		dirty    string
		expected string
	}{
		{"clean", "false", Version + " (abc1234, 2026-03-01T12:00:00Z)"},
		{"dirty", "true", Version + " (abc1234-dirty, 2026-03-01T12:00:00Z)"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			withBuildInfo(t, "abc1234", test.dirty, "2026-03-01T12:00:00Z")
			if got := Info(); got != test.expected {
				t.Errorf("Info() = %q, want %q", got, test.expected)
			}
		})
	}
}

func TestFprint(t *testing.T) {
	withBuildInfo(t, "abc1234", "false", "unknown")
	var buffer bytes.Buffer
	Fprint(&buffer, "talia-chat")
	output := buffer.String()
	if !strings.HasPrefix(output, "talia-chat "+Version+" (abc1234") {
		t.Errorf("output = %q", output)
	}
	if !strings.Contains(output, "Go: go") {
		t.Errorf("output lacks the Go version: %q", output)
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); !strings.HasPrefix(got, "talia-webchat/"+Version+" (") {
		t.Errorf("UserAgent() = %q", got)
	}
}
