// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets timer-driven code run against either wall-clock
// time or a deterministic test clock.
//
// The webchat engine waits in three places: between send retries,
// between history polls, and while the host is hidden (the idle
// timeout). Each of those takes a [Clock] instead of calling the time
// package. Production wiring passes [Real]; tests pass [Fake] and move
// time forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	engine := chat.New(chat.Options{Clock: fake, ...})
//	fake.WaitForTimers(1)        // the poller registered its ticker
//	fake.Advance(4 * time.Second) // exactly one poll fires
//
// WaitForTimers closes the race between a goroutine registering a
// timer and the test advancing past it.
package clock
