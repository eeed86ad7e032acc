// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Agent validity windows are pure functions of the current time, so
// every component that reads the clock accepts a Clock parameter
// instead of calling the time package directly. Production code
// injects Real(); tests inject Fake(initial) and drive time forward
// with Advance, which makes expiry boundaries (valid at T+1ms, invalid
// at T+window) exactly testable.
package clock
