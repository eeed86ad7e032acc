// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds small helpers shared by Trustplane tests.
//
// The channel helpers wrap select-with-timeout so individual tests
// never hang forever on a channel that a buggy implementation failed
// to write to.
package testutil
