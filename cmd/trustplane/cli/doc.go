// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the trustplane CLI: a
// nested command tree with pflag flag parsing, structured help output,
// typo suggestions for unknown commands and flags, and JSON output
// helpers.
package cli
