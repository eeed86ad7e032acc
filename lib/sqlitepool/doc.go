// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides a pooled SQLite connection source with
// Trustplane's standard pragmas applied to every connection.
//
// The contract state store (lib/state) is the only production
// consumer. Its workload is small transactional writes on a handful of
// tables, so the defaults lean that way: WAL journaling, NORMAL
// synchronous, a generous busy timeout so a write never fails
// spuriously while another connection holds the lock.
package sqlitepool
