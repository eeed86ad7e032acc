// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package event emits the audit trail for trust and escrow state
// changes. Events are structured log records with a fixed kind
// vocabulary so downstream tooling can filter on them.
package event
