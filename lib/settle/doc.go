// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package settle delivers value transfers and signature requests to
// the external settlement layer.
//
// Escrow state changes commit locally first; delivery happens
// asynchronously through an Outbox worker. A delivery failure is
// logged and dropped rather than rolling back the ledger, so the
// database remains the source of truth for balances.
package settle
