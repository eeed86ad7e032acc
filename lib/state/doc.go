// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package state owns the contract state: the trust configuration, the
// approved-measurement and approved-device allow-lists, the local
// whitelist, the agent registry, the repository registry, and the
// bounty ledger.
//
// Everything lives in one SQLite database. Every mutating operation
// runs inside an IMMEDIATE transaction, so a failing operation leaves
// the state exactly as it was — there is no partial application
// anywhere. Each operation touches O(1) rows.
//
// The store holds no policy. Whether a caller may release funds is
// lib/gate's decision; whether a caller is the maintainer or the owner
// is checked here only where the relationship is part of the mutation
// itself (owner-gated administration).
package state
