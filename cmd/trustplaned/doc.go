// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Command trustplaned runs the attestation-gated escrow service.
//
// The service keeps the trust store (approved measurements, approved
// devices, local whitelist), the agent registry, and the per-repository
// bounty ledger in one SQLite database, and exposes every operation as
// a CBOR action on a Unix socket. Privileged actions authenticate with
// Ed25519 service tokens; the token subject is the caller identity for
// ownership, maintainership, and gate checks.
//
// Value never moves inside this process: releases and withdrawals
// debit the ledger transactionally and hand a transfer to the
// settlement backend through a fire-and-forget outbox.
package main
