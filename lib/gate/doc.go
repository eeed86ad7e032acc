// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate decides who may perform privileged operations.
//
// Two decisions live here. Evaluate answers "is this caller currently
// a valid agent" as an explicit tagged Decision (Bypassed, Verified,
// Rejected) so the branching is auditable and testable in isolation
// rather than buried in nested conditionals. VerifyReport is the
// admission side: it runs the attestation verifier and then the
// allow-list policy that decides whether a proven identity may
// register at all.
//
// One asymmetry is load-bearing and deliberate: the measurement
// allow-list is always enforced while requires-TEE is on, but an
// *empty* device allow-list accepts any device. Do not "fix" this —
// an empty device list means the operator has chosen not to pin
// hardware.
package gate
