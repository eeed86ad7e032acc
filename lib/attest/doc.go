// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package attest defines attestation report types and the verifier
// that turns a raw report into a proven identity.
//
// A Report is the TEE's signed statement about the software it runs: a
// CBOR quote body (measurement digests plus the device PPID), signed
// by the enclave's attestation key, which is itself endorsed by a
// trust root. Verify walks that chain and returns the extracted
// Identity, or ErrAttestationInvalid — it never consults allow-lists.
// Policy (approved measurement sets, approved devices, the
// requires-TEE flag) lives in lib/gate.
package attest
