// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Trustplane's standard CBOR encoding.
//
// All wire traffic — socket requests and responses, service tokens,
// attestation quote bodies, audit event payloads — uses CBOR with Core
// Deterministic Encoding (RFC 8949 §4.2): the same logical value always
// encodes to the same bytes. Determinism matters here because encoded
// values are signed (tokens, quote bodies) and fingerprinted
// (measurement sets); a non-canonical encoder would make signatures and
// fingerprints unstable.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
