// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package servicetoken implements the signed identity tokens that
// authenticate callers of the trustplane service socket.
//
// A token is a CBOR payload followed by a 64-byte Ed25519 signature
// from the deployment's token-issuing key. The Subject is the caller's
// account — the `caller` of every privileged operation. Tokens are
// short-lived bearer credentials; the service rejects expired tokens
// and tokens minted for another audience.
package servicetoken
