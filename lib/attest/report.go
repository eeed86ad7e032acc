// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"crypto/ed25519"
	"fmt"

	"github.com/trustplane/trustplane/lib/codec"
)

// Report is a remote attestation report as submitted by an agent. The
// chain is two links: a trust root endorses the enclave's attestation
// key, and the attestation key signs the quote body. The quote body is
// canonical CBOR so its signature is stable.
type Report struct {
	// Quote is the canonical CBOR encoding of the quote body
	// (measurements, PPID, optional report data).
	Quote []byte `cbor:"quote"`

	// Signature is the Ed25519 signature over Quote by AttestationKey.
	Signature []byte `cbor:"signature"`

	// AttestationKey is the enclave's Ed25519 public attestation key.
	AttestationKey []byte `cbor:"attestation_key"`

	// KeyEndorsement is the Ed25519 signature over AttestationKey by
	// one of the verifier's trust roots.
	KeyEndorsement []byte `cbor:"key_endorsement"`
}

// quoteBody is the signed payload inside Report.Quote.
type quoteBody struct {
	Measurements Measurements `cbor:"measurements"`
	PPID         PPID         `cbor:"ppid"`

	// ReportData is caller-chosen binding data (for example a hash of
	// the registration request). Opaque to verification.
	ReportData []byte `cbor:"report_data,omitempty"`
}

// MintReport builds a complete report for the given identity, signing
// the quote with attestationKey and endorsing that key with rootKey.
// This is the producer side of Verify: the in-enclave helper uses it
// with the device's real keys, and local development and tests use it
// with generated ones.
func MintReport(rootKey, attestationKey ed25519.PrivateKey, identity Identity, reportData []byte) (Report, error) {
	if err := identity.Measurements.Validate(); err != nil {
		return Report{}, fmt.Errorf("minting report: %w", err)
	}
	if identity.PPID.IsZero() {
		return Report{}, fmt.Errorf("minting report: zero ppid")
	}

	quote, err := codec.Marshal(quoteBody{
		Measurements: identity.Measurements,
		PPID:         identity.PPID,
		ReportData:   reportData,
	})
	if err != nil {
		return Report{}, fmt.Errorf("minting report: encoding quote: %w", err)
	}

	publicKey := attestationKey.Public().(ed25519.PublicKey)
	return Report{
		Quote:          quote,
		Signature:      ed25519.Sign(attestationKey, quote),
		AttestationKey: publicKey,
		KeyEndorsement: ed25519.Sign(rootKey, publicKey),
	}, nil
}
