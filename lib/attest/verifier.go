// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/trustplane/trustplane/lib/codec"
)

// Attestation failure kinds. ErrAttestationInvalid comes from Verify;
// the allow-list rejections come from the admission policy in lib/gate
// but belong to the same taxonomy, so they are defined here.
var (
	ErrAttestationInvalid    = errors.New("attestation report invalid")
	ErrMeasurementNotApproved = errors.New("measurement set not approved")
	ErrDeviceNotApproved      = errors.New("device not approved")
)

// Verifier turns a raw attestation report into a proven Identity.
type Verifier interface {
	// Verify validates the report's signature chain and extracts the
	// identity facts. Pure: no state reads, no side effects. Any
	// failure wraps ErrAttestationInvalid.
	Verify(report Report) (Identity, error)
}

// QuoteVerifier is the production Verifier. It accepts a report whose
// attestation key is endorsed by any one of its configured trust
// roots.
type QuoteVerifier struct {
	roots []ed25519.PublicKey
}

// NewQuoteVerifier builds a verifier trusting the given root keys. At
// least one root is required.
func NewQuoteVerifier(roots ...ed25519.PublicKey) (*QuoteVerifier, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("quote verifier: at least one trust root is required")
	}
	for i, root := range roots {
		if len(root) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("quote verifier: root %d has size %d, want %d", i, len(root), ed25519.PublicKeySize)
		}
	}
	return &QuoteVerifier{roots: roots}, nil
}

// Verify implements Verifier.
func (v *QuoteVerifier) Verify(report Report) (Identity, error) {
	if len(report.AttestationKey) != ed25519.PublicKeySize {
		return Identity{}, fmt.Errorf("%w: attestation key has size %d, want %d", ErrAttestationInvalid, len(report.AttestationKey), ed25519.PublicKeySize)
	}
	if len(report.Signature) != ed25519.SignatureSize {
		return Identity{}, fmt.Errorf("%w: quote signature has size %d, want %d", ErrAttestationInvalid, len(report.Signature), ed25519.SignatureSize)
	}
	if len(report.KeyEndorsement) != ed25519.SignatureSize {
		return Identity{}, fmt.Errorf("%w: key endorsement has size %d, want %d", ErrAttestationInvalid, len(report.KeyEndorsement), ed25519.SignatureSize)
	}
	if len(report.Quote) == 0 {
		return Identity{}, fmt.Errorf("%w: empty quote", ErrAttestationInvalid)
	}

	endorsed := false
	for _, root := range v.roots {
		if ed25519.Verify(root, report.AttestationKey, report.KeyEndorsement) {
			endorsed = true
			break
		}
	}
	if !endorsed {
		return Identity{}, fmt.Errorf("%w: attestation key not endorsed by any trust root", ErrAttestationInvalid)
	}

	if !ed25519.Verify(ed25519.PublicKey(report.AttestationKey), report.Quote, report.Signature) {
		return Identity{}, fmt.Errorf("%w: quote signature verification failed", ErrAttestationInvalid)
	}

	var body quoteBody
	if err := codec.Unmarshal(report.Quote, &body); err != nil {
		return Identity{}, fmt.Errorf("%w: decoding quote: %v", ErrAttestationInvalid, err)
	}
	if err := body.Measurements.Validate(); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrAttestationInvalid, err)
	}
	if body.PPID.IsZero() {
		return Identity{}, fmt.Errorf("%w: zero ppid", ErrAttestationInvalid)
	}

	return Identity{Measurements: body.Measurements, PPID: body.PPID}, nil
}
