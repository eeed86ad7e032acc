// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/codec"
)

// signatureSize is the fixed size of an Ed25519 signature.
const signatureSize = ed25519.SignatureSize

// Token is the CBOR-encoded payload of a caller identity token.
type Token struct {
	// Subject is the caller's account. Every privileged operation
	// treats the token Subject as its caller.
	Subject account.ID `cbor:"1,keyasint"`

	// Audience is the service this token is scoped to. A token for
	// another service is rejected even if validly signed.
	Audience string `cbor:"2,keyasint"`

	// ID is a unique token identifier (hex string).
	ID string `cbor:"3,keyasint"`

	// IssuedAt and ExpiresAt are Unix timestamps (seconds).
	IssuedAt  int64 `cbor:"4,keyasint"`
	ExpiresAt int64 `cbor:"5,keyasint"`
}

// Errors returned by Verify.
var (
	ErrTokenTooShort    = errors.New("servicetoken: token too short for signature")
	ErrInvalidSignature = errors.New("servicetoken: invalid Ed25519 signature")
	ErrTokenExpired     = errors.New("servicetoken: token has expired")
	ErrAudienceMismatch = errors.New("servicetoken: audience does not match")
)

// Mint signs a token and returns the wire bytes: CBOR payload followed
// by the Ed25519 signature. If the token has no ID, a random one is
// assigned.
func Mint(privateKey ed25519.PrivateKey, token *Token) ([]byte, error) {
	if token.Subject.IsZero() {
		return nil, fmt.Errorf("servicetoken: subject is required")
	}
	if token.ID == "" {
		id := make([]byte, 16)
		if _, err := rand.Read(id); err != nil {
			return nil, fmt.Errorf("servicetoken: generating token ID: %w", err)
		}
		token.ID = hex.EncodeToString(id)
	}

	payload, err := codec.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("servicetoken: encoding token payload: %w", err)
	}

	signature := ed25519.Sign(privateKey, payload)
	result := make([]byte, len(payload)+signatureSize)
	copy(result, payload)
	copy(result[len(payload):], signature)
	return result, nil
}

// Verify checks the signature and expiry and returns the decoded
// token.
func Verify(publicKey ed25519.PublicKey, tokenBytes []byte) (*Token, error) {
	return VerifyAt(publicKey, tokenBytes, time.Now())
}

// VerifyAt is Verify with an explicit time, for deterministic tests.
func VerifyAt(publicKey ed25519.PublicKey, tokenBytes []byte, now time.Time) (*Token, error) {
	if len(tokenBytes) <= signatureSize {
		return nil, ErrTokenTooShort
	}

	splitPoint := len(tokenBytes) - signatureSize
	payload := tokenBytes[:splitPoint]
	signature := tokenBytes[splitPoint:]

	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ErrInvalidSignature
	}

	var token Token
	if err := codec.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("servicetoken: decoding token payload: %w", err)
	}
	if now.Unix() >= token.ExpiresAt {
		return nil, ErrTokenExpired
	}
	return &token, nil
}

// VerifyForAudience combines VerifyAt with an audience check — the
// call servers make on every authenticated request.
func VerifyForAudience(publicKey ed25519.PublicKey, tokenBytes []byte, audience string, now time.Time) (*Token, error) {
	token, err := VerifyAt(publicKey, tokenBytes, now)
	if err != nil {
		return nil, err
	}
	if token.Audience != audience {
		return nil, fmt.Errorf("%w: token for %q, service is %q", ErrAudienceMismatch, token.Audience, audience)
	}
	return token, nil
}
