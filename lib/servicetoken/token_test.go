// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/trustplane/trustplane/lib/account"
)

const testAudience = "escrow"

func mintTestToken(t *testing.T, priv ed25519.PrivateKey, mutate func(*Token)) []byte {
	t.Helper()
	token := &Token{
		Subject:   account.MustParse("agent-1.pool"),
		Audience:  testAudience,
		IssuedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Unix(),
		ExpiresAt: time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC).Unix(),
	}
	if mutate != nil {
		mutate(token)
	}
	raw, err := Mint(priv, token)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return raw
}

func TestMintVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	raw := mintTestToken(t, priv, nil)
	now := time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC)

	token, err := VerifyAt(pub, raw, now)
	if err != nil {
		t.Fatalf("VerifyAt: %v", err)
	}
	if token.Subject != account.MustParse("agent-1.pool") {
		t.Errorf("Subject = %s, want agent-1.pool", token.Subject)
	}
	if token.ID == "" {
		t.Error("Mint did not assign a token ID")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	raw := mintTestToken(t, priv, nil)

	expiredAt := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	if _, err := VerifyAt(pub, raw, expiredAt); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("VerifyAt at expiry = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	raw := mintTestToken(t, priv, nil)
	raw[0] ^= 0x01

	now := time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC)
	if _, err := VerifyAt(pub, raw, now); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("VerifyAt error = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	raw := mintTestToken(t, priv, nil)

	now := time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC)
	if _, err := VerifyAt(otherPub, raw, now); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("VerifyAt error = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyRejectsShortToken(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if _, err := VerifyAt(pub, make([]byte, signatureSize), time.Now()); !errors.Is(err, ErrTokenTooShort) {
		t.Errorf("VerifyAt error = %v, want ErrTokenTooShort", err)
	}
}

func TestVerifyForAudience(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	raw := mintTestToken(t, priv, func(tok *Token) { tok.Audience = "artifact" })

	now := time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC)
	if _, err := VerifyForAudience(pub, raw, testAudience, now); !errors.Is(err, ErrAudienceMismatch) {
		t.Errorf("VerifyForAudience error = %v, want ErrAudienceMismatch", err)
	}

	raw = mintTestToken(t, priv, nil)
	if _, err := VerifyForAudience(pub, raw, testAudience, now); err != nil {
		t.Errorf("VerifyForAudience: %v", err)
	}
}
