// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/service"
	"github.com/trustplane/trustplane/lib/servicetoken"
)

// tokenTTL bounds how long a CLI-minted token stays valid. Tokens are
// minted per call, so the window only needs to cover one round trip.
const tokenTTL = time.Minute

// Session is an authenticated connection to the escrow service: a
// socket client plus the caller identity and the key that signs its
// tokens.
type Session struct {
	client     *service.Client
	subject    account.ID
	audience   string
	signingKey ed25519.PrivateKey
}

// NewSession builds a session for the service at socketPath. The
// identity is the caller account; keyPath holds the hex Ed25519
// signing key (32-byte seed or 64-byte private key). Pass an empty
// keyPath for a session that only calls unauthenticated actions.
func NewSession(socketPath, audience, identity, keyPath string) (*Session, error) {
	session := &Session{
		client:   service.NewClient(socketPath),
		audience: audience,
	}

	if keyPath == "" {
		return session, nil
	}

	subject, err := account.Parse(identity)
	if err != nil {
		return nil, fmt.Errorf("caller identity: %w", err)
	}
	session.subject = subject

	session.signingKey, err = loadSigningKey(keyPath)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Call invokes an authenticated action: a fresh token is minted for
// this call and attached to the request.
func (s *Session) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	if s.signingKey == nil {
		return fmt.Errorf("action %q requires --identity and --signing-key", action)
	}

	now := time.Now()
	token, err := servicetoken.Mint(s.signingKey, &servicetoken.Token{
		Subject:   s.subject,
		Audience:  s.audience,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}

	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["token"] = token
	return s.client.Call(ctx, action, request, result)
}

// CallPublic invokes an unauthenticated action.
func (s *Session) CallPublic(ctx context.Context, action string, fields map[string]any, result any) error {
	return s.client.Call(ctx, action, fields, result)
}

// loadSigningKey reads a hex Ed25519 key from path. Both the 32-byte
// seed form and the 64-byte private-key form are accepted.
func loadSigningKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	raw, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("signing key %s: invalid hex: %w", path, err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("signing key %s: got %d bytes, want %d or %d",
			path, len(raw), ed25519.SeedSize, ed25519.PrivateKeySize)
	}
}
