// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package settle

import (
	"context"
	"fmt"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/service"
)

// Transfer is a value payout scheduled after a ledger debit commits.
type Transfer struct {
	Recipient account.ID `cbor:"recipient"`
	Amount    uint64     `cbor:"amount"`
	Repo      string     `cbor:"repo"`
	Reason    string     `cbor:"reason"`
}

// SignatureRequest asks the signer backend to produce a signature
// over Payload with the key derived at Path.
type SignatureRequest struct {
	Path    string `cbor:"path"`
	Payload []byte `cbor:"payload"`
	KeyType string `cbor:"key_type"`
}

// Settler delivers transfers to the settlement backend.
type Settler interface {
	Transfer(ctx context.Context, transfer Transfer) error
}

// Signer forwards signature requests to the signer backend.
type Signer interface {
	Sign(ctx context.Context, request SignatureRequest) error
}

// SocketBackend reaches the settlement service over its Unix socket.
// It implements both Settler and Signer.
type SocketBackend struct {
	client *service.Client
}

// NewSocketBackend creates a backend for the service at socketPath.
func NewSocketBackend(socketPath string) *SocketBackend {
	return &SocketBackend{client: service.NewClient(socketPath)}
}

func (b *SocketBackend) Transfer(ctx context.Context, transfer Transfer) error {
	err := b.client.Call(ctx, "transfer", map[string]any{
		"recipient": transfer.Recipient.String(),
		"amount":    transfer.Amount,
		"repo":      transfer.Repo,
		"reason":    transfer.Reason,
	}, nil)
	if err != nil {
		return fmt.Errorf("transferring %d to %s: %w", transfer.Amount, transfer.Recipient, err)
	}
	return nil
}

func (b *SocketBackend) Sign(ctx context.Context, request SignatureRequest) error {
	err := b.client.Call(ctx, "sign", map[string]any{
		"path":     request.Path,
		"payload":  request.Payload,
		"key_type": request.KeyType,
	}, nil)
	if err != nil {
		return fmt.Errorf("requesting signature for path %q: %w", request.Path, err)
	}
	return nil
}
