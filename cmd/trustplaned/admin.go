// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/attest"
	"github.com/trustplane/trustplane/lib/event"
	"github.com/trustplane/trustplane/lib/service"
	"github.com/trustplane/trustplane/lib/servicetoken"
)

// Owner administration. Every action here is owner-gated inside
// lib/state; a non-owner caller gets not_owner with state untouched.

func (es *EscrowService) handleSetRequiresTEE(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		RequiresTEE bool `cbor:"requires_tee"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.SetRequiresTEE(ctx, token.Subject, request.RequiresTEE); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindPolicyChanged,
		"requires_tee", request.RequiresTEE,
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func (es *EscrowService) handleSetAttestationExpiration(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		ExpirationMS int64 `cbor:"expiration_ms"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.ExpirationMS <= 0 {
		return nil, service.Errorf("bad_request", "expiration_ms must be positive")
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.SetAttestationExpiration(ctx, token.Subject, request.ExpirationMS); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindPolicyChanged,
		"attestation_expiration_ms", request.ExpirationMS,
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func (es *EscrowService) handleApproveMeasurements(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Measurements attest.Measurements `cbor:"measurements"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if err := request.Measurements.Validate(); err != nil {
		return nil, service.Errorf("bad_request", "invalid measurements: %v", err)
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.ApproveMeasurements(ctx, token.Subject, request.Measurements); err != nil {
		return nil, wireError(err)
	}
	fingerprint := request.Measurements.Fingerprint()
	es.events.Emit(event.KindMeasurementApproved,
		"fingerprint", fingerprint,
		"caller", token.Subject.String(),
	)
	return map[string]string{"fingerprint": fingerprint}, nil
}

func (es *EscrowService) handleRemoveMeasurements(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Fingerprint string `cbor:"fingerprint"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Fingerprint == "" {
		return nil, service.Errorf("bad_request", "missing required field: fingerprint")
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.RemoveMeasurements(ctx, token.Subject, request.Fingerprint); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindMeasurementRemoved,
		"fingerprint", request.Fingerprint,
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func (es *EscrowService) handleApproveDevice(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	ppid, err := decodePPIDRequest(raw)
	if err != nil {
		return nil, err
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.ApproveDevice(ctx, token.Subject, ppid); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindDeviceApproved,
		"ppid", ppid.String(),
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func (es *EscrowService) handleRemoveDevice(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	ppid, err := decodePPIDRequest(raw)
	if err != nil {
		return nil, err
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.RemoveDevice(ctx, token.Subject, ppid); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindDeviceRemoved,
		"ppid", ppid.String(),
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func (es *EscrowService) handleWhitelistAccount(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	target, err := decodeAccountRequest(raw)
	if err != nil {
		return nil, err
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.WhitelistAccount(ctx, token.Subject, target); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindAgentWhitelisted,
		"account", target.String(),
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func (es *EscrowService) handleUnwhitelistAccount(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	target, err := decodeAccountRequest(raw)
	if err != nil {
		return nil, err
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.UnwhitelistAccount(ctx, token.Subject, target); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindAgentUnwhitelisted,
		"account", target.String(),
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func (es *EscrowService) handleRemoveAgent(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	target, err := decodeAccountRequest(raw)
	if err != nil {
		return nil, err
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.RemoveAgent(ctx, token.Subject, target); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindAgentRemoved,
		"account", target.String(),
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func decodePPIDRequest(raw []byte) (attest.PPID, error) {
	var request struct {
		PPID attest.PPID `cbor:"ppid"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return attest.PPID{}, err
	}
	if request.PPID.IsZero() {
		return attest.PPID{}, service.Errorf("bad_request", "missing required field: ppid")
	}
	return request.PPID, nil
}

func decodeAccountRequest(raw []byte) (account.ID, error) {
	var request struct {
		Account account.ID `cbor:"account"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return account.ID{}, err
	}
	if request.Account.IsZero() {
		return account.ID{}, service.Errorf("bad_request", "missing required field: account")
	}
	return request.Account, nil
}
