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
	"github.com/trustplane/trustplane/lib/settle"
	"github.com/trustplane/trustplane/lib/state"
)

// statusResponse is the response to the unauthenticated "status"
// action. Liveness only.
type statusResponse struct {
	UptimeSeconds float64 `cbor:"uptime_seconds"`
}

func (es *EscrowService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return statusResponse{
		UptimeSeconds: es.clock.Now().Sub(es.startedAt).Seconds(),
	}, nil
}

// infoResponse is the response to the authenticated "info" action.
type infoResponse struct {
	Owner                   string `cbor:"owner"`
	SignerAccount           string `cbor:"signer_account"`
	RequiresTEE             bool   `cbor:"requires_tee"`
	AttestationExpirationMS int64  `cbor:"attestation_expiration_ms"`
	RegistrationDeposit     uint64 `cbor:"registration_deposit"`
	Agents                  int64  `cbor:"agents"`
	ApprovedMeasurements    int64  `cbor:"approved_measurements"`
	ApprovedDevices         int64  `cbor:"approved_devices"`
	Repos                   int64  `cbor:"repos"`
}

func (es *EscrowService) handleInfo(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	cfg, err := es.store.TrustConfig(ctx)
	if err != nil {
		return nil, err
	}
	agents, err := es.store.AgentCount(ctx)
	if err != nil {
		return nil, err
	}
	measurements, err := es.store.ApprovedMeasurementCount(ctx)
	if err != nil {
		return nil, err
	}
	devices, err := es.store.ApprovedDeviceCount(ctx)
	if err != nil {
		return nil, err
	}
	repos, err := es.store.RepoCount(ctx)
	if err != nil {
		return nil, err
	}
	return infoResponse{
		Owner:                   cfg.Owner.String(),
		SignerAccount:           cfg.SignerAccount.String(),
		RequiresTEE:             cfg.RequiresTEE,
		AttestationExpirationMS: cfg.AttestationExpirationMS,
		RegistrationDeposit:     cfg.RegistrationDeposit,
		Agents:                  agents,
		ApprovedMeasurements:    measurements,
		ApprovedDevices:         devices,
		Repos:                   repos,
	}, nil
}

// agentResponse is the response to "get-agent".
type agentResponse struct {
	Agent *state.Agent `cbor:"agent,omitempty"`
	Valid bool         `cbor:"valid"`
}

func (es *EscrowService) handleGetAgent(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Account account.ID `cbor:"account"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Account.IsZero() {
		return nil, service.Errorf("bad_request", "missing required field: account")
	}

	agent, found, err := es.store.Agent(ctx, request.Account)
	if err != nil {
		return nil, err
	}
	if !found {
		return agentResponse{}, nil
	}
	return agentResponse{
		Agent: &agent,
		Valid: es.clock.Now().UnixMilli() < agent.ValidUntil,
	}, nil
}

// registerAgentResponse is the response to "register-agent".
type registerAgentResponse struct {
	Account      string `cbor:"account"`
	RegisteredAt int64  `cbor:"registered_at"`
	ValidUntil   int64  `cbor:"valid_until"`
}

// handleRegisterAgent admits the caller into the agent registry: the
// payment must cover the registration deposit, the attestation report
// must verify against the trust roots, and the proven measurements and
// device must clear the allow-lists. Re-registration before expiry
// renews the record.
func (es *EscrowService) handleRegisterAgent(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Report  attest.Report `cbor:"report"`
		Payment uint64        `cbor:"payment"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}

	cfg, err := es.store.TrustConfig(ctx)
	if err != nil {
		return nil, err
	}
	if request.Payment < cfg.RegistrationDeposit {
		return nil, service.Errorf("insufficient_payment",
			"payment %d does not cover the registration deposit %d",
			request.Payment, cfg.RegistrationDeposit)
	}

	identity, err := es.gate.VerifyReport(ctx, request.Report)
	if err != nil {
		return nil, wireError(err)
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	now := es.clock.Now().UnixMilli()
	agent := state.Agent{
		Account:      token.Subject,
		Measurements: identity.Measurements,
		PPID:         identity.PPID,
		RegisteredAt: now,
		ValidUntil:   now + cfg.AttestationExpirationMS,
	}
	if err := es.store.PutAgent(ctx, agent); err != nil {
		return nil, wireError(err)
	}

	es.events.Emit(event.KindAgentRegistered,
		"account", agent.Account.String(),
		"fingerprint", identity.Measurements.Fingerprint(),
		"ppid", identity.PPID.String(),
		"valid_until", agent.ValidUntil,
	)
	return registerAgentResponse{
		Account:      agent.Account.String(),
		RegisteredAt: agent.RegisteredAt,
		ValidUntil:   agent.ValidUntil,
	}, nil
}

// handleRequestSignature forwards a signature request to the signer
// backend. Gated: only currently valid agents may request signatures.
func (es *EscrowService) handleRequestSignature(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Path    string `cbor:"path"`
		Payload []byte `cbor:"payload"`
		KeyType string `cbor:"key_type"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Path == "" {
		return nil, service.Errorf("bad_request", "missing required field: path")
	}
	if len(request.Payload) == 0 {
		return nil, service.Errorf("bad_request", "missing required field: payload")
	}

	if err := es.gate.Require(ctx, token.Subject); err != nil {
		return nil, wireError(err)
	}

	es.signatures.Enqueue(settle.SignatureRequest{
		Path:    request.Path,
		Payload: request.Payload,
		KeyType: request.KeyType,
	})
	es.events.Emit(event.KindSignatureRequested,
		"caller", token.Subject.String(),
		"path", request.Path,
		"key_type", request.KeyType,
	)
	return nil, nil
}
