// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/event"
	"github.com/trustplane/trustplane/lib/service"
	"github.com/trustplane/trustplane/lib/servicetoken"
	"github.com/trustplane/trustplane/lib/settle"
)

func (es *EscrowService) handleRegisterRepo(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Repo       string     `cbor:"repo"`
		Maintainer account.ID `cbor:"maintainer"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Repo == "" {
		return nil, service.Errorf("bad_request", "missing required field: repo")
	}
	maintainer := request.Maintainer
	if maintainer.IsZero() {
		// The registering caller maintains the repo by default.
		maintainer = token.Subject
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.RegisterRepo(ctx, request.Repo, maintainer); err != nil {
		return nil, wireError(err)
	}
	es.events.Emit(event.KindRepoRegistered,
		"repo", request.Repo,
		"maintainer", maintainer.String(),
		"caller", token.Subject.String(),
	)
	return nil, nil
}

func (es *EscrowService) handleIsRepoRegistered(ctx context.Context, raw []byte) (any, error) {
	repo, err := decodeRepoRequest(raw)
	if err != nil {
		return nil, err
	}
	registered, err := es.store.IsRepoRegistered(ctx, repo)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"registered": registered}, nil
}

func (es *EscrowService) handleGetRepoMaintainer(ctx context.Context, raw []byte) (any, error) {
	repo, err := decodeRepoRequest(raw)
	if err != nil {
		return nil, err
	}
	maintainer, err := es.store.RepoMaintainer(ctx, repo)
	if err != nil {
		return nil, wireError(err)
	}
	return map[string]string{"maintainer": maintainer.String()}, nil
}

func (es *EscrowService) handleGetBounty(ctx context.Context, raw []byte) (any, error) {
	repo, err := decodeRepoRequest(raw)
	if err != nil {
		return nil, err
	}
	balance, err := es.store.Bounty(ctx, repo)
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"balance": balance}, nil
}

// handleFundBounty credits a repo's bounty with the attached payment.
// Maintainer-only: funding an unregistered repo would strand value.
func (es *EscrowService) handleFundBounty(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Repo    string `cbor:"repo"`
		Payment uint64 `cbor:"payment"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Repo == "" {
		return nil, service.Errorf("bad_request", "missing required field: repo")
	}
	if request.Payment == 0 {
		return nil, service.Errorf("bad_request", "payment must be positive")
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.requireMaintainer(ctx, request.Repo, token.Subject); err != nil {
		return nil, err
	}
	if err := es.store.FundBounty(ctx, request.Repo, request.Payment); err != nil {
		return nil, wireError(err)
	}

	balance, err := es.store.Bounty(ctx, request.Repo)
	if err != nil {
		return nil, err
	}
	es.events.Emit(event.KindBountyFunded,
		"repo", request.Repo,
		"amount", request.Payment,
		"balance", balance,
		"caller", token.Subject.String(),
	)
	return map[string]uint64{"balance": balance}, nil
}

// handleReleaseBounty pays part of a repo's bounty to a recipient. The
// caller must clear the authorization gate; the debit commits before
// the transfer is scheduled, so a delivery failure can never leave the
// ledger overdrawn.
func (es *EscrowService) handleReleaseBounty(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Repo      string     `cbor:"repo"`
		Recipient account.ID `cbor:"recipient"`
		Amount    uint64     `cbor:"amount"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Repo == "" {
		return nil, service.Errorf("bad_request", "missing required field: repo")
	}
	if request.Recipient.IsZero() {
		return nil, service.Errorf("bad_request", "missing required field: recipient")
	}
	if request.Amount == 0 {
		return nil, service.Errorf("bad_request", "amount must be positive")
	}

	if err := es.gate.Require(ctx, token.Subject); err != nil {
		return nil, wireError(err)
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.store.DebitBounty(ctx, request.Repo, request.Amount); err != nil {
		return nil, wireError(err)
	}
	es.transfers.Enqueue(settle.Transfer{
		Recipient: request.Recipient,
		Amount:    request.Amount,
		Repo:      request.Repo,
		Reason:    "release",
	})

	balance, err := es.store.Bounty(ctx, request.Repo)
	if err != nil {
		return nil, err
	}
	es.events.Emit(event.KindBountyReleased,
		"repo", request.Repo,
		"recipient", request.Recipient.String(),
		"amount", request.Amount,
		"balance", balance,
		"caller", token.Subject.String(),
	)
	return map[string]uint64{"balance": balance}, nil
}

// handleWithdrawBounty returns bounty funds to the repo's maintainer.
func (es *EscrowService) handleWithdrawBounty(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request struct {
		Repo   string `cbor:"repo"`
		Amount uint64 `cbor:"amount"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return nil, err
	}
	if request.Repo == "" {
		return nil, service.Errorf("bad_request", "missing required field: repo")
	}
	if request.Amount == 0 {
		return nil, service.Errorf("bad_request", "amount must be positive")
	}

	es.mutate.Lock()
	defer es.mutate.Unlock()

	if err := es.requireMaintainer(ctx, request.Repo, token.Subject); err != nil {
		return nil, err
	}
	if err := es.store.DebitBounty(ctx, request.Repo, request.Amount); err != nil {
		return nil, wireError(err)
	}
	es.transfers.Enqueue(settle.Transfer{
		Recipient: token.Subject,
		Amount:    request.Amount,
		Repo:      request.Repo,
		Reason:    "withdrawal",
	})

	balance, err := es.store.Bounty(ctx, request.Repo)
	if err != nil {
		return nil, err
	}
	es.events.Emit(event.KindBountyWithdrawn,
		"repo", request.Repo,
		"amount", request.Amount,
		"balance", balance,
		"caller", token.Subject.String(),
	)
	return map[string]uint64{"balance": balance}, nil
}

// requireMaintainer resolves the repo's maintainer and checks the
// caller against it, mapping failures onto wire codes.
func (es *EscrowService) requireMaintainer(ctx context.Context, repo string, caller account.ID) error {
	maintainer, err := es.store.RepoMaintainer(ctx, repo)
	if err != nil {
		return wireError(err)
	}
	if maintainer != caller {
		return service.Errorf("not_maintainer",
			"%s does not maintain %s", caller, repo)
	}
	return nil
}

func decodeRepoRequest(raw []byte) (string, error) {
	var request struct {
		Repo string `cbor:"repo"`
	}
	if err := service.DecodeRequest(raw, &request); err != nil {
		return "", err
	}
	if request.Repo == "" {
		return "", service.Errorf("bad_request", "missing required field: repo")
	}
	return request.Repo, nil
}
