// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/trustplane/trustplane/lib/attest"
	"github.com/trustplane/trustplane/lib/clock"
	"github.com/trustplane/trustplane/lib/event"
	"github.com/trustplane/trustplane/lib/gate"
	"github.com/trustplane/trustplane/lib/service"
	"github.com/trustplane/trustplane/lib/settle"
	"github.com/trustplane/trustplane/lib/state"
)

// tokenAudience scopes caller tokens to this service.
const tokenAudience = "escrow"

// EscrowService holds the wiring for all socket actions.
type EscrowService struct {
	store      *state.Store
	gate       *gate.Policy
	clock      clock.Clock
	events     *event.Emitter
	transfers  *settle.Outbox[settle.Transfer]
	signatures *settle.Outbox[settle.SignatureRequest]
	startedAt  time.Time
	logger     *slog.Logger

	// mutate serializes privileged state changes. SQLite's IMMEDIATE
	// transactions already serialize writers; the mutex additionally
	// keeps the debit and its outbox enqueue adjacent so transfer
	// ordering matches ledger ordering.
	mutate sync.Mutex
}

// registerActions registers every socket action. The only
// unauthenticated actions are the liveness check and the read-only
// registry views.
func (es *EscrowService) registerActions(server *service.SocketServer) {
	server.Handle("status", es.handleStatus)
	server.Handle("is-repo-registered", es.handleIsRepoRegistered)
	server.Handle("get-repo-maintainer", es.handleGetRepoMaintainer)
	server.Handle("get-bounty", es.handleGetBounty)

	server.HandleAuth("info", es.handleInfo)
	server.HandleAuth("get-agent", es.handleGetAgent)

	server.HandleAuth("register-agent", es.handleRegisterAgent)
	server.HandleAuth("request-signature", es.handleRequestSignature)

	server.HandleAuth("register-repo", es.handleRegisterRepo)
	server.HandleAuth("fund-bounty", es.handleFundBounty)
	server.HandleAuth("release-bounty", es.handleReleaseBounty)
	server.HandleAuth("withdraw-bounty", es.handleWithdrawBounty)

	server.HandleAuth("set-requires-tee", es.handleSetRequiresTEE)
	server.HandleAuth("set-attestation-expiration", es.handleSetAttestationExpiration)
	server.HandleAuth("approve-measurements", es.handleApproveMeasurements)
	server.HandleAuth("remove-measurements", es.handleRemoveMeasurements)
	server.HandleAuth("approve-device", es.handleApproveDevice)
	server.HandleAuth("remove-device", es.handleRemoveDevice)
	server.HandleAuth("whitelist-account", es.handleWhitelistAccount)
	server.HandleAuth("unwhitelist-account", es.handleUnwhitelistAccount)
	server.HandleAuth("remove-agent", es.handleRemoveAgent)
}

// wireError maps domain sentinels onto their stable wire codes. Errors
// without a mapping pass through and surface as "internal".
func wireError(err error) error {
	if err == nil {
		return nil
	}
	for _, mapping := range []struct {
		sentinel error
		code     string
	}{
		{gate.ErrNotAuthorized, "not_authorized"},
		{state.ErrNotOwner, "not_owner"},
		{state.ErrNotMaintainer, "not_maintainer"},
		{state.ErrRepoNotFound, "repo_not_found"},
		{state.ErrRepoAlreadyRegistered, "repo_already_registered"},
		{state.ErrInsufficientFunds, "insufficient_funds"},
		{state.ErrBalanceOverflow, "balance_overflow"},
		{attest.ErrAttestationInvalid, "attestation_invalid"},
		{attest.ErrMeasurementNotApproved, "measurement_not_approved"},
		{attest.ErrDeviceNotApproved, "device_not_approved"},
	} {
		if errors.Is(err, mapping.sentinel) {
			return service.WithCode(mapping.code, err)
		}
	}
	return err
}
