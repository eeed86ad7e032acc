// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/attest"
	"github.com/trustplane/trustplane/lib/clock"
	"github.com/trustplane/trustplane/lib/codec"
	"github.com/trustplane/trustplane/lib/event"
	"github.com/trustplane/trustplane/lib/gate"
	"github.com/trustplane/trustplane/lib/service"
	"github.com/trustplane/trustplane/lib/servicetoken"
	"github.com/trustplane/trustplane/lib/settle"
	"github.com/trustplane/trustplane/lib/state"
)

var (
	testOwner      = account.MustParse("escrow.owner")
	testSigner     = account.MustParse("signer.service")
	testMaintainer = account.MustParse("alice.dev")
	testAgent      = account.MustParse("agent.builder")
)

const (
	testExpirationMS = int64(3600000)
	testDeposit      = uint64(500)
)

// testService wires an EscrowService against an in-memory store, a
// fake clock, and recording outboxes.
type testService struct {
	*EscrowService
	clock      *clock.FakeClock
	rootKey    ed25519.PrivateKey
	transfers  chan settle.Transfer
	signatures chan settle.SignatureRequest
}

func newTestService(t *testing.T) *testService {
	t.Helper()

	store, err := state.Open(state.Config{
		Path: ":memory:",
		Seed: state.Seed{
			RequiresTEE:             true,
			AttestationExpirationMS: testExpirationMS,
			Owner:                   testOwner,
			SignerAccount:           testSigner,
			RegistrationDeposit:     testDeposit,
		},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rootPublic, rootKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating root key: %v", err)
	}
	verifier, err := attest.NewQuoteVerifier(rootPublic)
	if err != nil {
		t.Fatalf("NewQuoteVerifier: %v", err)
	}

	clk := clock.Fake(time.Unix(1700000000, 0))
	logger := slog.New(slog.DiscardHandler)

	ts := &testService{
		clock:      clk,
		rootKey:    rootKey,
		transfers:  make(chan settle.Transfer, 16),
		signatures: make(chan settle.SignatureRequest, 16),
	}
	ts.EscrowService = &EscrowService{
		store: store,
		gate: &gate.Policy{
			Store:    store,
			Verifier: verifier,
			Clock:    clk,
			Logger:   logger,
		},
		clock:     clk,
		events:    event.NewEmitter(logger),
		startedAt: clk.Now(),
		logger:    logger,
		transfers: settle.NewOutbox(t.Context(), "transfers", logger,
			func(ctx context.Context, transfer settle.Transfer) error {
				ts.transfers <- transfer
				return nil
			}),
		signatures: settle.NewOutbox(t.Context(), "signatures", logger,
			func(ctx context.Context, request settle.SignatureRequest) error {
				ts.signatures <- request
				return nil
			}),
	}
	return ts
}

// tokenFor builds a caller token without going through Mint; handlers
// receive the already-verified token.
func tokenFor(subject account.ID) *servicetoken.Token {
	return &servicetoken.Token{Subject: subject, Audience: tokenAudience}
}

// raw CBOR-encodes the request fields the way a client would.
func rawRequest(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	data, err := codec.Marshal(fields)
	if err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	return data
}

// testMeasurements builds a valid measurement set whose MRTD ends
// with the given seed.
func testMeasurements(seed string) attest.Measurements {
	pad := func(s string) string { return strings.Repeat("0", 96-len(s)) + s }
	return attest.Measurements{
		MRTD:  pad(seed),
		RTMR0: pad("a0"),
		RTMR1: pad("a1"),
		RTMR2: pad("a2"),
		RTMR3: pad("a3"),
	}
}

func testPPID(t *testing.T, hexPPID string) attest.PPID {
	t.Helper()
	ppid, err := attest.ParsePPID(hexPPID)
	if err != nil {
		t.Fatalf("ParsePPID(%q): %v", hexPPID, err)
	}
	return ppid
}

// mintReport produces a report endorsed by the test root.
func (ts *testService) mintReport(t *testing.T, identity attest.Identity) attest.Report {
	t.Helper()
	_, attestationKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating attestation key: %v", err)
	}
	report, err := attest.MintReport(ts.rootKey, attestationKey, identity, nil)
	if err != nil {
		t.Fatalf("MintReport: %v", err)
	}
	return report
}

// approveAndRegister walks an agent through approval and registration.
func (ts *testService) approveAndRegister(t *testing.T, agent account.ID) {
	t.Helper()
	ctx := t.Context()
	identity := attest.Identity{
		Measurements: testMeasurements("01"),
		PPID:         testPPID(t, "000102030405060708090a0b0c0d0e0f"),
	}
	if _, err := ts.handleApproveMeasurements(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"measurements": identity.Measurements,
	})); err != nil {
		t.Fatalf("approve-measurements: %v", err)
	}
	_, err := ts.handleRegisterAgent(ctx, tokenFor(agent), rawRequest(t, map[string]any{
		"report":  ts.mintReport(t, identity),
		"payment": testDeposit,
	}))
	if err != nil {
		t.Fatalf("register-agent: %v", err)
	}
}

// registerRepo registers a repo maintained by testMaintainer.
func (ts *testService) registerRepo(t *testing.T, repo string) {
	t.Helper()
	_, err := ts.handleRegisterRepo(t.Context(), tokenFor(testMaintainer), rawRequest(t, map[string]any{
		"repo": repo,
	}))
	if err != nil {
		t.Fatalf("register-repo: %v", err)
	}
}

// fundBounty funds repo as testMaintainer.
func (ts *testService) fundBounty(t *testing.T, repo string, amount uint64) {
	t.Helper()
	_, err := ts.handleFundBounty(t.Context(), tokenFor(testMaintainer), rawRequest(t, map[string]any{
		"repo":    repo,
		"payment": amount,
	}))
	if err != nil {
		t.Fatalf("fund-bounty: %v", err)
	}
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("got success, want error code %q", code)
	}
	var coded *service.Error
	if !errors.As(err, &coded) {
		t.Fatalf("error %v carries no code, want %q", err, code)
	}
	if coded.Code != code {
		t.Fatalf("error code = %q (%v), want %q", coded.Code, err, code)
	}
}
