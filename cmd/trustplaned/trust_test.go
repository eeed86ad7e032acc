// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"
	"time"

	"github.com/trustplane/trustplane/lib/attest"
	"github.com/trustplane/trustplane/lib/codec"
	"github.com/trustplane/trustplane/lib/settle"
	"github.com/trustplane/trustplane/lib/testutil"
)

func TestRegisterAgentLifecycle(t *testing.T) {
	ts := newTestService(t)
	ctx := t.Context()
	identity := attest.Identity{
		Measurements: testMeasurements("01"),
		PPID:         testPPID(t, "000102030405060708090a0b0c0d0e0f"),
	}

	// Unapproved measurements are rejected even with a valid chain.
	_, err := ts.handleRegisterAgent(ctx, tokenFor(testAgent), rawRequest(t, map[string]any{
		"report":  ts.mintReport(t, identity),
		"payment": testDeposit,
	}))
	wantCode(t, err, "measurement_not_approved")

	if _, err := ts.handleApproveMeasurements(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"measurements": identity.Measurements,
	})); err != nil {
		t.Fatalf("approve-measurements: %v", err)
	}

	// Underpayment is rejected before attestation is even looked at.
	_, err = ts.handleRegisterAgent(ctx, tokenFor(testAgent), rawRequest(t, map[string]any{
		"report":  ts.mintReport(t, identity),
		"payment": testDeposit - 1,
	}))
	wantCode(t, err, "insufficient_payment")

	result, err := ts.handleRegisterAgent(ctx, tokenFor(testAgent), rawRequest(t, map[string]any{
		"report":  ts.mintReport(t, identity),
		"payment": testDeposit,
	}))
	if err != nil {
		t.Fatalf("register-agent: %v", err)
	}
	response := result.(registerAgentResponse)
	if response.Account != testAgent.String() {
		t.Errorf("registered account = %q, want %q", response.Account, testAgent)
	}
	if got, want := response.ValidUntil-response.RegisteredAt, testExpirationMS; got != want {
		t.Errorf("validity window = %dms, want %dms", got, want)
	}

	// Valid one millisecond after registration.
	ts.clock.Advance(time.Millisecond)
	if err := ts.gate.Require(ctx, testAgent); err != nil {
		t.Fatalf("Require just after registration: %v", err)
	}

	// Invalid once the window has fully elapsed.
	ts.clock.Advance(time.Duration(testExpirationMS) * time.Millisecond)
	wantCode(t, wireError(ts.gate.Require(ctx, testAgent)), "not_authorized")

	// Re-registration renews the expired record.
	if _, err := ts.handleRegisterAgent(ctx, tokenFor(testAgent), rawRequest(t, map[string]any{
		"report":  ts.mintReport(t, identity),
		"payment": testDeposit,
	})); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if err := ts.gate.Require(ctx, testAgent); err != nil {
		t.Fatalf("Require after renewal: %v", err)
	}
}

func TestRegisterAgentTamperedReport(t *testing.T) {
	ts := newTestService(t)
	identity := attest.Identity{
		Measurements: testMeasurements("01"),
		PPID:         testPPID(t, "000102030405060708090a0b0c0d0e0f"),
	}
	report := ts.mintReport(t, identity)
	report.Quote[0] ^= 0xff

	_, err := ts.handleRegisterAgent(t.Context(), tokenFor(testAgent), rawRequest(t, map[string]any{
		"report":  report,
		"payment": testDeposit,
	}))
	wantCode(t, err, "attestation_invalid")
}

func TestRegisterAgentDeviceAllowList(t *testing.T) {
	ts := newTestService(t)
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

	// Empty device list: any device passes.
	if _, err := ts.handleRegisterAgent(ctx, tokenFor(testAgent), rawRequest(t, map[string]any{
		"report":  ts.mintReport(t, identity),
		"payment": testDeposit,
	})); err != nil {
		t.Fatalf("register with empty device list: %v", err)
	}

	// A non-empty list rejects devices not on it.
	other := testPPID(t, "ffffffffffffffffffffffffffffffff")
	if _, err := ts.handleApproveDevice(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"ppid": other,
	})); err != nil {
		t.Fatalf("approve-device: %v", err)
	}
	_, err := ts.handleRegisterAgent(ctx, tokenFor(testAgent), rawRequest(t, map[string]any{
		"report":  ts.mintReport(t, identity),
		"payment": testDeposit,
	}))
	wantCode(t, err, "device_not_approved")

	// Approving the agent's device admits it again.
	if _, err := ts.handleApproveDevice(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"ppid": identity.PPID,
	})); err != nil {
		t.Fatalf("approve-device: %v", err)
	}
	if _, err := ts.handleRegisterAgent(ctx, tokenFor(testAgent), rawRequest(t, map[string]any{
		"report":  ts.mintReport(t, identity),
		"payment": testDeposit,
	})); err != nil {
		t.Fatalf("register with approved device: %v", err)
	}
}

func TestGetAgent(t *testing.T) {
	ts := newTestService(t)
	ctx := t.Context()

	result, err := ts.handleGetAgent(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"account": testAgent,
	}))
	if err != nil {
		t.Fatalf("get-agent: %v", err)
	}
	if response := result.(agentResponse); response.Agent != nil || response.Valid {
		t.Errorf("unregistered agent returned %+v", response)
	}

	ts.approveAndRegister(t, testAgent)

	result, err = ts.handleGetAgent(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"account": testAgent,
	}))
	if err != nil {
		t.Fatalf("get-agent: %v", err)
	}
	response := result.(agentResponse)
	if response.Agent == nil || !response.Valid {
		t.Fatalf("registered agent returned %+v", response)
	}
	if response.Agent.Account != testAgent {
		t.Errorf("agent account = %v, want %v", response.Agent.Account, testAgent)
	}

	ts.clock.Advance(time.Duration(testExpirationMS+1) * time.Millisecond)
	result, err = ts.handleGetAgent(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"account": testAgent,
	}))
	if err != nil {
		t.Fatalf("get-agent: %v", err)
	}
	if response := result.(agentResponse); response.Agent == nil || response.Valid {
		t.Errorf("expired agent returned %+v, want record with valid=false", response)
	}
}

func TestRequestSignature(t *testing.T) {
	ts := newTestService(t)
	ctx := t.Context()

	request := map[string]any{
		"path":     "escrow/release/org-widget",
		"payload":  []byte("digest"),
		"key_type": "ecdsa",
	}

	_, err := ts.handleRequestSignature(ctx, tokenFor(testAgent), rawRequest(t, request))
	wantCode(t, err, "not_authorized")

	ts.approveAndRegister(t, testAgent)
	if _, err := ts.handleRequestSignature(ctx, tokenFor(testAgent), rawRequest(t, request)); err != nil {
		t.Fatalf("request-signature: %v", err)
	}

	forwarded := testutil.RequireReceive(t, ts.signatures, 5*time.Second, "signature request not forwarded")
	want := settle.SignatureRequest{
		Path:    "escrow/release/org-widget",
		Payload: []byte("digest"),
		KeyType: "ecdsa",
	}
	if forwarded.Path != want.Path || forwarded.KeyType != want.KeyType || string(forwarded.Payload) != string(want.Payload) {
		t.Errorf("forwarded %+v, want %+v", forwarded, want)
	}
}

func TestStatusAndInfo(t *testing.T) {
	ts := newTestService(t)
	ctx := t.Context()

	ts.clock.Advance(90 * time.Second)
	result, err := ts.handleStatus(ctx, rawRequest(t, map[string]any{}))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got := result.(statusResponse).UptimeSeconds; got != 90 {
		t.Errorf("uptime = %v, want 90", got)
	}

	ts.approveAndRegister(t, testAgent)
	ts.registerRepo(t, "org/widget")

	result, err = ts.handleInfo(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{}))
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	info := result.(infoResponse)
	if info.Owner != testOwner.String() {
		t.Errorf("owner = %q, want %q", info.Owner, testOwner)
	}
	if !info.RequiresTEE {
		t.Error("requires_tee = false, want true")
	}
	if info.Agents != 1 || info.ApprovedMeasurements != 1 || info.Repos != 1 {
		t.Errorf("counts = %d/%d/%d agents/measurements/repos, want 1/1/1",
			info.Agents, info.ApprovedMeasurements, info.Repos)
	}

	// Responses must round-trip through the wire codec.
	encoded, err := codec.Marshal(info)
	if err != nil {
		t.Fatalf("encoding info: %v", err)
	}
	var decoded infoResponse
	if err := codec.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("decoding info: %v", err)
	}
	if decoded != info {
		t.Errorf("info did not round-trip: %+v != %+v", decoded, info)
	}
}
