// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/trustplane/trustplane/lib/servicetoken"
)

func TestAdminActionsAreOwnerGated(t *testing.T) {
	ts := newTestService(t)
	ctx := t.Context()
	measurements := testMeasurements("01")
	ppid := testPPID(t, "000102030405060708090a0b0c0d0e0f")

	actions := []struct {
		name    string
		handler func(token *servicetoken.Token) error
	}{
		{"set-requires-tee", func(token *servicetoken.Token) error {
			_, err := ts.handleSetRequiresTEE(ctx, token, rawRequest(t, map[string]any{
				"requires_tee": false,
			}))
			return err
		}},
		{"set-attestation-expiration", func(token *servicetoken.Token) error {
			_, err := ts.handleSetAttestationExpiration(ctx, token, rawRequest(t, map[string]any{
				"expiration_ms": int64(60000),
			}))
			return err
		}},
		{"approve-measurements", func(token *servicetoken.Token) error {
			_, err := ts.handleApproveMeasurements(ctx, token, rawRequest(t, map[string]any{
				"measurements": measurements,
			}))
			return err
		}},
		{"remove-measurements", func(token *servicetoken.Token) error {
			_, err := ts.handleRemoveMeasurements(ctx, token, rawRequest(t, map[string]any{
				"fingerprint": measurements.Fingerprint(),
			}))
			return err
		}},
		{"approve-device", func(token *servicetoken.Token) error {
			_, err := ts.handleApproveDevice(ctx, token, rawRequest(t, map[string]any{
				"ppid": ppid,
			}))
			return err
		}},
		{"remove-device", func(token *servicetoken.Token) error {
			_, err := ts.handleRemoveDevice(ctx, token, rawRequest(t, map[string]any{
				"ppid": ppid,
			}))
			return err
		}},
		{"whitelist-account", func(token *servicetoken.Token) error {
			_, err := ts.handleWhitelistAccount(ctx, token, rawRequest(t, map[string]any{
				"account": testAgent,
			}))
			return err
		}},
		{"unwhitelist-account", func(token *servicetoken.Token) error {
			_, err := ts.handleUnwhitelistAccount(ctx, token, rawRequest(t, map[string]any{
				"account": testAgent,
			}))
			return err
		}},
		{"remove-agent", func(token *servicetoken.Token) error {
			_, err := ts.handleRemoveAgent(ctx, token, rawRequest(t, map[string]any{
				"account": testAgent,
			}))
			return err
		}},
	}

	for _, action := range actions {
		t.Run(action.name, func(t *testing.T) {
			wantCode(t, action.handler(tokenFor(testAgent)), "not_owner")
			if err := action.handler(tokenFor(testOwner)); err != nil {
				t.Fatalf("as owner: %v", err)
			}
		})
	}
}

func TestWhitelistBypassesGate(t *testing.T) {
	ts := newTestService(t)
	ctx := t.Context()

	wantCode(t, wireError(ts.gate.Require(ctx, testAgent)), "not_authorized")

	if _, err := ts.handleWhitelistAccount(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"account": testAgent,
	})); err != nil {
		t.Fatalf("whitelist-account: %v", err)
	}
	if err := ts.gate.Require(ctx, testAgent); err != nil {
		t.Fatalf("Require for whitelisted account: %v", err)
	}

	if _, err := ts.handleUnwhitelistAccount(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"account": testAgent,
	})); err != nil {
		t.Fatalf("unwhitelist-account: %v", err)
	}
	wantCode(t, wireError(ts.gate.Require(ctx, testAgent)), "not_authorized")
}

func TestDisablingTEEOpensGate(t *testing.T) {
	ts := newTestService(t)
	ctx := t.Context()

	wantCode(t, wireError(ts.gate.Require(ctx, testAgent)), "not_authorized")

	if _, err := ts.handleSetRequiresTEE(ctx, tokenFor(testOwner), rawRequest(t, map[string]any{
		"requires_tee": false,
	})); err != nil {
		t.Fatalf("set-requires-tee: %v", err)
	}
	if err := ts.gate.Require(ctx, testAgent); err != nil {
		t.Fatalf("Require with TEE disabled: %v", err)
	}
}
