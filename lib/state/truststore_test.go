// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"errors"
	"testing"

	"github.com/trustplane/trustplane/lib/account"
)

func TestApproveMeasurementsOwnerGated(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()
	m := testMeasurements("beef")

	err := store.ApproveMeasurements(ctx, testMaintainer, m)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner approve error = %v, want ErrNotOwner", err)
	}
	approved, err := store.IsMeasurementApproved(ctx, m)
	if err != nil {
		t.Fatalf("IsMeasurementApproved: %v", err)
	}
	if approved {
		t.Error("measurement approved after rejected call")
	}

	if err := store.ApproveMeasurements(ctx, testOwner, m); err != nil {
		t.Fatalf("owner approve: %v", err)
	}
	approved, err = store.IsMeasurementApproved(ctx, m)
	if err != nil {
		t.Fatalf("IsMeasurementApproved: %v", err)
	}
	if !approved {
		t.Error("measurement not approved after owner call")
	}
}

func TestRemoveMeasurements(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()
	m := testMeasurements("beef")

	if err := store.ApproveMeasurements(ctx, testOwner, m); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := store.RemoveMeasurements(ctx, testOwner, m.Fingerprint()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	approved, err := store.IsMeasurementApproved(ctx, m)
	if err != nil {
		t.Fatalf("IsMeasurementApproved: %v", err)
	}
	if approved {
		t.Error("measurement still approved after removal")
	}
}

func TestDeviceAllowList(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()
	ppid := testPPID(t, "00112233445566778899aabbccddeeff")

	count, err := store.ApprovedDeviceCount(ctx)
	if err != nil {
		t.Fatalf("ApprovedDeviceCount: %v", err)
	}
	if count != 0 {
		t.Errorf("initial device count = %d, want 0", count)
	}

	if err := store.ApproveDevice(ctx, testOwner, ppid); err != nil {
		t.Fatalf("ApproveDevice: %v", err)
	}
	// Idempotent.
	if err := store.ApproveDevice(ctx, testOwner, ppid); err != nil {
		t.Fatalf("ApproveDevice repeat: %v", err)
	}

	count, err = store.ApprovedDeviceCount(ctx)
	if err != nil {
		t.Fatalf("ApprovedDeviceCount: %v", err)
	}
	if count != 1 {
		t.Errorf("device count = %d, want 1", count)
	}

	approved, err := store.IsDeviceApproved(ctx, ppid)
	if err != nil {
		t.Fatalf("IsDeviceApproved: %v", err)
	}
	if !approved {
		t.Error("approved device not reported approved")
	}

	other := testPPID(t, "ffeeddccbbaa99887766554433221100")
	approved, err = store.IsDeviceApproved(ctx, other)
	if err != nil {
		t.Fatalf("IsDeviceApproved: %v", err)
	}
	if approved {
		t.Error("unapproved device reported approved")
	}

	if err := store.RemoveDevice(ctx, testOwner, ppid); err != nil {
		t.Fatalf("RemoveDevice: %v", err)
	}
	count, err = store.ApprovedDeviceCount(ctx)
	if err != nil {
		t.Fatalf("ApprovedDeviceCount: %v", err)
	}
	if count != 0 {
		t.Errorf("device count after removal = %d, want 0", count)
	}
}

func TestWhitelist(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()
	local := account.MustParse("dev.local")

	listed, err := store.IsWhitelisted(ctx, local)
	if err != nil {
		t.Fatalf("IsWhitelisted: %v", err)
	}
	if listed {
		t.Error("account whitelisted before any call")
	}

	if err := store.WhitelistAccount(ctx, testAgent, local); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner whitelist error = %v, want ErrNotOwner", err)
	}

	if err := store.WhitelistAccount(ctx, testOwner, local); err != nil {
		t.Fatalf("WhitelistAccount: %v", err)
	}
	listed, err = store.IsWhitelisted(ctx, local)
	if err != nil {
		t.Fatalf("IsWhitelisted: %v", err)
	}
	if !listed {
		t.Error("account not whitelisted after owner call")
	}

	if err := store.UnwhitelistAccount(ctx, testOwner, local); err != nil {
		t.Fatalf("UnwhitelistAccount: %v", err)
	}
	listed, err = store.IsWhitelisted(ctx, local)
	if err != nil {
		t.Fatalf("IsWhitelisted: %v", err)
	}
	if listed {
		t.Error("account still whitelisted after removal")
	}
}

func TestSetRequiresTEE(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	if err := store.SetRequiresTEE(ctx, testAgent, false); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner toggle error = %v, want ErrNotOwner", err)
	}

	if err := store.SetRequiresTEE(ctx, testOwner, false); err != nil {
		t.Fatalf("SetRequiresTEE: %v", err)
	}
	cfg, err := store.TrustConfig(ctx)
	if err != nil {
		t.Fatalf("TrustConfig: %v", err)
	}
	if cfg.RequiresTEE {
		t.Error("RequiresTEE still true after owner toggle")
	}
}

func TestSetAttestationExpiration(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	if err := store.SetAttestationExpiration(ctx, testOwner, 0); err == nil {
		t.Error("zero expiration accepted")
	}
	if err := store.SetAttestationExpiration(ctx, testOwner, 7200000); err != nil {
		t.Fatalf("SetAttestationExpiration: %v", err)
	}
	cfg, err := store.TrustConfig(ctx)
	if err != nil {
		t.Fatalf("TrustConfig: %v", err)
	}
	if cfg.AttestationExpirationMS != 7200000 {
		t.Errorf("AttestationExpirationMS = %d, want 7200000", cfg.AttestationExpirationMS)
	}
}
