// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/attest"
	"github.com/trustplane/trustplane/lib/clock"
	"github.com/trustplane/trustplane/lib/state"
)

// ErrNotAuthorized is the hard failure produced by Require for any
// caller that is not currently a valid agent.
var ErrNotAuthorized = errors.New("caller is not a valid agent")

// Outcome tags an authorization decision.
type Outcome int

const (
	// Rejected: the caller may not perform privileged operations.
	Rejected Outcome = iota

	// Bypassed: the caller passes without an agent record, because
	// requires-TEE is off or the caller is on the local whitelist.
	Bypassed

	// Verified: the caller holds an unexpired agent record.
	Verified
)

func (o Outcome) String() string {
	switch o {
	case Bypassed:
		return "bypassed"
	case Verified:
		return "verified"
	default:
		return "rejected"
	}
}

// Decision is the result of evaluating a caller against the gate.
type Decision struct {
	Outcome Outcome

	// Reason explains a rejection ("no agent record", "agent record
	// expired"). Empty for Bypassed and Verified.
	Reason string

	// Agent is the matched registry record when Outcome is Verified.
	Agent *state.Agent
}

// Valid reports whether the decision permits privileged operations.
func (d Decision) Valid() bool {
	return d.Outcome == Bypassed || d.Outcome == Verified
}

// Policy evaluates callers and admits attestation reports against the
// contract state.
type Policy struct {
	Store    *state.Store
	Verifier attest.Verifier
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Evaluate decides whether the caller is currently a valid agent.
// Decision order: bypass (requires-TEE off, or whitelisted), then
// registry lookup, then expiry. Expired records stay stored but are
// inert here.
func (p *Policy) Evaluate(ctx context.Context, caller account.ID) (Decision, error) {
	cfg, err := p.Store.TrustConfig(ctx)
	if err != nil {
		return Decision{}, err
	}
	if !cfg.RequiresTEE {
		return Decision{Outcome: Bypassed}, nil
	}

	whitelisted, err := p.Store.IsWhitelisted(ctx, caller)
	if err != nil {
		return Decision{}, err
	}
	if whitelisted {
		return Decision{Outcome: Bypassed}, nil
	}

	agent, found, err := p.Store.Agent(ctx, caller)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return Decision{Outcome: Rejected, Reason: "no agent record"}, nil
	}

	now := p.Clock.Now().UnixMilli()
	if now >= agent.ValidUntil {
		return Decision{Outcome: Rejected, Reason: "agent record expired"}, nil
	}
	return Decision{Outcome: Verified, Agent: &agent}, nil
}

// Require is the guard every privileged operation calls before
// touching the ledger: ErrNotAuthorized unless the caller is valid.
func (p *Policy) Require(ctx context.Context, caller account.ID) error {
	decision, err := p.Evaluate(ctx, caller)
	if err != nil {
		return err
	}
	if !decision.Valid() {
		p.Logger.Debug("authorization rejected",
			"caller", caller.String(),
			"reason", decision.Reason,
		)
		return fmt.Errorf("%w: %s", ErrNotAuthorized, decision.Reason)
	}
	return nil
}

// VerifyReport admits an attestation report: verifier first, then the
// trust-store policy. Returns the proven identity on success.
//
// The measurement allow-list is enforced only while requires-TEE is
// on. The device allow-list applies whenever it is non-empty; an empty
// list accepts any device.
func (p *Policy) VerifyReport(ctx context.Context, report attest.Report) (attest.Identity, error) {
	identity, err := p.Verifier.Verify(report)
	if err != nil {
		return attest.Identity{}, err
	}

	cfg, err := p.Store.TrustConfig(ctx)
	if err != nil {
		return attest.Identity{}, err
	}

	if cfg.RequiresTEE {
		approved, err := p.Store.IsMeasurementApproved(ctx, identity.Measurements)
		if err != nil {
			return attest.Identity{}, err
		}
		if !approved {
			return attest.Identity{}, fmt.Errorf("%w: fingerprint %s",
				attest.ErrMeasurementNotApproved, identity.Measurements.Fingerprint())
		}
	}

	deviceCount, err := p.Store.ApprovedDeviceCount(ctx)
	if err != nil {
		return attest.Identity{}, err
	}
	if deviceCount > 0 {
		approved, err := p.Store.IsDeviceApproved(ctx, identity.PPID)
		if err != nil {
			return attest.Identity{}, err
		}
		if !approved {
			return attest.Identity{}, fmt.Errorf("%w: ppid %s", attest.ErrDeviceNotApproved, identity.PPID)
		}
	}

	return identity, nil
}
