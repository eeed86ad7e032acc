// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package event

import "log/slog"

// Kind identifies an audit event.
type Kind string

const (
	KindAgentRegistered    Kind = "agent_registered"
	KindAgentRemoved       Kind = "agent_removed"
	KindRepoRegistered     Kind = "repo_registered"
	KindBountyFunded       Kind = "bounty_funded"
	KindBountyReleased     Kind = "bounty_released"
	KindBountyWithdrawn    Kind = "bounty_withdrawn"
	KindSignatureRequested Kind = "signature_requested"

	KindMeasurementApproved Kind = "measurement_approved"
	KindMeasurementRemoved  Kind = "measurement_removed"
	KindDeviceApproved      Kind = "device_approved"
	KindDeviceRemoved       Kind = "device_removed"
	KindAgentWhitelisted    Kind = "agent_whitelisted"
	KindAgentUnwhitelisted  Kind = "agent_unwhitelisted"
	KindPolicyChanged       Kind = "policy_changed"
)

// Emitter writes audit events. All events share the "event" message
// and carry their kind as the first attribute.
type Emitter struct {
	logger *slog.Logger
}

// NewEmitter creates an emitter writing through logger.
func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{logger: logger}
}

// Emit records one audit event with the given attributes.
func (e *Emitter) Emit(kind Kind, attrs ...any) {
	args := make([]any, 0, len(attrs)+2)
	args = append(args, "kind", string(kind))
	args = append(args, attrs...)
	e.logger.Info("event", args...)
}
