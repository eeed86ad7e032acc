// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/attest"
	"github.com/trustplane/trustplane/lib/codec"
)

// TrustConfig returns the current global trust configuration.
func (s *Store) TrustConfig(ctx context.Context) (TrustConfig, error) {
	var cfg TrustConfig
	found := false
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT requires_tee, attestation_expiration_ms,
			owner, signer_account, registration_deposit FROM trust_config WHERE id = 1`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					found = true
					cfg.RequiresTEE = stmt.ColumnInt64(0) != 0
					cfg.AttestationExpirationMS = stmt.ColumnInt64(1)
					owner, err := account.Parse(stmt.ColumnText(2))
					if err != nil {
						return fmt.Errorf("state: stored owner: %w", err)
					}
					signer, err := account.Parse(stmt.ColumnText(3))
					if err != nil {
						return fmt.Errorf("state: stored signer account: %w", err)
					}
					cfg.Owner = owner
					cfg.SignerAccount = signer
					cfg.RegistrationDeposit = uint64(stmt.ColumnInt64(4))
					return nil
				},
			})
	})
	if err != nil {
		return TrustConfig{}, err
	}
	if !found {
		return TrustConfig{}, fmt.Errorf("state: trust config row missing")
	}
	return cfg, nil
}

// SetRequiresTEE toggles the attestation requirement. Owner only.
func (s *Store) SetRequiresTEE(ctx context.Context, caller account.ID, requiresTEE bool) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn, "UPDATE trust_config SET requires_tee = ? WHERE id = 1",
			&sqlitex.ExecOptions{Args: []any{boolToInt(requiresTEE)}})
	})
}

// SetAttestationExpiration changes the validity window granted to new
// registrations. Existing records keep their valid_until. Owner only.
func (s *Store) SetAttestationExpiration(ctx context.Context, caller account.ID, expirationMS int64) error {
	if expirationMS <= 0 {
		return fmt.Errorf("state: attestation expiration must be positive, got %d", expirationMS)
	}
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn, "UPDATE trust_config SET attestation_expiration_ms = ? WHERE id = 1",
			&sqlitex.ExecOptions{Args: []any{expirationMS}})
	})
}

// ApproveMeasurements adds a measurement set to the approved
// allow-list. Idempotent. Owner only.
func (s *Store) ApproveMeasurements(ctx context.Context, caller account.ID, measurements attest.Measurements) error {
	if err := measurements.Validate(); err != nil {
		return fmt.Errorf("state: approving measurements: %w", err)
	}
	encoded, err := codec.Marshal(measurements)
	if err != nil {
		return fmt.Errorf("state: encoding measurements: %w", err)
	}
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn,
			"INSERT OR IGNORE INTO approved_measurements (fingerprint, measurements) VALUES (?, ?)",
			&sqlitex.ExecOptions{Args: []any{measurements.Fingerprint(), encoded}})
	})
}

// RemoveMeasurements removes an approved measurement set by its
// fingerprint. Removing an absent fingerprint is a no-op. Owner only.
func (s *Store) RemoveMeasurements(ctx context.Context, caller account.ID, fingerprint string) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn, "DELETE FROM approved_measurements WHERE fingerprint = ?",
			&sqlitex.ExecOptions{Args: []any{fingerprint}})
	})
}

// IsMeasurementApproved reports whether the measurement set is on the
// allow-list.
func (s *Store) IsMeasurementApproved(ctx context.Context, measurements attest.Measurements) (bool, error) {
	return s.existsRead(ctx, "SELECT 1 FROM approved_measurements WHERE fingerprint = ?", measurements.Fingerprint())
}

// ApproveDevice adds a device identifier to the approved-device
// allow-list. Idempotent. Owner only.
func (s *Store) ApproveDevice(ctx context.Context, caller account.ID, ppid attest.PPID) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn, "INSERT OR IGNORE INTO approved_devices (ppid) VALUES (?)",
			&sqlitex.ExecOptions{Args: []any{ppid.String()}})
	})
}

// RemoveDevice removes a device identifier from the allow-list. Owner
// only.
func (s *Store) RemoveDevice(ctx context.Context, caller account.ID, ppid attest.PPID) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn, "DELETE FROM approved_devices WHERE ppid = ?",
			&sqlitex.ExecOptions{Args: []any{ppid.String()}})
	})
}

// IsDeviceApproved reports whether the device is on the allow-list.
func (s *Store) IsDeviceApproved(ctx context.Context, ppid attest.PPID) (bool, error) {
	return s.existsRead(ctx, "SELECT 1 FROM approved_devices WHERE ppid = ?", ppid.String())
}

// ApprovedDeviceCount returns the number of approved devices. The gate
// uses this for the empty-list-accepts-any-device policy.
func (s *Store) ApprovedDeviceCount(ctx context.Context) (int64, error) {
	return s.countRead(ctx, "SELECT COUNT(*) FROM approved_devices")
}

// ApprovedMeasurementCount returns the number of approved measurement
// sets.
func (s *Store) ApprovedMeasurementCount(ctx context.Context) (int64, error) {
	return s.countRead(ctx, "SELECT COUNT(*) FROM approved_measurements")
}

// WhitelistAccount adds an account to the local whitelist, exempting
// it from attestation entirely. Owner only.
func (s *Store) WhitelistAccount(ctx context.Context, caller, target account.ID) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn, "INSERT OR IGNORE INTO local_whitelist (account) VALUES (?)",
			&sqlitex.ExecOptions{Args: []any{target.String()}})
	})
}

// UnwhitelistAccount removes an account from the local whitelist.
// Owner only.
func (s *Store) UnwhitelistAccount(ctx context.Context, caller, target account.ID) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn, "DELETE FROM local_whitelist WHERE account = ?",
			&sqlitex.ExecOptions{Args: []any{target.String()}})
	})
}

// IsWhitelisted reports whether the account bypasses attestation.
func (s *Store) IsWhitelisted(ctx context.Context, target account.ID) (bool, error) {
	return s.existsRead(ctx, "SELECT 1 FROM local_whitelist WHERE account = ?", target.String())
}

// existsRead runs a single-argument existence query.
func (s *Store) existsRead(ctx context.Context, query string, arg any) (bool, error) {
	exists := false
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{arg},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = true
				return nil
			},
		})
	})
	return exists, err
}

// countRead runs an argument-free COUNT query.
func (s *Store) countRead(ctx context.Context, query string) (int64, error) {
	var count int64
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	return count, err
}
