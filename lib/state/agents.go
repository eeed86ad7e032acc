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

// Agent is a registered agent record: the identity a successful
// attestation proved, bounded by a validity window. One record per
// account; registration fully replaces any prior record.
type Agent struct {
	Account      account.ID          `cbor:"account"`
	Measurements attest.Measurements `cbor:"measurements"`
	PPID         attest.PPID         `cbor:"ppid"`

	// RegisteredAt and ValidUntil are Unix milliseconds.
	RegisteredAt int64 `cbor:"registered_at"`
	ValidUntil   int64 `cbor:"valid_until"`
}

// PutAgent stores the record, unconditionally overwriting any existing
// record for the same account. Re-registration before expiry is the
// supported renewal path, so there is no uniqueness failure here.
func (s *Store) PutAgent(ctx context.Context, agent Agent) error {
	if agent.Account.IsZero() {
		return fmt.Errorf("state: agent account is required")
	}
	encoded, err := codec.Marshal(agent.Measurements)
	if err != nil {
		return fmt.Errorf("state: encoding agent measurements: %w", err)
	}
	return s.write(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `INSERT OR REPLACE INTO agents
			(account, measurements, ppid, registered_at, valid_until)
			VALUES (?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				agent.Account.String(),
				encoded,
				agent.PPID.String(),
				agent.RegisteredAt,
				agent.ValidUntil,
			}})
	})
}

// Agent returns the record for the given account, if one exists.
// Expired records are returned as stored — expiry is the gate's
// decision, not the registry's.
func (s *Store) Agent(ctx context.Context, acct account.ID) (Agent, bool, error) {
	var agent Agent
	found := false
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			"SELECT measurements, ppid, registered_at, valid_until FROM agents WHERE account = ?",
			&sqlitex.ExecOptions{
				Args: []any{acct.String()},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					found = true
					encoded := make([]byte, stmt.ColumnLen(0))
					stmt.ColumnBytes(0, encoded)
					if err := codec.Unmarshal(encoded, &agent.Measurements); err != nil {
						return fmt.Errorf("state: decoding agent measurements: %w", err)
					}
					ppid, err := attest.ParsePPID(stmt.ColumnText(1))
					if err != nil {
						return fmt.Errorf("state: stored agent ppid: %w", err)
					}
					agent.PPID = ppid
					agent.RegisteredAt = stmt.ColumnInt64(2)
					agent.ValidUntil = stmt.ColumnInt64(3)
					return nil
				},
			})
	})
	if err != nil || !found {
		return Agent{}, false, err
	}
	agent.Account = acct
	return agent, true, nil
}

// RemoveAgent deletes an agent record. This is the explicit
// administrative removal path; removing an absent account is a no-op.
// Owner only.
func (s *Store) RemoveAgent(ctx context.Context, caller, target account.ID) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		if err := requireOwner(conn, caller); err != nil {
			return err
		}
		return sqlitex.Execute(conn, "DELETE FROM agents WHERE account = ?",
			&sqlitex.ExecOptions{Args: []any{target.String()}})
	})
}

// AgentCount returns the number of stored agent records, expired ones
// included.
func (s *Store) AgentCount(ctx context.Context) (int64, error) {
	return s.countRead(ctx, "SELECT COUNT(*) FROM agents")
}
