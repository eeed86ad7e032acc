// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"fmt"
	"math"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/trustplane/trustplane/lib/account"
)

// maxBalance is the largest representable bounty balance. Balances are
// stored in a SQLite INTEGER column, so the ledger's ceiling is 2^63-1
// value units; funding past it fails hard with ErrBalanceOverflow
// rather than wrapping.
const maxBalance = math.MaxInt64

// RegisterRepo binds a repository to its maintainer. The binding is
// immutable: a second registration for the same repo_id fails with
// ErrRepoAlreadyRegistered and leaves the first binding untouched.
func (s *Store) RegisterRepo(ctx context.Context, repoID string, maintainer account.ID) error {
	if repoID == "" {
		return fmt.Errorf("state: repo id is required")
	}
	if maintainer.IsZero() {
		return fmt.Errorf("state: maintainer is required")
	}
	return s.write(ctx, func(conn *sqlite.Conn) error {
		exists, err := repoExists(conn, repoID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrRepoAlreadyRegistered, repoID)
		}
		return sqlitex.Execute(conn, "INSERT INTO repos (repo_id, maintainer) VALUES (?, ?)",
			&sqlitex.ExecOptions{Args: []any{repoID, maintainer.String()}})
	})
}

// IsRepoRegistered reports whether the repository has a maintainer
// binding.
func (s *Store) IsRepoRegistered(ctx context.Context, repoID string) (bool, error) {
	return s.existsRead(ctx, "SELECT 1 FROM repos WHERE repo_id = ?", repoID)
}

// RepoMaintainer returns the repository's maintainer, or
// ErrRepoNotFound.
func (s *Store) RepoMaintainer(ctx context.Context, repoID string) (account.ID, error) {
	var maintainer account.ID
	found := false
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT maintainer FROM repos WHERE repo_id = ?",
			&sqlitex.ExecOptions{
				Args: []any{repoID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					found = true
					parsed, err := account.Parse(stmt.ColumnText(0))
					if err != nil {
						return fmt.Errorf("state: stored maintainer: %w", err)
					}
					maintainer = parsed
					return nil
				},
			})
	})
	if err != nil {
		return account.ID{}, err
	}
	if !found {
		return account.ID{}, fmt.Errorf("%w: %s", ErrRepoNotFound, repoID)
	}
	return maintainer, nil
}

// FundBounty credits the repository's bounty balance. The repository
// must be registered. Overflow past the representable ceiling is a
// hard failure with no balance change.
func (s *Store) FundBounty(ctx context.Context, repoID string, amount uint64) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		exists, err := repoExists(conn, repoID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrRepoNotFound, repoID)
		}

		balance, err := bountyBalance(conn, repoID)
		if err != nil {
			return err
		}
		if amount > maxBalance-balance {
			return fmt.Errorf("%w: balance %d + amount %d", ErrBalanceOverflow, balance, amount)
		}

		return sqlitex.Execute(conn, `INSERT INTO bounties (repo_id, balance) VALUES (?, ?)
			ON CONFLICT (repo_id) DO UPDATE SET balance = excluded.balance`,
			&sqlitex.ExecOptions{Args: []any{repoID, int64(balance + amount)}})
	})
}

// DebitBounty debits the repository's bounty balance. Fails with
// ErrRepoNotFound for unregistered repositories and with
// ErrInsufficientFunds when amount exceeds the balance; amount equal
// to the balance drives it to exactly zero.
//
// The debit commits before any external transfer is issued — callers
// schedule the transfer only after this returns nil.
func (s *Store) DebitBounty(ctx context.Context, repoID string, amount uint64) error {
	return s.write(ctx, func(conn *sqlite.Conn) error {
		exists, err := repoExists(conn, repoID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrRepoNotFound, repoID)
		}

		balance, err := bountyBalance(conn, repoID)
		if err != nil {
			return err
		}
		if amount > balance {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, balance, amount)
		}

		return sqlitex.Execute(conn, "UPDATE bounties SET balance = ? WHERE repo_id = ?",
			&sqlitex.ExecOptions{Args: []any{int64(balance - amount), repoID}})
	})
}

// Bounty returns the repository's bounty balance. A repository that
// was never funded (registered or not) reads as zero.
func (s *Store) Bounty(ctx context.Context, repoID string) (uint64, error) {
	var balance uint64
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		var innerErr error
		balance, innerErr = bountyBalance(conn, repoID)
		return innerErr
	})
	return balance, err
}

// RepoCount returns the number of registered repositories.
func (s *Store) RepoCount(ctx context.Context) (int64, error) {
	return s.countRead(ctx, "SELECT COUNT(*) FROM repos")
}

func repoExists(conn *sqlite.Conn, repoID string) (bool, error) {
	exists := false
	err := sqlitex.Execute(conn, "SELECT 1 FROM repos WHERE repo_id = ?", &sqlitex.ExecOptions{
		Args: []any{repoID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	return exists, err
}

func bountyBalance(conn *sqlite.Conn, repoID string) (uint64, error) {
	var balance uint64
	err := sqlitex.Execute(conn, "SELECT balance FROM bounties WHERE repo_id = ?", &sqlitex.ExecOptions{
		Args: []any{repoID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			balance = uint64(stmt.ColumnInt64(0))
			return nil
		},
	})
	return balance, err
}
