// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/sqlitepool"
)

// Failure kinds surfaced by store operations. Callers branch with
// errors.Is; the service maps each to a stable wire code.
var (
	ErrNotOwner             = errors.New("caller is not the owner")
	ErrNotMaintainer        = errors.New("caller is not the repository maintainer")
	ErrRepoNotFound         = errors.New("repository not registered")
	ErrRepoAlreadyRegistered = errors.New("repository already registered")
	ErrInsufficientFunds    = errors.New("insufficient bounty funds")
	ErrBalanceOverflow      = errors.New("bounty balance overflow")
)

// TrustConfig is the global trust configuration. The immutable fields
// (Owner, SignerAccount) are set once when the database is first
// created; RequiresTEE and AttestationExpirationMS are owner-mutable.
type TrustConfig struct {
	// RequiresTEE gates attestation: when false, any caller passes
	// the authorization gate without a registered agent record.
	RequiresTEE bool

	// AttestationExpirationMS is the validity window granted by a
	// successful registration, in milliseconds.
	AttestationExpirationMS int64

	// Owner is the single identity allowed to administer the
	// allow-lists and flags.
	Owner account.ID

	// SignerAccount identifies the external signing service that
	// fulfills signature requests.
	SignerAccount account.ID

	// RegistrationDeposit is the minimum payment that must accompany
	// a registration, sized to the stored record's footprint.
	RegistrationDeposit uint64
}

// Seed holds the initial trust configuration applied when the database
// is created. An existing database ignores the seed entirely.
type Seed struct {
	RequiresTEE             bool
	AttestationExpirationMS int64
	Owner                   account.ID
	SignerAccount           account.ID
	RegistrationDeposit     uint64
}

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the SQLite database file, or ":memory:" for tests.
	Path string

	// PoolSize is the connection pool size. For ":memory:" it is
	// forced to 1.
	PoolSize int

	// Seed is the initial trust configuration. Required when the
	// database does not exist yet.
	Seed Seed

	// Logger receives operational messages. Nil means discard.
	Logger *slog.Logger
}

// Store is the SQLite-backed contract state.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS trust_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	requires_tee INTEGER NOT NULL,
	attestation_expiration_ms INTEGER NOT NULL,
	owner TEXT NOT NULL,
	signer_account TEXT NOT NULL,
	registration_deposit INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS approved_measurements (
	fingerprint TEXT PRIMARY KEY,
	measurements BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS approved_devices (
	ppid TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS local_whitelist (
	account TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS agents (
	account TEXT PRIMARY KEY,
	measurements BLOB NOT NULL,
	ppid TEXT NOT NULL,
	registered_at INTEGER NOT NULL,
	valid_until INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS repos (
	repo_id TEXT PRIMARY KEY,
	maintainer TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bounties (
	repo_id TEXT PRIMARY KEY,
	balance INTEGER NOT NULL CHECK (balance >= 0)
);
`

// Open opens (creating and seeding if necessary) the contract state
// database. The caller must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Seed.Owner.IsZero() {
		return nil, fmt.Errorf("state: seed owner is required")
	}
	if cfg.Seed.SignerAccount.IsZero() {
		return nil, fmt.Errorf("state: seed signer account is required")
	}
	if cfg.Seed.AttestationExpirationMS <= 0 {
		return nil, fmt.Errorf("state: seed attestation expiration must be positive, got %d", cfg.Seed.AttestationExpirationMS)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if cfg.Path == ":memory:" {
		poolSize = 1
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
				return fmt.Errorf("state: creating schema: %w", err)
			}
			// Seed only when the config row is absent: the trust
			// configuration of an existing database is authoritative.
			return sqlitex.Execute(conn, `INSERT OR IGNORE INTO trust_config
				(id, requires_tee, attestation_expiration_ms, owner, signer_account, registration_deposit)
				VALUES (1, ?, ?, ?, ?, ?)`,
				&sqlitex.ExecOptions{Args: []any{
					boolToInt(cfg.Seed.RequiresTEE),
					cfg.Seed.AttestationExpirationMS,
					cfg.Seed.Owner.String(),
					cfg.Seed.SignerAccount.String(),
					int64(cfg.Seed.RegistrationDeposit),
				}})
		},
	})
	if err != nil {
		return nil, err
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// read borrows a connection for one or more read statements. Reads do
// not open transactions; each statement sees a consistent snapshot.
func (s *Store) read(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

// write runs fn inside an IMMEDIATE transaction. If fn returns an
// error the transaction rolls back — the all-or-nothing guarantee for
// every mutating operation.
func (s *Store) write(ctx context.Context, fn func(conn *sqlite.Conn) error) (err error) {
	conn, takeErr := s.pool.Take(ctx)
	if takeErr != nil {
		return takeErr
	}
	defer s.pool.Put(conn)

	endTransaction, beginErr := sqlitex.ImmediateTransaction(conn)
	if beginErr != nil {
		return fmt.Errorf("state: begin transaction: %w", beginErr)
	}
	defer endTransaction(&err)

	err = fn(conn)
	return err
}

// configOwner reads the owner from the trust config on an existing
// connection (used inside owner-gated write transactions).
func configOwner(conn *sqlite.Conn) (account.ID, error) {
	var raw string
	err := sqlitex.Execute(conn, "SELECT owner FROM trust_config WHERE id = 1", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			raw = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		return account.ID{}, fmt.Errorf("state: reading owner: %w", err)
	}
	if raw == "" {
		return account.ID{}, fmt.Errorf("state: trust config row missing")
	}
	return account.Parse(raw)
}

// requireOwner fails with ErrNotOwner unless caller is the configured
// owner.
func requireOwner(conn *sqlite.Conn, caller account.ID) error {
	owner, err := configOwner(conn)
	if err != nil {
		return err
	}
	if caller != owner {
		return fmt.Errorf("%w: caller %s, owner %s", ErrNotOwner, caller, owner)
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
