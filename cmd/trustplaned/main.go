// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/trustplane/trustplane/lib/account"
	"github.com/trustplane/trustplane/lib/attest"
	"github.com/trustplane/trustplane/lib/clock"
	"github.com/trustplane/trustplane/lib/config"
	"github.com/trustplane/trustplane/lib/event"
	"github.com/trustplane/trustplane/lib/gate"
	"github.com/trustplane/trustplane/lib/service"
	"github.com/trustplane/trustplane/lib/settle"
	"github.com/trustplane/trustplane/lib/state"
	"github.com/trustplane/trustplane/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to trustplaned.yaml (required)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("trustplaned %s\n", version.Info())
		return nil
	}
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := state.Open(state.Config{
		Path: cfg.DatabasePath,
		Seed: state.Seed{
			RequiresTEE:             cfg.Trust.RequiresTEE,
			AttestationExpirationMS: cfg.Trust.AttestationExpirationMS,
			Owner:                   account.MustParse(cfg.Trust.Owner),
			SignerAccount:           account.MustParse(cfg.Trust.SignerAccount),
			RegistrationDeposit:     cfg.Trust.RegistrationDeposit,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("opening state: %w", err)
	}
	defer store.Close()

	rootKeys, err := cfg.RootKeys()
	if err != nil {
		return err
	}
	verifier, err := attest.NewQuoteVerifier(rootKeys...)
	if err != nil {
		return fmt.Errorf("building verifier: %w", err)
	}

	verifyKey, err := cfg.VerifyKey()
	if err != nil {
		return err
	}

	clk := clock.Real()
	backend := settle.NewSocketBackend(cfg.SettlementSocket)
	escrow := &EscrowService{
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
		transfers: settle.NewOutbox(ctx, "transfers", logger, backend.Transfer),
		signatures: settle.NewOutbox(ctx, "signatures", logger,
			func(ctx context.Context, request settle.SignatureRequest) error {
				return backend.Sign(ctx, request)
			}),
	}

	server := service.NewSocketServer(service.SocketServerConfig{
		SocketPath: cfg.SocketPath,
		Audience:   tokenAudience,
		VerifyKey:  verifyKey,
		Logger:     logger,
	})
	escrow.registerActions(server)

	logger.Info("trustplaned starting",
		"socket", cfg.SocketPath,
		"database", cfg.DatabasePath,
		"requires_tee", cfg.Trust.RequiresTEE,
	)

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("socket server: %w", err)
	}

	// The outbox workers share ctx with the server; wait for their
	// drain before closing the store.
	<-escrow.transfers.Done()
	<-escrow.signatures.Done()

	logger.Info("trustplaned stopped")
	return nil
}
