// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Command trustplane is the operator CLI for the escrow service. It
// talks to trustplaned over its Unix socket, minting a fresh service
// token per authenticated call from a local signing key.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/trustplane/trustplane/cmd/trustplane/cli"
	"github.com/trustplane/trustplane/lib/version"
)

// defaultSocket is where trustplaned listens unless overridden.
const defaultSocket = "/run/trustplane/escrow.sock"

// callTimeout bounds one CLI round trip to the service.
const callTimeout = 30 * time.Second

func main() {
	root := &cli.Command{
		Name:    "trustplane",
		Summary: "operate the attestation-gated escrow service",
		Subcommands: []*cli.Command{
			statusCommand(),
			infoCommand(),
			agentCommand(),
			repoCommand(),
			bountyCommand(),
			adminCommand(),
			versionCommand(),
		},
	}

	if err := root.Execute(os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "print version information",
		Run: func(args []string) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}

// connection carries the flags shared by every command that talks to
// the service.
type connection struct {
	socket   string
	identity string
	keyPath  string
}

// register adds the shared connection flags to flagSet.
func (c *connection) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.socket, "socket", defaultSocket, "trustplaned socket path")
	flagSet.StringVar(&c.identity, "identity", "", "caller account for authenticated actions")
	flagSet.StringVar(&c.keyPath, "signing-key", "", "path to hex Ed25519 token signing key")
}

// session opens a Session from the parsed connection flags.
func (c *connection) session() (*cli.Session, error) {
	return cli.NewSession(c.socket, "escrow", c.identity, c.keyPath)
}

// callContext returns the context for one service call.
func callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}
