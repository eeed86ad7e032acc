// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/trustplane/trustplane/cmd/trustplane/cli"
	"github.com/trustplane/trustplane/lib/attest"
	"github.com/trustplane/trustplane/lib/codec"
)

func agentCommand() *cli.Command {
	return &cli.Command{
		Name:    "agent",
		Summary: "inspect and register agents",
		Subcommands: []*cli.Command{
			agentShowCommand(),
			agentRegisterCommand(),
			agentRemoveCommand(),
		},
	}
}

func agentShowCommand() *cli.Command {
	var conn connection
	var asJSON bool

	return &cli.Command{
		Name:    "show",
		Summary: "show an agent's registry record",
		Usage:   "trustplane agent show <account> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one account argument")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var response struct {
				Agent *struct {
					Account      string `cbor:"account" json:"account"`
					PPID         string `cbor:"ppid" json:"ppid"`
					RegisteredAt int64  `cbor:"registered_at" json:"registered_at"`
					ValidUntil   int64  `cbor:"valid_until" json:"valid_until"`
				} `cbor:"agent" json:"agent"`
				Valid bool `cbor:"valid" json:"valid"`
			}
			if err := session.Call(ctx, "get-agent", map[string]any{
				"account": args[0],
			}, &response); err != nil {
				return err
			}
			if asJSON {
				return cli.WriteJSON(response)
			}
			if response.Agent == nil {
				fmt.Printf("%s: not registered\n", args[0])
				return &cli.ExitError{Code: 1}
			}
			fmt.Printf("account:       %s\n", response.Agent.Account)
			fmt.Printf("device:        %s\n", response.Agent.PPID)
			fmt.Printf("registered at: %s\n", time.UnixMilli(response.Agent.RegisteredAt).UTC().Format(time.RFC3339))
			fmt.Printf("valid until:   %s\n", time.UnixMilli(response.Agent.ValidUntil).UTC().Format(time.RFC3339))
			fmt.Printf("valid:         %t\n", response.Valid)
			if !response.Valid {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func agentRegisterCommand() *cli.Command {
	var conn connection
	var reportPath string
	var payment uint64

	return &cli.Command{
		Name:    "register",
		Summary: "register the caller with an attestation report",
		Description: "Register the calling identity as a trusted agent. The report\n" +
			"file holds the CBOR attestation report produced inside the\n" +
			"enclave; the payment must cover the registration deposit.",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("register", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.StringVar(&reportPath, "report", "", "path to CBOR attestation report (required)")
			flagSet.Uint64Var(&payment, "payment", 0, "attached payment (required)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "register with a freshly minted report",
				Command:     "trustplane agent register --identity agent.builder --signing-key key.hex --report report.cbor --payment 500",
			},
		},
		Run: func(args []string) error {
			if reportPath == "" {
				return fmt.Errorf("--report is required")
			}
			data, err := os.ReadFile(reportPath)
			if err != nil {
				return fmt.Errorf("reading report: %w", err)
			}
			var report attest.Report
			if err := codec.Unmarshal(data, &report); err != nil {
				return fmt.Errorf("decoding report %s: %w", reportPath, err)
			}

			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var response struct {
				Account      string `cbor:"account"`
				RegisteredAt int64  `cbor:"registered_at"`
				ValidUntil   int64  `cbor:"valid_until"`
			}
			if err := session.Call(ctx, "register-agent", map[string]any{
				"report":  report,
				"payment": payment,
			}, &response); err != nil {
				return err
			}
			fmt.Printf("registered %s, valid until %s\n",
				response.Account,
				time.UnixMilli(response.ValidUntil).UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func agentRemoveCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "remove",
		Summary: "remove an agent's registry record (owner only)",
		Usage:   "trustplane agent remove <account> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("remove", pflag.ContinueOnError)
			conn.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one account argument")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			if err := session.Call(ctx, "remove-agent", map[string]any{
				"account": args[0],
			}, nil); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}
