// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/trustplane/trustplane/cmd/trustplane/cli"
)

func repoCommand() *cli.Command {
	return &cli.Command{
		Name:    "repo",
		Summary: "manage the repository registry",
		Subcommands: []*cli.Command{
			repoRegisterCommand(),
			repoShowCommand(),
		},
	}
}

func repoRegisterCommand() *cli.Command {
	var conn connection
	var maintainer string

	return &cli.Command{
		Name:    "register",
		Summary: "register a repository",
		Usage:   "trustplane repo register <repo> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("register", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.StringVar(&maintainer, "maintainer", "", "maintainer account (defaults to the caller)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "register a repo maintained by the caller",
				Command:     "trustplane repo register org/widget --identity alice.dev --signing-key key.hex",
			},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one repo argument")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			fields := map[string]any{"repo": args[0]}
			if maintainer != "" {
				fields["maintainer"] = maintainer
			}
			if err := session.Call(ctx, "register-repo", fields, nil); err != nil {
				return err
			}
			fmt.Printf("registered %s\n", args[0])
			return nil
		},
	}
}

func repoShowCommand() *cli.Command {
	var conn connection
	var asJSON bool

	return &cli.Command{
		Name:    "show",
		Summary: "show a repository's registration and maintainer",
		Usage:   "trustplane repo show <repo> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one repo argument")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var registered struct {
				Registered bool `cbor:"registered" json:"registered"`
			}
			if err := session.CallPublic(ctx, "is-repo-registered", map[string]any{
				"repo": args[0],
			}, &registered); err != nil {
				return err
			}
			if !registered.Registered {
				if asJSON {
					return cli.WriteJSON(registered)
				}
				fmt.Printf("%s: not registered\n", args[0])
				return &cli.ExitError{Code: 1}
			}

			var maintainer struct {
				Maintainer string `cbor:"maintainer" json:"maintainer"`
			}
			if err := session.CallPublic(ctx, "get-repo-maintainer", map[string]any{
				"repo": args[0],
			}, &maintainer); err != nil {
				return err
			}
			var balance struct {
				Balance uint64 `cbor:"balance" json:"balance"`
			}
			if err := session.CallPublic(ctx, "get-bounty", map[string]any{
				"repo": args[0],
			}, &balance); err != nil {
				return err
			}

			if asJSON {
				return cli.WriteJSON(map[string]any{
					"registered": true,
					"maintainer": maintainer.Maintainer,
					"bounty":     balance.Balance,
				})
			}
			fmt.Printf("repo:       %s\n", args[0])
			fmt.Printf("maintainer: %s\n", maintainer.Maintainer)
			fmt.Printf("bounty:     %d\n", balance.Balance)
			return nil
		},
	}
}
