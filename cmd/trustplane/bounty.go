// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/trustplane/trustplane/cmd/trustplane/cli"
)

func bountyCommand() *cli.Command {
	return &cli.Command{
		Name:    "bounty",
		Summary: "manage repository bounties",
		Subcommands: []*cli.Command{
			bountyGetCommand(),
			bountyFundCommand(),
			bountyReleaseCommand(),
			bountyWithdrawCommand(),
		},
	}
}

func bountyGetCommand() *cli.Command {
	var conn connection
	var asJSON bool

	return &cli.Command{
		Name:    "get",
		Summary: "show a repository's bounty balance",
		Usage:   "trustplane bounty get <repo> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
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

			var response struct {
				Balance uint64 `cbor:"balance" json:"balance"`
			}
			if err := session.CallPublic(ctx, "get-bounty", map[string]any{
				"repo": args[0],
			}, &response); err != nil {
				return err
			}
			if asJSON {
				return cli.WriteJSON(response)
			}
			fmt.Println(response.Balance)
			return nil
		},
	}
}

func bountyFundCommand() *cli.Command {
	var conn connection
	var amount uint64

	return &cli.Command{
		Name:    "fund",
		Summary: "fund a repository's bounty (maintainer only)",
		Usage:   "trustplane bounty fund <repo> --amount <n> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("fund", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.Uint64Var(&amount, "amount", 0, "amount to add (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one repo argument")
			}
			if amount == 0 {
				return fmt.Errorf("--amount is required")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var response struct {
				Balance uint64 `cbor:"balance"`
			}
			if err := session.Call(ctx, "fund-bounty", map[string]any{
				"repo":    args[0],
				"payment": amount,
			}, &response); err != nil {
				return err
			}
			fmt.Printf("%s bounty: %d\n", args[0], response.Balance)
			return nil
		},
	}
}

func bountyReleaseCommand() *cli.Command {
	var conn connection
	var recipient string
	var amount uint64

	return &cli.Command{
		Name:    "release",
		Summary: "release bounty funds to a recipient (valid agents only)",
		Usage:   "trustplane bounty release <repo> --recipient <account> --amount <n> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("release", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.StringVar(&recipient, "recipient", "", "payout recipient account (required)")
			flagSet.Uint64Var(&amount, "amount", 0, "amount to release (required)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "pay 200 from org/widget's bounty",
				Command:     "trustplane bounty release org/widget --recipient alice.dev --amount 200 --identity agent.builder --signing-key key.hex",
			},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one repo argument")
			}
			if recipient == "" {
				return fmt.Errorf("--recipient is required")
			}
			if amount == 0 {
				return fmt.Errorf("--amount is required")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var response struct {
				Balance uint64 `cbor:"balance"`
			}
			if err := session.Call(ctx, "release-bounty", map[string]any{
				"repo":      args[0],
				"recipient": recipient,
				"amount":    amount,
			}, &response); err != nil {
				return err
			}
			fmt.Printf("released %d to %s, %s bounty: %d\n", amount, recipient, args[0], response.Balance)
			return nil
		},
	}
}

func bountyWithdrawCommand() *cli.Command {
	var conn connection
	var amount uint64

	return &cli.Command{
		Name:    "withdraw",
		Summary: "withdraw bounty funds back to the maintainer",
		Usage:   "trustplane bounty withdraw <repo> --amount <n> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("withdraw", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.Uint64Var(&amount, "amount", 0, "amount to withdraw (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one repo argument")
			}
			if amount == 0 {
				return fmt.Errorf("--amount is required")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var response struct {
				Balance uint64 `cbor:"balance"`
			}
			if err := session.Call(ctx, "withdraw-bounty", map[string]any{
				"repo":   args[0],
				"amount": amount,
			}, &response); err != nil {
				return err
			}
			fmt.Printf("withdrew %d, %s bounty: %d\n", amount, args[0], response.Balance)
			return nil
		},
	}
}
