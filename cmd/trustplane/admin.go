// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/trustplane/trustplane/cmd/trustplane/cli"
	"github.com/trustplane/trustplane/lib/attest"
	"gopkg.in/yaml.v3"
)

func adminCommand() *cli.Command {
	return &cli.Command{
		Name:    "admin",
		Summary: "owner administration of the trust store",
		Subcommands: []*cli.Command{
			adminMeasurementsCommand(),
			adminDeviceCommand(),
			adminWhitelistCommand(),
			adminPolicyCommand(),
		},
	}
}

func adminMeasurementsCommand() *cli.Command {
	return &cli.Command{
		Name:    "measurements",
		Summary: "manage the approved-measurements allow-list",
		Subcommands: []*cli.Command{
			measurementsApproveCommand(),
			measurementsRemoveCommand(),
		},
	}
}

func measurementsApproveCommand() *cli.Command {
	var conn connection
	var filePath string

	return &cli.Command{
		Name:    "approve",
		Summary: "approve a measurement set from a YAML file",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("approve", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.StringVar(&filePath, "file", "", "YAML file with mrtd and rtmr0-rtmr3 digests (required)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "approve the measurements of a new enclave image",
				Command:     "trustplane admin measurements approve --file image-v4.yaml --identity escrow.owner --signing-key owner.hex",
			},
		},
		Run: func(args []string) error {
			if filePath == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("reading measurements: %w", err)
			}
			var measurements struct {
				MRTD  string `yaml:"mrtd"`
				RTMR0 string `yaml:"rtmr0"`
				RTMR1 string `yaml:"rtmr1"`
				RTMR2 string `yaml:"rtmr2"`
				RTMR3 string `yaml:"rtmr3"`
			}
			if err := yaml.Unmarshal(data, &measurements); err != nil {
				return fmt.Errorf("parsing %s: %w", filePath, err)
			}
			set := attest.Measurements{
				MRTD:  measurements.MRTD,
				RTMR0: measurements.RTMR0,
				RTMR1: measurements.RTMR1,
				RTMR2: measurements.RTMR2,
				RTMR3: measurements.RTMR3,
			}
			if err := set.Validate(); err != nil {
				return err
			}

			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var response struct {
				Fingerprint string `cbor:"fingerprint"`
			}
			if err := session.Call(ctx, "approve-measurements", map[string]any{
				"measurements": set,
			}, &response); err != nil {
				return err
			}
			fmt.Printf("approved %s\n", response.Fingerprint)
			return nil
		},
	}
}

func measurementsRemoveCommand() *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    "remove",
		Summary: "remove an approved measurement set by fingerprint",
		Usage:   "trustplane admin measurements remove <fingerprint> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("remove", pflag.ContinueOnError)
			conn.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one fingerprint argument")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			if err := session.Call(ctx, "remove-measurements", map[string]any{
				"fingerprint": args[0],
			}, nil); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}

func adminDeviceCommand() *cli.Command {
	return &cli.Command{
		Name:    "device",
		Summary: "manage the approved-device allow-list",
		Subcommands: []*cli.Command{
			deviceActionCommand("approve", "approve-device", "approve a device by its PPID"),
			deviceActionCommand("remove", "remove-device", "remove a device from the allow-list"),
		},
	}
}

func deviceActionCommand(name, action, summary string) *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   fmt.Sprintf("trustplane admin device %s <ppid> [flags]", name),
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			conn.register(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one ppid argument")
			}
			if _, err := attest.ParsePPID(args[0]); err != nil {
				return err
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			if err := session.Call(ctx, action, map[string]any{
				"ppid": args[0],
			}, nil); err != nil {
				return err
			}
			fmt.Printf("%sd %s\n", name, args[0])
			return nil
		},
	}
}

func adminWhitelistCommand() *cli.Command {
	return &cli.Command{
		Name:    "whitelist",
		Summary: "manage the local agent whitelist",
		Subcommands: []*cli.Command{
			whitelistActionCommand("add", "whitelist-account", "whitelist an account past the gate"),
			whitelistActionCommand("remove", "unwhitelist-account", "remove an account from the whitelist"),
		},
	}
}

func whitelistActionCommand(name, action, summary string) *cli.Command {
	var conn connection

	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   fmt.Sprintf("trustplane admin whitelist %s <account> [flags]", name),
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
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

			if err := session.Call(ctx, action, map[string]any{
				"account": args[0],
			}, nil); err != nil {
				return err
			}
			fmt.Printf("%s: done\n", args[0])
			return nil
		},
	}
}

func adminPolicyCommand() *cli.Command {
	return &cli.Command{
		Name:    "policy",
		Summary: "change gate policy settings",
		Subcommands: []*cli.Command{
			policyRequiresTEECommand(),
			policyExpirationCommand(),
		},
	}
}

func policyRequiresTEECommand() *cli.Command {
	var conn connection
	var enabled bool

	return &cli.Command{
		Name:    "requires-tee",
		Summary: "enable or disable the attestation requirement",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("requires-tee", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.BoolVar(&enabled, "enabled", true, "whether attestation is required")
			return flagSet
		},
		Run: func(args []string) error {
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			if err := session.Call(ctx, "set-requires-tee", map[string]any{
				"requires_tee": enabled,
			}, nil); err != nil {
				return err
			}
			fmt.Printf("requires TEE: %t\n", enabled)
			return nil
		},
	}
}

func policyExpirationCommand() *cli.Command {
	var conn connection
	var expirationMS int64

	return &cli.Command{
		Name:    "attestation-expiration",
		Summary: "set the registration validity window",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("attestation-expiration", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.Int64Var(&expirationMS, "ms", 0, "validity window in milliseconds (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if expirationMS <= 0 {
				return fmt.Errorf("--ms must be positive")
			}
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			if err := session.Call(ctx, "set-attestation-expiration", map[string]any{
				"expiration_ms": expirationMS,
			}, nil); err != nil {
				return err
			}
			fmt.Printf("attestation window: %dms\n", expirationMS)
			return nil
		},
	}
}
