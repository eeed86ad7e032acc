// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/trustplane/trustplane/cmd/trustplane/cli"
)

func statusCommand() *cli.Command {
	var conn connection
	var asJSON bool

	return &cli.Command{
		Name:    "status",
		Summary: "check service liveness",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var status struct {
				UptimeSeconds float64 `cbor:"uptime_seconds" json:"uptime_seconds"`
			}
			if err := session.CallPublic(ctx, "status", nil, &status); err != nil {
				return err
			}
			if asJSON {
				return cli.WriteJSON(status)
			}
			fmt.Printf("up %.0fs\n", status.UptimeSeconds)
			return nil
		},
	}
}

func infoCommand() *cli.Command {
	var conn connection
	var asJSON bool

	return &cli.Command{
		Name:    "info",
		Summary: "show trust configuration and registry counts",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			conn.register(flagSet)
			flagSet.BoolVar(&asJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			session, err := conn.session()
			if err != nil {
				return err
			}
			ctx, cancel := callContext()
			defer cancel()

			var info struct {
				Owner                   string `cbor:"owner" json:"owner"`
				SignerAccount           string `cbor:"signer_account" json:"signer_account"`
				RequiresTEE             bool   `cbor:"requires_tee" json:"requires_tee"`
				AttestationExpirationMS int64  `cbor:"attestation_expiration_ms" json:"attestation_expiration_ms"`
				RegistrationDeposit     uint64 `cbor:"registration_deposit" json:"registration_deposit"`
				Agents                  int64  `cbor:"agents" json:"agents"`
				ApprovedMeasurements    int64  `cbor:"approved_measurements" json:"approved_measurements"`
				ApprovedDevices         int64  `cbor:"approved_devices" json:"approved_devices"`
				Repos                   int64  `cbor:"repos" json:"repos"`
			}
			if err := session.Call(ctx, "info", nil, &info); err != nil {
				return err
			}
			if asJSON {
				return cli.WriteJSON(info)
			}
			fmt.Printf("owner:                 %s\n", info.Owner)
			fmt.Printf("signer:                %s\n", info.SignerAccount)
			fmt.Printf("requires TEE:          %t\n", info.RequiresTEE)
			fmt.Printf("attestation window:    %dms\n", info.AttestationExpirationMS)
			fmt.Printf("registration deposit:  %d\n", info.RegistrationDeposit)
			fmt.Printf("agents:                %d\n", info.Agents)
			fmt.Printf("approved measurements: %d\n", info.ApprovedMeasurements)
			fmt.Printf("approved devices:      %d\n", info.ApprovedDevices)
			fmt.Printf("repos:                 %d\n", info.Repos)
			return nil
		},
	}
}
