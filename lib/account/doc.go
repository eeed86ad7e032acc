// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package account defines the validated account identifier used for
// every party in the system: registering agents, repository
// maintainers, bounty recipients, and the contract owner.
//
// An account ID is a lowercase dotted name ("maintainer.example",
// "agent-7.pool"). Construction goes through Parse so that an ID held
// anywhere in the system is known-valid; the zero value is invalid and
// detectable with IsZero.
package account
