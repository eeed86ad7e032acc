// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the trustplane socket transport: a CBOR
// request/response protocol over a Unix socket, one request per
// connection.
//
// Requests carry an "action" field for routing and, for privileged
// actions, a "token" field holding a servicetoken. The response
// envelope is {ok, code, error, data}: code is a stable
// machine-readable failure kind (repo_not_found, not_authorized, ...)
// so callers can branch without parsing message text.
//
// The transport is deliberately boring. All interesting decisions —
// authorization, ledger invariants — live behind the handlers.
package service
