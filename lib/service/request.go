// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "github.com/trustplane/trustplane/lib/codec"

// DecodeRequest decodes the raw CBOR request into the handler's typed
// request struct. Decoding failures surface as "bad_request" so
// malformed field types are distinguishable from internal errors.
func DecodeRequest(raw []byte, request any) error {
	if err := codec.Unmarshal(raw, request); err != nil {
		return Errorf("bad_request", "invalid request: %v", err)
	}
	return nil
}
