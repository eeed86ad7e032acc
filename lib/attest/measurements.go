// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/trustplane/trustplane/lib/codec"
)

// digestHexLength is the length of one measurement register digest in
// hex characters (48-byte SHA-384 values, per the TDX measurement
// model).
const digestHexLength = 96

// Measurements is the fixed fingerprint of a TEE software image: the
// build-time measurement (MRTD) plus the four runtime measurement
// registers. Values are lowercase hex digests. Equality of two
// Measurements values means the same software stack.
type Measurements struct {
	MRTD  string `cbor:"mrtd"`
	RTMR0 string `cbor:"rtmr0"`
	RTMR1 string `cbor:"rtmr1"`
	RTMR2 string `cbor:"rtmr2"`
	RTMR3 string `cbor:"rtmr3"`
}

// Validate checks that every register holds a well-formed digest.
func (m Measurements) Validate() error {
	registers := []struct {
		name  string
		value string
	}{
		{"mrtd", m.MRTD},
		{"rtmr0", m.RTMR0},
		{"rtmr1", m.RTMR1},
		{"rtmr2", m.RTMR2},
		{"rtmr3", m.RTMR3},
	}
	for _, register := range registers {
		if len(register.value) != digestHexLength {
			return fmt.Errorf("measurement %s: digest must be %d hex characters, got %d", register.name, digestHexLength, len(register.value))
		}
		for i := 0; i < len(register.value); i++ {
			c := register.value[i]
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				return fmt.Errorf("measurement %s: character %q at position %d is not lowercase hex", register.name, c, i)
			}
		}
	}
	return nil
}

// Fingerprint returns the blake3 digest of the canonical CBOR encoding
// of m, hex-encoded. The fingerprint is the measurement set's stable
// key: it names the set in the approved-measurements store and in
// audit events without reproducing five full digests.
func (m Measurements) Fingerprint() string {
	data, err := codec.Marshal(m)
	if err != nil {
		// Measurements is five strings; deterministic CBOR encoding
		// of it cannot fail.
		panic("attest: encoding measurements: " + err.Error())
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PPIDSize is the fixed byte length of a device identifier.
const PPIDSize = 16

// PPID is the platform provisioning ID: a fixed identifier of the
// physical TEE device the software runs on.
type PPID [PPIDSize]byte

// ParsePPID decodes a 32-character hex string into a PPID.
func ParsePPID(raw string) (PPID, error) {
	var ppid PPID
	if len(raw) != PPIDSize*2 {
		return PPID{}, fmt.Errorf("invalid ppid %q: must be %d hex characters", raw, PPIDSize*2)
	}
	if _, err := hex.Decode(ppid[:], []byte(raw)); err != nil {
		return PPID{}, fmt.Errorf("invalid ppid %q: %w", raw, err)
	}
	return ppid, nil
}

// String returns the lowercase hex encoding.
func (p PPID) String() string { return hex.EncodeToString(p[:]) }

// IsZero reports whether p is all zero bytes. A zero PPID never
// appears in a valid report.
func (p PPID) IsZero() bool { return p == PPID{} }

// MarshalText implements encoding.TextMarshaler (hex string).
func (p PPID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PPID) UnmarshalText(text []byte) error {
	parsed, err := ParsePPID(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Identity is what a verified report proves: which software image is
// running (Measurements) on which physical device (PPID).
type Identity struct {
	Measurements Measurements `cbor:"measurements"`
	PPID         PPID         `cbor:"ppid"`
}
