// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package account

import "fmt"

// Length bounds for an account ID, matching the settlement layer's
// account naming rules.
const (
	minLength = 2
	maxLength = 64
)

// ID is a validated account identifier. The zero value is invalid.
type ID struct {
	name string
}

// Parse validates raw and returns it as an ID. Valid IDs are 2–64
// characters of lowercase letters, digits, and the separators '.',
// '-', '_'; separators may not lead, trail, or repeat.
func Parse(raw string) (ID, error) {
	if len(raw) < minLength || len(raw) > maxLength {
		return ID{}, fmt.Errorf("invalid account %q: length must be %d-%d characters", raw, minLength, maxLength)
	}
	previousSeparator := true // a separator at position 0 is invalid
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			previousSeparator = false
		case c == '.' || c == '-' || c == '_':
			if previousSeparator {
				return ID{}, fmt.Errorf("invalid account %q: separator at position %d must follow a letter or digit", raw, i)
			}
			previousSeparator = true
		default:
			return ID{}, fmt.Errorf("invalid account %q: character %q at position %d not allowed", raw, c, i)
		}
	}
	if previousSeparator {
		return ID{}, fmt.Errorf("invalid account %q: trailing separator", raw)
	}
	return ID{name: raw}, nil
}

// MustParse is Parse that panics on error. For tests and compile-time
// constants only.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the account name.
func (id ID) String() string { return id.name }

// IsZero reports whether id is the invalid zero value.
func (id ID) IsZero() bool { return id.name == "" }

// MarshalText implements encoding.TextMarshaler. IDs serialize as
// plain text strings (CBOR text via lib/codec).
func (id ID) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero account ID")
	}
	return []byte(id.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, validating on
// the way in.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
