// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trustplane/trustplane/lib/account"
)

// Config is the parsed trustplaned configuration.
type Config struct {
	// SocketPath is the Unix socket the service listens on.
	SocketPath string `yaml:"socket_path"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `yaml:"database_path"`

	// SettlementSocket is the Unix socket of the settlement service
	// that executes transfers and signature requests.
	SettlementSocket string `yaml:"settlement_socket"`

	// TokenVerifyKey is the hex Ed25519 public key that caller
	// tokens are verified against.
	TokenVerifyKey string `yaml:"token_verify_key"`

	// AttestationRootKeys are hex Ed25519 public keys trusted to
	// endorse attestation keys. At least one is required when
	// trust.requires_tee is set.
	AttestationRootKeys []string `yaml:"attestation_root_keys"`

	Trust TrustConfig `yaml:"trust"`
}

// TrustConfig seeds the trust configuration on first start. Owner and
// SignerAccount are immutable after the database is created.
type TrustConfig struct {
	RequiresTEE             bool   `yaml:"requires_tee"`
	AttestationExpirationMS int64  `yaml:"attestation_expiration_ms"`
	Owner                   string `yaml:"owner"`
	SignerAccount           string `yaml:"signer_account"`
	RegistrationDeposit     uint64 `yaml:"registration_deposit"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that all required fields are present and
// well-formed.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.TokenVerifyKey == "" {
		return fmt.Errorf("token_verify_key is required")
	}
	if _, err := c.VerifyKey(); err != nil {
		return err
	}
	if _, err := c.RootKeys(); err != nil {
		return err
	}
	if c.Trust.RequiresTEE && len(c.AttestationRootKeys) == 0 {
		return fmt.Errorf("attestation_root_keys is required when trust.requires_tee is set")
	}
	if _, err := account.Parse(c.Trust.Owner); err != nil {
		return fmt.Errorf("trust.owner: %w", err)
	}
	if _, err := account.Parse(c.Trust.SignerAccount); err != nil {
		return fmt.Errorf("trust.signer_account: %w", err)
	}
	if c.Trust.AttestationExpirationMS <= 0 {
		return fmt.Errorf("trust.attestation_expiration_ms must be positive")
	}
	return nil
}

// VerifyKey decodes the token verification key.
func (c *Config) VerifyKey() (ed25519.PublicKey, error) {
	return decodeKey("token_verify_key", c.TokenVerifyKey)
}

// RootKeys decodes the attestation root keys.
func (c *Config) RootKeys() ([]ed25519.PublicKey, error) {
	keys := make([]ed25519.PublicKey, 0, len(c.AttestationRootKeys))
	for i, encoded := range c.AttestationRootKeys {
		key, err := decodeKey(fmt.Sprintf("attestation_root_keys[%d]", i), encoded)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func decodeKey(field, encoded string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid hex: %w", field, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%s: got %d bytes, want %d", field, len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}
