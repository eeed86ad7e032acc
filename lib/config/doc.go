// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the trustplaned YAML configuration file.
package config
