// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package config captures orbitd's runtime configuration, sourced from
// environment variables (with optional .env support) so it can be injected
// locally or via platform secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is orbitd's process-wide configuration.
type Config struct {
	// ListenAddr is the TCP address the VNP server listens on.
	ListenAddr string

	// DataDir is the root directory under which repositories live, one
	// subdirectory per repository name.
	DataDir string

	// AdminListenAddr is the address the admin HTTP API listens on.
	AdminListenAddr string

	// AdminDBPath is the sqlite database backing the admin user/token store.
	AdminDBPath string

	// TLSCertFile and TLSKeyFile enable TLS on the VNP listener when both
	// are set; otherwise the server speaks plain TCP.
	TLSCertFile string
	TLSKeyFile  string

	// SessionTimeout is the session idle timeout read from
	// ORBITD_SESSION_TIMEOUT_SECONDS (default five minutes). orbitd does not
	// read this field: sync sessions carry no idle deadline.
	SessionTimeout time.Duration
}

const (
	defaultListenAddr      = ":8080"
	defaultAdminListenAddr = ":8081"
	defaultDataDir         = "./data/repositories"
	defaultAdminDBPath     = "./data/admin.db"
	defaultSessionTimeout  = 5 * time.Minute
)

// Load reads configuration from the environment, best-effort-loading a
// .env file from common locations first so `go run ./cmd/orbitd` works the
// same from the repo root or from cmd/orbitd.
func Load() (Config, error) {
	_ = godotenv.Load(".env", "../.env", "../../.env")

	cfg := Config{
		ListenAddr:      firstNonEmpty(os.Getenv("ORBITD_LISTEN_ADDR"), defaultListenAddr),
		DataDir:         firstNonEmpty(os.Getenv("ORBITD_DATA_DIR"), defaultDataDir),
		AdminListenAddr: firstNonEmpty(os.Getenv("ORBITD_ADMIN_LISTEN_ADDR"), defaultAdminListenAddr),
		AdminDBPath:     firstNonEmpty(os.Getenv("ORBITD_ADMIN_DB_PATH"), defaultAdminDBPath),
		TLSCertFile:     strings.TrimSpace(os.Getenv("ORBITD_TLS_CERT_FILE")),
		TLSKeyFile:      strings.TrimSpace(os.Getenv("ORBITD_TLS_KEY_FILE")),
		SessionTimeout:  defaultSessionTimeout,
	}

	if raw := strings.TrimSpace(os.Getenv("ORBITD_SESSION_TIMEOUT_SECONDS")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("invalid ORBITD_SESSION_TIMEOUT_SECONDS: %q", raw)
		}
		cfg.SessionTimeout = time.Duration(secs) * time.Second
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if abs, err := filepath.Abs(cfg.AdminDBPath); err == nil {
		cfg.AdminDBPath = abs
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if c.ListenAddr == "" {
		missing = append(missing, "ORBITD_LISTEN_ADDR")
	}
	if c.DataDir == "" {
		missing = append(missing, "ORBITD_DATA_DIR")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("ORBITD_TLS_CERT_FILE and ORBITD_TLS_KEY_FILE must both be set or both be empty")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
