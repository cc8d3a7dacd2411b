// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-git/go-billy/v5"

	"github.com/passadis/orbit/orbiterr"
)

// repoConfigPath is the repository-relative path of .orb/config.
const repoConfigPath = "config"

// CurrentVersion is the repository format version written by this
// implementation.
const CurrentVersion = 0.1

// HashAlgorithmLabel is the name recorded in .orb/config for the digest
// algorithm. Existing repositories carry "sha3-256" even though the
// algorithm actually in use is the unpadded Keccak-256 construction, not
// the NIST-standardized SHA3-256 (see vos.Digest); the label is kept so
// old and new config files stay byte-compatible.
const HashAlgorithmLabel = "sha3-256"

// RepoConfig is the parsed contents of .orb/config.
type RepoConfig struct {
	Core CoreSection `toml:"core"`
}

// CoreSection is the "[core]" table of .orb/config.
type CoreSection struct {
	Version       float64 `toml:"version"`
	HashAlgorithm string  `toml:"hash_algorithm"`
}

// DefaultRepoConfig is written by Init for a brand-new repository.
func DefaultRepoConfig() RepoConfig {
	return RepoConfig{Core: CoreSection{Version: CurrentVersion, HashAlgorithm: HashAlgorithmLabel}}
}

// LoadRepoConfig reads and parses .orb/config from fs.
func LoadRepoConfig(fs billy.Filesystem) (RepoConfig, error) {
	f, err := fs.Open(repoConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return RepoConfig{}, orbiterr.New("config.LoadRepoConfig", orbiterr.NotFound, err)
		}
		return RepoConfig{}, orbiterr.New("config.LoadRepoConfig", orbiterr.Transport, err)
	}
	defer f.Close()

	var rc RepoConfig
	if _, err := toml.NewDecoder(f).Decode(&rc); err != nil {
		return RepoConfig{}, orbiterr.New("config.LoadRepoConfig", orbiterr.Corrupt, err)
	}
	return rc, nil
}

// SaveRepoConfig writes rc to .orb/config, overwriting any existing file.
func SaveRepoConfig(fs billy.Filesystem, rc RepoConfig) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rc); err != nil {
		return orbiterr.New("config.SaveRepoConfig", orbiterr.Corrupt, err)
	}
	f, err := fs.Create(repoConfigPath)
	if err != nil {
		return orbiterr.New("config.SaveRepoConfig", orbiterr.Transport, err)
	}
	defer f.Close()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return orbiterr.New("config.SaveRepoConfig", orbiterr.Transport, err)
	}
	return nil
}
