// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package token resolves the bearer token used to authenticate a sync
// session: the ORBIT_TOKEN environment variable, falling back to
// ~/.orb_token. Absence is a hard failure before any network operation.
package token

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/passadis/orbit/orbiterr"
)

const envVar = "ORBIT_TOKEN"
const homeFile = ".orb_token"

// Resolve returns the token to present to a remote, or an Auth error if
// neither source yields one.
func Resolve() (string, error) {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		b, err := os.ReadFile(filepath.Join(home, homeFile))
		if err == nil {
			if v := strings.TrimSpace(string(b)); v != "" {
				return v, nil
			}
		}
	}

	return "", orbiterr.Newf("token.Resolve", orbiterr.Auth, "no token found in %s or ~/%s", envVar, homeFile)
}
