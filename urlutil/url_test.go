// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseRoundTrip pins the TLS/port/repository fields for the two
// grammar extremes: a fully qualified TLS URL and a bare host:port.
func TestParseRoundTrip(t *testing.T) {
	u, err := Parse("orbits://h:443/r")
	require.NoError(t, err)
	require.True(t, u.UseTLS)
	require.Equal(t, 443, u.Port)
	require.Equal(t, "r", u.Repository)

	plain, err := Parse("h:8080")
	require.NoError(t, err)
	require.False(t, plain.UseTLS)
	require.Equal(t, 8080, plain.Port)
}

func TestParseDefaultsPortByScheme(t *testing.T) {
	tlsURL, err := Parse("https://example.com")
	require.NoError(t, err)
	require.Equal(t, 443, tlsURL.Port)
	require.True(t, tlsURL.UseTLS)

	plainURL, err := Parse("orbit://example.com")
	require.NoError(t, err)
	require.Equal(t, 8080, plainURL.Port)
	require.False(t, plainURL.UseTLS)
}

func TestParseExtractsRepository(t *testing.T) {
	u, err := Parse("orbit://example.com/my-repo")
	require.NoError(t, err)
	require.Equal(t, "my-repo", u.Repository)
	require.Equal(t, "example.com", u.Host)
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}

func TestRequiresTLSOnImpliedPorts(t *testing.T) {
	require.True(t, RequiresTLS("example.com:443"))
	require.True(t, RequiresTLS("example.com:8443"))
	require.False(t, RequiresTLS("example.com:8080"))
}
