// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package adminapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestValidUsername(t *testing.T) {
	cases := map[string]bool{
		"alice@company.com": true,
		"a@b.co":            true,
		"noat":              false,
		"@starts":           false,
		"ends@":             false,
		"a@b":               false, // length <= 3
		"bad user@x.com":    false,
	}
	for username, want := range cases {
		require.Equal(t, want, ValidUsername(username), "username %q", username)
	}
}

func TestStoreRegisterAndVerify(t *testing.T) {
	s := newTestStore(t)

	user, err := s.Register(context.Background(), "alice@company.com", nil, Permissions{Read: true, Write: true})
	require.NoError(t, err)
	require.NotEmpty(t, user.Token)

	require.True(t, s.Verify(user.Token))
	require.False(t, s.Verify("not-a-real-token"))

	got, ok, err := s.UserByToken(context.Background(), user.Token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice@company.com", got.Username)
	require.True(t, got.Permissions.Read)
	require.False(t, got.Permissions.Admin)
}

func TestStoreRegisterDuplicateUsername(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Register(context.Background(), "bob@company.com", nil, Permissions{Read: true})
	require.NoError(t, err)

	_, err = s.Register(context.Background(), "bob@company.com", nil, Permissions{Read: true})
	require.Error(t, err)
}

func TestHandlerRegister(t *testing.T) {
	s := newTestStore(t)
	h := NewHandler(s)
	mux := http.NewServeMux()
	h.Routes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/admin/users", "application/json",
		strings.NewReader(`{"username":"carol@company.com","repositories":[],"permissions":{"read":true,"write":true,"admin":false}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/admin/users", "application/json",
		strings.NewReader(`{"username":"not-an-email","repositories":[],"permissions":{}}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}
