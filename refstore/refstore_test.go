// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package refstore

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"
)

func TestTipEmptyWhenUnset(t *testing.T) {
	s := New(memfs.New())
	tip, err := s.Tip()
	require.NoError(t, err)
	require.Empty(t, tip)
}

func TestSetTipThenTip(t *testing.T) {
	s := New(memfs.New())
	require.NoError(t, s.SetTip("abc123"))
	tip, err := s.Tip()
	require.NoError(t, err)
	require.Equal(t, "abc123", string(tip))
}

func TestSetTipOverwrites(t *testing.T) {
	s := New(memfs.New())
	require.NoError(t, s.SetTip("first"))
	require.NoError(t, s.SetTip("second"))
	tip, err := s.Tip()
	require.NoError(t, err)
	require.Equal(t, "second", string(tip))
}
