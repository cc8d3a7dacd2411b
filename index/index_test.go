// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package index

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsEmpty(t *testing.T) {
	idx, err := Load(memfs.New())
	require.NoError(t, err)
	require.Empty(t, idx.Entries)
	require.Equal(t, schemaVersion, idx.Version)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := memfs.New()
	idx := New()
	idx.Update("a", 100, 5, "deadbeef")
	require.NoError(t, idx.Save(fs))

	reloaded, err := Load(fs)
	require.NoError(t, err)
	entry, ok := reloaded.Get("a")
	require.True(t, ok)
	require.Equal(t, int64(100), entry.Mtime)
	require.Equal(t, int64(5), entry.Size)
}

func TestClearEmptiesEntries(t *testing.T) {
	idx := New()
	idx.Update("a", 1, 1, "x")
	idx.Clear()
	require.Empty(t, idx.Entries)
}

func TestRemove(t *testing.T) {
	idx := New()
	idx.Update("a", 1, 1, "x")
	idx.Remove("a")
	_, ok := idx.Get("a")
	require.False(t, ok)
}
