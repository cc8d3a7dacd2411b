// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package checkout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/snapshot"
)

func TestCheckoutMaterializesNestedTree(t *testing.T) {
	srcDir := t.TempDir()
	r, err := repo.Init(srcDir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "top"), []byte("top-level"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "sub", "nested"), []byte("nested content"), 0o644))

	result, err := snapshot.Snapshot(r, "m")
	require.NoError(t, err)

	dstDir := t.TempDir()
	dst, err := repo.Init(dstDir)
	require.NoError(t, err)

	// Copy the object graph by hand (the real path is sync; here we only
	// need Checkout's materialization behavior against the same store).
	copyObjects(t, srcDir, dstDir)

	require.NoError(t, Checkout(dst, result.CommitID))

	b, err := os.ReadFile(filepath.Join(dstDir, "top"))
	require.NoError(t, err)
	require.Equal(t, "top-level", string(b))

	b, err = os.ReadFile(filepath.Join(dstDir, "sub", "nested"))
	require.NoError(t, err)
	require.Equal(t, "nested content", string(b))
}

func TestHistoryWalksFirstParent(t *testing.T) {
	dir := t.TempDir()
	r, err := repo.Init(dir)
	require.NoError(t, err)

	first, err := snapshot.Snapshot(r, "first")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("1"), 0o644))
	second, err := snapshot.Snapshot(r, "second")
	require.NoError(t, err)

	log, err := History(r)
	require.NoError(t, err)
	require.Len(t, log, 2)
	require.Equal(t, second.CommitID, log[0].ID)
	require.Equal(t, first.CommitID, log[1].ID)
}

// copyObjects mirrors every object under srcDir's ".orb/objects" into
// dstDir's, a test-only stand-in for what the sync engine's object
// transfer accomplishes over the wire.
func copyObjects(t *testing.T, srcDir, dstDir string) {
	t.Helper()
	srcObjects := filepath.Join(srcDir, ".orb", "objects")
	dstObjects := filepath.Join(dstDir, ".orb", "objects")

	err := filepath.Walk(srcObjects, func(path string, info os.FileInfo, err error) error {
		require.NoError(t, err)
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcObjects, path)
		require.NoError(t, err)
		dst := filepath.Join(dstObjects, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(dst, b, 0o644))
		return nil
	})
	require.NoError(t, err)
}
