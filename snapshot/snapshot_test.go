// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/vos"
)

// TestEmptySnapshot: init + empty snapshot produces a commit whose tree
// has no entries and whose parents are empty.
func TestEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	r, err := repo.Init(dir)
	require.NoError(t, err)

	result, err := Snapshot(r, "m")
	require.NoError(t, err)
	require.Empty(t, result.Parent)

	obj, err := r.Store.GetObject(result.CommitID, "commit")
	require.NoError(t, err)
	commit := obj.(vos.Commit)
	require.Empty(t, commit.Parents)

	treeObj, err := r.Store.GetObject(commit.Tree, "tree")
	require.NoError(t, err)
	require.Empty(t, treeObj.(vos.Tree).Entries)
}

// TestSecondSnapshotChainsParent: consecutive snapshots produce commits
// whose Parents == [prior tip].
func TestSecondSnapshotChainsParent(t *testing.T) {
	dir := t.TempDir()
	r, err := repo.Init(dir)
	require.NoError(t, err)

	first, err := Snapshot(r, "first")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("1"), 0o644))

	second, err := Snapshot(r, "second")
	require.NoError(t, err)

	obj, err := r.Store.GetObject(second.CommitID, "commit")
	require.NoError(t, err)
	commit := obj.(vos.Commit)
	require.Equal(t, []vos.OID{first.CommitID}, commit.Parents)
}

// TestDeduplication: two files with identical bytes share one Chunk OID
// but get distinct File objects.
func TestDeduplication(t *testing.T) {
	dir := t.TempDir()
	r, err := repo.Init(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("same bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("same bytes"), 0o644))

	result, err := Snapshot(r, "dedup")
	require.NoError(t, err)

	obj, err := r.Store.GetObject(result.TreeID, "tree")
	require.NoError(t, err)
	tree := obj.(vos.Tree)
	require.Len(t, tree.Entries, 2)

	var fileIDs []vos.OID
	for _, e := range tree.Entries {
		fileIDs = append(fileIDs, e.ID)
	}
	require.NotEqual(t, fileIDs[0], fileIDs[1], "two distinct File objects expected")

	fileA, err := r.Store.GetObject(fileIDs[0], "file")
	require.NoError(t, err)
	fileB, err := r.Store.GetObject(fileIDs[1], "file")
	require.NoError(t, err)
	require.Equal(t, fileA.(vos.File).RootChunkID, fileB.(vos.File).RootChunkID, "chunk must be shared")

	chunkCount, fileCount, treeCount, commitCount := countObjectKinds(t, dir)
	require.Equal(t, 1, chunkCount)
	require.Equal(t, 2, fileCount)
	require.Equal(t, 1, treeCount)
	require.Equal(t, 1, commitCount)
}

// TestSnapshotRecordsIndexEntries verifies each snapshotted file gets a
// sidecar Index entry with the matching File OID, underpinning the status
// engine's fast path.
func TestSnapshotRecordsIndexEntries(t *testing.T) {
	dir := t.TempDir()
	r, err := repo.Init(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("1"), 0o644))

	_, err = Snapshot(r, "m")
	require.NoError(t, err)

	entry, ok := r.Index.Get("a")
	require.True(t, ok)
	require.Equal(t, int64(1), entry.Size)
}

func countObjectKinds(t *testing.T, repoDir string) (chunks, files, trees, commits int) {
	t.Helper()
	objectsDir := filepath.Join(repoDir, ".orb", "objects")
	err := filepath.Walk(objectsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		b, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		kind, _ := vos.Classify(b)
		switch kind {
		case "chunk":
			chunks++
		case "file":
			files++
		case "tree":
			trees++
		case "commit":
			commits++
		}
		return nil
	})
	require.NoError(t, err)
	return
}
