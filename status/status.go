// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package status classifies working-tree paths against the Index's
// cached metadata.
package status

import (
	"io"
	"path"
	"sort"

	"github.com/passadis/orbit/index"
	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/vos"
)

// State is one of the four classifications a path can receive.
type State string

const (
	Unchanged State = "unchanged"
	Modified  State = "modified"
	Deleted   State = "deleted"
	Untracked State = "untracked"
)

// Entry pairs a working-tree-relative path with its classification.
type Entry struct {
	Path  string
	State State
}

// Check classifies every tracked and untracked path in r against r.Index
// and returns only the paths that are not Unchanged. Callers that need a
// full report, clean paths included, use CheckAll.
func Check(r *repo.Repo) ([]Entry, error) {
	all, err := CheckAll(r)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.State != Unchanged {
			out = append(out, e)
		}
	}
	return out, nil
}

// CheckAll classifies every path the Index tracks plus every untracked file
// found in the working tree, sorted by path for deterministic output.
func CheckAll(r *repo.Repo) ([]Entry, error) {
	seen := map[string]bool{}
	var entries []Entry

	for p, e := range r.Index.Entries {
		seen[p] = true
		state, err := classifyTracked(r, p, e)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Path: p, State: state})
	}

	untracked, err := scanUntracked(r, ".", seen)
	if err != nil {
		return nil, err
	}
	for _, p := range untracked {
		entries = append(entries, Entry{Path: p, State: Untracked})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func classifyTracked(r *repo.Repo, p string, e index.Entry) (State, error) {
	info, err := r.WorkFS.Stat(p)
	if err != nil {
		return Deleted, nil
	}
	if info.ModTime().Unix() == e.Mtime && info.Size() == e.Size {
		return Unchanged, nil
	}

	// Metadata diverged: fall back to content hash before declaring Modified.
	contentID, err := hashFile(r, p)
	if err != nil {
		return "", err
	}
	if contentID == e.FileID {
		return Unchanged, nil
	}
	return Modified, nil
}

func hashFile(r *repo.Repo, p string) (vos.OID, error) {
	f, err := r.WorkFS.Open(p)
	if err != nil {
		return "", orbiterr.New("status.hashFile", orbiterr.Transport, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", orbiterr.New("status.hashFile", orbiterr.Transport, err)
	}
	chunkID := vos.Digest(b)
	file := vos.File{RootChunkID: chunkID, Size: int64(len(b))}
	return vos.DigestObject(file)
}

func scanUntracked(r *repo.Repo, dir string, tracked map[string]bool) ([]string, error) {
	infos, err := r.WorkFS.ReadDir(dir)
	if err != nil {
		return nil, orbiterr.New("status.scanUntracked", orbiterr.Transport, err)
	}

	var out []string
	for _, info := range infos {
		name := info.Name()
		if dir == "." && name == repo.MetaDir {
			continue
		}
		relPath := path.Join(dir, name)

		switch {
		case info.IsDir():
			children, err := scanUntracked(r, relPath, tracked)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		case info.Mode().IsRegular():
			if !tracked[relPath] {
				out = append(out, relPath)
			}
		}
	}
	return out, nil
}
