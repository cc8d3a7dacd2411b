// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package index implements the sidecar metadata cache the Status Engine
// uses to avoid re-hashing unchanged files. Losing this file never
// affects correctness; it is rebuilt from scratch by every snapshot.
package index

import (
	"encoding/json"
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/vos"
)

// schemaVersion is bumped whenever the on-disk shape of Entry changes.
const schemaVersion = 1

// indexPath is the repository-relative path of the sidecar cache.
const indexPath = "index"

// Entry is the cached metadata for one tracked path.
type Entry struct {
	Mtime  int64   `json:"mtime"`
	Size   int64   `json:"size"`
	FileID vos.OID `json:"file_id"`
}

// Index maps working-tree-relative paths to their last-known metadata.
type Index struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// New builds an empty Index at the current schema version.
func New() *Index {
	return &Index{Version: schemaVersion, Entries: map[string]Entry{}}
}

// Load reads the index file from fs, returning a fresh empty Index if it
// does not exist. An absent index is not an error, only a cold cache.
func Load(fs billy.Filesystem) (*Index, error) {
	f, err := fs.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, orbiterr.New("index.Load", orbiterr.Transport, err)
	}
	defer f.Close()

	var idx Index
	dec := json.NewDecoder(f)
	if err := dec.Decode(&idx); err != nil {
		return nil, orbiterr.New("index.Load", orbiterr.Corrupt, err)
	}
	if idx.Entries == nil {
		idx.Entries = map[string]Entry{}
	}
	return &idx, nil
}

// Save atomically rewrites the index file.
func (idx *Index) Save(fs billy.Filesystem) error {
	b, err := json.Marshal(idx)
	if err != nil {
		return orbiterr.New("index.Save", orbiterr.Corrupt, err)
	}
	tmp, err := fs.TempFile("", "index-")
	if err != nil {
		return orbiterr.New("index.Save", orbiterr.Transport, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return orbiterr.New("index.Save", orbiterr.Transport, err)
	}
	if err := tmp.Close(); err != nil {
		return orbiterr.New("index.Save", orbiterr.Transport, err)
	}
	if err := fs.Rename(tmp.Name(), indexPath); err != nil {
		return orbiterr.New("index.Save", orbiterr.Transport, err)
	}
	return nil
}

// Clear empties the entry map in place, used at the start of every
// snapshot so deletions and renames can never leave stale entries.
func (idx *Index) Clear() {
	idx.Entries = map[string]Entry{}
}

// Update records metadata for path, overwriting any existing entry.
func (idx *Index) Update(path string, mtime, size int64, fileID vos.OID) {
	idx.Entries[path] = Entry{Mtime: mtime, Size: size, FileID: fileID}
}

// Remove deletes path's entry, if any.
func (idx *Index) Remove(path string) {
	delete(idx.Entries, path)
}

// Get returns the cached entry for path and whether one exists.
func (idx *Index) Get(path string) (Entry, bool) {
	e, ok := idx.Entries[path]
	return e, ok
}

// Paths returns the set of tracked paths in the index.
func (idx *Index) Paths() []string {
	out := make([]string, 0, len(idx.Entries))
	for p := range idx.Entries {
		out = append(out, p)
	}
	return out
}
