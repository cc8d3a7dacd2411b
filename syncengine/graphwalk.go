// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package syncengine

import (
	"github.com/emirpasic/gods/sets/linkedhashset"

	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/vos"
)

// ObjectClosure walks the full transitive graph reachable from commitID
// (the commit itself, its tree and sub-trees, their files, and each file's
// root chunk) and returns the set of OIDs in discovery order. The object
// graph is acyclic by construction, so a plain visited-set suffices; no
// cycle-breaking is needed. An insertion-ordered set keeps logging and
// test output deterministic.
func ObjectClosure(r *repo.Repo, commitID vos.OID) (*linkedhashset.Set, error) {
	visited := linkedhashset.New()
	if err := walkCommit(r, visited, commitID); err != nil {
		return nil, err
	}
	return visited, nil
}

func walkCommit(r *repo.Repo, visited *linkedhashset.Set, id vos.OID) error {
	if visited.Contains(id) {
		return nil
	}
	visited.Add(id)

	obj, err := r.Store.GetObject(id, "commit")
	if err != nil {
		return err
	}
	commit := obj.(vos.Commit)
	return walkTree(r, visited, commit.Tree)
}

func walkTree(r *repo.Repo, visited *linkedhashset.Set, id vos.OID) error {
	if visited.Contains(id) {
		return nil
	}
	visited.Add(id)

	obj, err := r.Store.GetObject(id, "tree")
	if err != nil {
		return err
	}
	tree := obj.(vos.Tree)

	for _, entry := range tree.Entries {
		switch entry.Mode {
		case vos.ModeDir:
			if err := walkTree(r, visited, entry.ID); err != nil {
				return err
			}
		case vos.ModeFile:
			if err := walkFile(r, visited, entry.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkFile(r *repo.Repo, visited *linkedhashset.Set, id vos.OID) error {
	if visited.Contains(id) {
		return nil
	}
	visited.Add(id)

	obj, err := r.Store.GetObject(id, "file")
	if err != nil {
		return err
	}
	file := obj.(vos.File)
	if !visited.Contains(file.RootChunkID) {
		visited.Add(file.RootChunkID)
	}
	return nil
}

// objectTypeOf classifies id among the objects already known to be part of
// a closure, used by the upload serve loop to pick the right ObjectHeader
// object_type without re-deriving the whole closure.
func objectTypeOf(r *repo.Repo, id vos.OID) (string, []byte, error) {
	b, err := r.Store.Get(id)
	if err != nil {
		return "", nil, err
	}
	kind, _ := vos.Classify(b)
	return kind, b, nil
}
