// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package checkout materializes an object graph back onto the working
// tree: full checkout of a commit, or a revert restricting the rewrite to
// a set of paths.
package checkout

import (
	"path"

	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/vos"
)

// Checkout materializes commitID's tree onto r.WorkFS, recreating every
// file and directory it contains. Callers must not assume atomicity: a
// failure partway through may leave a partial working tree.
func Checkout(r *repo.Repo, commitID vos.OID) error {
	commitObj, err := r.Store.GetObject(commitID, "commit")
	if err != nil {
		return err
	}
	commit := commitObj.(vos.Commit)
	return restoreTree(r, commit.Tree, ".")
}

// Revert restores paths from the current tip's tree. An empty paths set
// restores everything.
func Revert(r *repo.Repo, paths []string) error {
	tip, err := r.Refs.Tip()
	if err != nil {
		return err
	}
	if tip == "" {
		return orbiterr.Newf("checkout.Revert", orbiterr.Precondition, "no history to revert from")
	}
	if len(paths) == 0 {
		return Checkout(r, tip)
	}

	commitObj, err := r.Store.GetObject(tip, "commit")
	if err != nil {
		return err
	}
	commit := commitObj.(vos.Commit)

	flat, err := flattenTree(r, commit.Tree, "")
	if err != nil {
		return err
	}

	for _, p := range paths {
		entry, ok := flat[p]
		if !ok {
			return orbiterr.Newf("checkout.Revert", orbiterr.NotFound, "path %q not present in head commit", p)
		}
		if entry.Mode == vos.ModeDir {
			if err := restoreTree(r, entry.ID, p); err != nil {
				return err
			}
			continue
		}
		if err := restoreFile(r, entry.ID, p); err != nil {
			return err
		}
	}
	return nil
}

func restoreTree(r *repo.Repo, treeID vos.OID, dir string) error {
	treeObj, err := r.Store.GetObject(treeID, "tree")
	if err != nil {
		return err
	}
	tree := treeObj.(vos.Tree)

	if dir != "." {
		if err := r.WorkFS.MkdirAll(dir, 0o755); err != nil {
			return orbiterr.New("checkout.restoreTree", orbiterr.Transport, err)
		}
	}

	for _, entry := range tree.Entries {
		childPath := path.Join(dir, entry.Name)
		switch entry.Mode {
		case vos.ModeDir:
			if err := restoreTree(r, entry.ID, childPath); err != nil {
				return err
			}
		case vos.ModeFile:
			if err := restoreFile(r, entry.ID, childPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func restoreFile(r *repo.Repo, fileID vos.OID, dst string) error {
	fileObj, err := r.Store.GetObject(fileID, "file")
	if err != nil {
		return err
	}
	file := fileObj.(vos.File)

	b, err := r.Store.Get(file.RootChunkID)
	if err != nil {
		return err
	}

	if dir := path.Dir(dst); dir != "." {
		if err := r.WorkFS.MkdirAll(dir, 0o755); err != nil {
			return orbiterr.New("checkout.restoreFile", orbiterr.Transport, err)
		}
	}
	f, err := r.WorkFS.Create(dst)
	if err != nil {
		return orbiterr.New("checkout.restoreFile", orbiterr.Transport, err)
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return orbiterr.New("checkout.restoreFile", orbiterr.Transport, err)
	}
	return nil
}

// flattenTree walks treeID recursively, returning every entry keyed by its
// full working-tree-relative path.
func flattenTree(r *repo.Repo, treeID vos.OID, prefix string) (map[string]vos.TreeEntry, error) {
	treeObj, err := r.Store.GetObject(treeID, "tree")
	if err != nil {
		return nil, err
	}
	tree := treeObj.(vos.Tree)

	out := map[string]vos.TreeEntry{}
	for _, entry := range tree.Entries {
		full := path.Join(prefix, entry.Name)
		out[full] = entry
		if entry.Mode == vos.ModeDir {
			children, err := flattenTree(r, entry.ID, full)
			if err != nil {
				return nil, err
			}
			for k, v := range children {
				out[k] = v
			}
		}
	}
	return out, nil
}
