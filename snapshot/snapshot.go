// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package snapshot implements the snapshot pipeline: a depth-first walk
// of the working tree that chunks files, builds Trees, and produces a new
// Commit.
package snapshot

import (
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/vos"
)

var log = slog.Default().With("component", "snapshot")

// Result reports the outcome of a snapshot operation.
type Result struct {
	CommitID vos.OID
	TreeID   vos.OID
	Parent   vos.OID // empty for the first commit
}

// Snapshot walks r.WorkFS, writes new VOS objects for anything changed, and
// advances the tip pointer to a new Commit.
func Snapshot(r *repo.Repo, message string, opts ...Option) (*Result, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}

	tip, err := r.Refs.Tip()
	if err != nil {
		return nil, err
	}

	r.Index.Clear()

	rootTreeID, err := walkDir(r, o, ".")
	if err != nil {
		return nil, err
	}

	if err := r.Index.Save(r.MetaFS); err != nil {
		return nil, err
	}

	var parents []vos.OID
	if tip != "" {
		parents = []vos.OID{tip}
	} else {
		parents = []vos.OID{}
	}

	commit := vos.Commit{
		Tree:      rootTreeID,
		Parents:   parents,
		Author:    o.author,
		Timestamp: time.Now().Unix(),
		Message:   message,
		Signature: nil,
	}
	commitID, err := r.Store.PutObject(commit)
	if err != nil {
		return nil, err
	}
	if err := r.Refs.SetTip(commitID); err != nil {
		return nil, err
	}

	log.Info("snapshot complete", "commit", commitID, "tree", rootTreeID, "parent", tip)
	return &Result{CommitID: commitID, TreeID: rootTreeID, Parent: tip}, nil
}

// walkDir recurses into dir (working-tree-relative, "." for the root),
// emitting tree entries in directory-listing order and returning the OID
// of the Tree built from them.
func walkDir(r *repo.Repo, o *options, dir string) (vos.OID, error) {
	infos, err := r.WorkFS.ReadDir(dir)
	if err != nil {
		return "", orbiterr.New("snapshot.walkDir", orbiterr.Transport, err)
	}

	var entries []vos.TreeEntry
	for _, info := range infos {
		name := info.Name()
		if dir == "." && name == repo.MetaDir {
			continue
		}
		relPath := path.Join(dir, name)
		if o.exclude != nil && o.exclude(relPath) {
			continue
		}

		switch {
		case info.IsDir():
			childTreeID, err := walkDir(r, o, relPath)
			if err != nil {
				return "", err
			}
			entries = append(entries, vos.TreeEntry{Mode: vos.ModeDir, Name: name, ID: childTreeID})

		case info.Mode().IsRegular():
			fileID, size, err := snapshotFile(r, o, relPath)
			if err != nil {
				return "", err
			}
			r.Index.Update(relPath, info.ModTime().Unix(), size, fileID)
			entries = append(entries, vos.TreeEntry{Mode: vos.ModeFile, Name: name, ID: fileID})

		default:
			// Symlinks, devices, and anything else are skipped.
			continue
		}
	}

	tree := vos.Tree{Entries: entries}
	return r.Store.PutObject(tree)
}

func snapshotFile(r *repo.Repo, o *options, relPath string) (vos.OID, int64, error) {
	f, err := r.WorkFS.Open(relPath)
	if err != nil {
		return "", 0, orbiterr.New("snapshot.snapshotFile", orbiterr.Transport, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return "", 0, orbiterr.New("snapshot.snapshotFile", orbiterr.Transport, err)
	}
	if o.maxFileSize > 0 && int64(len(b)) > o.maxFileSize {
		return "", 0, orbiterr.Newf("snapshot.snapshotFile", orbiterr.Precondition, "%s exceeds max file size %d", relPath, o.maxFileSize)
	}

	chunkID, err := r.Store.Put(b)
	if err != nil {
		return "", 0, err
	}

	file := vos.File{RootChunkID: chunkID, Size: int64(len(b))}
	fileID, err := r.Store.PutObject(file)
	if err != nil {
		return "", 0, err
	}
	return fileID, int64(len(b)), nil
}
