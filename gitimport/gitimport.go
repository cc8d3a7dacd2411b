// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package gitimport converts a foreign Git repository into a VOS object
// graph: each Git commit becomes an Orbit Commit, each Git tree becomes an
// Orbit Tree (recursively), and each Git blob becomes an Orbit File plus
// Chunk pair. The sync engine and snapshot pipeline never call into this
// package; it only ever produces objects for them to consume.
package gitimport

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/vos"
)

var log = slog.Default().With("component", "gitimport")

// Result reports the outcome of an import.
type Result struct {
	CommitCount int
	Tip         vos.OID
}

// Import clones url into targetDir, converts its linear first-parent
// history into Orbit objects, initializes an Orbit repository in place,
// and returns the new tip. targetDir must not already exist.
func Import(url, targetDir string) (*Result, error) {
	if _, err := os.Stat(targetDir); err == nil {
		return nil, orbiterr.Newf("gitimport.Import", orbiterr.Precondition, "target directory %q already exists", targetDir)
	}

	log.Info("cloning git repository", "url", url, "target", targetDir)
	gitRepo, err := git.PlainClone(targetDir, false, &git.CloneOptions{URL: url})
	if err != nil {
		return nil, orbiterr.New("gitimport.Import", orbiterr.Transport, err)
	}

	r, err := repo.Init(targetDir)
	if err != nil {
		return nil, err
	}

	result, err := convertHistory(r, gitRepo)
	if err != nil {
		return nil, err
	}

	if err := os.RemoveAll(targetDir + "/.git"); err != nil {
		log.Warn("could not remove .git metadata", "err", err)
	}

	return result, nil
}

// convertHistory walks the first-parent chain from HEAD back to the root,
// converting oldest-first so every commit's parent OID is already known.
// Side branches and merge parents are not imported; Orbit history is a
// single linear chain.
func convertHistory(r *repo.Repo, gitRepo *git.Repository) (*Result, error) {
	head, err := gitRepo.Head()
	if err != nil {
		return nil, orbiterr.New("gitimport.convertHistory", orbiterr.Transport, err)
	}
	headCommit, err := gitRepo.CommitObject(head.Hash())
	if err != nil {
		return nil, orbiterr.New("gitimport.convertHistory", orbiterr.Transport, err)
	}

	var chain []*object.Commit
	for c := headCommit; ; {
		chain = append(chain, c)
		if c.NumParents() == 0 {
			break
		}
		parent, err := c.Parent(0)
		if err != nil {
			return nil, orbiterr.New("gitimport.convertHistory", orbiterr.Transport, err)
		}
		c = parent
	}

	var (
		tip        vos.OID
		convertedN int
	)
	for i := len(chain) - 1; i >= 0; i-- {
		gitCommit := chain[i]
		log.Info("converting commit", "n", convertedN+1, "git_oid", gitCommit.Hash.String())

		gitTree, err := gitCommit.Tree()
		if err != nil {
			return nil, orbiterr.New("gitimport.convertHistory", orbiterr.Transport, err)
		}
		treeID, err := convertTree(r, gitRepo, gitTree)
		if err != nil {
			return nil, err
		}

		var parents []vos.OID
		if tip != "" {
			parents = []vos.OID{tip}
		} else {
			parents = []vos.OID{}
		}

		commit := vos.Commit{
			Tree:      treeID,
			Parents:   parents,
			Author:    fmt.Sprintf("%s <%s>", gitCommit.Author.Name, gitCommit.Author.Email),
			Timestamp: gitCommit.Author.When.Unix(),
			Message:   gitCommit.Message,
			Signature: nil,
		}
		commitID, err := r.Store.PutObject(commit)
		if err != nil {
			return nil, err
		}
		if err := r.Refs.SetTip(commitID); err != nil {
			return nil, err
		}
		tip = commitID
		convertedN++
	}

	return &Result{CommitCount: convertedN, Tip: tip}, nil
}

// convertTree recurses into every subdirectory, building a real Orbit
// Tree object at each level, so a nested Git tree round-trips to a nested
// Orbit tree with working ids.
func convertTree(r *repo.Repo, gitRepo *git.Repository, gitTree *object.Tree) (vos.OID, error) {
	var entries []vos.TreeEntry
	for _, e := range gitTree.Entries {
		switch {
		case e.Mode.IsFile():
			fileID, err := convertBlob(r, gitRepo, e.Hash)
			if err != nil {
				return "", err
			}
			entries = append(entries, vos.TreeEntry{Mode: vos.ModeFile, Name: e.Name, ID: fileID})

		default:
			subtree, err := gitRepo.TreeObject(e.Hash)
			if err != nil {
				// Submodules and other non-tree, non-blob entries are skipped.
				continue
			}
			subtreeID, err := convertTree(r, gitRepo, subtree)
			if err != nil {
				return "", err
			}
			entries = append(entries, vos.TreeEntry{Mode: vos.ModeDir, Name: e.Name, ID: subtreeID})
		}
	}

	return r.Store.PutObject(vos.Tree{Entries: entries})
}

func convertBlob(r *repo.Repo, gitRepo *git.Repository, hash plumbing.Hash) (vos.OID, error) {
	blob, err := gitRepo.BlobObject(hash)
	if err != nil {
		return "", orbiterr.New("gitimport.convertBlob", orbiterr.Transport, err)
	}
	rc, err := blob.Reader()
	if err != nil {
		return "", orbiterr.New("gitimport.convertBlob", orbiterr.Transport, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", orbiterr.New("gitimport.convertBlob", orbiterr.Transport, err)
	}

	chunkID, err := r.Store.Put(b)
	if err != nil {
		return "", err
	}
	return r.Store.PutObject(vos.File{RootChunkID: chunkID, Size: int64(len(b))})
}
