// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package repo wires together the object store, ref store, and repository
// configuration into their on-disk layout: a working tree with a ".orb"
// metadata directory inside it.
package repo

import (
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/passadis/orbit/config"
	"github.com/passadis/orbit/index"
	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/refstore"
	"github.com/passadis/orbit/vos"
)

// MetaDir is the name of the repository metadata directory.
const MetaDir = ".orb"

const headContents = "ref: refs/heads/main\n"

// Repo bundles the components a single working tree's history needs.
type Repo struct {
	// WorkFS is rooted at the working tree (the directory snapshots walk).
	WorkFS billy.Filesystem
	// MetaFS is rooted at the ".orb" metadata directory.
	MetaFS billy.Filesystem

	Store *vos.Store
	Refs  *refstore.Store
	Index *index.Index
}

// Init creates a new repository at root, failing with Precondition if one
// already exists there.
func Init(root string) (*Repo, error) {
	workFS := osfs.New(root)
	if _, err := workFS.Stat(MetaDir); err == nil {
		return nil, orbiterr.Newf("repo.Init", orbiterr.Precondition, "repository already exists at %s", root)
	}
	metaFS, err := workFS.Chroot(MetaDir)
	if err != nil {
		return nil, orbiterr.New("repo.Init", orbiterr.Transport, err)
	}
	for _, dir := range []string{"objects", "refs/heads"} {
		if err := metaFS.MkdirAll(dir, 0o755); err != nil {
			return nil, orbiterr.New("repo.Init", orbiterr.Transport, err)
		}
	}

	if err := writeFile(metaFS, "HEAD", []byte(headContents)); err != nil {
		return nil, err
	}
	if err := config.SaveRepoConfig(metaFS, config.DefaultRepoConfig()); err != nil {
		return nil, err
	}
	refs := refstore.New(metaFS)
	if err := refs.SetTip(""); err != nil {
		return nil, err
	}

	idx := index.New()
	if err := idx.Save(metaFS); err != nil {
		return nil, err
	}

	return &Repo{
		WorkFS: workFS,
		MetaFS: metaFS,
		Store:  vos.NewStore(metaFS),
		Refs:   refs,
		Index:  idx,
	}, nil
}

// Open loads an existing repository rooted at root.
func Open(root string) (*Repo, error) {
	workFS := osfs.New(root)
	if _, err := workFS.Stat(MetaDir); err != nil {
		if os.IsNotExist(err) {
			return nil, orbiterr.Newf("repo.Open", orbiterr.NotFound, "no repository at %s", root)
		}
		return nil, orbiterr.New("repo.Open", orbiterr.Transport, err)
	}
	metaFS, err := workFS.Chroot(MetaDir)
	if err != nil {
		return nil, orbiterr.New("repo.Open", orbiterr.Transport, err)
	}

	idx, err := index.Load(metaFS)
	if err != nil {
		return nil, err
	}

	return &Repo{
		WorkFS: workFS,
		MetaFS: metaFS,
		Store:  vos.NewStore(metaFS),
		Refs:   refstore.New(metaFS),
		Index:  idx,
	}, nil
}

func writeFile(fs billy.Filesystem, path string, b []byte) error {
	f, err := fs.Create(path)
	if err != nil {
		return orbiterr.New("repo.writeFile", orbiterr.Transport, err)
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return orbiterr.New("repo.writeFile", orbiterr.Transport, err)
	}
	return nil
}
