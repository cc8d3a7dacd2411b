// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package vos

import (
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"

	"github.com/passadis/orbit/orbiterr"
)

// objectsDir is the repository-relative root of the object store.
const objectsDir = "objects"

// Store is the content-addressed object store. Filesystem access goes
// through a billy.Filesystem so the same code runs against an in-memory
// filesystem in tests and the real OS filesystem in production.
type Store struct {
	fs  billy.Filesystem
	log *slog.Logger
}

// NewStore builds a Store rooted at fs. fs is expected to be rooted at the
// ".orb" metadata directory (repo passes its MetaFS, a Chroot'd osfs); the
// object store always reads/writes under "objects/" within it.
func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs, log: slog.Default().With("component", "vos.Store")}
}

func objectPath(id OID) string {
	s := string(id)
	return path.Join(objectsDir, s[:2], s[2:])
}

// Put computes the OID of b and writes it if absent. Idempotent: a second
// Put of the same bytes is a no-op beyond the existence check.
func (s *Store) Put(b []byte) (OID, error) {
	id := Digest(b)
	if err := s.writeIfAbsent(id, b); err != nil {
		return "", err
	}
	return id, nil
}

// PutObject canonicalizes and stores a structured object, returning its OID.
func (s *Store) PutObject(o Object) (OID, error) {
	b, err := Canonicalize(o)
	if err != nil {
		return "", orbiterr.New("vos.Store.PutObject", orbiterr.Corrupt, err)
	}
	return s.Put(b)
}

// PutWithID writes b at the path for id, used only by the sync downloader
// where the sender asserts the OID. The digest of b is recomputed and the
// write refused with a Corrupt error if it disagrees with id, so a lying
// sender can never plant bytes under the wrong address.
func (s *Store) PutWithID(id OID, b []byte) error {
	if !id.Valid() {
		return orbiterr.Newf("vos.Store.PutWithID", orbiterr.Protocol, "malformed oid %q", id)
	}
	if got := Digest(b); got != id {
		return orbiterr.Newf("vos.Store.PutWithID", orbiterr.Corrupt, "digest mismatch: asserted %s, computed %s", id, got)
	}
	if s.existsOnDisk(id) {
		return nil
	}
	return s.writeAtomic(objectPath(id), b)
}

// Get reads the bytes stored under id, failing with NotFound if absent.
func (s *Store) Get(id OID) ([]byte, error) {
	f, err := s.fs.Open(objectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, orbiterr.New("vos.Store.Get", orbiterr.NotFound, err)
		}
		return nil, orbiterr.New("vos.Store.Get", orbiterr.Transport, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, orbiterr.New("vos.Store.Get", orbiterr.Transport, err)
	}
	return b, nil
}

// GetObject reads and parses a structured object of the given expected
// kind ("commit", "tree", "file").
func (s *Store) GetObject(id OID, kind string) (Object, error) {
	b, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	gotKind, obj := Classify(b)
	if gotKind != kind {
		return nil, orbiterr.Newf("vos.Store.GetObject", orbiterr.Corrupt, "object %s: expected %s, classified as %s", id, kind, gotKind)
	}
	return obj, nil
}

// Exists reports whether id is present in the store.
func (s *Store) Exists(id OID) bool {
	return s.existsOnDisk(id)
}

func (s *Store) existsOnDisk(id OID) bool {
	_, err := s.fs.Stat(objectPath(id))
	return err == nil
}

func (s *Store) writeIfAbsent(id OID, b []byte) error {
	if s.existsOnDisk(id) {
		return nil
	}
	return s.writeAtomic(objectPath(id), b)
}

// writeAtomic writes to a temp file in the object's shard directory and
// renames into place, so a crash mid-write never leaves a half-written
// object visible at its final path.
func (s *Store) writeAtomic(dst string, b []byte) error {
	dir := path.Dir(dst)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return orbiterr.New("vos.Store.writeAtomic", orbiterr.Transport, err)
	}
	tmp, err := s.fs.TempFile(dir, "obj-")
	if err != nil {
		return orbiterr.New("vos.Store.writeAtomic", orbiterr.Transport, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return orbiterr.New("vos.Store.writeAtomic", orbiterr.Transport, err)
	}
	if err := tmp.Close(); err != nil {
		return orbiterr.New("vos.Store.writeAtomic", orbiterr.Transport, err)
	}
	if err := s.fs.Rename(tmp.Name(), dst); err != nil {
		return orbiterr.New("vos.Store.writeAtomic", orbiterr.Transport, err)
	}
	return nil
}
