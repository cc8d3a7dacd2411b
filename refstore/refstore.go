// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package refstore implements the single branch tip pointer: a one-line
// text file holding the current head commit's OID, or empty for an
// uninitialized history.
package refstore

import (
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/vos"
)

// refPath is the repository-relative path of the tracked branch.
const refPath = "refs/heads/main"

// Store reads and writes the tip pointer. There is no cross-process
// locking; a repository has a single writer.
type Store struct {
	fs billy.Filesystem
}

// New builds a Store rooted at fs.
func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// Tip returns the current head commit OID, or "" if history is empty.
func (s *Store) Tip() (vos.OID, error) {
	f, err := s.fs.Open(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", orbiterr.New("refstore.Tip", orbiterr.Transport, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return "", orbiterr.New("refstore.Tip", orbiterr.Transport, err)
	}
	tip := strings.TrimSpace(string(b))
	if tip == "" {
		return "", nil
	}
	return vos.OID(tip), nil
}

// SetTip replaces the tip pointer in place.
func (s *Store) SetTip(id vos.OID) error {
	if err := s.fs.MkdirAll("refs/heads", 0o755); err != nil {
		return orbiterr.New("refstore.SetTip", orbiterr.Transport, err)
	}
	tmp, err := s.fs.TempFile("refs/heads", "main-")
	if err != nil {
		return orbiterr.New("refstore.SetTip", orbiterr.Transport, err)
	}
	if _, err := tmp.Write([]byte(id)); err != nil {
		tmp.Close()
		return orbiterr.New("refstore.SetTip", orbiterr.Transport, err)
	}
	if err := tmp.Close(); err != nil {
		return orbiterr.New("refstore.SetTip", orbiterr.Transport, err)
	}
	if err := s.fs.Rename(tmp.Name(), refPath); err != nil {
		return orbiterr.New("refstore.SetTip", orbiterr.Transport, err)
	}
	return nil
}
