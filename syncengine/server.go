// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package syncengine

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/vnp"
	"github.com/passadis/orbit/vos"
)

// Authenticator verifies an opaque bearer token presented by a client.
type Authenticator interface {
	Verify(token string) bool
}

// RepoHost resolves repository names to on-disk repositories rooted under
// a data directory, one subdirectory per repository.
type RepoHost struct {
	DataDir string
}

// List returns the names of repositories currently hosted.
func (h *RepoHost) List() ([]string, error) {
	entries, err := os.ReadDir(h.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, orbiterr.New("syncengine.RepoHost.List", orbiterr.Transport, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Open opens an existing repository by name.
func (h *RepoHost) Open(name string) (*repo.Repo, error) {
	return repo.Open(filepath.Join(h.DataDir, name))
}

// Create initializes a new repository by name.
func (h *RepoHost) Create(name string) (*repo.Repo, error) {
	return repo.Init(filepath.Join(h.DataDir, name))
}

// Server drives the server side of one sync session, symmetric to the
// client with inverted message direction.
type Server struct {
	conn io.ReadWriteCloser
	auth Authenticator
	host *RepoHost
	log  *slog.Logger
	repo *repo.Repo

	// newCommits are the pushed commits this session actually added to the
	// store, in push order. Commits the server already had are excluded so
	// finalization never rewinds the tip to an ancestor.
	newCommits []vos.OID
}

// NewServer wraps an accepted connection.
func NewServer(conn io.ReadWriteCloser, auth Authenticator, host *RepoHost) *Server {
	return &Server{conn: conn, auth: auth, host: host, log: slog.Default().With("component", "syncengine.Server")}
}

func (s *Server) send(msg vnp.Message) error { return vnp.WriteFrame(s.conn, msg) }
func (s *Server) recv() (vnp.Message, error) { return vnp.ReadFrame(s.conn) }

// Serve runs one full session to completion: authenticate, optionally
// select/create/list a repository, negotiate, serve downloads, accept an
// upload, and finalize.
func (s *Server) Serve() error {
	if err := s.handleAuth(); err != nil {
		return err
	}

	for {
		msg, err := s.recv()
		if err != nil {
			return err
		}
		switch msg.Type {
		case vnp.TypeListRepositories:
			if err := s.handleListRepositories(); err != nil {
				return err
			}
		case vnp.TypeSelectRepository:
			if err := s.handleSelectRepository(msg.Name, false); err != nil {
				return err
			}
		case vnp.TypeCreateRepository:
			if err := s.handleSelectRepository(msg.Name, true); err != nil {
				return err
			}
		case vnp.TypeHave:
			return s.handleNegotiation(msg.OIDs)
		default:
			return orbiterr.Newf("syncengine.Server.Serve", orbiterr.Protocol, "unexpected message before negotiation: %s", msg.Type)
		}
	}
}

func (s *Server) handleAuth() error {
	msg, err := s.recv()
	if err != nil {
		return err
	}
	if msg.Type != vnp.TypeAuthenticate {
		return orbiterr.Newf("syncengine.Server.handleAuth", orbiterr.Protocol, "expected Authenticate, got %s", msg.Type)
	}
	if s.auth == nil || !s.auth.Verify(msg.Token) {
		_ = s.send(vnp.AuthResult(false, "invalid token"))
		return orbiterr.Newf("syncengine.Server.handleAuth", orbiterr.Auth, "rejected token")
	}
	return s.send(vnp.AuthResult(true, ""))
}

func (s *Server) handleListRepositories() error {
	names, err := s.host.List()
	if err != nil {
		return err
	}
	return s.send(vnp.RepositoryList(names))
}

func (s *Server) handleSelectRepository(name string, create bool) error {
	r, err := s.host.Open(name)
	if err != nil {
		if !create {
			return s.send(vnp.Error("not found"))
		}
		r, err = s.host.Create(name)
		if err != nil {
			return s.send(vnp.Error(err.Error()))
		}
	}
	s.repo = r
	return s.send(vnp.RepositorySelected(name))
}

// handleNegotiation computes Want from the client's Have and then serves
// the rest of the session: downloads to the client, then an upload from
// the client, then finalization.
func (s *Server) handleNegotiation(clientHave []vos.OID) error {
	if s.repo == nil {
		return orbiterr.Newf("syncengine.Server.handleNegotiation", orbiterr.Precondition, "no repository selected")
	}

	tip, err := s.repo.Refs.Tip()
	if err != nil {
		return err
	}

	have := map[vos.OID]bool{}
	for _, h := range clientHave {
		have[h] = true
	}

	// Negotiation covers only the tip, not the whole ancestor DAG; Want is
	// either empty (client already has the tip) or the single missing tip
	// commit. Clients treat the last Want element as the new tip, so Want
	// must always be in history order, oldest first. Trivially true for a
	// one-element list, but a load-bearing requirement for any server that
	// grows multi-commit negotiation.
	var want []vos.OID
	if tip != "" && !have[tip] {
		want = []vos.OID{tip}
	}
	if err := s.send(vnp.Want(want)); err != nil {
		return err
	}

	if err := s.serveDownloads(); err != nil {
		return err
	}

	return s.finalize()
}

// serveDownloads answers Get/GetTree/GetFile requests until the client
// sends Push to begin its upload phase.
func (s *Server) serveDownloads() error {
	for {
		msg, err := s.recv()
		if err != nil {
			return err
		}
		switch msg.Type {
		case vnp.TypeGet, vnp.TypeGetTree, vnp.TypeGetFile:
			if err := s.serveObject(msg.OID); err != nil {
				return err
			}
		case vnp.TypePush:
			return s.requestUpload(msg.OIDs)
		default:
			return orbiterr.Newf("syncengine.Server.serveDownloads", orbiterr.Protocol, "unexpected message during download: %s", msg.Type)
		}
	}
}

func (s *Server) serveObject(id vos.OID) error {
	if !s.repo.Store.Exists(id) {
		return s.send(vnp.Error("object not found: " + string(id)))
	}
	kind, data, err := objectTypeOf(s.repo, id)
	if err != nil {
		return err
	}
	if err := s.send(vnp.ObjectHeader(id, kind, int64(len(data)))); err != nil {
		return err
	}
	return vnp.SendObjectData(s.conn, data)
}

// requestUpload is entered once the client's Push(commits) has been
// received. It pulls each commit (and, once parsed, its tree/file/chunk
// dependencies) the server doesn't already have, mirroring the client's
// download walk but issuing SendObject instead of Get/GetTree/GetFile,
// since this direction of the protocol only defines that one request type.
func (s *Server) requestUpload(commits []vos.OID) error {
	for _, id := range commits {
		if !s.repo.Store.Exists(id) {
			s.newCommits = append(s.newCommits, id)
		}
		if err := s.pull(id); err != nil {
			return err
		}
		obj, err := s.repo.Store.GetObject(id, "commit")
		if err != nil {
			return err
		}
		if err := s.pullTree(obj.(vos.Commit).Tree); err != nil {
			return err
		}
	}
	return s.send(vnp.Ok())
}

func (s *Server) pullTree(id vos.OID) error {
	if s.repo.Store.Exists(id) {
		return nil
	}
	if err := s.pull(id); err != nil {
		return err
	}
	obj, err := s.repo.Store.GetObject(id, "tree")
	if err != nil {
		return err
	}
	for _, entry := range obj.(vos.Tree).Entries {
		if entry.Mode == vos.ModeDir {
			if err := s.pullTree(entry.ID); err != nil {
				return err
			}
		} else if err := s.pullFile(entry.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) pullFile(id vos.OID) error {
	if s.repo.Store.Exists(id) {
		return nil
	}
	if err := s.pull(id); err != nil {
		return err
	}
	obj, err := s.repo.Store.GetObject(id, "file")
	if err != nil {
		return err
	}
	if s.repo.Store.Exists(obj.(vos.File).RootChunkID) {
		return nil
	}
	return s.pull(obj.(vos.File).RootChunkID)
}

// pull requests a single object by id via SendObject and stores the reply.
func (s *Server) pull(id vos.OID) error {
	if s.repo.Store.Exists(id) {
		return nil
	}
	if err := s.send(vnp.SendObject(id)); err != nil {
		return err
	}
	header, err := s.recv()
	if err != nil {
		return err
	}
	if header.Type != vnp.TypeObjectHeader || header.OID != id {
		return orbiterr.Newf("syncengine.Server.pull", orbiterr.Protocol, "expected ObjectHeader for %s, got %v", id, header)
	}
	data, err := vnp.RecvObjectData(s.conn, header.Size)
	if err != nil {
		return err
	}
	return s.repo.Store.PutWithID(id, data)
}

func (s *Server) finalize() error {
	msg, err := s.recv()
	if err != nil {
		return err
	}
	if msg.Type != vnp.TypeReady {
		return orbiterr.Newf("syncengine.Server.finalize", orbiterr.Protocol, "expected Ready, got %s", msg.Type)
	}

	if len(s.newCommits) > 0 {
		newTip := s.newCommits[len(s.newCommits)-1]
		if err := s.repo.Refs.SetTip(newTip); err != nil {
			_ = s.send(vnp.Error(err.Error()))
			return err
		}
	}
	return s.send(vnp.Ok())
}
