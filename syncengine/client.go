// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package syncengine implements the sync session state machine:
// authenticate, select repository, negotiate via HAVE/WANT, and exchange
// object graphs in both directions over VNP.
package syncengine

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/passadis/orbit/orbiterr"
	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/urlutil"
	"github.com/passadis/orbit/vnp"
	"github.com/passadis/orbit/vos"
)

// DialOption customizes Dial.
type DialOption func(*dialOptions)

type dialOptions struct {
	dialTimeout time.Duration
	insecureTLS bool
}

func defaultDialOptions() *dialOptions {
	return &dialOptions{dialTimeout: 10 * time.Second}
}

// WithDialTimeout bounds the TCP connect step.
func WithDialTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.dialTimeout = d }
}

// WithInsecureTLS skips certificate verification; for tests against
// self-signed servers only.
func WithInsecureTLS() DialOption {
	return func(o *dialOptions) { o.insecureTLS = true }
}

// Dial opens a transport connection to u, establishing TLS when u.UseTLS is
// set. VNP itself treats the result as an opaque byte stream.
func Dial(u urlutil.URL, opts ...DialOption) (net.Conn, error) {
	o := defaultDialOptions()
	for _, fn := range opts {
		fn(o)
	}

	addr := fmt.Sprintf("%s:%d", u.Host, u.Port)
	if !u.UseTLS {
		conn, err := net.DialTimeout("tcp", addr, o.dialTimeout)
		if err != nil {
			return nil, orbiterr.New("syncengine.Dial", orbiterr.Transport, err)
		}
		return conn, nil
	}

	dialer := &net.Dialer{Timeout: o.dialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
		ServerName:         u.ServerName,
		InsecureSkipVerify: o.insecureTLS,
	})
	if err != nil {
		return nil, orbiterr.New("syncengine.Dial", orbiterr.Transport, err)
	}
	return conn, nil
}

// Client drives the client side of the sync state machine over one
// connection. Sessions are strictly sequential request/reply; Client is
// not safe for concurrent use from multiple goroutines.
type Client struct {
	conn      io.ReadWriteCloser
	sessionID string
	log       *slog.Logger
}

// NewClient wraps an already-established transport connection.
func NewClient(conn io.ReadWriteCloser) *Client {
	id := uuid.NewString()
	return &Client{
		conn:      conn,
		sessionID: id,
		log:       slog.Default().With("component", "syncengine.Client", "session", id),
	}
}

// Close releases the underlying connection. Any later session must
// restart at the authentication phase.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) send(msg vnp.Message) error { return vnp.WriteFrame(c.conn, msg) }

func (c *Client) recv() (vnp.Message, error) { return vnp.ReadFrame(c.conn) }

// Authenticate sends Authenticate(token) and expects AuthResult{success}.
func (c *Client) Authenticate(token string) error {
	if err := c.send(vnp.Authenticate(token)); err != nil {
		return err
	}
	reply, err := c.recv()
	if err != nil {
		return err
	}
	if reply.Type != vnp.TypeAuthResult {
		return orbiterr.Newf("syncengine.Client.Authenticate", orbiterr.Protocol, "expected AuthResult, got %s", reply.Type)
	}
	if !reply.Success {
		return orbiterr.Newf("syncengine.Client.Authenticate", orbiterr.Auth, "authentication refused: %s", reply.ErrMessage)
	}
	return nil
}

// SelectRepository selects name, creating it first if the server reports
// it missing and createIfMissing is set.
func (c *Client) SelectRepository(name string, createIfMissing bool) error {
	if err := c.send(vnp.SelectRepository(name)); err != nil {
		return err
	}
	reply, err := c.recv()
	if err != nil {
		return err
	}
	if reply.Type == vnp.TypeError && createIfMissing {
		if err := c.send(vnp.CreateRepository(name)); err != nil {
			return err
		}
		reply, err = c.recv()
		if err != nil {
			return err
		}
	}
	if reply.Type != vnp.TypeRepositorySelected {
		return orbiterr.Newf("syncengine.Client.SelectRepository", orbiterr.Access, "could not select repository %q: %v", name, reply)
	}
	return nil
}

// ListRepositories asks the server for the repositories it hosts.
func (c *Client) ListRepositories() ([]string, error) {
	if err := c.send(vnp.ListRepositories()); err != nil {
		return nil, err
	}
	reply, err := c.recv()
	if err != nil {
		return nil, err
	}
	if reply.Type != vnp.TypeRepositoryList {
		return nil, orbiterr.Newf("syncengine.Client.ListRepositories", orbiterr.Protocol, "expected RepositoryList, got %s", reply.Type)
	}
	return reply.Names, nil
}

// Sync runs the full negotiation/download/upload/finalization sequence
// for the local repository r against the remote repository already chosen
// with SelectRepository.
func (c *Client) Sync(r *repo.Repo) error {
	tip, err := r.Refs.Tip()
	if err != nil {
		return err
	}

	var localTips []vos.OID
	if tip != "" {
		localTips = []vos.OID{tip}
	}

	if err := c.send(vnp.Have(localTips)); err != nil {
		return err
	}
	wantReply, err := c.recv()
	if err != nil {
		return err
	}
	if wantReply.Type != vnp.TypeWant {
		return orbiterr.Newf("syncengine.Client.Sync", orbiterr.Protocol, "expected Want, got %s", wantReply.Type)
	}
	missing := wantReply.OIDs

	if len(missing) > 0 {
		if err := c.download(r, missing); err != nil {
			return err
		}
		// Want arrives in history order, oldest first, so the last
		// element is the new tip.
		newTip := missing[len(missing)-1]
		if err := r.Refs.SetTip(newTip); err != nil {
			return err
		}
	}

	upload := diffOIDs(localTips, missing)
	if err := c.upload(r, upload); err != nil {
		return err
	}

	if err := c.send(vnp.Ready()); err != nil {
		return err
	}
	final, err := c.recv()
	if err != nil {
		return err
	}
	if final.Type != vnp.TypeOk {
		return orbiterr.Newf("syncengine.Client.Sync", orbiterr.Protocol, "finalization failed: %v", final)
	}
	return nil
}

func diffOIDs(have, want []vos.OID) []vos.OID {
	excluded := map[vos.OID]bool{}
	for _, w := range want {
		excluded[w] = true
	}
	var out []vos.OID
	for _, h := range have {
		if !excluded[h] {
			out = append(out, h)
		}
	}
	return out
}

// download fetches each missing commit and its full transitive graph.
func (c *Client) download(r *repo.Repo, missing []vos.OID) error {
	for _, commitID := range missing {
		if err := c.fetchObject(r, commitID); err != nil {
			return err
		}
		obj, err := r.Store.GetObject(commitID, "commit")
		if err != nil {
			return err
		}
		commit := obj.(vos.Commit)
		if err := c.downloadTree(r, commit.Tree); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) downloadTree(r *repo.Repo, treeID vos.OID) error {
	if r.Store.Exists(treeID) {
		return nil
	}
	if err := c.fetchTree(r, treeID); err != nil {
		return err
	}
	obj, err := r.Store.GetObject(treeID, "tree")
	if err != nil {
		return err
	}
	tree := obj.(vos.Tree)
	for _, entry := range tree.Entries {
		switch entry.Mode {
		case vos.ModeDir:
			if err := c.downloadTree(r, entry.ID); err != nil {
				return err
			}
		case vos.ModeFile:
			if err := c.downloadFile(r, entry.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) downloadFile(r *repo.Repo, fileID vos.OID) error {
	if r.Store.Exists(fileID) {
		return nil
	}
	if err := c.fetchFile(r, fileID); err != nil {
		return err
	}
	obj, err := r.Store.GetObject(fileID, "file")
	if err != nil {
		return err
	}
	file := obj.(vos.File)
	if r.Store.Exists(file.RootChunkID) {
		return nil
	}
	return c.fetchObject(r, file.RootChunkID)
}

func (c *Client) fetchObject(r *repo.Repo, id vos.OID) error {
	return c.requestAndStore(r, vnp.Get(id), id)
}

func (c *Client) fetchTree(r *repo.Repo, id vos.OID) error {
	return c.requestAndStore(r, vnp.GetTree(id), id)
}

func (c *Client) fetchFile(r *repo.Repo, id vos.OID) error {
	return c.requestAndStore(r, vnp.GetFile(id), id)
}

// requestAndStore sends request, expects ObjectHeader for id, then reads
// the body and stores it with PutWithID (which re-verifies the digest).
func (c *Client) requestAndStore(r *repo.Repo, request vnp.Message, id vos.OID) error {
	if err := c.send(request); err != nil {
		return err
	}
	header, err := c.recv()
	if err != nil {
		return err
	}
	if header.Type == vnp.TypeError {
		return orbiterr.Newf("syncengine.Client.requestAndStore", orbiterr.NotFound, "server: %s", header.ErrMessage)
	}
	if header.Type != vnp.TypeObjectHeader || header.OID != id {
		return orbiterr.Newf("syncengine.Client.requestAndStore", orbiterr.Protocol, "expected ObjectHeader for %s, got %v", id, header)
	}
	data, err := vnp.RecvObjectData(c.conn, header.Size)
	if err != nil {
		return err
	}
	return r.Store.PutWithID(id, data)
}

// upload computes the full transitive closure reachable from commits and
// serves the server's SendObject requests until it signals Ok.
func (c *Client) upload(r *repo.Repo, commits []vos.OID) error {
	closure := map[vos.OID]bool{}
	for _, commitID := range commits {
		set, err := ObjectClosure(r, commitID)
		if err != nil {
			return err
		}
		for _, v := range set.Values() {
			closure[v.(vos.OID)] = true
		}
	}

	if err := c.send(vnp.Push(commits)); err != nil {
		return err
	}

	for {
		req, err := c.recv()
		if err != nil {
			return err
		}
		switch req.Type {
		case vnp.TypeOk:
			return nil
		case vnp.TypeSendObject:
			if !closure[req.OID] {
				return orbiterr.Newf("syncengine.Client.upload", orbiterr.Protocol, "server requested %s outside the upload closure", req.OID)
			}
			kind, data, err := objectTypeOf(r, req.OID)
			if err != nil {
				return err
			}
			if err := c.send(vnp.ObjectHeader(req.OID, kind, int64(len(data)))); err != nil {
				return err
			}
			if err := vnp.SendObjectData(c.conn, data); err != nil {
				return err
			}
		default:
			return orbiterr.Newf("syncengine.Client.upload", orbiterr.Protocol, "unexpected message during upload: %s", req.Type)
		}
	}
}
