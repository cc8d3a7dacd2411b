// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package adminapi implements the administrative HTTP endpoint for
// minting sync tokens: POST /admin/users, backed by a SQLite user table.
// The sync engine only ever sees an opaque token string; everything about
// users, repositories, and permissions lives here.
package adminapi

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/passadis/orbit/orbiterr"
)

// Permissions is the {read,write,admin} object carried by a registration
// request.
type Permissions struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
	Admin bool `json:"admin"`
}

// User is one registered account.
type User struct {
	Username     string
	Token        string
	Repositories []string
	Permissions  Permissions
}

// Store persists users and their tokens in SQLite: WAL mode,
// database/sql, a minimal schema.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, orbiterr.New("adminapi.Open", orbiterr.Transport, err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, orbiterr.New("adminapi.Open", orbiterr.Transport, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, orbiterr.New("adminapi.Open", orbiterr.Transport, err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		username     TEXT PRIMARY KEY,
		token        TEXT NOT NULL UNIQUE,
		repositories TEXT NOT NULL,
		can_read     INTEGER NOT NULL,
		can_write    INTEGER NOT NULL,
		can_admin    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_token ON users(token);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return orbiterr.New("adminapi.ensureSchema", orbiterr.Transport, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Register inserts a new user with a freshly minted token, failing with
// Precondition if the username is already registered.
func (s *Store) Register(ctx context.Context, username string, repositories []string, perms Permissions) (*User, error) {
	token, err := randomToken()
	if err != nil {
		return nil, orbiterr.New("adminapi.Register", orbiterr.Transport, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (username, token, repositories, can_read, can_write, can_admin)
		VALUES (?, ?, ?, ?, ?, ?)
	`, username, token, encodeRepositories(repositories), boolInt(perms.Read), boolInt(perms.Write), boolInt(perms.Admin))
	if err != nil {
		return nil, orbiterr.New("adminapi.Register", orbiterr.Precondition, fmt.Errorf("username %q already registered: %w", username, err))
	}

	return &User{Username: username, Token: token, Repositories: repositories, Permissions: perms}, nil
}

// Verify reports whether token belongs to a registered user. It satisfies
// syncengine.Authenticator.
func (s *Store) Verify(token string) bool {
	var username string
	err := s.db.QueryRow(`SELECT username FROM users WHERE token = ?`, token).Scan(&username)
	return err == nil
}

// UserByToken returns the registered user owning token, if any.
func (s *Store) UserByToken(ctx context.Context, token string) (*User, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT username, token, repositories, can_read, can_write, can_admin FROM users WHERE token = ?`, token)

	var (
		u                  User
		repos              string
		read, write, admin int
	)
	if err := row.Scan(&u.Username, &u.Token, &repos, &read, &write, &admin); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, orbiterr.New("adminapi.UserByToken", orbiterr.Transport, err)
	}
	u.Repositories = decodeRepositories(repos)
	u.Permissions = Permissions{Read: read != 0, Write: write != 0, Admin: admin != 0}
	return &u, true, nil
}

func randomToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeRepositories(repos []string) string {
	return strings.Join(repos, ",")
}

func decodeRepositories(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
