// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command orb is the CLI surface for the Orbit version-control engine.
// Subcommands are dispatched by name from os.Args; those that take flags
// parse them with their own plain flag.FlagSet.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/passadis/orbit/adminapi"
	"github.com/passadis/orbit/checkout"
	"github.com/passadis/orbit/gitimport"
	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/snapshot"
	"github.com/passadis/orbit/status"
	"github.com/passadis/orbit/syncengine"
	"github.com/passadis/orbit/token"
	"github.com/passadis/orbit/urlutil"
	"github.com/passadis/orbit/vos"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit(os.Args[2:])
	case "save":
		err = cmdSave(os.Args[2:])
	case "status":
		err = cmdStatus(os.Args[2:])
	case "history":
		err = cmdHistory(os.Args[2:])
	case "revert":
		err = cmdRevert(os.Args[2:])
	case "checkout":
		err = cmdCheckout(os.Args[2:])
	case "fetch":
		err = cmdFetch(os.Args[2:])
	case "sync":
		err = cmdSync(os.Args[2:])
	case "clone":
		err = cmdClone(os.Args[2:])
	case "list-repos":
		err = cmdListRepos(os.Args[2:])
	case "register":
		err = cmdRegister(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "orb: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: orb <command> [arguments]

commands:
  init                        initialize a repository in the current directory
  save -m <message>           snapshot the working tree
  status                      show changes against the last snapshot
  history                     show commit history
  revert [paths...]           restore paths (or everything) from the tip
  checkout <commit>           materialize a commit onto the working tree
  fetch <git-url> [target]    import a Git repository as an Orbit history
  sync -url <remote> -repo <name> [-create]   synchronize with a remote
  clone -url <remote> -repo <name> <dir>      clone a remote repository
  list-repos -url <remote>    list repositories hosted by a remote
  register -email <addr> -server <host>       register a user account`)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory to initialize")
	fs.Parse(args)

	if _, err := repo.Init(*dir); err != nil {
		return err
	}
	fmt.Println("initialized empty Orbit repository in", *dir)
	return nil
}

func cmdSave(args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	message := fs.String("m", "", "commit message")
	author := fs.String("author", "orbit", "commit author")
	fs.Parse(args)

	r, err := repo.Open(".")
	if err != nil {
		return err
	}
	result, err := snapshot.Snapshot(r, *message, snapshot.WithAuthor(*author))
	if err != nil {
		return err
	}
	fmt.Println("snapshot", result.CommitID)
	return nil
}

func cmdStatus(args []string) error {
	r, err := repo.Open(".")
	if err != nil {
		return err
	}
	entries, err := status.Check(r)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("working tree clean")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-10s %s\n", e.State, e.Path)
	}
	return nil
}

func cmdHistory(args []string) error {
	r, err := repo.Open(".")
	if err != nil {
		return err
	}
	log, err := checkout.History(r)
	if err != nil {
		return err
	}
	for _, e := range log {
		fmt.Printf("commit %s\nAuthor: %s\nMessage: %s\n\n", e.ID, e.Commit.Author, e.Commit.Message)
	}
	return nil
}

func cmdRevert(args []string) error {
	r, err := repo.Open(".")
	if err != nil {
		return err
	}
	return checkout.Revert(r, args)
}

func cmdCheckout(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: orb checkout <commit>")
	}
	r, err := repo.Open(".")
	if err != nil {
		return err
	}
	return checkout.Checkout(r, vos.OID(args[0]))
}

func cmdFetch(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: orb fetch <git-url> [target]")
	}
	url := args[0]
	target := ""
	if len(args) > 1 {
		target = args[1]
	} else {
		target = strings.TrimSuffix(url[strings.LastIndex(url, "/")+1:], ".git")
	}
	result, err := gitimport.Import(url, target)
	if err != nil {
		return err
	}
	fmt.Printf("converted %d commits, tip %s\n", result.CommitCount, result.Tip)
	return nil
}

func cmdSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	rawURL := fs.String("url", "", "remote URL")
	repoName := fs.String("repo", "", "repository name")
	create := fs.Bool("create", false, "create the repository if missing")
	fs.Parse(args)

	r, err := repo.Open(".")
	if err != nil {
		return err
	}
	c, err := dial(*rawURL)
	if err != nil {
		return err
	}
	defer c.Close()

	if *repoName != "" {
		if err := c.SelectRepository(*repoName, *create); err != nil {
			return err
		}
	}
	if err := c.Sync(r); err != nil {
		return err
	}
	fmt.Println("sync complete")
	return nil
}

func cmdClone(args []string) error {
	fs := flag.NewFlagSet("clone", flag.ExitOnError)
	rawURL := fs.String("url", "", "remote URL")
	repoName := fs.String("repo", "", "repository name")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: orb clone -url <remote> -repo <name> <dir>")
	}
	dir := rest[0]

	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("target directory %q already exists", dir)
	}
	r, err := repo.Init(dir)
	if err != nil {
		return err
	}
	c, err := dial(*rawURL)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SelectRepository(*repoName, false); err != nil {
		return err
	}
	if err := c.Sync(r); err != nil {
		return err
	}
	fmt.Println("cloned into", dir)
	return nil
}

func cmdListRepos(args []string) error {
	fs := flag.NewFlagSet("list-repos", flag.ExitOnError)
	rawURL := fs.String("url", "", "remote URL")
	fs.Parse(args)

	c, err := dial(*rawURL)
	if err != nil {
		return err
	}
	defer c.Close()
	names, err := c.ListRepositories()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func cmdRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "email address to register")
	server := fs.String("server", "", "server host (admin API listens on :8081)")
	fs.Parse(args)

	if !adminapi.ValidUsername(*email) {
		return fmt.Errorf("invalid email format: %s", *email)
	}
	u, err := urlutil.Parse(*server)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"username":     *email,
		"repositories": []string{},
		"permissions":  map[string]bool{"read": true, "write": true, "admin": false},
	})
	if err != nil {
		return err
	}

	adminURL := fmt.Sprintf("http://%s:8081/admin/users", u.Host)
	resp, err := http.Post(adminURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("registering with %s: %w", adminURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("registration failed: server returned %s", resp.Status)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	fmt.Println("registered", *email)
	fmt.Println("token:", out.Token)
	return nil
}

// dial resolves a token, parses rawURL, connects, and authenticates,
// returning a ready-to-use syncengine.Client.
func dial(rawURL string) (*syncengine.Client, error) {
	tok, err := token.Resolve()
	if err != nil {
		return nil, err
	}
	u, err := urlutil.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := syncengine.Dial(u)
	if err != nil {
		return nil, err
	}
	c := syncengine.NewClient(conn)
	if err := c.Authenticate(tok); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
