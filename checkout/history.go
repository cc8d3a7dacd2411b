// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package checkout

import (
	"github.com/passadis/orbit/repo"
	"github.com/passadis/orbit/vos"
)

// LogEntry is one commit in a linear history listing.
type LogEntry struct {
	ID     vos.OID
	Commit vos.Commit
}

// History walks backward from the tip via first-parent. History is a
// single linear chain here; merge traversal does not exist.
func History(r *repo.Repo) ([]LogEntry, error) {
	tip, err := r.Refs.Tip()
	if err != nil {
		return nil, err
	}

	var log []LogEntry
	for tip != "" {
		obj, err := r.Store.GetObject(tip, "commit")
		if err != nil {
			return nil, err
		}
		commit := obj.(vos.Commit)
		log = append(log, LogEntry{ID: tip, Commit: commit})

		if len(commit.Parents) == 0 {
			break
		}
		tip = commit.Parents[0]
	}
	return log, nil
}
