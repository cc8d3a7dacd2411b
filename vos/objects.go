// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package vos

import (
	"encoding/json"
	"fmt"
)

// Mode is the Tree entry type discriminator.
type Mode int

const (
	ModeFile Mode = 0o100644
	ModeDir  Mode = 0o040000
)

// Object is the closed sum of the four structured kinds that carry an OID.
// Chunk is not an Object: it has no envelope, just raw bytes.
type Object interface {
	objectKind() string
}

// File is a structured descriptor of one file's content.
type File struct {
	RootChunkID OID   `json:"root_chunk_id"`
	Size        int64 `json:"size"`
}

func (File) objectKind() string { return "file" }

// TreeEntry is one named entry inside a Tree, ordered as the snapshot
// pipeline produced it.
type TreeEntry struct {
	Mode Mode   `json:"mode"`
	Name string `json:"name"`
	ID   OID    `json:"id"`
}

// Tree is an ordered directory listing.
type Tree struct {
	Entries []TreeEntry `json:"entries"`
}

func (Tree) objectKind() string { return "tree" }

// Commit links a root Tree to its parent history.
type Commit struct {
	Tree      OID     `json:"tree"`
	Parents   []OID   `json:"parents"`
	Author    string  `json:"author"`
	Timestamp int64   `json:"timestamp"`
	Message   string  `json:"message"`
	Signature *string `json:"signature"`
}

func (Commit) objectKind() string { return "commit" }

// Canonicalize produces the stable byte form whose digest is the object's
// OID. encoding/json emits struct fields in declaration order, which is
// why the structs above declare fields in the exact order the wire format
// fixes. This function must never be fed a map-based representation of
// these types: maps have no stable key order.
func Canonicalize(o Object) ([]byte, error) {
	switch v := o.(type) {
	case Commit:
		return json.Marshal(v)
	case *Commit:
		return json.Marshal(v)
	case Tree:
		if v.Entries == nil {
			v.Entries = []TreeEntry{}
		}
		return json.Marshal(v)
	case *Tree:
		if v.Entries == nil {
			v.Entries = []TreeEntry{}
		}
		return json.Marshal(v)
	case File:
		return json.Marshal(v)
	case *File:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("vos: unknown object type %T", o)
	}
}

// Kind returns the lowercase wire name for a structured object. Callers
// holding raw chunk bytes use the literal "chunk"; Chunk has no Go type.
func Kind(o Object) string { return o.objectKind() }

// Classify attempts to parse raw bytes as a Commit, then a Tree, then a
// File; anything that parses as none of those is a Chunk. This mirrors the
// off-wire discrimination the sync engine's upload path needs when it only
// has bytes read back from the object store.
func Classify(b []byte) (kind string, obj Object) {
	var c Commit
	if json.Unmarshal(b, &c) == nil && looksLikeCommit(b) {
		return "commit", c
	}
	var t Tree
	if json.Unmarshal(b, &t) == nil && looksLikeTree(b) {
		return "tree", t
	}
	var f File
	if json.Unmarshal(b, &f) == nil && looksLikeFile(b) {
		return "file", f
	}
	return "chunk", nil
}

// looksLikeX guards against json.Unmarshal's permissive zero-value
// tolerance: an empty byte chunk is valid JSON for none of these types, but
// "{}" would otherwise decode into every struct simultaneously. Each check
// requires the one field no other object type has.
func looksLikeCommit(b []byte) bool {
	var probe struct {
		Tree    *string `json:"tree"`
		Author  *string `json:"author"`
		Message *string `json:"message"`
	}
	return json.Unmarshal(b, &probe) == nil && probe.Tree != nil && probe.Author != nil && probe.Message != nil
}

func looksLikeTree(b []byte) bool {
	var probe struct {
		Entries *[]TreeEntry `json:"entries"`
	}
	return json.Unmarshal(b, &probe) == nil && probe.Entries != nil
}

func looksLikeFile(b []byte) bool {
	var probe struct {
		RootChunkID *string `json:"root_chunk_id"`
		Size        *int64  `json:"size"`
	}
	return json.Unmarshal(b, &probe) == nil && probe.RootChunkID != nil && probe.Size != nil
}
