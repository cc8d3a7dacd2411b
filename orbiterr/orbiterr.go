// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package orbiterr defines the error taxonomy shared by the object store,
// the sync engine, and the framing layer.
package orbiterr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the categories callers need to
// branch on.
type Kind string

const (
	NotFound     Kind = "not_found"
	Corrupt      Kind = "corrupt"
	Protocol     Kind = "protocol"
	Auth         Kind = "auth"
	Access       Kind = "access"
	Transport    Kind = "transport"
	Precondition Kind = "precondition"
)

// Error wraps an underlying cause with a taxonomy Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("orbit: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("orbit: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &orbiterr.Error{Kind: orbiterr.NotFound}) matches any
// NotFound error; HasKind below is the shorter form of that check.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return e.Kind == o.Kind
	}
	return false
}

// New builds an Error for operation op with the given kind and cause.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Newf builds an Error with a formatted cause.
func Newf(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, returning ok=false if err does not
// carry one.
func KindOf(err error) (Kind, bool) {
	var o *Error
	if errors.As(err, &o) {
		return o.Kind, true
	}
	return "", false
}

// HasKind reports whether err (or anything it wraps) carries the given Kind.
func HasKind(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}
