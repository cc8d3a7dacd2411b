// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package vos

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// OID is a lowercase-hex Keccak-256 digest, always 64 characters.
type OID string

// OIDLen is the fixed length of an OID string.
const OIDLen = 64

func (id OID) String() string { return string(id) }

// Valid reports whether id has the shape of an OID: 64 lowercase hex chars.
func (id OID) Valid() bool {
	if len(id) != OIDLen {
		return false
	}
	for _, r := range string(id) {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// Digest computes the OID of a raw byte sequence using Keccak-256, the
// pre-standardization construction (NewLegacyKeccak256), not the padded
// NIST SHA3-256. The two differ in padding and produce different digests
// for the same input; every existing object id on disk is Keccak-256.
func Digest(b []byte) OID {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	sum := h.Sum(nil)
	return OID(hex.EncodeToString(sum))
}

// DigestObject computes the OID of a structured object via its canonical
// serialization.
func DigestObject(o Object) (OID, error) {
	b, err := Canonicalize(o)
	if err != nil {
		return "", err
	}
	return Digest(b), nil
}
