// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package identity computes stable, location-independent symbol identities
// and diffs a file's previously stored symbol set against a fresh
// extraction.
package identity

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/kraklabs/codegraph/internal/model"
)

// StableID derives a symbol's identity from (qualname, signature, kind)
// only — never from byte offsets or line numbers — so whitespace edits,
// line shifts, and moves that preserve the declaration yield the same id.
//
// This follows a sha256-then-truncate style, but deliberately drops
// line/column inputs, which would otherwise defeat the whole point of a
// "stable" id.
func StableID(qualname, signature string, kind model.SymbolKind) uint64 {
	h := sha256.New()
	h.Write([]byte(qualname))
	h.Write([]byte{0})
	h.Write([]byte(signature))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
