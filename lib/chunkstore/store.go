// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

// DefaultTTL is how long an untouched chunk set lives in a backend that
// enforces expiry.
const DefaultTTL = 24 * time.Hour

// ErrUnknownCode is returned by SetArtifact when the code has no chunk
// set (never created, forgotten or expired).
var ErrUnknownCode = errors.New("chunkstore: unknown code")

// Store is the persistence contract the assembler depends on.
type Store interface {
	// InitIfMissing creates an empty chunk set for code. It is a no-op
	// if the set exists with the same total. A zero ttl selects the
	// backend default.
	InitIfMissing(ctx context.Context, code string, total int, ttl time.Duration) error

	// PutChunk records one fragment, creating the set on first sight.
	PutChunk(ctx context.Context, c chunk.Chunk) error

	// Status reports what has been received. Unknown codes yield a
	// zero total and no missing indices.
	Status(ctx context.Context, code string) (chunk.Status, error)

	// IsComplete reports whether every fragment has been received.
	IsComplete(ctx context.Context, code string) (bool, error)

	// Chunks returns every received fragment in ascending index
	// order. It does not require the set to be complete.
	Chunks(ctx context.Context, code string) ([]chunk.Fragment, error)

	// SetArtifact caches the assembled document for code.
	SetArtifact(ctx context.Context, code string, artifact chunk.Artifact) error

	// Artifact returns the cached document, if any.
	Artifact(ctx context.Context, code string) (chunk.Artifact, bool, error)

	// Forget removes all state for code, artifact included.
	Forget(ctx context.Context, code string) error
}

// ClosableStore is a Store that owns resources, as returned by the
// Open and Dial constructors.
type ClosableStore interface {
	Store
	io.Closer
}

// validateChunk applies the header invariants to a chunk before any
// backend touches its state.
func validateChunk(c chunk.Chunk) error {
	header := chunk.Header{Code: c.Code, Index: c.Index, Total: c.Total}
	return header.Validate()
}

// validateInit applies the same checks to an InitIfMissing call.
func validateInit(code string, total int) error {
	header := chunk.Header{Code: code, Index: 1, Total: total}
	return header.Validate()
}

// admission is the outcome of comparing a chunk with stored state.
type admission int

const (
	admitStore admission = iota
	admitDuplicate
)

// storedSet is the part of a chunk set that admit compares against.
type storedSet struct {
	total int
	kind  string
}

// admit decides whether c may be written to a set. existing is the
// fragment already stored at c.Index, if present. The returned kind is
// the kind the set has once c is stored; callers persist it only for
// admitStore, so a duplicate or rejected chunk never changes the set.
func admit(set storedSet, c chunk.Chunk, existing string, present bool) (admission, string, error) {
	if set.total != c.Total {
		return 0, "", chunk.Conflicting(chunk.ErrTotalMismatch, c,
			"code %q has total %d, chunk says %d", c.Code, set.total, c.Total)
	}
	kind := set.kind
	if c.Kind != "" {
		switch kind {
		case "":
			kind = c.Kind
		case c.Kind:
		default:
			return 0, "", chunk.Conflicting(chunk.ErrKindMismatch, c,
				"code %q holds kind %q, chunk is kind %q", c.Code, set.kind, c.Kind)
		}
	}
	if present {
		if existing == c.Fragment {
			return admitDuplicate, kind, nil
		}
		return 0, "", chunk.Conflicting(chunk.ErrConflictingDuplicate, c,
			"code %q already holds a different fragment %d", c.Code, c.Index)
	}
	return admitStore, kind, nil
}

// initConflict is the error for InitIfMissing on a set with another
// total.
func initConflict(code string, stored, requested int) error {
	return chunk.Conflicting(chunk.ErrTotalMismatch, chunk.Chunk{Code: code, Total: requested},
		"code %q has total %d, init requested %d", code, stored, requested)
}

func ttlOrDefault(ttl, fallback time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTTL
}

func unknownCode(code string) error {
	return fmt.Errorf("%w %q", ErrUnknownCode, code)
}
