// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunk defines the data model shared by the encode and decode
// paths: the parsed envelope [Header], the store-facing [Chunk], the
// received-fragment bookkeeping ([Fragment], [Status]), and the cached
// [Artifact] produced by a successful assembly.
//
// It also owns the error taxonomy. Every decode-path failure is a
// [*Error] carrying the document code, the fragment index and total,
// and a sentinel reason, so that a scanning UI can say "please re-scan
// fragment 3 of 7" without parsing error strings:
//
//	var chunkErr *chunk.Error
//	if errors.As(err, &chunkErr) && chunkErr.Class == chunk.Conflict {
//	    prompt(chunkErr.Index, chunkErr.Total)
//	}
//
// Errors fall into four classes: [Validation] (malformed line or URL),
// [Conflict] (disagreement with what was already received),
// [Incomplete] (assembling before every fragment arrived), and
// [Corruption] (every fragment arrived but the joined payload does not
// decode). Completeness is a pure counting property; content validity
// is only checked at assembly time.
//
// [SplitByCount] and [SplitBySize] divide a transport-encoded blob into
// the ordered fragments that envelopes frame one by one.
//
// This package depends on no other truthqr packages.
package chunk
