// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assembly reconstructs documents from scanned fragment lines.
//
// An [Assembler] wires an envelope, a transport codec, a serializer
// and a chunk store together. IngestLine parses one line and records
// its fragment (still transport-encoded) in the store; Assemble joins
// a complete set in index order, decodes it and caches the result as
// an artifact. Completeness is pure counting: a complete set whose
// payload does not decode fails at Assemble with a [chunk.Corruption]
// error, not at ingest.
//
// A [Session] is the scanning-station view: it locks to the code (and
// document kind) of the first line it accepts, rejects lines for any
// other document, and keeps a log of every rejected line.
package assembly
