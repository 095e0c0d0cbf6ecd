// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkstore holds received fragments until a document can be
// assembled.
//
// A chunk set is keyed by document code. The first chunk (or an
// explicit InitIfMissing) fixes the set's total, and the first chunk
// that carries a kind fixes the kind. Later chunks are checked against
// both: a different total or kind is a [chunk.Conflict] error, never
// an overwrite. Re-delivering a fragment with identical content is a
// silent no-op, because scanners routinely see the same QR code twice;
// a different fragment at an already-filled index is rejected with
// [chunk.ErrConflictingDuplicate].
//
// Three backends implement [Store]:
//
//   - [Memory]: maps guarded by one mutex. No expiry. Suitable for a
//     single scanning process and for tests.
//   - [SQLite]: a shared on-disk store for several scanner processes
//     on one host. Every mutation runs in an IMMEDIATE transaction, so
//     the check and the write are atomic. Sets expire after their TTL
//     according to an injected clock; expired sets read as absent and
//     are purged lazily.
//   - [Redis]: the networked backend. Check-and-set runs server-side
//     as Lua scripts; the set's keys share one expiry that slides
//     forward on every accepted fragment.
//
// All backends are safe for concurrent use.
package chunkstore
