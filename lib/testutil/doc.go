// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for truthqr packages.
//
// [UniqueCode] generates document codes that never collide across
// tests sharing one store or one Redis namespace.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) for tests that wait
// on goroutines, such as concurrent ingestion or the expiry sweeper.
//
// [DatabasePath] returns a fresh SQLite file path inside t.TempDir().
//
// [Permute] returns a deterministic shuffle of framed fragments so
// that out-of-order tests are reproducible.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
