// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Stores that expire fragment sets take a Clock instead of calling
// time.Now directly. Production code passes Real(); tests pass Fake()
// and move time with Advance or Set:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store, err := chunkstore.OpenSQLite(chunkstore.SQLiteConfig{Path: path, Clock: c})
//	c.Advance(25 * time.Hour) // every set with a 24h TTL is now expired
package clock
