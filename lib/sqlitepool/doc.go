// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool behind the
// durable chunk store.
//
// It wraps zombiezen.com/go/sqlite with fixed pragmas, a versioned
// migration list applied once at Open, and two helpers that pair a
// borrowed connection with the right transaction discipline:
//
//   - [Pool.Write] takes a connection and runs the callback inside a
//     BEGIN IMMEDIATE transaction. The write lock is acquired up front,
//     so two writers racing on the same fragment set serialize instead
//     of failing with SQLITE_BUSY at commit.
//   - [Pool.Read] takes a connection and runs the callback inside a
//     savepoint, giving it a consistent snapshot.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: concurrent readers and a single writer.
//   - synchronous=NORMAL: commits survive process crashes.
//   - busy_timeout: wait for the write lock instead of returning
//     SQLITE_BUSY immediately (default 5s).
//   - foreign_keys=ON: fragment rows cascade with their set.
//   - temp_store=MEMORY.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:       "/var/lib/truthqr/chunks.db",
//	    Migrations: schema,
//	    Logger:     logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "DELETE FROM chunk_sets WHERE code = ?", &sqlitex.ExecOptions{Args: []any{code}})
//	})
package sqlitepool
