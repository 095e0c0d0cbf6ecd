// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/truthqr/lib/chunk"
	"github.com/bureau-foundation/truthqr/lib/clock"
	"github.com/bureau-foundation/truthqr/lib/sqlitepool"
)

// sqliteSchema is the migration list for the chunk store database.
// Append only: existing databases apply the new entries on open.
var sqliteSchema = []string{
	`
CREATE TABLE chunk_sets (
	code       TEXT PRIMARY KEY,
	total      INTEGER NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	ttl_ms     INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX chunk_sets_expires_at ON chunk_sets (expires_at);

CREATE TABLE chunks (
	code     TEXT NOT NULL REFERENCES chunk_sets (code) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	fragment TEXT NOT NULL,
	PRIMARY KEY (code, position)
);

CREATE TABLE artifacts (
	code   TEXT PRIMARY KEY REFERENCES chunk_sets (code) ON DELETE CASCADE,
	mime   TEXT NOT NULL,
	body   BLOB NOT NULL,
	digest TEXT NOT NULL
);
`,
}

// SQLiteConfig holds the parameters for OpenSQLite.
type SQLiteConfig struct {
	// Path is the database file. Its parent directory must exist.
	Path string

	// PoolSize is passed to sqlitepool. Zero selects its default.
	PoolSize int

	// DefaultTTL applies when a set is created without an explicit
	// TTL. Zero means DefaultTTL.
	DefaultTTL time.Duration

	// Clock decides expiry. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives pool lifecycle and purge messages. Nil discards
	// them.
	Logger *slog.Logger
}

// SQLite is a Store backed by a SQLite database shared between
// processes on one host.
type SQLite struct {
	pool       *sqlitepool.Pool
	clock      clock.Clock
	logger     *slog.Logger
	defaultTTL time.Duration
}

// OpenSQLite opens (or creates) the database at cfg.Path and brings
// its schema up to date. The caller must Close the store.
func OpenSQLite(cfg SQLiteConfig) (*SQLite, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	storeClock := cfg.Clock
	if storeClock == nil {
		storeClock = clock.Real()
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:       cfg.Path,
		PoolSize:   cfg.PoolSize,
		Migrations: sqliteSchema,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("chunkstore: %w", err)
	}

	return &SQLite{
		pool:       pool,
		clock:      storeClock,
		logger:     logger,
		defaultTTL: ttlOrDefault(cfg.DefaultTTL, DefaultTTL),
	}, nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.pool.Close()
}

func (s *SQLite) now() int64 {
	return s.clock.Now().UnixMilli()
}

func (s *SQLite) InitIfMissing(ctx context.Context, code string, total int, ttl time.Duration) error {
	if err := validateInit(code, total); err != nil {
		return err
	}
	ttl = ttlOrDefault(ttl, s.defaultTTL)

	return s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		now := s.now()
		if err := purgeCode(conn, code, now); err != nil {
			return err
		}
		set, found, err := loadSet(conn, code)
		if err != nil {
			return err
		}
		if found {
			if set.total != total {
				return initConflict(code, set.total, total)
			}
			return nil
		}
		return insertSet(conn, code, storedSet{total: total}, ttl, now)
	})
}

func (s *SQLite) PutChunk(ctx context.Context, c chunk.Chunk) error {
	if err := validateChunk(c); err != nil {
		return err
	}

	return s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		now := s.now()
		if err := purgeCode(conn, c.Code, now); err != nil {
			return err
		}
		set, found, err := loadSet(conn, c.Code)
		if err != nil {
			return err
		}
		if !found {
			if err := insertSet(conn, c.Code, storedSet{total: c.Total, kind: c.Kind}, s.defaultTTL, now); err != nil {
				return err
			}
			return insertFragment(conn, c)
		}

		existing, present, err := loadFragment(conn, c.Code, c.Index)
		if err != nil {
			return err
		}
		outcome, kind, err := admit(set.storedSet, c, existing, present)
		if err != nil {
			s.logger.Debug("chunk rejected", "code", c.Code, "index", c.Index, "error", err)
			return err
		}
		if outcome == admitDuplicate {
			return nil
		}
		if err := insertFragment(conn, c); err != nil {
			return err
		}
		// Every accepted fragment slides the expiry forward.
		err = sqlitex.Execute(conn,
			"UPDATE chunk_sets SET kind = ?, expires_at = ? + ttl_ms WHERE code = ?",
			&sqlitex.ExecOptions{Args: []any{kind, now, c.Code}})
		if err != nil {
			return fmt.Errorf("chunkstore: updating set %q: %w", c.Code, err)
		}
		return nil
	})
}

func (s *SQLite) Status(ctx context.Context, code string) (chunk.Status, error) {
	var status chunk.Status
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		set, found, err := loadLiveSet(conn, code, s.now())
		if err != nil {
			return err
		}
		if !found {
			status = chunk.NewStatus(code, "", 0, nil)
			return nil
		}
		var received []int
		err = sqlitex.Execute(conn, "SELECT position FROM chunks WHERE code = ?", &sqlitex.ExecOptions{
			Args: []any{code},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				received = append(received, stmt.ColumnInt(0))
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("chunkstore: reading positions of %q: %w", code, err)
		}
		status = chunk.NewStatus(code, set.kind, set.total, received)
		return nil
	})
	return status, err
}

func (s *SQLite) IsComplete(ctx context.Context, code string) (bool, error) {
	status, err := s.Status(ctx, code)
	if err != nil {
		return false, err
	}
	return status.Complete(), nil
}

func (s *SQLite) Chunks(ctx context.Context, code string) ([]chunk.Fragment, error) {
	fragments := []chunk.Fragment{}
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		_, found, err := loadLiveSet(conn, code, s.now())
		if err != nil || !found {
			return err
		}
		err = sqlitex.Execute(conn, "SELECT position, fragment FROM chunks WHERE code = ? ORDER BY position", &sqlitex.ExecOptions{
			Args: []any{code},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fragments = append(fragments, chunk.Fragment{Index: stmt.ColumnInt(0), Text: stmt.ColumnText(1)})
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("chunkstore: reading fragments of %q: %w", code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fragments, nil
}

func (s *SQLite) SetArtifact(ctx context.Context, code string, artifact chunk.Artifact) error {
	return s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		_, found, err := loadLiveSet(conn, code, s.now())
		if err != nil {
			return err
		}
		if !found {
			return unknownCode(code)
		}
		err = sqlitex.Execute(conn,
			`INSERT INTO artifacts (code, mime, body, digest) VALUES (?, ?, ?, ?)
			 ON CONFLICT (code) DO UPDATE SET mime = excluded.mime, body = excluded.body, digest = excluded.digest`,
			&sqlitex.ExecOptions{Args: []any{code, artifact.MIME, artifact.Body, artifact.Digest}})
		if err != nil {
			return fmt.Errorf("chunkstore: storing artifact of %q: %w", code, err)
		}
		return nil
	})
}

func (s *SQLite) Artifact(ctx context.Context, code string) (chunk.Artifact, bool, error) {
	var (
		artifact chunk.Artifact
		found    bool
	)
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT a.mime, a.body, a.digest FROM artifacts a
			 JOIN chunk_sets s ON s.code = a.code
			 WHERE a.code = ? AND s.expires_at > ?`,
			&sqlitex.ExecOptions{
				Args: []any{code, s.now()},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					body := make([]byte, stmt.ColumnLen(1))
					stmt.ColumnBytes(1, body)
					artifact = chunk.Artifact{MIME: stmt.ColumnText(0), Body: body, Digest: stmt.ColumnText(2)}
					found = true
					return nil
				},
			})
	})
	if err != nil {
		return chunk.Artifact{}, false, fmt.Errorf("chunkstore: reading artifact of %q: %w", code, err)
	}
	return artifact, found, nil
}

func (s *SQLite) Forget(ctx context.Context, code string) error {
	return s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "DELETE FROM chunk_sets WHERE code = ?", &sqlitex.ExecOptions{Args: []any{code}})
		if err != nil {
			return fmt.Errorf("chunkstore: forgetting %q: %w", code, err)
		}
		return nil
	})
}

// PurgeExpired deletes every expired set and returns how many were
// removed. Expired sets are already invisible to reads; purging only
// reclaims space.
func (s *SQLite) PurgeExpired(ctx context.Context) (int, error) {
	var removed int
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, "DELETE FROM chunk_sets WHERE expires_at <= ?", &sqlitex.ExecOptions{Args: []any{s.now()}})
		if err != nil {
			return fmt.Errorf("chunkstore: purging expired sets: %w", err)
		}
		removed = conn.Changes()
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("purged expired chunk sets", "count", removed)
	}
	return removed, nil
}

type sqliteSet struct {
	storedSet
	expiresAt int64
}

func loadSet(conn *sqlite.Conn, code string) (sqliteSet, bool, error) {
	var (
		set   sqliteSet
		found bool
	)
	err := sqlitex.Execute(conn, "SELECT total, kind, expires_at FROM chunk_sets WHERE code = ?", &sqlitex.ExecOptions{
		Args: []any{code},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			set = sqliteSet{
				storedSet: storedSet{total: stmt.ColumnInt(0), kind: stmt.ColumnText(1)},
				expiresAt: stmt.ColumnInt64(2),
			}
			found = true
			return nil
		},
	})
	if err != nil {
		return sqliteSet{}, false, fmt.Errorf("chunkstore: loading set %q: %w", code, err)
	}
	return set, found, nil
}

// loadLiveSet is loadSet for read paths, which cannot purge: an
// expired set reads as absent.
func loadLiveSet(conn *sqlite.Conn, code string, now int64) (sqliteSet, bool, error) {
	set, found, err := loadSet(conn, code)
	if err != nil || !found {
		return set, found, err
	}
	if set.expiresAt <= now {
		return sqliteSet{}, false, nil
	}
	return set, true, nil
}

// purgeCode deletes code's set if it has expired, so a write starts
// from a fresh set.
func purgeCode(conn *sqlite.Conn, code string, now int64) error {
	err := sqlitex.Execute(conn, "DELETE FROM chunk_sets WHERE code = ? AND expires_at <= ?", &sqlitex.ExecOptions{
		Args: []any{code, now},
	})
	if err != nil {
		return fmt.Errorf("chunkstore: purging expired set %q: %w", code, err)
	}
	return nil
}

func insertSet(conn *sqlite.Conn, code string, set storedSet, ttl time.Duration, now int64) error {
	err := sqlitex.Execute(conn,
		"INSERT INTO chunk_sets (code, total, kind, ttl_ms, expires_at) VALUES (?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{code, set.total, set.kind, ttl.Milliseconds(), now + ttl.Milliseconds()}})
	if err != nil {
		return fmt.Errorf("chunkstore: creating set %q: %w", code, err)
	}
	return nil
}

func loadFragment(conn *sqlite.Conn, code string, index int) (string, bool, error) {
	var (
		text  string
		found bool
	)
	err := sqlitex.Execute(conn, "SELECT fragment FROM chunks WHERE code = ? AND position = ?", &sqlitex.ExecOptions{
		Args: []any{code, index},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			text = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("chunkstore: loading fragment %d of %q: %w", index, code, err)
	}
	return text, found, nil
}

func insertFragment(conn *sqlite.Conn, c chunk.Chunk) error {
	err := sqlitex.Execute(conn, "INSERT INTO chunks (code, position, fragment) VALUES (?, ?, ?)", &sqlitex.ExecOptions{
		Args: []any{c.Code, c.Index, c.Fragment},
	})
	if err != nil {
		return fmt.Errorf("chunkstore: storing fragment %d of %q: %w", c.Index, c.Code, err)
	}
	return nil
}
