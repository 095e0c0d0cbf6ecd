// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

// DefaultNamespace prefixes every key the Redis store writes.
const DefaultNamespace = "truthqr"

// Lua scripts run atomically on the server, which makes the
// check-and-set of InitIfMissing and PutChunk safe under concurrent
// writers on different hosts. KEYS are always meta, chunks, artifact.
var (
	initScript = redis.NewScript(`
local total = redis.call('HGET', KEYS[1], 'total')
if total then
	if total ~= ARGV[1] then
		return {'total', total}
	end
	return {'exists'}
end
redis.call('HSET', KEYS[1], 'total', ARGV[1], 'kind', '', 'ttl', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {'created'}
`)

	// ARGV: total, kind, index, fragment, default ttl (ms).
	putScript = redis.NewScript(`
local meta = redis.call('HMGET', KEYS[1], 'total', 'kind', 'ttl')
local total, kind, ttl = meta[1], meta[2], meta[3]
if not total then
	total, kind, ttl = ARGV[1], ARGV[2], ARGV[5]
	redis.call('HSET', KEYS[1], 'total', total, 'kind', kind, 'ttl', ttl)
else
	if total ~= ARGV[1] then
		return {'total', total}
	end
	if not kind then
		kind = ''
	end
	if ARGV[2] ~= '' then
		if kind == '' then
			kind = ARGV[2]
		elseif kind ~= ARGV[2] then
			return {'kind', kind}
		end
	end
end
local existing = redis.call('HGET', KEYS[2], ARGV[3])
if existing then
	if existing == ARGV[4] then
		return {'duplicate'}
	end
	return {'conflict'}
end
redis.call('HSET', KEYS[2], ARGV[3], ARGV[4])
redis.call('HSET', KEYS[1], 'kind', kind)
redis.call('PEXPIRE', KEYS[1], ttl)
redis.call('PEXPIRE', KEYS[2], ttl)
if redis.call('EXISTS', KEYS[3]) == 1 then
	redis.call('PEXPIRE', KEYS[3], ttl)
end
return {'stored'}
`)

	// ARGV: mime, body, digest.
	artifactScript = redis.NewScript(`
local remaining = redis.call('PTTL', KEYS[1])
if remaining == -2 then
	return 0
end
redis.call('HSET', KEYS[3], 'mime', ARGV[1], 'body', ARGV[2], 'digest', ARGV[3])
if remaining > 0 then
	redis.call('PEXPIRE', KEYS[3], remaining)
end
return 1
`)
)

// RedisConfig holds the parameters for a Redis store.
type RedisConfig struct {
	// Namespace prefixes every key. Empty means DefaultNamespace.
	Namespace string

	// DefaultTTL applies when a set is created by PutChunk or by
	// InitIfMissing without an explicit TTL. Zero means DefaultTTL.
	DefaultTTL time.Duration

	// Logger receives rejected-chunk messages. Nil discards them.
	Logger *slog.Logger
}

// Redis is a Store backed by a Redis server (or cluster). Each set
// lives in three hashes whose keys share a hash tag, so cluster
// deployments keep a set on one slot and the Lua scripts stay legal.
type Redis struct {
	client     redis.UniversalClient
	namespace  string
	defaultTTL time.Duration
	logger     *slog.Logger
	owned      bool
}

// NewRedis returns a store using client. The caller keeps ownership
// of client; Close on the returned store does not close it.
func NewRedis(client redis.UniversalClient, cfg RedisConfig) *Redis {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Redis{
		client:     client,
		namespace:  namespace,
		defaultTTL: ttlOrDefault(cfg.DefaultTTL, DefaultTTL),
		logger:     logger,
	}
}

// DialRedis connects to the server at addr and verifies it answers.
// The returned store owns the connection; Close releases it.
func DialRedis(ctx context.Context, addr string, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("chunkstore: connecting to redis at %s: %w", addr, err)
	}
	store := NewRedis(client, cfg)
	store.owned = true
	return store, nil
}

// Close closes the client if the store owns it.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

// keys returns the meta, chunks and artifact keys for code.
func (r *Redis) keys(code string) []string {
	base := r.namespace + ":{" + code + "}:"
	return []string{base + "meta", base + "chunks", base + "artifact"}
}

func (r *Redis) InitIfMissing(ctx context.Context, code string, total int, ttl time.Duration) error {
	if err := validateInit(code, total); err != nil {
		return err
	}
	ttl = ttlOrDefault(ttl, r.defaultTTL)

	reply, err := initScript.Run(ctx, r.client, r.keys(code), total, ttl.Milliseconds()).StringSlice()
	if err != nil {
		return fmt.Errorf("chunkstore: redis init %q: %w", code, err)
	}
	if reply[0] == "total" {
		stored, _ := strconv.Atoi(reply[1])
		return initConflict(code, stored, total)
	}
	return nil
}

func (r *Redis) PutChunk(ctx context.Context, c chunk.Chunk) error {
	if err := validateChunk(c); err != nil {
		return err
	}

	reply, err := putScript.Run(ctx, r.client, r.keys(c.Code),
		c.Total, c.Kind, c.Index, c.Fragment, r.defaultTTL.Milliseconds()).StringSlice()
	if err != nil {
		return fmt.Errorf("chunkstore: redis put %q fragment %d: %w", c.Code, c.Index, err)
	}

	var rejection error
	switch reply[0] {
	case "stored", "duplicate":
		return nil
	case "total":
		rejection = chunk.Conflicting(chunk.ErrTotalMismatch, c,
			"code %q has total %s, chunk says %d", c.Code, reply[1], c.Total)
	case "kind":
		rejection = chunk.Conflicting(chunk.ErrKindMismatch, c,
			"code %q holds kind %q, chunk is kind %q", c.Code, reply[1], c.Kind)
	case "conflict":
		rejection = chunk.Conflicting(chunk.ErrConflictingDuplicate, c,
			"code %q already holds a different fragment %d", c.Code, c.Index)
	default:
		return fmt.Errorf("chunkstore: redis put %q: unexpected script reply %q", c.Code, reply[0])
	}
	r.logger.Debug("chunk rejected", "code", c.Code, "index", c.Index, "error", rejection)
	return rejection
}

func (r *Redis) Status(ctx context.Context, code string) (chunk.Status, error) {
	keys := r.keys(code)
	var (
		meta    *redis.SliceCmd
		indices *redis.StringSliceCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		meta = pipe.HMGet(ctx, keys[0], "total", "kind")
		indices = pipe.HKeys(ctx, keys[1])
		return nil
	})
	if err != nil {
		return chunk.Status{}, fmt.Errorf("chunkstore: redis status %q: %w", code, err)
	}

	values := meta.Val()
	totalText, ok := values[0].(string)
	if !ok {
		return chunk.NewStatus(code, "", 0, nil), nil
	}
	total, err := strconv.Atoi(totalText)
	if err != nil {
		return chunk.Status{}, fmt.Errorf("chunkstore: redis status %q: bad total %q", code, totalText)
	}
	kind, _ := values[1].(string)

	received := make([]int, 0, len(indices.Val()))
	for _, field := range indices.Val() {
		index, err := strconv.Atoi(field)
		if err != nil {
			return chunk.Status{}, fmt.Errorf("chunkstore: redis status %q: bad index %q", code, field)
		}
		received = append(received, index)
	}
	return chunk.NewStatus(code, kind, total, received), nil
}

func (r *Redis) IsComplete(ctx context.Context, code string) (bool, error) {
	status, err := r.Status(ctx, code)
	if err != nil {
		return false, err
	}
	return status.Complete(), nil
}

func (r *Redis) Chunks(ctx context.Context, code string) ([]chunk.Fragment, error) {
	stored, err := r.client.HGetAll(ctx, r.keys(code)[1]).Result()
	if err != nil {
		return nil, fmt.Errorf("chunkstore: redis chunks %q: %w", code, err)
	}
	fragments := make([]chunk.Fragment, 0, len(stored))
	for field, text := range stored {
		index, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("chunkstore: redis chunks %q: bad index %q", code, field)
		}
		fragments = append(fragments, chunk.Fragment{Index: index, Text: text})
	}
	chunk.SortFragments(fragments)
	return fragments, nil
}

func (r *Redis) SetArtifact(ctx context.Context, code string, artifact chunk.Artifact) error {
	stored, err := artifactScript.Run(ctx, r.client, r.keys(code),
		artifact.MIME, artifact.Body, artifact.Digest).Int()
	if err != nil {
		return fmt.Errorf("chunkstore: redis set artifact %q: %w", code, err)
	}
	if stored == 0 {
		return unknownCode(code)
	}
	return nil
}

func (r *Redis) Artifact(ctx context.Context, code string) (chunk.Artifact, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.keys(code)[2]).Result()
	if err != nil {
		return chunk.Artifact{}, false, fmt.Errorf("chunkstore: redis artifact %q: %w", code, err)
	}
	if len(fields) == 0 {
		return chunk.Artifact{}, false, nil
	}
	return chunk.Artifact{
		MIME:   fields["mime"],
		Body:   []byte(fields["body"]),
		Digest: fields["digest"],
	}, true, nil
}

func (r *Redis) Forget(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, r.keys(code)...).Err(); err != nil {
		return fmt.Errorf("chunkstore: redis forget %q: %w", code, err)
	}
	return nil
}
