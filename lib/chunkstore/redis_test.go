// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bureau-foundation/truthqr/lib/chunk"
	"github.com/bureau-foundation/truthqr/lib/testutil"
)

var _ ClosableStore = (*Redis)(nil)

func startRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return server, client
}

func TestRedisStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		_, client := startRedis(t)
		return NewRedis(client, RedisConfig{Namespace: testutil.UniqueCode("suite")})
	})
}

func TestRedisKeyLayout(t *testing.T) {
	server, client := startRedis(t)
	store := NewRedis(client, RedisConfig{Namespace: "scan"})
	ctx := context.Background()

	put(t, store, "precinct-4", 2, 3, "bb")
	if err := store.SetArtifact(ctx, "precinct-4", chunk.NewArtifact("application/json", []byte("{}"))); err != nil {
		t.Fatalf("SetArtifact: %v", err)
	}

	if got := server.HGet("scan:{precinct-4}:meta", "total"); got != "3" {
		t.Errorf("meta total = %q, want 3", got)
	}
	if got := server.HGet("scan:{precinct-4}:meta", "kind"); got != "ER" {
		t.Errorf("meta kind = %q, want ER", got)
	}
	if got := server.HGet("scan:{precinct-4}:chunks", "2"); got != "bb" {
		t.Errorf("chunks[2] = %q, want bb", got)
	}
	if got := server.HGet("scan:{precinct-4}:artifact", "mime"); got != "application/json" {
		t.Errorf("artifact mime = %q", got)
	}
	for _, key := range []string{"scan:{precinct-4}:meta", "scan:{precinct-4}:chunks", "scan:{precinct-4}:artifact"} {
		if ttl := server.TTL(key); ttl <= 0 || ttl > DefaultTTL {
			t.Errorf("TTL(%s) = %v, want within (0, %v]", key, ttl, DefaultTTL)
		}
	}
}

func TestRedisExpiry(t *testing.T) {
	server, client := startRedis(t)
	store := NewRedis(client, RedisConfig{DefaultTTL: 2 * time.Hour})
	ctx := context.Background()

	if err := store.InitIfMissing(ctx, "short", 3, time.Hour); err != nil {
		t.Fatalf("InitIfMissing: %v", err)
	}
	put(t, store, "short", 1, 3, "a")
	put(t, store, "default", 1, 2, "a")

	// Accepting a fragment slides the expiry forward.
	server.FastForward(50 * time.Minute)
	put(t, store, "short", 2, 3, "b")
	server.FastForward(50 * time.Minute)
	if got := status(t, store, "short"); got.Received != 2 {
		t.Fatalf("set expired despite recent write: %+v", got)
	}
	if got := status(t, store, "default"); got.Total != 2 {
		t.Fatalf("default-TTL set expired early: %+v", got)
	}

	server.FastForward(time.Hour)
	if got := status(t, store, "short"); got.Total != 0 {
		t.Errorf("Status of expired set = %+v", got)
	}
	if got := status(t, store, "default"); got.Total != 0 {
		t.Errorf("Status of expired default-TTL set = %+v", got)
	}
	if err := store.SetArtifact(ctx, "short", chunk.NewArtifact("application/json", []byte("{}"))); !errors.Is(err, ErrUnknownCode) {
		t.Errorf("SetArtifact on expired set = %v", err)
	}

	put(t, store, "short", 1, 9, "z")
	if got := status(t, store, "short"); got.Total != 9 {
		t.Errorf("Status after reuse = %+v", got)
	}
}

func TestRedisArtifactSharesExpiry(t *testing.T) {
	server, client := startRedis(t)
	store := NewRedis(client, RedisConfig{DefaultTTL: time.Hour})
	ctx := context.Background()

	put(t, store, "code", 1, 1, "a")
	if err := store.SetArtifact(ctx, "code", chunk.NewArtifact("application/yaml", []byte("a: 1\n"))); err != nil {
		t.Fatalf("SetArtifact: %v", err)
	}
	server.FastForward(59 * time.Minute)
	if _, ok, _ := store.Artifact(ctx, "code"); !ok {
		t.Fatal("artifact expired before its set")
	}
	server.FastForward(2 * time.Minute)
	if _, ok, _ := store.Artifact(ctx, "code"); ok {
		t.Error("artifact outlived its set")
	}
}

func TestRedisNamespacesAreIsolated(t *testing.T) {
	_, client := startRedis(t)
	stations := NewRedis(client, RedisConfig{Namespace: "station"})
	central := NewRedis(client, RedisConfig{Namespace: "central"})

	put(t, stations, "code", 1, 2, "a")
	put(t, central, "code", 1, 3, "different")
	if got := status(t, stations, "code"); got.Total != 2 {
		t.Errorf("Status(station) = %+v", got)
	}
}

func TestDialRedis(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	ctx := context.Background()

	store, err := DialRedis(ctx, addr, RedisConfig{})
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	put(t, store, "code", 1, 1, "a")
	if err := store.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	server.Close()
	if _, err := DialRedis(ctx, addr, RedisConfig{}); err == nil {
		t.Error("DialRedis to a stopped server succeeded")
	}
}

func TestRedisServerError(t *testing.T) {
	server, client := startRedis(t)
	store := NewRedis(client, RedisConfig{})
	server.SetError("LOADING server is loading")

	err := store.PutChunk(context.Background(), chunk.Chunk{Code: "c", Index: 1, Total: 1, Fragment: "a"})
	if err == nil {
		t.Fatal("PutChunk succeeded against a failing server")
	}
	if chunk.ClassOf(err) != chunk.Unclassified {
		t.Errorf("I/O failure classified as %v", chunk.ClassOf(err))
	}
}
