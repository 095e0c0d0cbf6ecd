// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/truthqr/lib/chunk"
	"github.com/bureau-foundation/truthqr/lib/testutil"
)

// storeFactory returns a fresh, empty store for one subtest.
type storeFactory func(t *testing.T) Store

// runStoreSuite checks the behavior every backend shares.
func runStoreSuite(t *testing.T, newStore storeFactory) {
	tests := []struct {
		name string
		run  func(t *testing.T, store Store)
	}{
		{"UnknownCodeStatus", testUnknownCodeStatus},
		{"PutCreatesSet", testPutCreatesSet},
		{"OutOfOrderCompletes", testOutOfOrderCompletes},
		{"IdenticalDuplicateIsNoOp", testIdenticalDuplicateIsNoOp},
		{"ConflictingDuplicateRejected", testConflictingDuplicateRejected},
		{"TotalMismatchRejected", testTotalMismatchRejected},
		{"KindFixedByFirstChunk", testKindFixedByFirstChunk},
		{"RejectedChunkLeavesKindUnset", testRejectedChunkLeavesKindUnset},
		{"InitIfMissing", testInitIfMissing},
		{"InvalidChunksRejected", testInvalidChunksRejected},
		{"EmptyFragment", testEmptyFragment},
		{"Artifact", testArtifact},
		{"ArtifactForUnknownCode", testArtifactForUnknownCode},
		{"Forget", testForget},
		{"CodesAreIndependent", testCodesAreIndependent},
		{"ConcurrentWriters", testConcurrentWriters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newStore(t))
		})
	}
}

func put(t *testing.T, store Store, code string, index, total int, fragment string) {
	t.Helper()
	err := store.PutChunk(context.Background(), chunk.Chunk{Code: code, Kind: "ER", Index: index, Total: total, Fragment: fragment})
	if err != nil {
		t.Fatalf("PutChunk(%s %d/%d): %v", code, index, total, err)
	}
}

func status(t *testing.T, store Store, code string) chunk.Status {
	t.Helper()
	status, err := store.Status(context.Background(), code)
	if err != nil {
		t.Fatalf("Status(%s): %v", code, err)
	}
	return status
}

func testUnknownCodeStatus(t *testing.T, store Store) {
	ctx := context.Background()
	got := status(t, store, "nobody")
	if got.Code != "nobody" || got.Total != 0 || got.Received != 0 || got.Missing == nil || len(got.Missing) != 0 {
		t.Errorf("Status(unknown) = %+v", got)
	}
	complete, err := store.IsComplete(ctx, "nobody")
	if err != nil || complete {
		t.Errorf("IsComplete(unknown) = %v, %v", complete, err)
	}
	fragments, err := store.Chunks(ctx, "nobody")
	if err != nil || len(fragments) != 0 {
		t.Errorf("Chunks(unknown) = %v, %v", fragments, err)
	}
	if _, ok, err := store.Artifact(ctx, "nobody"); err != nil || ok {
		t.Errorf("Artifact(unknown) = %v, %v", ok, err)
	}
}

func testPutCreatesSet(t *testing.T, store Store) {
	code := testutil.UniqueCode("precinct")
	put(t, store, code, 2, 3, "bb")

	got := status(t, store, code)
	if got.Total != 3 || got.Received != 1 || !slices.Equal(got.Missing, []int{1, 3}) || got.Kind != "ER" {
		t.Errorf("Status = %+v", got)
	}
	if got.Complete() {
		t.Error("partial set reported complete")
	}
}

func testOutOfOrderCompletes(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")
	for _, index := range []int{4, 1, 3, 2} {
		put(t, store, code, index, 4, fmt.Sprintf("f%d", index))
	}

	complete, err := store.IsComplete(ctx, code)
	if err != nil || !complete {
		t.Fatalf("IsComplete = %v, %v", complete, err)
	}
	fragments, err := store.Chunks(ctx, code)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	want := []chunk.Fragment{{Index: 1, Text: "f1"}, {Index: 2, Text: "f2"}, {Index: 3, Text: "f3"}, {Index: 4, Text: "f4"}}
	if !slices.Equal(fragments, want) {
		t.Errorf("Chunks = %v, want %v", fragments, want)
	}
	if got := status(t, store, code); got.Received != 4 || len(got.Missing) != 0 {
		t.Errorf("Status = %+v", got)
	}
}

func testIdenticalDuplicateIsNoOp(t *testing.T, store Store) {
	code := testutil.UniqueCode("precinct")
	put(t, store, code, 1, 2, "same")
	put(t, store, code, 1, 2, "same")

	if got := status(t, store, code); got.Received != 1 || !slices.Equal(got.Missing, []int{2}) {
		t.Errorf("Status after duplicate = %+v", got)
	}
}

func testConflictingDuplicateRejected(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")
	put(t, store, code, 1, 2, "first")

	err := store.PutChunk(ctx, chunk.Chunk{Code: code, Kind: "ER", Index: 1, Total: 2, Fragment: "second"})
	if !errors.Is(err, chunk.ErrConflictingDuplicate) || !chunk.IsConflict(err) {
		t.Fatalf("PutChunk(conflicting) = %v", err)
	}
	fragments, _ := store.Chunks(ctx, code)
	if len(fragments) != 1 || fragments[0].Text != "first" {
		t.Errorf("stored fragment changed: %v", fragments)
	}
}

func testTotalMismatchRejected(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")
	put(t, store, code, 1, 3, "a")

	err := store.PutChunk(ctx, chunk.Chunk{Code: code, Kind: "ER", Index: 2, Total: 4, Fragment: "b"})
	if !errors.Is(err, chunk.ErrTotalMismatch) || !chunk.IsConflict(err) {
		t.Fatalf("PutChunk(total 4 of 3) = %v", err)
	}
	if got := status(t, store, code); got.Total != 3 || got.Received != 1 {
		t.Errorf("Status after rejected chunk = %+v", got)
	}
}

func testKindFixedByFirstChunk(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")

	// A chunk without a kind neither sets nor checks it.
	if err := store.PutChunk(ctx, chunk.Chunk{Code: code, Index: 1, Total: 3, Fragment: "a"}); err != nil {
		t.Fatalf("PutChunk(no kind): %v", err)
	}
	if got := status(t, store, code); got.Kind != "" {
		t.Errorf("Kind = %q before any kinded chunk", got.Kind)
	}

	if err := store.PutChunk(ctx, chunk.Chunk{Code: code, Kind: "ER", Index: 2, Total: 3, Fragment: "b"}); err != nil {
		t.Fatalf("PutChunk(ER): %v", err)
	}
	err := store.PutChunk(ctx, chunk.Chunk{Code: code, Kind: "BAL", Index: 3, Total: 3, Fragment: "c"})
	if !errors.Is(err, chunk.ErrKindMismatch) || !chunk.IsConflict(err) {
		t.Fatalf("PutChunk(BAL) = %v", err)
	}
	got := status(t, store, code)
	if got.Kind != "ER" || got.Received != 2 {
		t.Errorf("Status = %+v", got)
	}
}

func testRejectedChunkLeavesKindUnset(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")

	if err := store.InitIfMissing(ctx, code, 3, 0); err != nil {
		t.Fatalf("InitIfMissing: %v", err)
	}
	if err := store.PutChunk(ctx, chunk.Chunk{Code: code, Index: 1, Total: 3, Fragment: "a"}); err != nil {
		t.Fatalf("PutChunk(no kind): %v", err)
	}

	err := store.PutChunk(ctx, chunk.Chunk{Code: code, Kind: "BAL", Index: 1, Total: 3, Fragment: "z"})
	if !errors.Is(err, chunk.ErrConflictingDuplicate) {
		t.Fatalf("PutChunk(conflicting) = %v", err)
	}
	if got := status(t, store, code); got.Kind != "" {
		t.Errorf("Kind = %q after a rejected chunk", got.Kind)
	}

	if err := store.PutChunk(ctx, chunk.Chunk{Code: code, Kind: "BAL", Index: 1, Total: 3, Fragment: "a"}); err != nil {
		t.Fatalf("PutChunk(duplicate): %v", err)
	}
	if got := status(t, store, code); got.Kind != "" {
		t.Errorf("Kind = %q after a duplicate chunk", got.Kind)
	}

	put(t, store, code, 2, 3, "b")
	if got := status(t, store, code); got.Kind != "ER" || got.Received != 2 {
		t.Errorf("Status after stored chunk = %+v", got)
	}
}

func testInitIfMissing(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")

	if err := store.InitIfMissing(ctx, code, 3, 0); err != nil {
		t.Fatalf("InitIfMissing: %v", err)
	}
	got := status(t, store, code)
	if got.Total != 3 || got.Received != 0 || !slices.Equal(got.Missing, []int{1, 2, 3}) {
		t.Errorf("Status after init = %+v", got)
	}

	put(t, store, code, 2, 3, "b")
	if err := store.InitIfMissing(ctx, code, 3, time.Hour); err != nil {
		t.Fatalf("repeated InitIfMissing: %v", err)
	}
	if got := status(t, store, code); got.Received != 1 {
		t.Errorf("InitIfMissing reset the set: %+v", got)
	}

	err := store.InitIfMissing(ctx, code, 5, 0)
	if !errors.Is(err, chunk.ErrTotalMismatch) {
		t.Errorf("InitIfMissing(other total) = %v", err)
	}
	err = store.InitIfMissing(ctx, testutil.UniqueCode("precinct"), 0, 0)
	if !errors.Is(err, chunk.ErrIndexOutOfRange) {
		t.Errorf("InitIfMissing(total 0) = %v", err)
	}
}

func testInvalidChunksRejected(t *testing.T, store Store) {
	ctx := context.Background()
	tests := []struct {
		chunk  chunk.Chunk
		reason error
	}{
		{chunk.Chunk{Code: "", Index: 1, Total: 1}, chunk.ErrInvalidArgument},
		{chunk.Chunk{Code: "x", Index: 0, Total: 1}, chunk.ErrIndexOutOfRange},
		{chunk.Chunk{Code: "x", Index: 2, Total: 1}, chunk.ErrIndexOutOfRange},
		{chunk.Chunk{Code: "x", Index: 1, Total: 0}, chunk.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		err := store.PutChunk(ctx, tt.chunk)
		if !errors.Is(err, tt.reason) || !chunk.IsValidation(err) {
			t.Errorf("PutChunk(%+v) = %v, want %v", tt.chunk, err, tt.reason)
		}
	}
	if got := status(t, store, "x"); got.Total != 0 {
		t.Errorf("invalid chunk created a set: %+v", got)
	}
}

func testEmptyFragment(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")
	put(t, store, code, 1, 1, "")
	put(t, store, code, 1, 1, "")

	fragments, err := store.Chunks(ctx, code)
	if err != nil || len(fragments) != 1 || fragments[0] != (chunk.Fragment{Index: 1, Text: ""}) {
		t.Errorf("Chunks = %v, %v", fragments, err)
	}
	err = store.PutChunk(ctx, chunk.Chunk{Code: code, Index: 1, Total: 1, Fragment: "x"})
	if !errors.Is(err, chunk.ErrConflictingDuplicate) {
		t.Errorf("PutChunk over empty fragment = %v", err)
	}
}

func testArtifact(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")
	put(t, store, code, 1, 1, "a")

	body := []byte{0x00, 0xff, '{', '}', 0x80}
	want := chunk.NewArtifact("application/json", body)
	if err := store.SetArtifact(ctx, code, want); err != nil {
		t.Fatalf("SetArtifact: %v", err)
	}
	body[0] = 'X'

	got, ok, err := store.Artifact(ctx, code)
	if err != nil || !ok {
		t.Fatalf("Artifact = %v, %v", ok, err)
	}
	if got.MIME != want.MIME || got.Digest != want.Digest || !slices.Equal(got.Body, []byte{0x00, 0xff, '{', '}', 0x80}) {
		t.Errorf("Artifact = %+v, want %+v", got, want)
	}
	if !got.Verify() {
		t.Error("artifact digest does not match body")
	}
}

func testArtifactForUnknownCode(t *testing.T, store Store) {
	err := store.SetArtifact(context.Background(), testutil.UniqueCode("ghost"), chunk.NewArtifact("application/json", []byte("{}")))
	if !errors.Is(err, ErrUnknownCode) {
		t.Errorf("SetArtifact(unknown) = %v, want ErrUnknownCode", err)
	}
}

func testForget(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")
	put(t, store, code, 1, 2, "a")
	put(t, store, code, 2, 2, "b")
	if err := store.SetArtifact(ctx, code, chunk.NewArtifact("application/json", []byte("{}"))); err != nil {
		t.Fatalf("SetArtifact: %v", err)
	}

	if err := store.Forget(ctx, code); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if got := status(t, store, code); got.Total != 0 || got.Received != 0 {
		t.Errorf("Status after Forget = %+v", got)
	}
	if _, ok, _ := store.Artifact(ctx, code); ok {
		t.Error("artifact survived Forget")
	}
	if err := store.Forget(ctx, code); err != nil {
		t.Errorf("second Forget: %v", err)
	}

	// A forgotten code can be reused with a new total.
	put(t, store, code, 1, 5, "new")
	if got := status(t, store, code); got.Total != 5 {
		t.Errorf("Status after reuse = %+v", got)
	}
}

func testCodesAreIndependent(t *testing.T, store Store) {
	first := testutil.UniqueCode("precinct")
	second := testutil.UniqueCode("precinct")
	put(t, store, first, 1, 2, "a")
	put(t, store, second, 1, 3, "b")

	if got := status(t, store, first); got.Total != 2 || got.Received != 1 {
		t.Errorf("Status(first) = %+v", got)
	}
	if got := status(t, store, second); got.Total != 3 || got.Received != 1 {
		t.Errorf("Status(second) = %+v", got)
	}
}

// testConcurrentWriters races writers on one code: every index is
// written by several goroutines with identical content and one
// goroutine tries a conflicting fragment at index 1. Exactly the
// identical writes must succeed.
func testConcurrentWriters(t *testing.T, store Store) {
	ctx := context.Background()
	code := testutil.UniqueCode("precinct")
	const total = 12
	const writersPerIndex = 3

	var waitGroup sync.WaitGroup
	failures := make(chan error, total*writersPerIndex+1)
	for index := 1; index <= total; index++ {
		for range writersPerIndex {
			waitGroup.Add(1)
			go func() {
				defer waitGroup.Done()
				err := store.PutChunk(ctx, chunk.Chunk{Code: code, Kind: "ER", Index: index, Total: total, Fragment: fmt.Sprintf("f%02d", index)})
				if err != nil {
					failures <- err
				}
			}()
		}
	}
	waitGroup.Wait()
	close(failures)
	for err := range failures {
		t.Errorf("concurrent PutChunk: %v", err)
	}

	got := status(t, store, code)
	if !got.Complete() || got.Received != total {
		t.Errorf("Status = %+v", got)
	}
	err := store.PutChunk(ctx, chunk.Chunk{Code: code, Kind: "ER", Index: 1, Total: total, Fragment: "other"})
	if !errors.Is(err, chunk.ErrConflictingDuplicate) {
		t.Errorf("conflicting write after race = %v", err)
	}
}
