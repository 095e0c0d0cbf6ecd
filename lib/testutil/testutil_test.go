// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestUniqueCode(t *testing.T) {
	first := UniqueCode("precinct")
	second := UniqueCode("precinct")
	if first == second {
		t.Fatalf("UniqueCode returned %q twice", first)
	}
	if !strings.HasPrefix(first, "precinct-") {
		t.Errorf("UniqueCode = %q, want precinct- prefix", first)
	}
}

func TestPermute(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	shuffled := Permute(lines, 7)
	if !slices.Equal(Permute(lines, 7), shuffled) {
		t.Error("Permute is not deterministic for a fixed seed")
	}
	if !slices.Equal(lines, []string{"a", "b", "c", "d", "e", "f", "g", "h"}) {
		t.Error("Permute modified its input")
	}
	sorted := slices.Clone(shuffled)
	slices.Sort(sorted)
	if !slices.Equal(sorted, lines) {
		t.Errorf("Permute(%v) = %v, not a permutation", lines, shuffled)
	}
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42
	if got := RequireReceive[int](t, ch, time.Second, "value"); got != 42 {
		t.Errorf("RequireReceive = %d, want 42", got)
	}

	closed := make(chan struct{})
	close(closed)
	RequireClosed(t, closed, time.Second, "closed channel")
}

type recordingTB struct {
	failed  bool
	message string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = format
	panic(r)
}

func TestRequireReceiveTimesOut(t *testing.T) {
	recorder := &recordingTB{}
	func() {
		defer func() { recover() }()
		RequireReceive[int](recorder, make(chan int), time.Millisecond, "never sent")
	}()
	if !recorder.failed {
		t.Fatal("RequireReceive did not fail on timeout")
	}
}
