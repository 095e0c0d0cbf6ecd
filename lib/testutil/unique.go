// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync/atomic"
	"testing"
)

var uniqueCounter atomic.Uint64

// UniqueCode returns a document code of the form "prefix-N" where N is
// a monotonically increasing integer.
//
//	code := testutil.UniqueCode("precinct") // "precinct-1", "precinct-2", ...
func UniqueCode(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// DatabasePath returns the path of a not-yet-existing SQLite file in
// a directory removed when the test completes.
func DatabasePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "chunks.db")
}

// Permute returns a copy of lines in a pseudo-random order fixed by
// seed.
func Permute(lines []string, seed uint64) []string {
	shuffled := append([]string(nil), lines...)
	random := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	random.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
