// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

// Memory is an in-process Store. TTLs are accepted and ignored: state
// lives until Forget or process exit.
type Memory struct {
	mu   sync.Mutex
	sets map[string]*memorySet
}

type memorySet struct {
	storedSet
	fragments map[int]string
	artifact  *chunk.Artifact
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{sets: make(map[string]*memorySet)}
}

func (m *Memory) InitIfMissing(_ context.Context, code string, total int, _ time.Duration) error {
	if err := validateInit(code, total); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if set, ok := m.sets[code]; ok {
		if set.total != total {
			return initConflict(code, set.total, total)
		}
		return nil
	}
	m.sets[code] = &memorySet{storedSet: storedSet{total: total}, fragments: make(map[int]string)}
	return nil
}

func (m *Memory) PutChunk(_ context.Context, c chunk.Chunk) error {
	if err := validateChunk(c); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[c.Code]
	if !ok {
		m.sets[c.Code] = &memorySet{
			storedSet: storedSet{total: c.Total, kind: c.Kind},
			fragments: map[int]string{c.Index: c.Fragment},
		}
		return nil
	}

	existing, present := set.fragments[c.Index]
	outcome, kind, err := admit(set.storedSet, c, existing, present)
	if err != nil {
		return err
	}
	if outcome == admitStore {
		set.kind = kind
		set.fragments[c.Index] = c.Fragment
	}
	return nil
}

func (m *Memory) Status(_ context.Context, code string) (chunk.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[code]
	if !ok {
		return chunk.NewStatus(code, "", 0, nil), nil
	}
	received := make([]int, 0, len(set.fragments))
	for index := range set.fragments {
		received = append(received, index)
	}
	return chunk.NewStatus(code, set.kind, set.total, received), nil
}

func (m *Memory) IsComplete(ctx context.Context, code string) (bool, error) {
	status, err := m.Status(ctx, code)
	if err != nil {
		return false, err
	}
	return status.Complete(), nil
}

func (m *Memory) Chunks(_ context.Context, code string) ([]chunk.Fragment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[code]
	if !ok {
		return []chunk.Fragment{}, nil
	}
	fragments := make([]chunk.Fragment, 0, len(set.fragments))
	for index, text := range set.fragments {
		fragments = append(fragments, chunk.Fragment{Index: index, Text: text})
	}
	chunk.SortFragments(fragments)
	return fragments, nil
}

func (m *Memory) SetArtifact(_ context.Context, code string, artifact chunk.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[code]
	if !ok {
		return unknownCode(code)
	}
	artifact.Body = slices.Clone(artifact.Body)
	set.artifact = &artifact
	return nil
}

func (m *Memory) Artifact(_ context.Context, code string) (chunk.Artifact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[code]
	if !ok || set.artifact == nil {
		return chunk.Artifact{}, false, nil
	}
	artifact := *set.artifact
	artifact.Body = slices.Clone(artifact.Body)
	return artifact, true, nil
}

func (m *Memory) Forget(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, code)
	return nil
}

// Close is a no-op; it lets Memory satisfy ClosableStore.
func (m *Memory) Close() error { return nil }
