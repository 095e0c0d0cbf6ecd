// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import "github.com/bureau-foundation/truthqr/lib/chunk"

// Multi frames with a primary envelope and parses with whichever of
// its envelopes accepts the line first. A scanning station that
// accepts several document kinds (different prefixes) uses one Multi.
type Multi struct {
	envelopes []Envelope
}

// NewMulti returns a Multi whose primary is the first envelope.
func NewMulti(primary Envelope, others ...Envelope) *Multi {
	return &Multi{envelopes: append([]Envelope{primary}, others...)}
}

func (m *Multi) Prefix() string { return m.envelopes[0].Prefix() }

func (m *Multi) Version() string { return m.envelopes[0].Version() }

func (m *Multi) Header(code string, index, total int, fragment string) (string, error) {
	return m.envelopes[0].Header(code, index, total, fragment)
}

// Parse returns the first successful parse. When every envelope
// rejects the line, the primary's error is returned.
func (m *Multi) Parse(line string) (chunk.Header, error) {
	var primaryErr error
	for i, envelope := range m.envelopes {
		header, err := envelope.Parse(line)
		if err == nil {
			return header, nil
		}
		if i == 0 {
			primaryErr = err
		}
	}
	return chunk.Header{}, primaryErr
}
