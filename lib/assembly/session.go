// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

// Rejection is one entry of a session's error log.
type Rejection struct {
	// Line is the scanned text as received.
	Line string

	// Err is why the line was not accepted.
	Err error
}

// Session tracks one document being scanned. It starts unlocked and
// locks to the code and kind of the first line it accepts. Lines for
// any other document are rejected and logged rather than merged.
//
// Session is safe for concurrent use; ingests are serialized.
type Session struct {
	assembler *Assembler

	mu         sync.Mutex
	code       string
	kind       string
	rejections []Rejection
}

// NewSession returns an unlocked session backed by the assembler.
func (a *Assembler) NewSession() *Session {
	return &Session{assembler: a}
}

// Ingest parses and records one line. The first accepted line locks
// the session; it stays locked until Reset. Every failure, whether a
// parse error, a store conflict or a line for another document, is
// appended to the error log and returned.
func (s *Session) Ingest(ctx context.Context, line string) (chunk.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.ingestLocked(ctx, line)
	if err != nil {
		s.rejections = append(s.rejections, Rejection{Line: line, Err: err})
		return chunk.Status{}, err
	}
	return status, nil
}

func (s *Session) ingestLocked(ctx context.Context, line string) (chunk.Status, error) {
	header, err := s.assembler.envelope.Parse(line)
	if err != nil {
		s.assembler.logger.Debug("line rejected", "session_code", s.code, "error", err)
		return chunk.Status{}, err
	}

	if s.code != "" {
		if header.Code != s.code {
			return chunk.Status{}, &chunk.Error{
				Class: chunk.Conflict, Code: header.Code, Index: header.Index, Total: header.Total,
				Reason: chunk.ErrCodeMismatch,
				Err:    fmt.Errorf("session is scanning %q", s.code),
			}
		}
		if header.Prefix != s.kind {
			return chunk.Status{}, &chunk.Error{
				Class: chunk.Conflict, Code: header.Code, Index: header.Index, Total: header.Total,
				Reason: chunk.ErrKindMismatch,
				Err:    fmt.Errorf("session is scanning kind %q, line is kind %q", s.kind, header.Prefix),
			}
		}
	}

	status, err := s.assembler.ingest(ctx, header)
	if err != nil {
		return chunk.Status{}, err
	}
	if s.code == "" {
		s.code = header.Code
		s.kind = header.Prefix
		s.assembler.logger.Info("session locked", "code", s.code, "kind", s.kind, "total", status.Total)
	}
	return status, nil
}

// Code returns the locked code, or "" before the first accepted line.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Kind returns the locked document kind, or "".
func (s *Session) Kind() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Status reports progress on the locked code. Before the first
// accepted line it returns an empty status.
func (s *Session) Status(ctx context.Context) (chunk.Status, error) {
	code := s.Code()
	if code == "" {
		return chunk.NewStatus("", "", 0, nil), nil
	}
	return s.assembler.Status(ctx, code)
}

// IsComplete reports whether the locked code has every fragment.
func (s *Session) IsComplete(ctx context.Context) (bool, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.Complete(), nil
}

// Assemble decodes the locked document. Before the first accepted
// line it fails with [chunk.ErrMissingChunks].
func (s *Session) Assemble(ctx context.Context) (any, error) {
	var value any
	if err := s.AssembleInto(ctx, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// AssembleInto decodes the locked document into target.
func (s *Session) AssembleInto(ctx context.Context, target any) error {
	code := s.Code()
	if code == "" {
		return &chunk.Error{
			Class:  chunk.Incomplete,
			Reason: chunk.ErrMissingChunks,
			Err:    fmt.Errorf("session has not accepted any line"),
		}
	}
	return s.assembler.AssembleInto(ctx, code, target)
}

// Artifact returns the cached artifact of the locked code.
func (s *Session) Artifact(ctx context.Context) (chunk.Artifact, bool, error) {
	code := s.Code()
	if code == "" {
		return chunk.Artifact{}, false, nil
	}
	return s.assembler.Artifact(ctx, code)
}

// Errors returns a copy of the error log, oldest first.
func (s *Session) Errors() []Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rejections)
}

// Reset unlocks the session and clears its error log. Stored
// fragments are untouched; use Assembler.Forget for that.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = ""
	s.kind = ""
	s.rejections = nil
}
