// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/truthqr/lib/chunk"
	"github.com/bureau-foundation/truthqr/lib/chunkstore"
	"github.com/bureau-foundation/truthqr/lib/envelope"
	"github.com/bureau-foundation/truthqr/lib/serializer"
	"github.com/bureau-foundation/truthqr/lib/transport"
)

// Config holds the components of an Assembler. Nil fields take the
// defaults: a Line envelope with prefix ER and version v1, base64url
// transport, canonical JSON, and an in-memory store.
type Config struct {
	Envelope   envelope.Envelope
	Transport  transport.Codec
	Serializer serializer.Serializer
	Store      chunkstore.Store
	Logger     *slog.Logger
}

// Assembler turns scanned lines into documents. It holds no state of
// its own beyond the store, so one Assembler can serve many sessions
// concurrently.
type Assembler struct {
	envelope   envelope.Envelope
	transport  transport.Codec
	serializer serializer.Serializer
	store      chunkstore.Store
	logger     *slog.Logger
}

// New returns an Assembler built from cfg.
func New(cfg Config) *Assembler {
	assembler := &Assembler{
		envelope:   cfg.Envelope,
		transport:  cfg.Transport,
		serializer: cfg.Serializer,
		store:      cfg.Store,
		logger:     cfg.Logger,
	}
	if assembler.envelope == nil {
		assembler.envelope = envelope.NewLine("", "")
	}
	if assembler.transport == nil {
		assembler.transport = transport.Base64URL{}
	}
	if assembler.serializer == nil {
		assembler.serializer = serializer.JSON{}
	}
	if assembler.store == nil {
		assembler.store = chunkstore.NewMemory()
	}
	if assembler.logger == nil {
		assembler.logger = slog.New(slog.DiscardHandler)
	}
	return assembler
}

// Store returns the store the assembler writes to.
func (a *Assembler) Store() chunkstore.Store { return a.store }

// IngestLine parses line and records its fragment. It returns the
// status of the line's code after the write. A line that fails to
// parse or conflicts with stored state changes nothing.
func (a *Assembler) IngestLine(ctx context.Context, line string) (chunk.Status, error) {
	header, err := a.envelope.Parse(line)
	if err != nil {
		a.logger.Debug("line rejected", "error", err)
		return chunk.Status{}, err
	}
	return a.ingest(ctx, header)
}

func (a *Assembler) ingest(ctx context.Context, header chunk.Header) (chunk.Status, error) {
	if err := a.store.PutChunk(ctx, header.Chunk()); err != nil {
		a.logger.Debug("fragment rejected",
			"code", header.Code,
			"index", header.Index,
			"total", header.Total,
			"error", err,
		)
		return chunk.Status{}, err
	}
	status, err := a.store.Status(ctx, header.Code)
	if err != nil {
		return chunk.Status{}, err
	}
	a.logger.Debug("fragment stored",
		"code", header.Code,
		"index", header.Index,
		"received", status.Received,
		"total", status.Total,
	)
	return status, nil
}

// Status reports what has been received for code.
func (a *Assembler) Status(ctx context.Context, code string) (chunk.Status, error) {
	return a.store.Status(ctx, code)
}

// IsComplete reports whether every fragment of code has arrived.
func (a *Assembler) IsComplete(ctx context.Context, code string) (bool, error) {
	return a.store.IsComplete(ctx, code)
}

// Assemble decodes the complete document for code into a generic
// value (maps, slices and scalars, as the serializer produces them).
func (a *Assembler) Assemble(ctx context.Context, code string) (any, error) {
	var value any
	if err := a.AssembleInto(ctx, code, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// AssembleInto decodes the complete document for code into target,
// which must be a non-nil pointer.
//
// Errors: [chunk.ErrMissingChunks] (class Incomplete, with the missing
// indices) if fragments are outstanding, and [chunk.ErrCorrupt] (class
// Corruption) if the joined payload fails transport decoding or
// deserialization. On success the decoded body is cached as the
// code's artifact.
func (a *Assembler) AssembleInto(ctx context.Context, code string, target any) error {
	status, err := a.store.Status(ctx, code)
	if err != nil {
		return err
	}
	if !status.Complete() {
		return missingChunks(status)
	}

	fragments, err := a.store.Chunks(ctx, code)
	if err != nil {
		return err
	}
	// The set can be forgotten or expire between the two reads.
	if len(fragments) != status.Total {
		return missingChunks(chunk.NewStatus(code, status.Kind, status.Total, fragmentIndices(fragments)))
	}

	body, err := a.transport.Decode(chunk.Join(fragments))
	if err != nil {
		a.logger.Warn("assembled payload failed transport decoding",
			"code", code,
			"transport", a.transport.Name(),
			"error", err,
		)
		return corrupt(code, status.Total, fmt.Errorf("%s decode: %w", a.transport.Name(), err))
	}

	used, err := a.decode(body, target)
	if err != nil {
		a.logger.Warn("assembled payload failed deserialization",
			"code", code,
			"serializer", a.serializer.Name(),
			"error", err,
		)
		return corrupt(code, status.Total, err)
	}

	if err := a.cacheArtifact(ctx, code, chunk.NewArtifact(used.MIME(), body)); err != nil {
		return err
	}
	a.logger.Info("document assembled",
		"code", code,
		"kind", status.Kind,
		"fragments", status.Total,
		"bytes", len(body),
		"mime", used.MIME(),
	)
	return nil
}

// decode deserializes body and reports which serializer accepted it,
// so the artifact records the format actually found.
func (a *Assembler) decode(body []byte, target any) (serializer.Serializer, error) {
	if detector, ok := a.serializer.(*serializer.AutoDetect); ok {
		return detector.DecodeDetect(body, target)
	}
	if err := a.serializer.Decode(body, target); err != nil {
		return nil, err
	}
	return a.serializer, nil
}

// cacheArtifact stores the first successful assembly. Later
// assemblies of the same set produce the same body and leave the
// cached artifact alone.
func (a *Assembler) cacheArtifact(ctx context.Context, code string, artifact chunk.Artifact) error {
	if _, ok, err := a.store.Artifact(ctx, code); err != nil || ok {
		return err
	}
	return a.store.SetArtifact(ctx, code, artifact)
}

// Artifact returns the cached result of the first successful assembly
// of code. It is absent before that and after Forget.
func (a *Assembler) Artifact(ctx context.Context, code string) (chunk.Artifact, bool, error) {
	return a.store.Artifact(ctx, code)
}

// Forget removes every fragment and the artifact of code.
func (a *Assembler) Forget(ctx context.Context, code string) error {
	if err := a.store.Forget(ctx, code); err != nil {
		return err
	}
	a.logger.Info("document forgotten", "code", code)
	return nil
}

func missingChunks(status chunk.Status) error {
	return &chunk.Error{
		Class:   chunk.Incomplete,
		Code:    status.Code,
		Total:   status.Total,
		Missing: status.Missing,
		Reason:  chunk.ErrMissingChunks,
		Err:     fmt.Errorf("%d of %d fragments received", status.Received, status.Total),
	}
}

func corrupt(code string, total int, cause error) error {
	return &chunk.Error{
		Class:  chunk.Corruption,
		Code:   code,
		Total:  total,
		Reason: chunk.ErrCorrupt,
		Err:    cause,
	}
}

func fragmentIndices(fragments []chunk.Fragment) []int {
	indices := make([]int, len(fragments))
	for i, fragment := range fragments {
		indices[i] = fragment.Index
	}
	return indices
}
