// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bureau-foundation/truthqr/lib/chunk"
	"github.com/bureau-foundation/truthqr/lib/envelope"
	"github.com/bureau-foundation/truthqr/lib/serializer"
	"github.com/bureau-foundation/truthqr/lib/transport"
)

// DefaultMaxLen is the fragment size used when splitting by size
// without an explicit MaxLen. It keeps a framed line comfortably
// inside a version 25 QR code at error correction level M.
const DefaultMaxLen = 1200

// Strategy selects how the encoded payload is split.
type Strategy string

const (
	// BySize cuts fragments of at most MaxLen bytes.
	BySize Strategy = "size"

	// ByCount cuts exactly Count fragments of near-equal length.
	ByCount Strategy = "count"
)

// Options controls splitting. The zero value splits by size with
// DefaultMaxLen. A negative MaxLen and a Count below 1 are raised to
// 1, so at least one line is always produced.
type Options struct {
	By     Strategy
	Count  int
	MaxLen int
}

// Config holds the components of a Publisher. Nil fields take the
// same defaults as the assembler: a Line envelope (ER, v1), base64url
// transport and canonical JSON.
type Config struct {
	Serializer serializer.Serializer
	Transport  transport.Codec
	Envelope   envelope.Envelope
}

// Publisher encodes documents into framed fragment lines.
type Publisher struct {
	serializer serializer.Serializer
	transport  transport.Codec
	envelope   envelope.Envelope
}

// New returns a Publisher built from cfg.
func New(cfg Config) *Publisher {
	publisher := &Publisher{
		serializer: cfg.Serializer,
		transport:  cfg.Transport,
		envelope:   cfg.Envelope,
	}
	if publisher.serializer == nil {
		publisher.serializer = serializer.JSON{}
	}
	if publisher.transport == nil {
		publisher.transport = transport.Base64URL{}
	}
	if publisher.envelope == nil {
		publisher.envelope = envelope.NewLine("", "")
	}
	return publisher
}

// Result is the output of PublishResult.
type Result struct {
	// Code is the document code, generated if none was given.
	Code string

	// Lines are the framed fragments; Lines[i] is fragment i+1.
	Lines []string

	// MIME is the media type of the serialized payload.
	MIME string

	// Digest is the BLAKE3 digest of the serialized payload. It equals
	// the Digest of the artifact the assembler caches for this code.
	Digest string
}

// Publish encodes payload under code and returns the framed lines in
// index order.
func (p *Publisher) Publish(payload any, code string, opts Options) ([]string, error) {
	result, err := p.publish(payload, code, opts)
	if err != nil {
		return nil, err
	}
	return result.Lines, nil
}

// PublishResult is Publish with a generated code when code is empty,
// returning the code and digest alongside the lines.
func (p *Publisher) PublishResult(payload any, code string, opts Options) (Result, error) {
	if code == "" {
		code = uuid.NewString()
	}
	return p.publish(payload, code, opts)
}

func (p *Publisher) publish(payload any, code string, opts Options) (Result, error) {
	body, err := p.serializer.Encode(payload)
	if err != nil {
		return Result{}, fmt.Errorf("publish: %w", err)
	}
	encoded, err := p.transport.Encode(body)
	if err != nil {
		return Result{}, fmt.Errorf("publish: %s encode: %w", p.transport.Name(), err)
	}

	parts := split(encoded, opts)
	lines := make([]string, len(parts))
	for i, part := range parts {
		line, err := p.envelope.Header(code, i+1, len(parts), part)
		if err != nil {
			return Result{}, err
		}
		lines[i] = line
	}

	return Result{
		Code:   code,
		Lines:  lines,
		MIME:   p.serializer.MIME(),
		Digest: chunk.Digest(body),
	}, nil
}

func split(encoded string, opts Options) []string {
	switch opts.By {
	case ByCount:
		return chunk.SplitByCount(encoded, opts.Count)
	default:
		maxLen := opts.MaxLen
		if maxLen == 0 {
			maxLen = DefaultMaxLen
		}
		return chunk.SplitBySize(encoded, maxLen)
	}
}

// ParseStrategy maps a configuration string to a Strategy. Empty
// means BySize.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case "", BySize:
		return BySize, nil
	case ByCount:
		return ByCount, nil
	default:
		return "", fmt.Errorf("publish: unknown chunking strategy %q", name)
	}
}

// PublishImages runs the Publish pipeline and renders each line with
// renderer. Images are keyed by 1-based fragment index. Rendering
// stops at the first failure or when ctx is done.
func (p *Publisher) PublishImages(ctx context.Context, payload any, code string, opts Options, renderer Renderer, imageOpts ImageOptions) (map[int][]byte, error) {
	lines, err := p.Publish(payload, code, opts)
	if err != nil {
		return nil, err
	}
	imageOpts = imageOpts.withDefaults()

	images := make(map[int][]byte, len(lines))
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		image, err := renderer.Render(ctx, line, imageOpts)
		if err != nil {
			return nil, fmt.Errorf("publish: rendering fragment %d/%d: %w", i+1, len(lines), err)
		}
		images[i+1] = image
	}
	return images, nil
}
