// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import "context"

// ImageOptions are passed through to the Renderer.
type ImageOptions struct {
	// Format is the image format, "png" by default.
	Format string

	// Size is the edge length in pixels, 512 by default.
	Size int

	// Margin is the quiet zone in modules, 4 by default.
	Margin int
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.Format == "" {
		o.Format = "png"
	}
	if o.Size <= 0 {
		o.Size = 512
	}
	if o.Margin <= 0 {
		o.Margin = 4
	}
	return o
}

// Renderer draws one framed line as a QR image.
type Renderer interface {
	Render(ctx context.Context, line string, opts ImageOptions) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, line string, opts ImageOptions) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, line string, opts ImageOptions) ([]byte, error) {
	return f(ctx, line, opts)
}
