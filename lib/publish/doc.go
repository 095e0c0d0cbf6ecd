// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish turns a document into the ordered list of framed
// fragments that are printed or displayed as QR codes.
//
// The pipeline is serialize, transport-encode, split, frame. It is
// pure: a [Publisher] holds only its configuration and is safe for
// concurrent use. Rendering fragments to images is delegated to a
// caller-supplied [Renderer].
package publish
