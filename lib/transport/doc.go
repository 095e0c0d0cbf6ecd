// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport turns serialized payload bytes into channel-safe
// text and back.
//
// Every codec's output uses only the URL-safe base64 alphabet
// (A-Z a-z 0-9 - _) with no padding, so a fragment can sit in a Line
// envelope field or a URL query value without further escaping.
// Compressing codecs compress first and base64url-encode the result:
//
//   - [Base64URL]: no compression.
//   - [Deflate]: DEFLATE in a zlib frame (RFC 1950, Adler-32 trailer)
//     via klauspost/compress.
//   - [Gzip]: gzip (RFC 1952, CRC-32 trailer) via klauspost/compress.
//   - [Zstd]: zstd frames with content checksum via klauspost/compress.
//   - [LZ4]: LZ4 frames with block and content checksums via
//     pierrec/lz4.
//
// Decoding never returns partial output. Illegal characters, truncated
// streams, and checksum failures are errors, all wrapping
// [ErrInvalidInput].
//
// Every compressing codec carries a checksum, so substituting a single
// fragment character either fails Decode or leaves the decoded bytes
// unchanged. [Base64URL] has no checksum: a substituted character that
// stays inside the alphabet decodes to different bytes, and only the
// serializer downstream can notice. Deployments that need corruption
// detection on a lossy channel configure one of the compressing codecs.
package transport
