// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package serializer converts structured values to and from the
// canonical bytes that the transport layer encodes.
//
// Three concrete formats are provided:
//
//   - [JSON] (goccy/go-json): canonical output with object keys sorted
//     ascending at every depth, so identical documents always encode
//     to identical bytes. The Lenient flag accepts JSONC input
//     (comments, trailing commas) on decode.
//   - [YAML] (gopkg.in/yaml.v3): mappings and sequences round-trip.
//   - [CBOR] (fxamacker/cbor): Core Deterministic Encoding, decoding
//     string-keyed maps to map[string]any. CBOR output is binary; the
//     transport layer makes it channel-safe.
//
// [AutoDetect] wraps an ordered list of candidates and a designated
// primary. Encode always uses the primary. Decode sniffs the leading
// bytes to pick a trial order, then tries each candidate in turn and
// returns a single aggregate error when every candidate fails. The
// sniff is a heuristic for ordering, not a classifier.
package serializer
