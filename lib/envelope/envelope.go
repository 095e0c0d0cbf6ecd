// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

// Defaults shared by every envelope.
const (
	DefaultPrefix  = "ER"
	DefaultVersion = "v1"
)

// Envelope frames fragments into wire strings and parses them back.
type Envelope interface {
	// Header frames one fragment. It fails with a validation error if
	// index or total are out of range.
	Header(code string, index, total int, fragment string) (string, error)

	// Parse recovers the header of a framed fragment.
	Parse(line string) (chunk.Header, error)

	// Prefix is the document kind this envelope emits.
	Prefix() string

	// Version is the wire format version this envelope emits.
	Version() string
}

var positionPattern = regexp.MustCompile(`^(\d+)/(\d+)$`)

var numberPattern = regexp.MustCompile(`^\d+$`)

// parseNumber parses a decimal index or total. Signs, spaces and
// values that overflow int are rejected.
func parseNumber(name, value string) (int, error) {
	if !numberPattern.MatchString(value) {
		return 0, chunk.Malformed("%s %q is not a decimal number", name, value)
	}
	number, err := strconv.Atoi(value)
	if err != nil {
		return 0, chunk.Malformed("%s %q: %v", name, value, err)
	}
	return number, nil
}

// checkIdentity compares a parsed prefix and version against the
// configured ones.
func checkIdentity(header chunk.Header, prefix, version string) error {
	if header.Prefix != prefix {
		return &chunk.Error{
			Class: chunk.Validation, Code: header.Code, Index: header.Index, Total: header.Total,
			Reason: chunk.ErrPrefixMismatch,
			Err:    fmt.Errorf("got %q, want %q", header.Prefix, prefix),
		}
	}
	if header.Version != version {
		return &chunk.Error{
			Class: chunk.Validation, Code: header.Code, Index: header.Index, Total: header.Total,
			Reason: chunk.ErrVersionMismatch,
			Err:    fmt.Errorf("got %q, want %q", header.Version, version),
		}
	}
	return nil
}

// withCode attaches the document code to a validation error produced
// before the code was known.
func withCode(err error, header chunk.Header) error {
	if chunkErr, ok := err.(*chunk.Error); ok && chunkErr.Code == "" {
		chunkErr.Code = header.Code
	}
	return err
}
