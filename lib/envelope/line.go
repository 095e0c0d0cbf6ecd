// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

// Separator splits the fields of a Line envelope.
const Separator = "|"

// lineFields is the exact number of fields in a Line envelope.
const lineFields = 5

// Line is the pipe-separated envelope:
//
//	PREFIX|VERSION|CODE|INDEX/TOTAL|FRAGMENT
type Line struct {
	prefix  string
	version string
}

// NewLine returns a Line envelope. Empty arguments select
// DefaultPrefix and DefaultVersion.
func NewLine(prefix, version string) Line {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if version == "" {
		version = DefaultVersion
	}
	return Line{prefix: prefix, version: version}
}

func (l Line) Prefix() string { return l.prefix }

func (l Line) Version() string { return l.version }

// WithPrefix returns a copy of l emitting and accepting prefix.
func (l Line) WithPrefix(prefix string) Line {
	l.prefix = prefix
	return l
}

// WithVersion returns a copy of l emitting and accepting version.
func (l Line) WithVersion(version string) Line {
	l.version = version
	return l
}

func (l Line) Header(code string, index, total int, fragment string) (string, error) {
	header := chunk.Header{Prefix: l.prefix, Version: l.version, Code: code, Index: index, Total: total, Fragment: fragment}
	if err := header.Validate(); err != nil {
		return "", err
	}
	if strings.Contains(code, Separator) || strings.Contains(fragment, Separator) {
		return "", &chunk.Error{
			Class: chunk.Validation, Code: code, Index: index, Total: total,
			Reason: chunk.ErrInvalidArgument,
			Err:    fmt.Errorf("code and fragment must not contain %q", Separator),
		}
	}

	var builder strings.Builder
	builder.Grow(len(l.prefix) + len(l.version) + len(code) + len(fragment) + 24)
	builder.WriteString(l.prefix)
	builder.WriteString(Separator)
	builder.WriteString(l.version)
	builder.WriteString(Separator)
	builder.WriteString(code)
	builder.WriteString(Separator)
	builder.WriteString(strconv.Itoa(index))
	builder.WriteString("/")
	builder.WriteString(strconv.Itoa(total))
	builder.WriteString(Separator)
	builder.WriteString(fragment)
	return builder.String(), nil
}

func (l Line) Parse(line string) (chunk.Header, error) {
	fields := strings.Split(line, Separator)
	if len(fields) != lineFields {
		return chunk.Header{}, chunk.Malformed("expected %d fields, got %d", lineFields, len(fields))
	}

	header := chunk.Header{
		Prefix:   fields[0],
		Version:  fields[1],
		Code:     fields[2],
		Fragment: fields[4],
	}

	position := positionPattern.FindStringSubmatch(fields[3])
	if position == nil {
		return chunk.Header{}, withCode(chunk.Malformed("position %q does not match INDEX/TOTAL", fields[3]), header)
	}
	var err error
	if header.Index, err = parseNumber("index", position[1]); err != nil {
		return chunk.Header{}, withCode(err, header)
	}
	if header.Total, err = parseNumber("total", position[2]); err != nil {
		return chunk.Header{}, withCode(err, header)
	}

	if err := checkIdentity(header, l.prefix, l.version); err != nil {
		return chunk.Header{}, err
	}
	if err := header.Validate(); err != nil {
		return chunk.Header{}, withCode(err, header)
	}
	return header, nil
}
