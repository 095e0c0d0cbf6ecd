// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// Class groups errors by how a caller should react.
type Class int

const (
	// Unclassified is reported by [ClassOf] for errors that are not a
	// [*Error] (storage I/O failures, cancelled contexts).
	Unclassified Class = iota

	// Validation errors come from a malformed line, URL, or header
	// argument. The line should be re-scanned.
	Validation

	// Conflict errors mean the line is well-formed but disagrees with
	// what was already received for the code.
	Conflict

	// Incomplete is returned when assembling before every fragment
	// arrived. [Error.Missing] lists the gaps.
	Incomplete

	// Corruption means every fragment arrived but the joined payload
	// fails transport decoding or deserialization.
	Corruption
)

// String returns the lowercase class name.
func (c Class) String() string {
	switch c {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Incomplete:
		return "incomplete"
	case Corruption:
		return "corruption"
	default:
		return "unclassified"
	}
}

// Sentinel reasons. Match with errors.Is.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrMalformed            = errors.New("malformed envelope")
	ErrPrefixMismatch       = errors.New("prefix mismatch")
	ErrVersionMismatch      = errors.New("version mismatch")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrTotalMismatch        = errors.New("mismatched totals")
	ErrKindMismatch         = errors.New("mismatched document kind")
	ErrConflictingDuplicate = errors.New("conflicting duplicate")
	ErrCodeMismatch         = errors.New("code mismatch")
	ErrMissingChunks        = errors.New("missing chunks")
	ErrCorrupt              = errors.New("corrupt payload")
)

// Error is a classified decode-path (or header construction) failure.
// It carries enough context to drive a "re-scan fragment N of M"
// prompt.
type Error struct {
	Class Class

	// Code is the document code, when known.
	Code string

	// Index and Total identify the offending fragment, when known.
	Index int
	Total int

	// Missing lists the absent indices for [Incomplete] errors.
	Missing []int

	// Reason is one of the package sentinels.
	Reason error

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString("chunk: ")
	if e.Reason != nil {
		builder.WriteString(e.Reason.Error())
	} else {
		builder.WriteString(e.Class.String())
	}
	if e.Code != "" {
		fmt.Fprintf(&builder, " (code %q", e.Code)
		if e.Total > 0 || e.Index > 0 {
			fmt.Fprintf(&builder, ", fragment %d/%d", e.Index, e.Total)
		}
		builder.WriteString(")")
	} else if e.Total > 0 || e.Index > 0 {
		fmt.Fprintf(&builder, " (fragment %d/%d)", e.Index, e.Total)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&builder, ": missing %v", e.Missing)
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

// Unwrap exposes both the sentinel reason and the cause to errors.Is
// and errors.As.
func (e *Error) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if e.Reason != nil {
		unwrapped = append(unwrapped, e.Reason)
	}
	if e.Err != nil {
		unwrapped = append(unwrapped, e.Err)
	}
	return unwrapped
}

// ClassOf returns the class of the first [*Error] in err's chain, or
// [Unclassified].
func ClassOf(err error) Class {
	var chunkErr *Error
	if errors.As(err, &chunkErr) {
		return chunkErr.Class
	}
	return Unclassified
}

// IsValidation reports whether err is a [Validation] error.
func IsValidation(err error) bool { return ClassOf(err) == Validation }

// IsConflict reports whether err is a [Conflict] error.
func IsConflict(err error) bool { return ClassOf(err) == Conflict }

// IsIncomplete reports whether err is an [Incomplete] error.
func IsIncomplete(err error) bool { return ClassOf(err) == Incomplete }

// IsCorruption reports whether err is a [Corruption] error.
func IsCorruption(err error) bool { return ClassOf(err) == Corruption }

// Malformed builds a [Validation] error with reason [ErrMalformed].
func Malformed(format string, args ...any) *Error {
	return &Error{Class: Validation, Reason: ErrMalformed, Err: fmt.Errorf(format, args...)}
}

// Conflicting builds the [Conflict] error a store returns when a chunk
// disagrees with stored state.
func Conflicting(reason error, c Chunk, format string, args ...any) *Error {
	return &Error{
		Class:  Conflict,
		Code:   c.Code,
		Index:  c.Index,
		Total:  c.Total,
		Reason: reason,
		Err:    fmt.Errorf(format, args...),
	}
}
