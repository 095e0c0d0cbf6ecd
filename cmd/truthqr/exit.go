// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

// Exit codes. See the package documentation.
const (
	exitFailure    = 1
	exitUsage      = 2
	exitIncomplete = 3
	exitConflict   = 4
	exitCorrupt    = 5
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func (e *exitError) ExitCode() int { return e.code }

func usageError(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

// classify attaches the exit code matching err's chunk error class.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var coded *exitError
	if errors.As(err, &coded) {
		return err
	}
	switch chunk.ClassOf(err) {
	case chunk.Validation:
		return &exitError{code: exitUsage, err: err}
	case chunk.Incomplete:
		return &exitError{code: exitIncomplete, err: err}
	case chunk.Conflict:
		return &exitError{code: exitConflict, err: err}
	case chunk.Corruption:
		return &exitError{code: exitCorrupt, err: err}
	default:
		return err
	}
}
