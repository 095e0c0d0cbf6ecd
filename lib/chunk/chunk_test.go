// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
)

func TestHeaderValidate(t *testing.T) {
	tests := []struct {
		name   string
		header Header
		reason error
	}{
		{"valid", Header{Code: "XYZ", Index: 2, Total: 5}, nil},
		{"single fragment", Header{Code: "XYZ", Index: 1, Total: 1}, nil},
		{"empty code", Header{Index: 1, Total: 1}, ErrInvalidArgument},
		{"zero index", Header{Code: "XYZ", Index: 0, Total: 5}, ErrIndexOutOfRange},
		{"index past total", Header{Code: "XYZ", Index: 6, Total: 5}, ErrIndexOutOfRange},
		{"zero total", Header{Code: "XYZ", Index: 1, Total: 0}, ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.Validate()
			if tt.reason == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.reason) {
				t.Fatalf("Validate() = %v, want reason %v", err, tt.reason)
			}
			if !IsValidation(err) {
				t.Errorf("ClassOf(%v) = %v, want validation", err, ClassOf(err))
			}
		})
	}
}

func TestNewStatus(t *testing.T) {
	status := NewStatus("XYZ", "ER", 5, []int{4, 1, 2, 9})
	if status.Received != 3 {
		t.Errorf("Received = %d, want 3", status.Received)
	}
	if !slices.Equal(status.Missing, []int{3, 5}) {
		t.Errorf("Missing = %v, want [3 5]", status.Missing)
	}
	if status.Complete() {
		t.Error("status with gaps reported complete")
	}

	full := NewStatus("XYZ", "", 2, []int{2, 1})
	if !full.Complete() {
		t.Errorf("status %+v should be complete", full)
	}
	if len(full.Missing) != 0 {
		t.Errorf("Missing = %v, want empty", full.Missing)
	}

	unknown := NewStatus("nope", "", 0, nil)
	if unknown.Complete() {
		t.Error("unknown code reported complete")
	}
	if unknown.Missing == nil {
		t.Error("Missing should be an empty slice, not nil")
	}
}

func TestJoinAndSort(t *testing.T) {
	fragments := []Fragment{{3, "c"}, {1, "a"}, {2, "b"}}
	SortFragments(fragments)
	if got := Join(fragments); got != "abc" {
		t.Errorf("Join = %q, want %q", got, "abc")
	}
}

func TestErrorUnwrapsReasonAndCause(t *testing.T) {
	cause := fmt.Errorf("stored %q", "aaa")
	err := fmt.Errorf("ingest: %w", &Error{
		Class:  Conflict,
		Code:   "XYZ",
		Index:  2,
		Total:  5,
		Reason: ErrConflictingDuplicate,
		Err:    cause,
	})

	if !errors.Is(err, ErrConflictingDuplicate) {
		t.Error("errors.Is should find the sentinel reason")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if !IsConflict(err) {
		t.Errorf("ClassOf = %v, want conflict", ClassOf(err))
	}

	var chunkErr *Error
	if !errors.As(err, &chunkErr) {
		t.Fatal("errors.As failed")
	}
	if chunkErr.Index != 2 || chunkErr.Total != 5 || chunkErr.Code != "XYZ" {
		t.Errorf("error context = %+v", chunkErr)
	}
	if message := err.Error(); !strings.Contains(message, "fragment 2/5") {
		t.Errorf("Error() = %q, want fragment position", message)
	}
}

func TestClassOfPlainError(t *testing.T) {
	if got := ClassOf(errors.New("disk full")); got != Unclassified {
		t.Errorf("ClassOf(plain) = %v, want unclassified", got)
	}
}

func TestArtifactDigest(t *testing.T) {
	artifact := NewArtifact("application/json", []byte(`{"a":1}`))
	if len(artifact.Digest) != 64 {
		t.Fatalf("Digest length = %d, want 64 hex chars", len(artifact.Digest))
	}
	if !artifact.Verify() {
		t.Error("fresh artifact failed verification")
	}
	artifact.Body = []byte(`{"a":2}`)
	if artifact.Verify() {
		t.Error("tampered artifact passed verification")
	}
}
