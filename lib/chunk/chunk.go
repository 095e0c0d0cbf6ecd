// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"fmt"
	"slices"
)

// Header is one parsed envelope: the metadata and payload of a single
// fragment as it appeared on the wire.
type Header struct {
	// Prefix identifies the document kind (for example "ER" for an
	// election return). Fixed per envelope configuration.
	Prefix string

	// Version is the wire format version. Fixed per envelope
	// configuration.
	Version string

	// Code identifies the logical document the fragment belongs to.
	Code string

	// Index is the 1-based position of this fragment.
	Index int

	// Total is the number of fragments the document was split into.
	Total int

	// Fragment is the transport-encoded slice of the payload.
	Fragment string
}

// Validate checks the header invariants: a non-empty code and
// 1 <= Index <= Total. The returned error has class [Validation].
func (h Header) Validate() error {
	if h.Code == "" {
		return &Error{Class: Validation, Index: h.Index, Total: h.Total, Reason: ErrInvalidArgument, Err: fmt.Errorf("empty code")}
	}
	return ValidateRange(h.Code, h.Index, h.Total)
}

// Chunk converts the header into the record the store persists. The
// header prefix becomes the document kind.
func (h Header) Chunk() Chunk {
	return Chunk{
		Code:     h.Code,
		Kind:     h.Prefix,
		Index:    h.Index,
		Total:    h.Total,
		Fragment: h.Fragment,
	}
}

// ValidateRange reports an [ErrIndexOutOfRange] error unless
// total >= 1 and 1 <= index <= total.
func ValidateRange(code string, index, total int) error {
	switch {
	case total < 1:
		return &Error{Class: Validation, Code: code, Index: index, Total: total, Reason: ErrIndexOutOfRange,
			Err: fmt.Errorf("total %d must be at least 1", total)}
	case index < 1:
		return &Error{Class: Validation, Code: code, Index: index, Total: total, Reason: ErrIndexOutOfRange,
			Err: fmt.Errorf("index %d must be at least 1", index)}
	case index > total:
		return &Error{Class: Validation, Code: code, Index: index, Total: total, Reason: ErrIndexOutOfRange,
			Err: fmt.Errorf("index %d exceeds total %d", index, total)}
	}
	return nil
}

// Chunk is a fragment as handed to a store: the still
// transport-encoded fragment text plus the identifying metadata.
type Chunk struct {
	Code string

	// Kind is the document kind (envelope prefix). Empty disables the
	// cross-chunk kind check for this chunk.
	Kind string

	Index    int
	Total    int
	Fragment string
}

// Fragment is one received fragment, as returned by a store in
// ascending index order.
type Fragment struct {
	Index int
	Text  string
}

// Join concatenates fragments in the order given. Callers pass the
// ascending slice a store returns.
func Join(fragments []Fragment) string {
	size := 0
	for _, fragment := range fragments {
		size += len(fragment.Text)
	}
	buffer := make([]byte, 0, size)
	for _, fragment := range fragments {
		buffer = append(buffer, fragment.Text...)
	}
	return string(buffer)
}

// Status summarizes what has been received for a code.
type Status struct {
	Code string `json:"code"`

	// Kind is the document kind fixed by the first chunk. Empty for
	// unknown codes or when the kind check is not in use.
	Kind string `json:"kind,omitempty"`

	// Total is zero when the code is unknown.
	Total    int `json:"total"`
	Received int `json:"received"`

	// Missing lists the indices not yet received, ascending.
	Missing []int `json:"missing"`
}

// Complete reports whether every fragment has been received. Unknown
// codes are never complete.
func (s Status) Complete() bool {
	return s.Total > 0 && s.Received == s.Total
}

// NewStatus builds a Status from the set of received indices. Indices
// outside 1..total are ignored.
func NewStatus(code, kind string, total int, received []int) Status {
	have := make(map[int]struct{}, len(received))
	for _, index := range received {
		if index >= 1 && index <= total {
			have[index] = struct{}{}
		}
	}
	missing := make([]int, 0, total-len(have))
	for index := 1; index <= total; index++ {
		if _, ok := have[index]; !ok {
			missing = append(missing, index)
		}
	}
	return Status{
		Code:     code,
		Kind:     kind,
		Total:    total,
		Received: len(have),
		Missing:  missing,
	}
}

// SortFragments orders fragments by ascending index in place.
func SortFragments(fragments []Fragment) {
	slices.SortFunc(fragments, func(a, b Fragment) int { return a.Index - b.Index })
}

// Artifact is the cached result of the first successful assembly of a
// code.
type Artifact struct {
	// MIME is the media type of the serializer that decoded Body.
	MIME string `json:"mime"`

	// Body is the decoded (transport-free) serialized document.
	Body []byte `json:"body"`

	// Digest is the hex BLAKE3-256 of Body.
	Digest string `json:"digest"`
}
