// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serializer

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
)

// ErrAutoDetect is wrapped by the aggregate error AutoDetect returns
// when no candidate can decode the input.
var ErrAutoDetect = errors.New("auto-detect decode failed")

// AutoDetect encodes with a primary serializer and decodes with
// whichever candidate accepts the input first.
type AutoDetect struct {
	primary    Serializer
	candidates []Serializer
}

// NewAutoDetect builds an AutoDetect. When candidates is empty the
// primary is the only candidate.
func NewAutoDetect(primary Serializer, candidates ...Serializer) *AutoDetect {
	if len(candidates) == 0 {
		candidates = []Serializer{primary}
	}
	return &AutoDetect{primary: primary, candidates: candidates}
}

func (a *AutoDetect) Name() string { return "auto" }

// MIME is the primary's media type. Decoded artifacts record the media
// type of the candidate that matched; see [AutoDetect.DecodeDetect].
func (a *AutoDetect) MIME() string { return a.primary.MIME() }

// Primary returns the serializer used for encoding.
func (a *AutoDetect) Primary() Serializer { return a.primary }

func (a *AutoDetect) Encode(value any) ([]byte, error) {
	return a.primary.Encode(value)
}

func (a *AutoDetect) Decode(data []byte, target any) error {
	_, err := a.DecodeDetect(data, target)
	return err
}

// DecodeDetect decodes data into target and returns the candidate that
// succeeded. Each candidate decodes into a fresh value so a failed
// attempt never leaves partial state in target.
func (a *AutoDetect) DecodeDetect(data []byte, target any) (Serializer, error) {
	targetValue, err := checkTarget(target)
	if err != nil {
		return nil, err
	}
	elementType := targetValue.Elem().Type()

	var failures []error
	for _, candidate := range a.trialOrder(data) {
		scratch := reflect.New(elementType)
		if err := candidate.Decode(data, scratch.Interface()); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", candidate.Name(), err))
			continue
		}
		targetValue.Elem().Set(scratch.Elem())
		return candidate, nil
	}
	return nil, fmt.Errorf("serializer: %w: %w", ErrAutoDetect, errors.Join(failures...))
}

// family is the sniffed format of an input.
type family string

const (
	familyJSON family = "json"
	familyYAML family = "yaml"
	familyCBOR family = "cbor"
)

// sniff guesses the format from the leading bytes.
func sniff(data []byte) family {
	if len(data) > 0 && data[0] >= 0x80 {
		// CBOR maps (major type 5), arrays (4) and tags (6) all have
		// the high bit set; text formats start with ASCII.
		return familyCBOR
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	switch {
	case bytes.HasPrefix(trimmed, []byte("---")):
		return familyYAML
	case len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '['):
		return familyJSON
	default:
		return familyYAML
	}
}

// trialOrder returns the candidates whose name matches the sniffed
// family first, then the rest, each group in configured order.
func (a *AutoDetect) trialOrder(data []byte) []Serializer {
	preferred := string(sniff(data))
	ordered := make([]Serializer, 0, len(a.candidates))
	for _, candidate := range a.candidates {
		if candidate.Name() == preferred {
			ordered = append(ordered, candidate)
		}
	}
	for _, candidate := range a.candidates {
		if candidate.Name() != preferred {
			ordered = append(ordered, candidate)
		}
	}
	return ordered
}
