// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serializer

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/jsonc"
)

// JSON is the canonical JSON serializer.
//
// Encoding goes through a generic intermediate form so that struct
// fields are reordered too: every object in the output has its keys
// sorted ascending regardless of the Go type that produced it.
// Numbers keep their exact literal through the intermediate step.
type JSON struct {
	// Lenient strips comments and trailing commas before decoding.
	Lenient bool
}

func (JSON) Name() string { return "json" }

func (JSON) MIME() string { return MIMEJSON }

// Encode returns the canonical JSON encoding of value without HTML
// escaping or a trailing newline.
func (JSON) Encode(value any) ([]byte, error) {
	first, err := marshalUnescaped(value)
	if err != nil {
		return nil, fmt.Errorf("serializer: json encode: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(first))
	decoder.UseNumber()
	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("serializer: json canonicalize: %w", err)
	}

	// go-json sorts map keys by default.
	canonical, err := marshalUnescaped(generic)
	if err != nil {
		return nil, fmt.Errorf("serializer: json encode: %w", err)
	}
	return canonical, nil
}

// marshalUnescaped encodes value with HTML escaping off at every depth.
// MarshalNoEscape only covers the top-level value; strings nested in a
// map[string]any still come out as \u003c and friends.
func marshalUnescaped(value any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

// Decode parses data into target. Trailing garbage is an error.
func (s JSON) Decode(data []byte, target any) error {
	if _, err := checkTarget(target); err != nil {
		return err
	}
	if s.Lenient {
		data = jsonc.ToJSON(data)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("serializer: json decode: %w", err)
	}
	return nil
}
