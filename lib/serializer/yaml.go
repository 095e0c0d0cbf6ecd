// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serializer

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML serializes with gopkg.in/yaml.v3. Mapping keys are emitted in
// sorted order for Go maps, so map-shaped documents encode
// deterministically.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) MIME() string { return MIMEYAML }

func (YAML) Encode(value any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return nil, fmt.Errorf("serializer: yaml encode: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("serializer: yaml encode: %w", err)
	}
	return buffer.Bytes(), nil
}

// errEmptyYAML is returned for input without a YAML document. An empty
// body is never a valid assembled payload.
var errEmptyYAML = errors.New("no yaml document")

func (YAML) Decode(data []byte, target any) error {
	if _, err := checkTarget(target); err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("serializer: yaml decode: %w", errEmptyYAML)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("serializer: yaml decode: %w", err)
	}
	return nil
}
