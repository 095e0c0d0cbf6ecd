// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serializer

import (
	"fmt"
	"reflect"
)

// Serializer converts between structured values and bytes.
type Serializer interface {
	// Name is the configuration name ("json", "yaml", "cbor", "auto").
	Name() string

	// MIME is the media type recorded on assembled artifacts.
	MIME() string

	// Encode serializes value.
	Encode(value any) ([]byte, error)

	// Decode deserializes data into target, which must be a non-nil
	// pointer.
	Decode(data []byte, target any) error
}

// Media types of the built-in formats.
const (
	MIMEJSON = "application/json"
	MIMEYAML = "application/yaml"
	MIMECBOR = "application/cbor"
)

// ByName returns the serializer configured under name. "auto" returns
// an AutoDetect with JSON as primary and JSON, YAML, CBOR as
// candidates.
func ByName(name string) (Serializer, error) {
	switch name {
	case "json", "":
		return JSON{}, nil
	case "jsonc":
		return JSON{Lenient: true}, nil
	case "yaml":
		return YAML{}, nil
	case "cbor":
		return CBOR{}, nil
	case "auto":
		return NewAutoDetect(JSON{}, JSON{}, YAML{}, CBOR{}), nil
	default:
		return nil, fmt.Errorf("serializer: unknown serializer %q", name)
	}
}

// checkTarget rejects targets that cannot receive a decoded value.
func checkTarget(target any) (reflect.Value, error) {
	value := reflect.ValueOf(target)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return reflect.Value{}, fmt.Errorf("serializer: decode target must be a non-nil pointer, got %T", target)
	}
	return value, nil
}
