// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serializer

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
var cborEncMode cbor.EncMode

// cborDecMode decodes untyped maps as map[string]any so decoded
// documents look the same as the JSON and YAML forms.
var cborDecMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	cborEncMode, err = encOptions.EncMode()
	if err != nil {
		panic("serializer: CBOR encoder initialization failed: " + err.Error())
	}

	cborDecMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("serializer: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR serializes with fxamacker/cbor using deterministic encoding.
type CBOR struct{}

func (CBOR) Name() string { return "cbor" }

func (CBOR) MIME() string { return MIMECBOR }

func (CBOR) Encode(value any) ([]byte, error) {
	data, err := cborEncMode.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serializer: cbor encode: %w", err)
	}
	return data, nil
}

// Decode parses exactly one CBOR data item. Trailing bytes are
// reported as an error by the decoder.
func (CBOR) Decode(data []byte, target any) error {
	if _, err := checkTarget(target); err != nil {
		return err
	}
	if err := cborDecMode.Unmarshal(data, target); err != nil {
		return fmt.Errorf("serializer: cbor decode: %w", err)
	}
	return nil
}
