// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is wrapped by every decode failure.
var ErrInvalidInput = errors.New("transport: invalid input")

// Codec converts bytes to a channel-safe fragment string and back.
type Codec interface {
	// Name is the configuration name of the codec.
	Name() string

	// Encode returns the channel-safe form of data.
	Encode(data []byte) (string, error)

	// Decode reverses Encode. It fails rather than returning partial
	// or garbage output.
	Decode(fragment string) ([]byte, error)
}

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch name {
	case "base64url", "":
		return Base64URL{}, nil
	case "deflate":
		return Deflate{}, nil
	case "gzip":
		return Gzip{}, nil
	case "zstd":
		return Zstd{}, nil
	case "lz4":
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("transport: unknown codec %q", name)
	}
}

// Names lists the codecs ByName accepts.
func Names() []string {
	return []string{"base64url", "deflate", "gzip", "zstd", "lz4"}
}

// base64Encoding rejects non-zero padding bits so that a flipped final
// character is detected instead of silently decoding.
var base64Encoding = base64.RawURLEncoding.Strict()

func encodeBase64(data []byte) string {
	return base64Encoding.EncodeToString(data)
}

// decodeBase64 decodes unpadded base64url. Trailing '=' padding from
// foreign encoders is tolerated.
func decodeBase64(fragment string) ([]byte, error) {
	data, err := base64Encoding.DecodeString(strings.TrimRight(fragment, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: base64url: %w", ErrInvalidInput, err)
	}
	return data, nil
}

// Base64URL is the uncompressed codec.
type Base64URL struct{}

func (Base64URL) Name() string { return "base64url" }

func (Base64URL) Encode(data []byte) (string, error) {
	return encodeBase64(data), nil
}

func (Base64URL) Decode(fragment string) ([]byte, error) {
	return decodeBase64(fragment)
}
