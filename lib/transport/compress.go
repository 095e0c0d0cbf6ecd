// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// maxDecodedSize bounds decompressed output so that a crafted fragment
// set cannot expand without limit. Real payloads are a few hundred KiB
// at most; QR channels cannot carry more.
const maxDecodedSize = 64 * 1024 * 1024

// readAllBounded drains reader, failing if it produces more than
// maxDecodedSize bytes or if it errors before a clean EOF.
func readAllBounded(name string, reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidInput, name, err)
	}
	if len(data) > maxDecodedSize {
		return nil, fmt.Errorf("%w: %s: decoded size exceeds %d bytes", ErrInvalidInput, name, maxDecodedSize)
	}
	return data, nil
}

// Deflate compresses with DEFLATE in a zlib frame (RFC 1950) at the
// best compression level. The Adler-32 trailer catches corruption that
// still inflates to a valid stream.
type Deflate struct{}

func (Deflate) Name() string { return "deflate" }

func (Deflate) Encode(data []byte) (string, error) {
	var buffer bytes.Buffer
	writer, err := zlib.NewWriterLevel(&buffer, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("transport: deflate: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return "", fmt.Errorf("transport: deflate: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("transport: deflate: %w", err)
	}
	return encodeBase64(buffer.Bytes()), nil
}

func (Deflate) Decode(fragment string) ([]byte, error) {
	compressed, err := decodeBase64(fragment)
	if err != nil {
		return nil, err
	}
	// The zlib reader checks the header and verifies the Adler-32
	// checksum at EOF; bytes.Reader keeps it from reading past the
	// trailer, so leftover input is visible below.
	source := bytes.NewReader(compressed)
	reader, err := zlib.NewReader(source)
	if err != nil {
		return nil, fmt.Errorf("%w: deflate: %w", ErrInvalidInput, err)
	}
	defer reader.Close()
	data, err := readAllBounded("deflate", reader)
	if err != nil {
		return nil, err
	}
	if source.Len() != 0 {
		return nil, fmt.Errorf("%w: deflate: %d trailing bytes after stream", ErrInvalidInput, source.Len())
	}
	return data, nil
}

// Gzip compresses with gzip; the CRC-32 trailer catches corruption.
type Gzip struct{}

func (Gzip) Name() string { return "gzip" }

func (Gzip) Encode(data []byte) (string, error) {
	var buffer bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buffer, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("transport: gzip: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return "", fmt.Errorf("transport: gzip: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("transport: gzip: %w", err)
	}
	return encodeBase64(buffer.Bytes()), nil
}

func (Gzip) Decode(fragment string) ([]byte, error) {
	compressed, err := decodeBase64(fragment)
	if err != nil {
		return nil, err
	}
	// bytes.Reader is an io.ByteReader, so the gzip reader consumes
	// exactly one member and source.Len reports what is left over.
	source := bytes.NewReader(compressed)
	reader, err := gzip.NewReader(source)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %w", ErrInvalidInput, err)
	}
	defer reader.Close()
	reader.Multistream(false)
	data, err := readAllBounded("gzip", reader)
	if err != nil {
		return nil, err
	}
	if source.Len() != 0 {
		return nil, fmt.Errorf("%w: gzip: %d trailing bytes after stream", ErrInvalidInput, source.Len())
	}
	return data, nil
}

// zstdEncoder and zstdDecoder are shared across calls; both are safe
// for concurrent use via EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderCRC(true),
	)
	if err != nil {
		panic("transport: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(maxDecodedSize),
	)
	if err != nil {
		panic("transport: zstd decoder initialization failed: " + err.Error())
	}
}

// Zstd compresses with zstd at the best-compression level.
type Zstd struct{}

func (Zstd) Name() string { return "zstd" }

func (Zstd) Encode(data []byte) (string, error) {
	return encodeBase64(zstdEncoder.EncodeAll(data, nil)), nil
}

func (Zstd) Decode(fragment string) ([]byte, error) {
	compressed, err := decodeBase64(fragment)
	if err != nil {
		return nil, err
	}
	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrInvalidInput, err)
	}
	return data, nil
}

// LZ4 compresses with the LZ4 frame format, block and content
// checksums enabled.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Encode(data []byte) (string, error) {
	var buffer bytes.Buffer
	writer := lz4.NewWriter(&buffer)
	if err := writer.Apply(
		lz4.CompressionLevelOption(lz4.Level9),
		lz4.BlockChecksumOption(true),
		lz4.ChecksumOption(true),
	); err != nil {
		return "", fmt.Errorf("transport: lz4: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return "", fmt.Errorf("transport: lz4: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("transport: lz4: %w", err)
	}
	return encodeBase64(buffer.Bytes()), nil
}

func (LZ4) Decode(fragment string) ([]byte, error) {
	compressed, err := decodeBase64(fragment)
	if err != nil {
		return nil, err
	}
	return readAllBounded("lz4", lz4.NewReader(bytes.NewReader(compressed)))
}
