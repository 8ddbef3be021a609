package nrbf

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Some shipped builds gzip the whole save container. The record stream
// always starts with the header record byte (0), so a gzip magic number
// unambiguously identifies a compressed file.

var gzipMagic = []byte{0x1f, 0x8b}

// IsCompressed reports whether data begins with the gzip magic number.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// Decompress unwraps a gzip-compressed save container.
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Reason: "open gzip stream", Cause: err}
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecodeError{Reason: "read gzip stream", Cause: err}
	}
	return out, nil
}

// Compress wraps an encoded record stream the way compressed inputs are
// wrapped, so an edited save keeps its container format.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, &EncodeError{Reason: "write gzip stream", Cause: err}
	}
	if err := zw.Close(); err != nil {
		return nil, &EncodeError{Reason: "close gzip stream", Cause: err}
	}
	return buf.Bytes(), nil
}
