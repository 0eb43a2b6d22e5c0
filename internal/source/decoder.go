package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// IsCompressed reports whether name carries zstd framing.
func IsCompressed(name string) bool {
	return strings.HasSuffix(name, ".zst")
}

// decodedReader closes both the zstd stream and the underlying file.
type decodedReader struct {
	io.ReadCloser
	raw io.Closer
}

func (d *decodedReader) Close() error {
	d.ReadCloser.Close()
	return d.raw.Close()
}

// Decode wraps rc in a zstd decoder when name ends in .zst, otherwise it
// returns rc unchanged.
func Decode(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	if !IsCompressed(name) {
		return rc, nil
	}
	dec, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1))
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &decodedReader{ReadCloser: dec.IOReadCloser(), raw: rc}, nil
}
