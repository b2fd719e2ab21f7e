// Package datasource defines where catalog dumps are read from.
package datasource

import (
	"context"
	"io"
)

// Source yields the raw bytes of one JSONL dump. Implementations decompress
// transparently, so callers always read plain lines.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
