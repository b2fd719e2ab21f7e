// Package file implements a local filesystem-backed data source.
package file

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Local is a filesystem data source that opens files from the local disk.
// Paths ending in ".gz" are decompressed on the fly.
type Local struct{ path string }

// NewLocal returns a Local source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path reports the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// A canceled context short-circuits before the filesystem is touched.
// Filesystem errors are wrapped with the path and still satisfy
// errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", l.path)
	}
	if !strings.HasSuffix(strings.ToLower(l.path), ".gz") {
		return f, nil
	}
	rc, err := Gunzip(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "open %s", l.path)
	}
	return rc, nil
}

// Gunzip wraps a compressed stream. Closing the result closes both the
// gzip reader and rc.
func Gunzip(rc io.ReadCloser) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(rc)
	if err != nil {
		return nil, errors.Wrap(err, "gzip header")
	}
	return &gzipReadCloser{Reader: zr, under: rc}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	under io.Closer
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.under.Close(); err != nil {
		return err
	}
	return zerr
}
