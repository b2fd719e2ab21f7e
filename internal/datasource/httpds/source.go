package httpds

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"modelcatalog/internal/datasource/file"
)

// Source downloads a dump with GET. URLs whose path ends in ".gz" or
// responses with Content-Encoding gzip are decompressed.
type Source struct {
	client  *Client
	url     string
	headers http.Header
}

// NewSource binds a client to a dump URL.
func NewSource(c *Client, rawURL string, headers http.Header) *Source {
	return &Source{client: c, url: rawURL, headers: headers}
}

// URL reports the configured address.
func (s *Source) URL() string { return s.url }

// Open issues the request and returns the body. Non-2xx responses are errors.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, s.headers)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", s.url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		return nil, errors.Errorf("fetch %s: unexpected status %s", s.url, resp.Status)
	}
	if !s.compressed(resp) {
		return resp.Body, nil
	}
	rc, err := file.Gunzip(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, errors.Wrapf(err, "fetch %s", s.url)
	}
	return rc, nil
}

func (s *Source) compressed(resp *http.Response) bool {
	if resp.Uncompressed {
		return false
	}
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return true
	}
	u, err := url.Parse(s.url)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".gz")
}
