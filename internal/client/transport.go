package client

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	acceptEncoding  = "gzip, br, zstd"
	requestIDHeader = "X-Request-ID"
)

// decoders maps a Content-Encoding token to a reader that undoes it.
var decoders = map[string]func(io.Reader) (io.ReadCloser, error){
	"gzip": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"br": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
	"zstd": func(r io.Reader) (io.ReadCloser, error) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	},
}

// apiTransport tags every request with a request id, negotiates compression,
// and transparently decodes gzip, brotli and zstd response bodies.
type apiTransport struct {
	base http.RoundTripper
}

func newAPITransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &apiTransport{base: base}
}

// RoundTrip implements http.RoundTripper. The caller's request is never modified.
func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.NewString())
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	decode, ok := decoders[outerEncoding(resp.Header.Get("Content-Encoding"))]
	if !ok {
		return resp, nil
	}
	reader, err := decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	resp.Body = &decodedBody{ReadCloser: reader, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// decodedBody closes the decoder and the raw body underneath it.
type decodedBody struct {
	io.ReadCloser
	raw io.ReadCloser
}

func (b *decodedBody) Close() error {
	decErr := b.ReadCloser.Close()
	if err := b.raw.Close(); err != nil {
		return err
	}
	return decErr
}

// outerEncoding returns the last coding of a Content-Encoding list, lowercased.
// Codings are listed in the order they were applied, so the last one is removed first.
func outerEncoding(header string) string {
	if i := strings.LastIndexByte(header, ','); i >= 0 {
		header = header[i+1:]
	}
	return strings.ToLower(strings.TrimSpace(header))
}
