// Package httpclient contains the HTTP client plumbing shared by schema retrieval and the router proxy.
package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
)

const (
	ContentEncodingHeader = "Content-Encoding"
	AcceptEncodingHeader  = "Accept-Encoding"
	ContentLengthHeader   = "Content-Length"
	ContentTypeHeader     = "Content-Type"
	AcceptHeader          = "Accept"
	AuthorizationHeader   = "Authorization"
	RequestIDHeader       = "X-Request-Id"
	ETagHeader            = "ETag"
	IfNoneMatchHeader     = "If-None-Match"

	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingBrotli  = "br"
)

// Timeouts used to reach the federation router.
const (
	DefaultConnectTimeout = 2 * time.Second
	DefaultReadTimeout    = 10 * time.Second
)

// New returns a client that gives up connecting after connectTimeout and waiting for
// response headers after readTimeout.
func New(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: readTimeout,
			MaxIdleConnsPerHost:   64,
			IdleConnTimeout:       90 * time.Second,
		},
		Timeout: connectTimeout + readTimeout,
	}
}

// Response is a fully read and decoded HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get issues a GET request for url with the given headers and returns the decoded body.
// Compressed responses (gzip, deflate, brotli) are decoded transparently.
func Get(ctx context.Context, client *http.Client, url string, header http.Header) (*Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	request.Header.Set(AcceptEncodingHeader, EncodingGzip)
	request.Header.Add(AcceptEncodingHeader, EncodingDeflate)
	request.Header.Add(AcceptEncodingHeader, EncodingBrotli)

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	reader, err := respBodyReader(response)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	buf := &bytes.Buffer{}
	if _, err = io.Copy(buf, reader); err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: response.StatusCode,
		Header:     response.Header,
		Body:       buf.Bytes(),
	}, nil
}

func respBodyReader(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get(ContentEncodingHeader) {
	case EncodingGzip:
		return gzip.NewReader(resp.Body)
	case EncodingDeflate:
		return flate.NewReader(resp.Body), nil
	case EncodingBrotli:
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}
