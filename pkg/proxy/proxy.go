// Package proxy forwards GraphQL requests to the federation router.
package proxy

import (
	"bufio"
	"bytes"
	"net/http"
	"strings"
	"sync"

	log "github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"

	"github.com/decarvalhoe/meetinity/pkg/httpclient"
)

// ForwardedHeaders is the allow-list of request headers passed on to the router.
var ForwardedHeaders = []string{
	httpclient.ContentTypeHeader,
	httpclient.AcceptHeader,
	httpclient.RequestIDHeader,
	httpclient.AuthorizationHeader,
}

// ErrRouterUnavailable is passed to HandleError when the router cannot be reached.
var ErrRouterUnavailable = errors.New("GraphQL router unavailable")

// Proxy relays requests to RouterURL and streams the router response back unchanged,
// except for Content-Length which is left to the server.
type Proxy struct {
	RouterURL          string
	Client             *http.Client
	HandleError        func(err error, w http.ResponseWriter)
	BufferPool         sync.Pool
	BufferedReaderPool sync.Pool
}

// AcceptRequest builds the upstream request for r. The body is buffered into buff.
func (p *Proxy) AcceptRequest(r *http.Request, buff *bytes.Buffer) (*http.Request, error) {
	if r.Body != nil {
		if _, err := buff.ReadFrom(r.Body); err != nil {
			return nil, errors.Wrap(err, "read request body")
		}
	}

	target := p.RouterURL
	if r.URL.RawQuery != "" {
		separator := "?"
		if strings.Contains(target, "?") {
			separator = "&"
		}
		target += separator + r.URL.RawQuery
	}

	upstream, err := http.NewRequestWithContext(r.Context(), r.Method, target, bytes.NewReader(buff.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "build router request")
	}
	for _, name := range ForwardedHeaders {
		if values, ok := r.Header[http.CanonicalHeaderKey(name)]; ok {
			upstream.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}
	}
	return upstream, nil
}

func (p *Proxy) DispatchRequest(upstream *http.Request) (*http.Response, error) {
	response, err := p.Client.Do(upstream)
	if err != nil {
		return nil, errors.Wrap(ErrRouterUnavailable, err.Error())
	}
	return response, nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	buff := p.BufferPool.Get().(*bytes.Buffer)
	buff.Reset()
	defer p.BufferPool.Put(buff)

	upstream, err := p.AcceptRequest(r, buff)
	if err != nil {
		p.HandleError(err, w)
		return
	}

	response, err := p.DispatchRequest(upstream)
	if err != nil {
		p.HandleError(err, w)
		return
	}
	defer response.Body.Close()

	for key, values := range response.Header {
		if key == httpclient.ContentLengthHeader {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(response.StatusCode)

	bufferedReader := p.BufferedReaderPool.Get().(*bufio.Reader)
	bufferedReader.Reset(response.Body)
	defer p.BufferedReaderPool.Put(bufferedReader)

	// the status line is already written, a broken body can only be logged by the caller's transport
	_, _ = bufferedReader.WriteTo(w)
}

// NewRouterProxy creates a Proxy for routerURL. Errors reaching the router are answered with 502,
// any other error with 500.
func NewRouterProxy(routerURL string, client *http.Client, logger log.Logger) *Proxy {
	if client == nil {
		client = httpclient.New(httpclient.DefaultConnectTimeout, httpclient.DefaultReadTimeout)
	}
	if logger == nil {
		logger = log.NoopLogger
	}
	return &Proxy{
		RouterURL: routerURL,
		Client:    client,
		HandleError: func(err error, w http.ResponseWriter) {
			logger.Error("proxy.Proxy.ServeHTTP",
				log.String("router", routerURL),
				log.Error(err),
			)
			if errors.Is(err, ErrRouterUnavailable) {
				WriteError(w, http.StatusBadGateway, ErrRouterUnavailable.Error())
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error())
		},
		BufferPool: sync.Pool{
			New: func() interface{} {
				return &bytes.Buffer{}
			},
		},
		BufferedReaderPool: sync.Pool{
			New: func() interface{} {
				return bufio.NewReader(nil)
			},
		},
	}
}
