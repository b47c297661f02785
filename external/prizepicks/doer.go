package prizepicks

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	TransportNetHTTP  = "nethttp"
	TransportFastHTTP = "fasthttp"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewDoer builds the transport selected by kind.
func NewDoer(kind string, timeout time.Duration) (Doer, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", TransportNetHTTP:
		return NewNetHTTPClient(timeout), nil
	case TransportFastHTTP:
		return NewFastHTTPDoer(timeout), nil
	default:
		return nil, fmt.Errorf("unsupported upstream transport %q", kind)
	}
}

// NewNetHTTPClient returns a net/http client whose transport emits client spans.
func NewNetHTTPClient(timeout time.Duration) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConnsPerHost = 8
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(base),
	}
}

// FastHTTPDoer adapts a fasthttp client to the Doer contract. The request context deadline
// is honoured when it is earlier than the configured timeout.
type FastHTTPDoer struct {
	client  *fasthttp.Client
	timeout time.Duration
}

func NewFastHTTPDoer(timeout time.Duration) *FastHTTPDoer {
	return &FastHTTPDoer{
		client: &fasthttp.Client{
			Name:                "prizepicks-feed",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxConnsPerHost:     8,
			MaxIdleConnDuration: 30 * time.Second,
		},
		timeout: timeout,
	}
}

func (d *FastHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	freq := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(freq)
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(fresp)

	freq.SetRequestURI(req.URL.String())
	freq.Header.SetMethod(req.Method)
	for key, values := range req.Header {
		for i, value := range values {
			if i == 0 {
				freq.Header.Set(key, value)
				continue
			}
			freq.Header.Add(key, value)
		}
	}

	deadline := time.Now().Add(d.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := d.client.DoDeadline(freq, fresp, deadline); err != nil {
		return nil, err
	}

	header := make(http.Header)
	fresp.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	body := bytes.Clone(fresp.Body())

	status := fresp.StatusCode()
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}
