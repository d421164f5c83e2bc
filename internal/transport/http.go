// Package transport performs the raw HTTP calls of the request lifecycle.
// It owns timeouts and connection reuse and classifies network-level
// failures; response bodies are decoded upstream.
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"nakula/pkg/core"
)

// Config configures a transport Client.
type Config struct {
	// Exchange is the adapter id stamped onto transport errors.
	Exchange string
	// Timeout bounds every request issued through the client.
	Timeout time.Duration
	// Proxy, when set, is an outbound proxy URL handed to the HTTP stack.
	Proxy string
	// Logger receives debug request/response lines when verbose.
	Logger zerolog.Logger
}

// Response is the raw outcome of a transport call, before decoding.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Status is the HTTP status line reason.
	Status string
	// Headers are the raw response headers.
	Headers http.Header
	// Body is the raw response body.
	Body []byte
}

// Client issues HTTP requests with keep-alive connection reuse. The zero
// value is not usable; construct with NewClient.
type Client struct {
	rc       *resty.Client
	exchange string
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewClient creates a transport client. Connections are pooled and kept
// alive across requests by the underlying HTTP stack.
func NewClient(cfg Config) *Client {
	rc := resty.New()
	rc.SetTimeout(cfg.Timeout)
	if cfg.Proxy != "" {
		rc.SetProxy(cfg.Proxy)
	}

	logger := cfg.Logger
	rc.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http request")
		return nil
	})
	rc.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Int("size", len(resp.Bytes())).
			Msg("http response")
		return nil
	})

	return &Client{
		rc:       rc,
		exchange: cfg.Exchange,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() error {
	return c.rc.Close()
}

// Fetch performs one HTTP call. Network-level failures (DNS, refused
// connection, TLS) come back as ExchangeNotAvailable; an expired deadline
// comes back as RequestTimeout. Cancellation of the in-flight request is
// best-effort at the socket level.
func (c *Client) Fetch(ctx context.Context, url, method string, headers map[string]string, body []byte) (*Response, error) {
	req := c.rc.R().SetContext(ctx)
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	if len(body) > 0 {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, c.classify(err, method, url)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Headers:    resp.Header(),
		Body:       resp.Bytes(),
	}, nil
}

func (c *Client) classify(err error, method, url string) error {
	kind := core.KindExchangeNotAvailable
	message := method + " " + url + " " + err.Error()
	if isTimeout(err) {
		kind = core.KindRequestTimeout
		message = method + " " + url + " request timed out (" + c.timeout.String() + ")"
	}
	return &core.Error{
		Kind:     kind,
		Exchange: c.exchange,
		Message:  message,
		Method:   method,
		URL:      url,
		Cause:    err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
