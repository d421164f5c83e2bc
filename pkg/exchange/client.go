// Package exchange implements the shared base client that every per-venue
// adapter builds on: the rate-limited request lifecycle, response decoding
// and error classification, the market/currency registry, and precision
// helpers. Adapters declare endpoint tables and signing; the base client
// does the rest.
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"nakula/internal/circuitbreaker"
	"nakula/internal/ratelimit"
	"nakula/internal/transport"
	"nakula/pkg/core"
)

// SignInput is what the base client hands to an adapter's Sign: the
// declared path template, the api type it was declared under, the HTTP
// method, and the caller's params, headers and body.
type SignInput struct {
	Path    string
	APIType string
	Method  string
	Params  core.Params
	Headers map[string]string
	Body    []byte
}

// SignedRequest is the finalized request an adapter's Sign returns.
type SignedRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}

// Adapter is the contract every venue implementation satisfies. Sign is
// the one mandatory extension point of the request lifecycle; the base
// client has no default signing behavior beyond delegating.
type Adapter interface {
	// Describe returns the adapter's static configuration overrides.
	Describe() *Describe
	// Sign finalizes a request: URL construction, authentication headers,
	// body encoding.
	Sign(in *SignInput) (*SignedRequest, error)
	// FetchMarkets retrieves the venue's raw market table.
	FetchMarkets(ctx context.Context) ([]*core.Market, error)
}

// CurrencyFetcher is implemented by adapters whose venue exposes an
// explicit currency listing; without it currencies are derived from
// markets.
type CurrencyFetcher interface {
	FetchCurrencies(ctx context.Context) (map[string]*core.Currency, error)
}

// ResponseContext is the decoded response handed to an adapter's
// HandleErrors hook before default classification runs.
type ResponseContext struct {
	StatusCode     int
	Status         string
	URL            string
	Method         string
	Headers        map[string]string
	Body           string
	JSON           any
	RequestHeaders map[string]string
	RequestBody    []byte
}

// ErrorHandler is implemented by adapters that classify venue-specific
// error payloads. Returning a non-nil error preempts the default handler.
type ErrorHandler interface {
	HandleErrors(resp *ResponseContext) error
}

// Fetcher abstracts the HTTP transport so tests can substitute it.
type Fetcher interface {
	Fetch(ctx context.Context, url, method string, headers map[string]string, body []byte) (*transport.Response, error)
}

var validate = validator.New()

// Client is the shared base of all adapters. One Client owns one venue
// connection: its token bucket, market registry and response caches are
// instance state, never shared across clients. Client is safe for
// concurrent use.
type Client struct {
	adapter  Adapter
	desc     *Describe
	creds    core.Credentials
	fetcher  Fetcher
	throttle *ratelimit.Bucket
	breaker  *circuitbreaker.Breaker
	logger   zerolog.Logger

	endpoints map[string]endpoint

	proxy     string
	proxyFunc func(string) string
	origin    string

	registry registry

	lastHTTPResponse    string
	lastJSONResponse    any
	lastResponseHeaders map[string]string
}

// NewClient builds the base client for an adapter. The adapter's Describe
// overrides are applied over DefaultDescribe and validated; the endpoint
// dispatch table and token bucket are constructed once here.
func NewClient(adapter Adapter, opts ...Option) (*Client, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}

	desc := DefaultDescribe().Apply(adapter.Describe())
	if err := validate.Struct(desc); err != nil {
		return nil, fmt.Errorf("invalid describe config: %w", err)
	}

	c := &Client{
		adapter:   adapter,
		desc:      desc,
		logger:    zerolog.Nop(),
		endpoints: buildEndpoints(desc.API),
		origin:    "*",
	}

	settings := newSettings()
	for _, opt := range opts {
		opt(settings)
	}
	settings.apply(c)

	if c.throttle == nil {
		bucket := desc.TokenBucket
		if bucket == (ratelimit.Config{}) {
			bucket = ratelimit.Config{
				Delay:       desc.RateLimit,
				Capacity:    1,
				DefaultCost: 1,
				MaxCapacity: 1000,
			}
		}
		c.throttle = ratelimit.NewBucket(bucket)
	}

	if c.fetcher == nil {
		c.fetcher = transport.NewClient(transport.Config{
			Exchange: desc.ID,
			Timeout:  desc.Timeout,
			Logger:   c.logger,
		})
	}

	if settings.sandbox {
		if err := c.setSandboxMode(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ID returns the exchange identifier.
func (c *Client) ID() string {
	return c.desc.ID
}

// Describe returns the effective configuration. Treat it as read-only.
func (c *Client) Describe() *Describe {
	return c.desc
}

// Has returns the capability of the named operation.
func (c *Client) Has(name string) core.Capability {
	return c.desc.Has.Get(name)
}

// Credentials returns the configured credentials.
func (c *Client) Credentials() core.Credentials {
	return c.creds
}

// Close releases transport resources.
func (c *Client) Close() error {
	if closer, ok := c.fetcher.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// setSandboxMode swaps API base URLs for the venue's test environment.
func (c *Client) setSandboxMode() error {
	if c.desc.URLs.Test == nil {
		return core.NotSupported(c.desc.ID, "sandbox mode")
	}
	c.desc.URLs.API = c.desc.URLs.Test
	return nil
}

// CheckRequiredCredentials fails with AuthenticationError naming the first
// declared credential field that is missing.
func (c *Client) CheckRequiredCredentials() error {
	for _, field := range []string{"apiKey", "secret", "uid", "login", "password", "token", "twofa"} {
		if c.desc.RequiredCredentials[field] && c.creds.Field(field) == "" {
			return core.NewErrorf(core.KindAuthenticationError, c.desc.ID,
				"requires %q credential", field)
		}
	}
	return nil
}

// minAddressLength is the shortest address CheckAddress accepts.
const minAddressLength = 1

// CheckAddress validates a deposit or withdrawal address: it must be
// non-empty, long enough, not a single repeated character, and contain no
// whitespace.
func (c *Client) CheckAddress(address string) (string, error) {
	if address == "" {
		return "", core.NewError(core.KindInvalidAddress, c.desc.ID, "address is undefined")
	}
	if len(address) < minAddressLength ||
		strings.Count(address, address[:1]) == len(address) ||
		strings.ContainsAny(address, " \t\n") {
		return "", core.NewErrorf(core.KindInvalidAddress, c.desc.ID,
			"address is invalid or has less than %d characters: %q", minAddressLength, address)
	}
	return address, nil
}

// Call dispatches to a declared endpoint by its generated name, camel-case
// or snake-case. Unknown names fail with NotSupported.
func (c *Client) Call(ctx context.Context, name string, params core.Params) (any, error) {
	ep, ok := c.endpoints[name]
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "endpoint "+name)
	}
	return c.Request(ctx, ep.path, ep.apiType, ep.method, params, nil, nil)
}

// Request runs the full lifecycle for one REST call: throttle, sign,
// transport, decode and classify. On success it returns the parsed JSON, or
// the raw body string when the body was not JSON.
func (c *Client) Request(ctx context.Context, path, apiType, method string, params core.Params, headers map[string]string, body []byte) (any, error) {
	if c.desc.EnableRateLimit {
		if err := c.throttle.Throttle(ctx); err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}
	}

	if params == nil {
		params = core.Params{}
	}
	signed, err := c.adapter.Sign(&SignInput{
		Path:    path,
		APIType: apiType,
		Method:  method,
		Params:  params,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	url := signed.URL
	reqHeaders := c.requestHeaders(signed.Headers)
	switch {
	case c.proxyFunc != nil:
		url = c.proxyFunc(url)
		reqHeaders["Origin"] = c.origin
	case c.proxy != "":
		url = c.proxy + url
		reqHeaders["Origin"] = c.origin
	}

	if c.breaker != nil && !c.breaker.Allow() {
		return nil, core.NewError(core.KindExchangeNotAvailable, c.desc.ID, "circuit breaker is open")
	}

	c.logger.Debug().
		Str("exchange", c.desc.ID).
		Str("method", signed.Method).
		Str("url", url).
		Msg("request")

	resp, err := c.fetcher.Fetch(ctx, url, signed.Method, reqHeaders, signed.Body)
	if c.breaker != nil {
		c.breaker.Record(err == nil && resp != nil && resp.StatusCode < 500)
	}
	if err != nil {
		return nil, err
	}

	return c.handleRestResponse(resp, url, signed.Method, reqHeaders, signed.Body)
}

// requestHeaders merges instance default headers under the signed request's
// headers and injects the configured user agent.
func (c *Client) requestHeaders(signed map[string]string) map[string]string {
	merged := make(map[string]string, len(c.desc.Headers)+len(signed)+1)
	if c.desc.UserAgent != "" {
		merged["User-Agent"] = c.desc.UserAgent
	}
	for k, v := range c.desc.Headers {
		merged[k] = v
	}
	for k, v := range signed {
		merged[k] = v
	}
	return merged
}

// LastHTTPResponse returns the cached raw body of the most recent response,
// when caching is enabled. Diagnostic only.
func (c *Client) LastHTTPResponse() string {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	return c.lastHTTPResponse
}

// LastJSONResponse returns the cached parsed JSON of the most recent
// response, when caching is enabled. Diagnostic only.
func (c *Client) LastJSONResponse() any {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	return c.lastJSONResponse
}

// LastResponseHeaders returns the cached canonicalized headers of the most
// recent response, when caching is enabled. Diagnostic only.
func (c *Client) LastResponseHeaders() map[string]string {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	return c.lastResponseHeaders
}

// Milliseconds returns the current wall clock in Unix milliseconds; nonce
// inputs of signature schemes typically start from it.
func (c *Client) Milliseconds() int64 {
	return time.Now().UnixMilli()
}

// Seconds returns the current wall clock in Unix seconds.
func (c *Client) Seconds() int64 {
	return time.Now().Unix()
}
