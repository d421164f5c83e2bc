package exchange

import (
	"github.com/rs/zerolog"

	"nakula/internal/circuitbreaker"
	"nakula/internal/ratelimit"
	"nakula/pkg/core"
)

// Option configures a Client at construction time.
type Option func(*settings)

type settings struct {
	creds     *core.Credentials
	logger    *zerolog.Logger
	fetcher   Fetcher
	throttle  *ratelimit.Bucket
	breaker   *circuitbreaker.Config
	proxy     string
	proxyFunc func(string) string
	origin    string
	sandbox   bool
	rateLimit *bool
}

func newSettings() *settings {
	return &settings{}
}

func (s *settings) apply(c *Client) {
	if s.creds != nil {
		c.creds = *s.creds
	}
	if s.logger != nil {
		c.logger = *s.logger
	}
	if s.fetcher != nil {
		c.fetcher = s.fetcher
	}
	if s.throttle != nil {
		c.throttle = s.throttle
	}
	if s.breaker != nil {
		c.breaker = circuitbreaker.New(*s.breaker)
	}
	if s.proxy != "" {
		c.proxy = s.proxy
	}
	if s.proxyFunc != nil {
		c.proxyFunc = s.proxyFunc
	}
	if s.origin != "" {
		c.origin = s.origin
	}
	if s.rateLimit != nil {
		c.desc.EnableRateLimit = *s.rateLimit
	}
}

// WithCredentials sets the API credentials used for signing.
func WithCredentials(creds core.Credentials) Option {
	return func(s *settings) {
		s.creds = &creds
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = &logger
	}
}

// WithFetcher substitutes the HTTP transport. Tests use it to stub the
// network.
func WithFetcher(f Fetcher) Option {
	return func(s *settings) {
		s.fetcher = f
	}
}

// WithBucket substitutes the request token bucket.
func WithBucket(b *ratelimit.Bucket) Option {
	return func(s *settings) {
		s.throttle = b
	}
}

// WithRateLimit enables or disables request throttling, overriding the
// adapter's Describe default.
func WithRateLimit(enabled bool) Option {
	return func(s *settings) {
		s.rateLimit = &enabled
	}
}

// WithCircuitBreaker wires a circuit breaker into the request lifecycle.
func WithCircuitBreaker(cfg circuitbreaker.Config) Option {
	return func(s *settings) {
		s.breaker = &cfg
	}
}

// WithProxy prefixes every request URL with the given proxy URL and injects
// an Origin header.
func WithProxy(prefix string) Option {
	return func(s *settings) {
		s.proxy = prefix
	}
}

// WithProxyFunc transforms every request URL through fn and injects an
// Origin header.
func WithProxyFunc(fn func(string) string) Option {
	return func(s *settings) {
		s.proxyFunc = fn
	}
}

// WithOrigin sets the Origin header value sent when a proxy is active.
func WithOrigin(origin string) Option {
	return func(s *settings) {
		s.origin = origin
	}
}

// WithSandbox targets the venue's test environment. Construction fails with
// NotSupported when the adapter declares no test URLs.
func WithSandbox() Option {
	return func(s *settings) {
		s.sandbox = true
	}
}
