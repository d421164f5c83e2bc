package exchange

import (
	"maps"
	"time"

	"nakula/internal/ratelimit"
	"nakula/pkg/core"
	"nakula/pkg/precision"
)

// APIMap declares a venue's REST endpoints as
// apiType -> httpMethod -> path templates. Path templates may embed
// {placeholder} tokens substituted from params at call time.
type APIMap map[string]map[string][]string

// URLs holds the venue's addresses. API maps api types (public, private, ...)
// to base URLs; the "" key is the fallback for types without a dedicated URL.
type URLs struct {
	API  map[string]string
	Test map[string]string
	WWW  string
	Doc  []string
	Logo string
}

// Base returns the API base URL for apiType, falling back to the "" entry.
func (u URLs) Base(apiType string) (string, bool) {
	if base, ok := u.API[apiType]; ok {
		return base, true
	}
	base, ok := u.API[""]
	return base, ok
}

// TradingFees holds the exchange-wide default trading fee schedule.
// Per-market overrides on core.Market win on conflict.
type TradingFees struct {
	TierBased  bool
	Percentage bool
	Taker      *float64
	Maker      *float64
}

// Describe is the static configuration of one exchange adapter: identity,
// endpoint tables, capability flags, fee and precision defaults, and error
// mapping tables. It is assembled once by ordinary struct composition
// (DefaultDescribe overlaid by the adapter's overrides) and treated as
// read-only afterwards.
type Describe struct {
	// ID is the lowercase exchange identifier, unique across adapters.
	ID string `validate:"required,lowercase"`
	// Name is the human-readable exchange name.
	Name string
	// Countries lists ISO country codes the venue operates from.
	Countries []string
	// Version is the venue API version.
	Version string

	// RateLimit is the minimum spacing between unit-cost requests.
	RateLimit time.Duration `validate:"min=0"`
	// EnableRateLimit toggles the token bucket in the request lifecycle.
	EnableRateLimit bool
	// TokenBucket overrides the throttle configuration derived from RateLimit.
	TokenBucket ratelimit.Config
	// Timeout bounds every HTTP request.
	Timeout time.Duration `validate:"min=1ms"`

	URLs URLs
	API  APIMap

	// Has declares the adapter's capabilities.
	Has core.CapabilitySet
	// RequiredCredentials names the credential fields Sign depends on.
	RequiredCredentials map[string]bool
	// CommonCurrencies maps venue-specific currency codes to unified ones.
	CommonCurrencies map[string]string

	Fees          TradingFees
	Limits        core.Limits
	Precision     core.Precision
	PrecisionMode precision.Mode

	// Headers are sent with every request.
	Headers map[string]string
	// UserAgent is sent as the User-Agent header when non-empty.
	UserAgent string

	// HTTPExceptions maps HTTP status codes to error kinds. Entries overlay
	// the fixed core.HTTPExceptions table.
	HTTPExceptions map[int]core.ErrorKind
	// Exceptions classifies venue error payloads (exact and broad matches).
	Exceptions core.ExceptionMap

	// EnableLastHTTPResponse caches the last raw response body (diagnostic).
	EnableLastHTTPResponse bool
	// EnableLastJSONResponse caches the last parsed JSON (diagnostic).
	EnableLastJSONResponse bool
	// EnableLastResponseHeaders caches the last response headers (diagnostic).
	EnableLastResponseHeaders bool
}

// DefaultDescribe returns the base configuration every adapter starts from.
func DefaultDescribe() *Describe {
	return &Describe{
		RateLimit:       2 * time.Second,
		EnableRateLimit: true,
		Timeout:         10 * time.Second,
		Has: core.CapabilitySet{
			"cancelOrder":      core.CapNative,
			"createOrder":      core.CapNative,
			"editOrder":        core.CapEmulated,
			"fetchBalance":     core.CapNative,
			"fetchL2OrderBook": core.CapNative,
			"fetchMarkets":     core.CapNative,
			"fetchOHLCV":       core.CapEmulated,
			"fetchOrderBook":   core.CapNative,
			"fetchTicker":      core.CapNative,
			"fetchTrades":      core.CapNative,
		},
		RequiredCredentials: map[string]bool{
			"apiKey": true,
			"secret": true,
		},
		CommonCurrencies: map[string]string{
			"XBT":    "BTC",
			"BCC":    "BCH",
			"BCHABC": "BCH",
			"BCHSV":  "BSV",
			"DRK":    "DASH",
		},
		PrecisionMode:             precision.DecimalPlaces,
		EnableLastHTTPResponse:    true,
		EnableLastJSONResponse:    true,
		EnableLastResponseHeaders: true,
	}
}

// Apply overlays the adapter's overrides onto d and returns d. Scalars
// override when non-zero, maps merge key-wise with the override winning,
// boolean toggles override unconditionally.
func (d *Describe) Apply(override *Describe) *Describe {
	if override == nil {
		return d
	}
	if override.ID != "" {
		d.ID = override.ID
	}
	if override.Name != "" {
		d.Name = override.Name
	}
	if len(override.Countries) > 0 {
		d.Countries = override.Countries
	}
	if override.Version != "" {
		d.Version = override.Version
	}
	if override.RateLimit > 0 {
		d.RateLimit = override.RateLimit
	}
	d.EnableRateLimit = override.EnableRateLimit || d.EnableRateLimit
	if override.TokenBucket != (ratelimit.Config{}) {
		d.TokenBucket = override.TokenBucket
	}
	if override.Timeout > 0 {
		d.Timeout = override.Timeout
	}
	d.URLs = mergeURLs(d.URLs, override.URLs)
	if override.API != nil {
		d.API = override.API
	}
	if override.Has != nil {
		d.Has = d.Has.Merge(override.Has)
	}
	if override.RequiredCredentials != nil {
		d.RequiredCredentials = override.RequiredCredentials
	}
	if override.CommonCurrencies != nil {
		merged := maps.Clone(d.CommonCurrencies)
		maps.Copy(merged, override.CommonCurrencies)
		d.CommonCurrencies = merged
	}
	d.Fees = mergeFees(d.Fees, override.Fees)
	d.Limits = mergeLimits(d.Limits, override.Limits)
	d.Precision = mergePrecision(d.Precision, override.Precision)
	if override.PrecisionMode != 0 {
		d.PrecisionMode = override.PrecisionMode
	}
	if override.Headers != nil {
		merged := maps.Clone(d.Headers)
		if merged == nil {
			merged = make(map[string]string, len(override.Headers))
		}
		maps.Copy(merged, override.Headers)
		d.Headers = merged
	}
	if override.UserAgent != "" {
		d.UserAgent = override.UserAgent
	}
	if override.HTTPExceptions != nil {
		merged := maps.Clone(d.HTTPExceptions)
		if merged == nil {
			merged = make(map[int]core.ErrorKind, len(override.HTTPExceptions))
		}
		maps.Copy(merged, override.HTTPExceptions)
		d.HTTPExceptions = merged
	}
	if override.Exceptions.Exact != nil || override.Exceptions.Broad != nil {
		d.Exceptions = override.Exceptions
	}
	return d
}

// statusKind resolves an HTTP status code through the adapter overrides and
// the fixed default table.
func (d *Describe) statusKind(status int) (core.ErrorKind, bool) {
	if kind, ok := d.HTTPExceptions[status]; ok {
		return kind, true
	}
	kind, ok := core.HTTPExceptions[status]
	return kind, ok
}

func mergeURLs(base, override URLs) URLs {
	if override.API != nil {
		base.API = override.API
	}
	if override.Test != nil {
		base.Test = override.Test
	}
	if override.WWW != "" {
		base.WWW = override.WWW
	}
	if len(override.Doc) > 0 {
		base.Doc = override.Doc
	}
	if override.Logo != "" {
		base.Logo = override.Logo
	}
	return base
}

func mergeFees(base, override TradingFees) TradingFees {
	if override.Taker != nil {
		base.Taker = override.Taker
	}
	if override.Maker != nil {
		base.Maker = override.Maker
	}
	base.TierBased = base.TierBased || override.TierBased
	base.Percentage = base.Percentage || override.Percentage
	return base
}

func mergeLimits(base, override core.Limits) core.Limits {
	base.Amount = mergeMinMax(base.Amount, override.Amount)
	base.Price = mergeMinMax(base.Price, override.Price)
	base.Cost = mergeMinMax(base.Cost, override.Cost)
	return base
}

func mergeMinMax(base, override core.MinMax) core.MinMax {
	if override.Min != nil {
		base.Min = override.Min
	}
	if override.Max != nil {
		base.Max = override.Max
	}
	return base
}

func mergePrecision(base, override core.Precision) core.Precision {
	if override.Amount != nil {
		base.Amount = override.Amount
	}
	if override.Price != nil {
		base.Price = override.Price
	}
	if override.Base != nil {
		base.Base = override.Base
	}
	if override.Quote != nil {
		base.Quote = override.Quote
	}
	return base
}
