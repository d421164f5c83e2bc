package exchange

import (
	"context"
	"sort"
	"strings"
	"sync"

	"nakula/pkg/core"
	"nakula/pkg/precision"
)

// registry is the per-client market and currency state. markets and
// marketsByID always describe the same set; both are rebuilt wholesale by
// SetMarkets and never partially mutated.
type registry struct {
	mu             sync.Mutex
	markets        map[string]*core.Market
	marketsByID    map[string]*core.Market
	symbols        []string
	ids            []string
	currencies     map[string]*core.Currency
	currenciesByID map[string]*core.Currency
	loading        *marketLoad
}

// marketLoad is one in-flight market load. All concurrent LoadMarkets
// callers wait on the same load and observe the same outcome.
type marketLoad struct {
	done    chan struct{}
	markets map[string]*core.Market
	err     error
}

// defaultCurrencyPrecision applies when a market states no precision for a
// derived currency.
const defaultCurrencyPrecision = 8.0

// SetMarkets replaces the registry contents from raw market data. Each raw
// market is merged over the exchange-wide limit, precision and fee
// defaults, with the raw market winning on conflict. When no explicit
// currency table is supplied, currencies are derived from the markets'
// base and quote sides; conflicting precisions for one code resolve to the
// highest value. The call is idempotent given identical input.
func (c *Client) SetMarkets(rawMarkets []*core.Market, rawCurrencies map[string]*core.Currency) map[string]*core.Market {
	markets := make(map[string]*core.Market, len(rawMarkets))
	marketsByID := make(map[string]*core.Market, len(rawMarkets))
	merged := make([]*core.Market, 0, len(rawMarkets))
	for _, raw := range rawMarkets {
		market := c.mergeMarketDefaults(raw)
		merged = append(merged, market)
		markets[market.Symbol] = market
		marketsByID[market.ID] = market
	}

	symbols := make([]string, 0, len(markets))
	for symbol := range markets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	ids := make([]string, 0, len(marketsByID))
	for id := range marketsByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()

	if rawCurrencies != nil {
		if c.registry.currencies == nil {
			c.registry.currencies = make(map[string]*core.Currency, len(rawCurrencies))
		}
		// explicit currencies win over previously known ones
		for code, currency := range rawCurrencies {
			c.registry.currencies[code] = currency
		}
	} else {
		derived := deriveCurrencies(merged)
		if c.registry.currencies == nil {
			c.registry.currencies = derived
		} else {
			// pre-existing entries win over derived ones
			for code, currency := range derived {
				if _, exists := c.registry.currencies[code]; !exists {
					c.registry.currencies[code] = currency
				}
			}
		}
	}

	currenciesByID := make(map[string]*core.Currency, len(c.registry.currencies))
	for _, currency := range c.registry.currencies {
		currenciesByID[currency.ID] = currency
	}

	c.registry.markets = markets
	c.registry.marketsByID = marketsByID
	c.registry.symbols = symbols
	c.registry.ids = ids
	c.registry.currenciesByID = currenciesByID

	return markets
}

// mergeMarketDefaults overlays a raw market onto the exchange-wide
// defaults. The raw market's own values win.
func (c *Client) mergeMarketDefaults(raw *core.Market) *core.Market {
	market := *raw
	market.Limits = mergeLimits(c.desc.Limits, market.Limits)
	market.Precision = mergePrecision(c.desc.Precision, market.Precision)
	if market.Taker == nil {
		market.Taker = c.desc.Fees.Taker
	}
	if market.Maker == nil {
		market.Maker = c.desc.Fees.Maker
	}
	if market.BaseID == "" {
		market.BaseID = market.Base
	}
	if market.QuoteID == "" {
		market.QuoteID = market.Quote
	}
	return &market
}

// deriveCurrencies builds the currency table implied by a market list.
// Every market contributes its base side and, when present, its quote
// side; within one code the candidate with the strictly greater precision
// wins and ties keep the first encountered.
func deriveCurrencies(markets []*core.Market) map[string]*core.Currency {
	currencies := make(map[string]*core.Currency)
	consider := func(candidate *core.Currency) {
		existing, ok := currencies[candidate.Code]
		if !ok || candidate.Precision > existing.Precision {
			currencies[candidate.Code] = candidate
		}
	}
	for _, market := range markets {
		if market.Base != "" {
			consider(&core.Currency{
				ID:        market.BaseID,
				NumericID: market.NumericID,
				Code:      market.Base,
				Precision: precisionValue(market.Precision.Base, market.Precision.Amount),
			})
		}
		if market.Quote != "" {
			consider(&core.Currency{
				ID:        market.QuoteID,
				NumericID: market.NumericID,
				Code:      market.Quote,
				Precision: precisionValue(market.Precision.Quote, market.Precision.Price),
			})
		}
	}
	return currencies
}

func precisionValue(preferred, fallback *float64) float64 {
	if preferred != nil {
		return *preferred
	}
	if fallback != nil {
		return *fallback
	}
	return defaultCurrencyPrecision
}

// LoadMarkets returns the market table, fetching it at most once. At most
// one load is in flight per client: concurrent callers share the pending
// load and observe the identical outcome. A failed load clears the pending
// marker so a later call retries. With reload false a cached table returns
// immediately and forever; reload true forces one new fetch.
func (c *Client) LoadMarkets(ctx context.Context, reload bool) (map[string]*core.Market, error) {
	c.registry.mu.Lock()
	if !reload && c.registry.markets != nil {
		markets := c.registry.markets
		c.registry.mu.Unlock()
		return markets, nil
	}
	load := c.registry.loading
	if load == nil {
		load = &marketLoad{done: make(chan struct{})}
		c.registry.loading = load
		// the load outlives any single caller's context
		go c.runMarketLoad(context.WithoutCancel(ctx), load)
	}
	c.registry.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-load.done:
	}
	return load.markets, load.err
}

func (c *Client) runMarketLoad(ctx context.Context, load *marketLoad) {
	var currencies map[string]*core.Currency
	var err error

	if c.desc.Has.Supports("fetchCurrencies") {
		if fetcher, ok := c.adapter.(CurrencyFetcher); ok {
			currencies, err = fetcher.FetchCurrencies(ctx)
		}
	}

	var markets []*core.Market
	if err == nil {
		markets, err = c.adapter.FetchMarkets(ctx)
	}

	if err != nil {
		load.err = err
	} else {
		load.markets = c.SetMarkets(markets, currencies)
	}

	c.registry.mu.Lock()
	c.registry.loading = nil
	c.registry.mu.Unlock()
	close(load.done)
}

// Markets returns the cached market table, or nil before the first load.
func (c *Client) Markets() map[string]*core.Market {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	return c.registry.markets
}

// Symbols returns the sorted symbols of the cached market table.
func (c *Client) Symbols() []string {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	return c.registry.symbols
}

// IDs returns the sorted native market ids of the cached market table.
func (c *Client) IDs() []string {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	return c.registry.ids
}

// Currencies returns the cached currency table, or nil before the first
// load.
func (c *Client) Currencies() map[string]*core.Currency {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	return c.registry.currencies
}

// Market looks up a market by unified symbol. It fails with ExchangeError
// before the first load and with BadSymbol for unknown symbols.
func (c *Client) Market(symbol string) (*core.Market, error) {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	if c.registry.markets == nil {
		return nil, core.NewError(core.KindExchangeError, c.desc.ID, "markets not loaded")
	}
	market, ok := c.registry.markets[symbol]
	if !ok {
		return nil, core.NewErrorf(core.KindBadSymbol, c.desc.ID, "does not have market symbol %s", symbol)
	}
	return market, nil
}

// MarketByID looks up a market by its exchange-native id.
func (c *Client) MarketByID(id string) (*core.Market, error) {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	if c.registry.marketsByID == nil {
		return nil, core.NewError(core.KindExchangeError, c.desc.ID, "markets not loaded")
	}
	market, ok := c.registry.marketsByID[id]
	if !ok {
		return nil, core.NewErrorf(core.KindBadSymbol, c.desc.ID, "does not have market id %s", id)
	}
	return market, nil
}

// MarketID translates a unified symbol into the exchange-native id.
func (c *Client) MarketID(symbol string) (string, error) {
	market, err := c.Market(symbol)
	if err != nil {
		return "", err
	}
	return market.ID, nil
}

// Currency looks up a currency by unified code. It fails with
// ExchangeError before the first load and for unknown codes.
func (c *Client) Currency(code string) (*core.Currency, error) {
	c.registry.mu.Lock()
	defer c.registry.mu.Unlock()
	if c.registry.currencies == nil {
		return nil, core.NewError(core.KindExchangeError, c.desc.ID, "currencies not loaded")
	}
	currency, ok := c.registry.currencies[code]
	if !ok {
		return nil, core.NewErrorf(core.KindExchangeError, c.desc.ID, "does not have currency code %s", code)
	}
	return currency, nil
}

// CommonCurrencyCode substitutes venue-specific currency codes (XBT, BCC)
// with their unified form.
func (c *Client) CommonCurrencyCode(code string) string {
	if unified, ok := c.desc.CommonCurrencies[code]; ok {
		return unified
	}
	return code
}

// SafeCurrencyCode resolves an exchange-native currency id into a unified
// code, falling back to the uppercased id with common-code substitution
// when the id is not in the registry.
func (c *Client) SafeCurrencyCode(currencyID string) string {
	if currencyID == "" {
		return ""
	}
	c.registry.mu.Lock()
	currency, ok := c.registry.currenciesByID[currencyID]
	c.registry.mu.Unlock()
	if ok {
		return currency.Code
	}
	return c.CommonCurrencyCode(strings.ToUpper(currencyID))
}

// AmountToPrecision formats an order amount to the market's amount
// precision, truncating excess digits.
func (c *Client) AmountToPrecision(symbol, amount string) (string, error) {
	return c.marketPrecision(symbol, amount, precision.Truncate, func(p core.Precision) *float64 { return p.Amount })
}

// PriceToPrecision formats a price to the market's price precision,
// rounding.
func (c *Client) PriceToPrecision(symbol, price string) (string, error) {
	return c.marketPrecision(symbol, price, precision.Round, func(p core.Precision) *float64 { return p.Price })
}

// CostToPrecision formats a cost to the market's price precision, rounding.
func (c *Client) CostToPrecision(symbol, cost string) (string, error) {
	return c.PriceToPrecision(symbol, cost)
}

// FeeToPrecision formats a fee to the market's price precision, rounding.
func (c *Client) FeeToPrecision(symbol, fee string) (string, error) {
	return c.PriceToPrecision(symbol, fee)
}

// CurrencyToPrecision formats an amount to the currency's precision,
// rounding.
func (c *Client) CurrencyToPrecision(code, amount string) (string, error) {
	currency, err := c.Currency(code)
	if err != nil {
		return "", err
	}
	return precision.Apply(amount, precision.Round, currency.Precision, c.desc.PrecisionMode)
}

func (c *Client) marketPrecision(symbol, value string, rounding precision.Rounding, pick func(core.Precision) *float64) (string, error) {
	market, err := c.Market(symbol)
	if err != nil {
		return "", err
	}
	prec := pick(market.Precision)
	if prec == nil {
		fallback := defaultCurrencyPrecision
		prec = &fallback
	}
	return precision.Apply(value, rounding, *prec, c.desc.PrecisionMode)
}
