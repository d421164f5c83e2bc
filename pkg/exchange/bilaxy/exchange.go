package bilaxy

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

// Bilaxy is the venue adapter for the Bilaxy spot exchange. Public market
// data and the authenticated API live on different hosts, so every request
// resolves its base URL through the api type it was declared under.
type Bilaxy struct {
	client *exchange.Client
}

// New creates a Bilaxy client with the given options.
func New(opts ...exchange.Option) (*exchange.Client, error) {
	adapter := &Bilaxy{}
	client, err := exchange.NewClient(adapter, opts...)
	if err != nil {
		return nil, err
	}
	adapter.client = client
	return client, nil
}

// Describe returns the static venue configuration overrides.
func (b *Bilaxy) Describe() *exchange.Describe {
	return &exchange.Describe{
		ID:        "bilaxy",
		Name:      "Bilaxy",
		Countries: []string{"SC"},
		RateLimit: time.Second,
		Has: core.CapabilitySet{
			"fetchMarkets":   core.CapNative,
			"fetchTicker":    core.CapNative,
			"fetchTickers":   core.CapNative,
			"fetchOrderBook": core.CapNative,
			"fetchTrades":    core.CapNative,
			"fetchBalance":   core.CapNative,
			"fetchOHLCV":     core.CapEmulated,
			"createOrder":    core.CapUnsupported,
			"cancelOrder":    core.CapUnsupported,
			"editOrder":      core.CapUnsupported,
			"fetchOrder":     core.CapUnsupported,
		},
		Headers: map[string]string{
			"Language": "en_US",
		},
		URLs: exchange.URLs{
			API: map[string]string{
				"public":  "https://newapi.bilaxy.com/v1",
				"private": "https://api.bilaxy.com/v1",
			},
			WWW: "https://bilaxy.com/",
			Doc: []string{"https://github.com/bilaxy-exchange/bilaxy-api-docs"},
		},
		API: exchange.APIMap{
			"public": {
				"get": {
					"pairs",
					"orderbook",
					"ticker/24hr",
					"trades",
				},
			},
			"private": {
				"get": {
					"balances",
					"orders",
					"trade_list",
				},
				"post": {
					"trade",
					"cancel_trade",
				},
			},
		},
	}
}

// Sign finalizes a request. Private endpoints authenticate through key and
// sign query parameters; the signature covers the credentials only, not the
// request parameters.
func (b *Bilaxy) Sign(in *exchange.SignInput) (*exchange.SignedRequest, error) {
	base, ok := b.client.Describe().URLs.Base(in.APIType)
	if !ok {
		return nil, core.NewErrorf(core.KindExchangeError, b.client.ID(), "no base url for api type %s", in.APIType)
	}

	params := in.Params.Clone()
	if in.APIType == "private" {
		if err := b.client.CheckRequiredCredentials(); err != nil {
			return nil, err
		}
		creds := b.client.Credentials()
		params["key"] = creds.APIKey
		params["sign"] = signature(creds.APIKey, creds.Secret)
	}

	return &exchange.SignedRequest{
		URL:     exchange.BuildURL(base, in.Path, params),
		Method:  in.Method,
		Headers: in.Headers,
		Body:    in.Body,
	}, nil
}

// signature is the hex HMAC-SHA1 of "secret=<secret>&key=<key>" keyed by
// the secret.
func signature(apiKey, secret string) string {
	payload := "secret=" + secret + "&key=" + apiKey
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// FetchMarkets retrieves the pair table. The venue keys pairs by their
// "BASE_QUOTE" name and carries the numeric pair id inside each record.
func (b *Bilaxy) FetchMarkets(ctx context.Context) ([]*core.Market, error) {
	response, err := b.client.Call(ctx, "publicGetPairs", nil)
	if err != nil {
		return nil, err
	}

	var raw map[string]bilaxyMarket
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	markets := make([]*core.Market, 0, len(raw))
	for _, entry := range raw {
		markets = append(markets, normalizeMarket(&entry))
	}
	return markets, nil
}

// FetchTickers retrieves 24-hour statistics for every pair.
func (b *Bilaxy) FetchTickers(ctx context.Context, params core.Params) (map[string]*core.Ticker, error) {
	response, err := b.client.Call(ctx, "publicGetTicker24hr", params)
	if err != nil {
		return nil, err
	}

	var raw map[string]core.Params
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	tickers := make(map[string]*core.Ticker, len(raw))
	for pair, entry := range raw {
		ticker := normalizeTicker(entry, pairToSymbol(pair))
		tickers[ticker.Symbol] = ticker
	}
	return tickers, nil
}

// FetchTicker retrieves 24-hour statistics for one symbol. The venue has no
// single-symbol endpoint, so the full table is fetched and filtered.
func (b *Bilaxy) FetchTicker(ctx context.Context, symbol string, params core.Params) (*core.Ticker, error) {
	id, err := b.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}

	response, err := b.client.Call(ctx, "publicGetTicker24hr", params)
	if err != nil {
		return nil, err
	}

	var raw map[string]core.Params
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	entry, ok := raw[id]
	if !ok {
		return nil, core.NewErrorf(core.KindBadSymbol, b.client.ID(), "no ticker for symbol %s", symbol)
	}
	return normalizeTicker(entry, symbol), nil
}

// FetchTrades retrieves recent public trades for a symbol.
func (b *Bilaxy) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Trade, error) {
	id, err := b.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}

	request := params.Clone()
	request["pair"] = id
	if limit > 0 {
		request["limit"] = limit
	} else {
		request["limit"] = 100
	}

	response, err := b.client.Call(ctx, "publicGetTrades", request)
	if err != nil {
		return nil, err
	}

	var raw []core.Params
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	trades := make([]*core.Trade, 0, len(raw))
	for _, entry := range raw {
		trade, err := normalizeTrade(entry, symbol)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	exchange.SortByTimestamp(trades, func(t *core.Trade) time.Time { return t.Timestamp })
	return exchange.FilterBySinceLimit(trades, since, limit, func(t *core.Trade) time.Time { return t.Timestamp }), nil
}

// FetchOrderBook retrieves an order book snapshot for a symbol.
func (b *Bilaxy) FetchOrderBook(ctx context.Context, symbol string, limit int, params core.Params) (*core.OrderBook, error) {
	id, err := b.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}

	request := params.Clone()
	request["pair"] = id

	response, err := b.client.Call(ctx, "publicGetOrderbook", request)
	if err != nil {
		return nil, err
	}
	return normalizeOrderBook(response, symbol, b.client.ID())
}

// FetchBalance retrieves the account's balances. The venue reports total
// and frozen amounts; the free amount is derived downstream.
func (b *Bilaxy) FetchBalance(ctx context.Context, params core.Params) (*core.Account, error) {
	response, err := b.client.Call(ctx, "privateGetBalances", params)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data []core.Params `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	account := core.NewAccount()
	account.Info = response
	for _, entry := range raw.Data {
		code := b.client.SafeCurrencyCode(entry.String("name", ""))
		if code == "" {
			continue
		}
		account.Balances[code] = &core.Balance{
			Total: entry.Decimal("balance"),
			Used:  entry.Decimal("frozen"),
		}
	}
	return account, nil
}
