package probit

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

// Probit is the venue adapter for the ProBit spot exchange. Private
// endpoints authenticate with a bearer token.
type Probit struct {
	client *exchange.Client
}

// New creates a ProBit client with the given options.
func New(opts ...exchange.Option) (*exchange.Client, error) {
	adapter := &Probit{}
	client, err := exchange.NewClient(adapter, opts...)
	if err != nil {
		return nil, err
	}
	adapter.client = client
	return client, nil
}

// Describe returns the static venue configuration overrides.
func (p *Probit) Describe() *exchange.Describe {
	return &exchange.Describe{
		ID:        "probit",
		Name:      "Probit",
		Countries: []string{"KR"},
		RateLimit: time.Second,
		Has: core.CapabilitySet{
			"fetchMarkets":    core.CapNative,
			"fetchTicker":     core.CapNative,
			"fetchTickers":    core.CapNative,
			"fetchOrderBook":  core.CapNative,
			"fetchTrades":     core.CapNative,
			"fetchMyTrades":   core.CapNative,
			"fetchOpenOrders": core.CapNative,
			"fetchBalance":    core.CapNative,
			"createOrder":     core.CapNative,
			"cancelOrder":     core.CapNative,
			"editOrder":       core.CapEmulated,
			"fetchOHLCV":      core.CapEmulated,
		},
		RequiredCredentials: map[string]bool{
			"token": true,
		},
		Headers: map[string]string{
			"Language": "en_US",
		},
		URLs: exchange.URLs{
			API: map[string]string{
				"public":  "https://api.probit.com/api/exchange/v1",
				"private": "https://api.probit.com/api/exchange/v1",
			},
			WWW: "https://www.probit.com/app",
			Doc: []string{"https://docs-en.probit.com/docs"},
		},
		API: exchange.APIMap{
			"public": {
				"get": {
					"market",
					"order_book",
					"ticker",
					"trades",
				},
			},
			"private": {
				"get": {
					"orders/{market}",
					"trade-history/{market}",
					"wallets",
				},
				"post": {
					"order",
				},
				"delete": {
					"orders/{market}",
					"order/{id}",
				},
			},
		},
	}
}

// Sign finalizes a request. Private endpoints carry the bearer token; POST
// bodies are JSON-encoded from the leftover params after path templates are
// filled.
func (p *Probit) Sign(in *exchange.SignInput) (*exchange.SignedRequest, error) {
	base, ok := p.client.Describe().URLs.Base(in.APIType)
	if !ok {
		return nil, core.NewErrorf(core.KindExchangeError, p.client.ID(), "no base url for api type %s", in.APIType)
	}

	headers := make(map[string]string, len(in.Headers)+2)
	for k, v := range in.Headers {
		headers[k] = v
	}

	body := in.Body
	params := in.Params
	if in.APIType == "private" {
		if err := p.client.CheckRequiredCredentials(); err != nil {
			return nil, err
		}
		headers["Authorization"] = "Bearer " + p.client.Credentials().Token

		if in.Method == "POST" && body == nil {
			imploded, rest := exchange.ImplodeParams(in.Path, params)
			encoded, err := sonic.Marshal(rest)
			if err != nil {
				return nil, core.NewErrorf(core.KindExchangeError, p.client.ID(), "encode body: %v", err)
			}
			headers["Content-Type"] = "application/json"
			return &exchange.SignedRequest{
				URL:     exchange.BuildURL(base, imploded, nil),
				Method:  in.Method,
				Headers: headers,
				Body:    encoded,
			}, nil
		}
	}

	return &exchange.SignedRequest{
		URL:     exchange.BuildURL(base, in.Path, params),
		Method:  in.Method,
		Headers: headers,
		Body:    body,
	}, nil
}

// FetchMarkets retrieves the market table.
func (p *Probit) FetchMarkets(ctx context.Context) ([]*core.Market, error) {
	response, err := p.client.Call(ctx, "publicGetMarket", nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data []probitMarket `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	markets := make([]*core.Market, 0, len(raw.Data))
	for i := range raw.Data {
		markets = append(markets, normalizeMarket(&raw.Data[i]))
	}
	return markets, nil
}

// FetchTickers retrieves 24-hour statistics for every market.
func (p *Probit) FetchTickers(ctx context.Context, params core.Params) (map[string]*core.Ticker, error) {
	response, err := p.client.Call(ctx, "publicGetTicker", params)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data []core.Params `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	tickers := make(map[string]*core.Ticker, len(raw.Data))
	for _, entry := range raw.Data {
		market, err := p.client.MarketByID(entry.String("market_id", ""))
		if err != nil {
			continue
		}
		tickers[market.Symbol] = normalizeTicker(entry, market.Symbol)
	}
	return tickers, nil
}

// FetchTicker retrieves 24-hour statistics for one symbol.
func (p *Probit) FetchTicker(ctx context.Context, symbol string, params core.Params) (*core.Ticker, error) {
	id, err := p.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}

	request := params.Clone()
	request["market_ids"] = id

	response, err := p.client.Call(ctx, "publicGetTicker", request)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data []core.Params `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}
	if len(raw.Data) == 0 {
		return nil, core.NewErrorf(core.KindBadSymbol, p.client.ID(), "no ticker for symbol %s", symbol)
	}
	return normalizeTicker(raw.Data[0], symbol), nil
}

// FetchOrderBook retrieves an order book snapshot. The venue returns a flat
// list of levels tagged with their side.
func (p *Probit) FetchOrderBook(ctx context.Context, symbol string, limit int, params core.Params) (*core.OrderBook, error) {
	id, err := p.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}

	request := params.Clone()
	request["market_id"] = id

	response, err := p.client.Call(ctx, "publicGetOrderBook", request)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data []probitBookLevel `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}
	return normalizeOrderBook(raw.Data, symbol, limit)
}

// FetchTrades retrieves public trades for a symbol.
func (p *Probit) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Trade, error) {
	id, err := p.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}

	request := params.Clone()
	request["market_id"] = id
	if !since.IsZero() {
		request["start_time"] = since.UTC().Format(time.RFC3339)
	}
	if limit > 0 {
		request["limit"] = limit
	}

	response, err := p.client.Call(ctx, "publicGetTrades", request)
	if err != nil {
		return nil, err
	}
	return p.parseTrades(response, symbol, since, limit)
}

// FetchMyTrades retrieves the account's trade history for a symbol.
func (p *Probit) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Trade, error) {
	id, err := p.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}

	request := params.Clone()
	request["market"] = id
	if limit > 0 {
		request["limit"] = limit
	}

	response, err := p.client.Call(ctx, "privateGetTradeHistoryMarket", request)
	if err != nil {
		return nil, err
	}
	return p.parseTrades(response, symbol, since, limit)
}

func (p *Probit) parseTrades(response any, symbol string, since time.Time, limit int) ([]*core.Trade, error) {
	var raw struct {
		Data []core.Params `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	trades := make([]*core.Trade, 0, len(raw.Data))
	for _, entry := range raw.Data {
		trade, err := normalizeTrade(entry, symbol)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	exchange.SortByTimestamp(trades, func(t *core.Trade) time.Time { return t.Timestamp })
	return exchange.FilterBySinceLimit(trades, since, limit, func(t *core.Trade) time.Time { return t.Timestamp }), nil
}

// FetchBalance retrieves the account's wallet balances.
func (p *Probit) FetchBalance(ctx context.Context, params core.Params) (*core.Account, error) {
	response, err := p.client.Call(ctx, "privateGetWallets", params)
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
		code := p.client.SafeCurrencyCode(entry.String("currency_id", ""))
		if code == "" {
			continue
		}
		account.Balances[code] = &core.Balance{
			Total: entry.Decimal("total"),
			Free:  entry.Decimal("available"),
		}
	}
	return account, nil
}

// FetchOpenOrders retrieves the account's resting orders for a symbol.
func (p *Probit) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Order, error) {
	id, err := p.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}

	request := params.Clone()
	request["market"] = id

	response, err := p.client.Call(ctx, "privateGetOrdersMarket", request)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data []core.Params `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}

	orders := make([]*core.Order, 0, len(raw.Data))
	for _, entry := range raw.Data {
		order, err := normalizeOrder(entry, symbol)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	exchange.SortByTimestamp(orders, func(o *core.Order) time.Time { return o.Timestamp })
	return exchange.FilterBySinceLimit(orders, since, limit, func(o *core.Order) time.Time { return o.Timestamp }), nil
}

// CreateOrder places an order. Limit orders carry a limit price and
// good-til-cancelled time in force; market orders are immediate-or-cancel.
func (p *Probit) CreateOrder(ctx context.Context, symbol string, orderType core.OrderType, side core.OrderSide, amount, price *apd.Decimal, params core.Params) (*core.Order, error) {
	id, err := p.client.MarketID(symbol)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, core.NewError(core.KindArgumentsRequired, p.client.ID(), "createOrder requires an amount")
	}

	quantity, err := p.client.AmountToPrecision(symbol, amount.String())
	if err != nil {
		return nil, err
	}

	request := params.Clone()
	request["market_id"] = id
	request["type"] = orderType.String()
	request["side"] = side.String()
	request["quantity"] = quantity
	if orderType == core.TypeLimit {
		if price == nil {
			return nil, core.NewError(core.KindInvalidOrder, p.client.ID(), "limit orders require a price")
		}
		limitPrice, err := p.client.PriceToPrecision(symbol, price.String())
		if err != nil {
			return nil, err
		}
		request["limit_price"] = limitPrice
		request["time_in_force"] = "gtc"
	} else {
		request["time_in_force"] = "ioc"
	}

	response, err := p.client.Call(ctx, "privatePostOrder", request)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data core.Params `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}
	return normalizeOrder(raw.Data, symbol)
}

// CancelOrder cancels a resting order by id.
func (p *Probit) CancelOrder(ctx context.Context, id, symbol string, params core.Params) (*core.Order, error) {
	request := params.Clone()
	request["id"] = id

	response, err := p.client.Call(ctx, "privateDeleteOrderId", request)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data core.Params `json:"data"`
	}
	if err := exchange.Remarshal(response, &raw); err != nil {
		return nil, err
	}
	if len(raw.Data) == 0 {
		return &core.Order{ID: id, Symbol: symbol, Status: core.StatusCanceled, Info: response}, nil
	}
	return normalizeOrder(raw.Data, symbol)
}
