package probit

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/internal/transport"
	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

// routeFetcher serves canned bodies by URL substring and records every
// request.
type routeFetcher struct {
	mu     sync.Mutex
	routes map[string]string
	calls  []recordedCall
}

type recordedCall struct {
	url     string
	method  string
	headers map[string]string
	body    []byte
}

func newRouteFetcher(routes map[string]string) *routeFetcher {
	return &routeFetcher{routes: routes}
}

func (f *routeFetcher) Fetch(_ context.Context, url, method string, headers map[string]string, body []byte) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{url: url, method: method, headers: headers, body: body})
	for fragment, responseBody := range f.routes {
		if strings.Contains(url, fragment) {
			return &transport.Response{StatusCode: 200, Status: "200 OK", Body: []byte(responseBody)}, nil
		}
	}
	return &transport.Response{StatusCode: 404, Status: "404 Not Found", Body: []byte(`{}`)}, nil
}

func (f *routeFetcher) last() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

const marketsBody = `{"data": [
	{"id": "BTC-USDT", "base_currency_id": "btc", "quote_currency_id": "usdt",
		"price_increment": "0.01", "quantity_precision": 4,
		"min_quantity": "0.0001", "min_cost": "1", "closed": false},
	{"id": "OLD-USDT", "base_currency_id": "old", "quote_currency_id": "usdt",
		"price_increment": "0.001", "quantity_precision": 2, "closed": true}
]}`

func newTestProbit(t *testing.T, routes map[string]string, opts ...exchange.Option) (*exchange.Client, *routeFetcher) {
	t.Helper()
	if _, ok := routes["/market"]; !ok {
		routes["/market"] = marketsBody
	}
	fetcher := newRouteFetcher(routes)
	opts = append([]exchange.Option{
		exchange.WithFetcher(fetcher),
		exchange.WithRateLimit(false),
		exchange.WithCredentials(core.Credentials{Token: "session-token"}),
	}, opts...)
	client, err := New(opts...)
	require.NoError(t, err)
	return client, fetcher
}

func TestProbit_Describe(t *testing.T) {
	client, _ := newTestProbit(t, map[string]string{})

	assert.Equal(t, "probit", client.ID())
	assert.Equal(t, core.CapNative, client.Has("createOrder"))
	assert.Equal(t, core.CapEmulated, client.Has("editOrder"))
}

func TestProbit_Sign_BearerToken(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{"wallets": `{"data": []}`})

	_, err := client.Call(context.Background(), "privateGetWallets", nil)
	require.NoError(t, err)

	call := fetcher.last()
	assert.Equal(t, "Bearer session-token", call.headers["Authorization"])
}

func TestProbit_Sign_MissingToken(t *testing.T) {
	fetcher := newRouteFetcher(map[string]string{"/market": marketsBody})
	client, err := New(exchange.WithFetcher(fetcher), exchange.WithRateLimit(false))
	require.NoError(t, err)

	_, err = client.Call(context.Background(), "privateGetWallets", nil)
	require.Error(t, err)
	assert.Equal(t, core.KindAuthenticationError, core.KindOf(err))
	assert.Contains(t, err.Error(), "token")
}

func TestProbit_Sign_PostEncodesJSONBody(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{
		"/order": `{"data": {"id": "o-1", "quantity": "1", "side": "buy", "type": "limit", "status": "open"}}`,
	})

	_, err := client.Call(context.Background(), "privatePostOrder", core.Params{
		"market_id": "BTC-USDT",
		"side":      "buy",
	})
	require.NoError(t, err)

	call := fetcher.last()
	assert.Equal(t, "POST", call.method)
	assert.Equal(t, "application/json", call.headers["Content-Type"])
	assert.NotContains(t, call.url, "market_id=")
	assert.Contains(t, string(call.body), `"market_id":"BTC-USDT"`)
}

func TestProbit_LoadMarkets(t *testing.T) {
	client, _ := newTestProbit(t, map[string]string{})

	markets, err := client.LoadMarkets(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, markets, 2)

	market, err := client.Market("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT", market.ID)
	assert.Equal(t, "btc", market.BaseID)
	assert.True(t, market.Active)
	// a 0.01 price increment means two decimal places
	assert.Equal(t, float64(2), *market.Precision.Price)
	assert.Equal(t, float64(4), *market.Precision.Amount)

	delisted, err := client.Market("OLD/USDT")
	require.NoError(t, err)
	assert.False(t, delisted.Active)
}

func TestProbit_FetchTicker(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{
		"ticker": `{"data": [{"market_id": "BTC-USDT", "last": "44000", "high": "45000",
			"low": "42000", "change": "1.5", "base_volume": "120",
			"time": "2024-03-01T12:00:00.000Z"}]}`,
	})

	ticker, err := client.FetchTicker(context.Background(), "BTC/USDT", nil)
	require.NoError(t, err)

	assert.Equal(t, "44000", ticker.Last.String())
	assert.Equal(t, "44000", ticker.Close.String())
	assert.Equal(t, "45000", ticker.High.String())
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ticker.Timestamp.UTC())

	assert.Contains(t, fetcher.last().url, "market_ids=BTC-USDT")
}

func TestProbit_FetchTicker_Empty(t *testing.T) {
	client, _ := newTestProbit(t, map[string]string{"ticker": `{"data": []}`})

	_, err := client.FetchTicker(context.Background(), "BTC/USDT", nil)
	require.Error(t, err)
	assert.Equal(t, core.KindBadSymbol, core.KindOf(err))
}

func TestProbit_FetchTickers_SkipsUnknownMarkets(t *testing.T) {
	client, _ := newTestProbit(t, map[string]string{
		"ticker": `{"data": [
			{"market_id": "BTC-USDT", "last": "44000"},
			{"market_id": "UNKNOWN-PAIR", "last": "1"}
		]}`,
	})

	tickers, err := client.FetchTickers(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.Contains(t, tickers, "BTC/USDT")
}

func TestProbit_FetchOrderBook(t *testing.T) {
	client, _ := newTestProbit(t, map[string]string{
		"order_book": `{"data": [
			{"side": "buy", "price": "43990", "quantity": "0.4"},
			{"side": "sell", "price": "44020", "quantity": "0.9"},
			{"side": "buy", "price": "44000", "quantity": "1.2"},
			{"side": "sell", "price": "44010", "quantity": "0.3"}
		]}`,
	})

	book, err := client.FetchOrderBook(context.Background(), "BTC/USDT", 0, nil)
	require.NoError(t, err)

	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 2)
	assert.Equal(t, "44000", book.Bids[0].Price.String())
	assert.Equal(t, "44010", book.Asks[0].Price.String())
}

func TestProbit_FetchTrades(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{
		"trades": `{"data": [
			{"id": "t-2", "price": "44100", "quantity": "0.5", "side": "sell", "time": "2024-03-01T12:01:00.000Z"},
			{"id": "t-1", "price": "44000", "quantity": "1", "side": "buy", "time": "2024-03-01T12:00:00.000Z"}
		]}`,
	})

	since := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	trades, err := client.FetchTrades(context.Background(), "BTC/USDT", since, 10, nil)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// oldest first
	assert.Equal(t, "t-1", trades[0].ID)
	assert.Equal(t, core.SideSell, trades[1].Side)

	url := fetcher.last().url
	assert.Contains(t, url, "market_id=BTC-USDT")
	assert.Contains(t, url, "start_time=")
	assert.Contains(t, url, "limit=10")
}

func TestProbit_FetchMyTrades(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{
		"trade-history/BTC-USDT": `{"data": [
			{"id": "t-9", "order_id": "o-5", "price": "44000", "quantity": "1", "side": "buy", "time": "2024-03-01T12:00:00.000Z"}
		]}`,
	})

	trades, err := client.FetchMyTrades(context.Background(), "BTC/USDT", time.Time{}, 0, nil)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "o-5", trades[0].OrderID)

	assert.Contains(t, fetcher.last().url, "/trade-history/BTC-USDT")
}

func TestProbit_FetchBalance(t *testing.T) {
	client, _ := newTestProbit(t, map[string]string{
		"wallets": `{"data": [
			{"currency_id": "btc", "total": "2", "available": "1.5"},
			{"currency_id": "usdt", "total": "1000", "available": "1000"}
		]}`,
	})

	account, err := client.FetchBalance(context.Background(), nil)
	require.NoError(t, err)

	btc := account.Balances["BTC"]
	require.NotNil(t, btc)
	assert.Equal(t, "2", btc.Total.String())
	assert.Equal(t, "1.5", btc.Free.String())
	// used is derived from total and available
	require.NotNil(t, btc.Used)
	assert.Equal(t, "0.5", btc.Used.String())
}

func TestProbit_FetchOpenOrders(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{
		"orders/BTC-USDT": `{"data": [
			{"id": "o-1", "quantity": "2", "filled_quantity": "0.5", "open_quantity": "1.5",
				"side": "buy", "type": "limit", "status": "open", "limit_price": "43000",
				"time": "2024-03-01T12:00:00.000Z"}
		]}`,
	})

	orders, err := client.FetchOpenOrders(context.Background(), "BTC/USDT", time.Time{}, 0, nil)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	order := orders[0]
	assert.Equal(t, "o-1", order.ID)
	assert.Equal(t, core.StatusOpen, order.Status)
	assert.Equal(t, "0.5", order.Filled.String())
	assert.Equal(t, "1.5", order.Remaining.String())
	assert.Equal(t, "43000", order.Price.String())

	assert.Contains(t, fetcher.last().url, "/orders/BTC-USDT")
}

func TestProbit_CreateOrder_Limit(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{
		"/order": `{"data": {"id": "o-1", "quantity": "0.1234", "side": "buy",
			"type": "limit", "status": "open", "limit_price": "44000.12"}}`,
	})

	amount, _, err := apd.NewFromString("0.12345678")
	require.NoError(t, err)
	price, _, err := apd.NewFromString("44000.119")
	require.NoError(t, err)

	order, err := client.CreateOrder(context.Background(), "BTC/USDT", core.TypeLimit, core.SideBuy, amount, price, nil)
	require.NoError(t, err)
	assert.Equal(t, "o-1", order.ID)

	body := string(fetcher.last().body)
	// quantity truncates to the market's amount precision, price rounds
	assert.Contains(t, body, `"quantity":"0.1234"`)
	assert.Contains(t, body, `"limit_price":"44000.12"`)
	assert.Contains(t, body, `"time_in_force":"gtc"`)
}

func TestProbit_CreateOrder_Market(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{
		"/order": `{"data": {"id": "o-2", "quantity": "1", "side": "sell", "type": "market", "status": "filled"}}`,
	})

	order, err := client.CreateOrder(context.Background(), "BTC/USDT", core.TypeMarket, core.SideSell, apd.New(1, 0), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusClosed, order.Status)

	body := string(fetcher.last().body)
	assert.Contains(t, body, `"time_in_force":"ioc"`)
	assert.NotContains(t, body, "limit_price")
}

func TestProbit_CreateOrder_Validation(t *testing.T) {
	client, _ := newTestProbit(t, map[string]string{})
	ctx := context.Background()

	_, err := client.CreateOrder(ctx, "BTC/USDT", core.TypeLimit, core.SideBuy, nil, apd.New(1, 0), nil)
	require.Error(t, err)
	assert.Equal(t, core.KindArgumentsRequired, core.KindOf(err))

	_, err = client.CreateOrder(ctx, "BTC/USDT", core.TypeLimit, core.SideBuy, apd.New(1, 0), nil, nil)
	require.Error(t, err)
	assert.Equal(t, core.KindInvalidOrder, core.KindOf(err))
}

func TestProbit_CancelOrder(t *testing.T) {
	client, fetcher := newTestProbit(t, map[string]string{
		"order/o-1": `{"data": {}}`,
	})

	order, err := client.CancelOrder(context.Background(), "o-1", "BTC/USDT", nil)
	require.NoError(t, err)

	// an empty payload synthesizes a canceled order
	assert.Equal(t, "o-1", order.ID)
	assert.Equal(t, core.StatusCanceled, order.Status)

	call := fetcher.last()
	assert.Equal(t, "DELETE", call.method)
	assert.Contains(t, call.url, "/order/o-1")
}

func TestNormalizeOrder_RemainingDerived(t *testing.T) {
	order, err := normalizeOrder(core.Params{
		"id": "o-3", "quantity": "5", "filled_quantity": "2",
		"side": "buy", "type": "limit", "status": "open",
	}, "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "3", order.Remaining.String())
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, core.StatusOpen, parseStatus("open"))
	assert.Equal(t, core.StatusClosed, parseStatus("filled"))
	assert.Equal(t, core.StatusClosed, parseStatus("closed"))
	assert.Equal(t, core.StatusCanceled, parseStatus("cancelled"))
	assert.Equal(t, core.StatusCanceled, parseStatus("canceled"))
	assert.Equal(t, core.StatusOpen, parseStatus("weird"))
}

func TestParseTime(t *testing.T) {
	got := parseTime("2024-03-01T12:00:00.000Z")
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), got.UTC())

	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("not a time").IsZero())
}
