package exchange

import (
	"context"
	"time"

	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
)

// Optional adapter capabilities. The base client discovers each one by
// type assertion; an adapter implements exactly the set its venue offers
// and the rest surface as NotSupported.

// TickerFetcher retrieves 24-hour statistics for one symbol.
type TickerFetcher interface {
	FetchTicker(ctx context.Context, symbol string, params core.Params) (*core.Ticker, error)
}

// TickersFetcher retrieves 24-hour statistics for all symbols at once.
type TickersFetcher interface {
	FetchTickers(ctx context.Context, params core.Params) (map[string]*core.Ticker, error)
}

// OrderBookFetcher retrieves an order book snapshot. limit below 1 asks
// for the venue default depth.
type OrderBookFetcher interface {
	FetchOrderBook(ctx context.Context, symbol string, limit int, params core.Params) (*core.OrderBook, error)
}

// TradeFetcher retrieves public trades. A zero since and a limit below 1
// ask for the venue defaults.
type TradeFetcher interface {
	FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Trade, error)
}

// MyTradeFetcher retrieves the authenticated account's trade history.
type MyTradeFetcher interface {
	FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Trade, error)
}

// OHLCVFetcher retrieves native candlestick data.
type OHLCVFetcher interface {
	FetchOHLCV(ctx context.Context, symbol string, timeframe time.Duration, since time.Time, limit int, params core.Params) ([]*core.OHLCV, error)
}

// BalanceFetcher retrieves the authenticated account's balances.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context, params core.Params) (*core.Account, error)
}

// OrderCreator places orders. price is ignored for market orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, symbol string, orderType core.OrderType, side core.OrderSide, amount, price *apd.Decimal, params core.Params) (*core.Order, error)
}

// OrderCanceler cancels a resting order.
type OrderCanceler interface {
	CancelOrder(ctx context.Context, id, symbol string, params core.Params) (*core.Order, error)
}

// OrderFetcher retrieves a single order by id.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, id, symbol string, params core.Params) (*core.Order, error)
}

// OpenOrdersFetcher retrieves the account's resting orders.
type OpenOrdersFetcher interface {
	FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Order, error)
}

// FetchTicker returns 24-hour statistics for one symbol.
func (c *Client) FetchTicker(ctx context.Context, symbol string, params core.Params) (*core.Ticker, error) {
	fetcher, ok := c.adapter.(TickerFetcher)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchTicker")
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return fetcher.FetchTicker(ctx, symbol, params)
}

// FetchTickers returns 24-hour statistics for every symbol the venue
// reports.
func (c *Client) FetchTickers(ctx context.Context, params core.Params) (map[string]*core.Ticker, error) {
	fetcher, ok := c.adapter.(TickersFetcher)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchTickers")
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return fetcher.FetchTickers(ctx, params)
}

// FetchOrderBook returns an order book snapshot with bids descending and
// asks ascending.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int, params core.Params) (*core.OrderBook, error) {
	fetcher, ok := c.adapter.(OrderBookFetcher)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchOrderBook")
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return fetcher.FetchOrderBook(ctx, symbol, limit, params)
}

// FetchL2OrderBook returns an order book with levels of equal price merged
// on each side. Emulated on top of FetchOrderBook.
func (c *Client) FetchL2OrderBook(ctx context.Context, symbol string, limit int, params core.Params) (*core.OrderBook, error) {
	book, err := c.FetchOrderBook(ctx, symbol, limit, params)
	if err != nil {
		return nil, err
	}
	book.Bids = AggregateBookSide(book.Bids)
	book.Asks = AggregateBookSide(book.Asks)
	return book, nil
}

// FetchTrades returns public trades for a symbol.
func (c *Client) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Trade, error) {
	fetcher, ok := c.adapter.(TradeFetcher)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchTrades")
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return fetcher.FetchTrades(ctx, symbol, since, limit, params)
}

// FetchMyTrades returns the account's trade history for a symbol.
func (c *Client) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Trade, error) {
	fetcher, ok := c.adapter.(MyTradeFetcher)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchMyTrades")
	}
	if err := c.CheckRequiredCredentials(); err != nil {
		return nil, err
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return fetcher.FetchMyTrades(ctx, symbol, since, limit, params)
}

// FetchOHLCV returns candlestick data. Venues without native candles get
// an emulation built from public trades; the emulated series covers only
// the window the venue's trade endpoint returns.
func (c *Client) FetchOHLCV(ctx context.Context, symbol string, timeframe time.Duration, since time.Time, limit int, params core.Params) ([]*core.OHLCV, error) {
	if fetcher, ok := c.adapter.(OHLCVFetcher); ok && c.Has("fetchOHLCV") == core.CapNative {
		if _, err := c.LoadMarkets(ctx, false); err != nil {
			return nil, err
		}
		return fetcher.FetchOHLCV(ctx, symbol, timeframe, since, limit, params)
	}
	if _, ok := c.adapter.(TradeFetcher); !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchOHLCV")
	}
	trades, err := c.FetchTrades(ctx, symbol, since, 0, params)
	if err != nil {
		return nil, err
	}
	return BuildOHLCV(trades, timeframe, since, limit), nil
}

// FetchBalance returns the account's balances with free, used and total
// completed where the venue reports only two of the three.
func (c *Client) FetchBalance(ctx context.Context, params core.Params) (*core.Account, error) {
	fetcher, ok := c.adapter.(BalanceFetcher)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchBalance")
	}
	if err := c.CheckRequiredCredentials(); err != nil {
		return nil, err
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	account, err := fetcher.FetchBalance(ctx, params)
	if err != nil {
		return nil, err
	}
	return FillBalance(account), nil
}

// FetchFreeBalance returns the available amount per currency.
func (c *Client) FetchFreeBalance(ctx context.Context, params core.Params) (map[string]*apd.Decimal, error) {
	return c.balanceField(ctx, params, func(b *core.Balance) *apd.Decimal { return b.Free })
}

// FetchUsedBalance returns the locked amount per currency.
func (c *Client) FetchUsedBalance(ctx context.Context, params core.Params) (map[string]*apd.Decimal, error) {
	return c.balanceField(ctx, params, func(b *core.Balance) *apd.Decimal { return b.Used })
}

// FetchTotalBalance returns the total amount per currency.
func (c *Client) FetchTotalBalance(ctx context.Context, params core.Params) (map[string]*apd.Decimal, error) {
	return c.balanceField(ctx, params, func(b *core.Balance) *apd.Decimal { return b.Total })
}

func (c *Client) balanceField(ctx context.Context, params core.Params, pick func(*core.Balance) *apd.Decimal) (map[string]*apd.Decimal, error) {
	account, err := c.FetchBalance(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*apd.Decimal, len(account.Balances))
	for code, balance := range account.Balances {
		if value := pick(balance); value != nil {
			out[code] = value
		}
	}
	return out, nil
}

// CreateOrder places an order on the venue.
func (c *Client) CreateOrder(ctx context.Context, symbol string, orderType core.OrderType, side core.OrderSide, amount, price *apd.Decimal, params core.Params) (*core.Order, error) {
	creator, ok := c.adapter.(OrderCreator)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "createOrder")
	}
	if err := c.CheckRequiredCredentials(); err != nil {
		return nil, err
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return creator.CreateOrder(ctx, symbol, orderType, side, amount, price, params)
}

// CreateLimitBuyOrder places a limit buy order.
func (c *Client) CreateLimitBuyOrder(ctx context.Context, symbol string, amount, price *apd.Decimal, params core.Params) (*core.Order, error) {
	return c.CreateOrder(ctx, symbol, core.TypeLimit, core.SideBuy, amount, price, params)
}

// CreateLimitSellOrder places a limit sell order.
func (c *Client) CreateLimitSellOrder(ctx context.Context, symbol string, amount, price *apd.Decimal, params core.Params) (*core.Order, error) {
	return c.CreateOrder(ctx, symbol, core.TypeLimit, core.SideSell, amount, price, params)
}

// CreateMarketBuyOrder places a market buy order.
func (c *Client) CreateMarketBuyOrder(ctx context.Context, symbol string, amount *apd.Decimal, params core.Params) (*core.Order, error) {
	return c.CreateOrder(ctx, symbol, core.TypeMarket, core.SideBuy, amount, nil, params)
}

// CreateMarketSellOrder places a market sell order.
func (c *Client) CreateMarketSellOrder(ctx context.Context, symbol string, amount *apd.Decimal, params core.Params) (*core.Order, error) {
	return c.CreateOrder(ctx, symbol, core.TypeMarket, core.SideSell, amount, nil, params)
}

// CancelOrder cancels a resting order by id.
func (c *Client) CancelOrder(ctx context.Context, id, symbol string, params core.Params) (*core.Order, error) {
	canceler, ok := c.adapter.(OrderCanceler)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "cancelOrder")
	}
	if err := c.CheckRequiredCredentials(); err != nil {
		return nil, err
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return canceler.CancelOrder(ctx, id, symbol, params)
}

// EditOrder replaces a resting order by canceling it and placing a new
// one. The two steps are not atomic, so the rate limiter must be enabled
// to keep the cancel and the create paced apart.
func (c *Client) EditOrder(ctx context.Context, id, symbol string, orderType core.OrderType, side core.OrderSide, amount, price *apd.Decimal, params core.Params) (*core.Order, error) {
	if !c.desc.EnableRateLimit {
		return nil, core.NewError(core.KindExchangeError, c.desc.ID, "editOrder requires enableRateLimit = true")
	}
	if _, err := c.CancelOrder(ctx, id, symbol, params); err != nil {
		return nil, err
	}
	return c.CreateOrder(ctx, symbol, orderType, side, amount, price, params)
}

// FetchOrder returns a single order by id.
func (c *Client) FetchOrder(ctx context.Context, id, symbol string, params core.Params) (*core.Order, error) {
	fetcher, ok := c.adapter.(OrderFetcher)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchOrder")
	}
	if err := c.CheckRequiredCredentials(); err != nil {
		return nil, err
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return fetcher.FetchOrder(ctx, id, symbol, params)
}

// FetchOpenOrders returns the account's resting orders.
func (c *Client) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params core.Params) ([]*core.Order, error) {
	fetcher, ok := c.adapter.(OpenOrdersFetcher)
	if !ok {
		return nil, core.NotSupported(c.desc.ID, "fetchOpenOrders")
	}
	if err := c.CheckRequiredCredentials(); err != nil {
		return nil, err
	}
	if _, err := c.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return fetcher.FetchOpenOrders(ctx, symbol, since, limit, params)
}

// FetchOrderStatus returns the lifecycle state of an order. Emulated on
// top of FetchOrder.
func (c *Client) FetchOrderStatus(ctx context.Context, id, symbol string, params core.Params) (core.OrderStatus, error) {
	order, err := c.FetchOrder(ctx, id, symbol, params)
	if err != nil {
		return 0, err
	}
	return order.Status, nil
}
