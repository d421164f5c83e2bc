package exchange

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
)

// normCtx is the arithmetic context for payload normalization math.
var normCtx = apd.BaseContext.WithPrecision(64)

// ToDecimal converts a decoded JSON scalar (string, float64, json.Number
// style) into a decimal. Venue payloads mix the representations freely.
func ToDecimal(v any) (*apd.Decimal, error) {
	switch value := v.(type) {
	case string:
		d, _, err := apd.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", value, err)
		}
		return d, nil
	case float64:
		d, _, err := apd.NewFromString(strconv.FormatFloat(value, 'f', -1, 64))
		if err != nil {
			return nil, fmt.Errorf("parse decimal %v: %w", value, err)
		}
		return d, nil
	case int64:
		return apd.New(value, 0), nil
	case int:
		return apd.New(int64(value), 0), nil
	case nil:
		return nil, fmt.Errorf("parse decimal: nil value")
	default:
		return nil, fmt.Errorf("parse decimal: unsupported type %T", v)
	}
}

// ParseBookLevels converts a decoded side of a raw order book, a list of
// [price, amount, ...] rows, into book levels. priceIdx and amountIdx
// select the columns.
func ParseBookLevels(raw []any, priceIdx, amountIdx int) ([]core.BookLevel, error) {
	levels := make([]core.BookLevel, 0, len(raw))
	for i, entry := range raw {
		row, ok := entry.([]any)
		if !ok {
			return nil, fmt.Errorf("order book row %d: expected array, got %T", i, entry)
		}
		if len(row) <= priceIdx || len(row) <= amountIdx {
			return nil, fmt.Errorf("order book row %d: %d columns", i, len(row))
		}
		price, err := ToDecimal(row[priceIdx])
		if err != nil {
			return nil, fmt.Errorf("order book row %d price: %w", i, err)
		}
		amount, err := ToDecimal(row[amountIdx])
		if err != nil {
			return nil, fmt.Errorf("order book row %d amount: %w", i, err)
		}
		levels = append(levels, core.BookLevel{Price: *price, Amount: *amount})
	}
	return levels, nil
}

// SortBids orders bid levels by price descending.
func SortBids(levels []core.BookLevel) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price.Cmp(&levels[j].Price) > 0
	})
}

// SortAsks orders ask levels by price ascending.
func SortAsks(levels []core.BookLevel) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price.Cmp(&levels[j].Price) < 0
	})
}

// AggregateBookSide merges levels sharing one price into a single level
// whose amount is the sum. The input must already be sorted; order is
// preserved.
func AggregateBookSide(levels []core.BookLevel) []core.BookLevel {
	if len(levels) == 0 {
		return levels
	}
	out := make([]core.BookLevel, 0, len(levels))
	for _, level := range levels {
		if n := len(out); n > 0 && out[n-1].Price.Cmp(&level.Price) == 0 {
			normCtx.Add(&out[n-1].Amount, &out[n-1].Amount, &level.Amount)
			continue
		}
		out = append(out, level)
	}
	return out
}

// ParseOrderBook normalizes a raw order book payload. bids and asks are the
// decoded rows of each side; both come out sorted, bids descending and asks
// ascending.
func ParseOrderBook(symbol string, timestamp time.Time, bids, asks []any, priceIdx, amountIdx int) (*core.OrderBook, error) {
	parsedBids, err := ParseBookLevels(bids, priceIdx, amountIdx)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	parsedAsks, err := ParseBookLevels(asks, priceIdx, amountIdx)
	if err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}
	SortBids(parsedBids)
	SortAsks(parsedAsks)
	return &core.OrderBook{
		Symbol:    symbol,
		Bids:      parsedBids,
		Asks:      parsedAsks,
		Timestamp: timestamp,
	}, nil
}

// FilterBySinceLimit keeps items at or after since, then truncates to at
// most limit items. A zero since keeps everything, a limit below 1 means
// unlimited.
func FilterBySinceLimit[T any](items []T, since time.Time, limit int, at func(T) time.Time) []T {
	out := items
	if !since.IsZero() {
		out = make([]T, 0, len(items))
		for _, item := range items {
			if !at(item).Before(since) {
				out = append(out, item)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortByTimestamp orders items ascending by their timestamp.
func SortByTimestamp[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i]).Before(at(items[j]))
	})
}

// DeduplicateByID drops items whose id was already seen, keeping the first
// occurrence and the original order.
func DeduplicateByID[T any](items []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key := id(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// FillBalance completes each per-currency balance: whenever exactly one of
// free, used and total is missing it is derived from the other two.
func FillBalance(account *core.Account) *core.Account {
	for _, balance := range account.Balances {
		switch {
		case balance.Total == nil && balance.Free != nil && balance.Used != nil:
			total := new(apd.Decimal)
			normCtx.Add(total, balance.Free, balance.Used)
			balance.Total = total
		case balance.Free == nil && balance.Total != nil && balance.Used != nil:
			free := new(apd.Decimal)
			normCtx.Sub(free, balance.Total, balance.Used)
			balance.Free = free
		case balance.Used == nil && balance.Total != nil && balance.Free != nil:
			used := new(apd.Decimal)
			normCtx.Sub(used, balance.Total, balance.Free)
			balance.Used = used
		}
	}
	return account
}

// BuildOHLCV aggregates trades into candles of the given timeframe. Trades
// are bucketed by their timestamp truncated to the timeframe; empty buckets
// produce no candle. Candles come out ordered by time.
func BuildOHLCV(trades []*core.Trade, timeframe time.Duration, since time.Time, limit int) []*core.OHLCV {
	filtered := FilterBySinceLimit(trades, since, 0, func(t *core.Trade) time.Time { return t.Timestamp })
	SortByTimestamp(filtered, func(t *core.Trade) time.Time { return t.Timestamp })

	var candles []*core.OHLCV
	var current *core.OHLCV
	for _, trade := range filtered {
		bucket := trade.Timestamp.Truncate(timeframe)
		if current == nil || !current.Timestamp.Equal(bucket) {
			current = &core.OHLCV{Timestamp: bucket}
			current.Open.Set(&trade.Price)
			current.High.Set(&trade.Price)
			current.Low.Set(&trade.Price)
			current.Close.Set(&trade.Price)
			current.Volume.Set(&trade.Amount)
			candles = append(candles, current)
			continue
		}
		if trade.Price.Cmp(&current.High) > 0 {
			current.High.Set(&trade.Price)
		}
		if trade.Price.Cmp(&current.Low) < 0 {
			current.Low.Set(&trade.Price)
		}
		current.Close.Set(&trade.Price)
		normCtx.Add(&current.Volume, &current.Volume, &trade.Amount)
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[:limit]
	}
	return candles
}

// CalculateFee computes the trading fee for an order against a market's
// taker or maker rate. The fee is denominated in the quote currency and
// equals price * amount * rate.
func (c *Client) CalculateFee(market *core.Market, takerOrMaker string, price, amount *apd.Decimal) (*core.Fee, error) {
	var rate *float64
	switch takerOrMaker {
	case "maker":
		rate = market.Maker
	case "taker", "":
		rate = market.Taker
	default:
		return nil, core.NewErrorf(core.KindBadRequest, c.desc.ID, "unknown fee side %q", takerOrMaker)
	}
	if rate == nil {
		return nil, core.NewErrorf(core.KindExchangeError, c.desc.ID, "no fee rate for market %s", market.Symbol)
	}

	rateDec, _, err := apd.NewFromString(strconv.FormatFloat(*rate, 'f', -1, 64))
	if err != nil {
		return nil, fmt.Errorf("fee rate: %w", err)
	}

	cost := new(apd.Decimal)
	normCtx.Mul(cost, price, amount)
	normCtx.Mul(cost, cost, rateDec)

	fee := &core.Fee{Currency: market.Quote, Cost: *cost, Rate: rate}
	return fee, nil
}
