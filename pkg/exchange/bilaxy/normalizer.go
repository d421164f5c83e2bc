package bilaxy

import (
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
	"nakula/pkg/exchange"
)

// bilaxyMarket represents one entry of the raw pairs response. Numeric
// bounds arrive as strings or numbers depending on the venue's mood, so
// they stay untyped until conversion.
type bilaxyMarket struct {
	PairID          int64   `json:"pair_id"`
	Base            string  `json:"base"`
	Quote           string  `json:"quote"`
	PricePrecision  float64 `json:"price_precision"`
	AmountPrecision float64 `json:"amount_precision"`
	MinAmount       any     `json:"min_amount"`
	MaxAmount       any     `json:"max_amount"`
	MinTotal        any     `json:"min_total"`
	MaxTotal        any     `json:"max_total"`
	TradeEnabled    bool    `json:"trade_enabled"`
	Closed          bool    `json:"closed"`
}

// normalizeMarket converts a raw pair entry to a canonical Market. The
// market id is the venue's "BASE_QUOTE" pair name used by the market data
// endpoints; the numeric pair id is kept alongside.
func normalizeMarket(data *bilaxyMarket) *core.Market {
	pricePrecision := data.PricePrecision
	amountPrecision := data.AmountPrecision
	return &core.Market{
		ID:        data.Base + "_" + data.Quote,
		NumericID: data.PairID,
		Symbol:    data.Base + "/" + data.Quote,
		Base:      data.Base,
		Quote:     data.Quote,
		BaseID:    data.Base,
		QuoteID:   data.Quote,
		Active:    data.TradeEnabled && !data.Closed,
		Precision: core.Precision{
			Amount: &amountPrecision,
			Price:  &pricePrecision,
		},
		Limits: core.Limits{
			Amount: core.MinMax{Min: decimalOrNil(data.MinAmount), Max: decimalOrNil(data.MaxAmount)},
			Cost:   core.MinMax{Min: decimalOrNil(data.MinTotal), Max: decimalOrNil(data.MaxTotal)},
		},
		Info: data,
	}
}

// normalizeTicker converts a raw 24-hour statistics entry. The venue spells
// the high price "height".
func normalizeTicker(data core.Params, symbol string) *core.Ticker {
	closePrice := data.Decimal("close")
	return &core.Ticker{
		Symbol:      symbol,
		Timestamp:   time.Now(),
		High:        data.Decimal("height"),
		Low:         data.Decimal("low"),
		Open:        data.Decimal("open"),
		Close:       closePrice,
		Last:        closePrice,
		Change:      data.Decimal("price_change"),
		BaseVolume:  data.Decimal("base_volume"),
		QuoteVolume: data.Decimal("quote_volume"),
		Info:        data,
	}
}

// normalizeTrade converts a raw public trade.
func normalizeTrade(data core.Params, symbol string) (*core.Trade, error) {
	price := data.Decimal("price")
	amount := data.Decimal("amount")
	if price == nil || amount == nil {
		return nil, core.NewErrorf(core.KindExchangeError, "bilaxy", "trade %s missing price or amount", data.String("id", ""))
	}

	trade := &core.Trade{
		ID:        data.String("id", ""),
		Symbol:    symbol,
		Side:      parseSide(data.String("direction", "")),
		Price:     *price,
		Amount:    *amount,
		Cost:      data.Decimal("total"),
		Timestamp: time.UnixMilli(data.Int("ts", 0)),
		Info:      data,
	}
	return trade, nil
}

// normalizeOrderBook converts a raw order book payload of [price, amount]
// rows.
func normalizeOrderBook(response any, symbol, exchangeID string) (*core.OrderBook, error) {
	payload, ok := response.(map[string]any)
	if !ok {
		return nil, core.NewErrorf(core.KindExchangeError, exchangeID, "unexpected order book payload %T", response)
	}

	bids, _ := payload["bids"].([]any)
	asks, _ := payload["asks"].([]any)
	timestamp := time.UnixMilli(core.Params(payload).Int("timestamp", 0))

	book, err := exchange.ParseOrderBook(symbol, timestamp, bids, asks, 0, 1)
	if err != nil {
		return nil, core.NewErrorf(core.KindExchangeError, exchangeID, "parse order book: %v", err)
	}
	return book, nil
}

func pairToSymbol(pair string) string {
	return strings.ReplaceAll(pair, "_", "/")
}

func parseSide(direction string) core.OrderSide {
	if strings.EqualFold(direction, "sell") {
		return core.SideSell
	}
	return core.SideBuy
}

func decimalOrNil(v any) *apd.Decimal {
	d, err := exchange.ToDecimal(v)
	if err != nil {
		return nil
	}
	return d
}
