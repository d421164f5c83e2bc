package probit

import (
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"nakula/pkg/core"
	"nakula/pkg/exchange"
	"nakula/pkg/precision"
)

// probitMarket represents one entry of the raw market response. Price
// granularity arrives as a tick size string while quantity granularity is a
// digit count.
type probitMarket struct {
	ID                string  `json:"id"`
	BaseCurrencyID    string  `json:"base_currency_id"`
	QuoteCurrencyID   string  `json:"quote_currency_id"`
	MinPrice          any     `json:"min_price"`
	MaxPrice          any     `json:"max_price"`
	PriceIncrement    string  `json:"price_increment"`
	MinQuantity       any     `json:"min_quantity"`
	MaxQuantity       any     `json:"max_quantity"`
	QuantityPrecision float64 `json:"quantity_precision"`
	MinCost           any     `json:"min_cost"`
	MaxCost           any     `json:"max_cost"`
	Closed            bool    `json:"closed"`
}

// probitBookLevel is one row of the raw order book, tagged with its side.
type probitBookLevel struct {
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// normalizeMarket converts a raw market entry to a canonical Market. The
// price increment translates into decimal places.
func normalizeMarket(data *probitMarket) *core.Market {
	base := strings.ToUpper(data.BaseCurrencyID)
	quote := strings.ToUpper(data.QuoteCurrencyID)

	amountPrecision := data.QuantityPrecision
	pricePrecision := float64(precision.FromString(data.PriceIncrement))

	return &core.Market{
		ID:      data.ID,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  data.BaseCurrencyID,
		QuoteID: data.QuoteCurrencyID,
		Active:  !data.Closed,
		Precision: core.Precision{
			Amount: &amountPrecision,
			Price:  &pricePrecision,
		},
		Limits: core.Limits{
			Amount: core.MinMax{Min: decimalOrNil(data.MinQuantity), Max: decimalOrNil(data.MaxQuantity)},
			Price:  core.MinMax{Min: decimalOrNil(data.MinPrice), Max: decimalOrNil(data.MaxPrice)},
			Cost:   core.MinMax{Min: decimalOrNil(data.MinCost), Max: decimalOrNil(data.MaxCost)},
		},
		Info: data,
	}
}

// normalizeTicker converts a raw ticker entry.
func normalizeTicker(data core.Params, symbol string) *core.Ticker {
	last := data.Decimal("last")
	return &core.Ticker{
		Symbol:      symbol,
		Timestamp:   parseTime(data.String("time", "")),
		High:        data.Decimal("high"),
		Low:         data.Decimal("low"),
		Last:        last,
		Close:       last,
		Change:      data.Decimal("change"),
		BaseVolume:  data.Decimal("base_volume"),
		QuoteVolume: data.Decimal("quote_volume"),
		Info:        data,
	}
}

// normalizeTrade converts a raw trade entry.
func normalizeTrade(data core.Params, symbol string) (*core.Trade, error) {
	price := data.Decimal("price")
	amount := data.Decimal("quantity")
	if price == nil || amount == nil {
		return nil, core.NewErrorf(core.KindExchangeError, "probit", "trade %s missing price or quantity", data.String("id", ""))
	}

	return &core.Trade{
		ID:        data.String("id", ""),
		OrderID:   data.String("order_id", ""),
		Symbol:    symbol,
		Side:      parseSide(data.String("side", "")),
		Price:     *price,
		Amount:    *amount,
		Timestamp: parseTime(data.String("time", "")),
		Info:      data,
	}, nil
}

// normalizeOrder converts a raw order entry.
func normalizeOrder(data core.Params, symbol string) (*core.Order, error) {
	amount := data.Decimal("quantity")
	if amount == nil {
		return nil, core.NewErrorf(core.KindExchangeError, "probit", "order %s missing quantity", data.String("id", ""))
	}

	order := &core.Order{
		ID:            data.String("id", ""),
		ClientOrderID: data.String("client_order_id", ""),
		Symbol:        symbol,
		Side:          parseSide(data.String("side", "")),
		Type:          parseType(data.String("type", "")),
		Status:        parseStatus(data.String("status", "")),
		Price:         data.Decimal("limit_price"),
		Amount:        *amount,
		Timestamp:     parseTime(data.String("time", "")),
		Info:          data,
	}

	if filled := data.Decimal("filled_quantity"); filled != nil {
		order.Filled = *filled
	}
	if open := data.Decimal("open_quantity"); open != nil {
		order.Remaining = *open
	} else {
		remaining := new(apd.Decimal)
		if _, err := apd.BaseContext.Sub(remaining, &order.Amount, &order.Filled); err == nil {
			order.Remaining = *remaining
		}
	}
	return order, nil
}

// normalizeOrderBook splits the venue's flat side-tagged level list into a
// sorted two-sided book.
func normalizeOrderBook(levels []probitBookLevel, symbol string, limit int) (*core.OrderBook, error) {
	book := &core.OrderBook{
		Symbol:    symbol,
		Timestamp: time.Now(),
	}
	for _, level := range levels {
		price, err := exchange.ToDecimal(level.Price)
		if err != nil {
			return nil, core.NewErrorf(core.KindExchangeError, "probit", "order book price: %v", err)
		}
		amount, err := exchange.ToDecimal(level.Quantity)
		if err != nil {
			return nil, core.NewErrorf(core.KindExchangeError, "probit", "order book quantity: %v", err)
		}
		entry := core.BookLevel{Price: *price, Amount: *amount}
		if strings.EqualFold(level.Side, "sell") {
			book.Asks = append(book.Asks, entry)
		} else {
			book.Bids = append(book.Bids, entry)
		}
	}
	exchange.SortBids(book.Bids)
	exchange.SortAsks(book.Asks)
	if limit > 0 {
		if len(book.Bids) > limit {
			book.Bids = book.Bids[:limit]
		}
		if len(book.Asks) > limit {
			book.Asks = book.Asks[:limit]
		}
	}
	return book, nil
}

func parseSide(side string) core.OrderSide {
	if strings.EqualFold(side, "sell") {
		return core.SideSell
	}
	return core.SideBuy
}

func parseType(orderType string) core.OrderType {
	if strings.EqualFold(orderType, "market") {
		return core.TypeMarket
	}
	return core.TypeLimit
}

func parseStatus(status string) core.OrderStatus {
	switch strings.ToLower(status) {
	case "open":
		return core.StatusOpen
	case "filled", "closed":
		return core.StatusClosed
	case "cancelled", "canceled":
		return core.StatusCanceled
	default:
		return core.StatusOpen
	}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decimalOrNil(v any) *apd.Decimal {
	d, err := exchange.ToDecimal(v)
	if err != nil {
		return nil
	}
	return d
}
