package core

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

// Order side constants define the direction of a trade.
const (
	// SideBuy indicates an order to purchase an asset.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell an asset.
	SideSell
)

// String returns the string representation of the order side ("buy" or "sell").
func (s OrderSide) String() string {
	return [...]string{"buy", "sell"}[s]
}

// OrderType represents the type of order to place on an exchange.
type OrderType int

// Order type constants define how an order is executed.
const (
	// TypeLimit executes at a specified price or better.
	TypeLimit OrderType = iota
	// TypeMarket executes immediately at the best available price.
	TypeMarket
)

// String returns the string representation of the order type.
func (t OrderType) String() string {
	return [...]string{"limit", "market"}[t]
}

// OrderStatus represents the current state of an order.
type OrderStatus int

// Order status constants define the lifecycle state of an order.
const (
	// StatusOpen indicates an order accepted and resting on the book.
	StatusOpen OrderStatus = iota
	// StatusClosed indicates a completely filled order.
	StatusClosed
	// StatusCanceled indicates a canceled order.
	StatusCanceled
	// StatusExpired indicates an order that expired unfilled.
	StatusExpired
	// StatusRejected indicates an order rejected by the exchange.
	StatusRejected
)

// String returns the string representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{"open", "closed", "canceled", "expired", "rejected"}[s]
}

// IsTerminal returns true when no further status changes are possible.
func (s OrderStatus) IsTerminal() bool {
	return s != StatusOpen
}

// MinMax bounds a numeric trading limit. A nil field means unbounded.
type MinMax struct {
	Min *apd.Decimal `json:"min,omitempty"`
	Max *apd.Decimal `json:"max,omitempty"`
}

// Limits holds the trading limits of a market.
type Limits struct {
	// Amount bounds the order amount in base currency.
	Amount MinMax `json:"amount"`
	// Price bounds the order price in quote currency.
	Price MinMax `json:"price"`
	// Cost bounds the order cost (amount * price) in quote currency.
	Cost MinMax `json:"cost"`
}

// Precision holds per-market precision values. Depending on the exchange's
// precision mode a value is a number of decimal places, a number of
// significant digits, or a tick size. Negative values are meaningful in
// decimal-places mode (rounding to tens, hundreds). A nil field means
// unspecified.
type Precision struct {
	// Amount applies to order amounts in base currency.
	Amount *float64 `json:"amount,omitempty"`
	// Price applies to prices, costs and fees in quote currency.
	Price *float64 `json:"price,omitempty"`
	// Base overrides Amount when deriving base currency precision.
	Base *float64 `json:"base,omitempty"`
	// Quote overrides Price when deriving quote currency precision.
	Quote *float64 `json:"quote,omitempty"`
}

// Market describes a tradable symbol pair with its precision and limit
// metadata. Markets are keyed by Symbol in the registry and independently
// by the exchange-native ID.
type Market struct {
	// ID is the exchange-native market identifier.
	ID string `json:"id"`
	// NumericID is the exchange-native numeric identifier, when one exists.
	NumericID int64 `json:"numericId,omitempty"`
	// Symbol is the unified "BASE/QUOTE" pair, unique within a registry.
	Symbol string `json:"symbol"`
	// Base is the unified base currency code.
	Base string `json:"base"`
	// Quote is the unified quote currency code.
	Quote string `json:"quote"`
	// BaseID is the exchange-native base currency identifier.
	BaseID string `json:"baseId,omitempty"`
	// QuoteID is the exchange-native quote currency identifier.
	QuoteID string `json:"quoteId,omitempty"`
	// Active reports whether the market is currently tradable.
	Active bool `json:"active"`
	// Precision holds the market's precision values.
	Precision Precision `json:"precision"`
	// Limits holds the market's trading limits.
	Limits Limits `json:"limits"`
	// Taker is the taker fee rate, overriding the exchange-wide default.
	Taker *float64 `json:"taker,omitempty"`
	// Maker is the maker fee rate, overriding the exchange-wide default.
	Maker *float64 `json:"maker,omitempty"`
	// Info carries the raw exchange payload the market was built from.
	Info any `json:"info,omitempty"`
}

// Currency is the canonical record for a currency code. Exactly one record
// exists per code after registry construction.
type Currency struct {
	// ID is the exchange-native currency identifier.
	ID string `json:"id"`
	// NumericID is the exchange-native numeric identifier, when one exists.
	NumericID int64 `json:"numericId,omitempty"`
	// Code is the unified uppercase currency code.
	Code string `json:"code"`
	// Precision is the currency's precision value; when currencies are
	// derived from markets the highest implied precision wins.
	Precision float64 `json:"precision"`
	// Info carries the raw exchange payload, when one exists.
	Info any `json:"info,omitempty"`
}

// Ticker is the normalized 24-hour market statistics for one symbol.
type Ticker struct {
	Symbol      string       `json:"symbol"`
	Timestamp   time.Time    `json:"timestamp"`
	High        *apd.Decimal `json:"high,omitempty"`
	Low         *apd.Decimal `json:"low,omitempty"`
	Bid         *apd.Decimal `json:"bid,omitempty"`
	BidVolume   *apd.Decimal `json:"bidVolume,omitempty"`
	Ask         *apd.Decimal `json:"ask,omitempty"`
	AskVolume   *apd.Decimal `json:"askVolume,omitempty"`
	VWAP        *apd.Decimal `json:"vwap,omitempty"`
	Open        *apd.Decimal `json:"open,omitempty"`
	Close       *apd.Decimal `json:"close,omitempty"`
	Last        *apd.Decimal `json:"last,omitempty"`
	Change      *apd.Decimal `json:"change,omitempty"`
	Percentage  *apd.Decimal `json:"percentage,omitempty"`
	Average     *apd.Decimal `json:"average,omitempty"`
	BaseVolume  *apd.Decimal `json:"baseVolume,omitempty"`
	QuoteVolume *apd.Decimal `json:"quoteVolume,omitempty"`
	Info        any          `json:"info,omitempty"`
}

// BookLevel is a single price level of an order book side.
type BookLevel struct {
	// Price is the limit price of the level.
	Price apd.Decimal `json:"price"`
	// Amount is the total amount resting at the price.
	Amount apd.Decimal `json:"amount"`
}

// OrderBook is a normalized order book snapshot. Bids are sorted by price
// descending, asks ascending.
type OrderBook struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp time.Time   `json:"timestamp"`
	Nonce     int64       `json:"nonce,omitempty"`
}

// Trade is a normalized public or private trade.
type Trade struct {
	ID           string       `json:"id"`
	OrderID      string       `json:"order,omitempty"`
	Symbol       string       `json:"symbol"`
	Side         OrderSide    `json:"side"`
	Type         OrderType    `json:"type"`
	TakerOrMaker string       `json:"takerOrMaker,omitempty"`
	Price        apd.Decimal  `json:"price"`
	Amount       apd.Decimal  `json:"amount"`
	Cost         *apd.Decimal `json:"cost,omitempty"`
	Fee          *Fee         `json:"fee,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	Info         any          `json:"info,omitempty"`
}

// Fee is a trading fee in a specific currency.
type Fee struct {
	// Currency is the unified code of the fee currency.
	Currency string `json:"currency"`
	// Cost is the fee amount.
	Cost apd.Decimal `json:"cost"`
	// Rate is the fee rate applied, when known.
	Rate *float64 `json:"rate,omitempty"`
}

// Order is a normalized exchange order.
type Order struct {
	ID            string       `json:"id"`
	ClientOrderID string       `json:"clientOrderId,omitempty"`
	Symbol        string       `json:"symbol"`
	Side          OrderSide    `json:"side"`
	Type          OrderType    `json:"type"`
	Status        OrderStatus  `json:"status"`
	Price         *apd.Decimal `json:"price,omitempty"`
	Average       *apd.Decimal `json:"average,omitempty"`
	Amount        apd.Decimal  `json:"amount"`
	Filled        apd.Decimal  `json:"filled"`
	Remaining     apd.Decimal  `json:"remaining"`
	Cost          *apd.Decimal `json:"cost,omitempty"`
	Fee           *Fee         `json:"fee,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	Info          any          `json:"info,omitempty"`
}

// Balance is the account balance of a single currency. Any one field may be
// missing in a venue payload; FillBalance completes the third from the other
// two.
type Balance struct {
	// Free is the amount available for trading.
	Free *apd.Decimal `json:"free,omitempty"`
	// Used is the amount locked in open orders or withdrawals.
	Used *apd.Decimal `json:"used,omitempty"`
	// Total is Free + Used.
	Total *apd.Decimal `json:"total,omitempty"`
}

// Account maps unified currency codes to their balances.
type Account struct {
	// Balances indexes per-currency balances by unified code.
	Balances map[string]*Balance `json:"balances"`
	// Info carries the raw exchange payload.
	Info any `json:"info,omitempty"`
}

// NewAccount returns an empty Account.
func NewAccount() *Account {
	return &Account{Balances: make(map[string]*Balance)}
}

// OHLCV is one candlestick: open, high, low, close and base volume over a
// timeframe starting at Timestamp.
type OHLCV struct {
	Timestamp time.Time   `json:"timestamp"`
	Open      apd.Decimal `json:"open"`
	High      apd.Decimal `json:"high"`
	Low       apd.Decimal `json:"low"`
	Close     apd.Decimal `json:"close"`
	Volume    apd.Decimal `json:"volume"`
}
