package exchange

import (
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

func mustDecimal(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
		fails bool
	}{
		{name: "string", input: "0.001", want: "0.001"},
		{name: "scientific string", input: "1e-8", want: "1E-8"},
		{name: "float", input: float64(42.5), want: "42.5"},
		{name: "int", input: 7, want: "7"},
		{name: "int64", input: int64(-3), want: "-3"},
		{name: "nil", input: nil, fails: true},
		{name: "bool", input: true, fails: true},
		{name: "garbage string", input: "not a number", fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDecimal(tt.input)
			if tt.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseBookLevels(t *testing.T) {
	raw := []any{
		[]any{"100.5", "2"},
		[]any{float64(99), float64(0.5)},
	}

	levels, err := ParseBookLevels(raw, 0, 1)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "100.5", levels[0].Price.String())
	assert.Equal(t, "0.5", levels[1].Amount.String())
}

func TestParseBookLevels_Columns(t *testing.T) {
	// extra columns are ignored, indices select price and amount
	raw := []any{[]any{"ignored", "100", "3"}}
	levels, err := ParseBookLevels(raw, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "100", levels[0].Price.String())
	assert.Equal(t, "3", levels[0].Amount.String())
}

func TestParseBookLevels_BadRows(t *testing.T) {
	_, err := ParseBookLevels([]any{"not a row"}, 0, 1)
	assert.Error(t, err)

	_, err = ParseBookLevels([]any{[]any{"100"}}, 0, 1)
	assert.Error(t, err)

	_, err = ParseBookLevels([]any{[]any{"oops", "1"}}, 0, 1)
	assert.Error(t, err)
}

func levels(t *testing.T, pairs ...string) []core.BookLevel {
	t.Helper()
	require.Equal(t, 0, len(pairs)%2)
	out := make([]core.BookLevel, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, core.BookLevel{
			Price:  *mustDecimal(t, pairs[i]),
			Amount: *mustDecimal(t, pairs[i+1]),
		})
	}
	return out
}

func TestSortBidsAndAsks(t *testing.T) {
	bids := levels(t, "99", "1", "101", "2", "100", "3")
	SortBids(bids)
	assert.Equal(t, "101", bids[0].Price.String())
	assert.Equal(t, "99", bids[2].Price.String())

	asks := levels(t, "102", "1", "100.5", "2", "101", "3")
	SortAsks(asks)
	assert.Equal(t, "100.5", asks[0].Price.String())
	assert.Equal(t, "102", asks[2].Price.String())
}

func TestAggregateBookSide(t *testing.T) {
	side := levels(t, "100", "1", "100", "2.5", "99", "4")

	out := AggregateBookSide(side)
	require.Len(t, out, 2)
	assert.Equal(t, "100", out[0].Price.String())
	assert.Equal(t, "3.5", out[0].Amount.String())
	assert.Equal(t, "4", out[1].Amount.String())

	assert.Empty(t, AggregateBookSide(nil))
}

func TestParseOrderBook(t *testing.T) {
	now := time.Now()
	bids := []any{[]any{"99", "1"}, []any{"100", "2"}}
	asks := []any{[]any{"102", "1"}, []any{"101", "2"}}

	book, err := ParseOrderBook("BTC/USDT", now, bids, asks, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, "BTC/USDT", book.Symbol)
	assert.Equal(t, now, book.Timestamp)
	assert.Equal(t, "100", book.Bids[0].Price.String())
	assert.Equal(t, "101", book.Asks[0].Price.String())
}

func TestFilterBySinceLimit(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	trades := []*core.Trade{
		{ID: "1", Timestamp: base},
		{ID: "2", Timestamp: base.Add(time.Minute)},
		{ID: "3", Timestamp: base.Add(2 * time.Minute)},
	}
	at := func(tr *core.Trade) time.Time { return tr.Timestamp }

	// since keeps items at or after the cutoff
	got := FilterBySinceLimit(trades, base.Add(time.Minute), 0, at)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)

	// limit truncates
	got = FilterBySinceLimit(trades, time.Time{}, 2, at)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)

	// zero since and no limit keep everything
	assert.Len(t, FilterBySinceLimit(trades, time.Time{}, 0, at), 3)
}

func TestSortByTimestamp(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	trades := []*core.Trade{
		{ID: "late", Timestamp: base.Add(time.Hour)},
		{ID: "early", Timestamp: base},
	}

	SortByTimestamp(trades, func(tr *core.Trade) time.Time { return tr.Timestamp })
	assert.Equal(t, "early", trades[0].ID)
}

func TestDeduplicateByID(t *testing.T) {
	trades := []*core.Trade{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "c"}}

	out := DeduplicateByID(trades, func(tr *core.Trade) string { return tr.ID })
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[2].ID)
}

func TestFillBalance(t *testing.T) {
	account := core.NewAccount()
	account.Balances["BTC"] = &core.Balance{
		Free: mustDecimal(t, "1.5"),
		Used: mustDecimal(t, "0.5"),
	}
	account.Balances["ETH"] = &core.Balance{
		Total: mustDecimal(t, "10"),
		Used:  mustDecimal(t, "4"),
	}
	account.Balances["XRP"] = &core.Balance{
		Total: mustDecimal(t, "100"),
		Free:  mustDecimal(t, "60"),
	}
	account.Balances["DOGE"] = &core.Balance{
		Total: mustDecimal(t, "7"),
	}

	FillBalance(account)

	assert.Equal(t, "2.0", account.Balances["BTC"].Total.String())
	assert.Equal(t, "6", account.Balances["ETH"].Free.String())
	assert.Equal(t, "40", account.Balances["XRP"].Used.String())
	// two missing fields cannot be derived
	assert.Nil(t, account.Balances["DOGE"].Free)
	assert.Nil(t, account.Balances["DOGE"].Used)
}

func TestBuildOHLCV(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	trade := func(offset time.Duration, price, amount string) *core.Trade {
		return &core.Trade{
			Timestamp: base.Add(offset),
			Price:     *mustDecimal(t, price),
			Amount:    *mustDecimal(t, amount),
		}
	}
	trades := []*core.Trade{
		trade(10*time.Second, "100", "1"),
		trade(30*time.Second, "105", "2"),
		trade(50*time.Second, "95", "1"),
		trade(70*time.Second, "98", "3"),
	}

	candles := BuildOHLCV(trades, time.Minute, time.Time{}, 0)
	require.Len(t, candles, 2)

	first := candles[0]
	assert.Equal(t, base, first.Timestamp)
	assert.Equal(t, "100", first.Open.String())
	assert.Equal(t, "105", first.High.String())
	assert.Equal(t, "95", first.Low.String())
	assert.Equal(t, "95", first.Close.String())
	assert.Equal(t, "4", first.Volume.String())

	second := candles[1]
	assert.Equal(t, base.Add(time.Minute), second.Timestamp)
	assert.Equal(t, "98", second.Open.String())
	assert.Equal(t, "3", second.Volume.String())
}

func TestBuildOHLCV_SinceAndLimit(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	trades := []*core.Trade{
		{Timestamp: base, Price: *mustDecimal(t, "1"), Amount: *mustDecimal(t, "1")},
		{Timestamp: base.Add(time.Minute), Price: *mustDecimal(t, "2"), Amount: *mustDecimal(t, "1")},
		{Timestamp: base.Add(2 * time.Minute), Price: *mustDecimal(t, "3"), Amount: *mustDecimal(t, "1")},
	}

	candles := BuildOHLCV(trades, time.Minute, base.Add(time.Minute), 0)
	require.Len(t, candles, 2)
	assert.Equal(t, "2", candles[0].Open.String())

	candles = BuildOHLCV(trades, time.Minute, time.Time{}, 1)
	require.Len(t, candles, 1)
	assert.Equal(t, "1", candles[0].Open.String())
}

func TestCalculateFee(t *testing.T) {
	c, _ := newTestClient(t, &testAdapter{})
	taker := 0.002
	maker := 0.001
	market := &core.Market{Symbol: "BTC/USDT", Quote: "USDT", Taker: &taker, Maker: &maker}

	price := mustDecimal(t, "50000")
	amount := mustDecimal(t, "0.1")

	fee, err := c.CalculateFee(market, "taker", price, amount)
	require.NoError(t, err)
	assert.Equal(t, "USDT", fee.Currency)
	assert.Equal(t, "10.0000", fee.Cost.String())
	assert.Equal(t, 0.002, *fee.Rate)

	fee, err = c.CalculateFee(market, "maker", price, amount)
	require.NoError(t, err)
	assert.Equal(t, "5.0000", fee.Cost.String())

	// empty side defaults to taker
	fee, err = c.CalculateFee(market, "", price, amount)
	require.NoError(t, err)
	assert.Equal(t, 0.002, *fee.Rate)
}

func TestCalculateFee_Errors(t *testing.T) {
	c, _ := newTestClient(t, &testAdapter{})

	market := &core.Market{Symbol: "A/B", Quote: "B"}
	_, err := c.CalculateFee(market, "neither", apd.New(1, 0), apd.New(1, 0))
	require.Error(t, err)
	assert.Equal(t, core.KindBadRequest, core.KindOf(err))

	_, err = c.CalculateFee(market, "taker", apd.New(1, 0), apd.New(1, 0))
	require.Error(t, err)
	assert.Equal(t, core.KindExchangeError, core.KindOf(err))
}
