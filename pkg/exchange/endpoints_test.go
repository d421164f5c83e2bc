package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/pkg/core"
)

func TestEndpointNames_Generation(t *testing.T) {
	tests := []struct {
		apiType string
		method  string
		path    string
		camel   string
		snake   string
	}{
		{"public", "get", "ticker/24hr", "publicGetTicker24hr", "public_get_ticker_24hr"},
		{"public", "get", "pairs", "publicGetPairs", "public_get_pairs"},
		{"private", "post", "cancel_trade", "privatePostCancelTrade", "private_post_cancel_trade"},
		{"private", "get", "orders/{market}", "privateGetOrdersMarket", "private_get_orders_market"},
		{"private", "delete", "order/{id}", "privateDeleteOrderId", "private_delete_order_id"},
		{"private", "get", "trade-history/{market}", "privateGetTradeHistoryMarket", "private_get_trade_history_market"},
	}

	for _, tt := range tests {
		t.Run(tt.camel, func(t *testing.T) {
			camel, snake := endpointNames(tt.apiType, tt.method, tt.path)
			assert.Equal(t, tt.camel, camel)
			assert.Equal(t, tt.snake, snake)
		})
	}
}

func TestBuildEndpoints(t *testing.T) {
	api := APIMap{
		"public": {
			"get": {"pairs", "ticker/24hr"},
		},
		"private": {
			"post":   {"order"},
			"delete": {"order/{id}"},
		},
	}

	table := buildEndpoints(api)

	// both generated names resolve to the same endpoint
	camel, ok := table["publicGetTicker24hr"]
	require.True(t, ok)
	snake, ok := table["public_get_ticker_24hr"]
	require.True(t, ok)
	assert.Equal(t, camel, snake)
	assert.Equal(t, "ticker/24hr", camel.path)
	assert.Equal(t, "public", camel.apiType)
	assert.Equal(t, "GET", camel.method)

	del, ok := table["privateDeleteOrderId"]
	require.True(t, ok)
	assert.Equal(t, "DELETE", del.method)
	assert.Equal(t, "order/{id}", del.path)

	_, ok = table["publicGetUnknown"]
	assert.False(t, ok)
}

func TestEndpointNames_Sorted(t *testing.T) {
	api := APIMap{
		"public": {"get": {"b", "a"}},
	}

	names := EndpointNames(api)

	require.Len(t, names, 4)
	assert.Equal(t, []string{"publicGetA", "publicGetB", "public_get_a", "public_get_b"}, names)
}

func TestExtractParams(t *testing.T) {
	assert.Equal(t, []string{"market"}, ExtractParams("orders/{market}"))
	assert.Equal(t, []string{"market", "id"}, ExtractParams("orders/{market}/trades/{id}"))
	assert.Empty(t, ExtractParams("pairs"))
}

func TestImplodeParams(t *testing.T) {
	path, rest := ImplodeParams("orders/{market}", core.Params{"market": "BTC-USDT", "limit": 10})

	assert.Equal(t, "orders/BTC-USDT", path)
	assert.False(t, rest.Has("market"))
	assert.Equal(t, int64(10), rest.Int("limit", 0))
}

func TestImplodeParams_MissingPlaceholderKept(t *testing.T) {
	path, rest := ImplodeParams("orders/{market}", core.Params{"limit": 10})

	assert.Equal(t, "orders/{market}", path)
	assert.True(t, rest.Has("limit"))
}

func TestBuildQuery_Deterministic(t *testing.T) {
	params := core.Params{"b": "2", "a": "1", "c": "3"}

	assert.Equal(t, "a=1&b=2&c=3", BuildQuery(params))
	assert.Equal(t, BuildQuery(params), BuildQuery(params))
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		path   string
		params core.Params
		want   string
	}{
		{
			"plain path",
			"https://api.example.com/v1",
			"pairs",
			nil,
			"https://api.example.com/v1/pairs",
		},
		{
			"query appended",
			"https://api.example.com/v1/",
			"trades",
			core.Params{"pair": "BTC_USDT", "limit": 100},
			"https://api.example.com/v1/trades?limit=100&pair=BTC_USDT",
		},
		{
			"placeholder imploded",
			"https://api.example.com/v1",
			"orders/{market}",
			core.Params{"market": "BTC-USDT"},
			"https://api.example.com/v1/orders/BTC-USDT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(tt.base, tt.path, tt.params))
		})
	}
}
