package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory(t *testing.T) Factory {
	t.Helper()
	return func(opts ...Option) (*Client, error) {
		adapter := &testAdapter{markets: testMarkets()}
		opts = append([]Option{WithFetcher(newStubFetcher()), WithRateLimit(false)}, opts...)
		c, err := NewClient(adapter, opts...)
		if err != nil {
			return nil, err
		}
		adapter.client = c
		return c, nil
	}
}

func TestContainer_BuildAndGet(t *testing.T) {
	container := NewContainer()
	container.RegisterFactory("testex", testFactory(t))

	built, err := container.Build("testex")
	require.NoError(t, err)
	assert.Equal(t, "testex", built.ID())

	got, err := container.Get("testex")
	require.NoError(t, err)
	assert.Same(t, built, got)
}

func TestContainer_BuildUnknown(t *testing.T) {
	container := NewContainer()

	_, err := container.Build("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope" not found`)
}

func TestContainer_BuildFactoryError(t *testing.T) {
	container := NewContainer()
	boom := errors.New("bad credentials")
	container.RegisterFactory("broken", func(opts ...Option) (*Client, error) {
		return nil, boom
	})

	_, err := container.Build("broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "build broken")
}

func TestContainer_GetUnknown(t *testing.T) {
	container := NewContainer()

	_, err := container.Get("missing")
	assert.Error(t, err)
}

func TestContainer_Names(t *testing.T) {
	container := NewContainer()
	container.RegisterFactory("bilaxy", testFactory(t))
	container.RegisterFactory("probit", testFactory(t))

	assert.ElementsMatch(t, []string{"bilaxy", "probit"}, container.Names())
}

func TestContainer_Unregister(t *testing.T) {
	container := NewContainer()
	container.RegisterFactory("testex", testFactory(t))

	_, err := container.Build("testex")
	require.NoError(t, err)
	assert.True(t, container.Exists("testex"))

	container.Unregister("testex")
	assert.False(t, container.Exists("testex"))
	_, err = container.Get("testex")
	assert.Error(t, err)
}

func TestContainer_ClearKeepsFactories(t *testing.T) {
	container := NewContainer()
	container.RegisterFactory("testex", testFactory(t))

	_, err := container.Build("testex")
	require.NoError(t, err)

	container.Clear()
	_, err = container.Get("testex")
	assert.Error(t, err)

	// factories survive, the instance can be rebuilt
	rebuilt, err := container.Build("testex")
	require.NoError(t, err)
	assert.Equal(t, "testex", rebuilt.ID())
}

func TestContainer_RegisterExisting(t *testing.T) {
	container := NewContainer()
	client, err := testFactory(t)()
	require.NoError(t, err)

	container.Register("manual", client)
	got, err := container.Get("manual")
	require.NoError(t, err)
	assert.Same(t, client, got)
}
