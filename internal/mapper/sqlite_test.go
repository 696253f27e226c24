package mapper

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/firerecord/internal/store"
)

func newTestCollections(t *testing.T) (*Collection, *Collection) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	stock, transaction := testModels()
	return New(s, stock), New(s, transaction)
}

func TestStockRoundTrip(t *testing.T) {
	ctx := context.Background()
	stocks, _ := newTestCollections(t)

	created, err := stocks.Create(ctx, map[string]any{
		"symbol": "AAA",
		"price":  3.44,
		"meta":   map[string]any{"exchange": "NYSE", "listed": true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID())

	found, err := stocks.Find(ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, created.ID(), found.ID())
	assert.Equal(t, "stocks", found.Model())
	assert.Equal(t, "AAA", found.String("symbol"))
	price, _ := found.Float("price")
	assert.Equal(t, 3.44, price)
	assert.Equal(t, []string{}, found.RefIDs("transactions"))
	assert.Equal(t, created.Fields(), found.Fields())
}

func TestHasManyThroughStore(t *testing.T) {
	ctx := context.Background()
	stocks, transactions := newTestCollections(t)

	stock, err := stocks.Create(ctx, map[string]any{"symbol": "AAA"})
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		tx, err := transactions.Create(ctx, map[string]any{"stock": stock.ID(), "shares": i + 1})
		require.NoError(t, err)
		require.NoError(t, stocks.PushHasMany(ctx, stock, "transactions", tx))
		ids = append(ids, tx.ID())
	}

	found, err := stocks.Find(ctx, stock.ID())
	require.NoError(t, err)
	assert.Equal(t, ids, found.RefIDs("transactions"))

	tx, err := transactions.Find(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, stock.ID(), tx.Ref("stock"))

	require.NoError(t, stocks.SetHasMany(ctx, found, "transactions"))
	cleared, err := stocks.Find(ctx, stock.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{}, cleared.RefIDs("transactions"))
}

func TestFindByComposesFilters(t *testing.T) {
	ctx := context.Background()
	_, transactions := newTestCollections(t)

	rows := []map[string]any{
		{"stock": "s1", "open": true},
		{"stock": "s1", "open": false},
		{"stock": "s1", "open": "true"},
		{"stock": "s2", "open": true},
		{"stock": "s1", "open": 1},
	}
	var ids []string
	for _, r := range rows {
		rec, err := transactions.Create(ctx, r)
		require.NoError(t, err)
		ids = append(ids, rec.ID())
	}

	open, err := transactions.FindBy(ctx, Eq("open", true))
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, ids[0], open[0].ID())
	assert.Equal(t, ids[3], open[1].ID())

	both, err := transactions.FindBy(ctx, Eq("stock", "s1"), Eq("open", true))
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, ids[0], both[0].ID())

	none, err := transactions.FindBy(ctx, Eq("stock", "s3"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindByNumericValue(t *testing.T) {
	ctx := context.Background()
	stocks, _ := newTestCollections(t)

	_, err := stocks.Create(ctx, map[string]any{"symbol": "AAA", "price": 3.44})
	require.NoError(t, err)
	_, err = stocks.Create(ctx, map[string]any{"symbol": "BBB", "price": 3})
	require.NoError(t, err)

	got, err := stocks.FindBy(ctx, Eq("price", 3))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BBB", got[0].String("symbol"))

	got, err = stocks.FindBy(ctx, Eq("symbol", "AAA"), Eq("price", 3.44))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFindOrCreateByIsIdempotent(t *testing.T) {
	ctx := context.Background()
	stocks, _ := newTestCollections(t)

	first, err := stocks.FindOrCreateBy(ctx, Eq("symbol", "AAA"))
	require.NoError(t, err)
	second, err := stocks.FindOrCreateBy(ctx, Eq("symbol", "AAA"))
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	all, err := stocks.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveAndPartialUpdate(t *testing.T) {
	ctx := context.Background()
	stocks, _ := newTestCollections(t)

	rec, err := stocks.Create(ctx, map[string]any{"symbol": "AAA", "price": 1.0, "note": "x"})
	require.NoError(t, err)

	rec.Set("price", 2.5)
	rec.Set("transactions", []string{"t1"})
	require.NoError(t, stocks.Save(ctx, rec))

	require.NoError(t, stocks.Update(ctx, rec, map[string]any{"note": nil}))

	found, err := stocks.Find(ctx, rec.ID())
	require.NoError(t, err)
	price, _ := found.Float("price")
	assert.Equal(t, 2.5, price)
	assert.Equal(t, []string{"t1"}, found.RefIDs("transactions"))
	assert.False(t, found.Has("note"))
	assert.Equal(t, "AAA", found.String("symbol"))
}

func TestDestroyAllEmptiesCollection(t *testing.T) {
	ctx := context.Background()
	stocks, transactions := newTestCollections(t)

	for _, sym := range []string{"AAA", "BBB"} {
		_, err := stocks.Create(ctx, map[string]any{"symbol": sym})
		require.NoError(t, err)
	}
	_, err := transactions.Create(ctx, map[string]any{"shares": 1})
	require.NoError(t, err)

	require.NoError(t, stocks.DestroyAll(ctx))
	all, err := stocks.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	kept, err := transactions.All(ctx)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	require.NoError(t, stocks.DestroyAll(ctx))
}
