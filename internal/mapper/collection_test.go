package mapper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/firerecord/internal/model"
	"github.com/rcliao/firerecord/internal/schema"
	"github.com/rcliao/firerecord/internal/store"
)

func testModels() (*schema.Model, *schema.Model) {
	stock := schema.MustDefine("Stock", schema.HasMany("transactions"))
	transaction := schema.MustDefine("Transaction", schema.BelongsTo("stock"))
	return stock, transaction
}

type call struct {
	verb  store.Verb
	path  string
	query *store.Query
	body  any
}

// fakeClient records requests and answers them with respond.
type fakeClient struct {
	calls   []call
	respond func(c call) (any, error)
}

func (f *fakeClient) Request(_ context.Context, verb store.Verb, path string, q *store.Query, body any) (any, error) {
	c := call{verb: verb, path: path, query: q, body: body}
	f.calls = append(f.calls, c)
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(c)
}

func answer(resp any, err error) func(call) (any, error) {
	return func(call) (any, error) { return resp, err }
}

func TestCreatePushesAndUsesAssignedKey(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{respond: answer(map[string]any{"name": "-Nabc"}, nil)}
	c := New(fc, stock)

	rec, err := c.Create(context.Background(), map[string]any{"symbol": "AAA", "price": 3})
	require.NoError(t, err)

	require.Len(t, fc.calls, 1)
	assert.Equal(t, store.Push, fc.calls[0].verb)
	assert.Equal(t, "stocks", fc.calls[0].path)
	assert.Equal(t, map[string]any{"symbol": "AAA", "price": 3.0}, fc.calls[0].body)

	assert.Equal(t, "-Nabc", rec.ID())
	assert.Equal(t, "stocks", rec.Model())
	price, _ := rec.Get("price")
	assert.Equal(t, 3.0, price)
	assert.Equal(t, []string{}, rec.RefIDs("transactions"))
}

func TestCreateWithoutKeyIsStoreError(t *testing.T) {
	stock, _ := testModels()
	c := New(&fakeClient{respond: answer(map[string]any{}, nil)}, stock)

	_, err := c.Create(context.Background(), nil)
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "stocks", se.Path)
}

func TestErrorPayloadBecomesStoreError(t *testing.T) {
	stock, _ := testModels()
	c := New(&fakeClient{respond: answer(map[string]any{"error": "Permission denied"}, nil)}, stock)

	_, err := c.All(context.Background())
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Permission denied", se.Message)
	assert.Contains(t, err.Error(), "Permission denied")
}

func TestTransportErrorPassesThrough(t *testing.T) {
	stock, _ := testModels()
	want := fmt.Errorf("%w: dial tcp: refused", store.ErrUnavailable)
	c := New(&fakeClient{respond: answer(nil, want)}, stock)

	_, err := c.Find(context.Background(), "s1")
	assert.Equal(t, want, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestFindMissingIsNotFound(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)

	_, err := c.Find(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "stocks/nope", fc.calls[0].path)

	_, err = c.Find(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, fc.calls, 1)
}

func TestAllEmptyIsNotAnError(t *testing.T) {
	stock, _ := testModels()
	c := New(&fakeClient{}, stock)

	got, err := c.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindBySendsFirstFilterOnly(t *testing.T) {
	_, transaction := testModels()
	rows := map[string]any{
		"t1": map[string]any{"stock": "s1", "shares": 3.0, "open": true},
		"t2": map[string]any{"stock": "s1", "shares": 5.0, "open": true},
		"t3": map[string]any{"stock": "s1", "shares": 3.0, "open": false},
	}
	fc := &fakeClient{respond: answer(rows, nil)}
	c := New(fc, transaction)

	got, err := c.FindBy(context.Background(), Eq("stock", "s1"), Eq("shares", 3), Eq("open", true))
	require.NoError(t, err)

	require.Len(t, fc.calls, 1)
	assert.Equal(t, &store.Query{OrderBy: "stock", EqualTo: "s1"}, fc.calls[0].query)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID())
}

func TestFindByNormalizesFilterValues(t *testing.T) {
	_, transaction := testModels()
	fc := &fakeClient{}
	c := New(fc, transaction)

	_, err := c.FindBy(context.Background(), Eq("shares", 3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, fc.calls[0].query.EqualTo)

	_, err = c.FindBy(context.Background(), Eq("", 3))
	assert.Error(t, err)
	_, err = c.FindBy(context.Background(), Eq("/", 3))
	assert.Error(t, err)
	_, err = c.FindBy(context.Background(), Eq("shares", 3), Eq("meta.exchange", "NYSE"))
	assert.Error(t, err)
	assert.Len(t, fc.calls, 1)
}

func TestFindByRejectsNonScalarValuesInAnyPosition(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{respond: answer(map[string]any{
		"s1": map[string]any{"symbol": "AAA", "meta": map[string]any{"exchange": "NYSE"}},
	}, nil)}
	c := New(fc, stock)
	ctx := context.Background()
	meta := Eq("meta", map[string]any{"exchange": "NYSE"})

	_, firstErr := c.FindBy(ctx, meta, Eq("symbol", "AAA"))
	require.Error(t, firstErr)
	_, laterErr := c.FindBy(ctx, Eq("symbol", "AAA"), meta)
	require.Error(t, laterErr)
	assert.Equal(t, firstErr.Error(), laterErr.Error())
	assert.Contains(t, firstErr.Error(), "unsupported value type")

	_, err := c.FindBy(ctx, Eq("symbol", "AAA"), Eq("tags", []string{"a"}))
	assert.Error(t, err)
	assert.Empty(t, fc.calls)
}

func TestFindByNestedFieldClientSide(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{respond: answer(map[string]any{
		"s1": map[string]any{"symbol": "AAA", "meta": map[string]any{"exchange": "NYSE"}},
		"s2": map[string]any{"symbol": "AAA", "meta/exchange": "NYSE"},
		"s3": map[string]any{"symbol": "AAA", "meta": map[string]any{"exchange": "LSE"}},
	}, nil)}
	c := New(fc, stock)

	got, err := c.FindBy(context.Background(), Eq("symbol", "AAA"), Eq("meta/exchange", "NYSE"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID())
}

func TestFindByWithoutFiltersReadsAll(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)

	_, err := c.FindBy(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fc.calls[0].query)
}

func TestFindOrCreateByCreatesWithFilterValues(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{respond: func(c call) (any, error) {
		if c.verb == store.Push {
			return map[string]any{"name": "s9"}, nil
		}
		return map[string]any{}, nil
	}}
	c := New(fc, stock)

	rec, err := c.FindOrCreateBy(context.Background(), Eq("symbol", "ZZZ"))
	require.NoError(t, err)
	assert.Equal(t, "s9", rec.ID())
	require.Len(t, fc.calls, 2)
	assert.Equal(t, map[string]any{"symbol": "ZZZ"}, fc.calls[1].body)
}

func TestFindOrCreateByNestsPathFields(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{respond: func(c call) (any, error) {
		if c.verb == store.Push {
			return map[string]any{"name": "s9"}, nil
		}
		return nil, nil
	}}
	c := New(fc, stock)

	_, err := c.FindOrCreateBy(context.Background(), Eq("symbol", "ZZZ"), Eq("meta/exchange", "LSE"))
	require.NoError(t, err)
	require.Len(t, fc.calls, 2)
	assert.Equal(t, map[string]any{
		"symbol": "ZZZ",
		"meta":   map[string]any{"exchange": "LSE"},
	}, fc.calls[1].body)
}

func TestUpdateWritesOnlyGivenFields(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)
	rec := Materialize(stock, map[string]any{"id": "s1", "symbol": "AAA", "price": 1.0})

	require.NoError(t, c.Update(context.Background(), rec, map[string]any{"price": 2.0}))
	assert.Equal(t, call{verb: store.Update, path: "stocks/s1", body: map[string]any{"price": 2.0}}, fc.calls[0])
	price, _ := rec.Float("price")
	assert.Equal(t, 1.0, price)

	err := c.Update(context.Background(), Materialize(stock, map[string]any{}), nil)
	assert.Error(t, err)
}

func TestWritesRejectRecordOfAnotherModel(t *testing.T) {
	stock, transaction := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)
	rec := Materialize(transaction, map[string]any{"id": "t1", "stock": "s1"})

	err := c.Update(context.Background(), rec, map[string]any{"price": 2.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record of model Transaction")
	assert.Error(t, c.Save(context.Background(), rec))
	assert.Error(t, c.SetHasMany(context.Background(), rec, "transactions", model.ID("t9")))
	assert.False(t, rec.Has("transactions"))
	assert.Empty(t, fc.calls)
}

func TestSaveEncodesHasManyAsSet(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)
	rec := Materialize(stock, map[string]any{"id": "s1", "symbol": "AAA"})
	rec.Set("transactions", []string{"t1", "t2"})

	require.NoError(t, c.Save(context.Background(), rec))
	assert.Equal(t, map[string]any{
		"symbol":       "AAA",
		"transactions": map[string]bool{"t1": true, "t2": true},
	}, fc.calls[0].body)
}

func TestSetHasManyDedupesAndWritesSet(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)
	rec := Materialize(stock, map[string]any{"id": "s1"})

	err := c.SetHasMany(context.Background(), rec, "transactions", model.ID("t2"), model.ID("t1"), model.ID("t2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"t2", "t1"}, rec.RefIDs("transactions"))
	assert.Equal(t, call{
		verb: store.Set,
		path: "stocks/s1/transactions",
		body: map[string]bool{"t1": true, "t2": true},
	}, fc.calls[0])
}

func TestSetHasManyRejectsBadInput(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)
	rec := Materialize(stock, map[string]any{"id": "s1"})

	assert.Error(t, c.SetHasMany(context.Background(), rec, "symbol", model.ID("x")))
	assert.Error(t, c.SetHasMany(context.Background(), rec, "transactions", model.ID("")))
	assert.Error(t, c.SetHasMany(context.Background(), rec, "transactions", nil))
	assert.Error(t, c.SetHasMany(context.Background(), Materialize(stock, map[string]any{}), "transactions"))
	assert.Empty(t, fc.calls)
}

func TestSetHasManyFailureLeavesMemoryAhead(t *testing.T) {
	stock, _ := testModels()
	c := New(&fakeClient{respond: answer(nil, fmt.Errorf("%w: timeout", store.ErrUnavailable))}, stock)
	rec := Materialize(stock, map[string]any{"id": "s1"})

	err := c.SetHasMany(context.Background(), rec, "transactions", model.ID("t1"))
	assert.True(t, errors.Is(err, store.ErrUnavailable))
	assert.Equal(t, []string{"t1"}, rec.RefIDs("transactions"))
}

func TestPushHasManyAppends(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)
	rec := Materialize(stock, map[string]any{"id": "s1", "transactions": map[string]any{"t1": true}})

	require.NoError(t, c.PushHasMany(context.Background(), rec, "transactions", model.ID("t2")))
	assert.Equal(t, []string{"t1", "t2"}, rec.RefIDs("transactions"))
	assert.Equal(t, map[string]bool{"t1": true, "t2": true}, fc.calls[0].body)
}

func TestDestroyAll(t *testing.T) {
	stock, _ := testModels()
	fc := &fakeClient{}
	c := New(fc, stock)

	require.NoError(t, c.DestroyAll(context.Background()))
	assert.Equal(t, call{verb: store.Delete, path: "stocks"}, fc.calls[0])
}
