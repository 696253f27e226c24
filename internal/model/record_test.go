package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/firerecord/internal/schema"
)

var txModel = schema.MustDefine("FirebaseTransaction", schema.BelongsTo("stock"), schema.HasMany("fills"))

func TestRecordAccessors(t *testing.T) {
	r := NewRecord(txModel)
	r.Set("id", "-K6B")
	r.Set(schema.ModelField, "transactions")
	r.Set("price", 1.22)
	r.Set("qty", float64(3))
	r.Set("open", true)
	r.Set("note", "hi")
	r.Set("fills", []any{"a", "b"})

	assert.Equal(t, "-K6B", r.ID())
	assert.Equal(t, "-K6B", r.StoreID())
	assert.Equal(t, "transactions", r.Model())

	price, ok := r.Float("price")
	require.True(t, ok)
	assert.Equal(t, 1.22, price)

	qty, ok := r.Int("qty")
	require.True(t, ok)
	assert.Equal(t, int64(3), qty)

	_, ok = r.Int("price")
	assert.False(t, ok)

	open, ok := r.Bool("open")
	require.True(t, ok)
	assert.True(t, open)

	assert.Equal(t, "hi", r.String("note"))
	assert.Equal(t, "1.22", r.String("price"))
	assert.Equal(t, "", r.String("missing"))
	assert.Equal(t, []string{"a", "b"}, r.RefIDs("fills"))
	assert.False(t, r.Has("missing"))
}

func TestRecordFieldsExcludesReserved(t *testing.T) {
	r := NewRecord(txModel)
	r.Set("id", "x")
	r.Set(schema.ModelField, "transactions")
	r.Set("price", 2.5)

	fields := r.Fields()
	assert.Equal(t, map[string]any{"price": 2.5}, fields)

	fields["price"] = 9.0
	got, _ := r.Float("price")
	assert.Equal(t, 2.5, got, "Fields must return a copy")

	assert.Equal(t, []string{schema.ModelField, "id", "price"}, r.Keys())
}

func TestSetBelongsTo(t *testing.T) {
	stock := NewRecord(schema.MustDefine("FirebaseStock"))
	stock.Set("id", "stock-1")

	tx := NewRecord(txModel)
	require.NoError(t, tx.SetBelongsTo("stock", stock))
	assert.Equal(t, "stock-1", tx.Ref("stock"))

	require.NoError(t, tx.SetBelongsTo("stock", ID("stock-2")))
	assert.Equal(t, "stock-2", tx.Ref("stock"))

	require.NoError(t, tx.SetBelongsTo("stock", nil))
	assert.True(t, tx.Has("stock"))
	assert.Equal(t, "", tx.Ref("stock"))

	assert.Error(t, tx.SetBelongsTo("fills", ID("x")))
	assert.Error(t, tx.SetBelongsTo("price", ID("x")))
}

func TestIDs(t *testing.T) {
	refs := IDs("a", "b")
	require.Len(t, refs, 2)
	assert.Equal(t, "b", refs[1].StoreID())
}

func TestRecordMarshalJSON(t *testing.T) {
	r := NewRecord(txModel)
	r.Set("id", "x")
	r.Set("stock", nil)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","stock":null}`, string(b))
}
