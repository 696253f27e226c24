// Package portfolio is a small typed layer over the generic record API: stocks
// and the transactions recorded against them.
package portfolio

import (
	"context"
	"fmt"

	"github.com/rcliao/firerecord/internal/mapper"
	"github.com/rcliao/firerecord/internal/model"
	"github.com/rcliao/firerecord/internal/schema"
	"github.com/rcliao/firerecord/internal/store"
)

// Relation fields.
const (
	TransactionsField = "transactions"
	StockField        = "stock"
)

var (
	// StockModel is stored under "stocks".
	StockModel = schema.MustDefine("FirebaseStock", schema.HasMany(TransactionsField))
	// TransactionModel is stored under "transactions".
	TransactionModel = schema.MustDefine("FirebaseTransaction", schema.BelongsTo(StockField))
)

// Models returns the portfolio models.
func Models() []*schema.Model {
	return []*schema.Model{StockModel, TransactionModel}
}

type Stock struct{ *model.Record }

func (s Stock) Symbol() string { return s.String("symbol") }

func (s Stock) Price() float64 {
	p, _ := s.Float("price")
	return p
}

func (s Stock) TransactionIDs() []string { return s.RefIDs(TransactionsField) }

type Transaction struct{ *model.Record }

func (t Transaction) Price() float64 {
	p, _ := t.Float("price")
	return p
}

func (t Transaction) Open() bool {
	b, _ := t.Bool("open")
	return b
}

func (t Transaction) StockID() string { return t.Ref(StockField) }

// Book holds the stock and transaction collections of one store.
type Book struct {
	Stocks       *mapper.Collection
	Transactions *mapper.Collection
}

// New binds both models to client.
func New(client store.Client, opts ...mapper.Option) *Book {
	return &Book{
		Stocks:       mapper.New(client, StockModel, opts...),
		Transactions: mapper.New(client, TransactionModel, opts...),
	}
}

func (b *Book) AddStock(ctx context.Context, symbol string, price float64) (Stock, error) {
	rec, err := b.Stocks.Create(ctx, map[string]any{"symbol": symbol, "price": price})
	if err != nil {
		return Stock{}, fmt.Errorf("add stock %s: %w", symbol, err)
	}
	return Stock{rec}, nil
}

func (b *Book) Stock(ctx context.Context, id string) (Stock, error) {
	rec, err := b.Stocks.Find(ctx, id)
	if err != nil {
		return Stock{}, err
	}
	return Stock{rec}, nil
}

// StockBySymbol returns the first stock with symbol, creating it when none
// exists.
func (b *Book) StockBySymbol(ctx context.Context, symbol string) (Stock, error) {
	rec, err := b.Stocks.FindOrCreateBy(ctx, mapper.Eq("symbol", symbol))
	if err != nil {
		return Stock{}, fmt.Errorf("stock %s: %w", symbol, err)
	}
	return Stock{rec}, nil
}

// Trade records a transaction for s and appends it to the stock's
// transactions.
func (b *Book) Trade(ctx context.Context, s Stock, price float64, open bool) (Transaction, error) {
	rec, err := b.Transactions.Create(ctx, map[string]any{
		"price":    price,
		"open":     open,
		StockField: s.ID(),
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("trade %s: %w", s.Symbol(), err)
	}
	if err := b.Stocks.PushHasMany(ctx, s.Record, TransactionsField, rec); err != nil {
		return Transaction{}, fmt.Errorf("trade %s: %w", s.Symbol(), err)
	}
	return Transaction{rec}, nil
}

// SetTransactions replaces the transactions of s.
func (b *Book) SetTransactions(ctx context.Context, s Stock, txs ...model.Ref) error {
	return b.Stocks.SetHasMany(ctx, s.Record, TransactionsField, txs...)
}

// SetStock points t at stock and persists the change.
func (b *Book) SetStock(ctx context.Context, t Transaction, stock model.Ref) error {
	if err := t.SetBelongsTo(StockField, stock); err != nil {
		return err
	}
	v, _ := t.Get(StockField)
	return b.Transactions.Update(ctx, t.Record, map[string]any{StockField: v})
}

// TransactionsOf lists the transactions whose stock is s.
func (b *Book) TransactionsOf(ctx context.Context, s Stock) ([]Transaction, error) {
	recs, err := b.Transactions.FindBy(ctx, mapper.Eq(StockField, s.ID()))
	if err != nil {
		return nil, err
	}
	return wrapTransactions(recs), nil
}

// OpenPositions lists open transactions, optionally limited to one stock.
func (b *Book) OpenPositions(ctx context.Context, stockID string) ([]Transaction, error) {
	filters := []mapper.Filter{mapper.Eq("open", true)}
	if stockID != "" {
		filters = append(filters, mapper.Eq(StockField, stockID))
	}
	recs, err := b.Transactions.FindBy(ctx, filters...)
	if err != nil {
		return nil, err
	}
	return wrapTransactions(recs), nil
}

// Reset deletes every stock and transaction.
func (b *Book) Reset(ctx context.Context) error {
	if err := b.Stocks.DestroyAll(ctx); err != nil {
		return err
	}
	return b.Transactions.DestroyAll(ctx)
}

func wrapTransactions(recs []*model.Record) []Transaction {
	out := make([]Transaction, len(recs))
	for i, r := range recs {
		out[i] = Transaction{r}
	}
	return out
}
