package service

import (
	"context"

	"sales-record-api/internal/model"
	"sales-record-api/internal/repository"
)

// Store is the order service's view of the datastore.
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
	GetOrder(ctx context.Context, id int64) (*model.OrderAggregate, error)
	ListOrders(ctx context.Context, p repository.ListParams) ([]model.OrderAggregate, repository.Page, error)
}

// Tx is the set of row operations available inside one Transact call. All
// mutations made through a Tx commit or roll back together.
type Tx interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)
	ProductByID(ctx context.Context, id int64) (*model.Product, error)
	NextBillNumber(ctx context.Context) (int64, error)
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	UpsertLine(ctx context.Context, line *model.TransactionLine) error
	DeleteLines(ctx context.Context, transactionID int64) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// sqlStore adapts repository.OrderStore to the Store interface; the
// indirection exists so tests can substitute an in-memory store.
type sqlStore struct {
	inner *repository.OrderStore
}

func NewStore(inner *repository.OrderStore) Store {
	return sqlStore{inner: inner}
}

func (s sqlStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	return s.inner.Transact(ctx, func(tx *repository.OrderTx) error {
		return fn(tx)
	})
}

func (s sqlStore) GetOrder(ctx context.Context, id int64) (*model.OrderAggregate, error) {
	return s.inner.GetOrder(ctx, id)
}

func (s sqlStore) ListOrders(ctx context.Context, p repository.ListParams) ([]model.OrderAggregate, repository.Page, error) {
	return s.inner.ListOrders(ctx, p)
}
