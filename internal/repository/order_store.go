package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/database"
	"sales-record-api/internal/model"
)

var transactionSortFields = map[string]bool{
	"id":          true,
	"bill_id":     true,
	"date":        true,
	"subtotal":    true,
	"customer_id": true,
	"created_at":  true,
	"updated_at":  true,
}

// OrderStore is the datastore side of the order aggregation service. Writes
// go through Transact so a transaction row and its lines commit as a unit.
type OrderStore struct {
	db  *sqlx.DB
	log *logrus.Entry
}

func NewOrderStore(db *sqlx.DB, log *logrus.Logger) *OrderStore {
	return &OrderStore{db: db, log: log.WithField("component", "order_store")}
}

// Transact runs fn within a single database transaction.
func (s *OrderStore) Transact(ctx context.Context, fn func(tx *OrderTx) error) error {
	return database.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&OrderTx{tx: tx})
	})
}

// GetOrder loads a transaction with its customer summary and expanded lines.
func (s *OrderStore) GetOrder(ctx context.Context, id int64) (*model.OrderAggregate, error) {
	var agg model.OrderAggregate
	query := `SELECT t.id, t.bill_id, t.date, t.subtotal, t.customer_id, t.created_at, t.updated_at,
		c.id AS "customer.id", c.id_customer AS "customer.id_customer", c.name AS "customer.name"
		FROM transactions t JOIN customers c ON c.id = t.customer_id WHERE t.id = ?`
	err := s.db.GetContext(ctx, &agg, s.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundf("transaction %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select transaction")
	}

	lines, err := s.loadLines(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	agg.Lines = lines[id]
	if agg.Lines == nil {
		agg.Lines = []model.LineItem{}
	}
	return &agg, nil
}

// ListOrders returns a page of aggregates filtered by substring on bill_id.
func (s *OrderStore) ListOrders(ctx context.Context, p ListParams) ([]model.OrderAggregate, Page, error) {
	p = p.Normalize()

	where := ""
	args := []interface{}{}
	if p.Search != "" {
		where = " WHERE t.bill_id LIKE ?"
		args = append(args, "%"+p.Search+"%")
	}

	orderBy, err := p.OrderBy(transactionSortFields, "created_at DESC")
	if err != nil {
		return nil, Page{}, err
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind("SELECT COUNT(*) FROM transactions t"+where), args...); err != nil {
		return nil, Page{}, errors.Wrap(err, "count transactions")
	}

	query := `SELECT t.id, t.bill_id, t.date, t.subtotal, t.customer_id, t.created_at, t.updated_at,
		c.id AS "customer.id", c.id_customer AS "customer.id_customer", c.name AS "customer.name"
		FROM transactions t JOIN customers c ON c.id = t.customer_id` +
		where + " ORDER BY t." + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset())

	aggs := []model.OrderAggregate{}
	if err := s.db.SelectContext(ctx, &aggs, s.db.Rebind(query), args...); err != nil {
		return nil, Page{}, errors.Wrap(err, "select transactions")
	}

	if len(aggs) > 0 {
		ids := make([]int64, len(aggs))
		for i := range aggs {
			ids[i] = aggs[i].ID
		}
		lines, err := s.loadLines(ctx, ids)
		if err != nil {
			return nil, Page{}, err
		}
		for i := range aggs {
			aggs[i].Lines = lines[aggs[i].ID]
			if aggs[i].Lines == nil {
				aggs[i].Lines = []model.LineItem{}
			}
		}
	}
	return aggs, p.PageOf(total), nil
}

func (s *OrderStore) loadLines(ctx context.Context, transactionIDs []int64) (map[int64][]model.LineItem, error) {
	query, args, err := sqlx.In(`SELECT l.id, l.transaction_id, l.product_id, l.quantity,
		p.id AS "product.id", p.product_code AS "product.product_code",
		p.name AS "product.name", p.category AS "product.category"
		FROM transaction_lines l JOIN products p ON p.id = l.product_id
		WHERE l.transaction_id IN (?) ORDER BY l.id`, transactionIDs)
	if err != nil {
		return nil, errors.Wrap(err, "build line query")
	}

	items := []model.LineItem{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select transaction lines")
	}

	byTxn := make(map[int64][]model.LineItem, len(transactionIDs))
	for _, item := range items {
		byTxn[item.TransactionID] = append(byTxn[item.TransactionID], item)
	}
	return byTxn, nil
}

// OrderTx exposes the row operations available inside one Transact call.
type OrderTx struct {
	tx *sqlx.Tx
}

func (t *OrderTx) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := t.tx.GetContext(ctx, &n, t.tx.Rebind("SELECT COUNT(*) FROM customers WHERE id = ?"), id); err != nil {
		return false, errors.Wrap(err, "check customer")
	}
	return n > 0, nil
}

func (t *OrderTx) ProductByID(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := t.tx.GetContext(ctx, &p, t.tx.Rebind("SELECT * FROM products WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundf("product %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select product")
	}
	return &p, nil
}

// NextBillNumber computes max(id)+1 over transactions inside this
// transaction. The unique constraint on bill_id backs the caller's retry.
func (t *OrderTx) NextBillNumber(ctx context.Context) (int64, error) {
	return nextBusinessNumber(ctx, t.tx, "transactions")
}

func (t *OrderTx) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	id, err := database.InsertID(ctx, t.tx,
		"INSERT INTO transactions (bill_id, date, subtotal, customer_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		txn.BillID, txn.Date, txn.Subtotal, txn.CustomerID, txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		return err
	}
	txn.ID = id
	return nil
}

func (t *OrderTx) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	var txn model.Transaction
	err := t.tx.GetContext(ctx, &txn, t.tx.Rebind("SELECT * FROM transactions WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundf("transaction %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select transaction")
	}
	return &txn, nil
}

func (t *OrderTx) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	txn.UpdatedAt = time.Now().UTC()
	_, err := t.tx.ExecContext(ctx,
		t.tx.Rebind("UPDATE transactions SET bill_id = ?, date = ?, subtotal = ?, customer_id = ?, updated_at = ? WHERE id = ?"),
		txn.BillID, txn.Date, txn.Subtotal, txn.CustomerID, txn.UpdatedAt, txn.ID)
	return errors.Wrap(err, "update transaction")
}

// UpsertLine inserts a line or overwrites the quantity of an existing
// (transaction, product) pair.
func (t *OrderTx) UpsertLine(ctx context.Context, line *model.TransactionLine) error {
	var existingID int64
	err := t.tx.GetContext(ctx, &existingID,
		t.tx.Rebind("SELECT id FROM transaction_lines WHERE transaction_id = ? AND product_id = ?"),
		line.TransactionID, line.ProductID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, err := database.InsertID(ctx, t.tx,
			"INSERT INTO transaction_lines (transaction_id, product_id, quantity) VALUES (?, ?, ?)",
			line.TransactionID, line.ProductID, line.Quantity)
		if err != nil {
			return errors.Wrap(err, "insert transaction line")
		}
		line.ID = id
		return nil
	case err != nil:
		return errors.Wrap(err, "select transaction line")
	default:
		line.ID = existingID
		_, err = t.tx.ExecContext(ctx,
			t.tx.Rebind("UPDATE transaction_lines SET quantity = ? WHERE id = ?"),
			line.Quantity, existingID)
		return errors.Wrap(err, "update transaction line")
	}
}

func (t *OrderTx) DeleteLines(ctx context.Context, transactionID int64) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind("DELETE FROM transaction_lines WHERE transaction_id = ?"), transactionID)
	return errors.Wrap(err, "delete transaction lines")
}

func (t *OrderTx) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind("DELETE FROM transactions WHERE id = ?"), id)
	return errors.Wrap(err, "delete transaction")
}
