// Package servicetest provides an in-memory service.Store for tests. Its
// Transact stages all mutations on a copy and publishes them only on
// success, so tests exercise the same all-or-nothing behavior the SQL store
// gets from database transactions.
package servicetest

import (
	"context"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/model"
	"sales-record-api/internal/repository"
	"sales-record-api/internal/service"
)

type data struct {
	customers  map[int64]model.Customer
	products   map[int64]model.Product
	txns       map[int64]model.Transaction
	lines      map[int64]model.TransactionLine
	nextTxnID  int64
	nextLineID int64
}

func (d *data) clone() *data {
	c := &data{
		customers:  make(map[int64]model.Customer, len(d.customers)),
		products:   make(map[int64]model.Product, len(d.products)),
		txns:       make(map[int64]model.Transaction, len(d.txns)),
		lines:      make(map[int64]model.TransactionLine, len(d.lines)),
		nextTxnID:  d.nextTxnID,
		nextLineID: d.nextLineID,
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.txns {
		c.txns[k] = v
	}
	for k, v := range d.lines {
		c.lines[k] = v
	}
	return c
}

// FakeStore implements service.Store over maps.
type FakeStore struct {
	data *data

	// DuplicateKeyInserts makes the next n InsertTransaction calls fail
	// with a unique-violation error, to exercise the bill-id retry loop.
	DuplicateKeyInserts int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{data: &data{
		customers:  map[int64]model.Customer{},
		products:   map[int64]model.Product{},
		txns:       map[int64]model.Transaction{},
		lines:      map[int64]model.TransactionLine{},
		nextTxnID:  1,
		nextLineID: 1,
	}}
}

func (s *FakeStore) SeedCustomer(c model.Customer) {
	s.data.customers[c.ID] = c
}

func (s *FakeStore) SeedProduct(p model.Product) {
	s.data.products[p.ID] = p
}

// TransactionCount reports committed transaction rows.
func (s *FakeStore) TransactionCount() int {
	return len(s.data.txns)
}

// LinesFor returns the committed lines of one transaction, ordered by id.
func (s *FakeStore) LinesFor(transactionID int64) []model.TransactionLine {
	lines := []model.TransactionLine{}
	for _, l := range s.data.lines {
		if l.TransactionID == transactionID {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines
}

func (s *FakeStore) Transact(ctx context.Context, fn func(tx service.Tx) error) error {
	staged := s.data.clone()
	if err := fn(&fakeTx{data: staged, store: s}); err != nil {
		return err
	}
	s.data = staged
	return nil
}

func (s *FakeStore) GetOrder(ctx context.Context, id int64) (*model.OrderAggregate, error) {
	txn, ok := s.data.txns[id]
	if !ok {
		return nil, apperror.NotFoundf("transaction %d", id)
	}
	return s.aggregate(txn), nil
}

func (s *FakeStore) ListOrders(ctx context.Context, p repository.ListParams) ([]model.OrderAggregate, repository.Page, error) {
	p = p.Normalize()

	matched := []model.Transaction{}
	for _, txn := range s.data.txns {
		if p.Search == "" || strings.Contains(txn.BillID, p.Search) {
			matched = append(matched, txn)
		}
	}

	switch {
	case p.Sort == "bill_id" && strings.EqualFold(p.Direction, "asc"):
		sort.Slice(matched, func(i, j int) bool { return matched[i].BillID < matched[j].BillID })
	case p.Sort == "id" && strings.EqualFold(p.Direction, "asc"):
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	default:
		// creation time descending, newest first
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].ID > matched[j].ID
		})
	}

	total := len(matched)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}

	aggs := []model.OrderAggregate{}
	for _, txn := range matched[start:end] {
		aggs = append(aggs, *s.aggregate(txn))
	}
	return aggs, p.PageOf(total), nil
}

func (s *FakeStore) aggregate(txn model.Transaction) *model.OrderAggregate {
	agg := &model.OrderAggregate{Transaction: txn, Lines: []model.LineItem{}}
	if c, ok := s.data.customers[txn.CustomerID]; ok {
		agg.Customer = model.CustomerSummary{ID: c.ID, IDCustomer: c.IDCustomer, Name: c.Name}
	}
	for _, l := range s.LinesFor(txn.ID) {
		item := model.LineItem{TransactionLine: l}
		if p, ok := s.data.products[l.ProductID]; ok {
			item.Product = model.ProductSummary{
				ID:          p.ID,
				ProductCode: p.ProductCode,
				Name:        p.Name,
				Category:    p.Category,
			}
		}
		agg.Lines = append(agg.Lines, item)
	}
	return agg
}

type fakeTx struct {
	data  *data
	store *FakeStore
}

func (t *fakeTx) CustomerExists(ctx context.Context, id int64) (bool, error) {
	_, ok := t.data.customers[id]
	return ok, nil
}

func (t *fakeTx) ProductByID(ctx context.Context, id int64) (*model.Product, error) {
	p, ok := t.data.products[id]
	if !ok {
		return nil, apperror.NotFoundf("product %d", id)
	}
	return &p, nil
}

func (t *fakeTx) NextBillNumber(ctx context.Context) (int64, error) {
	var max int64
	for id := range t.data.txns {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func (t *fakeTx) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if t.store.DuplicateKeyInserts > 0 {
		t.store.DuplicateKeyInserts--
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	for _, existing := range t.data.txns {
		if existing.BillID == txn.BillID {
			return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
		}
	}
	txn.ID = t.data.nextTxnID
	t.data.nextTxnID++
	t.data.txns[txn.ID] = *txn
	return nil
}

func (t *fakeTx) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	txn, ok := t.data.txns[id]
	if !ok {
		return nil, apperror.NotFoundf("transaction %d", id)
	}
	return &txn, nil
}

func (t *fakeTx) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if _, ok := t.data.txns[txn.ID]; !ok {
		return apperror.NotFoundf("transaction %d", txn.ID)
	}
	t.data.txns[txn.ID] = *txn
	return nil
}

func (t *fakeTx) UpsertLine(ctx context.Context, line *model.TransactionLine) error {
	for id, existing := range t.data.lines {
		if existing.TransactionID == line.TransactionID && existing.ProductID == line.ProductID {
			existing.Quantity = line.Quantity
			t.data.lines[id] = existing
			line.ID = id
			return nil
		}
	}
	line.ID = t.data.nextLineID
	t.data.nextLineID++
	t.data.lines[line.ID] = *line
	return nil
}

func (t *fakeTx) DeleteLines(ctx context.Context, transactionID int64) error {
	for id, l := range t.data.lines {
		if l.TransactionID == transactionID {
			delete(t.data.lines, id)
		}
	}
	return nil
}

func (t *fakeTx) DeleteTransaction(ctx context.Context, id int64) error {
	delete(t.data.txns, id)
	return nil
}
