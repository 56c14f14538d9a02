package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/model"
	"sales-record-api/internal/repository"
	"sales-record-api/internal/service"
	"sales-record-api/internal/service/servicetest"
)

func newOrderService(t *testing.T) (*service.OrderService, *servicetest.FakeStore) {
	t.Helper()
	store := servicetest.NewFakeStore()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return service.NewOrderService(store, log), store
}

func seedCatalog(store *servicetest.FakeStore) {
	store.SeedCustomer(model.Customer{ID: 1, IDCustomer: "customer_1", Name: "Andi", Active: true})
	store.SeedProduct(model.Product{ID: 1, ProductCode: "product_1", Name: "Keyboard", Category: "electronics", Price: 1000, Active: true})
	store.SeedProduct(model.Product{ID: 2, ProductCode: "product_2", Name: "Monitor", Category: "electronics", Price: 2500, Active: true})
	store.SeedProduct(model.Product{ID: 3, ProductCode: "product_3", Name: "Desk", Category: "furniture", Price: 7000, Active: true})
}

func createInput(lines ...service.LineInput) service.CreateOrderInput {
	return service.CreateOrderInput{
		Date:       model.NewDate(2024, time.January, 1),
		CustomerID: 1,
		Lines:      lines,
	}
}

func TestCreateOrder(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	txn, err := svc.CreateOrder(context.Background(), createInput(
		service.LineInput{ProductID: 1, Quantity: 2},
		service.LineInput{ProductID: 2, Quantity: 1},
	))

	require.NoError(t, err)
	assert.Equal(t, "bill_1", txn.BillID)
	assert.Equal(t, int64(4500), txn.Subtotal, "2*1000 + 1*2500")
	assert.Equal(t, "2024-01-01", txn.Date.String())

	lines := store.LinesFor(txn.ID)
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, int64(1), lines[0].ProductID)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.Equal(t, int64(2), lines[1].ProductID)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	t.Run("empty lines", func(t *testing.T) {
		_, err := svc.CreateOrder(context.Background(), createInput())
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := svc.CreateOrder(context.Background(), createInput(service.LineInput{ProductID: 1, Quantity: 0}))
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("duplicate product", func(t *testing.T) {
		_, err := svc.CreateOrder(context.Background(), createInput(
			service.LineInput{ProductID: 1, Quantity: 1},
			service.LineInput{ProductID: 1, Quantity: 2},
		))
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("unknown customer", func(t *testing.T) {
		in := createInput(service.LineInput{ProductID: 1, Quantity: 1})
		in.CustomerID = 42
		_, err := svc.CreateOrder(context.Background(), in)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("missing date", func(t *testing.T) {
		in := createInput(service.LineInput{ProductID: 1, Quantity: 1})
		in.Date = model.Date{}
		_, err := svc.CreateOrder(context.Background(), in)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("inactive product", func(t *testing.T) {
		store.SeedProduct(model.Product{ID: 9, ProductCode: "product_9", Price: 100, Active: false})
		_, err := svc.CreateOrder(context.Background(), createInput(service.LineInput{ProductID: 9, Quantity: 1}))
		assert.True(t, apperror.IsValidation(err))
	})

	assert.Equal(t, 0, store.TransactionCount(), "no transaction row may survive a failed create")
}

func TestCreateOrderIsAtomic(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	// the second line references a product that does not exist
	_, err := svc.CreateOrder(context.Background(), createInput(
		service.LineInput{ProductID: 1, Quantity: 1},
		service.LineInput{ProductID: 99, Quantity: 1},
	))

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, 0, store.TransactionCount())
	assert.Empty(t, store.LinesFor(1))
}

func TestCreateOrderRetriesBillIDCollision(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)
	store.DuplicateKeyInserts = 1

	txn, err := svc.CreateOrder(context.Background(), createInput(service.LineInput{ProductID: 1, Quantity: 1}))

	require.NoError(t, err)
	assert.Equal(t, "bill_1", txn.BillID)
	assert.Equal(t, 1, store.TransactionCount())
}

func TestUpdateOrderMergesLines(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	txn, err := svc.CreateOrder(context.Background(), createInput(
		service.LineInput{ProductID: 1, Quantity: 2},
		service.LineInput{ProductID: 2, Quantity: 1},
	))
	require.NoError(t, err)

	updated, err := svc.UpdateOrder(context.Background(), txn.ID, service.UpdateOrderInput{
		Lines: []service.LineInput{{ProductID: 1, Quantity: 5}},
	})
	require.NoError(t, err)

	lines := store.LinesFor(txn.ID)
	require.Len(t, lines, 2, "lines absent from the patch stay in place")
	assert.Equal(t, 5, lines[0].Quantity, "patched line quantity overwritten")
	assert.Equal(t, 1, lines[1].Quantity, "untouched line keeps its quantity")
	assert.Equal(t, int64(4500), updated.Subtotal, "subtotal is not recomputed on update")
}

func TestUpdateOrderInsertsNewLine(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	txn, err := svc.CreateOrder(context.Background(), createInput(service.LineInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)

	_, err = svc.UpdateOrder(context.Background(), txn.ID, service.UpdateOrderInput{
		Lines: []service.LineInput{{ProductID: 3, Quantity: 2}},
	})
	require.NoError(t, err)

	lines := store.LinesFor(txn.ID)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(3), lines[1].ProductID)
	assert.Equal(t, 2, lines[1].Quantity)
}

func TestUpdateOrderScalarFields(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)
	store.SeedCustomer(model.Customer{ID: 2, IDCustomer: "customer_2", Name: "Budi", Active: true})

	txn, err := svc.CreateOrder(context.Background(), createInput(service.LineInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)

	newDate := model.NewDate(2024, time.February, 2)
	newSubtotal := int64(9999)
	newCustomer := int64(2)
	updated, err := svc.UpdateOrder(context.Background(), txn.ID, service.UpdateOrderInput{
		Date:       &newDate,
		Subtotal:   &newSubtotal,
		CustomerID: &newCustomer,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-02", updated.Date.String())
	assert.Equal(t, int64(9999), updated.Subtotal, "caller-supplied subtotal is applied verbatim")
	assert.Equal(t, int64(2), updated.CustomerID)
	assert.Equal(t, txn.BillID, updated.BillID)
}

func TestUpdateOrderRejectsBillIDChange(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	txn, err := svc.CreateOrder(context.Background(), createInput(service.LineInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)

	other := "bill_99"
	_, err = svc.UpdateOrder(context.Background(), txn.ID, service.UpdateOrderInput{BillID: &other})
	assert.True(t, apperror.IsValidation(err))

	same := txn.BillID
	_, err = svc.UpdateOrder(context.Background(), txn.ID, service.UpdateOrderInput{BillID: &same})
	assert.NoError(t, err, "resubmitting the current bill_id is a no-op")
}

func TestUpdateOrderFailures(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	txn, err := svc.CreateOrder(context.Background(), createInput(service.LineInput{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)

	t.Run("unknown transaction", func(t *testing.T) {
		_, err := svc.UpdateOrder(context.Background(), 404, service.UpdateOrderInput{})
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("unknown product keeps stored lines intact", func(t *testing.T) {
		_, err := svc.UpdateOrder(context.Background(), txn.ID, service.UpdateOrderInput{
			Lines: []service.LineInput{{ProductID: 99, Quantity: 1}},
		})
		assert.True(t, apperror.IsValidation(err))
		lines := store.LinesFor(txn.ID)
		require.Len(t, lines, 1)
		assert.Equal(t, 2, lines[0].Quantity)
	})

	t.Run("unknown customer", func(t *testing.T) {
		bad := int64(42)
		_, err := svc.UpdateOrder(context.Background(), txn.ID, service.UpdateOrderInput{CustomerID: &bad})
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestDeleteOrder(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	txn, err := svc.CreateOrder(context.Background(), createInput(
		service.LineInput{ProductID: 1, Quantity: 2},
		service.LineInput{ProductID: 2, Quantity: 1},
	))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(context.Background(), txn.ID))

	_, err = svc.GetOrder(context.Background(), txn.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, store.LinesFor(txn.ID), "no line item may survive its transaction")

	err = svc.DeleteOrder(context.Background(), txn.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetOrderAggregate(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	txn, err := svc.CreateOrder(context.Background(), createInput(
		service.LineInput{ProductID: 1, Quantity: 2},
		service.LineInput{ProductID: 2, Quantity: 1},
	))
	require.NoError(t, err)

	agg, err := svc.GetOrder(context.Background(), txn.ID)
	require.NoError(t, err)

	assert.Equal(t, "customer_1", agg.Customer.IDCustomer)
	require.Len(t, agg.Lines, 2)
	assert.Equal(t, "product_1", agg.Lines[0].Product.ProductCode)
	assert.Equal(t, 2, agg.Lines[0].Quantity)
	assert.Equal(t, "product_2", agg.Lines[1].Product.ProductCode)
	assert.Equal(t, 1, agg.Lines[1].Quantity)
}

func TestListOrders(t *testing.T) {
	svc, store := newOrderService(t)
	seedCatalog(store)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateOrder(context.Background(), createInput(service.LineInput{ProductID: 1, Quantity: 1}))
		require.NoError(t, err)
	}

	t.Run("search filters by bill id substring", func(t *testing.T) {
		orders, page, err := svc.ListOrders(context.Background(), repository.ListParams{Search: "bill_2"})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "bill_2", orders[0].BillID)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("default sort is newest first", func(t *testing.T) {
		orders, _, err := svc.ListOrders(context.Background(), repository.ListParams{})
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, "bill_3", orders[0].BillID)
		assert.Equal(t, "bill_1", orders[2].BillID)
	})

	t.Run("pagination", func(t *testing.T) {
		orders, page, err := svc.ListOrders(context.Background(), repository.ListParams{Limit: 2, Page: 2})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, repository.Page{CurrentPage: 2, PerPage: 2, Total: 3, LastPage: 2}, page)
	})
}
