package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-record-api/internal/handler"
	"sales-record-api/internal/model"
	"sales-record-api/internal/service"
	"sales-record-api/internal/service/servicetest"
)

func newTransactionRouter(t *testing.T) (http.Handler, *servicetest.FakeStore) {
	t.Helper()
	store := servicetest.NewFakeStore()
	store.SeedCustomer(model.Customer{ID: 1, IDCustomer: "customer_1", Name: "Andi", Active: true})
	store.SeedProduct(model.Product{ID: 1, ProductCode: "product_1", Name: "Keyboard", Category: "electronics", Price: 1000, Active: true})
	store.SeedProduct(model.Product{ID: 2, ProductCode: "product_2", Name: "Monitor", Category: "electronics", Price: 2500, Active: true})

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	h := handler.NewTransactionHandler(service.NewOrderService(store, log), log)

	r := mux.NewRouter()
	r.HandleFunc("/transaction", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/transaction", h.Store).Methods(http.MethodPost)
	r.HandleFunc("/transaction/{id}", h.Show).Methods(http.MethodGet)
	r.HandleFunc("/transaction/{id}", h.Update).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/transaction/{id}", h.Destroy).Methods(http.MethodDelete)
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const createBody = `{"date":"2024-01-01","customer_id":1,"products":[{"product_id":1,"quantity":2},{"product_id":2,"quantity":1}]}`

func TestStoreTransaction(t *testing.T) {
	r, _ := newTransactionRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/transaction", createBody)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Transaction successfully created", body["message"])
	assert.Equal(t, "Success", body["status"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "bill_1", data["bill_id"])
	assert.Equal(t, float64(4500), data["subtotal"])
	assert.Equal(t, "2024-01-01", data["date"])
}

func TestStoreTransactionValidation(t *testing.T) {
	r, store := newTransactionRouter(t)

	cases := map[string]string{
		"unknown product":  `{"date":"2024-01-01","customer_id":1,"products":[{"product_id":99,"quantity":1}]}`,
		"unknown customer": `{"date":"2024-01-01","customer_id":77,"products":[{"product_id":1,"quantity":1}]}`,
		"no products":      `{"date":"2024-01-01","customer_id":1,"products":[]}`,
		"bad quantity":     `{"date":"2024-01-01","customer_id":1,"products":[{"product_id":1,"quantity":0}]}`,
		"bad date":         `{"date":"January 1","customer_id":1,"products":[{"product_id":1,"quantity":1}]}`,
		"missing date":     `{"customer_id":1,"products":[{"product_id":1,"quantity":1}]}`,
		"malformed json":   `{"date":`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/transaction", payload)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Validation error", decode(t, rec)["error"])
		})
	}
	assert.Equal(t, 0, store.TransactionCount())
}

func TestShowTransaction(t *testing.T) {
	r, _ := newTransactionRouter(t)
	doJSON(t, r, http.MethodPost, "/transaction", createBody)

	rec := doJSON(t, r, http.MethodGet, "/transaction/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode(t, rec)["data"].(map[string]interface{})
	customer := data["customer"].(map[string]interface{})
	assert.Equal(t, "customer_1", customer["id_customer"])
	lines := data["lines"].([]interface{})
	require.Len(t, lines, 2)
	first := lines[0].(map[string]interface{})
	assert.Equal(t, float64(2), first["quantity"])
	assert.Equal(t, "product_1", first["product"].(map[string]interface{})["product_code"])
}

func TestShowTransactionNotFound(t *testing.T) {
	r, _ := newTransactionRouter(t)

	for _, target := range []string{"/transaction/999", "/transaction/abc"} {
		rec := doJSON(t, r, http.MethodGet, target, "")
		require.Equal(t, http.StatusNotFound, rec.Code, target)
		body := decode(t, rec)
		assert.Equal(t, "Transaction not found", body["error"])
		assert.Equal(t, "The transaction with the specified ID does not exist.", body["message"])
	}
}

func TestUpdateTransaction(t *testing.T) {
	r, store := newTransactionRouter(t)
	doJSON(t, r, http.MethodPost, "/transaction", createBody)

	rec := doJSON(t, r, http.MethodPut, "/transaction/1", `{"products":[{"product_id":1,"quantity":9}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(4500), data["subtotal"], "subtotal untouched without explicit value")

	lines := store.LinesFor(1)
	require.Len(t, lines, 2)
	assert.Equal(t, 9, lines[0].Quantity)
	assert.Equal(t, 1, lines[1].Quantity)
}

func TestUpdateTransactionRejectsBillIDChange(t *testing.T) {
	r, _ := newTransactionRouter(t)
	doJSON(t, r, http.MethodPost, "/transaction", createBody)

	rec := doJSON(t, r, http.MethodPatch, "/transaction/1", `{"bill_id":"bill_42"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation error", decode(t, rec)["error"])
}

func TestDestroyTransaction(t *testing.T) {
	r, store := newTransactionRouter(t)
	doJSON(t, r, http.MethodPost, "/transaction", createBody)

	rec := doJSON(t, r, http.MethodDelete, "/transaction/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Transaction successfully deleted", decode(t, rec)["message"])
	assert.Equal(t, 0, store.TransactionCount())
	assert.Empty(t, store.LinesFor(1))

	rec = doJSON(t, r, http.MethodGet, "/transaction/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexTransactions(t *testing.T) {
	r, _ := newTransactionRouter(t)
	for i := 0; i < 3; i++ {
		doJSON(t, r, http.MethodPost, "/transaction", createBody)
	}

	rec := doJSON(t, r, http.MethodGet, "/transaction?limit=2&page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Successfully fetched transaction data", body["message"])

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["current_page"])
	assert.Equal(t, float64(2), pagination["per_page"])
	assert.Equal(t, float64(3), pagination["total"])
	assert.Equal(t, float64(2), pagination["last_page"])

	data := body["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "bill_3", data[0].(map[string]interface{})["bill_id"], "newest first by default")

	rec = doJSON(t, r, http.MethodGet, "/transaction?search=bill_2", "")
	body = decode(t, rec)
	data = body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "bill_2", data[0].(map[string]interface{})["bill_id"])
}
