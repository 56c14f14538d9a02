package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"sales-record-api/internal/handler"
)

type Handlers struct {
	Customers    *handler.CustomerHandler
	Products     *handler.ProductHandler
	Transactions *handler.TransactionHandler
	Health       *handler.HealthHandler
	Metrics      *handler.Metrics
}

// New wires the route table. The resource routes mirror the API contract:
// index/store on the collection, show/update/destroy on the single resource.
func New(log *logrus.Logger, h Handlers) http.Handler {
	r := mux.NewRouter()
	r.Use(handler.RequestID, handler.Logging(log), h.Metrics.Middleware)

	r.HandleFunc("/customer", h.Customers.Index).Methods(http.MethodGet)
	r.HandleFunc("/customer", h.Customers.Store).Methods(http.MethodPost)
	r.HandleFunc("/customer-list", h.Customers.SimpleList).Methods(http.MethodGet)
	r.HandleFunc("/customer/{id_customer}", h.Customers.Show).Methods(http.MethodGet)
	r.HandleFunc("/customer/{id_customer}", h.Customers.Update).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/customer/{id_customer}", h.Customers.Destroy).Methods(http.MethodDelete)

	r.HandleFunc("/product", h.Products.Index).Methods(http.MethodGet)
	r.HandleFunc("/product", h.Products.Store).Methods(http.MethodPost)
	r.HandleFunc("/product/{product_code}", h.Products.Show).Methods(http.MethodGet)
	r.HandleFunc("/product/{product_code}", h.Products.Update).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/product/{product_code}", h.Products.Destroy).Methods(http.MethodDelete)

	r.HandleFunc("/transaction", h.Transactions.Index).Methods(http.MethodGet)
	r.HandleFunc("/transaction", h.Transactions.Store).Methods(http.MethodPost)
	r.HandleFunc("/transaction/{id}", h.Transactions.Show).Methods(http.MethodGet)
	r.HandleFunc("/transaction/{id}", h.Transactions.Update).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/transaction/{id}", h.Transactions.Destroy).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", h.Health.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.Metrics.Stats).Methods(http.MethodGet)

	return r
}
