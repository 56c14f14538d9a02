package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/model"
	"sales-record-api/internal/service"
)

type lineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type TransactionHandler struct {
	svc *service.OrderService
	log *logrus.Entry
}

func NewTransactionHandler(svc *service.OrderService, log *logrus.Logger) *TransactionHandler {
	return &TransactionHandler{svc: svc, log: log.WithField("component", "transaction_handler")}
}

func (h *TransactionHandler) Index(w http.ResponseWriter, r *http.Request) {
	orders, page, err := h.svc.ListOrders(r.Context(), listParams(r))
	if err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}
	writeList(w, "Successfully fetched transaction data", orders, page)
}

func (h *TransactionHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date       string        `json:"date"`
		CustomerID int64         `json:"customer_id"`
		Products   []lineRequest `json:"products"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}
	if req.Date == "" {
		writeError(w, h.log, "Transaction", apperror.Validationf("date is required"))
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeError(w, h.log, "Transaction", apperror.Validationf("date must be formatted YYYY-MM-DD"))
		return
	}
	if req.CustomerID <= 0 {
		writeError(w, h.log, "Transaction", apperror.Validationf("customer_id is required"))
		return
	}

	txn, err := h.svc.CreateOrder(r.Context(), service.CreateOrderInput{
		Date:       date,
		CustomerID: req.CustomerID,
		Lines:      toLineInputs(req.Products),
	})
	if err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Transaction successfully created", txn)
}

func (h *TransactionHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}
	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Successfully fetched transaction", order)
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}

	var req struct {
		BillID     *string        `json:"bill_id"`
		Date       *string        `json:"date"`
		Subtotal   *int64         `json:"subtotal"`
		CustomerID *int64         `json:"customer_id"`
		Products   *[]lineRequest `json:"products"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}

	in := service.UpdateOrderInput{
		BillID:     req.BillID,
		Subtotal:   req.Subtotal,
		CustomerID: req.CustomerID,
	}
	if req.Date != nil {
		date, err := model.ParseDate(*req.Date)
		if err != nil {
			writeError(w, h.log, "Transaction", apperror.Validationf("date must be formatted YYYY-MM-DD"))
			return
		}
		in.Date = &date
	}
	if req.Products != nil {
		in.Lines = toLineInputs(*req.Products)
	}

	txn, err := h.svc.UpdateOrder(r.Context(), id, in)
	if err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transaction successfully updated", txn)
}

func (h *TransactionHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}
	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, h.log, "Transaction", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Transaction successfully deleted", nil)
}

// transactionID parses the numeric path id; a non-numeric id can never
// resolve, so it reports NotFound rather than a validation failure.
func transactionID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFoundf("transaction %q", raw)
	}
	return id, nil
}

func toLineInputs(lines []lineRequest) []service.LineInput {
	inputs := make([]service.LineInput, len(lines))
	for i, line := range lines {
		inputs[i] = service.LineInput{ProductID: line.ProductID, Quantity: line.Quantity}
	}
	return inputs
}
