package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/repository"
)

type ProductHandler struct {
	repo *repository.ProductRepository
	log  *logrus.Entry
}

func NewProductHandler(repo *repository.ProductRepository, log *logrus.Logger) *ProductHandler {
	return &ProductHandler{repo: repo, log: log.WithField("component", "product_handler")}
}

func (h *ProductHandler) Index(w http.ResponseWriter, r *http.Request) {
	products, page, err := h.repo.List(r.Context(), listParams(r))
	if err != nil {
		writeError(w, h.log, "Product", err)
		return
	}
	writeList(w, "Successfully fetched product data", products, page)
}

func (h *ProductHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Price    *int64 `json:"price"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, "Product", err)
		return
	}
	if req.Name == "" || req.Category == "" || req.Price == nil {
		writeError(w, h.log, "Product", apperror.Validationf("name, category and price are required"))
		return
	}
	if *req.Price < 0 {
		writeError(w, h.log, "Product", apperror.Validationf("price cannot be negative"))
		return
	}

	product, err := h.repo.Create(r.Context(), req.Name, req.Category, *req.Price)
	if err != nil {
		writeError(w, h.log, "Product", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Product successfully created", product)
}

func (h *ProductHandler) Show(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["product_code"]
	product, err := h.repo.GetByCode(r.Context(), code)
	if err != nil {
		writeError(w, h.log, "Product", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Product fetched successfully", product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["product_code"]

	var req struct {
		Name     *string `json:"name"`
		Category *string `json:"category"`
		Price    *int64  `json:"price"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, "Product", err)
		return
	}
	if req.Price != nil && *req.Price < 0 {
		writeError(w, h.log, "Product", apperror.Validationf("price cannot be negative"))
		return
	}

	product, err := h.repo.Update(r.Context(), code, repository.ProductPatch{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
	})
	if err != nil {
		writeError(w, h.log, "Product", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Product successfully updated", product)
}

func (h *ProductHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["product_code"]
	if err := h.repo.Delete(r.Context(), code); err != nil {
		writeError(w, h.log, "Product", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Product successfully deleted", nil)
}
