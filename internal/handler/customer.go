package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/repository"
)

type CustomerHandler struct {
	repo *repository.CustomerRepository
	log  *logrus.Entry
}

func NewCustomerHandler(repo *repository.CustomerRepository, log *logrus.Logger) *CustomerHandler {
	return &CustomerHandler{repo: repo, log: log.WithField("component", "customer_handler")}
}

func (h *CustomerHandler) Index(w http.ResponseWriter, r *http.Request) {
	customers, page, err := h.repo.List(r.Context(), listParams(r))
	if err != nil {
		writeError(w, h.log, "Customer", err)
		return
	}
	writeList(w, "Successfully fetched customer data", customers, page)
}

func (h *CustomerHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Gender  string `json:"gender"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, "Customer", err)
		return
	}
	if req.Name == "" || req.Address == "" || req.Gender == "" {
		writeError(w, h.log, "Customer", apperror.Validationf("name, address and gender are required"))
		return
	}

	customer, err := h.repo.Create(r.Context(), req.Name, req.Address, req.Gender)
	if err != nil {
		writeError(w, h.log, "Customer", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Customer successfully created", customer)
}

func (h *CustomerHandler) Show(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["id_customer"]
	customer, err := h.repo.GetByCode(r.Context(), code)
	if err != nil {
		writeError(w, h.log, "Customer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Customer successfully found", customer)
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["id_customer"]

	var req struct {
		Name    *string `json:"name"`
		Address *string `json:"address"`
		Gender  *string `json:"gender"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, "Customer", err)
		return
	}
	if req.Gender != nil && *req.Gender != "pria" && *req.Gender != "wanita" {
		writeError(w, h.log, "Customer", apperror.Validationf("gender must be pria or wanita"))
		return
	}

	customer, err := h.repo.Update(r.Context(), code, repository.CustomerPatch{
		Name:    req.Name,
		Address: req.Address,
		Gender:  req.Gender,
	})
	if err != nil {
		writeError(w, h.log, "Customer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Customer successfully updated", customer)
}

func (h *CustomerHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["id_customer"]
	if err := h.repo.Delete(r.Context(), code); err != nil {
		writeError(w, h.log, "Customer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Customer deleted successfully", nil)
}

// SimpleList serves the unpaginated picker list: id, business id and name.
func (h *CustomerHandler) SimpleList(w http.ResponseWriter, r *http.Request) {
	customers, err := h.repo.SimpleList(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.log, "Customer", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Successfully fetched simplified customer data", customers)
}
