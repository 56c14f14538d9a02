package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"sales-record-api/internal/apperror"
	"sales-record-api/internal/repository"
)

type successBody struct {
	Message    string           `json:"message"`
	Status     string           `json:"status"`
	Data       interface{}      `json:"data,omitempty"`
	Pagination *repository.Page `json:"pagination,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, successBody{Message: message, Status: "Success", Data: data})
}

func writeList(w http.ResponseWriter, message string, data interface{}, page repository.Page) {
	writeJSON(w, http.StatusOK, successBody{Message: message, Status: "Success", Data: data, Pagination: &page})
}

// writeError maps the error taxonomy onto the wire: NotFound is 404 with the
// resource-specific body, validation failures are 400, everything else 500.
func writeError(w http.ResponseWriter, log *logrus.Entry, resource string, err error) {
	switch {
	case apperror.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{
			Error:   resource + " not found",
			Message: "The " + strings.ToLower(resource) + " with the specified ID does not exist.",
		})
	case apperror.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Validation error",
			Message: err.Error(),
		})
	default:
		log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Error",
			Message: err.Error(),
		})
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Validationf("invalid request body: %v", err)
	}
	return nil
}

func listParams(r *http.Request) repository.ListParams {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))
	return repository.ListParams{
		Search:    q.Get("search"),
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
		Limit:     limit,
		Page:      page,
	}
}
