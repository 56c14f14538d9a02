package repository

import (
	"strings"

	"sales-record-api/internal/apperror"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ListParams carries the query knobs shared by every list endpoint:
// substring search, whitelisted sort field + direction, page number and size.
type ListParams struct {
	Search    string
	Sort      string
	Direction string
	Limit     int
	Page      int
}

// Page is the pagination envelope block returned alongside list data.
type Page struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// Normalize clamps limit and page into range.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	return p
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageOf computes the pagination block for a total row count. An empty
// result set still reports one page.
func (p ListParams) PageOf(total int) Page {
	lastPage := (total + p.Limit - 1) / p.Limit
	if lastPage < 1 {
		lastPage = 1
	}
	return Page{
		CurrentPage: p.Page,
		PerPage:     p.Limit,
		Total:       total,
		LastPage:    lastPage,
	}
}

// OrderBy builds an ORDER BY clause from the caller's sort/direction against
// a per-entity whitelist. Sort fields never reach the SQL text unchecked.
// With no sort requested the fallback is creation time descending.
func (p ListParams) OrderBy(allowed map[string]bool, fallback string) (string, error) {
	if p.Sort == "" || p.Direction == "" {
		return fallback, nil
	}
	if !allowed[p.Sort] {
		return "", apperror.Validationf("cannot sort by %q", p.Sort)
	}
	dir := strings.ToLower(p.Direction)
	if dir != "asc" && dir != "desc" {
		return "", apperror.Validationf("sort direction must be asc or desc, got %q", p.Direction)
	}
	return p.Sort + " " + strings.ToUpper(dir), nil
}
