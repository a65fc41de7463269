package common

import (
	"net/http"
	"strconv"
)

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// DefaultPaginationParams returns default pagination parameters
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Page:  1,
		Limit: 10,
	}
}

// ExtractPaginationParams extracts pagination parameters from request
func ExtractPaginationParams(r *http.Request) PaginationParams {
	params := DefaultPaginationParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 100 {
				l = 100 // Max page size
			}
			params.Limit = l
		}
	}

	return params
}

// Offset calculates the offset for store queries
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// BuildPaginationMeta builds pagination metadata
func BuildPaginationMeta(page, limit, total int) *PaginationInfo {
	totalPages := 0
	if limit > 0 {
		totalPages = total / limit
		if total%limit > 0 {
			totalPages++
		}
	}
	return &PaginationInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		HasMore:     page*limit < total,
	}
}
