package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPaginationParams(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, 10},
		{"explicit", "?page=3&limit=25", 3, 25},
		{"limit capped", "?limit=500", 1, 100},
		{"invalid ignored", "?page=-2&limit=zero", 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/videos"+tt.query, nil)
			params := ExtractPaginationParams(r)
			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, PaginationParams{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 40, PaginationParams{Page: 5, Limit: 10}.Offset())
}

func TestBuildPaginationMeta(t *testing.T) {
	meta := BuildPaginationMeta(2, 10, 35)
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 4, meta.TotalPages)
	assert.Equal(t, 35, meta.Total)
	assert.True(t, meta.HasMore)

	last := BuildPaginationMeta(4, 10, 35)
	assert.False(t, last.HasMore)
}
