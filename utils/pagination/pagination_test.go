package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginatedResponse(t *testing.T) {
	params := PaginationParams{Page: 2, PageSize: 10}
	resp := NewPaginatedResponse([]int{11, 12}, 25, params)

	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.Equal(t, 3, *resp.Pagination.NextPage)
	assert.Equal(t, 1, *resp.Pagination.PrevPage)
	assert.Equal(t, 10, params.Offset())
}

func TestPaginationBounds(t *testing.T) {
	resp := NewPaginatedResponse[string](nil, 0, PaginationParams{}.Normalize())
	assert.NotNil(t, resp.Items)
	assert.Nil(t, resp.Pagination.NextPage)
	assert.Nil(t, resp.Pagination.PrevPage)

	assert.NoError(t, ValidatePaginationParams(PaginationParams{Page: 1, PageSize: 100}))
	assert.Error(t, ValidatePaginationParams(PaginationParams{Page: 0, PageSize: 10}))
	assert.Error(t, ValidatePaginationParams(PaginationParams{Page: 1, PageSize: 101}))
}
