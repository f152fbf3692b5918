package pagination

import (
	"fmt"
	"math"
)

type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	NextPage    *int  `json:"next_page"`
	PrevPage    *int  `json:"prev_page"`
}

type PaginatedResponse[T any] struct {
	Items      []T            `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// Normalize fills in defaults for unset values.
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 10
	}
	return p
}

func ValidatePaginationParams(params PaginationParams) error {
	if params.Page < 1 {
		return fmt.Errorf("page must be greater than 0")
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100")
	}
	return nil
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func NewPaginatedResponse[T any](items []T, totalItems int64, params PaginationParams) PaginatedResponse[T] {
	totalPages := int(math.Ceil(float64(totalItems) / float64(params.PageSize)))

	meta := PaginationMeta{
		CurrentPage: params.Page,
		PageSize:    params.PageSize,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
	}
	if params.Page < totalPages {
		next := params.Page + 1
		meta.NextPage = &next
	}
	if params.Page > 1 {
		prev := params.Page - 1
		meta.PrevPage = &prev
	}
	if items == nil {
		items = []T{}
	}
	return PaginatedResponse[T]{Items: items, Pagination: meta}
}
