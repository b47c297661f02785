package usecase

import (
	"fmt"
	"slices"
)

const MaxPageSize = 100

type PageRequest struct {
	Page     int
	PageSize int
}

type Page[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate slices items for req. A nil req returns every item as a single page.
func Paginate[T any](items []T, req *PageRequest) (Page[T], error) {
	total := len(items)
	if req == nil {
		totalPages := 0
		if total > 0 {
			totalPages = 1
		}
		return Page[T]{
			Items:      slices.Clone(items),
			Total:      total,
			Page:       1,
			PageSize:   total,
			TotalPages: totalPages,
		}, nil
	}

	if req.Page < 1 {
		return Page[T]{}, fmt.Errorf("%w: page must be >= 1", ErrInvalidInput)
	}
	if req.PageSize < 1 || req.PageSize > MaxPageSize {
		return Page[T]{}, fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidInput, MaxPageSize)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	out := Page[T]{
		Items:      []T{},
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}
	// pages past the end stay empty; checked before multiplying so huge pages cannot overflow
	if req.Page <= totalPages {
		offset := (req.Page - 1) * req.PageSize
		end := min(offset+req.PageSize, total)
		out.Items = slices.Clone(items[offset:end])
	}
	return out, nil
}
