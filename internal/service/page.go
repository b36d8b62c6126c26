package service

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects a 1-based page. Zero values fall back to the first
// page and the configured page size.
type PageRequest struct {
	Page int
	Size int
}

type Page[T any] struct {
	Count    int
	Page     int
	PageSize int
	Results  []T
}

func (p Page[T]) HasNext() bool {
	return p.Page*p.PageSize < p.Count
}

func (p Page[T]) HasPrevious() bool {
	return p.Page > 1
}

func (r PageRequest) normalize(defaultSize int) PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Size <= 0 {
		r.Size = defaultSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	return r
}

func (r PageRequest) offset() int {
	return (r.Page - 1) * r.Size
}

// paginate slices an in-memory result set. Pages past the end are invalid,
// except the first page of an empty set.
func paginate[T any](items []T, req PageRequest) (Page[T], error) {
	start := req.offset()
	if start > 0 && start >= len(items) {
		return Page[T]{}, ErrInvalidPage
	}
	end := min(start+req.Size, len(items))
	out := make([]T, 0, end-start)
	out = append(out, items[start:end]...)
	return Page[T]{Count: len(items), Page: req.Page, PageSize: req.Size, Results: out}, nil
}
