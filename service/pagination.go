package service

import (
	"context"
	"sort"
)

// DefaultPerPage is used when a PageRequest does not set PerPage.
const DefaultPerPage = 10

// PageRequest describes one page of a Find.
type PageRequest[T any] struct {
	Page     int
	PerPage  int
	Criteria Criteria
	// Less orders the matches before slicing. Nil keeps backend order.
	Less func(a, b T) bool
	// Desc reverses the order.
	Desc bool
	// ErrorOut makes Paginate fail with ErrPageOutOfRange instead of
	// returning an empty page.
	ErrorOut bool
}

// Pagination is one page of results plus the numbers needed to render
// page navigation.
type Pagination[T any] struct {
	Page    int
	PerPage int
	Total   int
	Items   []T
}

// Paginate loads the entities matching req.Criteria through s, orders them
// and slices out the requested page. Pages are 1-based. Items never alias
// the slice returned by s.
func Paginate[K comparable, T any](ctx context.Context, s Service[K, T], req PageRequest[T]) (*Pagination[T], error) {
	if req.PerPage <= 0 {
		req.PerPage = DefaultPerPage
	}
	if req.Page < 1 {
		if req.ErrorOut {
			return nil, ErrPageOutOfRange
		}
		req.Page = 1
	}

	records, err := s.Find(ctx, req.Criteria)
	if err != nil {
		return nil, err
	}

	records = ordered(records, req.Less, req.Desc)

	total := len(records)
	start := (req.Page - 1) * req.PerPage
	if start > total {
		start = total
	}
	end := start + req.PerPage
	if end > total {
		end = total
	}

	items := make([]T, end-start)
	copy(items, records[start:end])
	if len(items) == 0 && req.Page != 1 && req.ErrorOut {
		return nil, ErrPageOutOfRange
	}

	return &Pagination[T]{
		Page:    req.Page,
		PerPage: req.PerPage,
		Total:   total,
		Items:   items,
	}, nil
}

// ordered returns a sorted copy of records, or records itself when no
// ordering is requested.
func ordered[T any](records []T, less func(a, b T) bool, desc bool) []T {
	if less == nil && !desc {
		return records
	}
	out := make([]T, len(records))
	copy(out, records)
	switch {
	case less == nil:
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	case desc:
		sort.SliceStable(out, func(i, j int) bool { return less(out[j], out[i]) })
	default:
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

// Pages returns the total number of pages.
func (p *Pagination[T]) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p *Pagination[T]) HasPrev() bool {
	return p.Page > 1
}

func (p *Pagination[T]) HasNext() bool {
	return p.Page < p.Pages()
}

func (p *Pagination[T]) PrevNum() int {
	return p.Page - 1
}

func (p *Pagination[T]) NextNum() int {
	return p.Page + 1
}

// IterPages returns the page numbers worth showing in a pager. Edges keep
// leftEdge and rightEdge pages, the current page keeps leftCurrent pages
// before it and rightCurrent-1 after it. A 0 marks a gap.
func (p *Pagination[T]) IterPages(leftEdge, leftCurrent, rightCurrent, rightEdge int) []int {
	pages := p.Pages()
	var out []int
	last := 0
	for num := 1; num <= pages; num++ {
		if num <= leftEdge ||
			(num > p.Page-leftCurrent-1 && num < p.Page+rightCurrent) ||
			num > pages-rightEdge {
			if last+1 != num {
				out = append(out, 0)
			}
			out = append(out, num)
			last = num
		}
	}
	return out
}
