package models

// PaginatedItems is one (pageIndex, pageSize)-addressed window over an
// ordered collection. PageSize is the count actually returned on this page,
// not the requested window size: it shrinks on the final page and drops to
// zero past the end. NextPage is filled in by the HTTP layer, which owns
// link construction; the repository leaves it empty.
type PaginatedItems[T any] struct {
	PageIndex  int    `json:"pageIndex"`
	PageSize   int    `json:"pageSize"`
	TotalItems int64  `json:"totalItems"`
	Items      []T    `json:"items"`
	NextPage   string `json:"nextPage,omitempty"`

	requested int
}

// NewPage builds a page window, deriving the reported PageSize as
// min(requestedSize, totalItems - pageIndex*requestedSize) clamped at zero.
func NewPage[T any](pageIndex, requestedSize int, totalItems int64, items []T) *PaginatedItems[T] {
	actual := requestedSize
	if remaining := int(totalItems) - pageIndex*requestedSize; remaining < actual {
		actual = remaining
	}
	if actual < 0 {
		actual = 0
	}
	return &PaginatedItems[T]{
		PageIndex:  pageIndex,
		PageSize:   actual,
		TotalItems: totalItems,
		Items:      items,
		requested:  requestedSize,
	}
}

// LastPage reports whether no further pages exist, i.e. whether the
// collection is exhausted at the end of this window.
func (p *PaginatedItems[T]) LastPage() bool {
	return p.TotalItems <= int64(p.PageIndex*p.requested+p.PageSize)
}
