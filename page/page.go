// Package page provides the pagination container shared by list operations.
package page

// Page wraps one page of results together with paging metadata.
type Page[T any] struct {
	Items   []T `json:"items"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Total   int `json:"total"`
}

// New builds a Page, normalizing a nil items slice to an empty one so JSON
// encodes [] rather than null.
func New[T any](items []T, pageNum, perPage, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: pageNum, PerPage: perPage, Total: total}
}
