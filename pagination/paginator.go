// Package pagination slices ordered collections into fixed-size, 1-based
// pages. Out-of-range page numbers are clamped instead of failing.
package pagination

import (
	"strconv"
	"strings"
)

const DefaultPageSize = 10

// Request is the page a caller asked for. Zero values mean "first page" and
// DefaultPageSize.
type Request struct {
	Number int
	Size   int
}

// NewRequest parses a raw "page" query value.
func NewRequest(raw string, size int) Request {
	return Request{Number: ParseNumber(raw), Size: size}
}

// ParseNumber returns 1 for absent or non-integer input.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

// Window is a resolved page: which rows to fetch and how the page relates
// to the rest of the collection.
type Window struct {
	Number   int
	NumPages int
	Size     int
	Count    int64
	Offset   int
	Limit    int
}

// Resolve clamps the requested page into [1, NumPages]. An empty collection
// still has a single (empty) page.
func Resolve(count int64, req Request) Window {
	size := req.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if count < 0 {
		count = 0
	}

	numPages := int((count + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}

	number := req.Number
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	offset := (number - 1) * size
	limit := size
	if remaining := count - int64(offset); remaining < int64(limit) {
		limit = int(max(remaining, 0))
	}

	return Window{
		Number:   number,
		NumPages: numPages,
		Size:     size,
		Count:    count,
		Offset:   offset,
		Limit:    limit,
	}
}

type Page[T any] struct {
	Items              []T   `json:"items"`
	Number             int   `json:"number"`
	NumPages           int   `json:"num_pages"`
	Count              int64 `json:"count"`
	PageSize           int   `json:"page_size"`
	HasNext            bool  `json:"has_next"`
	HasPrevious        bool  `json:"has_previous"`
	NextPageNumber     int   `json:"next_page_number,omitempty"`
	PreviousPageNumber int   `json:"previous_page_number,omitempty"`
	// StartIndex is the 1-based position of the first item, 0 on an empty page.
	StartIndex int `json:"start_index"`
}

// NewPage wraps already fetched items of window w.
func NewPage[T any](items []T, w Window) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{
		Items:       items,
		Number:      w.Number,
		NumPages:    w.NumPages,
		Count:       w.Count,
		PageSize:    w.Size,
		HasNext:     w.Number < w.NumPages,
		HasPrevious: w.Number > 1,
	}
	if p.HasNext {
		p.NextPageNumber = w.Number + 1
	}
	if p.HasPrevious {
		p.PreviousPageNumber = w.Number - 1
	}
	if len(items) > 0 {
		p.StartIndex = w.Offset + 1
	}
	return p
}

// Paginate returns the requested page of an in-memory ordered slice.
func Paginate[T any](items []T, req Request) Page[T] {
	w := Resolve(int64(len(items)), req)
	window := make([]T, w.Limit)
	copy(window, items[w.Offset:w.Offset+w.Limit])
	return NewPage(window, w)
}
