package query

import (
	"net/url"
	"strconv"
)

const DefaultLimit = 40

const (
	SortByVotes = "votes"
	SortByDate  = "date"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Sort describes the store-delegated sort. An empty By selects the
// default ranking order instead.
type Sort struct {
	By    string
	Order string
}

func (s Sort) Ascending() bool {
	return s.Order == OrderAsc
}

// Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Slice returns the [skip, skip+limit) window of n items.
func (p Page) Slice(n int) (start, end int) {
	start = p.Skip()
	if start > n {
		start = n
	}
	end = start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

func ParseSort(values url.Values) Sort {
	s := Sort{Order: OrderDesc}
	if by := values.Get("sortBy"); by == SortByVotes || by == SortByDate {
		s.By = by
	}
	if values.Get("sortOrder") == OrderAsc {
		s.Order = OrderAsc
	}
	return s
}

func ParsePage(values url.Values) Page {
	p := Page{Page: 1, Limit: DefaultLimit}
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(values.Get("limit")); err == nil && n > 0 {
		p.Limit = n
	}
	return p
}
