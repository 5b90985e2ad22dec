// Package pagination implements page-number pagination for list endpoints
// and parsing of the comma-separated id filters they accept.
package pagination

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// PageParam is the query parameter holding the 1-based page number.
const PageParam = "page"

// ErrInvalidPage is returned for a page number that is not a positive
// integer or lies past the last page.
var ErrInvalidPage = errors.New("invalid page")

// Links holds the absolute URLs of the neighbouring pages.
type Links struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// Page is the response envelope of a paginated listing.
type Page[T any] struct {
	Links      Links `json:"links"`
	TotalPosts int   `json:"total_posts"`
	TotalPages int   `json:"total_pages"`
	Results    []T   `json:"results"`
}

// Request is a parsed page request.
type Request struct {
	Number int
	Size   int
}

// ParseRequest reads the page number from query. A missing value means
// the first page.
func ParseRequest(query url.Values, size int) (Request, error) {
	req := Request{Number: 1, Size: size}
	raw := query.Get(PageParam)
	if raw == "" {
		return req, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return req, ErrInvalidPage
	}
	// The offset of page n must fit in an int.
	if size > 0 && n > math.MaxInt/size+1 {
		return req, ErrInvalidPage
	}
	req.Number = n
	return req, nil
}

// Offset is the number of rows to skip.
func (r Request) Offset() int {
	return (r.Number - 1) * r.Size
}

// TotalPages returns the page count for total rows. An empty result still
// has one (empty) page.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Build assembles the envelope for one page. base is the absolute URL of
// the current request; its other query parameters are kept in the links.
// It fails with ErrInvalidPage when the page lies past the last one.
func Build[T any](base *url.URL, req Request, total int, results []T) (Page[T], error) {
	pages := TotalPages(total, req.Size)
	if req.Number > pages {
		return Page[T]{}, ErrInvalidPage
	}
	if results == nil {
		results = []T{}
	}

	p := Page[T]{TotalPosts: total, TotalPages: pages, Results: results}
	if req.Number < pages {
		next := withPage(base, req.Number+1)
		p.Links.Next = &next
	}
	if req.Number > 1 {
		prev := withPage(base, req.Number-1)
		p.Links.Previous = &prev
	}
	return p, nil
}

// withPage returns base with the page parameter set to n. The first page
// is linked without a page parameter.
func withPage(base *url.URL, n int) string {
	u := *base
	q := u.Query()
	if n <= 1 {
		q.Del(PageParam)
	} else {
		q.Set(PageParam, strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ParseIDs parses a comma-separated list of positive integer ids. Empty
// items are ignored; an empty input yields nil.
func ParseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id < 1 {
			return nil, errors.New("expected comma-separated integer ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
