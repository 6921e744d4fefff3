// Package pagination windows list responses. Lists are plain JSON arrays; the
// unwindowed row count travels in the X-Total-Count header.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	// MaxLimit caps an explicit limit. A limit of 0 means "everything".
	MaxLimit = 500

	TotalCountHeader = "X-Total-Count"
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context. Missing
// or invalid values select the whole list.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Bounds returns the half-open index range of the page within total rows.
func (p Params) Bounds(total int) (start, end int) {
	start = p.Offset
	if start > total {
		start = total
	}
	end = total
	if p.Limit > 0 && start+p.Limit < total {
		end = start + p.Limit
	}
	return start, end
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	_, end := p.Bounds(total)
	return end < total
}

// Window returns the page of items selected by p.
func Window[T any](items []T, p Params) []T {
	start, end := p.Bounds(len(items))
	return items[start:end]
}

// JSON writes the page of items selected by the request's parameters as a
// plain array and sets the total row count header. A nil list is written
// as an empty array.
func JSON[T any](c echo.Context, status int, items []T) error {
	c.Response().Header().Set(TotalCountHeader, strconv.Itoa(len(items)))
	page := Window(items, FromContext(c))
	if page == nil {
		page = []T{}
	}
	return c.JSON(status, page)
}
