package common

import (
	"net/http"
	"strconv"
)

// ParsePagination reads ?page= and ?limit= from the request, falling back to
// the defaults and clamping the page size to maxPerPage.
func ParsePagination(r *http.Request, defaultPerPage, maxPerPage int) (page, perPage int) {
	page = positiveQueryInt(r, "page", 1)
	perPage = positiveQueryInt(r, "limit", defaultPerPage)
	if maxPerPage > 0 && perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func positiveQueryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
