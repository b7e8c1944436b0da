package http

import (
	"net/http"
	"strconv"
	"strings"

	"suryasakshi/internal/core"
)

// pathCategory resolves the {category} path segment.
func pathCategory(r *http.Request) (core.Category, bool) {
	c, err := core.ParseCategory(r.PathValue("category"))
	return c, err == nil
}

// pathID parses the {id} path segment as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// searchTerm returns the trimmed q parameter.
func searchTerm(r *http.Request) string {
	return sanitizeInput(r.URL.Query().Get("q"))
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// wantsHTML reports whether the client submitted a plain HTML form rather than
// calling the JSON API.
func wantsHTML(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") &&
		strings.Contains(r.Header.Get("Accept"), "text/html")
}
