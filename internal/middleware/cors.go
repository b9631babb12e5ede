// Package middleware provides HTTP middleware for the API server
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// preflightMaxAge is how long browsers may cache a preflight answer.
const preflightMaxAge = time.Hour

// allowedHeaders covers the credentials the API accepts: bearer tokens on
// the management routes and api keys on session creation.
const allowedHeaders = "Content-Type, Authorization, X-API-Key"

var allowedMethods = strings.Join([]string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodOptions,
}, ", ")

// CORSMiddleware handles Cross-Origin Resource Sharing. Entries starting
// with a dot (".example.com") match any subdomain; "*" allows everything.
type CORSMiddleware struct {
	exact    map[string]struct{}
	suffixes []string
	allowAll bool
}

// NewCORSMiddleware creates a new CORS middleware for the given origins.
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	m := &CORSMiddleware{exact: make(map[string]struct{})}
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "*":
			m.allowAll = true
		case strings.HasPrefix(origin, "."):
			m.suffixes = append(m.suffixes, origin)
		case origin != "":
			m.exact[origin] = struct{}{}
		}
	}
	return m
}

// Handler returns the CORS middleware handler.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	maxAge := strconv.Itoa(int(preflightMaxAge.Seconds()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && m.isOriginAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", allowedMethods)
			h.Set("Access-Control-Allow-Headers", allowedHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isOriginAllowed checks an origin against the configured allow list.
func (m *CORSMiddleware) isOriginAllowed(origin string) bool {
	if m.allowAll {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, suffix := range m.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}
