package middleware

import "net/http"

// NoCache marks every response as revalidate-before-use. Rendered
// documents embed per-request data and must not be served from a cache.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}
