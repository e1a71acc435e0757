package ssrdoc

import (
	"context"
	"net/http"
)

// State is the per-request bag shared between middleware and the
// dispatcher. Middleware installed after the state middleware may add
// InitialData entries; the dispatcher passes them to the render engine and
// into the hydration script.
type State struct {
	InitialData map[string]any
}

type stateKey struct{}

// StateFrom returns the request's state bag, or nil outside an App.
func StateFrom(ctx context.Context) *State {
	s, _ := ctx.Value(stateKey{}).(*State)
	return s
}

// withState attaches an empty state bag to every request.
func withState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &State{InitialData: make(map[string]any)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey{}, st)))
	})
}

// initialData copies the state bag so enrichment never mutates it.
func initialData(ctx context.Context) map[string]any {
	data := make(map[string]any)
	if st := StateFrom(ctx); st != nil {
		for k, v := range st.InitialData {
			data[k] = v
		}
	}
	return data
}
