package server

import "net/http"

// HandlerFunc is an HTTP handler that reports failure by returning an error
// rather than writing an error response itself. The error stage turns the
// returned error into a failure envelope.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Stage is one step of a route's processing chain. A stage either calls next,
// answers the request itself and returns nil, or returns an error.
type Stage func(next HandlerFunc) HandlerFunc

// Chain applies stages around h. The first stage runs first.
func Chain(h HandlerFunc, stages ...Stage) HandlerFunc {
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return h
}
