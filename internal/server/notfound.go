package server

import (
	"net/http"

	"github.com/tjfontaine/autoclean-api/internal/envelope"
)

// RouteNotFoundMessage is the failure message for unmatched requests.
const RouteNotFoundMessage = "Route not found"

// RouteDetails identifies the unmatched request.
type RouteDetails struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// NotFoundHandler answers requests that matched no route, including a known
// path requested with an unregistered method.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		envelope.WriteFailure(w, http.StatusNotFound, RouteNotFoundMessage, RouteDetails{
			Path:   r.URL.Path,
			Method: r.Method,
		})
	}
}
