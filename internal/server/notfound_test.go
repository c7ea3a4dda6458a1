package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/autoclean-api/internal/config"
	"github.com/tjfontaine/autoclean-api/internal/testutil"
)

func TestNotFoundHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFoundHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope?x=1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := testutil.DecodeEnvelope(t, rec.Body)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, RouteNotFoundMessage, env.Error.Message)
	assert.Equal(t, map[string]any{"path": "/nope", "method": "GET"}, env.Error.Details)
	assert.NotEmpty(t, env.Timestamp)
}

func TestServer_UnmatchedRoutesAndMethods(t *testing.T) {
	srv := New(config.ServerConfig{}, testutil.QuietLogger(), WithExternalRoutes(func(rt *Routes) {
		rt.Get("/jobs", Handle(func(ctx context.Context, req *Request) (*Result, error) {
			return OK([]string{}), nil
		}))
	}))

	tests := []struct {
		method, path string
	}{
		{http.MethodGet, "/missing"},
		{http.MethodGet, "/api/v1/missing"},
		{http.MethodDelete, "/api/v1/jobs"},
		{http.MethodGet, "/api/v2/jobs"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusNotFound, rec.Code)
			env := testutil.DecodeEnvelope(t, rec.Body)
			assert.Equal(t, RouteNotFoundMessage, env.Error.Message)
			assert.Equal(t, tt.path, env.Error.Details["path"])
			assert.Equal(t, tt.method, env.Error.Details["method"])
		})
	}
}
