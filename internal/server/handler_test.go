package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/autoclean-api/internal/domain"
	"github.com/tjfontaine/autoclean-api/internal/testutil"
)

func newTestRoutes() (*chi.Mux, *Routes) {
	mux := chi.NewRouter()
	mux.NotFound(NotFoundHandler())
	return mux, NewRoutes(mux, NewErrorHandler(testutil.QuietLogger()))
}

func TestHandle_WritesSuccessEnvelope(t *testing.T) {
	mux, rt := newTestRoutes()
	rt.Post("/jobs/{id}/notes", Handle(func(ctx context.Context, req *Request) (*Result, error) {
		return Created(map[string]string{"job": req.Param("id"), "method": req.Method}), nil
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/42/notes", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := testutil.DecodeEnvelope(t, rec.Body)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"job":"42","method":"POST"}`, string(env.Data))
	assert.NotEmpty(t, env.Metadata["timestamp"])
	assert.Nil(t, env.Error)
}

func TestHandle_NilResultIsEmptyOK(t *testing.T) {
	mux, rt := newTestRoutes()
	rt.Get("/ping", Handle(func(ctx context.Context, req *Request) (*Result, error) {
		return nil, nil
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `null`, string(testutil.DecodeEnvelope(t, rec.Body).Data))
}

func TestHandle_PageMetadata(t *testing.T) {
	mux, rt := newTestRoutes()
	rt.Get("/jobs", Handle(func(ctx context.Context, req *Request) (*Result, error) {
		return Page([]int{1, 2}, 2, 2, 5), nil
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	env := testutil.DecodeEnvelope(t, rec.Body)
	assert.Equal(t, float64(2), env.Metadata["page"])
	assert.Equal(t, float64(2), env.Metadata["pageSize"])
	assert.Equal(t, float64(5), env.Metadata["total"])
}

func TestHandle_ErrorGoesToErrorStage(t *testing.T) {
	mux, rt := newTestRoutes()
	rt.Put("/jobs/{id}", Handle(func(ctx context.Context, req *Request) (*Result, error) {
		return nil, domain.ErrConflict("Job already scheduled")
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/jobs/1", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := testutil.DecodeEnvelope(t, rec.Body)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Job already scheduled", env.Error.Message)
}

func TestRoutes_StagesRunInOrder(t *testing.T) {
	var order []string
	mark := func(name string) Stage {
		return func(next HandlerFunc) HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return next(w, r)
			}
		}
	}

	mux, rt := newTestRoutes()
	rt.With(mark("group"), nil).Group("/v", func(g *Routes) {
		g.Delete("/x", func(w http.ResponseWriter, r *http.Request) error {
			order = append(order, "handler")
			w.WriteHeader(http.StatusNoContent)
			return nil
		}, mark("route"))
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v/x", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"group", "route", "handler"}, order)
}

func TestRoutes_PatchStageShortCircuit(t *testing.T) {
	mux, rt := newTestRoutes()
	deny := func(next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			return domain.ErrInvalidRequest("Denied")
		}
	}
	called := false
	rt.Patch("/x", func(w http.ResponseWriter, r *http.Request) error {
		called = true
		return nil
	}, deny)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/x", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
