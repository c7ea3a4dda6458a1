package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/autoclean-api/internal/envelope"
)

// Request is the view of an HTTP request given to a Func.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Params map[string]string
	// Body and Query are the values produced by Validate and ValidateQuery.
	Body  any
	Query any
}

// Param returns a URL parameter by name.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// Result is what a Func produces on success.
type Result struct {
	Status   int
	Data     any
	Metadata *envelope.Metadata
}

// OK returns a 200 result.
func OK(data any) *Result {
	return &Result{Status: http.StatusOK, Data: data}
}

// Created returns a 201 result.
func Created(data any) *Result {
	return &Result{Status: http.StatusCreated, Data: data}
}

// Page returns a 200 result carrying pagination metadata.
func Page(data any, page, pageSize, total int) *Result {
	return &Result{Status: http.StatusOK, Data: data, Metadata: envelope.Pagination(page, pageSize, total)}
}

// Func is a route handler that works on values instead of the wire.
type Func func(ctx context.Context, req *Request) (*Result, error)

// Handle adapts fn to a HandlerFunc writing success envelopes.
func Handle(fn Func) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		res, err := fn(r.Context(), newRequest(r))
		if err != nil {
			return err
		}
		if res == nil {
			res = OK(nil)
		}
		status := res.Status
		if status == 0 {
			status = http.StatusOK
		}
		envelope.WriteSuccess(w, status, res.Data, res.Metadata)
		return nil
	}
}

func newRequest(r *http.Request) *Request {
	req := &Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header,
		Params: map[string]string{},
		Body:   Payload(r.Context()),
		Query:  Query(r.Context()),
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if i < len(rctx.URLParams.Values) {
				req.Params[key] = rctx.URLParams.Values[i]
			}
		}
	}
	return req
}
