package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes registers handlers on a chi router. Every handler is wrapped in the
// group's stages and terminated by the error stage, so whatever a stage or
// handler returns becomes a failure envelope.
type Routes struct {
	mux    chi.Router
	errors *ErrorHandler
	stages []Stage
}

// NewRoutes returns a registrar over mux.
func NewRoutes(mux chi.Router, errors *ErrorHandler) *Routes {
	return &Routes{mux: mux, errors: errors}
}

// With returns a registrar that runs stages before each handler, after the
// stages already configured. Nil stages are skipped.
func (rt *Routes) With(stages ...Stage) *Routes {
	combined := make([]Stage, 0, len(rt.stages)+len(stages))
	combined = append(combined, rt.stages...)
	for _, s := range stages {
		if s != nil {
			combined = append(combined, s)
		}
	}
	return &Routes{mux: rt.mux, errors: rt.errors, stages: combined}
}

// Group mounts a sub-router at prefix and hands fn a registrar for it.
func (rt *Routes) Group(prefix string, fn func(*Routes)) {
	rt.mux.Route(prefix, func(r chi.Router) {
		fn(&Routes{mux: r, errors: rt.errors, stages: rt.stages})
	})
}

// Method registers h for method and pattern. Per-route stages run after the
// registrar's.
func (rt *Routes) Method(method, pattern string, h HandlerFunc, stages ...Stage) {
	all := rt.With(stages...).stages
	rt.mux.Method(method, pattern, rt.errors.Wrap(Chain(h, all...)))
}

func (rt *Routes) Get(pattern string, h HandlerFunc, stages ...Stage) {
	rt.Method(http.MethodGet, pattern, h, stages...)
}

func (rt *Routes) Post(pattern string, h HandlerFunc, stages ...Stage) {
	rt.Method(http.MethodPost, pattern, h, stages...)
}

func (rt *Routes) Put(pattern string, h HandlerFunc, stages ...Stage) {
	rt.Method(http.MethodPut, pattern, h, stages...)
}

func (rt *Routes) Patch(pattern string, h HandlerFunc, stages ...Stage) {
	rt.Method(http.MethodPatch, pattern, h, stages...)
}

func (rt *Routes) Delete(pattern string, h HandlerFunc, stages ...Stage) {
	rt.Method(http.MethodDelete, pattern, h, stages...)
}
