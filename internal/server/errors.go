package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/autoclean-api/internal/domain"
	"github.com/tjfontaine/autoclean-api/internal/envelope"
)

// ErrorDetails is the details member of a failure produced by the error stage.
type ErrorDetails struct {
	Path      string `json:"path"`
	Method    string `json:"method"`
	Timestamp string `json:"timestamp"`
	Extra     any    `json:"extra,omitempty"`
}

// PanicError carries a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrorHandler is the terminal stage of every route. It converts any failure
// into a failure envelope and records it.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates an error stage logging to logger.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{logger: logger}
}

// Wrap adapts h to http.Handler. Errors returned by h, and panics raised by
// it, are passed to Handle.
func (e *ErrorHandler) Wrap(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &commitWriter{ResponseWriter: w}
		defer e.recover(cw, r)

		if err := h(cw, r); err != nil {
			e.Handle(cw, r, err)
		}
	})
}

// RecoverMiddleware routes panics from plain http.Handlers (including other
// middleware) to the error stage.
func (e *ErrorHandler) RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &commitWriter{ResponseWriter: w}
		defer e.recover(cw, r)
		next.ServeHTTP(cw, r)
	})
}

func (e *ErrorHandler) recover(w http.ResponseWriter, r *http.Request) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		// Deliberate abort of the connection; let net/http handle it.
		panic(rec)
	}
	e.Handle(w, r, &PanicError{Value: rec, Stack: debug.Stack()})
}

// Handle writes the failure envelope for err. The status comes from
// domain.ErrorStatus (500 unless err carries one) and the message from
// domain.ErrorMessage. Panics are always reported with the generic message.
func (e *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	status := domain.ErrorStatus(err)
	message := domain.ErrorMessage(err)

	var extra any
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		extra = apiErr.Details
	}

	attrs := []slog.Attr{
		slog.String("message", message),
		slog.String("error", err.Error()),
		slog.Int("status", status),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.String("request_id", GetRequestID(r.Context())),
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		message = domain.DefaultErrorMessage
		attrs = append(attrs, slog.String("stack", string(panicErr.Stack)))
	}

	e.logger.LogAttrs(r.Context(), slog.LevelError, "request failed", attrs...)

	AddError(r.Context(), err)

	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, message)
	}

	if cw, ok := w.(*commitWriter); ok && cw.committed {
		// The handler already started its response; nothing more can be sent.
		return
	}

	envelope.WriteFailure(w, status, message, ErrorDetails{
		Path:      r.URL.Path,
		Method:    r.Method,
		Timestamp: envelope.Timestamp(),
		Extra:     extra,
	})
}

// commitWriter records whether the response header has been sent.
type commitWriter struct {
	http.ResponseWriter
	committed bool
}

func (cw *commitWriter) WriteHeader(code int) {
	cw.committed = true
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *commitWriter) Write(b []byte) (int, error) {
	cw.committed = true
	return cw.ResponseWriter.Write(b)
}

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher.
func (cw *commitWriter) Flush() {
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		cw.committed = true
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter (supports http.ResponseController).
func (cw *commitWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
