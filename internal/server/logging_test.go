package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoggingMiddleware_LogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestIDMiddleware(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "tenant", "acme")
		AddError(r.Context(), errors.New("boom"))
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets", nil))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v (%s)", err, buf.String())
	}

	if record["msg"] != "request completed" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", record["status"])
	}
	if record["bytes"] != float64(5) {
		t.Errorf("bytes = %v", record["bytes"])
	}
	if record["path"] != "/widgets" {
		t.Errorf("path = %v", record["path"])
	}
	if record["tenant"] != "acme" {
		t.Errorf("tenant = %v", record["tenant"])
	}
	if record["error"] != "boom" {
		t.Errorf("error = %v", record["error"])
	}
	if record["request_id"] != rec.Header().Get(RequestIDHeader) {
		t.Errorf("request_id = %v", record["request_id"])
	}
}

func TestAddLogField_NoMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	AddLogField(req.Context(), "k", "v")
	AddError(req.Context(), nil)
}
