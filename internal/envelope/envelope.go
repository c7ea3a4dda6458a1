// Package envelope defines the fixed-shape bodies returned by every endpoint.
//
// A request is answered with exactly one of Success or Failure; the Success
// field discriminates the two when decoding.
package envelope

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// TimestampFormat is the ISO-8601 UTC layout used for envelope timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	clockMu sync.RWMutex
	clock   = time.Now
)

// SetClock replaces the time source used for timestamps and returns a
// function restoring the previous one. Intended for tests.
func SetClock(now func() time.Time) (restore func()) {
	clockMu.Lock()
	prev := clock
	clock = now
	clockMu.Unlock()

	return func() {
		clockMu.Lock()
		clock = prev
		clockMu.Unlock()
	}
}

// Timestamp returns the current time formatted for an envelope.
func Timestamp() string {
	clockMu.RLock()
	now := clock
	clockMu.RUnlock()
	return now().UTC().Format(TimestampFormat)
}

// Metadata accompanies a successful payload. Pagination fields are optional;
// Timestamp is always set when the envelope is built.
type Metadata struct {
	Page      *int   `json:"page,omitempty"`
	PageSize  *int   `json:"pageSize,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Pagination returns metadata describing one page of a listing.
func Pagination(page, pageSize, total int) *Metadata {
	return &Metadata{Page: &page, PageSize: &pageSize, Total: &total}
}

// Success wraps a successful payload.
type Success[T any] struct {
	Success  bool     `json:"success"`
	Data     T        `json:"data"`
	Metadata Metadata `json:"metadata"`
}

// ErrorBody is the error member of a Failure.
type ErrorBody struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Failure wraps a failed request.
type Failure struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Timestamp string    `json:"timestamp"`
}

// NewSuccess builds a success envelope. Caller metadata is copied; its
// Timestamp is always replaced with a fresh one.
func NewSuccess[T any](data T, meta *Metadata) Success[T] {
	var m Metadata
	if meta != nil {
		m = *meta
	}
	m.Timestamp = Timestamp()

	return Success[T]{
		Success:  true,
		Data:     data,
		Metadata: m,
	}
}

// NewFailure builds a failure envelope. details may be nil.
func NewFailure(message string, details any) Failure {
	return Failure{
		Success: false,
		Error: ErrorBody{
			Message: message,
			Details: details,
		},
		Timestamp: Timestamp(),
	}
}

// Write encodes body as JSON with the given status. Encoding errors happen
// after the header is committed, so they are logged rather than returned.
func Write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response envelope",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
}

// WriteSuccess writes a success envelope for data.
func WriteSuccess[T any](w http.ResponseWriter, status int, data T, meta *Metadata) {
	Write(w, status, NewSuccess(data, meta))
}

// WriteFailure writes a failure envelope.
func WriteFailure(w http.ResponseWriter, status int, message string, details any) {
	Write(w, status, NewFailure(message, details))
}
