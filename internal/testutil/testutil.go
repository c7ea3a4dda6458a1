// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tjfontaine/autoclean-api/internal/config"
	"github.com/tjfontaine/autoclean-api/internal/database"
)

// TestDatabaseName is the database selected by SetupTestEnvironment.
const TestDatabaseName = "autoclean_test"

// SetupTestEnvironment points configuration at the test database and quiets
// logging. Variables are restored when the test ends.
func SetupTestEnvironment(t testing.TB) {
	t.Helper()
	t.Setenv(config.EnvPrefix+"DATABASE__DATABASE", TestDatabaseName)
	t.Setenv(config.EnvPrefix+"LOG__LEVEL", "error")
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MemoryDatabase returns a config for a private shared-cache in-memory
// sqlite database named after the test.
func MemoryDatabase(t testing.TB) config.DatabaseConfig {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return config.DatabaseConfig{
		Driver:   "sqlite",
		Database: "file:" + name,
		Options:  map[string]string{"mode": "memory", "cache": "shared"},
	}
}

// NewManager returns a manager over MemoryDatabase that is released when the
// test ends.
func NewManager(t testing.TB, opts ...database.Option) *database.Manager {
	t.Helper()
	opts = append([]database.Option{database.WithLogger(QuietLogger())}, opts...)
	m := database.NewManager(MemoryDatabase(t), opts...)
	t.Cleanup(func() {
		require.NoError(t, m.Release(context.Background()))
	})
	return m
}

// Envelope is a decoded response body of either shape.
type Envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Metadata  map[string]any  `json:"metadata"`
	Error     *EnvelopeError  `json:"error"`
	Timestamp string          `json:"timestamp"`
}

// EnvelopeError is the error member of a failure envelope.
type EnvelopeError struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// DecodeEnvelope decodes body or fails the test.
func DecodeEnvelope(t testing.TB, body io.Reader) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}
