package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tjfontaine/autoclean-api/internal/config"
	"github.com/tjfontaine/autoclean-api/internal/testutil"
)

func TestRateLimit_ThrottlesThroughErrorStage(t *testing.T) {
	h := NewErrorHandler(testutil.QuietLogger()).Wrap(Chain(func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}, RateLimit(0.001, 1)))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	env := testutil.DecodeEnvelope(t, second.Body)
	assert.Equal(t, RateLimitMessage, env.Error.Message)
	assert.Equal(t, "/", env.Error.Details["path"])
}

func TestRateLimitFromConfig(t *testing.T) {
	assert.Nil(t, RateLimitFromConfig(config.RateLimitConfig{}))
	assert.NotNil(t, RateLimitFromConfig(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1}))
}
