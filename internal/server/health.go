package server

import (
	"context"
	"time"

	"github.com/tjfontaine/autoclean-api/internal/database"
	"github.com/tjfontaine/autoclean-api/internal/domain"
)

// DatabaseUnavailableMessage is reported by the readiness probe when the
// database cannot be reached.
const DatabaseUnavailableMessage = database.UnavailableMessage

// Checker reports database reachability.
type Checker interface {
	Check(ctx context.Context) (database.CheckResult, error)
	Stats() database.Stats
}

// HealthStatus is the data of a liveness response.
type HealthStatus struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// ReadyStatus is the data of a readiness response.
type ReadyStatus struct {
	Status   string               `json:"status"`
	Database database.CheckResult `json:"database"`
	Pool     database.Stats       `json:"pool"`
}

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	db      Checker
	started time.Time
}

// NewHealthHandlers creates probes reporting on db.
func NewHealthHandlers(db Checker) *HealthHandlers {
	return &HealthHandlers{db: db, started: time.Now()}
}

// Live always succeeds while the process serves requests.
func (h *HealthHandlers) Live(ctx context.Context, _ *Request) (*Result, error) {
	return OK(HealthStatus{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	}), nil
}

// Ready succeeds only when the database answers.
func (h *HealthHandlers) Ready(ctx context.Context, _ *Request) (*Result, error) {
	res, err := h.db.Check(ctx)
	if err != nil {
		return nil, domain.ErrUnavailable(DatabaseUnavailableMessage, err).
			WithCode(domain.ErrorCodeDatabaseUnavailable)
	}
	return OK(ReadyStatus{
		Status:   "ready",
		Database: res,
		Pool:     h.db.Stats(),
	}), nil
}

// Register mounts the probes under /health.
func (h *HealthHandlers) Register(rt *Routes) {
	rt.Get("/health", Handle(h.Live))
	rt.Get("/health/ready", Handle(h.Ready))
}
