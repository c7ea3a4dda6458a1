package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tjfontaine/autoclean-api/internal/database/dialect"
)

// CheckResult is the outcome of a successful connectivity check.
type CheckResult struct {
	Dialect string        `json:"dialect"`
	Version string        `json:"version"`
	Latency time.Duration `json:"latencyNs"`
}

// Check acquires the pool and asks the server for its version.
func (m *Manager) Check(ctx context.Context) (CheckResult, error) {
	db, err := m.Acquire(ctx)
	if err != nil {
		return CheckResult{}, err
	}

	m.mu.Lock()
	driver := m.cfg.Driver
	m.mu.Unlock()

	d, err := dialect.FromDriverName(driver)
	if err != nil {
		return CheckResult{}, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	start := time.Now()
	var version string
	if err := db.GetContext(ctx, &version, d.VersionQuery()); err != nil {
		return CheckResult{}, fmt.Errorf("query server version: %w", err)
	}

	return CheckResult{
		Dialect: d.Name(),
		Version: version,
		Latency: time.Since(start),
	}, nil
}
