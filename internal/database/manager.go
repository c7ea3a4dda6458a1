// Package database owns the process-wide connection pool to the shared
// database.
//
// A Manager opens the pool lazily on the first Acquire and keeps it until
// Release. Callers must not hold on to the returned handle across requests:
// after a Release (shutdown, tests, or a configuration reload) the next
// Acquire opens a fresh pool.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/autoclean-api/internal/config"
	"github.com/tjfontaine/autoclean-api/internal/database/dialect"
)

// State is the lifecycle state of a Manager.
type State int

const (
	StateUninitialized State = iota
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	default:
		return "uninitialized"
	}
}

// Opener opens and verifies a new pool. Tests substitute their own to count
// or fail connection attempts.
type Opener func(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error)

// Option configures a Manager.
type Option func(*Manager)

// WithOpener replaces the default opener.
func WithOpener(open Opener) Option {
	return func(m *Manager) {
		m.open = open
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// maxConnectAttempts bounds how often one flight reconnects after being
// superseded by Release or Reconfigure.
const maxConnectAttempts = 3

// Manager guards the single live pool. It is safe for concurrent use.
type Manager struct {
	open   Opener
	logger *slog.Logger
	group  singleflight.Group

	mu          sync.Mutex
	cfg         config.DatabaseConfig
	db          *sqlx.DB
	connectedAt time.Time
	connects    int
	generation  uint64 // bumped on every Release
}

// NewManager creates a manager in the uninitialized state. No connection is
// attempted until Acquire.
func NewManager(cfg config.DatabaseConfig, opts ...Option) *Manager {
	m := &Manager{
		open:   Open,
		logger: slog.Default(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the live pool, opening it first if necessary. Concurrent
// callers share a single connection attempt and all observe its outcome. A
// failed attempt leaves the manager uninitialized; the next call retries. An
// attempt superseded by Release or Reconfigure reconnects with the current
// settings, so waiters never receive a pool opened before the release.
//
// The connection attempt is detached from ctx cancellation because callers
// other than the first may be waiting on it.
func (m *Manager) Acquire(ctx context.Context) (*sqlx.DB, error) {
	if db := m.current(); db != nil {
		return db, nil
	}

	v, err, _ := m.group.Do("connect", func() (any, error) {
		for attempt := 1; ; attempt++ {
			// Another flight may have completed between our check and Do.
			m.mu.Lock()
			if m.db != nil {
				db := m.db
				m.mu.Unlock()
				return db, nil
			}
			cfg := m.cfg
			gen := m.generation
			m.mu.Unlock()

			start := time.Now()
			db, err := m.open(context.WithoutCancel(ctx), cfg)
			if err != nil {
				m.logger.Error("database connect failed",
					slog.String("driver", cfg.Driver),
					slog.String("address", cfg.Params().Address()),
					slog.String("error", err.Error()),
				)
				return nil, &ConnectionError{
					Driver:  cfg.Driver,
					Address: cfg.Params().Address(),
					Err:     err,
				}
			}

			m.mu.Lock()
			if m.generation != gen {
				// Released or reconfigured while connecting: this pool may
				// carry stale settings, so connect again with the current ones.
				m.mu.Unlock()
				db.Close()
				if attempt >= maxConnectAttempts {
					return nil, &ConnectionError{
						Driver:  cfg.Driver,
						Address: cfg.Params().Address(),
						Err:     ErrReleasedDuringConnect,
					}
				}
				m.logger.Info("database released while connecting, reconnecting",
					slog.String("driver", cfg.Driver))
				continue
			}
			m.db = db
			m.connectedAt = time.Now()
			m.connects++
			m.mu.Unlock()

			m.logger.Info("database connected",
				slog.String("driver", cfg.Driver),
				slog.String("address", cfg.Params().Address()),
				slog.Duration("duration", time.Since(start)),
			)
			return db, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return v.(*sqlx.DB), nil
}

// Release closes the live pool and returns the manager to the uninitialized
// state. It is a no-op when no pool is open. The state is reset even if
// closing the pool fails; the close error is returned.
func (m *Manager) Release(ctx context.Context) error {
	m.mu.Lock()
	db := m.db
	m.db = nil
	m.connectedAt = time.Time{}
	m.generation++
	m.mu.Unlock()

	if db == nil {
		return nil
	}

	if err := db.Close(); err != nil {
		m.logger.ErrorContext(ctx, "database close failed", slog.String("error", err.Error()))
		return fmt.Errorf("close database pool: %w", err)
	}
	m.logger.InfoContext(ctx, "database released")
	return nil
}

// Reconfigure swaps the connection settings and releases the current pool
// so the next Acquire connects with cfg.
func (m *Manager) Reconfigure(ctx context.Context, cfg config.DatabaseConfig) error {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	return m.Release(ctx)
}

// State reports whether a pool is currently open.
func (m *Manager) State() State {
	if m.current() != nil {
		return StateConnected
	}
	return StateUninitialized
}

// Stats describes the manager and, when connected, the underlying pool.
type Stats struct {
	State       string    `json:"state"`
	Driver      string    `json:"driver"`
	Connects    int       `json:"connects"`
	ConnectedAt time.Time `json:"connectedAt,omitzero"`
	OpenConns   int       `json:"openConnections"`
	InUse       int       `json:"inUse"`
	Idle        int       `json:"idle"`
}

// Stats returns a snapshot for health reporting.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		State:       StateUninitialized.String(),
		Driver:      m.cfg.Driver,
		Connects:    m.connects,
		ConnectedAt: m.connectedAt,
	}
	if m.db != nil {
		st := m.db.Stats()
		s.State = StateConnected.String()
		s.OpenConns = st.OpenConnections
		s.InUse = st.InUse
		s.Idle = st.Idle
	}
	return s
}

func (m *Manager) current() *sqlx.DB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db
}

// Open is the default Opener: it resolves the dialect, opens the pool with
// the configured limits, runs the dialect's init statements and pings.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}

	dsn, err := d.DSN(cfg.Params())
	if err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	db, err := sqlx.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range d.InitStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute init statement: %w", err)
		}
	}

	return db, nil
}
