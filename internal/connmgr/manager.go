// Package connmgr owns the lifecycle of the pipeline's infrastructure
// connections: the relational store handle and the read-cache handle.
//
// The manager is the only process-wide shared mutable state in the system.
// It is constructed explicitly at the composition root and injected into
// every component that touches infrastructure; there is no ambient global.
//
// Its retry executor (retry.go) is the sole path by which other components
// reach the relational store - it lazily re-initializes a connection whose
// previous attempt failed, so bypassing it would bypass recovery.
package connmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/ordercap/internal/cache"
	"github.com/roach88/ordercap/internal/relstore"
)

// Status is the connection state machine:
// NOT_INITIALIZED -> CONNECTING -> CONNECTED, or -> ERROR with a cause.
type Status int32

const (
	StatusNotInitialized Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusNotInitialized:
		return "NOT_INITIALIZED"
	case StatusConnecting:
		return "CONNECTING"
	case StatusConnected:
		return "CONNECTED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// DefaultCacheTTL bounds how stale the dashboard listing may be.
const DefaultCacheTTL = 30 * time.Second

// Config holds the manager's required settings.
type Config struct {
	// DatabasePath locates the SQLite database file. Required.
	DatabasePath string

	// CacheDisabled turns the read cache into a no-op.
	CacheDisabled bool

	// CacheTTL overrides DefaultCacheTTL when positive.
	CacheTTL time.Duration

	// Retry tunes the backoff executor. Zero values take defaults.
	Retry RetryConfig
}

// OrderListCache is the concrete cache shape the manager hands out:
// recent-order listings keyed by query.
type OrderListCache = cache.Cache[[]relstore.StoredOrder]

// Handles is a point-in-time view of the managed connections.
type Handles struct {
	Rel    *relstore.Store
	Cache  OrderListCache
	Status Status
}

// Manager owns the relational connection pool and the cache handle.
//
// Thread-safety: Get is safe for concurrent use. The status flag is read
// lock-free on the fast path; initialization runs inside a mutex so
// concurrent first calls race safely (double-checked locking). A manager
// in StatusError transparently re-attempts initialization on the next Get.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	status atomic.Int32

	mu    sync.Mutex // guards the fields below during (re)initialization
	rel   *relstore.Store
	cache OrderListCache
	cause error // last initialization failure, kept for Status reporting
}

// NewManager creates a manager for the given configuration.
// No connection is opened until the first Get.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	cfg.Retry = cfg.Retry.withDefaults()
	return &Manager{cfg: cfg, logger: logger}
}

// Get returns live connection handles, initializing them on first use.
//
// Fails closed: missing configuration puts the manager into StatusError and
// every call returns *ConfigError until the configuration is fixed. A
// previous transient failure is retried transparently - callers never see a
// stale ERROR state without a fresh connection attempt behind it.
func (m *Manager) Get(ctx context.Context) (*Handles, error) {
	// Fast path: already connected, no lock needed.
	if Status(m.status.Load()) == StatusConnected {
		m.mu.Lock()
		h := &Handles{Rel: m.rel, Cache: m.cache, Status: StatusConnected}
		m.mu.Unlock()
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check under the lock: another goroutine may have finished
	// initializing while we waited.
	if Status(m.status.Load()) == StatusConnected {
		return &Handles{Rel: m.rel, Cache: m.cache, Status: StatusConnected}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := m.initLocked(); err != nil {
		return nil, err
	}
	return &Handles{Rel: m.rel, Cache: m.cache, Status: StatusConnected}, nil
}

// initLocked performs one initialization attempt. Caller must hold mu.
func (m *Manager) initLocked() error {
	if m.cfg.DatabasePath == "" {
		err := &ConfigError{Setting: "database-path", Message: "required setting is missing"}
		m.cause = err
		m.status.Store(int32(StatusError))
		return err
	}

	m.status.Store(int32(StatusConnecting))
	m.logger.Debug("initializing connections", "database", m.cfg.DatabasePath)

	rel, err := relstore.Open(m.cfg.DatabasePath)
	if err != nil {
		m.cause = err
		m.status.Store(int32(StatusError))
		m.logger.Error("relational store initialization failed", "error", err)
		return fmt.Errorf("initialize relational store: %w", err)
	}

	m.rel = rel
	if m.cache == nil {
		if m.cfg.CacheDisabled {
			m.cache = cache.Nop[[]relstore.StoredOrder]{}
		} else {
			m.cache = cache.NewTTLMap[[]relstore.StoredOrder](m.cfg.CacheTTL)
		}
	}

	m.cause = nil
	m.status.Store(int32(StatusConnected))
	m.logger.Debug("connections ready")
	return nil
}

// Status returns the current state and, for StatusError, the captured cause.
func (m *Manager) Status() (Status, error) {
	st := Status(m.status.Load())
	if st != StatusError {
		return st, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return st, m.cause
}

// Close releases the relational connection pool.
// The manager returns to NOT_INITIALIZED and may be reused.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.Store(int32(StatusNotInitialized))
	if m.rel == nil {
		return nil
	}
	err := m.rel.Close()
	m.rel = nil
	return err
}
