package datasource

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/logging"
	"github.com/lkn2993/geode/pkg/retry"
)

const (
	DefaultConnectionTTLMinutes = 5
	DefaultCleanupInterval      = 1 * time.Minute
)

// ConnectionManagerConfig holds configuration for the connection manager.
type ConnectionManagerConfig struct {
	TTLMinutes int
}

// ConnectionManager keeps one pool per data source name with TTL-based
// expiry and automatic cleanup. Pools are recreated transparently when
// their health check fails.
type ConnectionManager struct {
	mu       sync.RWMutex
	pools    map[string]*managedPool // keyed by data source name
	ttl      time.Duration
	stopped  bool
	stopChan chan struct{}
	logger   *zap.Logger
}

type managedPool struct {
	pool     PoolConnector
	lastUsed time.Time
	mu       sync.Mutex
}

// NewConnectionManager creates a connection manager.
// Starts a background cleanup goroutine that runs until Close() is called.
func NewConnectionManager(cfg ConnectionManagerConfig, logger *zap.Logger) *ConnectionManager {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultConnectionTTLMinutes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	manager := &ConnectionManager{
		pools:    make(map[string]*managedPool),
		ttl:      time.Duration(cfg.TTLMinutes) * time.Minute,
		stopChan: make(chan struct{}),
		logger:   logger,
	}

	go manager.cleanupExpiredPools()
	return manager
}

// GetOrCreate returns the pool for the named data source, dialing one with
// open if none exists. An existing pool that fails its health check is
// closed and recreated.
func (m *ConnectionManager) GetOrCreate(
	ctx context.Context,
	name string,
	open func(ctx context.Context) (PoolConnector, error),
) (PoolConnector, error) {
	m.mu.RLock()
	managed, exists := m.pools[name]
	m.mu.RUnlock()

	if exists {
		managed.mu.Lock()

		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := retry.Do(healthCtx, retry.DefaultConfig(), func() error {
			return managed.pool.Ping(healthCtx)
		})

		if err != nil {
			m.logger.Warn("data source pool unhealthy, recreating",
				zap.String("name", name),
				zap.String("error", logging.SanitizeError(err)),
			)
			managed.mu.Unlock()
			m.remove(name)
			return m.create(ctx, name, open)
		}

		managed.lastUsed = time.Now()
		managed.mu.Unlock()
		return managed.pool, nil
	}

	return m.create(ctx, name, open)
}

// create dials a new pool. Caller must NOT hold any locks.
func (m *ConnectionManager) create(
	ctx context.Context,
	name string,
	open func(ctx context.Context) (PoolConnector, error),
) (PoolConnector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if managed, exists := m.pools[name]; exists && managed != nil {
		managed.mu.Lock()
		defer managed.mu.Unlock()
		managed.lastUsed = time.Now()
		return managed.pool, nil
	}

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (PoolConnector, error) {
		return open(ctx)
	})
	if err != nil {
		m.logger.Error("failed to open data source pool",
			zap.String("name", name),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, err
	}

	m.pools[name] = &managedPool{
		pool:     pool,
		lastUsed: time.Now(),
	}

	m.logger.Info("opened data source pool",
		zap.String("name", name),
		zap.String("type", pool.Type()),
	)

	return pool, nil
}

// remove closes and forgets a pool. Caller must NOT hold m.mu.
func (m *ConnectionManager) remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, exists := m.pools[name]; exists && managed != nil {
		if managed.pool != nil {
			_ = managed.pool.Close()
		}
		delete(m.pools, name)
		m.logger.Debug("removed data source pool", zap.String("name", name))
	}
}

// Invalidate closes and forgets the pool for a data source, if any.
// Called when a descriptor is deleted or its config changes.
func (m *ConnectionManager) Invalidate(name string) {
	m.remove(name)
}

// cleanupExpiredPools runs until stopChan is closed.
func (m *ConnectionManager) cleanupExpiredPools() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup closes pools that have been idle longer than the TTL.
func (m *ConnectionManager) performCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	now := time.Now()
	var expired []string

	for name, managed := range m.pools {
		if managed == nil {
			continue
		}
		managed.mu.Lock()
		if now.Sub(managed.lastUsed) > m.ttl {
			expired = append(expired, name)
		}
		managed.mu.Unlock()
	}

	for _, name := range expired {
		if managed := m.pools[name]; managed != nil && managed.pool != nil {
			_ = managed.pool.Close()
		}
		delete(m.pools, name)
	}

	if len(expired) > 0 {
		m.logger.Info("cleaned up expired data source pools",
			zap.Int("count", len(expired)),
			zap.Int("remaining", len(m.pools)),
		)
	}
}

// Close closes all pools and stops the cleanup goroutine. Idempotent.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	m.stopped = true
	close(m.stopChan)

	for _, managed := range m.pools {
		if managed != nil && managed.pool != nil {
			_ = managed.pool.Close()
		}
	}

	m.pools = make(map[string]*managedPool)
	m.logger.Info("connection manager closed")
	return nil
}

// Stats returns counts about the managed pools. Safe to call concurrently.
func (m *ConnectionManager) Stats() ConnectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := ConnectionStats{
		TotalPools:  len(m.pools),
		TTLMinutes:  int(m.ttl.Minutes()),
		PoolsByType: make(map[string]int),
	}

	for _, managed := range m.pools {
		if managed == nil {
			continue
		}
		managed.mu.Lock()
		idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
		stats.PoolsByType[managed.pool.Type()]++
		managed.mu.Unlock()
		if idleSeconds > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idleSeconds
		}
	}

	return stats
}

// ConnectionStats contains statistics about managed pools.
type ConnectionStats struct {
	TotalPools        int            `json:"total_pools"`
	TTLMinutes        int            `json:"ttl_minutes"`
	PoolsByType       map[string]int `json:"pools_by_type"`
	OldestIdleSeconds int            `json:"oldest_idle_seconds"`
}
