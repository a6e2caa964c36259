package datasource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testPool struct {
	pingErr atomic.Value // error
	closed  atomic.Bool
}

func (p *testPool) Ping(ctx context.Context) error {
	if err, ok := p.pingErr.Load().(error); ok {
		return err
	}
	return nil
}

func (p *testPool) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *testPool) Type() string { return "test" }

func newTestManager(t *testing.T) *ConnectionManager {
	t.Helper()
	m := NewConnectionManager(ConnectionManagerConfig{}, zap.NewNop())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestConnectionManager_ReusesPool(t *testing.T) {
	m := newTestManager(t)

	var opens int32
	open := func(ctx context.Context) (PoolConnector, error) {
		atomic.AddInt32(&opens, 1)
		return &testPool{}, nil
	}

	first, err := m.GetOrCreate(context.Background(), "hr", open)
	require.NoError(t, err)
	second, err := m.GetOrCreate(context.Background(), "hr", open)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
}

func TestConnectionManager_RecreatesUnhealthyPool(t *testing.T) {
	m := newTestManager(t)

	broken := &testPool{}
	pools := []PoolConnector{broken, &testPool{}}
	var opens int32
	open := func(ctx context.Context) (PoolConnector, error) {
		n := atomic.AddInt32(&opens, 1)
		return pools[n-1], nil
	}

	_, err := m.GetOrCreate(context.Background(), "hr", open)
	require.NoError(t, err)

	broken.pingErr.Store(errors.New("connection reset"))

	got, err := m.GetOrCreate(context.Background(), "hr", open)
	require.NoError(t, err)
	assert.NotSame(t, broken, got)
	assert.True(t, broken.closed.Load(), "unhealthy pool must be closed")
}

func TestConnectionManager_ConcurrentGetOrCreate(t *testing.T) {
	m := newTestManager(t)

	var opens int32
	open := func(ctx context.Context) (PoolConnector, error) {
		atomic.AddInt32(&opens, 1)
		return &testPool{}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.GetOrCreate(context.Background(), "hr", open)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&opens), "concurrent callers share one dial")
}

func TestConnectionManager_Invalidate(t *testing.T) {
	m := newTestManager(t)

	pool := &testPool{}
	_, err := m.GetOrCreate(context.Background(), "hr", func(ctx context.Context) (PoolConnector, error) {
		return pool, nil
	})
	require.NoError(t, err)

	m.Invalidate("hr")
	assert.True(t, pool.closed.Load())
	assert.Equal(t, 0, m.Stats().TotalPools)
}

func TestConnectionManager_CloseIsIdempotent(t *testing.T) {
	m := NewConnectionManager(ConnectionManagerConfig{}, zap.NewNop())

	pool := &testPool{}
	_, err := m.GetOrCreate(context.Background(), "hr", func(ctx context.Context) (PoolConnector, error) {
		return pool, nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.True(t, pool.closed.Load())
}

func TestConnectionManager_Stats(t *testing.T) {
	m := newTestManager(t)

	_, err := m.GetOrCreate(context.Background(), "hr", func(ctx context.Context) (PoolConnector, error) {
		return &testPool{}, nil
	})
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 1, stats.TotalPools)
	assert.Equal(t, 1, stats.PoolsByType["test"])
}
