package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
)

type mockDataSourceRepository struct {
	sources map[string]*models.DataSource
}

func newMockDataSourceRepository() *mockDataSourceRepository {
	return &mockDataSourceRepository{sources: make(map[string]*models.DataSource)}
}

func (m *mockDataSourceRepository) Create(ctx context.Context, ds *models.DataSource) error {
	if _, exists := m.sources[ds.Name]; exists {
		return apperrors.ErrConflict
	}
	m.sources[ds.Name] = ds
	return nil
}

func (m *mockDataSourceRepository) GetByName(ctx context.Context, name string) (*models.DataSource, error) {
	if ds, ok := m.sources[name]; ok {
		return ds, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	for _, ds := range m.sources {
		if ds.ID == id {
			return ds, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDataSourceRepository) List(ctx context.Context) ([]*models.DataSource, error) {
	var out []*models.DataSource
	for _, ds := range m.sources {
		out = append(out, ds)
	}
	return out, nil
}

func (m *mockDataSourceRepository) Delete(ctx context.Context, name string) error {
	if _, ok := m.sources[name]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.sources, name)
	return nil
}

// stubPool satisfies PoolConnector for the registered test adapter.
type stubPool struct {
	pingErr error
}

func (p *stubPool) Ping(ctx context.Context) error { return p.pingErr }
func (p *stubPool) Close() error                   { return nil }
func (p *stubPool) Type() string                   { return "stub" }

func registerStubAdapter(t *testing.T, openErr, pingErr error) {
	t.Helper()
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{Type: "stub", DisplayName: "Stub"},
		OpenPool: func(ctx context.Context, config map[string]any) (datasource.PoolConnector, error) {
			if openErr != nil {
				return nil, openErr
			}
			return &stubPool{pingErr: pingErr}, nil
		},
		SchemaConn: func(pool datasource.PoolConnector, logger *zap.Logger) (datasource.SchemaConn, error) {
			return nil, errors.New("not implemented")
		},
	})
}

func newTestDataSourceService(t *testing.T, repo *mockDataSourceRepository, mappings *mockRegionMappingRepository) DataSourceService {
	t.Helper()
	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{}, zap.NewNop())
	t.Cleanup(func() { _ = connMgr.Close() })
	return NewDataSourceService(repo, mappings, connMgr, zap.NewNop())
}

func TestDataSourceService_Create(t *testing.T) {
	registerStubAdapter(t, nil, nil)
	repo := newMockDataSourceRepository()
	svc := newTestDataSourceService(t, repo, newMockRegionMappingRepository())

	ds, err := svc.Create(context.Background(), "hr", "stub", map[string]any{"host": "db1"})
	require.NoError(t, err)
	assert.Equal(t, "hr", ds.Name)
	assert.Contains(t, repo.sources, "hr")
}

func TestDataSourceService_CreateRejectsUnknownType(t *testing.T) {
	svc := newTestDataSourceService(t, newMockDataSourceRepository(), newMockRegionMappingRepository())

	_, err := svc.Create(context.Background(), "hr", "oracle", nil)
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestDataSourceService_CreateRejectsUnreachableDatabase(t *testing.T) {
	registerStubAdapter(t, nil, errors.New("connection refused"))
	repo := newMockDataSourceRepository()
	svc := newTestDataSourceService(t, repo, newMockRegionMappingRepository())

	_, err := svc.Create(context.Background(), "hr", "stub", nil)
	require.Error(t, err)
	assert.Empty(t, repo.sources, "nothing persisted when the connection test fails")
}

func TestDataSourceService_DeleteBlockedByMapping(t *testing.T) {
	repo := newMockDataSourceRepository()
	repo.sources["hr"] = &models.DataSource{Name: "hr"}
	mappings := newMockRegionMappingRepository()
	mappings.mappings["people"] = &models.RegionMapping{RegionName: "people", DataSourceName: "hr"}

	svc := newTestDataSourceService(t, repo, mappings)

	err := svc.Delete(context.Background(), "hr")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Contains(t, repo.sources, "hr")
}

func TestDataSourceService_Delete(t *testing.T) {
	repo := newMockDataSourceRepository()
	repo.sources["hr"] = &models.DataSource{Name: "hr"}

	svc := newTestDataSourceService(t, repo, newMockRegionMappingRepository())

	require.NoError(t, svc.Delete(context.Background(), "hr"))
	assert.NotContains(t, repo.sources, "hr")
}
