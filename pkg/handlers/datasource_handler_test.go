package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
)

type mockDataSourceService struct {
	sources   map[string]*models.DataSource
	createErr error
	testErr   error
}

func (m *mockDataSourceService) Create(ctx context.Context, name, dsType string, config map[string]any) (*models.DataSource, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	ds := &models.DataSource{Name: name, DataSourceType: dsType, Config: config}
	m.sources[name] = ds
	return ds, nil
}

func (m *mockDataSourceService) Get(ctx context.Context, name string) (*models.DataSource, error) {
	if ds, ok := m.sources[name]; ok {
		return ds, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDataSourceService) List(ctx context.Context) ([]*models.DataSource, error) {
	var out []*models.DataSource
	for _, ds := range m.sources {
		out = append(out, ds)
	}
	return out, nil
}

func (m *mockDataSourceService) Delete(ctx context.Context, name string) error {
	if _, ok := m.sources[name]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.sources, name)
	return nil
}

func (m *mockDataSourceService) TestConnection(ctx context.Context, dsType string, config map[string]any) error {
	return m.testErr
}

func (m *mockDataSourceService) AdapterTypes() []datasource.AdapterInfo {
	return []datasource.AdapterInfo{{Type: "postgres", DisplayName: "PostgreSQL"}}
}

func newDataSourceTestMux(svc *mockDataSourceService) *http.ServeMux {
	if svc.sources == nil {
		svc.sources = make(map[string]*models.DataSource)
	}
	mux := http.NewServeMux()
	NewDataSourceHandler(svc, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestDataSourceHandler_Create(t *testing.T) {
	svc := &mockDataSourceService{}
	mux := newDataSourceTestMux(svc)

	body, _ := json.Marshal(CreateDataSourceRequest{
		Name:   "hr",
		Type:   "postgres",
		Config: map[string]any{"host": "db1"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/datasources", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, svc.sources, "hr")
}

func TestDataSourceHandler_CreateUnsupportedTypeIs400(t *testing.T) {
	svc := &mockDataSourceService{createErr: apperrors.Configurationf("unsupported data source type %q", "oracle")}
	mux := newDataSourceTestMux(svc)

	body, _ := json.Marshal(CreateDataSourceRequest{Name: "hr", Type: "oracle"})
	req := httptest.NewRequest(http.MethodPost, "/api/datasources", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDataSourceHandler_TestConnection(t *testing.T) {
	mux := newDataSourceTestMux(&mockDataSourceService{})

	body, _ := json.Marshal(CreateDataSourceRequest{Type: "postgres"})
	req := httptest.NewRequest(http.MethodPost, "/api/datasources/test", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestDataSourceHandler_Types(t *testing.T) {
	mux := newDataSourceTestMux(&mockDataSourceService{})

	req := httptest.NewRequest(http.MethodGet, "/api/datasources/types", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "postgres")
}

func TestDataSourceHandler_GetNotFoundIs404(t *testing.T) {
	mux := newDataSourceTestMux(&mockDataSourceService{})

	req := httptest.NewRequest(http.MethodGet, "/api/datasources/ghost", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataSourceHandler_Delete(t *testing.T) {
	svc := &mockDataSourceService{sources: map[string]*models.DataSource{
		"hr": {Name: "hr"},
	}}
	mux := newDataSourceTestMux(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/datasources/hr", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, svc.sources)
}
