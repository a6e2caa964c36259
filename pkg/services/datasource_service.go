package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
	"github.com/lkn2993/geode/pkg/repositories"
)

// DataSourceService defines the interface for data source operations.
type DataSourceService interface {
	// Create validates and persists a new data source descriptor. The
	// connection is dialed once before persisting so a broken config is
	// rejected up front.
	Create(ctx context.Context, name, dsType string, config map[string]any) (*models.DataSource, error)

	// Get retrieves a data source by name.
	Get(ctx context.Context, name string) (*models.DataSource, error)

	// List retrieves all data sources.
	List(ctx context.Context) ([]*models.DataSource, error)

	// Delete removes a data source and evicts its pooled connection.
	// Fails when a region mapping still refers to it.
	Delete(ctx context.Context, name string) error

	// TestConnection dials a data source config without saving it.
	TestConnection(ctx context.Context, dsType string, config map[string]any) error

	// AdapterTypes lists the database types this build supports.
	AdapterTypes() []datasource.AdapterInfo
}

// dataSourceService implements DataSourceService.
type dataSourceService struct {
	repo     repositories.DataSourceRepository
	mappings repositories.RegionMappingRepository
	connMgr  *datasource.ConnectionManager
	logger   *zap.Logger
}

// NewDataSourceService creates a new data source service with dependencies.
func NewDataSourceService(
	repo repositories.DataSourceRepository,
	mappings repositories.RegionMappingRepository,
	connMgr *datasource.ConnectionManager,
	logger *zap.Logger,
) DataSourceService {
	return &dataSourceService{
		repo:     repo,
		mappings: mappings,
		connMgr:  connMgr,
		logger:   logger,
	}
}

func (s *dataSourceService) Create(ctx context.Context, name, dsType string, config map[string]any) (*models.DataSource, error) {
	if name == "" {
		return nil, apperrors.Configurationf("data source name is required")
	}
	if !datasource.IsRegistered(dsType) {
		return nil, apperrors.Configurationf("unsupported data source type %q", dsType)
	}
	if config == nil {
		config = make(map[string]any)
	}

	if err := s.TestConnection(ctx, dsType, config); err != nil {
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	ds := &models.DataSource{
		Name:           name,
		DataSourceType: dsType,
		Config:         config,
	}
	if err := s.repo.Create(ctx, ds); err != nil {
		return nil, err
	}

	s.logger.Info("created data source",
		zap.String("name", name),
		zap.String("type", dsType),
	)
	return ds, nil
}

func (s *dataSourceService) Get(ctx context.Context, name string) (*models.DataSource, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *dataSourceService) List(ctx context.Context) ([]*models.DataSource, error) {
	return s.repo.List(ctx)
}

func (s *dataSourceService) Delete(ctx context.Context, name string) error {
	mappings, err := s.mappings.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range mappings {
		if m.DataSourceName == name {
			return apperrors.Configurationf(
				"data source %q is still used by region mapping %q", name, m.RegionName)
		}
	}

	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}

	s.connMgr.Invalidate(name)
	s.logger.Info("deleted data source", zap.String("name", name))
	return nil
}

func (s *dataSourceService) TestConnection(ctx context.Context, dsType string, config map[string]any) error {
	reg, ok := datasource.Registration(dsType)
	if !ok {
		return apperrors.Configurationf("unsupported data source type %q", dsType)
	}

	pool, err := reg.OpenPool(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	return pool.Ping(ctx)
}

func (s *dataSourceService) AdapterTypes() []datasource.AdapterInfo {
	return datasource.RegisteredAdapters()
}

// Ensure dataSourceService implements DataSourceService at compile time.
var _ DataSourceService = (*dataSourceService)(nil)
