package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
	"github.com/lkn2993/geode/pkg/repositories"
)

// MappingService defines the interface for region mapping operations.
type MappingService interface {
	// PreconditionCheck runs a reconciliation pass without persisting
	// anything except the registry side effects the pass itself makes.
	// This is the dry-run an operator reviews before creating a mapping.
	PreconditionCheck(ctx context.Context, mapping *models.RegionMapping) (*models.ReconciliationResult, error)

	// Create runs the precondition check and, on success, persists the
	// mapping with its accepted field mappings and key columns.
	Create(ctx context.Context, mapping *models.RegionMapping) (*models.RegionMapping, error)

	// Get retrieves the mapping for a region.
	Get(ctx context.Context, regionName string) (*models.RegionMapping, error)

	// List retrieves all region mappings.
	List(ctx context.Context) ([]*models.RegionMapping, error)

	// Delete removes the mapping for a region.
	Delete(ctx context.Context, regionName string) error
}

// Reconciler runs one reconciliation pass; implemented by
// reconcile.SchemaReconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, mapping *models.RegionMapping) (*models.ReconciliationResult, error)
}

// mappingService implements MappingService.
type mappingService struct {
	repo       repositories.RegionMappingRepository
	reconciler Reconciler
	logger     *zap.Logger
}

// NewMappingService creates a new mapping service with dependencies.
func NewMappingService(
	repo repositories.RegionMappingRepository,
	reconciler Reconciler,
	logger *zap.Logger,
) MappingService {
	return &mappingService{
		repo:       repo,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (s *mappingService) PreconditionCheck(ctx context.Context, mapping *models.RegionMapping) (*models.ReconciliationResult, error) {
	if strings.TrimSpace(mapping.RegionName) == "" {
		return nil, apperrors.Configurationf("region name is required")
	}
	if strings.TrimSpace(mapping.DataSourceName) == "" {
		return nil, apperrors.Configurationf("data source name is required")
	}
	return s.reconciler.Reconcile(ctx, mapping)
}

func (s *mappingService) Create(ctx context.Context, mapping *models.RegionMapping) (*models.RegionMapping, error) {
	result, err := s.PreconditionCheck(ctx, mapping)
	if err != nil {
		return nil, err
	}

	mapping.FieldMappings = result.FieldMappings
	if !mapping.SpecifiesIDs() && len(result.InferredKeyColumns) > 0 {
		mapping.IDs = strings.Join(result.InferredKeyColumns, ",")
	}

	if err := s.repo.Create(ctx, mapping); err != nil {
		return nil, err
	}

	s.logger.Info("created region mapping",
		zap.String("region", mapping.RegionName),
		zap.String("data_source", mapping.DataSourceName),
		zap.String("table", mapping.EffectiveTableName()),
		zap.String("class", mapping.EffectivePdxName()),
		zap.Int("fields", len(mapping.FieldMappings)),
	)
	return mapping, nil
}

func (s *mappingService) Get(ctx context.Context, regionName string) (*models.RegionMapping, error) {
	return s.repo.GetByRegion(ctx, regionName)
}

func (s *mappingService) List(ctx context.Context) ([]*models.RegionMapping, error) {
	return s.repo.List(ctx)
}

func (s *mappingService) Delete(ctx context.Context, regionName string) error {
	if err := s.repo.Delete(ctx, regionName); err != nil {
		return err
	}
	s.logger.Info("deleted region mapping", zap.String("region", regionName))
	return nil
}

// Ensure mappingService implements MappingService at compile time.
var _ MappingService = (*mappingService)(nil)
