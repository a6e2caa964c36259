package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
)

// RegionMappingRepository defines the interface for region mapping access.
// Field mappings are stored denormalized as JSONB; they are written once
// when the mapping is accepted and only read afterwards.
type RegionMappingRepository interface {
	// Create inserts an accepted mapping. Returns apperrors.ErrConflict
	// when a mapping for the region already exists.
	Create(ctx context.Context, m *models.RegionMapping) error

	// GetByRegion retrieves the mapping for a region.
	GetByRegion(ctx context.Context, regionName string) (*models.RegionMapping, error)

	// List retrieves all mappings ordered by region name.
	List(ctx context.Context) ([]*models.RegionMapping, error)

	// Delete removes the mapping for a region.
	Delete(ctx context.Context, regionName string) error
}

// regionMappingRepository implements RegionMappingRepository using PostgreSQL.
type regionMappingRepository struct {
	pool *pgxpool.Pool
}

// NewRegionMappingRepository creates a new region mapping repository.
func NewRegionMappingRepository(pool *pgxpool.Pool) RegionMappingRepository {
	return &regionMappingRepository{pool: pool}
}

func (r *regionMappingRepository) Create(ctx context.Context, m *models.RegionMapping) error {
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	query := `
		INSERT INTO region_mappings (region_name, datasource_name, table_name, pdx_name, ids, field_mappings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		m.RegionName,
		m.DataSourceName,
		m.TableName,
		m.PdxName,
		m.IDs,
		m.FieldMappings,
		m.CreatedAt,
		m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("region %q already has a mapping: %w", m.RegionName, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create region mapping: %w", err)
	}

	return nil
}

func (r *regionMappingRepository) GetByRegion(ctx context.Context, regionName string) (*models.RegionMapping, error) {
	query := `
		SELECT id, region_name, datasource_name, table_name, pdx_name, ids, field_mappings, created_at, updated_at
		FROM region_mappings
		WHERE region_name = $1`

	var m models.RegionMapping
	err := r.pool.QueryRow(ctx, query, regionName).Scan(
		&m.ID,
		&m.RegionName,
		&m.DataSourceName,
		&m.TableName,
		&m.PdxName,
		&m.IDs,
		&m.FieldMappings,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("region mapping %q: %w", regionName, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get region mapping: %w", err)
	}

	return &m, nil
}

func (r *regionMappingRepository) List(ctx context.Context) ([]*models.RegionMapping, error) {
	query := `
		SELECT id, region_name, datasource_name, table_name, pdx_name, ids, field_mappings, created_at, updated_at
		FROM region_mappings
		ORDER BY region_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list region mappings: %w", err)
	}
	defer rows.Close()

	var out []*models.RegionMapping
	for rows.Next() {
		var m models.RegionMapping
		err := rows.Scan(
			&m.ID,
			&m.RegionName,
			&m.DataSourceName,
			&m.TableName,
			&m.PdxName,
			&m.IDs,
			&m.FieldMappings,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan region mapping: %w", err)
		}
		out = append(out, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating region mappings: %w", err)
	}

	return out, nil
}

func (r *regionMappingRepository) Delete(ctx context.Context, regionName string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM region_mappings WHERE region_name = $1`, regionName)
	if err != nil {
		return fmt.Errorf("failed to delete region mapping: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("region mapping %q: %w", regionName, apperrors.ErrNotFound)
	}

	return nil
}

// Ensure regionMappingRepository implements RegionMappingRepository at compile time.
var _ RegionMappingRepository = (*regionMappingRepository)(nil)
