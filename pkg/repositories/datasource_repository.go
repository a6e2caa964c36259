package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
)

// DataSourceRepository defines the interface for data source descriptor
// access. Config is stored as JSONB; connection secrets inside it are the
// operator's responsibility.
type DataSourceRepository interface {
	// Create inserts a new data source. Returns apperrors.ErrConflict
	// when the name is already taken.
	Create(ctx context.Context, ds *models.DataSource) error

	// GetByName retrieves a data source by its unique name.
	GetByName(ctx context.Context, name string) (*models.DataSource, error)

	// GetByID retrieves a data source by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error)

	// List retrieves all data sources ordered by creation time.
	List(ctx context.Context) ([]*models.DataSource, error)

	// Delete removes a data source by name.
	Delete(ctx context.Context, name string) error
}

// dataSourceRepository implements DataSourceRepository using PostgreSQL.
type dataSourceRepository struct {
	pool *pgxpool.Pool
}

// NewDataSourceRepository creates a new data source repository.
func NewDataSourceRepository(pool *pgxpool.Pool) DataSourceRepository {
	return &dataSourceRepository{pool: pool}
}

func (r *dataSourceRepository) Create(ctx context.Context, ds *models.DataSource) error {
	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now

	query := `
		INSERT INTO data_sources (name, datasource_type, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		ds.Name,
		ds.DataSourceType,
		ds.Config,
		ds.CreatedAt,
		ds.UpdatedAt,
	).Scan(&ds.ID)
	if err != nil {
		// Unique constraint violation (PostgreSQL error code 23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("data source %q: %w", ds.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create data source: %w", err)
	}

	return nil
}

func (r *dataSourceRepository) GetByName(ctx context.Context, name string) (*models.DataSource, error) {
	query := `
		SELECT id, name, datasource_type, config, created_at, updated_at
		FROM data_sources
		WHERE name = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, name), name)
}

func (r *dataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	query := `
		SELECT id, name, datasource_type, config, created_at, updated_at
		FROM data_sources
		WHERE id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id), id.String())
}

func (r *dataSourceRepository) scanOne(row pgx.Row, key string) (*models.DataSource, error) {
	var ds models.DataSource
	err := row.Scan(
		&ds.ID,
		&ds.Name,
		&ds.DataSourceType,
		&ds.Config,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("data source %q: %w", key, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get data source: %w", err)
	}
	return &ds, nil
}

func (r *dataSourceRepository) List(ctx context.Context) ([]*models.DataSource, error) {
	query := `
		SELECT id, name, datasource_type, config, created_at, updated_at
		FROM data_sources
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	var out []*models.DataSource
	for rows.Next() {
		var ds models.DataSource
		err := rows.Scan(
			&ds.ID,
			&ds.Name,
			&ds.DataSourceType,
			&ds.Config,
			&ds.CreatedAt,
			&ds.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		out = append(out, &ds)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data sources: %w", err)
	}

	return out, nil
}

func (r *dataSourceRepository) Delete(ctx context.Context, name string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM data_sources WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete data source: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("data source %q: %w", name, apperrors.ErrNotFound)
	}

	return nil
}

// Ensure dataSourceRepository implements DataSourceRepository at compile time.
var _ DataSourceRepository = (*dataSourceRepository)(nil)
