package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lkn2993/geode/pkg/pdx"
)

// pdxTypeRepository is the PostgreSQL-backed pdx.TypeRegistry. Type
// definitions are append-only rows; fields are stored as JSONB.
type pdxTypeRepository struct {
	pool *pgxpool.Pool
}

// NewPdxTypeRepository creates a registry backed by the engine database,
// shared by every member that points at it.
func NewPdxTypeRepository(pool *pgxpool.Pool) pdx.TypeRegistry {
	return &pdxTypeRepository{pool: pool}
}

func (r *pdxTypeRepository) TypesByClassName(ctx context.Context, className string) ([]*pdx.Type, error) {
	query := `
		SELECT id, class_name, fields
		FROM pdx_types
		WHERE class_name = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, className)
	if err != nil {
		return nil, fmt.Errorf("failed to query type definitions: %w", err)
	}
	defer rows.Close()

	var types []*pdx.Type
	for rows.Next() {
		var t pdx.Type
		if err := rows.Scan(&t.ID, &t.Name, &t.Fields); err != nil {
			return nil, fmt.Errorf("failed to scan type definition: %w", err)
		}
		types = append(types, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating type definitions: %w", err)
	}

	return types, nil
}

func (r *pdxTypeRepository) FieldsMatchingName(ctx context.Context, className, fieldName string) ([]pdx.Field, error) {
	types, err := r.TypesByClassName(ctx, className)
	if err != nil {
		return nil, err
	}
	return pdx.MatchFields(types, fieldName), nil
}

// DefineType registers a definition unless a structurally equal one
// already exists for the class name. The advisory lock serializes
// concurrent definers of the same class so exactly one row wins.
func (r *pdxTypeRepository) DefineType(ctx context.Context, t *pdx.Type) (*pdx.Type, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, t.Name); err != nil {
		return nil, fmt.Errorf("failed to lock class name: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT id, class_name, fields FROM pdx_types WHERE class_name = $1 ORDER BY id`, t.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to query type definitions: %w", err)
	}
	for rows.Next() {
		var existing pdx.Type
		if err := rows.Scan(&existing.ID, &existing.Name, &existing.Fields); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan type definition: %w", err)
		}
		if existing.StructurallyEqual(t) {
			rows.Close()
			if err := tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("failed to commit transaction: %w", err)
			}
			return &existing, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating type definitions: %w", err)
	}
	rows.Close()

	stored := &pdx.Type{Name: t.Name, Fields: append([]pdx.Field(nil), t.Fields...)}
	err = tx.QueryRow(ctx,
		`INSERT INTO pdx_types (class_name, fields) VALUES ($1, $2) RETURNING id`,
		stored.Name, stored.Fields,
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert type definition: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stored, nil
}

// Ensure pdxTypeRepository implements pdx.TypeRegistry at compile time.
var _ pdx.TypeRegistry = (*pdxTypeRepository)(nil)
