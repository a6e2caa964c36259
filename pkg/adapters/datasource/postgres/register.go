package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+",
		},
		OpenPool: func(ctx context.Context, config map[string]any) (datasource.PoolConnector, error) {
			return OpenPool(ctx, config)
		},
		SchemaConn: func(pool datasource.PoolConnector, logger *zap.Logger) (datasource.SchemaConn, error) {
			return NewSchemaConn(pool, logger)
		},
	})
}
