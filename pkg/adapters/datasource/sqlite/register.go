package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
			Description: "Embedded SQLite database file",
		},
		OpenPool: func(ctx context.Context, config map[string]any) (datasource.PoolConnector, error) {
			return OpenPool(ctx, config)
		},
		SchemaConn: func(pool datasource.PoolConnector, logger *zap.Logger) (datasource.SchemaConn, error) {
			return NewSchemaConn(pool, logger)
		},
	})
}
