package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "sqlserver",
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2017+",
		},
		OpenPool: func(ctx context.Context, config map[string]any) (datasource.PoolConnector, error) {
			return OpenPool(ctx, config)
		},
		SchemaConn: func(pool datasource.PoolConnector, logger *zap.Logger) (datasource.SchemaConn, error) {
			return NewSchemaConn(pool, logger)
		},
	})
}
