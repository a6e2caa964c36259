package datasource

import (
	"context"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/apperrors"
	"github.com/lkn2993/geode/pkg/models"
)

// DescriptorSource looks up persisted connector descriptors by name.
// Implemented by the datasource repository; absence is apperrors.ErrNotFound.
type DescriptorSource interface {
	GetByName(ctx context.Context, name string) (*models.DataSource, error)
}

// ManagedResolver resolves data source names against persisted descriptors
// and hands out handles backed by the shared connection manager.
type ManagedResolver struct {
	descriptors DescriptorSource
	connMgr     *ConnectionManager
	logger      *zap.Logger
}

// NewManagedResolver creates a resolver. If logger is nil, a no-op logger
// is used.
func NewManagedResolver(descriptors DescriptorSource, connMgr *ConnectionManager, logger *zap.Logger) *ManagedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManagedResolver{
		descriptors: descriptors,
		connMgr:     connMgr,
		logger:      logger,
	}
}

// Resolve returns a handle for the named data source.
func (r *ManagedResolver) Resolve(ctx context.Context, name string) (Handle, error) {
	ds, err := r.descriptors.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	reg, ok := Registration(ds.DataSourceType)
	if !ok {
		return nil, apperrors.Configurationf("data source %q has unsupported type %q", name, ds.DataSourceType)
	}

	return &managedHandle{
		name:     name,
		config:   ds.Config,
		reg:      reg,
		resolver: r,
	}, nil
}

// managedHandle is a resolved data source; Connect acquires a scoped
// schema connection from the TTL-managed pool.
type managedHandle struct {
	name     string
	config   map[string]any
	reg      AdapterRegistration
	resolver *ManagedResolver
}

func (h *managedHandle) Name() string { return h.name }

func (h *managedHandle) Connect(ctx context.Context) (SchemaConn, error) {
	pool, err := h.resolver.connMgr.GetOrCreate(ctx, h.name, func(ctx context.Context) (PoolConnector, error) {
		return h.reg.OpenPool(ctx, h.config)
	})
	if err != nil {
		return nil, apperrors.TransientIO("connect to data source "+h.name, err)
	}
	return h.reg.SchemaConn(pool, h.resolver.logger)
}

// Ensure ManagedResolver implements Resolver at compile time.
var _ Resolver = (*ManagedResolver)(nil)
