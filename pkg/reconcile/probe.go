package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/pdx"
)

// DomainClassProbe reports whether a logical class name corresponds to a
// registered, serializable implementation type. Implementations must
// never propagate a failure: an unknown or broken class is an expected,
// common outcome, answered with false.
type DomainClassProbe interface {
	Probe(ctx context.Context, className string) bool
}

// SerializerProbe probes the domain-type catalog: resolve the class name,
// instantiate the registered type, and push the instance through the
// standard serialization path. Serialization registers the derived type
// definition in the registry, which is exactly the side effect the
// reconciler re-reads for.
type SerializerProbe struct {
	serializer *pdx.Serializer
	logger     *zap.Logger
}

// NewSerializerProbe creates the probe. If logger is nil, a no-op logger
// is used.
func NewSerializerProbe(serializer *pdx.Serializer, logger *zap.Logger) *SerializerProbe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SerializerProbe{serializer: serializer, logger: logger}
}

// Probe runs inside an isolated failure boundary: every failure,
// including a panic out of reflection or serialization, is reported as
// false.
func (p *SerializerProbe) Probe(ctx context.Context, className string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("domain class probe panicked",
				zap.String("class", className),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()

	instance, found := pdx.NewDomainInstance(className)
	if !found {
		return false
	}

	if _, err := p.serializer.Marshal(ctx, className, instance); err != nil {
		p.logger.Debug("domain class failed serialization probe",
			zap.String("class", className),
			zap.Error(err),
		)
		return false
	}

	return true
}

// Ensure SerializerProbe implements DomainClassProbe at compile time.
var _ DomainClassProbe = (*SerializerProbe)(nil)
