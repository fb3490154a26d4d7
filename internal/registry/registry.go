// Package registry maps probe identifiers to probe capabilities. The mapping
// is built statically at process start and never mutated afterwards, so
// concurrent reads need no synchronization.
package registry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/probes"
)

// ErrNotFound is returned when a probe identifier has no registered
// capability. Callers treat it as a per-probe error, never a batch failure.
var ErrNotFound = errors.New("probe not found")

// Registry is a static ProbeID -> Capability mapping.
type Registry struct {
	logger       *zap.Logger
	capabilities map[string]schemas.Capability
	order        []string
}

// New returns a registry pre-populated with the built-in probe set.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger:       logger.Named("registry"),
		capabilities: make(map[string]schemas.Capability),
	}

	// Registration order is the default execution and report order.
	// The mixed calling conventions are deliberate: probes keep whatever
	// signature suits them, the invoker adapts.
	r.register("clickjacking", schemas.TargetProbe(probes.CheckClickjacking))
	r.register("cors", schemas.TargetTimeoutProbe(probes.CheckCORS))
	r.register("directory_listing", schemas.TargetTimeoutProbe(probes.CheckDirListing))
	r.register("http_headers", schemas.TargetProbe(probes.CheckHeaders))
	r.register("insecure_cookies", schemas.TargetTimeoutProbe(probes.CheckCookies))
	r.register("open_redirect", schemas.OptionsProbe(probes.CheckOpenRedirect))
	r.register("ssl_tls", schemas.OptionsProbe(probes.CheckTLS))
	r.register("xss", schemas.TargetTimeoutProbe(probes.CheckXSSReflection))

	r.logger.Info("Probe registry built", zap.Int("count", len(r.order)))
	return r
}

// NewWithCapabilities builds a registry from an explicit set, preserving the
// given order. Used by tests to inject synthetic probes.
func NewWithCapabilities(logger *zap.Logger, ids []string, caps map[string]schemas.Capability) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger:       logger.Named("registry"),
		capabilities: make(map[string]schemas.Capability, len(caps)),
	}
	for _, id := range ids {
		r.register(id, caps[id])
	}
	return r
}

func (r *Registry) register(id string, cap schemas.Capability) {
	if _, dup := r.capabilities[id]; dup {
		panic(fmt.Sprintf("duplicate probe id %q", id))
	}
	r.capabilities[id] = cap
	r.order = append(r.order, id)
}

// Resolve looks up a capability by probe identifier. Pure lookup, no side
// effects.
func (r *Registry) Resolve(id string) (schemas.Capability, error) {
	cap, ok := r.capabilities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return cap, nil
}

// IDs returns all registered probe identifiers in registration order. The
// returned slice is a copy; callers may reorder it freely.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}
