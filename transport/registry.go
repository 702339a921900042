package transport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/pattern"
)

type registration struct {
	build Builder
	caps  Capabilities
}

// Registry maps transport names to builders. Names are case-insensitive.
// Transport packages register themselves from init.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

// DefaultRegistry is the registry the Connection uses unless a builder is
// injected.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// inferCapabilities derives what can be known from the name alone: a name
// that is also a pattern kind resolves against that kind's table.
func inferCapabilities(name string) Capabilities {
	caps := Capabilities{Name: name}
	if kind, err := pattern.ParseKind(name); err == nil {
		caps.Kind = kind
	}
	return caps
}

// Register adds builder under name with inferred capabilities.
func (r *Registry) Register(name string, builder Builder) {
	r.RegisterWithCapabilities(name, builder, inferCapabilities(name))
}

// RegisterWithCapabilities adds builder under name. A later registration of
// the same name replaces the earlier one.
func (r *Registry) RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalizeName(name)] = registration{build: builder, caps: caps}
}

// GetCapabilities returns the capabilities registered for name. Unknown names
// report the capabilities inferred from the name.
func (r *Registry) GetCapabilities(name string) Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[normalizeName(name)]; ok {
		return e.caps
	}
	return inferCapabilities(name)
}

// Build creates the client of the transport cfg names.
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Client, error) {
	if cfg == nil {
		return nil, errspkg.ErrTransportConfigRequired
	}
	name := cfg.GetTransport()
	if name == "" {
		return nil, errspkg.ErrTransportRequired
	}

	r.mu.RLock()
	e, ok := r.entries[normalizeName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", errspkg.ErrUnknownTransport, name, strings.Join(r.Names(), ", "))
	}
	return e.build(ctx, cfg, logger)
}

// Names returns the registered transport names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[normalizeName(name)]
	return ok
}

// Register adds a builder to the default registry.
func Register(name string, builder Builder) {
	DefaultRegistry.Register(name, builder)
}

// RegisterWithCapabilities adds a builder and its capabilities to the
// default registry.
func RegisterWithCapabilities(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.RegisterWithCapabilities(name, builder, caps)
}

// Build creates a client from the default registry.
func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Client, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}
