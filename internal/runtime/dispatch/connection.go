package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	loggingpkg "github.com/drblury/protogate/internal/runtime/logging"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
)

// State is the lifecycle state of a Connection.
type State string

const (
	StateIdle      State = "idle"
	StateConnected State = "connected"
	StateFailed    State = "failed"
	StateStopped   State = "stopped"
)

// ConnectionStatus is a point-in-time view of a Connection for health checks.
type ConnectionStatus struct {
	Module      string    `json:"module"`
	Backend     string    `json:"backend"`
	Transport   string    `json:"transport"`
	Kind        string    `json:"kind"`
	State       State     `json:"state"`
	Error       string    `json:"error,omitempty"`
	Pending     int       `json:"pending"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
}

// Connection owns the single client of one (module, backend) pair. Start and
// Stop exclude in-flight sends; sends share the client concurrently.
type Connection struct {
	module    string
	backend   string
	registry  *pattern.Registry
	cfg       transport.Config
	build     transport.Builder
	caps      transport.Capabilities
	kind      pattern.Kind
	logger    loggingpkg.ServiceLogger
	transport string

	mu          sync.RWMutex
	state       State
	client      transport.Client
	err         error
	connectedAt time.Time
}

// ConnectionOption customises a Connection.
type ConnectionOption func(*Connection)

// WithBuilder replaces the transport registry lookup, for example to inject
// a client in tests.
func WithBuilder(build transport.Builder) ConnectionOption {
	return func(c *Connection) { c.build = build }
}

// WithConnectionLogger sets the logger of the connection.
func WithConnectionLogger(logger loggingpkg.ServiceLogger) ConnectionOption {
	return func(c *Connection) { c.logger = logger }
}

// NewConnection creates an idle connection from the module of registry to
// backend. The transport named by cfg decides which table is used.
func NewConnection(backend string, registry *pattern.Registry, cfg transport.Config, opts ...ConnectionOption) (*Connection, error) {
	if registry == nil {
		return nil, errspkg.ErrRegistryRequired
	}
	name := cfg.GetTransport()
	if name == "" {
		return nil, errspkg.ErrTransportRequired
	}

	caps := transport.GetCapabilities(name)
	kind := caps.Kind
	if kind == "" {
		var err error
		if kind, err = pattern.ParseKind(name); err != nil {
			return nil, err
		}
		caps.Kind = kind
	}

	c := &Connection{
		module:    registry.Module(),
		backend:   backend,
		registry:  registry,
		cfg:       cfg,
		build:     transport.Build,
		caps:      caps,
		kind:      kind,
		logger:    loggingpkg.Nop(),
		transport: name,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(loggingpkg.LogFields{
		"module":    c.module,
		"backend":   backend,
		"transport": name,
	})
	return c, nil
}

// Module returns the module the connection serves.
func (c *Connection) Module() string { return c.module }

// Backend returns the backend service name.
func (c *Connection) Backend() string { return c.backend }

// Transport returns the transport name.
func (c *Connection) Transport() string { return c.transport }

// Kind returns the pattern kind operations are resolved against.
func (c *Connection) Kind() pattern.Kind { return c.kind }

// Registry returns the pattern registry of the module.
func (c *Connection) Registry() *pattern.Registry { return c.registry }

// Start builds the client, registers every reply subscription the module
// needs and then connects. A failed start leaves the connection failed; every
// later call reports the cause.
func (c *Connection) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateConnected:
		return nil
	case StateStopped:
		return errspkg.ErrStopped
	}

	if err := c.start(ctx); err != nil {
		c.state = StateFailed
		c.err = err
		c.logger.Error("Connection failed", err, nil)
		return err
	}
	c.state = StateConnected
	c.err = nil
	c.connectedAt = time.Now()
	return nil
}

func (c *Connection) start(ctx context.Context) error {
	client, err := c.build(ctx, c.cfg, loggingpkg.NewWatermillAdapter(c.logger))
	if err != nil {
		return fmt.Errorf("build %s client: %w", c.transport, err)
	}

	descriptors := c.registry.Descriptors(c.kind)
	if subscriber, ok := client.(transport.ReplySubscriber); ok {
		for _, op := range sortedOperations(descriptors) {
			if err := subscriber.SubscribeToResponseOf(descriptors[op]); err != nil {
				_ = client.Close()
				return fmt.Errorf("subscribe to reply of %s: %w", op, err)
			}
		}
		c.logger.Debug("Reply subscriptions registered", loggingpkg.LogFields{"count": len(descriptors)})
	} else if c.caps.RequiresReplySubscriptions() {
		_ = client.Close()
		return fmt.Errorf("%s client cannot subscribe to replies", c.transport)
	}

	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect %s: %w", c.transport, err)
	}
	c.client = client
	c.logger.Info("Connection started", loggingpkg.LogFields{"kind": string(c.kind), "operations": len(descriptors)})
	return nil
}

// Stop closes the client. It is idempotent and safe after a failed Start.
func (c *Connection) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		return nil
	}
	c.state = StateStopped

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("Connection closed with error", err, nil)
		return err
	}
	c.logger.Info("Connection stopped", nil)
	return nil
}

// Status returns the current state of the connection.
func (c *Connection) Status() ConnectionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := ConnectionStatus{
		Module:      c.module,
		Backend:     c.backend,
		Transport:   c.transport,
		Kind:        string(c.kind),
		State:       c.state,
		ConnectedAt: c.connectedAt,
	}
	if c.err != nil {
		status.Error = c.err.Error()
	}
	if p, ok := c.client.(interface{ Pending() int }); ok {
		status.Pending = p.Pending()
	}
	return status
}

// send transmits packet while holding the lifecycle read lock, so a send
// never races Start or Stop.
func (c *Connection) send(ctx context.Context, desc pattern.Descriptor, packet transport.Packet) (*transport.Call, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.state {
	case StateIdle:
		return nil, errspkg.ErrNotStarted
	case StateStopped:
		return nil, errspkg.ErrStopped
	case StateFailed:
		return nil, fmt.Errorf("%w: %v", errspkg.ErrNotConnected, c.err)
	}
	return c.client.Send(ctx, desc, packet)
}

func sortedOperations(table pattern.Table) []string {
	ops := make([]string, 0, len(table))
	for op := range table {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
