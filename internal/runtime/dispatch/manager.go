package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/transport"
)

// Manager starts and stops the connections of every module together and
// hands out their dispatchers.
type Manager struct {
	mu          sync.RWMutex
	dispatchers map[string]*Dispatcher
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{dispatchers: make(map[string]*Dispatcher)}
}

// Add registers the dispatcher of one module. A module can only be added once.
func (m *Manager) Add(d *Dispatcher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.dispatchers[d.Module()]; ok {
		return fmt.Errorf("dispatch: module %q already added", d.Module())
	}
	m.dispatchers[d.Module()] = d
	return nil
}

// Dispatcher returns the dispatcher of module.
func (m *Manager) Dispatcher(module string) (*Dispatcher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.dispatchers[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errspkg.ErrDispatcherNotFound, module)
	}
	return d, nil
}

// Call dispatches op to the dispatcher of module.
func (m *Manager) Call(ctx context.Context, module, op string, payload transport.Payload) (Response, error) {
	d, err := m.Dispatcher(module)
	if err != nil {
		return Response{}, err
	}
	return d.Call(ctx, op, payload)
}

// Modules returns the module names in sorted order.
func (m *Manager) Modules() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.dispatchers))
	for name := range m.dispatchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start starts every connection concurrently. Every connection is attempted;
// the returned error joins all failures.
func (m *Manager) Start(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, d := range m.list() {
		conn := d.Connection()
		g.Go(func() error {
			if err := conn.Start(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", conn.Module(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Stop stops every connection.
func (m *Manager) Stop() error {
	var errs []error
	for _, d := range m.list() {
		if err := d.Connection().Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Module(), err))
		}
	}
	return errors.Join(errs...)
}

// Statuses returns the status of every connection, ordered by module.
func (m *Manager) Statuses() []ConnectionStatus {
	list := m.list()
	statuses := make([]ConnectionStatus, 0, len(list))
	for _, d := range list {
		statuses = append(statuses, d.Connection().Status())
	}
	return statuses
}

// Healthy reports whether every connection is connected.
func (m *Manager) Healthy() bool {
	for _, s := range m.Statuses() {
		if s.State != StateConnected {
			return false
		}
	}
	return true
}

func (m *Manager) list() []*Dispatcher {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.dispatchers))
	for name := range m.dispatchers {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]*Dispatcher, 0, len(names))
	for _, name := range names {
		list = append(list, m.dispatchers[name])
	}
	return list
}
