// Package dispatch relays gateway operations to backend services. A
// Connection owns the transport client of one (module, backend) pair; a
// Dispatcher resolves operation names against the module's pattern registry
// and awaits exactly one terminal reply per call.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	idspkg "github.com/drblury/protogate/internal/runtime/ids"
	loggingpkg "github.com/drblury/protogate/internal/runtime/logging"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
)

// DefaultTimeout bounds a call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Request is one call travelling through the middleware chain. Descriptor
// is set once the operation has been resolved.
type Request struct {
	ID         string
	Module     string
	Backend    string
	Transport  string
	Kind       pattern.Kind
	Operation  string
	Descriptor pattern.Descriptor
	Payload    transport.Payload
}

// Handler performs a call.
type Handler func(ctx context.Context, req *Request) (Response, error)

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// Options configures a Dispatcher. Zero values fall back to defaults.
type Options struct {
	Timeout     time.Duration
	Logger      loggingpkg.ServiceLogger
	Middlewares []Middleware
}

// Dispatcher is the single path from an endpoint to a backend. It is safe
// for concurrent use.
type Dispatcher struct {
	conn    *Connection
	timeout time.Duration
	logger  loggingpkg.ServiceLogger
	handler Handler
}

// New creates a dispatcher sending over conn. Middlewares run in the order
// given, outermost first.
func New(conn *Connection, opts Options) *Dispatcher {
	d := &Dispatcher{
		conn:    conn,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.logger == nil {
		d.logger = loggingpkg.Nop()
	}

	h := d.roundTrip
	for i := len(opts.Middlewares) - 1; i >= 0; i-- {
		h = opts.Middlewares[i](h)
	}
	d.handler = h
	return d
}

// Module returns the module this dispatcher serves.
func (d *Dispatcher) Module() string { return d.conn.Module() }

// Connection returns the underlying connection.
func (d *Dispatcher) Connection() *Connection { return d.conn }

// Timeout returns the per-call deadline.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

// Call sends payload to the backend operation op and waits for its terminal
// reply. Errors are *UnsupportedOperationError, *TransportError,
// *RemoteError, *TimeoutError, or the context error when ctx was canceled.
// Calls are never retried.
func (d *Dispatcher) Call(ctx context.Context, op string, payload transport.Payload) (Response, error) {
	if op == "" {
		return Response{}, errspkg.ErrOperationRequired
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req := &Request{
		ID:        idspkg.CreateULID(),
		Module:    d.conn.Module(),
		Backend:   d.conn.Backend(),
		Transport: d.conn.Transport(),
		Kind:      d.conn.Kind(),
		Operation: op,
		Payload:   payload,
	}
	return d.handler(ctx, req)
}

func (d *Dispatcher) roundTrip(ctx context.Context, req *Request) (Response, error) {
	desc, err := d.conn.Registry().Resolve(req.Operation, req.Kind)
	if err != nil {
		return Response{}, err
	}
	req.Descriptor = desc

	call, err := d.conn.send(ctx, desc, transport.Packet{Data: req.Payload, ID: req.ID})
	if err != nil {
		return Response{}, d.classify(ctx, req, err)
	}

	reply, err := call.Wait(ctx)
	if err != nil {
		return Response{}, d.classify(ctx, req, err)
	}
	if reply.Err != nil {
		return Response{}, newRemoteError(req.Operation, reply.Err)
	}

	resp := Response{Value: reply.Response}
	if remote := resp.remoteFailure(req.Operation); remote != nil {
		return Response{}, remote
	}
	return resp, nil
}

// classify turns a send or wait failure into the typed error of the call.
func (d *Dispatcher) classify(ctx context.Context, req *Request, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &TimeoutError{Operation: req.Operation, After: d.timeout}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("dispatch: %s: %w", req.Operation, context.Canceled)
	default:
		return &TransportError{
			Module:    req.Module,
			Backend:   req.Backend,
			Transport: req.Transport,
			Operation: req.Operation,
			Err:       err,
		}
	}
}
