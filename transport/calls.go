package transport

import (
	"context"
	"fmt"
	"sync"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
)

// Calls correlates in-flight requests with their replies. Every client owns
// one table and feeds it the frames it reads.
type Calls struct {
	mu      sync.Mutex
	pending map[string]*Call
	closed  error
}

// NewCalls creates an empty pending-call table.
func NewCalls() *Calls {
	return &Calls{pending: make(map[string]*Call)}
}

// Call is one pending request.
type Call struct {
	id    string
	owner *Calls
	done  chan struct{}
	once  sync.Once
	reply Reply
	err   error
}

// Open registers a pending call for id. It must be called before the request
// is written so that a fast reply cannot be missed.
func (c *Calls) Open(id string) (*Call, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed != nil {
		return nil, c.closed
	}
	if _, dup := c.pending[id]; dup {
		return nil, fmt.Errorf("%w: %s", errspkg.ErrDuplicateCall, id)
	}
	call := &Call{id: id, owner: c, done: make(chan struct{})}
	c.pending[id] = call
	return call, nil
}

// Deliver completes the call matching reply.ID with the frame. Non-terminal
// frames and frames for unknown or already completed ids are dropped; the
// return value reports whether the frame completed a call.
func (c *Calls) Deliver(reply Reply) bool {
	if !reply.Terminal() {
		return false
	}

	c.mu.Lock()
	call, ok := c.pending[reply.ID]
	if ok {
		delete(c.pending, reply.ID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	call.complete(reply, nil)
	return true
}

// Fail completes the call with id with err.
func (c *Calls) Fail(id string, err error) bool {
	c.mu.Lock()
	call, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ok {
		call.complete(Reply{ID: id}, err)
	}
	return ok
}

// FailAll completes every pending call with err. The table stays usable.
func (c *Calls) FailAll(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*Call)
	c.mu.Unlock()

	for id, call := range pending {
		call.complete(Reply{ID: id}, err)
	}
}

// Close fails every pending call with err and rejects future Open calls.
func (c *Calls) Close(err error) {
	c.mu.Lock()
	if c.closed == nil {
		c.closed = err
	}
	c.mu.Unlock()
	c.FailAll(err)
}

// Len returns the number of pending calls.
func (c *Calls) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Calls) remove(call *Call) {
	c.mu.Lock()
	if c.pending[call.id] == call {
		delete(c.pending, call.id)
	}
	c.mu.Unlock()
}

// ID returns the correlation id of the call.
func (call *Call) ID() string { return call.id }

// Done is closed once the call completed.
func (call *Call) Done() <-chan struct{} { return call.done }

// Result returns the reply or the failure. It is valid once Done is closed.
func (call *Call) Result() (Reply, error) {
	<-call.done
	return call.reply, call.err
}

// Wait blocks until the call completes or ctx ends. When ctx ends first the
// pending entry is removed and ctx.Err() is returned.
func (call *Call) Wait(ctx context.Context) (Reply, error) {
	select {
	case <-call.done:
		return call.reply, call.err
	case <-ctx.Done():
		call.Cancel(ctx.Err())
		// a reply may have raced the cancellation
		return call.Result()
	}
}

// Cancel removes the pending entry and completes the call with err unless it
// already completed.
func (call *Call) Cancel(err error) {
	if err == nil {
		err = context.Canceled
	}
	if call.owner != nil {
		call.owner.remove(call)
	}
	call.complete(Reply{ID: call.id}, err)
}

func (call *Call) complete(reply Reply, err error) {
	call.once.Do(func() {
		call.reply = reply
		call.err = err
		close(call.done)
	})
}
