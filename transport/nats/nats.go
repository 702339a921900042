// Package nats provides the NATS request/reply transport. Requests are
// published on the pattern subject with a per-client inbox as reply subject;
// replies are matched to pending calls by id.
package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/nats-io/nats.go"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// ConnectFunc allows overriding how the NATS connection is opened.
var ConnectFunc = func(url string, opts ...nats.Option) (*nats.Conn, error) {
	return nats.Connect(url, opts...)
}

func init() {
	Register()
}

// Register registers the NATS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Build creates a NATS client for the configured server URL.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Client, error) {
	url := cfg.GetNATSURL()
	if url == "" {
		return nil, errors.New("nats: url is required")
	}
	return NewClient(url, cfg.GetClientID(), logger), nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}

// Client sends requests over one NATS connection and receives every reply on
// a single inbox subscription.
type Client struct {
	url      string
	clientID string
	logger   watermill.LoggerAdapter
	calls    *transport.Calls

	mu     sync.RWMutex
	conn   *nats.Conn
	sub    *nats.Subscription
	inbox  string
	closed bool
}

// NewClient creates a client for the server at url.
func NewClient(url, clientID string, logger watermill.LoggerAdapter) *Client {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Client{
		url:      url,
		clientID: clientID,
		logger:   logger.With(watermill.LogFields{"transport": TransportName, "url": url}),
		calls:    transport.NewCalls(),
	}
}

// Connect opens the connection and subscribes the reply inbox.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errspkg.ErrClientClosed
	}
	if c.conn != nil {
		return nil
	}

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Error("NATS disconnected", err, nil)
			}
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			c.logger.Info("NATS reconnected", nil)
		}),
	}
	if c.clientID != "" {
		opts = append(opts, nats.Name(c.clientID))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	conn, err := ConnectFunc(c.url, opts...)
	if err != nil {
		return fmt.Errorf("nats: connect %s: %w", c.url, err)
	}

	inbox := conn.NewRespInbox()
	sub, err := conn.Subscribe(inbox, c.onReply)
	if err != nil {
		conn.Close()
		return fmt.Errorf("nats: subscribe inbox: %w", err)
	}
	flushCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(ctx, nats.DefaultTimeout)
		defer cancel()
	}
	if err := conn.FlushWithContext(flushCtx); err != nil {
		conn.Close()
		return fmt.Errorf("nats: flush: %w", err)
	}

	c.conn, c.sub, c.inbox = conn, sub, inbox
	c.logger.Info("NATS client connected", watermill.LogFields{"inbox": inbox})
	return nil
}

// Send publishes packet on the pattern subject of desc.
func (c *Client) Send(ctx context.Context, desc pattern.Descriptor, packet transport.Packet) (*transport.Call, error) {
	if desc.Family() != pattern.PointToPoint {
		return nil, fmt.Errorf("nats: cannot send to %s", desc)
	}
	packet.Pattern = desc.Pattern()

	body, err := transport.EncodePacket(packet)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, errspkg.ErrClientClosed
	}
	if c.conn == nil {
		return nil, errspkg.ErrNotConnected
	}

	call, err := c.calls.Open(packet.ID)
	if err != nil {
		return nil, err
	}
	if err := c.conn.PublishRequest(packet.Pattern, c.inbox, body); err != nil {
		call.Cancel(err)
		return nil, fmt.Errorf("nats: publish: %w", err)
	}
	return call, nil
}

// Close fails every pending call and closes the connection. It is
// idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.calls.Close(errspkg.ErrClientClosed)

	if c.conn == nil {
		return nil
	}
	var err error
	if c.sub != nil {
		err = c.sub.Unsubscribe()
	}
	c.conn.Close()
	c.conn, c.sub = nil, nil
	c.logger.Info("NATS client closed", nil)
	if errors.Is(err, nats.ErrConnectionClosed) {
		return nil
	}
	return err
}

// Pending returns the number of in-flight calls.
func (c *Client) Pending() int {
	return c.calls.Len()
}

func (c *Client) onReply(msg *nats.Msg) {
	reply, err := transport.DecodeReply(msg.Data)
	if err != nil {
		c.logger.Error("Dropping undecodable reply", err, nil)
		return
	}
	if !c.calls.Deliver(reply) {
		c.logger.Trace("Dropping reply without pending call", watermill.LogFields{"correlation_id": reply.ID})
	}
}
