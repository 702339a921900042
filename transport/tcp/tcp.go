// Package tcp provides the point-to-point JSON socket transport. Frames are
// "<byte length>#<json>"; requests carry their id and replies are matched to
// pending calls by it, so many calls share one socket.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "tcp"

// DialFunc allows overriding how connections are opened.
var DialFunc = func(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", address)
}

func init() {
	Register()
}

// Register registers the TCP transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.TCPCapabilities)
}

// Build creates a TCP client for the configured address. No connection is
// opened until Connect.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Client, error) {
	address := cfg.GetTCPAddress()
	if address == "" {
		return nil, errors.New("tcp: address is required")
	}
	return NewClient(address, logger), nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.TCPCapabilities
}

// Client multiplexes calls over one socket. A dropped socket fails the calls
// pending on it and is redialled by the next Send.
type Client struct {
	address string
	logger  watermill.LoggerAdapter
	calls   *transport.Calls

	mu     sync.Mutex
	conn   net.Conn
	closed bool

	writeMu sync.Mutex
}

// NewClient creates a client for address.
func NewClient(address string, logger watermill.LoggerAdapter) *Client {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Client{
		address: address,
		logger:  logger.With(watermill.LogFields{"transport": TransportName, "address": address}),
		calls:   transport.NewCalls(),
	}
}

// Connect dials the backend.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connection(ctx)
	return err
}

// Send writes packet addressed by desc.
func (c *Client) Send(ctx context.Context, desc pattern.Descriptor, packet transport.Packet) (*transport.Call, error) {
	if desc.Family() != pattern.PointToPoint {
		return nil, fmt.Errorf("tcp: cannot send to %s", desc)
	}
	packet.Pattern = desc.Pattern()

	body, err := transport.EncodePacket(packet)
	if err != nil {
		return nil, err
	}

	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	call, err := c.calls.Open(packet.ID)
	if err != nil {
		return nil, err
	}

	if err := c.write(ctx, conn, EncodeFrame(body)); err != nil {
		call.Cancel(err)
		c.drop(conn, err)
		return nil, fmt.Errorf("tcp: write: %w", err)
	}
	return call, nil
}

// Close closes the socket and fails every pending call. It is idempotent.
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
	err := c.conn.Close()
	c.conn = nil
	c.logger.Info("TCP client closed", nil)
	return err
}

// Pending returns the number of in-flight calls.
func (c *Client) Pending() int {
	return c.calls.Len()
}

func (c *Client) connection(ctx context.Context) (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errspkg.ErrClientClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}

	conn, err := DialFunc(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", c.address, err)
	}
	c.conn = conn
	go c.readLoop(conn)
	c.logger.Info("TCP client connected", nil)
	return conn, nil
}

func (c *Client) write(ctx context.Context, conn net.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}
	_, err := conn.Write(frame)
	return err
}

func (c *Client) readLoop(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		raw, err := ReadFrame(r)
		if err != nil {
			c.drop(conn, err)
			return
		}
		reply, err := transport.DecodeReply(raw)
		if err != nil {
			c.logger.Error("Dropping undecodable reply", err, nil)
			continue
		}
		if !c.calls.Deliver(reply) {
			c.logger.Trace("Dropping reply without pending call", watermill.LogFields{"correlation_id": reply.ID})
		}
	}
}

// drop forgets conn and fails the calls pending on it. The lock is held while
// failing so that calls opened on a redialled socket are not affected.
func (c *Client) drop(conn net.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return
	}
	c.conn = nil
	_ = conn.Close()

	if c.closed {
		return
	}
	c.logger.Error("TCP connection lost", cause, watermill.LogFields{"pending": c.calls.Len()})
	c.calls.FailAll(fmt.Errorf("%w: %v", errspkg.ErrConnectionLost, cause))
}
