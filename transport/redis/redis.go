// Package redis provides the Redis pub/sub transport. Requests are published
// on the pattern channel and replies arrive on "<pattern>.reply", which must
// be subscribed before Connect.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "redis"

// ClientFactory allows overriding the Redis client creation for testing.
var ClientFactory = func(opts *redis.Options) *redis.Client {
	return redis.NewClient(opts)
}

func init() {
	Register()
}

// Register registers the Redis transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.RedisCapabilities)
}

// Build creates a Redis client for the configured URL.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Client, error) {
	url := cfg.GetRedisURL()
	if url == "" {
		return nil, errors.New("redis: url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	if id := cfg.GetClientID(); id != "" {
		opts.ClientName = id
	}
	return NewClient(opts, logger), nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.RedisCapabilities
}

// Client publishes requests through one Redis connection pool and receives
// replies on a single pub/sub connection.
type Client struct {
	opts   *redis.Options
	logger watermill.LoggerAdapter
	calls  *transport.Calls

	mu        sync.RWMutex
	channels  map[string]struct{}
	rdb       *redis.Client
	pubsub    *redis.PubSub
	connected bool
	closed    bool
	wg        sync.WaitGroup
}

// NewClient creates a client for opts.
func NewClient(opts *redis.Options, logger watermill.LoggerAdapter) *Client {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Client{
		opts:     opts,
		logger:   logger.With(watermill.LogFields{"transport": TransportName, "addr": opts.Addr}),
		calls:    transport.NewCalls(),
		channels: make(map[string]struct{}),
	}
}

// SubscribeToResponseOf registers the reply channel of desc. It must be
// called before Connect.
func (c *Client) SubscribeToResponseOf(desc pattern.Descriptor) error {
	if desc.Family() != pattern.PointToPoint {
		return fmt.Errorf("redis: cannot subscribe to reply of %s", desc)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return errspkg.ErrAlreadyConnected
	}
	c.channels[desc.ReplyTopic()] = struct{}{}
	return nil
}

// Connect pings the server and subscribes every registered reply channel.
// It returns once Redis confirmed each subscription.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errspkg.ErrClientClosed
	}
	if c.connected {
		return nil
	}

	rdb := ClientFactory(c.opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis: ping %s: %w", c.opts.Addr, err)
	}

	channels := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	if len(channels) > 0 {
		ps := rdb.Subscribe(ctx, channels...)
		for range channels {
			if _, err := ps.Receive(ctx); err != nil {
				_ = ps.Close()
				_ = rdb.Close()
				return fmt.Errorf("redis: subscribe: %w", err)
			}
		}
		c.pubsub = ps
		c.wg.Add(1)
		go c.consume(ps.Channel())
	}

	c.rdb = rdb
	c.connected = true
	c.logger.Info("Redis client connected", watermill.LogFields{"reply_channels": len(channels)})
	return nil
}

// Send publishes packet on the pattern channel of desc.
func (c *Client) Send(ctx context.Context, desc pattern.Descriptor, packet transport.Packet) (*transport.Call, error) {
	if desc.Family() != pattern.PointToPoint {
		return nil, fmt.Errorf("redis: cannot send to %s", desc)
	}
	packet.Pattern = desc.Pattern()

	body, err := transport.EncodePacket(packet)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.closed:
		return nil, errspkg.ErrClientClosed
	case !c.connected:
		return nil, errspkg.ErrNotConnected
	}
	if _, ok := c.channels[desc.ReplyTopic()]; !ok {
		return nil, fmt.Errorf("%w: %s", errspkg.ErrReplyNotSubscribed, desc.ReplyTopic())
	}

	call, err := c.calls.Open(packet.ID)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Publish(ctx, packet.Pattern, body).Err(); err != nil {
		call.Cancel(err)
		return nil, fmt.Errorf("redis: publish: %w", err)
	}
	return call, nil
}

// Close fails every pending call and closes both connections. It is
// idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.calls.Close(errspkg.ErrClientClosed)
	ps, rdb := c.pubsub, c.rdb
	c.mu.Unlock()

	var errs []error
	if ps != nil {
		errs = append(errs, ps.Close())
	}
	c.wg.Wait()
	if rdb != nil {
		errs = append(errs, rdb.Close())
		c.logger.Info("Redis client closed", nil)
	}
	return errors.Join(errs...)
}

// Pending returns the number of in-flight calls.
func (c *Client) Pending() int {
	return c.calls.Len()
}

func (c *Client) consume(messages <-chan *redis.Message) {
	defer c.wg.Done()
	for msg := range messages {
		reply, err := transport.DecodeReply([]byte(msg.Payload))
		if err != nil {
			c.logger.Error("Dropping undecodable reply", err, watermill.LogFields{"channel": msg.Channel})
			continue
		}
		if !c.calls.Deliver(reply) {
			c.logger.Trace("Dropping reply without pending call", watermill.LogFields{"correlation_id": reply.ID})
		}
	}
}
