package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/protogate/internal/runtime/metadata"
	"github.com/drblury/protogate/pattern"
)

// TopicClient implements Client on top of a Watermill publisher and
// subscriber. Requests are published on the operation topic; replies arrive on
// the derived reply topic and are correlated by the correlation_id header.
type TopicClient struct {
	name       string
	clientID   string
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	calls      *Calls
	keys       metadatapkg.Keys

	mu        sync.Mutex
	topics    map[string]struct{}
	order     []string
	connected bool
	closed    bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	starters  []func(ctx context.Context) error
	closers   []func() error
}

// TopicOption configures a TopicClient.
type TopicOption func(*TopicClient)

// WithHeaderKeys sets the header naming of requests and replies. It defaults
// to metadata.DefaultKeys.
func WithHeaderKeys(keys metadatapkg.Keys) TopicOption {
	return func(c *TopicClient) { c.keys = keys }
}

// NewTopicClient wraps a publisher/subscriber pair. name identifies the
// transport in logs.
func NewTopicClient(name, clientID string, pub message.Publisher, sub message.Subscriber, logger watermill.LoggerAdapter, opts ...TopicOption) *TopicClient {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	c := &TopicClient{
		name:       name,
		clientID:   clientID,
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With(watermill.LogFields{"transport": name, "client_id": clientID}),
		calls:      NewCalls(),
		keys:       metadatapkg.DefaultKeys,
		topics:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnConnect registers fn to run once every reply topic is subscribed.
func (c *TopicClient) OnConnect(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starters = append(c.starters, fn)
}

// OnClose registers fn to run after the publisher and subscriber are closed.
func (c *TopicClient) OnClose(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, fn)
}

// SubscribeToResponseOf registers the reply topic of desc. It must be called
// before Connect.
func (c *TopicClient) SubscribeToResponseOf(desc pattern.Descriptor) error {
	if desc.Family() != pattern.Topic {
		return fmt.Errorf("%s: cannot subscribe to reply of %s", c.name, desc)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errspkg.ErrClientClosed
	}
	if c.connected {
		return fmt.Errorf("%w: %s", errspkg.ErrAlreadyConnected, desc.ReplyTopic())
	}
	topic := desc.ReplyTopic()
	if _, ok := c.topics[topic]; !ok {
		c.topics[topic] = struct{}{}
		c.order = append(c.order, topic)
	}
	return nil
}

// Connect subscribes every registered reply topic and starts consuming them.
func (c *TopicClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errspkg.ErrClientClosed
	}
	if c.connected {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	for _, topic := range c.order {
		messages, err := c.subscriber.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			c.wg.Wait()
			return fmt.Errorf("%s: subscribe %s: %w", c.name, topic, err)
		}
		c.logger.Debug("Subscribed to reply topic", watermill.LogFields{"topic": topic})

		c.wg.Add(1)
		go c.consume(topic, messages)
	}
	for _, start := range c.starters {
		if err := start(ctx); err != nil {
			cancel()
			c.wg.Wait()
			return fmt.Errorf("%s: start: %w", c.name, err)
		}
	}

	c.cancel = cancel
	c.connected = true
	c.logger.Info("Topic client connected", watermill.LogFields{"reply_topics": len(c.order)})
	return nil
}

// Send publishes packet on the topic of desc.
func (c *TopicClient) Send(ctx context.Context, desc pattern.Descriptor, packet Packet) (*Call, error) {
	if desc.Family() != pattern.Topic {
		return nil, fmt.Errorf("%s: cannot send to %s", c.name, desc)
	}

	c.mu.Lock()
	connected, closed := c.connected, c.closed
	_, subscribed := c.topics[desc.ReplyTopic()]
	c.mu.Unlock()

	switch {
	case closed:
		return nil, errspkg.ErrClientClosed
	case !connected:
		return nil, errspkg.ErrNotConnected
	case !subscribed:
		return nil, fmt.Errorf("%w: %s", errspkg.ErrReplyNotSubscribed, desc.ReplyTopic())
	}

	body, err := jsoncodec.Marshal(packet.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: encode %s: %w", c.name, desc.Topic, err)
	}

	call, err := c.calls.Open(packet.ID)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(packet.ID, body)
	msg.Metadata = c.keys.Request(packet.ID, desc.ReplyTopic(), desc.Pattern(), c.clientID)
	msg.SetContext(ctx)

	if err := c.publisher.Publish(desc.Topic, msg); err != nil {
		call.Cancel(err)
		return nil, fmt.Errorf("%s: publish %s: %w", c.name, desc.Topic, err)
	}
	return call, nil
}

// Close stops consuming, closes publisher and subscriber, and fails every
// pending call. It is idempotent.
func (c *TopicClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	closers := c.closers
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.calls.Close(errspkg.ErrClientClosed)

	var errs []error
	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}
	if c.subscriber != nil {
		errs = append(errs, c.subscriber.Close())
	}
	c.wg.Wait()
	for _, fn := range closers {
		errs = append(errs, fn())
	}
	c.logger.Info("Topic client closed", nil)
	return errors.Join(errs...)
}

// Pending returns the number of in-flight calls.
func (c *TopicClient) Pending() int {
	return c.calls.Len()
}

func (c *TopicClient) consume(topic string, messages <-chan *message.Message) {
	defer c.wg.Done()
	for msg := range messages {
		reply, err := decodeReplyMessage(msg, c.keys)
		if err != nil {
			c.logger.Error("Dropping undecodable reply", err, watermill.LogFields{"topic": topic, "message_uuid": msg.UUID})
			msg.Ack()
			continue
		}
		if !c.calls.Deliver(reply) {
			c.logger.Trace("Dropping reply without pending call", watermill.LogFields{"topic": topic, "correlation_id": reply.ID})
		}
		msg.Ack()
	}
}

// DecodeReplyMessage extracts a Reply from a reply message. The payload is
// either a Reply envelope or the bare response value; the correlation id falls
// back to the correlation_id header and errors may travel in the error header.
func DecodeReplyMessage(msg *message.Message) (Reply, error) {
	return decodeReplyMessage(msg, metadatapkg.DefaultKeys)
}

func decodeReplyMessage(msg *message.Message, keys metadatapkg.Keys) (Reply, error) {
	var raw map[string]any
	var reply Reply

	if len(msg.Payload) > 0 {
		if err := jsoncodec.Unmarshal(msg.Payload, &raw); err == nil && isEnvelope(raw) {
			decoded, err := DecodeReply(msg.Payload)
			if err != nil {
				return Reply{}, err
			}
			reply = decoded
		} else {
			var value any
			if err := jsoncodec.Unmarshal(msg.Payload, &value); err != nil {
				return Reply{}, fmt.Errorf("%w: %v", errspkg.ErrMalformedFrame, err)
			}
			reply.Response = value
			reply.IsDisposed = true
		}
	}

	if reply.ID == "" {
		reply.ID = keys.CorrelationIDOf(msg.Metadata)
	}
	if reply.ID == "" {
		return Reply{}, fmt.Errorf("%w: reply without correlation id", errspkg.ErrMalformedFrame)
	}
	if reply.Err == nil {
		if headerErr, ok := keys.RemoteError(msg.Metadata); ok {
			var decoded any
			if err := jsoncodec.Unmarshal([]byte(headerErr), &decoded); err != nil {
				decoded = headerErr
			}
			reply.Err = decoded
		}
	}
	if keys.Disposed(msg.Metadata) {
		reply.IsDisposed = true
	}
	return reply, nil
}

// DecodeRequestMessage extracts the Packet carried by a request message.
func DecodeRequestMessage(msg *message.Message) (Packet, error) {
	packet := Packet{
		ID:      msg.Metadata.Get(metadatapkg.CorrelationIDKey),
		Pattern: msg.Metadata.Get(metadatapkg.PatternKey),
	}
	if len(msg.Payload) > 0 {
		if err := jsoncodec.Unmarshal(msg.Payload, &packet.Data); err != nil {
			return Packet{}, fmt.Errorf("decode request %s: %w", msg.UUID, err)
		}
	}
	return packet, nil
}

// NewReplyMessage builds the reply message a backend publishes for request.
// It is used by in-process responders and tests.
func NewReplyMessage(request *message.Message, reply Reply) (*message.Message, error) {
	headers := metadatapkg.Reply(request.Metadata, reply.ID)
	reply.ID = headers.Get(metadatapkg.CorrelationIDKey)
	body, err := EncodeReply(reply)
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata = headers
	return msg, nil
}

func isEnvelope(raw map[string]any) bool {
	if raw == nil {
		return false
	}
	for _, key := range []string{"response", "err", "isDisposed"} {
		if _, ok := raw[key]; ok {
			return true
		}
	}
	return false
}
