// Package http provides a webhook style topic transport. Requests are POSTed to
// <publisher URL>/<topic>; backends POST replies to this gateway's reply
// listener at /<topic>.reply.
package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/protogate/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "http"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(config http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(config, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(addr string, config http.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return http.NewSubscriber(addr, config, logger)
}

func init() {
	Register()
}

// Register registers the HTTP transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.HTTPCapabilities)
}

// Build creates a new HTTP topic client.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Client, error) {
	publisherURL := strings.TrimRight(cfg.GetHTTPPublisherURL(), "/")
	if publisherURL == "" {
		return nil, errors.New("http: publisher URL is required")
	}
	listenAddr := cfg.GetHTTPServerAddress()
	if listenAddr == "" {
		return nil, errors.New("http: reply listen address is required")
	}

	publisher, err := PublisherFactory(
		http.PublisherConfig{
			MarshalMessageFunc: func(topic string, msg *message.Message) (*nethttp.Request, error) {
				return http.DefaultMarshalMessageFunc(publisherURL+"/"+topic, msg)
			},
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	subscriber, err := SubscriberFactory(
		listenAddr,
		http.SubscriberConfig{
			UnmarshalMessageFunc: http.DefaultUnmarshalMessageFunc,
		},
		logger,
	)
	if err != nil {
		return nil, errors.Join(err, publisher.Close())
	}

	client := transport.NewTopicClient(TransportName, cfg.GetClientID(), publisher, pathSubscriber{inner: subscriber}, logger)
	client.OnConnect(func(context.Context) error {
		startServer(subscriber, logger)
		return nil
	})
	return client, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.HTTPCapabilities
}

// The reply server can only be started once every route is registered.
func startServer(subscriber message.Subscriber, logger watermill.LoggerAdapter) {
	s, ok := subscriber.(*http.Subscriber)
	if !ok {
		return
	}
	go func() {
		if err := s.StartHTTPServer(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Error("HTTP reply server stopped", err, nil)
		}
	}()
}

// pathSubscriber maps topic names onto URL paths of the reply server.
type pathSubscriber struct {
	inner message.Subscriber
}

func (p pathSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.inner.Subscribe(ctx, "/"+topic)
}

func (p pathSubscriber) Close() error {
	return p.inner.Close()
}
