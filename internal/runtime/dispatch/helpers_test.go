package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	loggingpkg "github.com/drblury/protogate/internal/runtime/logging"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
	"github.com/drblury/protogate/transport/transporttest"
)

var warehouse = pattern.Define("warehouse").
	Op("findWarehouseById", "find-warehouse-by-id").
	Op("createWarehouse", "create-warehouse").
	Op("restoreWarehouse", "restore-warehouse", pattern.PointToPointOnly()).
	MustBuild()

// sharedChannel returns an in-memory pub/sub and a builder producing topic
// clients on it.
func sharedChannel(t *testing.T) (*gochannel.GoChannel, transport.Builder) {
	t.Helper()
	shared := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	build := func(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Client, error) {
		return transport.NewTopicClient("channel", cfg.GetClientID(), shared, shared, logger), nil
	}
	return shared, build
}

func newConnection(t *testing.T, transportName string, build transport.Builder) *Connection {
	t.Helper()
	cfg := &transporttest.Config{Transport: transportName, ClientID: "warehouse-api-gateway"}
	conn, err := NewConnection("PRODUCT_MICROSERVICE", warehouse, cfg, WithBuilder(build))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Stop() })
	return conn
}

func startedDispatcher(t *testing.T, transportName string, build transport.Builder, opts Options) *Dispatcher {
	t.Helper()
	conn := newConnection(t, transportName, build)
	require.NoError(t, conn.Start(context.Background()))
	return New(conn, opts)
}

// fakeClient records its lifecycle and echoes every payload back.
type fakeClient struct {
	mu         sync.Mutex
	events     []string
	connectErr error
	gate       chan struct{}
	calls      *transport.Calls
}

func newFakeClient() *fakeClient {
	return &fakeClient{calls: transport.NewCalls()}
}

func (f *fakeClient) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeClient) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeClient) SubscribeToResponseOf(desc pattern.Descriptor) error {
	f.record("subscribe " + desc.ReplyTopic())
	return nil
}

func (f *fakeClient) Connect(ctx context.Context) error {
	if f.gate != nil {
		<-f.gate
	}
	f.record("connect")
	return f.connectErr
}

func (f *fakeClient) Send(_ context.Context, _ pattern.Descriptor, packet transport.Packet) (*transport.Call, error) {
	call, err := f.calls.Open(packet.ID)
	if err != nil {
		return nil, err
	}
	f.calls.Deliver(transport.Reply{ID: packet.ID, Response: map[string]any(packet.Data), IsDisposed: true})
	return call, nil
}

func (f *fakeClient) Close() error {
	f.record("close")
	f.calls.Close(errspkg.ErrClientClosed)
	return nil
}

func (f *fakeClient) builder() transport.Builder {
	return func(context.Context, transport.Config, watermill.LoggerAdapter) (transport.Client, error) {
		return f, nil
	}
}

// plainClient is a client without reply subscriptions.
type plainClient struct{ inner *fakeClient }

func (p plainClient) Connect(ctx context.Context) error { return p.inner.Connect(ctx) }
func (p plainClient) Close() error                      { return p.inner.Close() }
func (p plainClient) Send(ctx context.Context, d pattern.Descriptor, packet transport.Packet) (*transport.Call, error) {
	return p.inner.Send(ctx, d, packet)
}

type recordedLog struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []recordedLog
}

func (r *recordingLogger) add(e recordedLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingLogger) Entries() []recordedLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedLog(nil), r.entries...)
}

func (r *recordingLogger) With(loggingpkg.LogFields) loggingpkg.ServiceLogger { return r }
func (r *recordingLogger) Debug(msg string, f loggingpkg.LogFields) {
	r.add(recordedLog{level: "debug", msg: msg, fields: f})
}
func (r *recordingLogger) Info(msg string, f loggingpkg.LogFields) {
	r.add(recordedLog{level: "info", msg: msg, fields: f})
}
func (r *recordingLogger) Error(msg string, err error, f loggingpkg.LogFields) {
	r.add(recordedLog{level: "error", msg: msg, err: err, fields: f})
}
func (r *recordingLogger) Trace(msg string, f loggingpkg.LogFields) {
	r.add(recordedLog{level: "trace", msg: msg, fields: f})
}
