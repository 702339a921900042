package protogate

import (
	"os"

	runtimepkg "github.com/drblury/protogate/internal/runtime"
	configpkg "github.com/drblury/protogate/internal/runtime/config"
	"github.com/drblury/protogate/internal/runtime/dispatch"
	errspkg "github.com/drblury/protogate/internal/runtime/errors"
	"github.com/drblury/protogate/internal/runtime/httpapi"
	idspkg "github.com/drblury/protogate/internal/runtime/ids"
	jsoncodec "github.com/drblury/protogate/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/protogate/internal/runtime/logging"
	"github.com/drblury/protogate/modules"
	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
)

type (
	Config              = configpkg.Config
	BackendConfig       = configpkg.Backend
	Endpoint            = configpkg.Endpoint
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	ResourceUsage       = runtimepkg.ResourceUsage

	Module = modules.Module
	Route  = modules.Route
	Shape  = modules.Shape

	Definition = pattern.Definition
	Registry   = pattern.Registry
	Descriptor = pattern.Descriptor
	Kind       = pattern.Kind
	Gap        = pattern.Gap

	Dispatcher       = dispatch.Dispatcher
	Connection       = dispatch.Connection
	ConnectionStatus = dispatch.ConnectionStatus
	Request          = dispatch.Request
	Response         = dispatch.Response
	Middleware       = dispatch.Middleware
	Metrics          = dispatch.Metrics

	UnsupportedOperationError = dispatch.UnsupportedOperationError
	TransportError            = dispatch.TransportError
	RemoteError               = dispatch.RemoteError
	TimeoutError              = dispatch.TimeoutError

	Payload          = transport.Payload
	Packet           = transport.Packet
	Reply            = transport.Reply
	TransportBuilder = transport.Builder
	TransportConfig  = transport.Config
	TransportClient  = transport.Client

	Envelope     = httpapi.Envelope
	ErrorBody    = httpapi.ErrorBody
	HealthReport = httpapi.HealthReport

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
)

var (
	NewService = runtimepkg.NewService
	LoadConfig = configpkg.Load

	Modules  = modules.All
	Backends = modules.Backends
	Define   = pattern.Define

	NewDispatcher      = dispatch.New
	NewConnection      = dispatch.NewConnection
	NewManager         = dispatch.NewManager
	NewMetrics         = dispatch.NewMetrics
	DefaultMiddlewares = dispatch.DefaultMiddlewares
	Outcome            = dispatch.Outcome
	StatusOf           = httpapi.StatusOf

	RegisterTransport = transport.Register
	BuildTransport    = transport.Build

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal

	ErrOperationRequired  = errspkg.ErrOperationRequired
	ErrDispatcherNotFound = errspkg.ErrDispatcherNotFound
	ErrStopped            = errspkg.ErrStopped
	ErrConnectionLost     = errspkg.ErrConnectionLost

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NopLogger            = loggingpkg.Nop

	CreateULID = idspkg.CreateULID
)

// Transport kinds accepted by Config.Transport and the per-backend overrides.
const (
	TCP      = pattern.TCP
	NATS     = pattern.NATS
	REDIS    = pattern.REDIS
	KAFKA    = pattern.KAFKA
	RABBITMQ = pattern.RABBITMQ
	AWS      = pattern.AWS
	HTTP     = pattern.HTTP
	CHANNEL  = pattern.CHANNEL
)

// NewLogger builds a ServiceLogger from the LOG_FORMAT and LOG_LEVEL settings
// of conf, writing to standard error.
func NewLogger(conf *Config) (ServiceLogger, error) {
	log, err := loggingpkg.NewSlog(conf.LogFormat, conf.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}
	return loggingpkg.NewSlogServiceLogger(log), nil
}
