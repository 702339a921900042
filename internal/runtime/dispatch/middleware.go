package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	idspkg "github.com/drblury/protogate/internal/runtime/ids"
	loggingpkg "github.com/drblury/protogate/internal/runtime/logging"
)

const tracerName = "github.com/drblury/protogate/dispatch"

// DefaultMiddlewares returns the standard chain: tracing, metrics (when
// metrics is non-nil) and logging.
func DefaultMiddlewares(logger loggingpkg.ServiceLogger, metrics *Metrics) []Middleware {
	chain := []Middleware{TracingMiddleware()}
	if metrics != nil {
		chain = append(chain, metrics.Middleware())
	}
	return append(chain, LoggingMiddleware(logger))
}

// LoggingMiddleware logs each call at debug level and each failure at error
// level. Remote errors are the backend's answer and are logged at debug.
func LoggingMiddleware(logger loggingpkg.ServiceLogger) Middleware {
	if logger == nil {
		logger = loggingpkg.Nop()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			fields := loggingpkg.LogFields{
				"module":         req.Module,
				"backend":        req.Backend,
				"transport":      req.Transport,
				"operation":      req.Operation,
				"correlation_id": req.ID,
				"duration_ms":    time.Since(start).Milliseconds(),
				"outcome":        Outcome(err),
			}
			if issued, ok := idspkg.IssuedAt(req.ID); ok {
				fields["issued_at"] = issued.UTC().Format(time.RFC3339Nano)
			}
			switch Outcome(err) {
			case "ok", "remote", "canceled":
				logger.Debug("Dispatched call", fields)
			default:
				logger.Error("Dispatch failed", err, fields)
			}
			return resp, err
		}
	}
}

// TracingMiddleware wraps each call in a client span.
func TracingMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (Response, error) {
			ctx, span := otel.Tracer(tracerName).Start(ctx, "dispatch "+req.Operation,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("gateway.module", req.Module),
					attribute.String("gateway.backend", req.Backend),
					attribute.String("gateway.transport", req.Transport),
					attribute.String("gateway.operation", req.Operation),
					attribute.String("messaging.message.id", req.ID),
				),
			)
			defer span.End()

			resp, err := next(ctx, req)
			span.SetAttributes(
				attribute.String("gateway.pattern", req.Descriptor.Pattern()),
				attribute.String("gateway.outcome", Outcome(err)),
			)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return resp, err
		}
	}
}
