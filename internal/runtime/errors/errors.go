package errors

import sterrors "errors"

var (
	ErrNotStarted         = sterrors.New("protogate: connection is not started")
	ErrStopped            = sterrors.New("protogate: connection is stopped")
	ErrNotConnected       = sterrors.New("protogate: transport client is not connected")
	ErrClientClosed       = sterrors.New("protogate: transport client is closed")
	ErrAlreadyConnected   = sterrors.New("protogate: reply subscriptions must be registered before connect")
	ErrReplyNotSubscribed = sterrors.New("protogate: reply topic is not subscribed")
	ErrDuplicateCall      = sterrors.New("protogate: call id is already pending")
	ErrConnectionLost     = sterrors.New("protogate: connection lost")
	ErrFrameTooLarge      = sterrors.New("protogate: frame exceeds maximum size")
	ErrMalformedFrame     = sterrors.New("protogate: malformed frame")
	ErrOperationRequired  = sterrors.New("protogate: operation name is required")
	ErrRegistryRequired   = sterrors.New("protogate: pattern registry is required")
	ErrTransportRequired  = sterrors.New("protogate: transport name is required")
	ErrUnknownTransport   = sterrors.New("protogate: unknown transport")

	ErrTransportConfigRequired = sterrors.New("protogate: transport config is required")
	ErrDispatcherNotFound      = sterrors.New("protogate: no dispatcher for module")
)
