package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelErrorsArePrefixed(t *testing.T) {
	all := []error{
		ErrNotStarted, ErrStopped, ErrNotConnected, ErrClientClosed, ErrAlreadyConnected,
		ErrReplyNotSubscribed, ErrDuplicateCall, ErrConnectionLost, ErrFrameTooLarge,
		ErrMalformedFrame, ErrOperationRequired, ErrRegistryRequired, ErrTransportRequired,
		ErrDispatcherNotFound, ErrUnknownTransport, ErrTransportConfigRequired,
	}
	for _, err := range all {
		if !strings.HasPrefix(err.Error(), "protogate: ") {
			t.Errorf("expected protogate prefix, got %q", err.Error())
		}
	}
}

func TestSentinelErrorsWrap(t *testing.T) {
	wrapped := fmt.Errorf("send findBrandById: %w", ErrNotConnected)
	if !errors.Is(wrapped, ErrNotConnected) {
		t.Fatal("expected wrapped error to match sentinel")
	}
	if errors.Is(wrapped, ErrClientClosed) {
		t.Fatal("sentinels must be distinct")
	}
}
