package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/drblury/protogate/pattern"
)

// UnsupportedOperationError is returned when the active transport has no
// descriptor for the operation.
type UnsupportedOperationError = pattern.UnsupportedOperationError

// TransportError reports a connection-level failure: the connection is not
// started, was stopped, or the send or wait failed below the backend.
type TransportError struct {
	Module    string
	Backend   string
	Transport string
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dispatch: %s.%s via %s (%s): %v", e.Module, e.Operation, e.Transport, e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a failure the backend reported explicitly. StatusCode is
// zero when the backend did not carry one.
type RemoteError struct {
	Operation  string
	StatusCode int
	Message    string
	// Details is the error value exactly as the backend sent it.
	Details any
}

func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("dispatch: %s: remote error %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dispatch: %s: remote error: %s", e.Operation, e.Message)
}

// TimeoutError is returned when no terminal reply arrived before the
// deadline. The connection itself may be healthy.
type TimeoutError struct {
	Operation string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("dispatch: %s: no reply within %s", e.Operation, e.After)
	}
	return fmt.Sprintf("dispatch: %s: deadline exceeded", e.Operation)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// Timeout reports true so the error satisfies net.Error-style checks.
func (e *TimeoutError) Timeout() bool { return true }

// Outcome classifies the result of a call for logs and metrics.
func Outcome(err error) string {
	var (
		unsupported *UnsupportedOperationError
		remote      *RemoteError
		timeout     *TimeoutError
		transport   *TransportError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &unsupported):
		return "unsupported"
	case errors.As(err, &remote):
		return "remote"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &transport):
		return "transport"
	default:
		return "error"
	}
}

// newRemoteError builds a RemoteError from the err value of a reply frame.
func newRemoteError(op string, value any) *RemoteError {
	re := &RemoteError{Operation: op, Details: value}
	switch v := value.(type) {
	case map[string]any:
		re.StatusCode = statusCodeOf(v)
		re.Message = messageOf(v)
		if re.Message == "" {
			if s, ok := v["error"].(string); ok {
				re.Message = s
			}
		}
	case string:
		re.Message = v
	default:
		re.Message = fmt.Sprint(v)
	}
	if re.Message == "" {
		re.Message = "remote error"
	}
	return re
}

// statusCodeOf reads statusCode, or a numeric status, from a backend object.
func statusCodeOf(m map[string]any) int {
	if code, ok := toInt(m["statusCode"]); ok {
		return code
	}
	if code, ok := toInt(m["status"]); ok {
		return code
	}
	return 0
}

func messageOf(m map[string]any) string {
	switch msg := m["message"].(type) {
	case string:
		return msg
	case []any:
		parts := make([]string, 0, len(msg))
		for _, p := range msg {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		return fmt.Sprint(msg)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
