package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drblury/protogate/internal/runtime/dispatch"
)

// Envelope wraps every successful response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// ErrorBody is returned for every failed request.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// requestError rejects a request before anything is dispatched.
type requestError struct {
	code    int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) error {
	return &requestError{code: http.StatusBadRequest, message: message}
}

// StatusOf maps an error onto the HTTP status and message returned to the
// caller. A status code carried by the backend wins; anything else is a 500,
// except for deadlines which answer 504.
func StatusOf(err error) (int, string) {
	var (
		reqErr    *requestError
		remoteErr *dispatch.RemoteError
		timeout   *dispatch.TimeoutError
	)
	switch {
	case errors.As(err, &reqErr):
		return reqErr.code, reqErr.message
	case errors.As(err, &remoteErr):
		code := remoteErr.StatusCode
		if code < 400 || code > 599 {
			code = http.StatusInternalServerError
		}
		return code, remoteErr.Message
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeError(c *gin.Context, err error) {
	code, message := StatusOf(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(code, ErrorBody{StatusCode: code, Message: message})
}

func writeResponse(c *gin.Context, resp dispatch.Response) {
	env := Envelope{
		StatusCode: http.StatusOK,
		Status:     resp.Status(),
		Message:    resp.Message(),
	}
	if data, ok := resp.Data(); ok {
		env.Data = data
	}
	c.JSON(http.StatusOK, env)
}
