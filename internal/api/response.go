package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/Belphemur/ShowTracker/internal/config"
)

// MsgInternalError is the message of every 500 response; details only go to the logs.
const MsgInternalError = "Internal server error"

// ErrResultNotMapping is returned by NewEnvelope when data is not a map with string keys.
var ErrResultNotMapping = errors.New("envelope result must be a map with string keys")

// Envelope is the uniform body of every API response.
// Result is either nil or a mapping from the name of the data type to the data itself,
// e.g. {"show": {...}} or {"shows": [...]}.
type Envelope struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

// NewEnvelope builds the envelope for status. success is true for 2xx statuses.
// Passing anything other than nil or a map with string keys as data is a programming error.
func NewEnvelope(data any, status int, message string) (Envelope, error) {
	env := Envelope{
		Code:    status,
		Success: status >= 200 && status < 300,
		Message: message,
	}
	if data == nil {
		return env, nil
	}

	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return Envelope{}, fmt.Errorf("%w: got %T", ErrResultNotMapping, data)
	}
	if v.IsNil() {
		return env, nil
	}
	env.Result = data
	return env, nil
}

// respond writes the envelope for status. A formatter failure is logged, reported and turned
// into a 500 envelope.
func respond(c *gin.Context, status int, message string, data any) {
	env, err := NewEnvelope(data, status, message)
	if err != nil {
		reportError(c, err)
		status = http.StatusInternalServerError
		env, _ = NewEnvelope(nil, status, MsgInternalError)
	}
	c.JSON(status, env)
}

// abort writes an envelope without result and stops the handler chain.
func abort(c *gin.Context, status int, message string) {
	env, _ := NewEnvelope(nil, status, message)
	c.AbortWithStatusJSON(status, env)
}

// reportError logs err with the request context and sends it to Sentry when configured.
func reportError(c *gin.Context, err error) {
	logger := config.GetLogger()
	logger.Error().
		Err(err).
		Str("request_id", c.GetString(requestIDKey)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("Request failed")

	hubFromContext(c).CaptureException(err)
}

// hubFromContext returns the request-scoped Sentry hub set by the recovery middleware.
func hubFromContext(c *gin.Context) *sentry.Hub {
	if v, ok := c.Get(sentryHubKey); ok {
		if hub, ok := v.(*sentry.Hub); ok {
			return hub
		}
	}
	return sentry.CurrentHub()
}
