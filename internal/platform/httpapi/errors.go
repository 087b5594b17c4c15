// Package httpapi renders every failure in the {"error", "message"} envelope
// and decodes request bodies strictly.
package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Code names used for transport-level failures. Engine failures use their
// stats.Kind.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeTooLarge       = "payload_too_large"
	CodeTimeout        = "timeout"
	CodeInternal       = "internal"
)

var codes = map[int]string{
	http.StatusBadRequest:            CodeInvalidRequest,
	http.StatusUnauthorized:          CodeUnauthorized,
	http.StatusForbidden:             CodeForbidden,
	http.StatusNotFound:              CodeNotFound,
	http.StatusRequestEntityTooLarge: CodeTooLarge,
	http.StatusGatewayTimeout:        CodeTimeout,
	http.StatusInternalServerError:   CodeInternal,
}

// Resolve maps err onto a status code and envelope.
func Resolve(err error) (int, ErrorBody) {
	if p := stats.AsProblem(err); p != nil {
		return http.StatusUnprocessableEntity, ErrorBody{Error: string(p.Error), Message: p.Message}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code, ok := codes[he.Code]
		if !ok {
			code = strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_")
		}
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, ErrorBody{Error: code, Message: msg}
	}

	return http.StatusInternalServerError, ErrorBody{Error: CodeInternal, Message: "internal server error"}
}

// ErrorHandler is installed as echo's HTTPErrorHandler. Unexpected errors
// are logged; their text is never sent to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := Resolve(err)
		if status == http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Str("route", c.Path()).Msg("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
