package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Bind decodes the JSON request body into v. Unknown fields, trailing data
// and empty bodies are rejected with 400.
func Bind(c echo.Context, v any) error {
	body := c.Request().Body
	if body == nil || body == http.NoBody {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is required")
	}

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if he := tooLarge(err); he != nil {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "request body must contain a single JSON value")
	}
	return nil
}

func decodeError(err error) error {
	if he := tooLarge(err); he != nil {
		return he
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return echo.NewHTTPError(http.StatusBadRequest, "request body is required")
	case errors.As(err, &syntaxErr):
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	case errors.As(err, &typeErr):
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("field %q must be %s", typeErr.Field, typeErr.Type))
	}
	// json reports unknown fields as a plain error: `json: unknown field "x"`
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func tooLarge(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
		return he
	}
	return nil
}
