package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout sets a deadline on the request context. When it expires
// before the handler returns, a 504 is answered. A zero timeout disables
// the middleware.
//
// The handler runs on its own echo.Context backed by a buffered writer. Its
// response is copied to the client only if it finishes in time; writes made
// after the deadline fail with http.ErrHandlerTimeout.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			req := c.Request().WithContext(ctx)
			c.SetRequest(req)

			bw := &bufferedWriter{header: http.Header{}}
			inner := detach(c, req, bw)

			done := make(chan error, 1)
			go func() {
				done <- next(inner)
			}()

			select {
			case err := <-done:
				bw.flush(c.Response())
				return err
			case <-ctx.Done():
				bw.expire()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return echo.NewHTTPError(http.StatusGatewayTimeout, "request processing exceeded the allowed time limit")
				}
				// client went away
				return ctx.Err()
			}
		}
	}
}

// detach builds a context for the handler goroutine that shares nothing
// mutable with c.
func detach(c echo.Context, req *http.Request, w http.ResponseWriter) echo.Context {
	inner := c.Echo().NewContext(req, w)
	inner.SetPath(c.Path())
	inner.SetParamNames(c.ParamNames()...)
	inner.SetParamValues(c.ParamValues()...)
	if rid, ok := c.Get(RequestIDKey).(string); ok {
		inner.Set(RequestIDKey, rid)
	}
	for k, v := range c.Response().Header() {
		inner.Response().Header()[k] = append([]string(nil), v...)
	}
	return inner
}

type bufferedWriter struct {
	mu      sync.Mutex
	header  http.Header
	body    bytes.Buffer
	code    int
	expired bool
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired || w.code != 0 {
		return
	}
	w.code = code
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired {
		return 0, http.ErrHandlerTimeout
	}
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *bufferedWriter) expire() {
	w.mu.Lock()
	w.expired = true
	w.mu.Unlock()
}

// flush copies the buffered response to dst. It is only called after the
// handler goroutine has returned.
func (w *bufferedWriter) flush(dst *echo.Response) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, v := range w.header {
		dst.Header()[k] = v
	}
	if w.code == 0 {
		return
	}
	dst.WriteHeader(w.code)
	_, _ = dst.Write(w.body.Bytes())
}
