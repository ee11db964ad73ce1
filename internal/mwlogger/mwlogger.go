// Package mwlogger attaches a request-scoped logger to every API call so the
// job handlers and services can correlate log lines by request id.
package mwlogger

import (
	"context"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/helpers"
	"github.com/wb-go/wbf/zlog"
)

type ctxKey struct{}

// New wraps the engine so every request carries a zerolog logger tagged with
// a request id, method and path. The id comes from the X-Request-Id header
// when the caller supplies one and is echoed back on the response either way.
func New(next *ginext.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = helpers.CreateUUID()
		}
		w.Header().Set("X-Request-Id", reqID)

		logger := zlog.Logger.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		ctx := context.WithValue(r.Context(), ctxKey{}, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the request logger. Calls that did not come through
// the HTTP surface (worker, CLI) get the global logger instead.
func FromContext(ctx context.Context) zlog.Zerolog {
	if l, ok := ctx.Value(ctxKey{}).(zlog.Zerolog); ok {
		return l
	}
	return zlog.Logger
}
