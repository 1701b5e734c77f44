// Package logging carries a request-scoped zap logger through the context.
package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type CtxKey int8

const (
	CtxKeyLogger CtxKey = iota
)

// New builds the process logger: JSON in production, console otherwise.
func New(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}

// WithLogger stores l in ctx.
func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, CtxKeyLogger, l)
}

// FromContext returns the request logger, or a no-op logger when none was
// set.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(CtxKeyLogger).(*zap.SugaredLogger); ok {
		return l
	}

	return zap.NewNop().Sugar()
}

// Middleware injects a logger tagged with the request id and writes one
// access line per request.
func Middleware(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base
			if id := middleware.GetReqID(r.Context()); id != "" {
				l = l.With("request_id", id)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(WithLogger(r.Context(), l)))

			l.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
