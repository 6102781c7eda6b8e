package main

import (
	"fmt"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/logging"
	"log/slog"
	"net/http"
	"time"
)

const timeoutBody = `{"error":"The suspect took too long to answer. Please try again."}`

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
			start  = time.Now()
		)
		ctx := logging.WithAttrs(r.Context(), slog.String("method", method), slog.String("uri", uri))
		r = r.WithContext(ctx)

		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request", slog.String("proto", proto))

		next.ServeHTTP(w, r)

		app.logger.LogAttrs(ctx, slog.LevelDebug, "handled request", slog.Duration("duration", time.Since(start)))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.New(fmt.Sprintf("panic: %v", err)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// timeout responds with 503 Service Unavailable when the handler does not meet the deadline.
func (app *application) timeout(next http.Handler) http.Handler {
	// The handler deadline is a little shorter than the server's write timeout so that the timeout response has a
	// chance to reach the client before the server closes the connection.
	handlerTimeout := app.requestTimeout() - 500*time.Millisecond //nolint:mnd // 500ms
	return http.TimeoutHandler(next, handlerTimeout, timeoutBody)
}
