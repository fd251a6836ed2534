// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/pkg/constants"
)

// routes are the HTTP handlers of the attendance API.
type routes struct {
	health  *handlers.HealthHandler
	webhook *handlers.ZoomWebhookHandler
	admin   *handlers.AdminHandler
	auth    middleware.PrincipalParser
}

// newRouter mounts the routes behind the request middleware.
func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()

	// Note: Order matters - RequestIDMiddleware must run first so that every
	// later log line carries the request id, and the webhook body must be
	// captured before anything reads it.
	r.Use(
		middleware.RequestIDMiddleware(),
		middleware.RequestLoggerMiddleware(),
		middleware.WebhookBodyCaptureMiddleware(constants.MaxWebhookBodyBytes),
	)

	r.Get("/livez", rt.health.Livez)
	r.Get("/readyz", rt.health.Readyz)
	r.Method(http.MethodPost, constants.ZoomWebhookPath, rt.webhook)
	r.Route(constants.AdminPathPrefix, func(r chi.Router) {
		r.Use(middleware.AdminAuthMiddleware(rt.auth))
		rt.admin.Routes(r)
	})

	return otelhttp.NewHandler(r, "attendance-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/livez" && r.URL.Path != "/readyz"
		}),
	)
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, handler http.Handler, gracefulCloseWG *sync.WaitGroup) *http.Server {
	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}
