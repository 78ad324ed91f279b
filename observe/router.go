// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observe

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/rsvp/lib/registry"
)

// EventSource is the read side of the event registry.
type EventSource interface {
	List() []registry.Snapshot
	Get(eventID string) (registry.Snapshot, bool)
}

// RouterConfig wires the admin handler to the running coordinator.
type RouterConfig struct {
	Gatherer prometheus.Gatherer
	Events   EventSource

	// Health returns nil while the coordinator can do its job. Nil
	// means always healthy.
	Health func() error

	Logger *slog.Logger
}

// NewRouter returns the admin HTTP handler.
func NewRouter(config RouterConfig) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	if config.Logger != nil {
		router.Use(requestLogger(config.Logger))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if config.Health != nil {
			if err := config.Health(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if config.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/events", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, config.Events.List())
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			snapshot, exists := config.Events.Get(chi.URLParam(r, "id"))
			if !exists {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
				return
			}
			writeJSON(w, http.StatusOK, snapshot)
		})
	})

	return router
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			logger.Debug("admin request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
