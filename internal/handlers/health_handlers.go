// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/service"
)

// HealthHandler serves the Kubernetes probes.
type HealthHandler struct {
	services []service.Service
}

// NewHealthHandler creates a HealthHandler that is ready once all services are.
func NewHealthHandler(services ...service.Service) *HealthHandler {
	return &HealthHandler{services: services}
}

// Readyz checks if the service is able to take inbound requests.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	for _, s := range h.services {
		if s == nil || !s.ServiceReady() {
			writeError(w, r, domain.NewUnavailableError("service unavailable"))
			return
		}
	}
	writeText(w, "OK\n")
}

// Livez checks if the service is alive.
func (h *HealthHandler) Livez(w http.ResponseWriter, _ *http.Request) {
	// This always returns as long as the service is still running. As this
	// endpoint is expected to be used as a Kubernetes liveness check, this
	// service must likewise self-detect non-recoverable errors and
	// self-terminate.
	writeText(w, "OK\n")
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
