// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/middleware"
)

// Route parameters of the admin API
const (
	MeetingUUIDParam = "meeting_uuid"
	WorkshopIDParam  = "workshop_id"
	UserIDParam      = "user_id"
)

// ReconciliationJobs reads and re-arms reconciliation jobs.
type ReconciliationJobs interface {
	Get(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, error)
	Retrigger(ctx context.Context, meetingUUID string) (*models.ReconciliationJob, error)
}

// ParticipantReader reads the participant ledger.
type ParticipantReader interface {
	Find(ctx context.Context, userID, workshopID string) (*models.ParticipantRecord, error)
	ListByWorkshop(ctx context.Context, workshopID string) ([]*models.ParticipantRecord, error)
}

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	jobs         ReconciliationJobs
	participants ParticipantReader
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(jobs ReconciliationJobs, participants ParticipantReader) *AdminHandler {
	return &AdminHandler{jobs: jobs, participants: participants}
}

// ParticipantsResponse lists the ledger records of a workshop.
type ParticipantsResponse struct {
	WorkshopID   string                      `json:"workshop_id"`
	Participants []*models.ParticipantRecord `json:"participants"`
}

// Routes registers the admin endpoints on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/reconciliations/{"+MeetingUUIDParam+"}", h.GetReconciliation)
	r.Post("/reconciliations/{"+MeetingUUIDParam+"}", h.RetriggerReconciliation)
	r.Get("/workshops/{"+WorkshopIDParam+"}/participants", h.ListParticipants)
	r.Get("/workshops/{"+WorkshopIDParam+"}/participants/{"+UserIDParam+"}", h.GetParticipant)
}

// GetReconciliation returns the reconciliation job of a meeting.
func (h *AdminHandler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, MeetingUUIDParam))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// RetriggerReconciliation re-arms the reconciliation of a meeting to run now.
func (h *AdminHandler) RetriggerReconciliation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meetingUUID := chi.URLParam(r, MeetingUUIDParam)

	job, err := h.jobs.Retrigger(ctx, meetingUUID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	principal, _ := middleware.GetPrincipal(ctx)
	slog.InfoContext(ctx, "reconciliation re-triggered by operator",
		"meeting_uuid", meetingUUID,
		"principal", principal)
	writeJSON(w, http.StatusAccepted, job)
}

// ListParticipants returns every ledger record of a workshop.
func (h *AdminHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	workshopID := chi.URLParam(r, WorkshopIDParam)
	records, err := h.participants.ListByWorkshop(r.Context(), workshopID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []*models.ParticipantRecord{}
	}
	writeJSON(w, http.StatusOK, ParticipantsResponse{WorkshopID: workshopID, Participants: records})
}

// GetParticipant returns the ledger record of one user in a workshop.
func (h *AdminHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	record, err := h.participants.Find(r.Context(), chi.URLParam(r, UserIDParam), chi.URLParam(r, WorkshopIDParam))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
