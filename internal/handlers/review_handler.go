package handlers

import (
	"encoding/json"
	"net/http"

	"carbon-filing/internal/service"
)

// ReviewHandler handles admin review requests
type ReviewHandler struct {
	entries *service.EntryService
	sweeper Sweeper
}

// Sweeper triggers one orphan sweep on demand
type Sweeper interface {
	RunOnce() error
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(entries *service.EntryService, sweeper Sweeper) *ReviewHandler {
	return &ReviewHandler{entries: entries, sweeper: sweeper}
}

// RejectRequest carries the mandatory rejection reason
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ListReviews returns all entries awaiting review
// @Summary List submitted entries
// @Tags Admin
// @Produce json
// @Success 200 {array} models.Entry
// @Router /admin/reviews [get]
// @Security BearerAuth
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.ListSubmitted()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	_ = JSONResponse(w, entries)
}

// Approve approves a submitted entry
// @Summary Approve an entry
// @Tags Admin
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Entry is not submitted"
// @Router /admin/reviews/{id}/approve [post]
// @Security BearerAuth
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	reviewerID, _, ok := callerIdentity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.entries.Approve(r.PathValue("id"), reviewerID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = JSONResponse(w, map[string]string{"status": "approved"})
}

// Reject rejects a submitted entry with a reason
// @Summary Reject an entry
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param request body RejectRequest true "Rejection reason"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Missing reason or wrong status"
// @Router /admin/reviews/{id}/reject [post]
// @Security BearerAuth
func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	reviewerID, _, ok := callerIdentity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.entries.Reject(r.PathValue("id"), reviewerID, req.Reason); err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = JSONResponse(w, map[string]string{"status": "rejected"})
}

// TriggerSweep runs one orphan-file sweep immediately
// @Summary Trigger an orphan sweep
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]string
// @Router /admin/sweep [post]
// @Security BearerAuth
func (h *ReviewHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Sweeper is disabled")
		return
	}
	if err := h.sweeper.RunOnce(); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = JSONResponse(w, map[string]string{"status": "sweep completed"})
}
