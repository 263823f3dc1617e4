package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"carbon-filing/internal/middleware"
	"carbon-filing/internal/models"
	"carbon-filing/internal/service"
	"carbon-filing/pkg/validator"
)

// EntryHandler handles entry lifecycle requests
type EntryHandler struct {
	entries *service.EntryService
	mapper  *service.FileMapperService
	ghosts  *service.GhostService
	submits *service.SubmitService
	clears  *service.ClearService
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(entries *service.EntryService, mapper *service.FileMapperService, ghosts *service.GhostService, submits *service.SubmitService, clears *service.ClearService) *EntryHandler {
	return &EntryHandler{
		entries: entries,
		mapper:  mapper,
		ghosts:  ghosts,
		submits: submits,
		clears:  clears,
	}
}

// EntryRequest represents a save or submit request
type EntryRequest struct {
	EntryID    string               `json:"entry_id"`
	PageKey    string               `json:"page_key" validate:"required"`
	PeriodYear int                  `json:"period_year" validate:"required"`
	Unit       string               `json:"unit"`
	Amount     float64              `json:"amount"`
	Payload    models.Payload       `json:"payload"`
	Groups     []models.RecordGroup `json:"groups"`
	ReviewMode bool                 `json:"review_mode"`
}

// EntryResponse wraps a loaded entry with its permission projection
type EntryResponse struct {
	Entry       *models.Entry          `json:"entry"`
	Permissions models.EditPermissions `json:"permissions"`
	ReviewNotes string                 `json:"review_notes,omitempty"`
}

// EvidenceGroup is the grouped evidence view for one record group
type EvidenceGroup struct {
	GroupID        string                `json:"group_id"`
	Records        []models.Record       `json:"records"`
	Representative *models.EvidenceFile  `json:"representative,omitempty"`
	Files          []models.EvidenceFile `json:"files"`
}

// GetEntry loads the caller's entry for a page and year, or another user's
// entry by explicit ID when an admin reviews it
// @Summary Load an entry
// @Tags Entries
// @Produce json
// @Param page_key query string true "Page key"
// @Param year query int true "Reporting year"
// @Param entry_id query string false "Explicit entry ID (review mode, admin only)"
// @Success 200 {object} EntryResponse
// @Failure 403 {object} map[string]string "Review mode requires admin role"
// @Router /entries [get]
// @Security BearerAuth
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	pageKey := r.URL.Query().Get("page_key")
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	entryID := r.URL.Query().Get("entry_id")

	isReviewMode := entryID != ""
	if isReviewMode && role != "admin" {
		respondWithError(w, http.StatusForbidden, "Review mode requires admin role")
		return
	}
	if !isReviewMode && (pageKey == "" || year == 0) {
		respondWithError(w, http.StatusBadRequest, "page_key and year are required")
		return
	}

	entry, err := h.entries.Load(userID, pageKey, year, entryID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	resp := EntryResponse{Entry: entry}
	status := models.StatusSaved
	if entry != nil {
		status = entry.Status
		h.mapper.LoadMapping(entry.OwnerID, entry.PageKey, entry.Payload)

		notes, err := h.entries.ReviewNotes(entry)
		if err == nil {
			resp.ReviewNotes = notes
		}
	}
	resp.Permissions = h.entries.Permission(status, isReviewMode, role)

	_ = JSONResponse(w, resp)
}

// SaveEntry persists the staged state without advancing the workflow
// @Summary Save an entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param request body EntryRequest true "Entry fields"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string "Operation already in flight"
// @Router /entries [put]
// @Security BearerAuth
func (h *EntryHandler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	h.persist(w, r, false)
}

// SubmitEntry persists and advances the entry to submitted
// @Summary Submit an entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param request body EntryRequest true "Entry fields"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Validation failed"
// @Router /entries/submit [post]
// @Security BearerAuth
func (h *EntryHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	h.persist(w, r, true)
}

func (h *EntryHandler) persist(w http.ResponseWriter, r *http.Request, submit bool) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if req.PageKey == "" || req.PeriodYear == 0 {
		respondWithError(w, http.StatusBadRequest, "page_key and period_year are required")
		return
	}
	if err := validator.ValidateYear(req.PeriodYear); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ReviewMode && role != "admin" {
		respondWithError(w, http.StatusForbidden, "Review mode requires admin role")
		return
	}

	in := service.SubmitInput{
		Entry: service.UpsertInput{
			EntryID:    req.EntryID,
			OwnerID:    userID,
			PageKey:    req.PageKey,
			PeriodYear: req.PeriodYear,
			Unit:       req.Unit,
			Amount:     req.Amount,
			Payload:    req.Payload,
		},
		Actor:  service.Actor{UserID: userID, Role: role, IsReviewMode: req.ReviewMode},
		Groups: req.Groups,
	}

	var entryID string
	var err error
	if submit {
		entryID, err = h.submits.Submit(r.Context(), in)
	} else {
		entryID, err = h.submits.Save(r.Context(), in)
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = JSONResponse(w, map[string]string{"entry_id": entryID})
}

// DeleteEntry clears an entry together with its files
// @Summary Clear an entry
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string "Approved data cannot be cleared"
// @Router /entries/{id} [delete]
// @Security BearerAuth
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	entryID := r.PathValue("id")
	entry, err := h.entries.Load(0, "", 0, entryID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if entry == nil {
		respondWithError(w, http.StatusNotFound, "Entry not found")
		return
	}
	if entry.OwnerID != userID && role != "admin" {
		respondWithError(w, http.StatusForbidden, "Not your entry")
		return
	}

	files, err := h.mapper.ListEntryFiles(entryID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if err := h.clears.Clear(r.Context(), entryID, entry.Status, files, nil); err != nil {
		respondWithServiceError(w, err)
		return
	}

	_ = JSONResponse(w, map[string]string{"status": "cleared"})
}

// GetEntryFiles returns the entry's evidence grouped by record group. The
// list is reconciled against the blob store before it is returned.
// @Summary List entry evidence groups
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {array} EvidenceGroup
// @Router /entries/{id}/files [get]
// @Security BearerAuth
func (h *EntryHandler) GetEntryFiles(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	entryID := r.PathValue("id")
	entry, err := h.entries.Load(0, "", 0, entryID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if entry == nil {
		respondWithError(w, http.StatusNotFound, "Entry not found")
		return
	}
	if entry.OwnerID != userID && role != "admin" {
		respondWithError(w, http.StatusForbidden, "Not your entry")
		return
	}

	files, err := h.mapper.ListEntryFiles(entryID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	clean, err := h.ghosts.CleanFiles(r.Context(), files)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	h.mapper.LoadMapping(entry.OwnerID, entry.PageKey, entry.Payload)
	_ = JSONResponse(w, h.groupEvidence(entry, clean))
}

// GetPermissions returns the permission matrix projection for an entry
// @Summary Get entry permissions
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Param review query bool false "Review mode"
// @Success 200 {object} models.EditPermissions
// @Failure 403 {object} map[string]string "Not the owner and not an admin"
// @Router /entries/{id}/permissions [get]
// @Security BearerAuth
func (h *EntryHandler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := callerIdentity(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	entry, err := h.entries.Load(0, "", 0, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if entry == nil {
		respondWithError(w, http.StatusNotFound, "Entry not found")
		return
	}
	if entry.OwnerID != userID && role != "admin" {
		respondWithError(w, http.StatusForbidden, "Not your entry")
		return
	}

	isReviewMode := r.URL.Query().Get("review") == "true"
	_ = JSONResponse(w, h.entries.Permission(entry.Status, isReviewMode, role))
}

// groupEvidence builds the grouped evidence view: record groups in payload
// order, each with the files its records resolve to.
func (h *EntryHandler) groupEvidence(entry *models.Entry, files []models.EvidenceFile) []EvidenceGroup {
	index := map[string]int{}
	var groups []EvidenceGroup

	for _, record := range entry.Payload.Records {
		i, ok := index[record.GroupID]
		if !ok {
			i = len(groups)
			index[record.GroupID] = i
			groups = append(groups, EvidenceGroup{GroupID: record.GroupID})
		}
		groups[i].Records = append(groups[i].Records, record)

		seen := map[string]bool{}
		for _, f := range groups[i].Files {
			seen[f.ID] = true
		}
		for _, f := range h.mapper.ResolveFilesForRecord(entry.OwnerID, entry.PageKey, record.ID, files) {
			if !seen[f.ID] {
				seen[f.ID] = true
				groups[i].Files = append(groups[i].Files, f)
			}
		}
	}

	for i := range groups {
		if len(groups[i].Files) > 0 {
			groups[i].Representative = &groups[i].Files[0]
		}
	}

	return groups
}

// callerIdentity extracts the authenticated user and role from the request
func callerIdentity(r *http.Request) (uint, string, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		return 0, "", false
	}
	role, _ := middleware.GetUserRole(r)
	return userID, role, true
}
