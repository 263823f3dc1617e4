package service

import (
	"fmt"
	"log/slog"
	"strings"

	"carbon-filing/internal/models"
)

// Actor identifies who is performing an operation and in which context
type Actor struct {
	UserID       uint
	Role         string
	IsReviewMode bool
}

// UpsertInput carries the writable entry fields for a save or submit
type UpsertInput struct {
	EntryID    string
	OwnerID    uint
	PageKey    string
	PeriodYear int
	Unit       string
	Amount     float64
	Payload    models.Payload
}

// EntryService owns the entry lifecycle: load, upsert with status control,
// the permission matrix, and review decisions.
type EntryService struct {
	entries EntryRepo
	cipher  NotesCipher
}

// NewEntryService creates a new entry service. cipher may be nil.
func NewEntryService(entries EntryRepo, cipher NotesCipher) *EntryService {
	return &EntryService{entries: entries, cipher: cipher}
}

// Load fetches an entry. A non-empty entryID bypasses the owner lookup so a
// reviewer can load another user's entry. Returns nil when no entry exists
// yet; the row is created on first save.
func (s *EntryService) Load(ownerID uint, pageKey string, year int, entryID string) (*models.Entry, error) {
	if entryID != "" {
		return s.entries.GetByID(entryID)
	}
	return s.entries.GetByOwnerPageYear(ownerID, pageKey, year)
}

// Upsert creates or updates an entry. preserveStatus=true keeps the existing
// status (save path, staging changes never advance the workflow);
// preserveStatus=false sets the status to submitted (submit path).
func (s *EntryService) Upsert(in UpsertInput, preserveStatus bool, actor Actor) (string, error) {
	existing, err := s.load(in)
	if err != nil {
		return "", err
	}

	if existing == nil {
		status := models.StatusSubmitted
		if preserveStatus {
			status = models.StatusSaved
		}
		entry := &models.Entry{
			ID:         in.EntryID,
			OwnerID:    in.OwnerID,
			PageKey:    in.PageKey,
			PeriodYear: in.PeriodYear,
			Status:     status,
			Unit:       in.Unit,
			Amount:     in.Amount,
			Payload:    in.Payload,
		}
		if err := s.entries.Create(entry); err != nil {
			return "", &FatalPersistenceError{Op: "entry create", Err: err}
		}
		slog.Info("Entry created", "entry_id", entry.ID, "page", in.PageKey, "status", status)
		return entry.ID, nil
	}

	if existing.Status == models.StatusApproved && !actor.canOverrideApproved() {
		return "", ErrApprovedImmutable
	}

	if !preserveStatus {
		existing.Status = models.StatusSubmitted
	}
	existing.Unit = in.Unit
	existing.Amount = in.Amount
	existing.Payload = in.Payload

	if err := s.entries.Update(existing); err != nil {
		return "", &FatalPersistenceError{Op: "entry update", Err: err}
	}

	return existing.ID, nil
}

func (s *EntryService) load(in UpsertInput) (*models.Entry, error) {
	if in.EntryID != "" {
		entry, err := s.entries.GetByID(in.EntryID)
		if err != nil {
			return nil, &FatalPersistenceError{Op: "entry load", Err: err}
		}
		if entry == nil {
			return nil, &NotFoundError{Resource: "entry", ID: in.EntryID}
		}
		return entry, nil
	}

	entry, err := s.entries.GetByOwnerPageYear(in.OwnerID, in.PageKey, in.PeriodYear)
	if err != nil {
		return nil, &FatalPersistenceError{Op: "entry load", Err: err}
	}
	return entry, nil
}

// canOverrideApproved reports whether the actor may mutate an approved entry.
// Only an admin working in review mode may.
func (a Actor) canOverrideApproved() bool {
	return a.IsReviewMode && a.Role == "admin"
}

// Permission derives the permission matrix for one entry as seen by one
// actor. Pure, no I/O; every consumer of edit/upload/delete gating reads
// this and nothing else. Rules apply in order: review mode without the
// admin role locks everything, then approved status locks everything, then
// the entry is editable with a status-specific submit label.
func (s *EntryService) Permission(status models.EntryStatus, isReviewMode bool, role string) models.EditPermissions {
	if isReviewMode && role != "admin" {
		return readonlyPermissions(status)
	}
	if status == models.StatusApproved {
		return readonlyPermissions(status)
	}

	return models.EditPermissions{
		CanEdit:           true,
		CanUploadFiles:    true,
		CanDeleteFiles:    true,
		IsReadonly:        false,
		SubmitButtonText:  submitLabel(status),
		StatusDescription: statusDescription(status),
	}
}

func readonlyPermissions(status models.EntryStatus) models.EditPermissions {
	return models.EditPermissions{
		CanEdit:           false,
		CanUploadFiles:    false,
		CanDeleteFiles:    false,
		IsReadonly:        true,
		SubmitButtonText:  submitLabel(status),
		StatusDescription: statusDescription(status),
	}
}

func submitLabel(status models.EntryStatus) string {
	switch status {
	case models.StatusRejected:
		return "resubmit"
	case models.StatusSubmitted:
		return "update"
	case models.StatusApproved:
		return "approved"
	default:
		return "submit"
	}
}

func statusDescription(status models.EntryStatus) string {
	switch status {
	case models.StatusSaved:
		return "Saved, not yet submitted"
	case models.StatusSubmitted:
		return "Submitted, awaiting review"
	case models.StatusApproved:
		return "Approved"
	case models.StatusRejected:
		return "Rejected, changes requested"
	default:
		return string(status)
	}
}

// Approve marks a submitted entry as approved
func (s *EntryService) Approve(entryID string, reviewerID uint) error {
	entry, err := s.mustLoad(entryID)
	if err != nil {
		return err
	}
	if entry.Status != models.StatusSubmitted {
		return NewValidationError("status", fmt.Sprintf("cannot approve entry in status %s", entry.Status))
	}

	if err := s.entries.SetReview(entryID, models.StatusApproved, reviewerID, nil); err != nil {
		return &FatalPersistenceError{Op: "entry approve", Err: err}
	}

	slog.Info("Entry approved", "entry_id", entryID, "reviewer_id", reviewerID)
	return nil
}

// Reject marks a submitted entry as rejected. A non-empty reason is
// required; it is stored encrypted when a cipher is configured.
func (s *EntryService) Reject(entryID string, reviewerID uint, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("reason", "a rejection reason is required")
	}

	entry, err := s.mustLoad(entryID)
	if err != nil {
		return err
	}
	if entry.Status != models.StatusSubmitted {
		return NewValidationError("status", fmt.Sprintf("cannot reject entry in status %s", entry.Status))
	}

	notes := reason
	if s.cipher != nil {
		encrypted, err := s.cipher.Encrypt([]byte(reason))
		if err != nil {
			return fmt.Errorf("failed to encrypt review notes: %w", err)
		}
		notes = encrypted
	}

	if err := s.entries.SetReview(entryID, models.StatusRejected, reviewerID, &notes); err != nil {
		return &FatalPersistenceError{Op: "entry reject", Err: err}
	}

	slog.Info("Entry rejected", "entry_id", entryID, "reviewer_id", reviewerID)
	return nil
}

// ReviewNotes returns the decrypted review notes for an entry, or empty if
// none are recorded.
func (s *EntryService) ReviewNotes(entry *models.Entry) (string, error) {
	if entry.ReviewNotes == nil {
		return "", nil
	}
	if s.cipher == nil {
		return *entry.ReviewNotes, nil
	}
	plain, err := s.cipher.Decrypt(*entry.ReviewNotes)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt review notes: %w", err)
	}
	return string(plain), nil
}

// ListSubmitted returns all entries awaiting review
func (s *EntryService) ListSubmitted() ([]models.Entry, error) {
	return s.entries.ListByStatus(models.StatusSubmitted)
}

func (s *EntryService) mustLoad(entryID string) (*models.Entry, error) {
	entry, err := s.entries.GetByID(entryID)
	if err != nil {
		return nil, &FatalPersistenceError{Op: "entry load", Err: err}
	}
	if entry == nil {
		return nil, &NotFoundError{Resource: "entry", ID: entryID}
	}
	return entry, nil
}
