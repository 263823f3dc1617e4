package service

import (
	"context"
	"log/slog"
	"time"

	"carbon-filing/internal/models"
)

// ClearService removes an entry together with its files. Deletion is
// best-effort everywhere except the entry row itself.
type ClearService struct {
	entries     EntryRepo
	files       FileRepo
	store       BlobStore
	orphanGrace time.Duration
}

// NewClearService creates a new clear service
func NewClearService(entries EntryRepo, files FileRepo, store BlobStore) *ClearService {
	return &ClearService{
		entries:     entries,
		files:       files,
		store:       store,
		orphanGrace: time.Hour,
	}
}

// Clear runs the cascading delete:
//
//  1. Preconditions, no I/O: an empty entry ID and an approved entry both
//     reject immediately.
//  2. Best-effort file deletion: every file is attempted, per-file failures
//     are collected, the loop never aborts.
//  3. Mandatory entry deletion: a failure here is fatal and aborts the
//     whole operation. This is the only step that must succeed for the
//     clear to count as applied.
//  4. Best-effort orphan sweep: errors are logged and swallowed.
//  5. Local cleanup: release buffered memory files.
//  6. If step 2 or 4 collected messages, return them as a PartialFailure
//     even though steps 3 and 5 succeeded.
func (s *ClearService) Clear(ctx context.Context, entryID string, status models.EntryStatus, filesToDelete []models.EvidenceFile, memoryFiles []*models.MemoryFile) error {
	if entryID == "" {
		return ErrNothingToClear
	}
	if status == models.StatusApproved {
		return ErrApprovedImmutable
	}

	partial := &PartialFailure{}

	for i := range filesToDelete {
		if err := s.deleteFile(ctx, &filesToDelete[i]); err != nil {
			partial.Add("failed to delete %s: %v", filesToDelete[i].FileName, err)
		}
	}

	if err := s.entries.Delete(entryID); err != nil {
		return &FatalPersistenceError{Op: "entry delete", Err: err}
	}
	slog.Info("Entry cleared", "entry_id", entryID)

	s.sweepOrphans(ctx)

	for _, mf := range memoryFiles {
		mf.Release()
	}

	if !partial.Empty() {
		return partial
	}
	return nil
}

func (s *ClearService) deleteFile(ctx context.Context, file *models.EvidenceFile) error {
	if err := s.store.Remove(ctx, file.FilePath); err != nil {
		return err
	}
	return s.files.Delete(file.ID)
}

// sweepOrphans deletes files left unassociated with any entry. Secondary
// cleanup, never the user's requested action, so every error is swallowed.
func (s *ClearService) sweepOrphans(ctx context.Context) {
	orphans, err := s.files.ListOrphans(time.Now().Add(-s.orphanGrace), 100)
	if err != nil {
		slog.Warn("Orphan sweep listing failed", "error", err)
		return
	}

	for i := range orphans {
		if err := s.deleteFile(ctx, &orphans[i]); err != nil {
			slog.Warn("Orphan sweep delete failed", "file_id", orphans[i].ID, "error", err)
		}
	}
}
