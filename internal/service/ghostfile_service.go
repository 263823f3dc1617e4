package service

import (
	"context"
	"log/slog"
	"time"

	"carbon-filing/internal/models"
)

// defaultProbeRetryDelay is how long replication lag is given to settle
// between the first and second existence probe.
const defaultProbeRetryDelay = 800 * time.Millisecond

// GhostService repairs drift between file metadata rows and the blob store.
// A ghost file is a row whose blob object is missing, either transiently
// (replication lag) or permanently (a genuinely orphaned row).
type GhostService struct {
	files      FileRepo
	store      BlobStore
	retryDelay time.Duration
}

// NewGhostService creates a new ghost file service
func NewGhostService(files FileRepo, store BlobStore) *GhostService {
	return &GhostService{
		files:      files,
		store:      store,
		retryDelay: defaultProbeRetryDelay,
	}
}

// ValidateExists probes the blob store for a file. A failed first probe is
// treated as transient: the probe waits out the retry delay and runs exactly
// once more. A failed second probe classifies the file as a true ghost.
// The wait is cancellable through ctx; only this probe is ever auto-retried.
func (s *GhostService) ValidateExists(ctx context.Context, file *models.EvidenceFile) (bool, error) {
	exists, err := s.store.Exists(ctx, file.FilePath)
	if err == nil && exists {
		return true, nil
	}
	if err != nil {
		slog.Debug("First existence probe errored", "path", file.FilePath, "error", err)
	}

	timer := time.NewTimer(s.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
	}

	exists, err = s.store.Exists(ctx, file.FilePath)
	if err != nil {
		return false, &TransientStorageError{Path: file.FilePath, Err: err}
	}
	return exists, nil
}

// CleanFiles filters a file list down to the files whose blobs are
// confirmed present. Confirmed ghosts are best-effort deleted from the
// database; a failed deletion is logged and does not change the filtering
// result. Every file list shown to a user passes through here first.
func (s *GhostService) CleanFiles(ctx context.Context, files []models.EvidenceFile) ([]models.EvidenceFile, error) {
	var present []models.EvidenceFile
	for i := range files {
		exists, err := s.ValidateExists(ctx, &files[i])
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// Could not confirm either way; keep the row, do not delete on
			// an unverified probe.
			slog.Warn("Existence probe failed twice", "file_id", files[i].ID, "error", err)
			continue
		}

		if exists {
			present = append(present, files[i])
			continue
		}

		slog.Info("Removing ghost file row", "file_id", files[i].ID, "path", files[i].FilePath)
		if err := s.files.Delete(files[i].ID); err != nil {
			slog.Error("Failed to delete ghost file row", "file_id", files[i].ID, "error", err)
		}
	}

	return present, nil
}
