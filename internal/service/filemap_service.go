package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"carbon-filing/internal/models"

	"github.com/google/uuid"
)

// FileUpload is one file submitted for upload
type FileUpload struct {
	FileName string
	MimeType string
	Size     int64
	Content  io.Reader
}

// UploadInput carries everything needed to upload files for one record
type UploadInput struct {
	RecordID     string
	EntryID      string
	OwnerID      uint
	PageKey      string
	FileType     models.FileType
	Month        *int
	AllRecordIDs []string
	Files        []FileUpload
}

// FileMapperService resolves which evidence files belong to a record and
// performs uploads with eager record association. It also maintains the
// legacy in-memory file mapping caches mirrored into entry payloads. Each
// cache is scoped to one owner and page; outside review mode that is one
// entry per year, so mappings never bleed between users or pages.
type FileMapperService struct {
	files FileRepo
	store BlobStore

	mu       sync.Mutex
	mappings map[string]models.FileMapping
}

// NewFileMapperService creates a new file mapper service
func NewFileMapperService(files FileRepo, store BlobStore) *FileMapperService {
	return &FileMapperService{
		files:    files,
		store:    store,
		mappings: map[string]models.FileMapping{},
	}
}

func mappingScope(ownerID uint, pageKey string) string {
	return fmt.Sprintf("%d:%s", ownerID, pageKey)
}

// UploadForRecord uploads files sequentially, one at a time, so a mid-batch
// failure is attributed to exactly one file. Each created row carries the
// full record ID set up front; association is not a separate step. Returns
// the IDs of the files that were created, including on partial failure.
func (s *FileMapperService) UploadForRecord(ctx context.Context, in UploadInput) ([]string, error) {
	if in.RecordID == "" {
		return nil, NewValidationError("record_id", "record id is required")
	}
	if !in.FileType.Valid() {
		return nil, NewValidationError("file_type", fmt.Sprintf("unknown file type %q", in.FileType))
	}
	if in.FileType == models.FileTypeUsageEvidence && in.Month == nil {
		return nil, NewValidationError("month", "month is required for usage evidence")
	}
	if len(in.Files) == 0 {
		return nil, NewValidationError("files", "no files to upload")
	}

	recordIDs := mergeRecordIDs(in.RecordID, in.AllRecordIDs)

	var fileIDs []string
	for _, upload := range in.Files {
		id := uuid.New().String()
		path := fmt.Sprintf("%d/%s/%s_%s", in.OwnerID, in.PageKey, id, upload.FileName)

		if err := s.store.Put(ctx, path, upload.Content, upload.Size, upload.MimeType); err != nil {
			return fileIDs, fmt.Errorf("upload of %s failed: %w", upload.FileName, err)
		}

		file := &models.EvidenceFile{
			ID:        id,
			OwnerID:   in.OwnerID,
			EntryID:   in.EntryID,
			PageKey:   in.PageKey,
			FileType:  in.FileType,
			FilePath:  path,
			FileName:  upload.FileName,
			MimeType:  upload.MimeType,
			FileSize:  upload.Size,
			Month:     in.Month,
			RecordIDs: recordIDs,
		}
		if err := s.files.Create(file); err != nil {
			// The blob is already up; remove it so a metadata failure does
			// not leave an untracked object behind.
			if rmErr := s.store.Remove(ctx, path); rmErr != nil {
				slog.Warn("Failed to remove blob after metadata failure", "path", path, "error", rmErr)
			}
			return fileIDs, fmt.Errorf("metadata write for %s failed: %w", upload.FileName, err)
		}

		fileIDs = append(fileIDs, file.ID)
	}

	s.cacheFileIDs(in.OwnerID, in.PageKey, recordIDs, fileIDs)

	slog.Info("Files uploaded", "record_id", in.RecordID, "count", len(fileIDs))
	return fileIDs, nil
}

// resolveTier is one step of the resolution chain. Tiers are tried in
// declared order; a tier is consulted only when every earlier tier produced
// nothing. Retiring a legacy tier is a one-line edit here.
type resolveTier struct {
	name  string
	match func(s *FileMapperService, scope, recordID string, f *models.EvidenceFile) bool
}

var resolveTiers = []resolveTier{
	{
		name: "record_ids array",
		match: func(_ *FileMapperService, _, recordID string, f *models.EvidenceFile) bool {
			for _, id := range f.RecordIDs {
				if id == recordID {
					return true
				}
			}
			return false
		},
	},
	{
		name: "legacy record_id column",
		match: func(_ *FileMapperService, _, recordID string, f *models.EvidenceFile) bool {
			return f.RecordID != nil && *f.RecordID == recordID
		},
	},
	{
		name: "payload mapping cache",
		match: func(s *FileMapperService, scope, recordID string, f *models.EvidenceFile) bool {
			s.mu.Lock()
			ids := s.mappings[scope][recordID]
			s.mu.Unlock()
			for _, id := range ids {
				if id == f.ID {
					return true
				}
			}
			return false
		},
	},
}

// ResolveFilesForRecord returns the files belonging to a record of the given
// owner and page. The schema moved from one-record-per-file to
// many-records-per-file, and old rows and payloads must keep resolving
// without a migration pass, so resolution walks the tier chain until one
// tier yields files.
func (s *FileMapperService) ResolveFilesForRecord(ownerID uint, pageKey, recordID string, allFiles []models.EvidenceFile) []models.EvidenceFile {
	scope := mappingScope(ownerID, pageKey)
	for _, tier := range resolveTiers {
		var matched []models.EvidenceFile
		for i := range allFiles {
			if tier.match(s, scope, recordID, &allFiles[i]) {
				matched = append(matched, allFiles[i])
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

// RemoveMapping purges the cache entry for a record. It never deletes
// files; forgetting an association and destroying data stay separate
// operations.
func (s *FileMapperService) RemoveMapping(ownerID uint, pageKey, recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mappings[mappingScope(ownerID, pageKey)], recordID)
}

// LoadMapping seeds the owner-and-page cache from a loaded entry payload
func (s *FileMapperService) LoadMapping(ownerID uint, pageKey string, payload models.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mapping := models.FileMapping{}
	for recordID, fileIDs := range payload.FileMapping {
		mapping[recordID] = append([]string(nil), fileIDs...)
	}
	s.mappings[mappingScope(ownerID, pageKey)] = mapping
}

// MappingForPayload snapshots the owner-and-page cache for embedding into a
// payload write
func (s *FileMapperService) MappingForPayload(ownerID uint, pageKey string) models.FileMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := models.FileMapping{}
	for recordID, fileIDs := range s.mappings[mappingScope(ownerID, pageKey)] {
		out[recordID] = append([]string(nil), fileIDs...)
	}
	return out
}

// ListEntryFiles returns the files associated with an entry
func (s *FileMapperService) ListEntryFiles(entryID string) ([]models.EvidenceFile, error) {
	return s.files.ListByEntry(entryID)
}

// GetFile returns one file's metadata, nil if absent
func (s *FileMapperService) GetFile(fileID string) (*models.EvidenceFile, error) {
	return s.files.GetByID(fileID)
}

// DeleteFile removes a file's blob and metadata row
func (s *FileMapperService) DeleteFile(ctx context.Context, fileID string) error {
	file, err := s.files.GetByID(fileID)
	if err != nil {
		return err
	}
	if file == nil {
		return &NotFoundError{Resource: "file", ID: fileID}
	}

	if err := s.store.Remove(ctx, file.FilePath); err != nil {
		return fmt.Errorf("failed to remove blob for %s: %w", file.FileName, err)
	}
	if err := s.files.Delete(fileID); err != nil {
		return fmt.Errorf("failed to delete file row for %s: %w", file.FileName, err)
	}

	return nil
}

func (s *FileMapperService) cacheFileIDs(ownerID uint, pageKey string, recordIDs, fileIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := mappingScope(ownerID, pageKey)
	mapping := s.mappings[scope]
	if mapping == nil {
		mapping = models.FileMapping{}
		s.mappings[scope] = mapping
	}
	for _, recordID := range recordIDs {
		mapping[recordID] = append(mapping[recordID], fileIDs...)
	}
}

func mergeRecordIDs(recordID string, allRecordIDs []string) []string {
	seen := map[string]bool{recordID: true}
	merged := []string{recordID}
	for _, id := range allRecordIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged
}
