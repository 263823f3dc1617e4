package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"carbon-filing/internal/models"
)

// SubmitInput carries everything a save or submit writes: the entry fields
// and the per-group uploads still pending, in group order.
type SubmitInput struct {
	Entry          UpsertInput
	Actor          Actor
	Groups         []models.RecordGroup
	PendingUploads []UploadInput
}

// SubmitService orchestrates save and submit: payload write first, then
// file uploads. A per-(owner, page) guard rejects re-entrant invocations,
// and a per-(owner, page) editing buffer is the path submitted groups flow
// through.
type SubmitService struct {
	entries *EntryService
	mapper  *FileMapperService

	mu       sync.Mutex
	inFlight map[string]bool
	buffers  map[string]*EditingBuffer
}

// NewSubmitService creates a new submit service
func NewSubmitService(entries *EntryService, mapper *FileMapperService) *SubmitService {
	return &SubmitService{
		entries:  entries,
		mapper:   mapper,
		inFlight: map[string]bool{},
		buffers:  map[string]*EditingBuffer{},
	}
}

// BufferFor returns the editing buffer for one owner and page, creating it
// on first use
func (s *SubmitService) BufferFor(ownerID uint, pageKey string) *EditingBuffer {
	key := guardKey(ownerID, pageKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	if buf, ok := s.buffers[key]; ok {
		return buf
	}
	buf := NewEditingBuffer(s.mapper, ownerID, pageKey)
	s.buffers[key] = buf
	return buf
}

// Save persists the staged state without advancing the workflow status
func (s *SubmitService) Save(ctx context.Context, in SubmitInput) (string, error) {
	return s.run(ctx, in, true)
}

// Submit stages the groups through the editing buffer, which validates each
// one and assigns IDs to new groups, then persists the entry with status
// submitted and uploads the pending files.
func (s *SubmitService) Submit(ctx context.Context, in SubmitInput) (string, error) {
	staged, err := s.BufferFor(in.Entry.OwnerID, in.Entry.PageKey).Stage(in.Groups)
	if err != nil {
		return "", err
	}
	in.Groups = staged
	return s.run(ctx, in, false)
}

func (s *SubmitService) run(ctx context.Context, in SubmitInput, preserveStatus bool) (string, error) {
	key := guardKey(in.Entry.OwnerID, in.Entry.PageKey)
	if !s.acquire(key) {
		return "", ErrOperationInFlight
	}
	defer s.release(key)

	in.Entry.Payload.FileMapping = s.mapper.MappingForPayload(in.Entry.OwnerID, in.Entry.PageKey)

	entryID, err := s.entries.Upsert(in.Entry, preserveStatus, in.Actor)
	if err != nil {
		return "", err
	}

	// Uploads run one at a time in group order; a mid-batch failure names
	// exactly one file.
	for _, upload := range in.PendingUploads {
		upload.EntryID = entryID
		if _, err := s.mapper.UploadForRecord(ctx, upload); err != nil {
			return entryID, err
		}
	}

	slog.Info("Entry persisted", "entry_id", entryID, "preserve_status", preserveStatus)
	return entryID, nil
}

func (s *SubmitService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[key] {
		return false
	}
	s.inFlight[key] = true
	return true
}

func (s *SubmitService) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

func guardKey(ownerID uint, pageKey string) string {
	return fmt.Sprintf("%d:%s", ownerID, pageKey)
}
