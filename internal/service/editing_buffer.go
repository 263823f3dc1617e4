package service

import (
	"fmt"
	"sync"

	"carbon-filing/internal/models"

	"github.com/google/uuid"
)

// CurrentEdit is the one mutable group under edit. An empty GroupID means
// new-group mode; a non-empty one means an existing group is being edited.
type CurrentEdit struct {
	GroupID     string
	Records     []models.Record
	MemoryFiles []*models.MemoryFile
}

// EditLock is a scoped exclusivity token. Whoever holds it owns the edit
// surface; it is released deterministically by the holder, never by
// process-wide state.
type EditLock struct {
	buffer *EditingBuffer
}

// Release returns the edit surface. Safe to call once per acquisition.
func (l *EditLock) Release() {
	if l.buffer == nil {
		return
	}
	l.buffer.mu.Lock()
	l.buffer.locked = false
	l.buffer.mu.Unlock()
	l.buffer = nil
}

// EditingBuffer is the group-based editing model for one owner and page: one
// current edit plus the records already saved locally, tagged by group ID.
// Nothing here touches persistence; the buffer's validated contents are what
// Save/Submit write.
type EditingBuffer struct {
	mapper  *FileMapperService
	ownerID uint
	pageKey string

	mu      sync.Mutex
	locked  bool
	current CurrentEdit
	saved   []models.Record
}

// NewEditingBuffer creates a new editing buffer scoped to one owner and page
func NewEditingBuffer(mapper *FileMapperService, ownerID uint, pageKey string) *EditingBuffer {
	return &EditingBuffer{mapper: mapper, ownerID: ownerID, pageKey: pageKey}
}

// Acquire takes the exclusivity token, or returns ErrOperationInFlight if
// another edit surface already holds it.
func (b *EditingBuffer) Acquire() (*EditLock, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locked {
		return nil, ErrOperationInFlight
	}
	b.locked = true
	return &EditLock{buffer: b}, nil
}

// SetCurrent replaces the current edit
func (b *EditingBuffer) SetCurrent(edit CurrentEdit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = edit
}

// Save commits the current edit into the saved set. New groups must contain
// at least one record with actual data and get a fresh group ID; edits of an
// existing group reuse its ID and skip re-validation. Saving is
// replace-by-group: prior records under the same group ID are removed before
// the new set is appended, so a re-save never leaves stale duplicates.
func (b *EditingBuffer) Save() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	groupID := b.current.GroupID
	if groupID == "" {
		if !anyRecordHasData(b.current.Records) {
			return "", NewValidationError("records", "at least one record with data is required")
		}
		groupID = uuid.New().String()
	}

	kept := b.saved[:0:0]
	for _, r := range b.saved {
		if r.GroupID != groupID {
			kept = append(kept, r)
		}
	}
	for _, r := range b.current.Records {
		r.GroupID = groupID
		kept = append(kept, r)
	}
	b.saved = kept

	b.current = CurrentEdit{}
	return groupID, nil
}

// Stage replaces the buffer contents with a full submission's groups,
// running each one through the normal save path. Every group must carry at
// least one record with data; groups without an ID are new and get a fresh
// one assigned. Returns the staged groups, IDs included, in group order.
func (b *EditingBuffer) Stage(groups []models.RecordGroup) ([]models.RecordGroup, error) {
	for _, g := range groups {
		if len(g.Records) == 0 || !anyRecordHasData(g.Records) {
			return nil, NewValidationError("groups", fmt.Sprintf("group %s has no data", g.GroupID))
		}
	}

	b.mu.Lock()
	b.saved = nil
	b.mu.Unlock()

	for _, g := range groups {
		b.SetCurrent(CurrentEdit{GroupID: g.GroupID, Records: g.Records})
		if _, err := b.Save(); err != nil {
			return nil, err
		}
	}
	return b.Groups(), nil
}

// Load copies a group's records into the current edit. The saved set is
// untouched, so cancelling the edit loses nothing.
func (b *EditingBuffer) Load(groupID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	var records []models.Record
	for _, r := range b.saved {
		if r.GroupID == groupID {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		return false
	}

	b.current = CurrentEdit{GroupID: groupID, Records: records}
	return true
}

// Delete removes a group's records from the saved set and purges its file
// mapping entries. The underlying files are not deleted; that is always a
// separate, explicit caller decision.
func (b *EditingBuffer) Delete(groupID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.saved[:0:0]
	for _, r := range b.saved {
		if r.GroupID == groupID {
			if b.mapper != nil {
				b.mapper.RemoveMapping(b.ownerID, b.pageKey, r.ID)
			}
			continue
		}
		kept = append(kept, r)
	}
	b.saved = kept
}

// Saved returns a copy of the saved records
func (b *EditingBuffer) Saved() []models.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Record(nil), b.saved...)
}

// Groups returns the saved records grouped by group ID, in first-seen order
func (b *EditingBuffer) Groups() []models.RecordGroup {
	b.mu.Lock()
	defer b.mu.Unlock()

	index := map[string]int{}
	var groups []models.RecordGroup
	for _, r := range b.saved {
		i, ok := index[r.GroupID]
		if !ok {
			i = len(groups)
			index[r.GroupID] = i
			groups = append(groups, models.RecordGroup{GroupID: r.GroupID})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// anyRecordHasData reports whether at least one record carries non-empty
// category data.
func anyRecordHasData(records []models.Record) bool {
	for _, r := range records {
		if r.Date != "" || r.Month != 0 || r.Quantity != 0 || r.Hours != 0 || r.Notes != "" {
			return true
		}
	}
	return false
}
