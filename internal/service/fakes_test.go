package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"carbon-filing/internal/models"

	"github.com/google/uuid"
)

// fakeEntryRepo is an in-memory EntryRepo
type fakeEntryRepo struct {
	entries    map[string]*models.Entry
	deleteErr  error
	deleteLog  []string
	updateErr  error
	reviewed   map[string]*string
	createdSeq []string
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{
		entries:  map[string]*models.Entry{},
		reviewed: map[string]*string{},
	}
}

func (f *fakeEntryRepo) Create(entry *models.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	cp := *entry
	f.entries[entry.ID] = &cp
	f.createdSeq = append(f.createdSeq, entry.ID)
	return nil
}

func (f *fakeEntryRepo) GetByID(id string) (*models.Entry, error) {
	if e, ok := f.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeEntryRepo) GetByOwnerPageYear(ownerID uint, pageKey string, year int) (*models.Entry, error) {
	for _, e := range f.entries {
		if e.OwnerID == ownerID && e.PageKey == pageKey && e.PeriodYear == year {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeEntryRepo) Update(entry *models.Entry) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.entries[entry.ID]; !ok {
		return fmt.Errorf("entry %s not found", entry.ID)
	}
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

func (f *fakeEntryRepo) SetReview(id string, status models.EntryStatus, reviewerID uint, notes *string) error {
	e, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("entry %s not found", id)
	}
	e.Status = status
	e.ReviewerID = &reviewerID
	e.ReviewNotes = notes
	f.reviewed[id] = notes
	return nil
}

func (f *fakeEntryRepo) Delete(id string) error {
	f.deleteLog = append(f.deleteLog, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.entries[id]; !ok {
		return fmt.Errorf("entry %s not found", id)
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeEntryRepo) ListByStatus(status models.EntryStatus) ([]models.Entry, error) {
	var out []models.Entry
	for _, e := range f.entries {
		if e.Status == status {
			out = append(out, *e)
		}
	}
	return out, nil
}

// fakeFileRepo is an in-memory FileRepo
type fakeFileRepo struct {
	files      map[string]*models.EvidenceFile
	orphans    []models.EvidenceFile
	orphansErr error
	deleteErr  map[string]error
	deleteLog  []string
	createErr  error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		files:     map[string]*models.EvidenceFile{},
		deleteErr: map[string]error{},
	}
}

func (f *fakeFileRepo) Create(file *models.EvidenceFile) error {
	if f.createErr != nil {
		return f.createErr
	}
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	cp := *file
	f.files[file.ID] = &cp
	return nil
}

func (f *fakeFileRepo) GetByID(id string) (*models.EvidenceFile, error) {
	if file, ok := f.files[id]; ok {
		cp := *file
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeFileRepo) ListByEntry(entryID string) ([]models.EvidenceFile, error) {
	var out []models.EvidenceFile
	for _, file := range f.files {
		if file.EntryID == entryID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) ListByOwnerPage(ownerID uint, pageKey string) ([]models.EvidenceFile, error) {
	var out []models.EvidenceFile
	for _, file := range f.files {
		if file.OwnerID == ownerID && file.PageKey == pageKey {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) ListOrphans(cutoff time.Time, limit int) ([]models.EvidenceFile, error) {
	if f.orphansErr != nil {
		return nil, f.orphansErr
	}
	return f.orphans, nil
}

func (f *fakeFileRepo) AttachToEntry(fileIDs []string, entryID string) error {
	for _, id := range fileIDs {
		if file, ok := f.files[id]; ok {
			file.EntryID = entryID
		}
	}
	return nil
}

func (f *fakeFileRepo) Delete(id string) error {
	f.deleteLog = append(f.deleteLog, id)
	if err, ok := f.deleteErr[id]; ok {
		return err
	}
	delete(f.files, id)
	return nil
}

// fakeBlobStore is an in-memory BlobStore. existsResults queues per-path
// probe outcomes so tests can script a transient miss.
type fakeBlobStore struct {
	objects      map[string]bool
	existsResult map[string][]bool
	putErr       map[string]error
	removeErr    map[string]error
	removeLog    []string
	putLog       []string
	probeLog     []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects:      map[string]bool{},
		existsResult: map[string][]bool{},
		putErr:       map[string]error{},
		removeErr:    map[string]error{},
	}
}

func (f *fakeBlobStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	for key, err := range f.putErr {
		if key == path || matchesName(path, key) {
			return err
		}
	}
	f.objects[path] = true
	f.putLog = append(f.putLog, path)
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	f.probeLog = append(f.probeLog, path)
	if queue, ok := f.existsResult[path]; ok && len(queue) > 0 {
		result := queue[0]
		f.existsResult[path] = queue[1:]
		return result, nil
	}
	return f.objects[path], nil
}

func (f *fakeBlobStore) Remove(ctx context.Context, path string) error {
	f.removeLog = append(f.removeLog, path)
	if err, ok := f.removeErr[path]; ok {
		return err
	}
	delete(f.objects, path)
	return nil
}

// matchesName lets tests key putErr by file name even though upload paths
// carry a generated prefix.
func matchesName(path, name string) bool {
	return len(path) >= len(name) && path[len(path)-len(name):] == name
}
