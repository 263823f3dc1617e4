package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"carbon-filing/internal/models"
)

func TestClearRejectsApprovedBeforeAnyDelete(t *testing.T) {
	entries := newFakeEntryRepo()
	files := newFakeFileRepo()
	store := newFakeBlobStore()
	svc := NewClearService(entries, files, store)

	err := svc.Clear(context.Background(), "e1", models.StatusApproved,
		[]models.EvidenceFile{{ID: "f1", FilePath: "u/f1"}}, nil)

	if !errors.Is(err, ErrApprovedImmutable) {
		t.Fatalf("Expected ErrApprovedImmutable, got %v", err)
	}
	if len(files.deleteLog) != 0 || len(store.removeLog) != 0 || len(entries.deleteLog) != 0 {
		t.Error("Approved precondition must fire before any delete call")
	}
}

func TestClearRejectsEmptyEntryID(t *testing.T) {
	entries := newFakeEntryRepo()
	svc := NewClearService(entries, newFakeFileRepo(), newFakeBlobStore())

	err := svc.Clear(context.Background(), "", models.StatusSaved, nil, nil)
	if !errors.Is(err, ErrNothingToClear) {
		t.Fatalf("Expected ErrNothingToClear, got %v", err)
	}
	if len(entries.deleteLog) != 0 {
		t.Error("Nothing-to-clear precondition must fire before any delete call")
	}
}

func TestClearPartialFileFailure(t *testing.T) {
	entries := newFakeEntryRepo()
	entries.Create(&models.Entry{ID: "e1", OwnerID: 1, PageKey: "diesel", PeriodYear: 2025})
	files := newFakeFileRepo()
	files.Create(&models.EvidenceFile{ID: "a", FilePath: "u/a", FileName: "a.pdf"})
	files.Create(&models.EvidenceFile{ID: "b", FilePath: "u/b", FileName: "b.pdf"})
	store := newFakeBlobStore()
	store.removeErr["u/b"] = errors.New("storage unavailable")
	svc := NewClearService(entries, files, store)

	toDelete := []models.EvidenceFile{
		{ID: "a", FilePath: "u/a", FileName: "a.pdf"},
		{ID: "b", FilePath: "u/b", FileName: "b.pdf"},
	}
	err := svc.Clear(context.Background(), "e1", models.StatusSubmitted, toDelete, nil)

	var partial *PartialFailure
	if !errors.As(err, &partial) {
		t.Fatalf("Expected PartialFailure, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "b.pdf") {
		t.Errorf("Failure summary must name b.pdf, got %q", msg)
	}
	if strings.Contains(msg, "a.pdf") {
		t.Errorf("Failure summary must not name the file that succeeded, got %q", msg)
	}

	// The mandatory entry delete still happened
	if e, _ := entries.GetByID("e1"); e != nil {
		t.Error("Entry must be deleted despite the file failure")
	}
	// a was fully deleted, the loop did not abort at b
	if f, _ := files.GetByID("a"); f != nil {
		t.Error("File a should have been deleted")
	}
}

func TestClearEntryDeleteFailureIsFatal(t *testing.T) {
	entries := newFakeEntryRepo()
	entries.Create(&models.Entry{ID: "e1", OwnerID: 1, PageKey: "diesel", PeriodYear: 2025})
	entries.deleteErr = errors.New("connection lost")
	svc := NewClearService(entries, newFakeFileRepo(), newFakeBlobStore())

	err := svc.Clear(context.Background(), "e1", models.StatusSaved, nil, nil)

	var fatal *FatalPersistenceError
	if !errors.As(err, &fatal) {
		t.Fatalf("Expected FatalPersistenceError, got %v", err)
	}
}

func TestClearOrphanSweepErrorsSwallowed(t *testing.T) {
	entries := newFakeEntryRepo()
	entries.Create(&models.Entry{ID: "e1", OwnerID: 1, PageKey: "diesel", PeriodYear: 2025})
	files := newFakeFileRepo()
	files.orphansErr = errors.New("listing failed")
	svc := NewClearService(entries, files, newFakeBlobStore())

	if err := svc.Clear(context.Background(), "e1", models.StatusSaved, nil, nil); err != nil {
		t.Errorf("Orphan sweep failure must be swallowed, got %v", err)
	}
}

func TestClearSweepsOrphans(t *testing.T) {
	entries := newFakeEntryRepo()
	entries.Create(&models.Entry{ID: "e1", OwnerID: 1, PageKey: "diesel", PeriodYear: 2025})
	files := newFakeFileRepo()
	files.Create(&models.EvidenceFile{ID: "orphan", FilePath: "u/orphan"})
	files.orphans = []models.EvidenceFile{{ID: "orphan", FilePath: "u/orphan"}}
	svc := NewClearService(entries, files, newFakeBlobStore())

	if err := svc.Clear(context.Background(), "e1", models.StatusSaved, nil, nil); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if f, _ := files.GetByID("orphan"); f != nil {
		t.Error("Expected the orphan row to be swept")
	}
}

func TestClearReleasesMemoryFiles(t *testing.T) {
	entries := newFakeEntryRepo()
	entries.Create(&models.Entry{ID: "e1", OwnerID: 1, PageKey: "diesel", PeriodYear: 2025})
	svc := NewClearService(entries, newFakeFileRepo(), newFakeBlobStore())

	mf := &models.MemoryFile{FileName: "pending.pdf", Content: []byte("x"), PreviewURL: "blob:abc"}
	if err := svc.Clear(context.Background(), "e1", models.StatusSaved, nil, []*models.MemoryFile{mf}); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if mf.Content != nil || mf.PreviewURL != "" {
		t.Error("Expected memory file buffers to be released")
	}
}
