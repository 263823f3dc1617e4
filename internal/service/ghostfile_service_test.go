package service

import (
	"context"
	"testing"
	"time"

	"carbon-filing/internal/models"
)

func newTestGhostService(files FileRepo, store BlobStore) *GhostService {
	svc := NewGhostService(files, store)
	svc.retryDelay = time.Millisecond
	return svc
}

func TestValidateExistsTransientMiss(t *testing.T) {
	store := newFakeBlobStore()
	// First probe misses, second finds the object after replication settles
	store.existsResult["u/f1"] = []bool{false, true}
	svc := newTestGhostService(newFakeFileRepo(), store)

	exists, err := svc.ValidateExists(context.Background(), &models.EvidenceFile{ID: "f1", FilePath: "u/f1"})
	if err != nil {
		t.Fatalf("ValidateExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected a transient miss to validate as present")
	}
	if len(store.probeLog) != 2 {
		t.Errorf("Expected exactly two probes, got %d", len(store.probeLog))
	}
}

func TestValidateExistsTrueGhost(t *testing.T) {
	store := newFakeBlobStore()
	store.existsResult["u/f1"] = []bool{false, false}
	svc := newTestGhostService(newFakeFileRepo(), store)

	exists, err := svc.ValidateExists(context.Background(), &models.EvidenceFile{ID: "f1", FilePath: "u/f1"})
	if err != nil {
		t.Fatalf("ValidateExists failed: %v", err)
	}
	if exists {
		t.Error("Expected a double miss to classify as ghost")
	}
	if len(store.probeLog) != 2 {
		t.Errorf("Expected exactly two probes, never more, got %d", len(store.probeLog))
	}
}

func TestValidateExistsFirstHitSkipsRetry(t *testing.T) {
	store := newFakeBlobStore()
	store.objects["u/f1"] = true
	svc := newTestGhostService(newFakeFileRepo(), store)

	exists, err := svc.ValidateExists(context.Background(), &models.EvidenceFile{ID: "f1", FilePath: "u/f1"})
	if err != nil || !exists {
		t.Fatalf("Expected immediate hit, got exists=%v err=%v", exists, err)
	}
	if len(store.probeLog) != 1 {
		t.Errorf("Expected a single probe on first hit, got %d", len(store.probeLog))
	}
}

func TestValidateExistsCancelledDuringBackoff(t *testing.T) {
	store := newFakeBlobStore()
	store.existsResult["u/f1"] = []bool{false, true}
	svc := NewGhostService(newFakeFileRepo(), store)
	svc.retryDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ValidateExists(ctx, &models.EvidenceFile{ID: "f1", FilePath: "u/f1"})
	if err == nil {
		t.Error("Expected context cancellation to abort the backoff wait")
	}
}

func TestCleanFilesFiltersGhosts(t *testing.T) {
	store := newFakeBlobStore()
	files := newFakeFileRepo()
	store.objects["u/present"] = true
	store.existsResult["u/ghost"] = []bool{false, false}
	files.Create(&models.EvidenceFile{ID: "ghost", FilePath: "u/ghost"})
	svc := newTestGhostService(files, store)

	input := []models.EvidenceFile{
		{ID: "present", FilePath: "u/present"},
		{ID: "ghost", FilePath: "u/ghost"},
	}
	got, err := svc.CleanFiles(context.Background(), input)
	if err != nil {
		t.Fatalf("CleanFiles failed: %v", err)
	}

	if len(got) != 1 || got[0].ID != "present" {
		t.Errorf("Expected only the present file, got %v", got)
	}
	if len(files.deleteLog) != 1 || files.deleteLog[0] != "ghost" {
		t.Errorf("Expected the ghost row to be deleted, delete log: %v", files.deleteLog)
	}
}

func TestCleanFilesTransientMissNoMutation(t *testing.T) {
	store := newFakeBlobStore()
	files := newFakeFileRepo()
	store.existsResult["u/f1"] = []bool{false, true}
	svc := newTestGhostService(files, store)

	got, err := svc.CleanFiles(context.Background(), []models.EvidenceFile{{ID: "f1", FilePath: "u/f1"}})
	if err != nil {
		t.Fatalf("CleanFiles failed: %v", err)
	}

	if len(got) != 1 {
		t.Error("A file recovering on the second probe must be kept")
	}
	if len(files.deleteLog) != 0 {
		t.Errorf("A recovered file must trigger zero DB mutation, delete log: %v", files.deleteLog)
	}
}

func TestCleanFilesGhostDeleteFailureIsNotRaised(t *testing.T) {
	store := newFakeBlobStore()
	files := newFakeFileRepo()
	store.existsResult["u/ghost"] = []bool{false, false}
	files.deleteErr["ghost"] = context.DeadlineExceeded
	svc := newTestGhostService(files, store)

	got, err := svc.CleanFiles(context.Background(), []models.EvidenceFile{{ID: "ghost", FilePath: "u/ghost"}})
	if err != nil {
		t.Fatalf("Ghost row delete failure must not be raised, got %v", err)
	}
	if len(got) != 0 {
		t.Error("The filtering result is authoritative regardless of the delete outcome")
	}
}
