package service

import (
	"context"
	"io"
	"time"

	"carbon-filing/internal/models"
)

// EntryRepo is the persistence surface the services need for entries
type EntryRepo interface {
	Create(entry *models.Entry) error
	GetByID(id string) (*models.Entry, error)
	GetByOwnerPageYear(ownerID uint, pageKey string, year int) (*models.Entry, error)
	Update(entry *models.Entry) error
	SetReview(id string, status models.EntryStatus, reviewerID uint, notes *string) error
	Delete(id string) error
	ListByStatus(status models.EntryStatus) ([]models.Entry, error)
}

// FileRepo is the persistence surface the services need for evidence files
type FileRepo interface {
	Create(file *models.EvidenceFile) error
	GetByID(id string) (*models.EvidenceFile, error)
	ListByEntry(entryID string) ([]models.EvidenceFile, error)
	ListByOwnerPage(ownerID uint, pageKey string) ([]models.EvidenceFile, error)
	ListOrphans(cutoff time.Time, limit int) ([]models.EvidenceFile, error)
	AttachToEntry(fileIDs []string, entryID string) error
	Delete(id string) error
}

// BlobStore is the object storage surface
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, path string) (bool, error)
	Remove(ctx context.Context, path string) error
}

// NotesCipher encrypts review notes at rest. Optional; a nil cipher means
// notes are stored in plain text.
type NotesCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}
