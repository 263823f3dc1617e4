package repository

import (
	"database/sql"
	"fmt"
	"time"

	"carbon-filing/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// FileRepository handles evidence file persistence
type FileRepository struct {
	db *sql.DB
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts a new file row
func (r *FileRepository) Create(file *models.EvidenceFile) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}

	var entryID interface{}
	if file.EntryID != "" {
		entryID = file.EntryID
	}

	query := `
		INSERT INTO entry_files (id, owner_id, entry_id, page_key, file_type, file_path,
		                         file_name, mime_type, file_size, month, record_id, record_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	err := r.db.QueryRow(query,
		file.ID, file.OwnerID, entryID, file.PageKey, file.FileType, file.FilePath,
		file.FileName, file.MimeType, file.FileSize, file.Month, file.RecordID,
		pq.Array(file.RecordIDs),
	).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// GetByID retrieves a file by ID, returns nil if not found
func (r *FileRepository) GetByID(id string) (*models.EvidenceFile, error) {
	query := selectFiles + ` WHERE id = $1`

	file, err := scanFileRow(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// ListByEntry returns all files associated with an entry
func (r *FileRepository) ListByEntry(entryID string) ([]models.EvidenceFile, error) {
	query := selectFiles + ` WHERE entry_id = $1 ORDER BY created_at`
	return r.list(query, entryID)
}

// ListByOwnerPage returns all files a user uploaded for a page
func (r *FileRepository) ListByOwnerPage(ownerID uint, pageKey string) ([]models.EvidenceFile, error) {
	query := selectFiles + ` WHERE owner_id = $1 AND page_key = $2 ORDER BY created_at`
	return r.list(query, ownerID, pageKey)
}

// ListOrphans returns files with no entry association older than the cutoff
func (r *FileRepository) ListOrphans(cutoff time.Time, limit int) ([]models.EvidenceFile, error) {
	query := selectFiles + `
		WHERE entry_id IS NULL AND created_at < $1
		ORDER BY created_at
		LIMIT $2`
	return r.list(query, cutoff, limit)
}

// AttachToEntry associates previously unattached files with an entry
func (r *FileRepository) AttachToEntry(fileIDs []string, entryID string) error {
	if len(fileIDs) == 0 {
		return nil
	}

	query := `UPDATE entry_files SET entry_id = $1 WHERE id = ANY($2)`
	if _, err := r.db.Exec(query, entryID, pq.Array(fileIDs)); err != nil {
		return fmt.Errorf("failed to attach files: %w", err)
	}
	return nil
}

// Delete removes a file row
func (r *FileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM entry_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("file %s not found", id)
	}

	return nil
}

const selectFiles = `
	SELECT id, owner_id, entry_id, page_key, file_type, file_path,
	       file_name, mime_type, file_size, month, record_id, record_ids, created_at
	FROM entry_files`

func (r *FileRepository) list(query string, args ...interface{}) ([]models.EvidenceFile, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []models.EvidenceFile
	for rows.Next() {
		file, err := scanFileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, *file)
	}

	return files, rows.Err()
}

func scanFileRow(s rowScanner) (*models.EvidenceFile, error) {
	var file models.EvidenceFile
	var entryID sql.NullString
	var month sql.NullInt64
	var recordID sql.NullString

	err := s.Scan(
		&file.ID, &file.OwnerID, &entryID, &file.PageKey, &file.FileType, &file.FilePath,
		&file.FileName, &file.MimeType, &file.FileSize, &month, &recordID,
		pq.Array(&file.RecordIDs), &file.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if entryID.Valid {
		file.EntryID = entryID.String
	}
	if month.Valid {
		m := int(month.Int64)
		file.Month = &m
	}
	if recordID.Valid {
		file.RecordID = &recordID.String
	}

	return &file, nil
}
