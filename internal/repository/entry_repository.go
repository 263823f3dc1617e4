package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"carbon-filing/internal/models"

	"github.com/google/uuid"
)

// EntryRepository handles energy entry persistence
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create inserts a new entry and returns it with generated fields populated
func (r *EntryRepository) Create(entry *models.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO energy_entries (id, owner_id, page_key, period_year, status, unit, amount, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(query,
		entry.ID, entry.OwnerID, entry.PageKey, entry.PeriodYear,
		entry.Status, entry.Unit, entry.Amount, payload,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

// GetByID retrieves an entry by ID, returns nil if not found
func (r *EntryRepository) GetByID(id string) (*models.Entry, error) {
	query := `
		SELECT id, owner_id, page_key, period_year, status, unit, amount, payload,
		       review_notes, reviewer_id, reviewed_at, created_at, updated_at
		FROM energy_entries
		WHERE id = $1`

	return r.scanEntry(r.db.QueryRow(query, id))
}

// GetByOwnerPageYear retrieves the entry for (owner, page, year), nil if none
func (r *EntryRepository) GetByOwnerPageYear(ownerID uint, pageKey string, year int) (*models.Entry, error) {
	query := `
		SELECT id, owner_id, page_key, period_year, status, unit, amount, payload,
		       review_notes, reviewer_id, reviewed_at, created_at, updated_at
		FROM energy_entries
		WHERE owner_id = $1 AND page_key = $2 AND period_year = $3`

	return r.scanEntry(r.db.QueryRow(query, ownerID, pageKey, year))
}

// Update persists entry fields and bumps updated_at
func (r *EntryRepository) Update(entry *models.Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		UPDATE energy_entries
		SET status = $2, unit = $3, amount = $4, payload = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRow(query, entry.ID, entry.Status, entry.Unit, entry.Amount, payload).
		Scan(&entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("entry %s not found", entry.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	return nil
}

// SetReview stamps a review decision on an entry
func (r *EntryRepository) SetReview(id string, status models.EntryStatus, reviewerID uint, notes *string) error {
	query := `
		UPDATE energy_entries
		SET status = $2, reviewer_id = $3, review_notes = $4,
		    reviewed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.db.Exec(query, id, status, reviewerID, notes)
	if err != nil {
		return fmt.Errorf("failed to set review: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("entry %s not found", id)
	}

	return nil
}

// Delete removes an entry row
func (r *EntryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM energy_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("entry %s not found", id)
	}

	return nil
}

// ListByStatus returns entries with the given status, newest first
func (r *EntryRepository) ListByStatus(status models.EntryStatus) ([]models.Entry, error) {
	query := `
		SELECT id, owner_id, page_key, period_year, status, unit, amount, payload,
		       review_notes, reviewer_id, reviewed_at, created_at, updated_at
		FROM energy_entries
		WHERE status = $1
		ORDER BY updated_at DESC`

	rows, err := r.db.Query(query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		entry, err := scanEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *EntryRepository) scanEntry(row *sql.Row) (*models.Entry, error) {
	entry, err := scanEntryRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	return entry, nil
}

func scanEntryRow(s rowScanner) (*models.Entry, error) {
	var entry models.Entry
	var payload []byte
	var reviewNotes sql.NullString
	var reviewerID sql.NullInt64
	var reviewedAt sql.NullTime

	err := s.Scan(
		&entry.ID, &entry.OwnerID, &entry.PageKey, &entry.PeriodYear,
		&entry.Status, &entry.Unit, &entry.Amount, &payload,
		&reviewNotes, &reviewerID, &reviewedAt,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	if reviewNotes.Valid {
		entry.ReviewNotes = &reviewNotes.String
	}
	if reviewerID.Valid {
		id := uint(reviewerID.Int64)
		entry.ReviewerID = &id
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		entry.ReviewedAt = &t
	}

	return &entry, nil
}
