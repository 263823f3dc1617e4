package models

import (
	"encoding/json"
	"time"
)

// EntryStatus is the approval status of an energy entry
type EntryStatus string

const (
	StatusSaved     EntryStatus = "saved"
	StatusSubmitted EntryStatus = "submitted"
	StatusApproved  EntryStatus = "approved"
	StatusRejected  EntryStatus = "rejected"
)

// Valid reports whether s is one of the known entry statuses
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusSaved, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// FileType classifies an evidence file
type FileType string

const (
	FileTypeMSDS              FileType = "msds"
	FileTypeUsageEvidence     FileType = "usage_evidence"
	FileTypeOther             FileType = "other"
	FileTypeHeatValueEvidence FileType = "heat_value_evidence"
	FileTypeAnnualEvidence    FileType = "annual_evidence"
	FileTypeNameplateEvidence FileType = "nameplate_evidence"
)

// Valid reports whether t is one of the known file types
func (t FileType) Valid() bool {
	switch t {
	case FileTypeMSDS, FileTypeUsageEvidence, FileTypeOther,
		FileTypeHeatValueEvidence, FileTypeAnnualEvidence, FileTypeNameplateEvidence:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID           uint      `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Role         string    `json:"role" db:"role"` // user, admin
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Entry represents one user's filing for a page and reporting year.
// Outside review mode there is exactly one row per (owner_id, page_key, period_year).
type Entry struct {
	ID          string      `json:"id" db:"id"`
	OwnerID     uint        `json:"owner_id" db:"owner_id"`
	PageKey     string      `json:"page_key" db:"page_key"`
	PeriodYear  int         `json:"period_year" db:"period_year"`
	Status      EntryStatus `json:"status" db:"status"`
	Unit        string      `json:"unit" db:"unit"`
	Amount      float64     `json:"amount" db:"amount"`
	Payload     Payload     `json:"payload" db:"payload"`
	ReviewNotes *string     `json:"review_notes,omitempty" db:"review_notes"`
	ReviewerID  *uint       `json:"reviewer_id,omitempty" db:"reviewer_id"`
	ReviewedAt  *time.Time  `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// FileMapping is the legacy record-to-file cache embedded in Entry.Payload:
// record ID to the IDs of the files uploaded for it. The record_ids column on
// entry_files is authoritative when present; this cache is the last fallback.
type FileMapping map[string][]string

// Payload is the structured blob stored on an entry. Category pages write
// arbitrary fields into it; the only sub-fields this service interprets are
// the embedded record list and the legacy file mapping cache. Unknown fields
// survive a load/store round trip untouched.
type Payload struct {
	Records     []Record    `json:"-"`
	FileMapping FileMapping `json:"-"`
	Extra       map[string]json.RawMessage
}

// MarshalJSON encodes the payload with records and fileMapping merged back
// into the page's own fields.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+2)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.Records != nil {
		b, err := json.Marshal(p.Records)
		if err != nil {
			return nil, err
		}
		out["records"] = b
	}
	if p.FileMapping != nil {
		b, err := json.Marshal(p.FileMapping)
		if err != nil {
			return nil, err
		}
		out["fileMapping"] = b
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the payload, splitting off the two contractual
// sub-fields and keeping everything else opaque.
func (p *Payload) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if b, ok := raw["records"]; ok {
		if err := json.Unmarshal(b, &p.Records); err != nil {
			return err
		}
		delete(raw, "records")
	}
	if b, ok := raw["fileMapping"]; ok {
		if err := json.Unmarshal(b, &p.FileMapping); err != nil {
			return err
		}
		delete(raw, "fileMapping")
	}
	p.Extra = raw
	return nil
}

// Record is a client-authored unit of data. Its ID is generated by the client
// and stays stable across edits; it is not a database key.
type Record struct {
	ID       string  `json:"id"`
	GroupID  string  `json:"groupId,omitempty"`
	Date     string  `json:"date,omitempty"`
	Month    int     `json:"month,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	Hours    float64 `json:"hours,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

// RecordGroup is the set of records sharing a group ID, edited as one unit
// and typically backed by one piece of evidence.
type RecordGroup struct {
	GroupID  string         `json:"group_id"`
	Records  []Record       `json:"records"`
	Evidence []EvidenceFile `json:"evidence,omitempty"`
}

// EvidenceFile is a database-tracked file stored in the blob store.
// EntryID may be empty while a submit is in flight. RecordID is the legacy
// single-record column kept for rows written before record_ids existed.
type EvidenceFile struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   uint      `json:"owner_id" db:"owner_id"`
	EntryID   string    `json:"entry_id,omitempty" db:"entry_id"`
	PageKey   string    `json:"page_key" db:"page_key"`
	FileType  FileType  `json:"file_type" db:"file_type"`
	FilePath  string    `json:"file_path" db:"file_path"`
	FileName  string    `json:"file_name" db:"file_name"`
	MimeType  string    `json:"mime_type" db:"mime_type"`
	FileSize  int64     `json:"file_size" db:"file_size"`
	Month     *int      `json:"month,omitempty" db:"month"`
	RecordID  *string   `json:"record_id,omitempty" db:"record_id"`
	RecordIDs []string  `json:"record_ids,omitempty" db:"record_ids"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MemoryFile is a not-yet-uploaded file buffered client-side. It never
// reaches the database; the preview URL is a local blob URL the client owns.
type MemoryFile struct {
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	Content    []byte `json:"-"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Release drops the buffered content and preview URL. Local-only cleanup,
// cannot fail.
func (m *MemoryFile) Release() {
	m.Content = nil
	m.PreviewURL = ""
}

// EditPermissions is the permission matrix projection for one entry as seen
// by one actor. It is derived purely from (status, review mode, role).
type EditPermissions struct {
	CanEdit           bool   `json:"can_edit"`
	CanUploadFiles    bool   `json:"can_upload_files"`
	CanDeleteFiles    bool   `json:"can_delete_files"`
	IsReadonly        bool   `json:"is_readonly"`
	SubmitButtonText  string `json:"submit_button_text"`
	StatusDescription string `json:"status_description"`
}
