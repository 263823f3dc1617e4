package models

import (
	"encoding/json"
	"testing"
)

func TestEntryStatusValid(t *testing.T) {
	for _, s := range []EntryStatus{StatusSaved, StatusSubmitted, StatusApproved, StatusRejected} {
		if !s.Valid() {
			t.Errorf("Expected %q to be valid", s)
		}
	}
	if EntryStatus("draft").Valid() {
		t.Error("Expected unknown status to be invalid")
	}
	if EntryStatus("").Valid() {
		t.Error("Expected empty status to be invalid")
	}
}

func TestFileTypeValid(t *testing.T) {
	for _, ft := range []FileType{
		FileTypeMSDS, FileTypeUsageEvidence, FileTypeOther,
		FileTypeHeatValueEvidence, FileTypeAnnualEvidence, FileTypeNameplateEvidence,
	} {
		if !ft.Valid() {
			t.Errorf("Expected %q to be valid", ft)
		}
	}
	if FileType("screenshot").Valid() {
		t.Error("Expected unknown file type to be invalid")
	}
}

func TestPayloadRoundTripPreservesUnknownFields(t *testing.T) {
	in := []byte(`{
		"records": [{"id": "r1", "groupId": "g1", "quantity": 12.5}],
		"fileMapping": {"r1": ["f1", "f2"]},
		"customField": {"nested": true},
		"pageVersion": 3
	}`)

	var p Payload
	if err := json.Unmarshal(in, &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(p.Records) != 1 || p.Records[0].ID != "r1" || p.Records[0].Quantity != 12.5 {
		t.Errorf("Records not decoded: %+v", p.Records)
	}
	if len(p.FileMapping["r1"]) != 2 {
		t.Errorf("FileMapping not decoded: %+v", p.FileMapping)
	}
	if _, ok := p.Extra["customField"]; !ok {
		t.Error("Expected unknown field to be retained")
	}
	if _, ok := p.Extra["records"]; ok {
		t.Error("records must not leak into Extra")
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var round map[string]json.RawMessage
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("Re-decode failed: %v", err)
	}
	for _, key := range []string{"records", "fileMapping", "customField", "pageVersion"} {
		if _, ok := round[key]; !ok {
			t.Errorf("Expected %q to survive the round trip", key)
		}
	}
	if string(round["pageVersion"]) != "3" {
		t.Errorf("Unknown field mutated: %s", round["pageVersion"])
	}
}

func TestPayloadMarshalOmitsAbsentContractFields(t *testing.T) {
	out, err := json.Marshal(Payload{Extra: map[string]json.RawMessage{"note": []byte(`"x"`)}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := m["records"]; ok {
		t.Error("Expected no records key for a nil record list")
	}
	if _, ok := m["fileMapping"]; ok {
		t.Error("Expected no fileMapping key for a nil mapping")
	}
}

func TestMemoryFileRelease(t *testing.T) {
	f := &MemoryFile{
		FileName:   "a.pdf",
		Content:    []byte("data"),
		PreviewURL: "blob:local",
	}
	f.Release()
	if f.Content != nil || f.PreviewURL != "" {
		t.Errorf("Expected buffered content dropped, got %+v", f)
	}
	f.Release()
}
