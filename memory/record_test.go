package memory

import (
	"testing"
	"time"
)

func TestContentHashStable(t *testing.T) {
	a := ContentHash("I like espresso")
	b := ContentHash("I like espresso")
	if a != b {
		t.Error("Identical content must hash identically")
	}
	if a == ContentHash("I like tea") {
		t.Error("Different content must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("Expected hex SHA-256 (64 chars), got %d", len(a))
	}
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord("user1", "I like espresso", map[string]string{"source": "chat"})

	if rec.ID == "" {
		t.Error("New record must get an ID")
	}
	if rec.Hash != ContentHash("I like espresso") {
		t.Error("Hash must match the content")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt must be set")
	}
	if !rec.UpdatedAt.IsZero() {
		t.Error("UpdatedAt must start zero")
	}
	if rec.Metadata["source"] != "chat" {
		t.Error("Metadata must be carried")
	}
}

func TestRecordSetContent(t *testing.T) {
	rec := NewRecord("user1", "I live in Porto", nil)
	oldHash := rec.Hash

	before := time.Now().UTC()
	rec.SetContent("I live in Lisbon")

	if rec.Content != "I live in Lisbon" {
		t.Errorf("Content not replaced: %q", rec.Content)
	}
	if rec.Hash == oldHash {
		t.Error("Hash must change with the content")
	}
	if rec.UpdatedAt.Before(before) {
		t.Error("UpdatedAt must be refreshed")
	}
}
