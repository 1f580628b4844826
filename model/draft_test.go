package model

import "testing"

func TestNormalizeVIN(t *testing.T) {
	vin := NormalizeVIN("  1hgbh41jxmn109186 ")
	if vin != "1HGBH41JXMN109186" {
		t.Errorf("Expected normalized VIN '1HGBH41JXMN109186', got '%s'", vin)
	}
	if len(vin) != 17 {
		t.Errorf("Expected 17 characters, got %d", len(vin))
	}

	// Idempotent: normalizing twice changes nothing
	if NormalizeVIN(vin) != vin {
		t.Error("Expected NormalizeVIN to be idempotent")
	}

	if NormalizeVIN("") != "" {
		t.Error("Expected empty VIN to stay empty")
	}
}

func TestIsISODate(t *testing.T) {
	valid := []string{"2024-01-15", "1999-12-31", "2024-02-29"}
	for _, d := range valid {
		if !IsISODate(d) {
			t.Errorf("Expected '%s' to be a valid ISO date", d)
		}
	}

	invalid := []string{"", "2024-1-15", "15.01.2024", "2024-13-01", "2023-02-29", "2024-01-15T00:00:00Z", "abcd-ef-gh"}
	for _, d := range invalid {
		if IsISODate(d) {
			t.Errorf("Expected '%s' to be rejected", d)
		}
	}
}

func TestNewDraftMeta(t *testing.T) {
	meta := NewDraftMeta()

	if meta.Status != StatusDraft {
		t.Errorf("Expected status '%s', got '%s'", StatusDraft, meta.Status)
	}
	if len(meta.IdempotencyKey) < 8 {
		t.Errorf("Expected idempotency key of at least 8 chars, got '%s'", meta.IdempotencyKey)
	}
	if meta.DraftID != "" {
		t.Error("Expected no draft id before the first remote save")
	}

	// Two drafts never share an idempotency key
	other := NewDraftMeta()
	if other.IdempotencyKey == meta.IdempotencyKey {
		t.Error("Expected distinct idempotency keys for distinct drafts")
	}
}

func TestDraftStatusConstants(t *testing.T) {
	statuses := []string{StatusDraft, StatusSubmitted, StatusCompleted}
	expected := []string{"draft", "submitted", "completed"}

	for i, status := range statuses {
		if status != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], status)
		}
	}
}
