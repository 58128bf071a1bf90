package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/societyhub/societyhub/internal/db/models"
)

func sampleEntry() *LogEntry {
	return &LogEntry{
		Timestamp:    time.Now(),
		Action:       "POST /api/society/:societyID/members",
		UserID:       "user-1",
		ResourceType: "society",
		ResourceID:   "soc-1",
		StatusCode:   201,
		IPAddress:    "203.0.113.9",
		UserAgent:    "test-agent",
	}
}

func TestEntryFromLog(t *testing.T) {
	userID := "user-1"
	resourceID := "grp-9"
	details := `{"request_id":"req-1"}`
	row := &models.AuditLog{
		UserID:       &userID,
		Action:       "DELETE /api/groups/:groupID",
		ResourceType: "group",
		ResourceID:   &resourceID,
		StatusCode:   200,
		IPAddress:    "198.51.100.4",
		UserAgent:    "curl",
		Details:      &details,
		CreatedAt:    time.Now(),
	}

	entry := EntryFromLog(row)
	if entry.UserID != userID || entry.ResourceID != resourceID || entry.Details != details {
		t.Errorf("pointer fields not flattened: %+v", entry)
	}
	if entry.Action != row.Action || entry.StatusCode != 200 {
		t.Errorf("scalar fields not copied: %+v", entry)
	}
}

func TestEntryFromLog_NilOptionals(t *testing.T) {
	entry := EntryFromLog(&models.AuditLog{Action: "POST /api/auth/login", StatusCode: 401})
	if entry.UserID != "" || entry.ResourceID != "" || entry.Details != "" {
		t.Errorf("nil optionals should stay empty: %+v", entry)
	}
}

func TestFileShipper_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	fs, err := NewFileShipper(&FileConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileShipper: %v", err)
	}

	if err := fs.Ship(context.Background(), sampleEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if err := fs.Ship(context.Background(), sampleEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		if entry.Action == "" {
			t.Errorf("line %d missing action", lines+1)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("lines = %d, want 2", lines)
	}
}

func TestWebhookShipper_PostsEntry(t *testing.T) {
	received := make(chan LogEntry, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if got := r.Header.Get("X-Audit-Key"); got != "secret" {
			t.Errorf("custom header not forwarded: %q", got)
		}
		var entry LogEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- entry
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ws, err := NewWebhookShipper(&WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"X-Audit-Key": "secret"},
	})
	if err != nil {
		t.Fatalf("NewWebhookShipper: %v", err)
	}
	defer ws.Close()

	if err := ws.Ship(context.Background(), sampleEntry()); err != nil {
		t.Fatalf("Ship: %v", err)
	}

	select {
	case entry := <-received:
		if entry.UserID != "user-1" {
			t.Errorf("entry.UserID = %q", entry.UserID)
		}
	case <-time.After(time.Second):
		t.Fatal("webhook never received the entry")
	}
}

func TestWebhookShipper_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ws, err := NewWebhookShipper(&WebhookConfig{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewWebhookShipper: %v", err)
	}
	defer ws.Close()

	if err := ws.Ship(context.Background(), sampleEntry()); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestNewMultiShipper_SkipsDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	ms, err := NewMultiShipper([]ShipperConfig{
		{Enabled: false, Type: "webhook"},
		{Enabled: true, Type: "file", File: &FileConfig{Path: path}},
	})
	if err != nil {
		t.Fatalf("NewMultiShipper: %v", err)
	}
	defer ms.Close()

	if len(ms.shippers) != 1 {
		t.Errorf("shippers = %d, want 1 (disabled config must be skipped)", len(ms.shippers))
	}
}

func TestNewMultiShipper_UnknownType(t *testing.T) {
	if _, err := NewMultiShipper([]ShipperConfig{{Enabled: true, Type: "syslog"}}); err == nil {
		t.Error("expected error for unknown shipper type")
	}
}

func TestNewMultiShipper_MissingSubConfig(t *testing.T) {
	if _, err := NewMultiShipper([]ShipperConfig{{Enabled: true, Type: "webhook"}}); err == nil {
		t.Error("expected error when webhook config is missing")
	}
}
