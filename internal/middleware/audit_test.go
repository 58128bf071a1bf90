package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/societyhub/societyhub/internal/audit"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

// recordingShipper captures shipped entries so the detached audit write
// becomes observable to tests.
type recordingShipper struct {
	mu      sync.Mutex
	entries []*audit.LogEntry
	ch      chan *audit.LogEntry
}

func newRecordingShipper() *recordingShipper {
	return &recordingShipper{ch: make(chan *audit.LogEntry, 10)}
}

func (s *recordingShipper) Ship(ctx context.Context, entry *audit.LogEntry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	s.ch <- entry
	return nil
}

func (s *recordingShipper) Close() error { return nil }

func (s *recordingShipper) wait(t *testing.T) *audit.LogEntry {
	t.Helper()
	select {
	case entry := <-s.ch:
		return entry
	case <-time.After(time.Second):
		t.Fatal("audit entry never shipped")
		return nil
	}
}

func (s *recordingShipper) assertNothingShipped(t *testing.T) {
	t.Helper()
	select {
	case entry := <-s.ch:
		t.Fatalf("unexpected audit entry: %+v", entry)
	case <-time.After(100 * time.Millisecond):
	}
}

func auditRouter(shipper audit.Shipper, auditCfg *config.AuditConfig, userID string, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	seed := func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
	}
	handler := func(c *gin.Context) {
		c.JSON(status, gin.H{"success": status < 400})
	}
	mid := AuditMiddlewareWithShipper(nil, shipper, auditCfg)
	r.POST("/api/society/:societyID/members", seed, mid, handler)
	r.GET("/api/society/:societyID/members", seed, mid, handler)
	r.DELETE("/api/groups/:groupID", seed, mid, handler)
	return r
}

func TestAuditMiddleware_RecordsAuthenticatedWrite(t *testing.T) {
	shipper := newRecordingShipper()
	r := auditRouter(shipper, nil, "user-1", http.StatusCreated)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/society/11111111-1111-1111-1111-111111111111/members", nil)
	req.Header.Set("User-Agent", "test-agent")
	r.ServeHTTP(w, req)

	entry := shipper.wait(t)
	if entry.Action != "POST /api/society/:societyID/members" {
		t.Errorf("action = %q, want route template", entry.Action)
	}
	if entry.ResourceType != "society" {
		t.Errorf("resource_type = %q, want society", entry.ResourceType)
	}
	if entry.ResourceID != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("resource_id = %q", entry.ResourceID)
	}
	if entry.UserID != "user-1" || entry.StatusCode != http.StatusCreated {
		t.Errorf("entry = %+v", entry)
	}
	if entry.UserAgent != "test-agent" {
		t.Errorf("user_agent = %q", entry.UserAgent)
	}
}

func TestAuditMiddleware_GroupRouteResourceType(t *testing.T) {
	shipper := newRecordingShipper()
	r := auditRouter(shipper, nil, "user-1", http.StatusOK)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/groups/22222222-2222-2222-2222-222222222222", nil))

	entry := shipper.wait(t)
	if entry.ResourceType != "group" {
		t.Errorf("resource_type = %q, want group", entry.ResourceType)
	}
	if entry.ResourceID != "22222222-2222-2222-2222-222222222222" {
		t.Errorf("resource_id = %q", entry.ResourceID)
	}
}

func TestAuditMiddleware_SkipsAnonymousRequests(t *testing.T) {
	shipper := newRecordingShipper()
	r := auditRouter(shipper, nil, "", http.StatusCreated)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/society/11111111-1111-1111-1111-111111111111/members", nil))

	shipper.assertNothingShipped(t)
}

func TestAuditMiddleware_SkipsReadsByDefault(t *testing.T) {
	shipper := newRecordingShipper()
	r := auditRouter(shipper, nil, "user-1", http.StatusOK)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/society/11111111-1111-1111-1111-111111111111/members", nil))

	shipper.assertNothingShipped(t)
}

func TestAuditMiddleware_LogsReadsWhenConfigured(t *testing.T) {
	shipper := newRecordingShipper()
	cfg := &config.AuditConfig{Enabled: true, LogReadOperations: true}
	r := auditRouter(shipper, cfg, "user-1", http.StatusOK)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/society/11111111-1111-1111-1111-111111111111/members", nil))

	if entry := shipper.wait(t); entry.StatusCode != http.StatusOK {
		t.Errorf("status_code = %d", entry.StatusCode)
	}
}

func TestAuditMiddleware_SkipsFailuresByDefault(t *testing.T) {
	shipper := newRecordingShipper()
	r := auditRouter(shipper, nil, "user-1", http.StatusConflict)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/society/11111111-1111-1111-1111-111111111111/members", nil))

	shipper.assertNothingShipped(t)
}

func TestAuditMiddleware_LogsFailuresWhenConfigured(t *testing.T) {
	shipper := newRecordingShipper()
	cfg := &config.AuditConfig{Enabled: true, LogFailedRequests: true}
	r := auditRouter(shipper, cfg, "user-1", http.StatusConflict)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/society/11111111-1111-1111-1111-111111111111/members", nil))

	if entry := shipper.wait(t); entry.StatusCode != http.StatusConflict {
		t.Errorf("status_code = %d", entry.StatusCode)
	}
}

func TestAuditMiddleware_WritesToDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	auditRepo := repositories.NewAuditRepository(sqlx.NewDb(db, "postgres"))

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/society/:societyID/members", func(c *gin.Context) {
		c.Set("user_id", "user-1")
	}, AuditMiddleware(auditRepo), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/society/11111111-1111-1111-1111-111111111111/members", nil))

	// The insert happens on a detached goroutine; poll briefly.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if mock.ExpectationsWereMet() == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("audit insert never happened: %v", mock.ExpectationsWereMet())
}

func TestResourceTypeFor(t *testing.T) {
	cases := map[string]string{
		"/api/society/:societyID/members": "society",
		"/api/groups/:groupID":            "group",
		"/api/events/:eventID/register":   "event",
		"/api/forms/:formID":              "form",
		"/api/email/society/:societyID":   "email",
		"/api/auth/login":                 "auth",
		"/api/user/profile":               "user",
		"/api/admin/societies":            "admin",
		"/metrics":                        "other",
	}
	for route, want := range cases {
		if got := resourceTypeFor(route); got != want {
			t.Errorf("resourceTypeFor(%q) = %q, want %q", route, got, want)
		}
	}
}
