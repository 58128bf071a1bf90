package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMain(m *testing.M) {
	// Deterministic secret so token round-trips are stable across tests.
	os.Setenv("SHB_JWT_SECRET", strings.Repeat("s", 32))
	os.Exit(m.Run())
}

const routerTestUserID = "7f8c1d8e-0f2a-4f60-9a3b-5a7d1c2e9b11"

var routerUserCols = []string{
	"id", "name", "email", "password_hash", "status", "email_verified",
	"is_super_admin", "failed_login_attempts", "locked_until", "created_at", "updated_at",
}

func testRouterConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Storage.DefaultBackend = "local"
	cfg.Storage.Local.BasePath = t.TempDir()
	cfg.Uploads.MaxSizeBytes = 5 << 20
	cfg.Auth.CredentialSweepHours = 24
	// Rate limiting stays disabled so tests never need Redis.
	cfg.Security.RateLimiting.Enabled = false
	return cfg
}

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	router, bg, err := NewRouter(testRouterConfig(t), db)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	t.Cleanup(bg.Shutdown)
	return router, mock
}

func get(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(router, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestReadyEndpointReportsDatabaseDown(t *testing.T) {
	router, mock := newTestRouter(t)
	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	w := get(router, "/ready", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(router, "/api/nothing-here", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["success"] != false {
		t.Fatalf("expected success=false envelope, got %v", body)
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/user/me", "/api/admin/stats"} {
		w := get(router, path, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestPublicSocietyListingSkipsAuth(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery("FROM societies").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "status", "created_by", "created_at", "updated_at",
		}))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	w := get(router, "/api/society", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthenticatedProfileFetch(t *testing.T) {
	router, mock := newTestRouter(t)

	token, err := auth.GenerateJWT(routerTestUserID, "pat@example.com", time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	now := time.Now()
	userRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(routerUserCols).AddRow(
			routerTestUserID, "Pat", "pat@example.com", "x", "ACTIVE", true,
			false, 0, nil, now, now,
		)
	}
	// Once for the auth middleware, once for the handler.
	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(userRow())
	mock.ExpectQuery("FROM users WHERE id").WillReturnRows(userRow())

	w := get(router, "/api/user/me", map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminSurfaceRequiresSuperAdmin(t *testing.T) {
	router, mock := newTestRouter(t)

	token, err := auth.GenerateJWT(routerTestUserID, "pat@example.com", time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	now := time.Now()
	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(sqlmock.NewRows(routerUserCols).AddRow(
			routerTestUserID, "Pat", "pat@example.com", "x", "ACTIVE", true,
			false, 0, nil, now, now,
		))

	w := get(router, "/api/admin/stats", map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}
