package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/repositories"
)

const authMWUserID = "a6c7ff10-91c1-4b01-b9d1-9e3a0a3aa001"

var userColsMW = []string{
	"id", "name", "email", "password_hash", "status", "email_verified",
	"is_super_admin", "failed_login_attempts", "locked_until", "created_at", "updated_at",
}

func userRowMW(status string, superAdmin bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userColsMW).
		AddRow(authMWUserID, "Ada Lovelace", "ada@example.com", "$2a$10$hash", status, true,
			superAdmin, 0, nil, now, now)
}

func authRouter(mid gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", mid, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":        c.GetString("user_id"),
			"is_super_admin": c.GetBool("is_super_admin"),
		})
	})
	return r
}

func doAuthed(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func containsJSON(body, fragment string) bool {
	return strings.Contains(body, fragment)
}

func testToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateJWT(userID, "ada@example.com", 0)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	mid := AuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	w := doAuthed(authRouter(mid), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_NotBearer(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	mid := AuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	w := doAuthed(authRouter(mid), "Basic dXNlcjpwYXNz")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_EmptyToken(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	mid := AuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	w := doAuthed(authRouter(mid), "Bearer    ")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_GarbageToken(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	mid := AuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	w := doAuthed(authRouter(mid), "Bearer not-a-jwt")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	mid := AuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	token, err := auth.GenerateJWT(authMWUserID, "ada@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	w := doAuthed(authRouter(mid), "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_UserNotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mid := AuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	// Valid token for an account that no longer exists.
	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(sqlmock.NewRows(userColsMW))

	w := doAuthed(authRouter(mid), "Bearer "+testToken(t, authMWUserID))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_SuspendedUser(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mid := AuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(userRowMW("SUSPENDED", false))

	w := doAuthed(authRouter(mid), "Bearer "+testToken(t, authMWUserID))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAuthMiddleware_Success(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mid := AuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(userRowMW("ACTIVE", false))

	w := doAuthed(authRouter(mid), "Bearer "+testToken(t, authMWUserID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); !containsJSON(got, authMWUserID) {
		t.Errorf("user_id not propagated to handler context: %s", got)
	}
}

func TestAuthMiddleware_SuperAdminByConfigList(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	cfg := &config.Config{}
	cfg.Auth.SuperAdminEmails = []string{"ADA@example.com"}
	mid := AuthMiddleware(cfg, repositories.NewUserRepository(db))

	// Account flag is false; the bootstrap list match is case-insensitive.
	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(userRowMW("ACTIVE", false))

	w := doAuthed(authRouter(mid), "Bearer "+testToken(t, authMWUserID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !containsJSON(w.Body.String(), `"is_super_admin":true`) {
		t.Errorf("expected super admin context: %s", w.Body.String())
	}
}

func TestOptionalAuthMiddleware_NoHeaderPasses(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	mid := OptionalAuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	w := doAuthed(authRouter(mid), "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestOptionalAuthMiddleware_BadTokenPassesAnonymously(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	mid := OptionalAuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	w := doAuthed(authRouter(mid), "Bearer junk")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if containsJSON(w.Body.String(), authMWUserID) {
		t.Errorf("anonymous request should carry no user context: %s", w.Body.String())
	}
}

func TestOptionalAuthMiddleware_ValidTokenSetsContext(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	mid := OptionalAuthMiddleware(&config.Config{}, repositories.NewUserRepository(db))

	mock.ExpectQuery("FROM users WHERE id").
		WillReturnRows(userRowMW("ACTIVE", false))

	w := doAuthed(authRouter(mid), "Bearer "+testToken(t, authMWUserID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !containsJSON(w.Body.String(), authMWUserID) {
		t.Errorf("user_id not propagated: %s", w.Body.String())
	}
}
