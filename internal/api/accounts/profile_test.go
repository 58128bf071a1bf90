package accounts

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func newProfileRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewProfileHandlers(db)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", testUserID)
		c.Next()
	})
	r.GET("/user/me", h.GetMeHandler())
	r.PUT("/user/me", h.UpdateMeHandler())
	r.GET("/user/societies", h.MySocietiesHandler())
	r.GET("/user/requests", h.MyRequestsHandler())
	return r, mock
}

func TestGetMeHandler(t *testing.T) {
	r, mock := newProfileRouter(t)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs(testUserID).
		WillReturnRows(activeUserRow("x"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/me", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "pat@example.com") {
		t.Fatalf("expected the account in the payload, got %s", w.Body.String())
	}
}

func TestUpdateMeHandler_BlankName(t *testing.T) {
	r, _ := newProfileRouter(t)

	raw, _ := json.Marshal(gin.H{"name": "   "})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/user/me", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMySocietiesHandler(t *testing.T) {
	r, mock := newProfileRouter(t)

	mock.ExpectQuery("FROM society_user_roles WHERE user_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "society_id", "role", "group_id", "assigned_by", "assigned_at",
		}).AddRow("r-1", testUserID, "s-1", "MEMBER", nil, nil, time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/societies", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "memberships") {
		t.Fatalf("expected memberships key, got %s", w.Body.String())
	}
}

func TestMyRequestsHandler(t *testing.T) {
	r, mock := newProfileRouter(t)

	mock.ExpectQuery("FROM join_requests WHERE user_id").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "society_id", "form_id", "responses", "selected_group_id",
			"status", "rejection_reason", "reviewed_by", "reviewed_at", "created_at",
		}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/requests", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
