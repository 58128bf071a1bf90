package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
	"github.com/societyhub/societyhub/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testSocietyID = "3f9c2a44-6a1d-4a04-9a63-0f6f3a6b1c01"
	testEventID   = "7c2d3e54-8f91-4a2b-9c0d-2e6f7a8b9c04"
	testFormID    = "6b8f2c41-9d3e-4f77-a2b8-1c5d6e7f8a03"
	testUserID    = "8d0b6f2e-44b1-4d7e-8f3a-9c1d2e3f4a02"
)

// nullStore satisfies storage.Store; event registrations carry no uploads.
type nullStore struct{}

func (nullStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.Attachment, error) {
	return &storage.Attachment{Key: key}, nil
}
func (nullStore) Get(ctx context.Context, key string) (io.ReadCloser, error) { return nil, nil }
func (nullStore) Delete(ctx context.Context, key string) error               { return nil }
func (nullStore) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}
func (nullStore) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

type nullMailer struct{}

func (nullMailer) Send(to []string, subject, body string) error { return nil }

var eventSQLCols = []string{
	"id", "society_id", "title", "description", "location", "starts_at", "ends_at",
	"status", "created_by", "created_at", "updated_at",
}

var formSQLCols = []string{
	"id", "kind", "society_id", "event_id", "title", "fields",
	"is_active", "is_public", "created_at", "updated_at",
}

var regSQLCols = []string{
	"id", "user_id", "event_id", "form_id", "responses", "status",
	"rejection_reason", "reviewed_by", "reviewed_at", "created_at",
}

const eventFieldsJSON = `[
	{"label":"Full Name","field_type":"TEXT","is_required":true,"order":1},
	{"label":"Dietary","field_type":"DROPDOWN","options":["Veg","Non-veg"],"order":2}
]`

func eventRow(status models.EventStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(eventSQLCols).
		AddRow(testEventID, testSocietyID, "Annual Tournament", "", "Main Hall",
			now.Add(24*time.Hour), nil, string(status), testUserID, now, now)
}

func eventFormRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(formSQLCols).
		AddRow(testFormID, string(models.FormKindEvent), testSocietyID, testEventID,
			"Registration", []byte(eventFieldsJSON), true, true, now, now)
}

func newRouter(t *testing.T, userID string) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewHandlers(&config.Config{}, db, nullStore{}, nullMailer{})

	r := gin.New()
	if userID != "" {
		r.Use(func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		})
	}
	base := "/society/:societyID/events"
	r.POST(base, h.CreateEventHandler())
	r.GET(base, h.ListEventsHandler())
	r.GET(base+"/:eventID", h.GetEventHandler())
	r.PUT(base+"/:eventID", h.UpdateEventHandler())
	r.POST(base+"/:eventID/publish", h.PublishEventHandler())
	r.POST(base+"/:eventID/cancel", h.CancelEventHandler())
	r.POST(base+"/:eventID/form", h.CreateFormHandler())
	r.PUT(base+"/:eventID/form/:formID", h.UpdateFormHandler())
	r.POST(base+"/:eventID/register", h.RegisterHandler())
	r.GET(base+"/:eventID/registrations", h.ListRegistrationsHandler())
	r.PUT(base+"/:eventID/registrations/:registrationID", h.ReviewRegistrationHandler())
	r.GET(base+"/:eventID/registrations/export", h.ExportRegistrationsHandler("xlsx"))
	r.GET(base+"/:eventID/registrations/export-pdf", h.ExportRegistrationsHandler("pdf"))
	return mock, r
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewBuffer(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func eventsPath(rest string) string {
	return "/society/" + testSocietyID + "/events" + rest
}

// ---------------------------------------------------------------------------
// Authoring and lifecycle
// ---------------------------------------------------------------------------

func TestCreateEventHandler_Success(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectExec("INSERT INTO events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, "POST", eventsPath(""), gin.H{
		"title":     "Annual Tournament",
		"starts_at": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	event := resp["event"].(map[string]interface{})
	if event["status"] != string(models.EventDraft) {
		t.Errorf("status = %v, want DRAFT", event["status"])
	}
}

func TestCreateEventHandler_EndsBeforeStarts(t *testing.T) {
	_, r := newRouter(t, testUserID)

	start := time.Now().Add(24 * time.Hour)
	w := do(r, "POST", eventsPath(""), gin.H{
		"title":     "Annual Tournament",
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   start.Add(-time.Hour).Format(time.RFC3339),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestListEventsHandler_AnonymousHidesDrafts(t *testing.T) {
	mock, r := newRouter(t, "")

	now := time.Now()
	mock.ExpectQuery("FROM events WHERE society_id").
		WillReturnRows(sqlmock.NewRows(eventSQLCols).
			AddRow("ev-1", testSocietyID, "Draft", "", "", now, nil,
				string(models.EventDraft), testUserID, now, now).
			AddRow("ev-2", testSocietyID, "Published", "", "", now, nil,
				string(models.EventPublished), testUserID, now, now))

	w := do(r, "GET", eventsPath(""), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	events := resp["events"].([]interface{})
	if len(events) != 1 {
		t.Fatalf("events = %d, want drafts hidden", len(events))
	}
	if events[0].(map[string]interface{})["title"] != "Published" {
		t.Errorf("wrong event survived the filter")
	}
}

func TestPublishEventHandler_OnlyFromDraft(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventPublished))

	w := do(r, "POST", eventsPath("/"+testEventID+"/publish"), nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestPublishEventHandler_Success(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventDraft))
	mock.ExpectExec("UPDATE events SET status").
		WithArgs(string(models.EventPublished), sqlmock.AnyArg(), testEventID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, "POST", eventsPath("/"+testEventID+"/publish"), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestCancelEventHandler_AlreadyCancelled(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventCancelled))

	w := do(r, "POST", eventsPath("/"+testEventID+"/cancel"), nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestGetEventHandler_ForeignSocietyHidden(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	now := time.Now()
	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(sqlmock.NewRows(eventSQLCols).
			AddRow(testEventID, "other-society", "Event", "", "", now, nil,
				string(models.EventPublished), testUserID, now, now))

	w := do(r, "GET", eventsPath("/"+testEventID), nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Registration form
// ---------------------------------------------------------------------------

func TestCreateFormHandler_AllowsEventOnlyFieldTypes(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventDraft))
	mock.ExpectQuery("FROM forms").
		WillReturnRows(sqlmock.NewRows(formSQLCols))
	mock.ExpectExec("INSERT INTO forms").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, "POST", eventsPath("/"+testEventID+"/form"), gin.H{
		"title": "Registration",
		"fields": []gin.H{
			{"label": "Arrival", "field_type": "DATE", "order": 1},
			{"label": "Phone", "field_type": "PHONE", "order": 2},
		},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Registration and review
// ---------------------------------------------------------------------------

func TestRegisterHandler_Success(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	// Once for the route's society check, once inside the workflow.
	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventPublished))
	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventPublished))
	mock.ExpectQuery("FROM forms").
		WillReturnRows(eventFormRow())
	mock.ExpectQuery("FROM event_registrations WHERE user_id").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO event_registrations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, "POST", eventsPath("/"+testEventID+"/register"), gin.H{
		"responses": models.ResponseList{
			{FieldLabel: "Full Name", Value: "Ada Lovelace"},
			{FieldLabel: "Dietary", Value: "Veg"},
		},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
}

func TestRegisterHandler_DraftEventClosed(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventDraft))
	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventDraft))

	w := do(r, "POST", eventsPath("/"+testEventID+"/register"), gin.H{
		"responses": models.ResponseList{{FieldLabel: "Full Name", Value: "Ada"}},
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", w.Code, w.Body.String())
	}
}

func TestRegisterHandler_SocietyMismatch(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	// Event exists but belongs to a different society than the route names.
	now := time.Now()
	foreign := sqlmock.NewRows(eventSQLCols).
		AddRow(testEventID, "00000000-0000-4000-8000-0000000000ff", "Annual Tournament", "",
			"Main Hall", now.Add(24*time.Hour), nil, string(models.EventPublished), testUserID, now, now)
	mock.ExpectQuery("FROM events WHERE id").WillReturnRows(foreign)

	w := do(r, "POST", eventsPath("/"+testEventID+"/register"), gin.H{
		"responses": models.ResponseList{{FieldLabel: "Full Name", Value: "Ada"}},
	})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestReviewRegistrationHandler_Approve(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectExec("UPDATE event_registrations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM event_registrations WHERE id").
		WillReturnRows(sqlmock.NewRows(regSQLCols).
			AddRow("reg-1", testUserID, testEventID, testFormID, []byte("[]"),
				string(models.RequestApproved), nil, testUserID, time.Now(), time.Now()))

	w := do(r, "PUT", eventsPath("/"+testEventID+"/registrations/reg-1"),
		gin.H{"action": "approve"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "APPROVED") {
		t.Errorf("expected resolved registration in %s", w.Body.String())
	}
}

func TestReviewRegistrationHandler_Missing(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectExec("UPDATE event_registrations SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM event_registrations WHERE id").
		WillReturnRows(sqlmock.NewRows(regSQLCols))

	w := do(r, "PUT", eventsPath("/"+testEventID+"/registrations/reg-404"),
		gin.H{"action": "reject"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

func TestExportRegistrationsHandler_PDF(t *testing.T) {
	mock, r := newRouter(t, testUserID)

	mock.ExpectQuery("FROM events WHERE id").
		WillReturnRows(eventRow(models.EventPublished))
	mock.ExpectQuery("FROM forms").
		WillReturnRows(eventFormRow())
	responses, _ := json.Marshal(models.ResponseList{
		{FieldLabel: "Full Name", Value: "Ada Lovelace"},
		{FieldLabel: "Dietary", Value: "Veg"},
	})
	mock.ExpectQuery("FROM event_registrations").
		WillReturnRows(sqlmock.NewRows(regSQLCols).
			AddRow("reg-1", testUserID, testEventID, testFormID, responses,
				string(models.RequestApproved), nil, nil, nil, time.Now()))

	w := do(r, "GET", eventsPath("/"+testEventID+"/registrations/export-pdf"), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF document")
	}
}
