package groups

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/societyhub/societyhub/internal/config"
	"github.com/societyhub/societyhub/internal/db/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testSocietyID = "3f9c2a44-6a1d-4a04-9a63-0f6f3a6b1c01"
	testGroupID   = "5a7e1b30-2c4f-4d88-b1e2-7d8f9a0b1c02"
	testUserID    = "8d0b6f2e-44b1-4d7e-8f3a-9c1d2e3f4a02"
)

var groupSQLCols = []string{"id", "society_id", "name", "description", "created_at", "updated_at"}

func groupRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(groupSQLCols).
		AddRow(testGroupID, testSocietyID, "Openings", "Opening theory", now, now)
}

func foreignGroupRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(groupSQLCols).
		AddRow(testGroupID, "some-other-society", "Openings", "", now, now)
}

func newRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewHandlers(&config.Config{}, db)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", testUserID)
		c.Next()
	})
	base := "/society/:societyID/groups"
	r.POST(base, h.CreateGroupHandler())
	r.GET(base, h.ListGroupsHandler())
	r.PUT(base+"/:groupID", h.UpdateGroupHandler())
	r.DELETE(base+"/:groupID", h.DeleteGroupHandler())
	r.GET(base+"/:groupID/members", h.ListGroupMembersHandler())
	r.POST(base+"/:groupID/members", h.AddGroupMemberHandler())
	r.DELETE(base+"/:groupID/members/:userID", h.RemoveGroupMemberHandler())
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

func groupsPath(rest string) string {
	return "/society/" + testSocietyID + "/groups" + rest
}

func TestCreateGroupHandler_Success(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectExec("INSERT INTO groups").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, "POST", groupsPath(""), gin.H{"name": " Openings ", "description": "Opening theory"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	group := resp["group"].(map[string]interface{})
	if group["name"] != "Openings" {
		t.Errorf("name = %v, want trimmed Openings", group["name"])
	}
	if group["society_id"] != testSocietyID {
		t.Errorf("society_id = %v, want route society", group["society_id"])
	}
}

func TestCreateGroupHandler_EmptyName(t *testing.T) {
	_, r := newRouter(t)

	w := do(r, "POST", groupsPath(""), gin.H{"name": "  "})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListGroupsHandler(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery("FROM groups WHERE society_id").
		WithArgs(testSocietyID).
		WillReturnRows(groupRow())

	w := do(r, "GET", groupsPath(""), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if n := len(resp["groups"].([]interface{})); n != 1 {
		t.Errorf("groups = %d, want 1", n)
	}
}

func TestUpdateGroupHandler_ForeignSocietyHidden(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery("FROM groups WHERE id").
		WithArgs(testGroupID).
		WillReturnRows(foreignGroupRow())

	w := do(r, "PUT", groupsPath("/"+testGroupID), gin.H{"name": "Endgames"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestDeleteGroupHandler_DemotesLeaders(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery("FROM groups WHERE id").
		WillReturnRows(groupRow())
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM group_members").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE society_user_roles SET role").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM groups").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := do(r, "DELETE", groupsPath("/"+testGroupID), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAddGroupMemberHandler_NotSocietyMember(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery("FROM groups WHERE id").
		WillReturnRows(groupRow())
	mock.ExpectQuery("FROM society_user_roles WHERE user_id").
		WithArgs(testUserID, testSocietyID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := do(r, "POST", groupsPath("/"+testGroupID+"/members"), gin.H{"user_id": testUserID})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestAddGroupMemberHandler_Duplicate(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery("FROM groups WHERE id").
		WillReturnRows(groupRow())
	mock.ExpectQuery("FROM society_user_roles WHERE user_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "society_id", "role", "group_id", "assigned_by", "assigned_at",
		}).AddRow("role-1", testUserID, testSocietyID, "MEMBER", nil, testUserID, time.Now()))
	mock.ExpectExec("INSERT INTO group_members").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := do(r, "POST", groupsPath("/"+testGroupID+"/members"), gin.H{"user_id": testUserID})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestRemoveGroupMemberHandler_NotInGroup(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery("FROM groups WHERE id").
		WillReturnRows(groupRow())
	mock.ExpectExec("DELETE FROM group_members").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := do(r, "DELETE", groupsPath("/"+testGroupID+"/members/"+testUserID), nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestListGroupMembersHandler(t *testing.T) {
	mock, r := newRouter(t)

	mock.ExpectQuery("FROM groups WHERE id").
		WillReturnRows(groupRow())
	mock.ExpectQuery("FROM group_members gm").
		WithArgs(testGroupID).
		WillReturnRows(sqlmock.NewRows([]string{
			"group_id", "user_id", "society_id", "added_at", "name", "email", "role",
		}).AddRow(testGroupID, testUserID, testSocietyID, time.Now(),
			"Alice", "alice@example.com", string(models.RoleLead)))

	w := do(r, "GET", groupsPath("/"+testGroupID+"/members"), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	members := resp["members"].([]interface{})
	if len(members) != 1 {
		t.Fatalf("members = %d, want 1", len(members))
	}
	if members[0].(map[string]interface{})["role"] != "LEAD" {
		t.Errorf("role missing from group member payload")
	}
}
