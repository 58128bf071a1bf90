package repositories

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/societyhub/societyhub/internal/db/models"
)

func newSocietyRepo(t *testing.T) (*SocietyRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSocietyRepository(db), mock
}

func TestApproveRequest_CreatesSocietyAndPresident(t *testing.T) {
	repo, mock := newSocietyRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM society_requests WHERE id").
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "requested_by", "status"}).
			AddRow("req-1", "Chess Club", "We play chess", "user-1", "PENDING"))
	mock.ExpectExec("INSERT INTO societies").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO society_user_roles").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE society_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	society, err := repo.ApproveRequest(context.Background(), "req-1", "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if society == nil {
		t.Fatal("expected a society")
	}
	if society.Name != "Chess Club" {
		t.Errorf("name = %s, want Chess Club", society.Name)
	}
	if society.CreatedBy != "user-1" {
		t.Errorf("created_by = %s, want user-1", society.CreatedBy)
	}
	if society.Status != models.SocietyActive {
		t.Errorf("status = %s, want ACTIVE", society.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApproveRequest_AlreadyResolved(t *testing.T) {
	repo, mock := newSocietyRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM society_requests WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "requested_by", "status"}).
			AddRow("req-1", "Chess Club", "We play chess", "user-1", "REJECTED"))
	mock.ExpectRollback()

	if _, err := repo.ApproveRequest(context.Background(), "req-1", "admin-1"); err != ErrAlreadyProcessed {
		t.Errorf("err = %v, want ErrAlreadyProcessed", err)
	}
}

func TestApproveRequest_DuplicateSocietyName(t *testing.T) {
	repo, mock := newSocietyRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM society_requests WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "requested_by", "status"}).
			AddRow("req-1", "Chess Club", "We play chess", "user-1", "PENDING"))
	mock.ExpectExec("INSERT INTO societies").
		WillReturnError(pqUniqueViolation())
	mock.ExpectRollback()

	if _, err := repo.ApproveRequest(context.Background(), "req-1", "admin-1"); err != ErrDuplicateName {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
}

func TestApproveRequest_Missing(t *testing.T) {
	repo, mock := newSocietyRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM society_requests WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "requested_by", "status"}))
	mock.ExpectRollback()

	society, err := repo.ApproveRequest(context.Background(), "missing", "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if society != nil {
		t.Errorf("expected nil society, got %+v", society)
	}
}

func TestRejectRequest_AlreadyResolved(t *testing.T) {
	repo, mock := newSocietyRepo(t)
	mock.ExpectExec("UPDATE society_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.RejectRequest(context.Background(), "req-1", "admin-1", "no"); err != ErrAlreadyProcessed {
		t.Errorf("err = %v, want ErrAlreadyProcessed", err)
	}
}

func TestCreateRequest_PendingAlreadyExists(t *testing.T) {
	repo, mock := newSocietyRepo(t)
	mock.ExpectExec("INSERT INTO society_requests").
		WillReturnError(pqUniqueViolation())

	req := &models.SocietyRequest{Name: "Chess Club", RequestedBy: "user-1"}
	if err := repo.CreateRequest(context.Background(), req); err != ErrPendingExists {
		t.Errorf("err = %v, want ErrPendingExists", err)
	}
}
