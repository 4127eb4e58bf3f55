package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Repository{db: db}, mock
}

func TestListCandidates_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM candidates").WillReturnError(errors.New("disk I/O error"))

	if _, err := repo.ListCandidates(context.Background()); err == nil {
		t.Error("expected query error to propagate")
	}
}

func TestListCandidates_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Fewer columns than the scan expects
	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow("c1", "Ana")
	mock.ExpectQuery("SELECT (.+) FROM candidates").WillReturnRows(rows)

	if _, err := repo.ListCandidates(context.Background()); err == nil {
		t.Error("expected scan error, got nil")
	}
}

func TestListCandidates_BadScoresJSON(t *testing.T) {
	repo, mock := newMockRepo(t)

	cols := []string{"id", "name", "date_of_birth", "school_name", "selected_sport", "status", "status_updated_at", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM candidates").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("c1", "Ana", "2012-01-01", "X", "football", "pending", nil, "2024-01-01T00:00:00Z"))
	mock.ExpectQuery("SELECT (.+) FROM evaluations").
		WillReturnRows(sqlmock.NewRows([]string{"candidate_id", "sport", "date", "scores", "comments"}).
			AddRow("c1", "football", "2024-01-01T00:00:00Z", "{not json", nil))

	if _, err := repo.ListCandidates(context.Background()); err == nil {
		t.Error("expected error for corrupt scores column")
	}
}

func TestListCandidates_HistoryQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	cols := []string{"id", "name", "date_of_birth", "school_name", "selected_sport", "status", "status_updated_at", "created_at"}
	mock.ExpectQuery("SELECT (.+) FROM candidates").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("c1", "Ana", "2012-01-01", "X", "football", "pending", nil, "2024-01-01T00:00:00Z"))
	mock.ExpectQuery("SELECT (.+) FROM evaluations").
		WillReturnRows(sqlmock.NewRows([]string{"candidate_id", "sport", "date", "scores", "comments"}))
	mock.ExpectQuery("SELECT (.+) FROM evaluation_history").WillReturnError(errors.New("locked"))

	if _, err := repo.ListCandidates(context.Background()); err == nil {
		t.Error("expected history query error to propagate")
	}
}

func TestGetCandidate_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM candidates WHERE id").WillReturnError(errors.New("boom"))

	_, err := repo.GetCandidate(context.Background(), "c1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected raw query error, got %v", err)
	}
}

func TestPutCandidate_BeginError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("cannot begin"))

	if err := repo.PutCandidate(context.Background(), sampleCandidate("c1", "Ana")); err == nil {
		t.Error("expected begin error")
	}
}

func TestPutCandidate_InsertErrorRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO candidates").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	if err := repo.PutCandidate(context.Background(), sampleCandidate("c1", "Ana")); err == nil {
		t.Error("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReplaceCandidates_DeleteErrorRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM evaluation_history").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := repo.ReplaceCandidates(context.Background(), nil); err == nil {
		t.Error("expected delete error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReplaceCandidates_CommitError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM evaluation_history").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM evaluations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM candidates").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	if err := repo.ReplaceCandidates(context.Background(), nil); err == nil {
		t.Error("expected commit error")
	}
}

func TestDeleteCandidate_ExecError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM evaluations").WillReturnError(errors.New("busy"))
	mock.ExpectRollback()

	if err := repo.DeleteCandidate(context.Background(), "c1"); err == nil {
		t.Error("expected exec error")
	}
}

func TestListOrganizations_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"name", "custom"}).AddRow("X", "not-a-bool")
	mock.ExpectQuery("SELECT (.+) FROM organizations").WillReturnRows(rows)

	if _, err := repo.ListOrganizations(context.Background()); err == nil {
		t.Error("expected scan error")
	}
}

func TestAddOrganization_RowsAffectedError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT OR IGNORE INTO organizations").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no rows affected info")))

	if _, err := repo.AddOrganization(context.Background(), "X", true); err == nil {
		t.Error("expected RowsAffected error")
	}
}

func TestGetSetting_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT value FROM settings").WillReturnError(errors.New("boom"))

	_, err := repo.GetSetting(context.Background(), "k")
	if err == nil || err == ErrNotFound {
		t.Errorf("expected raw error, got %v", err)
	}
}
