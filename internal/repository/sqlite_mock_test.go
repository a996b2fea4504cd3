package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
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

var resultCols = []string{"id", "event_id", "color_id", "athlete_id", "rank", "points", "recorded_by", "recorded_at"}

// TestApplyResult_BeginError tests that a failed BEGIN is surfaced
func TestApplyResult_BeginError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

	if _, _, err := repo.ApplyResult(context.Background(), entry("e1", 1, 1, 1, 10)); err == nil {
		t.Error("expected begin error")
	}
}

// TestApplyResult_MissingColorRollsBack tests that the ledger write is rolled back when the color row is gone
func TestApplyResult_MissingColorRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM result_entries").WillReturnRows(sqlmock.NewRows(resultCols))
	mock.ExpectExec("INSERT INTO result_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE colors SET total_score = total_score").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := repo.ApplyResult(context.Background(), entry("e1", 1, 7, 1, 10))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestApplyResult_ZeroDeltaSkipsColorUpdate tests that re-recording the same points does not touch the total
func TestApplyResult_ZeroDeltaSkipsColorUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	e := entry("e2", 1, 7, 1, 10)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM result_entries").WillReturnRows(
		sqlmock.NewRows(resultCols).AddRow("e1", 1, 7, nil, 1, 10, "tester", e.RecordedAt))
	mock.ExpectExec("UPDATE result_entries").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	stored, previous, err := repo.ApplyResult(context.Background(), e)
	if err != nil {
		t.Fatalf("ApplyResult failed: %v", err)
	}
	if stored.ID != "e1" || previous.ID != "e1" {
		t.Errorf("expected correction of e1, got stored=%s previous=%s", stored.ID, previous.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestApplyResult_CommitError tests that a failed commit is surfaced
func TestApplyResult_CommitError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM result_entries").WillReturnRows(sqlmock.NewRows(resultCols))
	mock.ExpectExec("INSERT INTO result_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE colors").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	if _, _, err := repo.ApplyResult(context.Background(), entry("e1", 1, 7, 1, 10)); err == nil {
		t.Error("expected commit error")
	}
}

// TestInsertBallotWithinQuota_RetriesOnOrdinalCollision tests that a lost ordinal race is retried
func TestInsertBallotWithinQuota_RetriesOnOrdinalCollision(t *testing.T) {
	repo, mock := newMockRepo(t)
	collision := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}

	mock.ExpectExec("INSERT INTO ballots").WillReturnError(collision)
	mock.ExpectExec("INSERT INTO ballots").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT ordinal FROM ballots").WillReturnRows(sqlmock.NewRows([]string{"ordinal"}).AddRow(2))

	b, ok, err := repo.InsertBallotWithinQuota(context.Background(), ballot("b1", 1, 1, "user:1"), 3)
	if err != nil || !ok {
		t.Fatalf("expected success after retry, got ok=%v err=%v", ok, err)
	}
	if b.Ordinal != 2 {
		t.Errorf("expected ordinal 2, got %d", b.Ordinal)
	}
}

// TestInsertBallotWithinQuota_GivesUpAfterContention tests the retry bound
func TestInsertBallotWithinQuota_GivesUpAfterContention(t *testing.T) {
	repo, mock := newMockRepo(t)
	collision := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}

	for i := 0; i < maxOrdinalAttempts; i++ {
		mock.ExpectExec("INSERT INTO ballots").WillReturnError(collision)
	}

	_, ok, err := repo.InsertBallotWithinQuota(context.Background(), ballot("b1", 1, 1, "user:1"), 3)
	if ok || !errors.Is(err, ErrBallotContention) {
		t.Errorf("expected ErrBallotContention, got ok=%v err=%v", ok, err)
	}
}

// TestInsertBallotWithinQuota_OtherErrorNotRetried tests that non-constraint errors surface immediately
func TestInsertBallotWithinQuota_OtherErrorNotRetried(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO ballots").WillReturnError(errors.New("database is locked"))

	if _, _, err := repo.InsertBallotWithinQuota(context.Background(), ballot("b1", 1, 1, "user:1"), 3); err == nil {
		t.Error("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestRecomputeVoteSummaries_InsertErrorRollsBack tests that a failed rebuild leaves the old summaries
func TestRecomputeVoteSummaries_InsertErrorRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT athlete_id, event_id, stored, expected").
		WillReturnRows(sqlmock.NewRows([]string{"athlete_id", "event_id", "stored", "expected"}))
	mock.ExpectExec("DELETE FROM vote_summaries").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("INSERT INTO vote_summaries").WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	if _, err := repo.RecomputeVoteSummaries(context.Background()); err == nil {
		t.Error("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestRepairColorTotals_ScanError tests row scanning error
func TestRepairColorTotals_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT c.id, c.total_score").
		WillReturnRows(sqlmock.NewRows([]string{"id", "total_score", "expected"}).AddRow("bad-id", 1, 2))
	mock.ExpectRollback()

	if _, err := repo.RepairColorTotals(context.Background()); err == nil {
		t.Error("expected scan error")
	}
}

// TestListColors_QueryError tests that query errors are surfaced
func TestListColors_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM colors").WillReturnError(errors.New("query error"))

	if _, err := repo.ListColors(context.Background()); err == nil {
		t.Error("expected query error")
	}
}

// TestMatchRecords_ScanError tests row scanning error
func TestMatchRecords_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT color_id").
		WillReturnRows(sqlmock.NewRows([]string{"color_id", "played", "wins", "draws", "losses"}).AddRow("x", 1, 1, 0, 0))

	if _, err := repo.MatchRecords(context.Background()); err == nil {
		t.Error("expected scan error")
	}
}
