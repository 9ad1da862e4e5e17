package quotes

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var quoteCols = []string{"id", "customer", "total", "status", "token", "created_at", "token_expires_at"}

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	exp := created.Add(7 * 24 * time.Hour)
	q := Quote{ID: "abc123def456", Customer: "ACME", Total: 50, Status: StatusPending, Token: "tok", CreatedAt: created, TokenExpiresAt: &exp}

	mock.ExpectExec("INSERT INTO quotes").
		WithArgs(q.ID, q.Customer, q.Total, q.Status, q.Token, q.CreatedAt, sql.NullTime{Time: exp, Valid: true}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &PGRepo{DB: db}
	if err := repo.Create(context.Background(), q); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByTokenNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM quotes WHERE token = $1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(quoteCols))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByToken(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoScanNormalizesNaiveTimestampToUTC(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	loc := time.FixedZone("CST", -6*60*60)
	created := time.Date(2026, time.March, 2, 4, 0, 0, 0, loc)
	mock.ExpectQuery(regexp.QuoteMeta("FROM quotes WHERE id = $1")).
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows(quoteCols).AddRow("q1", "ACME", 50.0, StatusPending, "tok", created, nil))

	repo := &PGRepo{DB: db}
	q, err := repo.GetByID(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if q.CreatedAt.Location() != time.UTC || q.CreatedAt.Hour() != 10 {
		t.Fatalf("expected UTC 10:00, got %v", q.CreatedAt)
	}
	if q.TokenExpiresAt != nil {
		t.Fatalf("expected nil expiry, got %v", q.TokenExpiresAt)
	}
}

func TestPGRepoTransitionWins(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE quotes SET status = $2")).
		WithArgs("q1", StatusApproved).
		WillReturnRows(sqlmock.NewRows(quoteCols).AddRow("q1", "ACME", 50.0, StatusApproved, "tok", now, now))

	repo := &PGRepo{DB: db}
	q, changed, err := repo.Transition(context.Background(), "q1", StatusApproved)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !changed || q.Status != StatusApproved {
		t.Fatalf("expected changed approved, got %v %+v", changed, q)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoTransitionLoserReadsCurrent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE quotes SET status = $2")).
		WithArgs("q1", StatusApproved).
		WillReturnRows(sqlmock.NewRows(quoteCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM quotes WHERE id = $1")).
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows(quoteCols).AddRow("q1", "ACME", 50.0, StatusRejected, "tok", now, nil))

	repo := &PGRepo{DB: db}
	q, changed, err := repo.Transition(context.Background(), "q1", StatusApproved)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if changed || q.Status != StatusRejected {
		t.Fatalf("expected unchanged rejected, got %v %+v", changed, q)
	}
}

func TestPGRepoTransitionMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE quotes SET status = $2")).
		WithArgs("missing", StatusRejected).
		WillReturnRows(sqlmock.NewRows(quoteCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM quotes WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(quoteCols))

	repo := &PGRepo{DB: db}
	if _, _, err := repo.Transition(context.Background(), "missing", StatusRejected); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
