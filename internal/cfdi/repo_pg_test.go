package cfdi

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var jobCols = []string{"id", "quote_id", "customer", "total", "status", "attempts", "last_error", "created_at", "updated_at"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPGJobRepoCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	job := Job{ID: "j1", QuoteID: "q1", Customer: "ACME", Total: 50, Status: JobPending, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (quote_id) DO NOTHING")).
		WithArgs("j1", "q1", "ACME", 50.0, JobPending, 0, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (quote_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGJobRepo{DB: db}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(context.Background(), job); !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGJobRepoClaim(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SET attempts = attempts + 1")).
		WithArgs("j1", now).
		WillReturnRows(sqlmock.NewRows(jobCols).AddRow("j1", "q1", "ACME", 50.0, JobPending, 1, nil, now, now))

	repo := &PGJobRepo{DB: db}
	job, err := repo.Claim(context.Background(), "j1", now)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job.Attempts != 1 || job.LastError != nil {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestPGJobRepoClaimNotPending(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SET attempts = attempts + 1")).
		WithArgs("j1", now).
		WillReturnRows(sqlmock.NewRows(jobCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cfdi_pending WHERE id = $1")).
		WithArgs("j1").
		WillReturnRows(sqlmock.NewRows(jobCols).AddRow("j1", "q1", "ACME", 50.0, JobSent, 1, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SET attempts = attempts + 1")).
		WithArgs("missing", now).
		WillReturnRows(sqlmock.NewRows(jobCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cfdi_pending WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(jobCols))

	repo := &PGJobRepo{DB: db}
	job, err := repo.Claim(context.Background(), "j1", now)
	if !errors.Is(err, ErrNotPending) || job.Status != JobSent {
		t.Fatalf("expected ErrNotPending with current job, got %+v %v", job, err)
	}
	if _, err := repo.Claim(context.Background(), "missing", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGJobRepoSaveIsConditional(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	msg := "boom"
	job := Job{ID: "j1", Status: JobFailed, Attempts: 2, LastError: &msg, UpdatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending' AND attempts = $5")).
		WithArgs("j1", JobFailed, "boom", now, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'pending' AND attempts = $5")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGJobRepo{DB: db}
	if err := repo.Save(context.Background(), job); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(context.Background(), job); !errors.Is(err, ErrStaleJob) {
		t.Fatalf("expected ErrStaleJob, got %v", err)
	}
}

func TestPGJobRepoListByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 ORDER BY created_at DESC")).
		WithArgs(JobFailed).
		WillReturnRows(sqlmock.NewRows(jobCols).
			AddRow("j2", "q2", "ACME", 20.0, JobFailed, 5, "boom", now, now).
			AddRow("j1", "q1", "ACME", 10.0, JobFailed, 5, "boom", now.Add(-time.Hour), now))

	repo := &PGJobRepo{DB: db}
	jobs, err := repo.List(context.Background(), JobFailed)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "j2" || jobs[0].LastError == nil || *jobs[0].LastError != "boom" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestPGDocumentRepo(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	doc := Document{
		UUID: "d1", Customer: "ACME", Total: 50,
		XMLKey: "cfdi/d1.xml", PDFKey: "cfdi/d1.pdf",
		XMLURL: "http://x/cfdi/d1.xml", PDFURL: "http://x/cfdi/d1.pdf",
		Status: DocumentGenerated, CreatedAt: now,
	}
	cols := []string{"uuid", "job_id", "quote_id", "customer", "total", "xml_key", "pdf_key", "xml_url", "pdf_url", "status", "created_at"}

	mock.ExpectExec("INSERT INTO cfdi_documents").
		WithArgs("d1", nil, nil, "ACME", 50.0, doc.XMLKey, doc.PDFKey, doc.XMLURL, doc.PDFURL, DocumentGenerated, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cfdi_documents WHERE uuid = $1")).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("d1", nil, nil, "ACME", 50.0, doc.XMLKey, doc.PDFKey, doc.XMLURL, doc.PDFURL, DocumentGenerated, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cfdi_documents WHERE uuid = $1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(cols))

	repo := &PGDocumentRepo{DB: db}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetByUUID(context.Background(), "d1")
	if err != nil || got.XMLKey != doc.XMLKey || got.QuoteID != "" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := repo.GetByUUID(context.Background(), "nope"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
