package cfdi

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGJobRepo implements JobRepo using Postgres.
type PGJobRepo struct {
	DB *sql.DB
}

const jobColumns = `id, quote_id, customer, total, status, attempts, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create relies on the unique quote_id index; a conflicting insert is a no-op
// reported as ErrDuplicateJob.
func (r *PGJobRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO cfdi_pending (id, quote_id, customer, total, status, attempts, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (quote_id) DO NOTHING`
	res, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.QuoteID,
		job.Customer,
		job.Total,
		job.Status,
		job.Attempts,
		nullString(job.LastError),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateJob
	}
	return nil
}

func (r *PGJobRepo) GetByID(ctx context.Context, id string) (Job, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM cfdi_pending WHERE id = $1`, id)
	return scanJobOne(row)
}

func (r *PGJobRepo) GetByQuoteID(ctx context.Context, quoteID string) (Job, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM cfdi_pending WHERE quote_id = $1`, quoteID)
	return scanJobOne(row)
}

func (r *PGJobRepo) List(ctx context.Context, status string) ([]Job, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.DB.QueryContext(ctx, `SELECT `+jobColumns+` FROM cfdi_pending ORDER BY created_at DESC, id DESC`)
	} else {
		rows, err = r.DB.QueryContext(ctx, `SELECT `+jobColumns+` FROM cfdi_pending WHERE status = $1 ORDER BY created_at DESC, id DESC`, status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *PGJobRepo) Claim(ctx context.Context, id string, now time.Time) (Job, error) {
	row := r.DB.QueryRowContext(ctx, `
UPDATE cfdi_pending SET attempts = attempts + 1, updated_at = $2
WHERE id = $1 AND status = 'pending'
RETURNING `+jobColumns, id, now)
	job, err := scanJobOne(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Job{}, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return Job{}, err
	}
	return current, ErrNotPending
}

func (r *PGJobRepo) Save(ctx context.Context, job Job) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE cfdi_pending SET status = $2, last_error = $3, updated_at = $4
WHERE id = $1 AND status = 'pending' AND attempts = $5`,
		job.ID,
		job.Status,
		nullString(job.LastError),
		job.UpdatedAt,
		job.Attempts,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleJob
	}
	return nil
}

func scanJobOne(row rowScanner) (Job, error) {
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var lastError sql.NullString
	if err := row.Scan(
		&job.ID,
		&job.QuoteID,
		&job.Customer,
		&job.Total,
		&job.Status,
		&job.Attempts,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	if lastError.Valid {
		msg := lastError.String
		job.LastError = &msg
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return job, nil
}

// PGDocumentRepo implements DocumentRepo using Postgres.
type PGDocumentRepo struct {
	DB *sql.DB
}

const documentColumns = `uuid, job_id, quote_id, customer, total, xml_key, pdf_key, xml_url, pdf_url, status, created_at`

func (r *PGDocumentRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO cfdi_documents (` + documentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.UUID,
		emptyToNull(doc.JobID),
		emptyToNull(doc.QuoteID),
		doc.Customer,
		doc.Total,
		doc.XMLKey,
		doc.PDFKey,
		doc.XMLURL,
		doc.PDFURL,
		doc.Status,
		doc.CreatedAt,
	)
	return err
}

func (r *PGDocumentRepo) GetByUUID(ctx context.Context, uuid string) (Document, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM cfdi_documents WHERE uuid = $1`, uuid)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *PGDocumentRepo) ListByQuoteID(ctx context.Context, quoteID string) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+documentColumns+` FROM cfdi_documents WHERE quote_id = $1 ORDER BY created_at DESC`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var jobID, quoteID sql.NullString
	if err := row.Scan(
		&doc.UUID,
		&jobID,
		&quoteID,
		&doc.Customer,
		&doc.Total,
		&doc.XMLKey,
		&doc.PDFKey,
		&doc.XMLURL,
		&doc.PDFURL,
		&doc.Status,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.JobID = jobID.String
	doc.QuoteID = quoteID.String
	doc.CreatedAt = doc.CreatedAt.UTC()
	return doc, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func emptyToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var (
	_ JobRepo      = (*PGJobRepo)(nil)
	_ DocumentRepo = (*PGDocumentRepo)(nil)
)
