package cfdi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/queue"
	"backoffice/internal/quotes"
	"backoffice/internal/shared/metrics"
	"backoffice/internal/shared/telemetry"
)

const (
	DefaultMaxAttempts    = 5
	DefaultAttemptTimeout = 30 * time.Second
	DefaultBackoffCap     = 60 * time.Second
	DefaultDrainLimit     = 10
)

// Service owns the issuance queue: enqueue, drain with bounded retry, recovery,
// and direct generation.
type Service struct {
	Jobs      JobRepo
	Docs      DocumentRepo
	Queue     queue.Queue
	Generator Generator
	Storage   Storage

	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffCap     time.Duration

	// RescanLocalQueue makes Drain refill an empty process-local queue from
	// the pending jobs before popping. Set for drainers that share job
	// storage with other processes.
	RescanLocalQueue bool

	// Sleep waits d or until ctx is done. Defaults to a timer select.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (s *Service) attemptTimeout() time.Duration {
	if s.AttemptTimeout > 0 {
		return s.AttemptTimeout
	}
	return DefaultAttemptTimeout
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// Backoff returns min(cap, 2^attempts seconds).
func Backoff(attempts int, maxDelay time.Duration) time.Duration {
	if maxDelay <= 0 {
		maxDelay = DefaultBackoffCap
	}
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= 31 {
		return maxDelay
	}
	d := time.Duration(1<<uint(attempts)) * time.Second
	if d > maxDelay {
		return maxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// QuoteApproved makes sure an approved quote has its issuance job.
func (s *Service) QuoteApproved(ctx context.Context, q quotes.Quote) error {
	_, _, err := s.EnsureEnqueued(ctx, q.ID, q.Customer, q.Total)
	return err
}

// EnsureEnqueued creates the pending job for quoteID and pushes its reference,
// unless the quote already has a job. created reports whether a job was made.
func (s *Service) EnsureEnqueued(ctx context.Context, quoteID, customer string, total float64) (Job, bool, error) {
	if existing, err := s.Jobs.GetByQuoteID(ctx, quoteID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Job{}, false, err
	}

	now := s.now()
	job := Job{
		ID:        uuid.NewString(),
		QuoteID:   quoteID,
		Customer:  customer,
		Total:     total,
		Status:    JobPending,
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Jobs.Create(ctx, job); err != nil {
		if errors.Is(err, ErrDuplicateJob) {
			existing, getErr := s.Jobs.GetByQuoteID(ctx, quoteID)
			if getErr != nil {
				return Job{}, false, getErr
			}
			return existing, false, nil
		}
		return Job{}, false, fmt.Errorf("create job: %w", err)
	}

	metrics.IncCFDIJob("enqueued")
	telemetry.Info("cfdi.job.enqueued", map[string]any{
		"job_id":   job.ID,
		"quote_id": quoteID,
		"queue":    s.Queue.Name(),
	})
	if err := s.Queue.Push(ctx, job.ID); err != nil {
		// The row is durable; Recover re-pushes pending jobs.
		telemetry.Error("cfdi.job.push_failed", map[string]any{
			"job_id": job.ID,
			"queue":  s.Queue.Name(),
			"err":    err,
		})
	}
	return job, true, nil
}

// Drain pops up to limit references and processes each one once. It returns
// how many jobs reached sent. A failing job waits out its backoff and its
// reference is pushed back when the call ends, so it is retried by a later
// drain. If ctx ends during a wait Drain returns the context error.
func (s *Service) Drain(ctx context.Context, limit int) (processed int, err error) {
	if limit <= 0 {
		limit = DefaultDrainLimit
	}
	if err := s.rescan(ctx); err != nil {
		return 0, err
	}
	var retry []string
	defer func() {
		for _, ref := range retry {
			s.repush(ctx, ref)
		}
	}()

	for i := 0; i < limit; i++ {
		ref, ok, popErr := s.Queue.Pop(ctx)
		if popErr != nil {
			return processed, fmt.Errorf("pop: %w", popErr)
		}
		if !ok {
			break
		}
		sent, again, procErr := s.process(ctx, ref)
		if sent {
			processed++
		}
		if again {
			retry = append(retry, ref)
		}
		if procErr != nil {
			return processed, procErr
		}
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
	}
	telemetry.Info("cfdi.drain.complete", map[string]any{
		"limit":     limit,
		"processed": processed,
		"retrying":  len(retry),
	})
	return processed, nil
}

// process runs one attempt for ref. again reports whether the reference must
// go back on the queue.
func (s *Service) process(ctx context.Context, ref string) (sent, again bool, err error) {
	job, err := s.Jobs.Claim(ctx, ref, s.now())
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotPending):
		telemetry.Debug("cfdi.job.skipped", map[string]any{"job_id": ref, "reason": err.Error()})
		return false, false, nil
	case err != nil:
		telemetry.Error("cfdi.job.claim_failed", map[string]any{"job_id": ref, "err": err})
		return false, true, ctx.Err()
	}

	start := time.Now()
	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout())
	doc, genErr := s.issue(attemptCtx, job)
	cancel()
	metrics.ObserveCFDIAttempt(time.Since(start).Seconds())

	// Outcomes are saved even after ctx ends.
	saveCtx := context.WithoutCancel(ctx)
	job.UpdatedAt = s.now()
	if genErr == nil {
		job.Status = JobSent
		job.LastError = nil
		if err := s.Jobs.Save(saveCtx, job); err != nil {
			telemetry.Error("cfdi.job.save_failed", map[string]any{"job_id": job.ID, "status": job.Status, "err": err})
			return false, true, ctx.Err()
		}
		metrics.IncCFDIJob("sent")
		telemetry.Info("cfdi.job.sent", map[string]any{
			"job_id":   job.ID,
			"quote_id": job.QuoteID,
			"uuid":     doc.UUID,
			"attempts": job.Attempts,
		})
		return true, false, nil
	}

	msg := genErr.Error()
	job.LastError = &msg
	if job.Attempts >= s.maxAttempts() {
		job.Status = JobFailed
		if err := s.Jobs.Save(saveCtx, job); err != nil {
			telemetry.Error("cfdi.job.save_failed", map[string]any{"job_id": job.ID, "status": job.Status, "err": err})
			return false, true, ctx.Err()
		}
		metrics.IncCFDIJob("failed")
		telemetry.Error("cfdi.job.failed", map[string]any{
			"job_id":   job.ID,
			"quote_id": job.QuoteID,
			"attempts": job.Attempts,
			"err":      msg,
		})
		return false, false, nil
	}

	if err := s.Jobs.Save(saveCtx, job); err != nil {
		telemetry.Error("cfdi.job.save_failed", map[string]any{"job_id": job.ID, "status": job.Status, "err": err})
		return false, true, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return false, true, err
	}
	delay := Backoff(job.Attempts, s.BackoffCap)
	metrics.IncCFDIJob("retried")
	telemetry.Warn("cfdi.job.attempt_failed", map[string]any{
		"job_id":   job.ID,
		"attempts": job.Attempts,
		"backoff":  delay.String(),
		"err":      msg,
	})
	if err := s.sleep(ctx, delay); err != nil {
		return false, true, err
	}
	return false, true, nil
}

// repush survives a cancelled ctx so a reference is never dropped on shutdown.
func (s *Service) repush(ctx context.Context, ref string) {
	if err := s.Queue.Push(context.WithoutCancel(ctx), ref); err != nil {
		telemetry.Error("cfdi.job.push_failed", map[string]any{"job_id": ref, "queue": s.Queue.Name(), "err": err})
	}
}

func (s *Service) issue(ctx context.Context, job Job) (Document, error) {
	return s.render(ctx, Snapshot{
		UUID:     uuid.NewString(),
		QuoteID:  job.QuoteID,
		Customer: job.Customer,
		Total:    job.Total,
		Items: []Item{{
			Description: "Cotizacion " + job.QuoteID,
			Quantity:    1,
			UnitPrice:   job.Total,
		}},
		IssuedAt: s.now(),
	}, job.ID)
}

// render generates, stores and records one document.
func (s *Service) render(ctx context.Context, snap Snapshot, jobID string) (Document, error) {
	xmlDoc, pdfDoc, err := s.Generator.Generate(ctx, snap)
	if err != nil {
		return Document{}, fmt.Errorf("%w: generate: %v", ErrGeneration, err)
	}
	xmlKey := "cfdi/" + snap.UUID + ".xml"
	pdfKey := "cfdi/" + snap.UUID + ".pdf"
	xmlURL, err := s.Storage.Store(ctx, xmlKey, xmlDoc, "application/xml")
	if err != nil {
		return Document{}, fmt.Errorf("%w: store xml: %v", ErrGeneration, err)
	}
	pdfURL, err := s.Storage.Store(ctx, pdfKey, pdfDoc, "application/pdf")
	if err != nil {
		return Document{}, fmt.Errorf("%w: store pdf: %v", ErrGeneration, err)
	}
	doc := Document{
		UUID:      snap.UUID,
		JobID:     jobID,
		QuoteID:   snap.QuoteID,
		Customer:  snap.Customer,
		Total:     snap.Total,
		XMLKey:    xmlKey,
		PDFKey:    pdfKey,
		XMLURL:    xmlURL,
		PDFURL:    pdfURL,
		Status:    DocumentGenerated,
		CreatedAt: s.now(),
	}
	if err := s.Docs.Create(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("%w: record document: %v", ErrGeneration, err)
	}
	return doc, nil
}

// rescan recovers pending jobs into an empty process-local queue. A queue
// still holding references already covers every job it was filled from.
func (s *Service) rescan(ctx context.Context) error {
	if !s.RescanLocalQueue {
		return nil
	}
	local, ok := s.Queue.(queue.Local)
	if !ok || local.Len() > 0 {
		return nil
	}
	n, err := s.Recover(ctx)
	if err != nil {
		return fmt.Errorf("rescan: %w", err)
	}
	if n > 0 {
		telemetry.Debug("cfdi.queue.rescanned", map[string]any{"queue": s.Queue.Name(), "requeued": n})
	}
	return nil
}

// Recover pushes a reference for every job still pending. Duplicates are
// harmless because drain skips jobs that are no longer pending.
func (s *Service) Recover(ctx context.Context) (int, error) {
	jobs, err := s.Jobs.List(ctx, JobPending)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := len(jobs) - 1; i >= 0; i-- {
		if err := s.Queue.Push(ctx, jobs[i].ID); err != nil {
			return n, fmt.Errorf("push %s: %w", jobs[i].ID, err)
		}
		n++
	}
	telemetry.Info("cfdi.recover", map[string]any{"requeued": n, "queue": s.Queue.Name()})
	return n, nil
}

// GenerateDirect issues a document outside the quote flow.
func (s *Service) GenerateDirect(ctx context.Context, customer string, items []Item) (Document, error) {
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return Document{}, fmt.Errorf("%w: customer is required", ErrValidation)
	}
	if len(items) == 0 {
		return Document{}, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	total := 0.0
	for i, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			return Document{}, fmt.Errorf("%w: item %d description is required", ErrValidation, i)
		}
		if !(it.Quantity > 0) || math.IsInf(it.Quantity, 0) {
			return Document{}, fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i)
		}
		if !(it.UnitPrice >= 0) || math.IsInf(it.UnitPrice, 0) {
			return Document{}, fmt.Errorf("%w: item %d unit_price must be non-negative", ErrValidation, i)
		}
		total += it.Amount()
	}
	total = math.Round(total*100) / 100

	ctx, cancel := context.WithTimeout(ctx, s.attemptTimeout())
	defer cancel()
	doc, err := s.render(ctx, Snapshot{
		UUID:     uuid.NewString(),
		Customer: customer,
		Total:    total,
		Items:    items,
		IssuedAt: s.now(),
	}, "")
	if err != nil {
		telemetry.Error("cfdi.direct.failed", map[string]any{"err": err})
		return Document{}, err
	}
	telemetry.Info("cfdi.direct.generated", map[string]any{"uuid": doc.UUID, "total": doc.Total})
	return doc, nil
}

// GetDocument returns a document record.
func (s *Service) GetDocument(ctx context.Context, id string) (Document, error) {
	return s.Docs.GetByUUID(ctx, id)
}

// ListDocuments returns the documents issued for a quote, newest first.
func (s *Service) ListDocuments(ctx context.Context, quoteID string) ([]Document, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return nil, fmt.Errorf("%w: quote_id is required", ErrValidation)
	}
	docs, err := s.Docs.ListByQuoteID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// OpenDocumentFile streams the stored xml or pdf file of a document.
func (s *Service) OpenDocumentFile(ctx context.Context, id, kind string) (io.ReadCloser, string, error) {
	doc, err := s.Docs.GetByUUID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	var key, contentType string
	switch kind {
	case "xml":
		key, contentType = doc.XMLKey, "application/xml"
	case "pdf":
		key, contentType = doc.PDFKey, "application/pdf"
	default:
		return nil, "", fmt.Errorf("%w: file must be xml or pdf", ErrValidation)
	}
	rc, err := s.Storage.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rc, contentType, nil
}

// ListJobs returns jobs filtered by status; empty means all.
func (s *Service) ListJobs(ctx context.Context, status string) ([]Job, error) {
	switch status {
	case "", JobPending, JobSent, JobFailed:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	jobs, err := s.Jobs.List(ctx, status)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []Job{}
	}
	return jobs, nil
}

// GetJob returns one job.
func (s *Service) GetJob(ctx context.Context, id string) (Job, error) {
	return s.Jobs.GetByID(ctx, id)
}

var _ quotes.ApprovalHook = (*Service)(nil)
