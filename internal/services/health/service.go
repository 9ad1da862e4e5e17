package health

import (
	"context"
	"database/sql"
	"time"

	"backoffice/internal/queue"
	"backoffice/internal/shared/storage/db"
)

const (
	StateOK       = "ok"
	StateDown     = "down"
	StateDisabled = "disabled"
)

// Report is the readiness payload.
type Report struct {
	OK      bool        `json:"ok"`
	Service string      `json:"service"`
	Version string      `json:"version"`
	DB      string      `json:"db"`
	Queue   QueueReport `json:"queue"`
}

// QueueReport names the active backend and whether it answered.
type QueueReport struct {
	Backend string `json:"backend"`
	State   string `json:"state"`
}

// Service encapsulates health-related checks.
type Service struct {
	Name    string
	Version string
	DB      *sql.DB
	Queue   queue.Queue
	Timeout time.Duration
}

// NewService constructs a new health service.
func NewService(name, version string, database *sql.DB, q queue.Queue) *Service {
	return &Service{Name: name, Version: version, DB: database, Queue: q, Timeout: 2 * time.Second}
}

// Status probes the database and the queue backend. Only a configured
// database that fails to answer marks the report not OK.
func (s *Service) Status(ctx context.Context) Report {
	r := Report{OK: true, Service: s.Name, Version: s.Version, DB: StateDisabled}
	if s.DB != nil {
		if err := db.Ping(ctx, s.DB, s.Timeout); err != nil {
			r.OK = false
			r.DB = StateDown
		} else {
			r.DB = StateOK
		}
	}
	if s.Queue != nil {
		r.Queue = QueueReport{Backend: s.Queue.Name(), State: StateOK}
		if p, ok := s.Queue.(queue.Pinger); ok {
			pingCtx, cancel := context.WithTimeout(ctx, s.timeout())
			if err := p.Ping(pingCtx); err != nil {
				r.Queue.State = StateDown
			}
			cancel()
		}
	}
	return r
}

func (s *Service) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 2 * time.Second
}
