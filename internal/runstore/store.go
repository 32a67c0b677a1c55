// Package runstore is the relational tracking collaborator: audit metadata
// lookups and the run records that make pipeline re-runs idempotent.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

var (
	// ErrAuditNotFound is returned when no audit row exists for an id.
	ErrAuditNotFound = errors.New("runstore: audit not found")
	// ErrUnsupportedDriver is returned by New for unknown driver names.
	ErrUnsupportedDriver = errors.New("runstore: unsupported database driver")
)

// Audit is one audit row: where its raw report lives and, once tickets
// have been generated, where the result artifact lives.
type Audit struct {
	AuditID     string
	Domain      string
	AuditDate   string
	ReportPath  string // blob path of the raw audit JSON
	TicketsPath string // blob path of the tickets artifact; empty until done
}

// RunStore is the tracking-record collaborator. InsertRunRecord is a
// conditional insert: it reports false when a record for the run already
// exists, so two racing invocations cannot both claim a fresh run.
type RunStore interface {
	FindAudit(ctx context.Context, auditID string) (*Audit, error)
	SetAuditTicketsPath(ctx context.Context, auditID, path string) error
	ListAuditsByDate(ctx context.Context, auditDate string) ([]Audit, error)
	MaxAuditDate(ctx context.Context) (string, error)

	FindRunRecord(ctx context.Context, runID string) (*models.RunRecord, error)
	LatestRunRecord(ctx context.Context) (*models.RunRecord, error)
	InsertRunRecord(ctx context.Context, runID, storageLocation string, createdAt time.Time) (bool, error)
	ClearRunRecord(ctx context.Context, runID string) error

	Close()
}

// New creates a RunStore for the given driver.
func New(ctx context.Context, driver, dsn string) (RunStore, error) {
	switch driver {
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, dsn)
	case "mysql":
		return NewMySQLStore(dsn)
	default:
		return nil, ErrUnsupportedDriver
	}
}
