// Package runtracker is the idempotency gate in front of the pipeline: it
// checks the tracking record before starting and writes it after
// completion, so a retried invocation never creates duplicate tracker
// issues.
package runtracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/samad-cloud/ticketsmith/internal/blobstore"
	"github.com/samad-cloud/ticketsmith/internal/grouper"
	"github.com/samad-cloud/ticketsmith/internal/models"
	"github.com/samad-cloud/ticketsmith/internal/pipeline"
	"github.com/samad-cloud/ticketsmith/internal/runstore"
)

var (
	// ErrRunInProgress is returned when another invocation holds the run
	// lock for the same run identity.
	ErrRunInProgress = errors.New("runtracker: run already in progress")
	// ErrNoAudits is returned when a cross-domain run finds no audits.
	ErrNoAudits = errors.New("runtracker: no audits available")
	// ErrNoReport is returned when an audit row has no raw report path.
	ErrNoReport = errors.New("runtracker: audit has no raw report")
)

// Runner is the pipeline slice the tracker drives.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*models.PipelineResult, error)
}

// Locker takes the per-run advisory lock. Optional: a nil Locker degrades
// to plain check-then-act.
type Locker interface {
	Acquire(ctx context.Context, runID string) (bool, error)
	Release(ctx context.Context, runID string) error
}

// Outcome is what a caller receives: either the existing artifact or the
// freshly produced one.
type Outcome struct {
	Status models.RunStatus       `json:"status"`
	Result *models.PipelineResult `json:"result"`
}

// CombinedStatus answers "what is the latest combined run" for the
// read-only endpoint.
type CombinedStatus struct {
	Status          string                 `json:"status"` // complete | not_generated
	RunDate         string                 `json:"runDate,omitempty"`
	LatestAuditDate string                 `json:"latestDate,omitempty"`
	Result          *models.PipelineResult `json:"result,omitempty"`
}

// Tracker gates pipeline runs behind the tracking store.
type Tracker struct {
	runs  runstore.RunStore
	blobs blobstore.Store
	locks Locker
	pipe  Runner
}

// New creates a Tracker. locks may be nil when redis is unavailable.
func New(runs runstore.RunStore, blobs blobstore.Store, locks Locker, pipe Runner) *Tracker {
	return &Tracker{runs: runs, blobs: blobs, locks: locks, pipe: pipe}
}

// RunSingleDomain runs the pipeline for one audit. Run identity is the
// audit id; the audit row's tickets path is the run record.
func (t *Tracker) RunSingleDomain(ctx context.Context, auditID string) (*Outcome, error) {
	audit, err := t.runs.FindAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}

	if audit.TicketsPath != "" {
		result, err := t.readBack(ctx, audit.TicketsPath)
		if err != nil {
			return nil, err
		}
		log.Printf("Tickets already generated for audit %s at %s", auditID, audit.TicketsPath)
		return &Outcome{Status: models.StatusExists, Result: result}, nil
	}

	if audit.ReportPath == "" {
		return nil, fmt.Errorf("%w: audit %s", ErrNoReport, auditID)
	}

	var raw models.RawAudit
	if err := t.blobs.ReadJSON(ctx, audit.ReportPath, &raw); err != nil {
		return nil, fmt.Errorf("failed to load raw audit for %s: %w", auditID, err)
	}

	release, err := t.acquire(ctx, auditID)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := t.pipe.Run(ctx, pipeline.Request{
		RunID: auditID,
		Single: &pipeline.SingleDomain{
			Domain:    audit.Domain,
			AuditDate: audit.AuditDate,
			RawAudit:  &raw,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := t.runs.SetAuditTicketsPath(ctx, auditID, result.StorageLocation); err != nil {
		return nil, err
	}

	return &Outcome{Status: models.StatusComplete, Result: result}, nil
}

// RunCrossDomain runs the combined pipeline for the latest audit date
// across all domains. Run identity is that date.
func (t *Tracker) RunCrossDomain(ctx context.Context) (*Outcome, error) {
	runDate, err := t.runs.MaxAuditDate(ctx)
	if err != nil {
		return nil, err
	}
	if runDate == "" {
		return nil, ErrNoAudits
	}

	record, err := t.runs.FindRunRecord(ctx, runDate)
	if err != nil {
		return nil, err
	}
	if record != nil && record.StorageLocation != "" {
		result, err := t.readBack(ctx, record.StorageLocation)
		if err != nil {
			return nil, err
		}
		log.Printf("Combined tickets already generated for %s at %s", runDate, record.StorageLocation)
		return &Outcome{Status: models.StatusExists, Result: result}, nil
	}

	audits, err := t.runs.ListAuditsByDate(ctx, runDate)
	if err != nil {
		return nil, err
	}
	if len(audits) == 0 {
		return nil, fmt.Errorf("%w: no audits with reports for %s", ErrNoAudits, runDate)
	}

	inputs := make([]grouper.AuditInput, 0, len(audits))
	for _, audit := range audits {
		var raw models.RawAudit
		if err := t.blobs.ReadJSON(ctx, audit.ReportPath, &raw); err != nil {
			return nil, fmt.Errorf("failed to load raw audit for %s: %w", audit.AuditID, err)
		}
		inputs = append(inputs, grouper.AuditInput{
			AuditID:  audit.AuditID,
			Domain:   audit.Domain,
			RawAudit: &raw,
		})
	}

	release, err := t.acquire(ctx, runDate)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := t.pipe.Run(ctx, pipeline.Request{
		RunID:    runDate,
		Combined: &pipeline.CrossDomain{RunDate: runDate, Audits: inputs},
	})
	if err != nil {
		return nil, err
	}

	inserted, err := t.runs.InsertRunRecord(ctx, runDate, result.StorageLocation, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Another invocation won the record despite the lock; its artifact
		// is authoritative but this one's tickets already exist in Jira.
		log.Printf("Warning: run record for %s already claimed by a concurrent invocation", runDate)
	}

	return &Outcome{Status: models.StatusComplete, Result: result}, nil
}

// LatestCombined reports the most recent combined run without side
// effects.
func (t *Tracker) LatestCombined(ctx context.Context) (*CombinedStatus, error) {
	latestDate, err := t.runs.MaxAuditDate(ctx)
	if err != nil {
		return nil, err
	}

	record, err := t.runs.LatestRunRecord(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil || record.StorageLocation == "" {
		return &CombinedStatus{Status: "not_generated", LatestAuditDate: latestDate}, nil
	}

	result, err := t.readBack(ctx, record.StorageLocation)
	if err != nil {
		log.Printf("Warning: failed to read back combined run artifact: %v", err)
		return &CombinedStatus{Status: "not_generated", LatestAuditDate: latestDate}, nil
	}

	return &CombinedStatus{
		Status:          "complete",
		RunDate:         record.RunID,
		LatestAuditDate: latestDate,
		Result:          result,
	}, nil
}

// ClearCombined removes a combined run record so operators can force a
// re-run. The blob artifact and any created tracker issues are untouched.
func (t *Tracker) ClearCombined(ctx context.Context, runDate string) error {
	return t.runs.ClearRunRecord(ctx, runDate)
}

func (t *Tracker) readBack(ctx context.Context, path string) (*models.PipelineResult, error) {
	var result models.PipelineResult
	if err := t.blobs.ReadJSON(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("failed to read back run artifact at %s: %w", path, err)
	}
	return &result, nil
}

// acquire takes the run lock when a locker is configured. Returns a
// release func; degraded mode (no locker) is a no-op with a warning.
func (t *Tracker) acquire(ctx context.Context, runID string) (func(), error) {
	if t.locks == nil {
		log.Printf("Warning: run lock unavailable, proceeding without duplicate-run protection for %s", runID)
		return func() {}, nil
	}

	ok, err := t.locks.Acquire(ctx, runID)
	if err != nil {
		log.Printf("Warning: run lock errored (%v), proceeding without duplicate-run protection for %s", err, runID)
		return func() {}, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, runID)
	}

	return func() {
		if err := t.locks.Release(context.Background(), runID); err != nil {
			log.Printf("Warning: failed to release run lock for %s: %v", runID, err)
		}
	}, nil
}
