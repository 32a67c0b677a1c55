// Package pipeline composes the three ticket-generation stages: group raw
// issues, classify and draft under bounded concurrency, publish to the
// tracker sequentially. It assembles the consolidated result artifact and
// persists it; it holds no concurrency of its own.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/samad-cloud/ticketsmith/internal/blobstore"
	"github.com/samad-cloud/ticketsmith/internal/dispatcher"
	"github.com/samad-cloud/ticketsmith/internal/eventbus"
	"github.com/samad-cloud/ticketsmith/internal/grouper"
	"github.com/samad-cloud/ticketsmith/internal/models"
	"github.com/samad-cloud/ticketsmith/internal/publisher"
)

// SingleDomain describes a single-domain invocation: one audit's raw data.
type SingleDomain struct {
	Domain    string
	AuditDate string
	RawAudit  *models.RawAudit
}

// CrossDomain describes a combined invocation over many domains' audits
// for one run date.
type CrossDomain struct {
	RunDate string
	Audits  []grouper.AuditInput
}

// Request is one pipeline invocation. Exactly one of Single or Combined
// must be set; RunID is the idempotency identity chosen by the caller.
type Request struct {
	RunID    string
	Single   *SingleDomain
	Combined *CrossDomain
}

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	dispatcher *dispatcher.Dispatcher
	publisher  *publisher.Publisher
	blobs      blobstore.Store
	events     *eventbus.Publisher // optional; nil when NATS is unavailable
}

// New creates a Pipeline. events may be nil.
func New(d *dispatcher.Dispatcher, p *publisher.Publisher, blobs blobstore.Store, events *eventbus.Publisher) *Pipeline {
	return &Pipeline{dispatcher: d, publisher: p, blobs: blobs, events: events}
}

// Run executes the three stages once and persists the result artifact.
// Item-level classification and publish failures are collected into the
// result; only input and storage-write errors fail the invocation.
func (p *Pipeline) Run(ctx context.Context, req Request) (*models.PipelineResult, error) {
	groups, storagePath, err := p.prepare(req)
	if err != nil {
		return nil, err
	}

	log.Printf("Grouped %d issue types for run %s", len(groups), req.RunID)

	drafted, classifyFailures := p.dispatcher.Dispatch(ctx, groups)

	publishResults := p.publisher.Publish(ctx, drafted)

	var tickets []models.TicketRecord
	failures := classifyFailures
	for i, res := range publishResults {
		if res.Success {
			tickets = append(tickets, *res.Ticket)
			continue
		}
		failures = append(failures, models.Failure{
			IssueType: drafted[i].Group.IssueType,
			Error:     res.Error,
		})
	}

	result := &models.PipelineResult{
		RunID:           req.RunID,
		CreatedAt:       time.Now().UTC(),
		TicketsCreated:  len(tickets),
		Tickets:         tickets,
		Failures:        failures,
		StorageLocation: storagePath,
	}
	if result.Tickets == nil {
		result.Tickets = []models.TicketRecord{}
	}
	if result.Failures == nil {
		result.Failures = []models.Failure{}
	}

	if err := p.blobs.WriteJSON(ctx, storagePath, result); err != nil {
		return nil, fmt.Errorf("failed to store pipeline result: %w", err)
	}

	log.Printf("Run %s created %d tickets, %d failures; result stored at %s",
		req.RunID, result.TicketsCreated, len(result.Failures), storagePath)

	if p.events != nil {
		if err := p.events.PublishRunCompleted(result); err != nil {
			log.Printf("Warning: failed to publish run completion event: %v", err)
		}
	}

	return result, nil
}

// prepare runs the mode-appropriate grouping and derives the deterministic
// storage path for the result artifact.
func (p *Pipeline) prepare(req Request) ([]*models.IssueGroup, string, error) {
	switch {
	case req.Single != nil && req.Combined != nil:
		return nil, "", errors.New("pipeline request sets both single and combined modes")
	case req.Single != nil:
		if req.Single.RawAudit == nil {
			return nil, "", errors.New("single-domain request carries no raw audit data")
		}
		groups := grouper.Group(req.Single.Domain, req.Single.RawAudit)
		return groups, blobstore.SingleDomainPath(req.Single.Domain, req.Single.AuditDate), nil
	case req.Combined != nil:
		if len(req.Combined.Audits) == 0 {
			return nil, "", errors.New("cross-domain request carries no audits")
		}
		groups := grouper.GroupAcrossDomains(req.Combined.Audits)
		return groups, blobstore.CombinedPath(req.Combined.RunDate), nil
	default:
		return nil, "", errors.New("pipeline request sets neither single nor combined mode")
	}
}
