// Package eventbus publishes run lifecycle events to NATS so the dashboard
// can follow ticket generation without polling.
package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

const (
	TopicRunCompleted = "tickets.run.completed"
	TopicRunFailed    = "tickets.run.failed"
)

// Publisher publishes events to NATS.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher creates a new event bus publisher.
func NewPublisher(natsURL string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Ticket pipeline connected to NATS at %s", natsURL)
	return &Publisher{conn: conn}, nil
}

// runCompletedEvent is the wire shape for a finished pipeline run.
type runCompletedEvent struct {
	RunID          string    `json:"run_id"`
	TicketsCreated int       `json:"tickets_created"`
	FailureCount   int       `json:"failure_count"`
	StorageLoc     string    `json:"storage_location"`
	CompletedAt    time.Time `json:"completed_at"`
}

// PublishRunCompleted announces a finished run with its headline numbers.
func (p *Publisher) PublishRunCompleted(result *models.PipelineResult) error {
	data, err := json.Marshal(runCompletedEvent{
		RunID:          result.RunID,
		TicketsCreated: result.TicketsCreated,
		FailureCount:   len(result.Failures),
		StorageLoc:     result.StorageLocation,
		CompletedAt:    result.CreatedAt,
	})
	if err != nil {
		return err
	}

	if err := p.conn.Publish(TopicRunCompleted, data); err != nil {
		return err
	}

	log.Printf("Published run completion to event bus: run=%s tickets=%d failures=%d",
		result.RunID, result.TicketsCreated, len(result.Failures))
	return nil
}

// PublishRunFailed announces an invocation that failed before producing a
// result artifact.
func (p *Publisher) PublishRunFailed(runID string, reason string) error {
	data, err := json.Marshal(map[string]string{"run_id": runID, "error": reason})
	if err != nil {
		return err
	}
	return p.conn.Publish(TopicRunFailed, data)
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		log.Println("Ticket pipeline disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
