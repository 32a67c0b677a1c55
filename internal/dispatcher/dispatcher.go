// Package dispatcher drives the classification capability over all issue
// groups in fixed-size batches. Batches never overlap; groups inside one
// batch race freely. A failed classification is recorded by issue type and
// never aborts the batch or the run.
package dispatcher

import (
	"context"
	"log"
	"sync"

	"github.com/samad-cloud/ticketsmith/internal/classifier"
	"github.com/samad-cloud/ticketsmith/internal/models"
)

// DefaultBatchSize caps concurrent calls to the classification capability.
const DefaultBatchSize = 3

// MaxObjectiveLen bounds the drafted objective, which becomes the tracker
// issue title.
const MaxObjectiveLen = 200

// Dispatcher fans issue groups out to a Classifier under a bounded batch
// policy and validates the capability's structured output.
type Dispatcher struct {
	classifier classifier.Classifier
	batchSize  int
}

// New creates a Dispatcher. A batchSize < 1 falls back to DefaultBatchSize.
func New(c classifier.Classifier, batchSize int) *Dispatcher {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{classifier: c, batchSize: batchSize}
}

// slot holds one group's settled outcome. Each concurrent call writes only
// its own slot, so the batch needs no locking beyond the barrier.
type slot struct {
	ticket *models.DraftedTicket
	err    error
}

// Dispatch classifies every group and returns the drafted tickets plus one
// failure entry per group that could not be classified. Group N's outcome
// is fully settled before group N+batchSize starts.
func (d *Dispatcher) Dispatch(ctx context.Context, groups []*models.IssueGroup) ([]*models.DraftedTicket, []models.Failure) {
	var drafted []*models.DraftedTicket
	var failures []models.Failure

	totalBatches := (len(groups) + d.batchSize - 1) / d.batchSize

	for start := 0; start < len(groups); start += d.batchSize {
		end := start + d.batchSize
		if end > len(groups) {
			end = len(groups)
		}
		batch := groups[start:end]

		log.Printf("Classifying batch %d/%d (issues %d-%d)",
			start/d.batchSize+1, totalBatches, start+1, end)

		slots := make([]slot, len(batch))
		var wg sync.WaitGroup
		for i, group := range batch {
			wg.Add(1)
			go func(i int, group *models.IssueGroup) {
				defer wg.Done()
				slots[i].ticket, slots[i].err = d.classifier.Classify(ctx, group)
			}(i, group)
		}
		wg.Wait()

		for i, s := range slots {
			group := batch[i]
			if s.err != nil {
				log.Printf("Classifier failed for %q: %v", group.IssueType, s.err)
				failures = append(failures, models.Failure{IssueType: group.IssueType, Error: s.err.Error()})
				continue
			}

			ticket, err := validateDraft(s.ticket, group)
			if err != nil {
				log.Printf("Classifier contract violation for %q: %v", group.IssueType, err)
				failures = append(failures, models.Failure{IssueType: group.IssueType, Error: err.Error()})
				continue
			}
			drafted = append(drafted, ticket)
		}
	}

	log.Printf("Drafted %d tickets, %d classifier failures", len(drafted), len(failures))
	return drafted, failures
}
