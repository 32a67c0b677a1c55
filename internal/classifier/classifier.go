// Package classifier defines the contract for the external classification
// capability: the reasoning agent that inspects one issue group and
// proposes a root-cause classification plus a drafted ticket. The agent
// itself is a black box behind a narrow HTTP contract; this package only
// carries the wire client.
package classifier

import (
	"context"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

// Classifier produces exactly one drafted ticket per issue group, or an
// error. Implementations must treat prose-instead-of-structure responses
// as failures.
type Classifier interface {
	Classify(ctx context.Context, group *models.IssueGroup) (*models.DraftedTicket, error)
}
