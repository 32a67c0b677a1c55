package dispatcher

import (
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

// validateDraft enforces the capability's output contract. Priority has a
// safe severity-derived default, so an invalid priority is corrected. Team
// and classification have no safe default ("who should fix this" cannot be
// guessed), so violations reject the ticket.
func validateDraft(ticket *models.DraftedTicket, group *models.IssueGroup) (*models.DraftedTicket, error) {
	if !models.ValidClassification(ticket.Classification) {
		return nil, fmt.Errorf("invalid classification %q from capability", ticket.Classification)
	}
	if !models.ValidTeam(ticket.Team) {
		return nil, fmt.Errorf("invalid team assignment %q from capability", ticket.Team)
	}

	if !models.ValidPriority(ticket.Priority) {
		fallback := models.DefaultPriority(group.Severity)
		log.Printf("Invalid priority %q for %q, falling back to %s", ticket.Priority, group.IssueType, fallback)
		ticket.Priority = fallback
	}

	if ticket.Objective == "" {
		ticket.Objective = fmt.Sprintf("Issue with %s", group.IssueType)
	}
	if utf8.RuneCountInString(ticket.Objective) > MaxObjectiveLen {
		ticket.Objective = string([]rune(ticket.Objective)[:MaxObjectiveLen])
	}

	ticket.Group = group
	return ticket, nil
}
