// Package publisher creates one tracker issue per drafted ticket. Publishing
// is strictly sequential: the tracker enforces a request-rate budget, and
// concurrent writes buy nothing once the bottleneck is a shared quota.
package publisher

import (
	"context"
	"fmt"
	"log"

	"github.com/samad-cloud/ticketsmith/internal/jira"
	"github.com/samad-cloud/ticketsmith/internal/models"
)

// AttachmentThreshold is the URL count above which the full list moves
// from the issue body into a CSV attachment.
const AttachmentThreshold = 5

// IssueTracker is the slice of the Jira client the publisher needs.
type IssueTracker interface {
	CreateIssue(ctx context.Context, req jira.CreateIssueRequest) (*jira.CreatedIssue, error)
	AttachFile(ctx context.Context, issueKey, filename string, data []byte, mimeType string) error
	BrowseURL(issueKey string) string
}

// Publisher turns drafted tickets into tracker issues.
type Publisher struct {
	tracker     IssueTracker
	domainLabel string // fixed label applied to every issue, e.g. "SEO"
	assigneeID  string // default assignee account id
}

// New creates a Publisher writing through the given tracker client.
func New(tracker IssueTracker, domainLabel, assigneeID string) *Publisher {
	return &Publisher{tracker: tracker, domainLabel: domainLabel, assigneeID: assigneeID}
}

// Publish creates one issue per ticket and returns one PublishResult per
// input ticket, in the same order. A failed create or attach records a
// failure for that item and the loop continues.
func (p *Publisher) Publish(ctx context.Context, tickets []*models.DraftedTicket) []models.PublishResult {
	results := make([]models.PublishResult, 0, len(tickets))

	for _, ticket := range tickets {
		record, err := p.publishOne(ctx, ticket)
		if err != nil {
			log.Printf("Publish failed for %q: %v", ticket.Group.IssueType, err)
			results = append(results, models.PublishResult{Success: false, Error: err.Error()})
			continue
		}

		log.Printf("Created issue %s for %q (attachment=%v)", record.IssueKey, record.IssueType, record.AttachmentCreated)
		results = append(results, models.PublishResult{Success: true, Ticket: record})
	}

	return results
}

func (p *Publisher) publishOne(ctx context.Context, ticket *models.DraftedTicket) (*models.TicketRecord, error) {
	group := ticket.Group

	created, err := p.tracker.CreateIssue(ctx, jira.CreateIssueRequest{
		Summary:     ticket.Objective,
		Description: buildDescription(ticket),
		Labels:      []string{p.domainLabel, teamLabel(ticket.Team)},
		AssigneeID:  p.assigneeID,
		Priority:    string(ticket.Priority),
	})
	if err != nil {
		return nil, err
	}

	attachmentCreated := false
	if len(group.AllURLs) > AttachmentThreshold {
		filename := fmt.Sprintf("affected-urls-%s.csv", slugify(group.IssueType))
		csv := affectedURLsCSV(group)
		if err := p.tracker.AttachFile(ctx, created.Key, filename, []byte(csv), "text/csv"); err != nil {
			return nil, err
		}
		attachmentCreated = true
	}

	return &models.TicketRecord{
		IssueKey:          created.Key,
		TrackerURL:        p.tracker.BrowseURL(created.Key),
		IssueType:         group.IssueType,
		Team:              ticket.Team,
		AttachmentCreated: attachmentCreated,
	}, nil
}

// buildDescription assembles the fixed-order ADF body: Objective, Summary,
// Proposed Solution, a rule, then the Affected URLs section whose shape
// depends on the attachment threshold.
func buildDescription(ticket *models.DraftedTicket) jira.Node {
	group := ticket.Group

	content := []jira.Node{
		jira.Heading(2, "Objective"),
		jira.Paragraph(ticket.Objective),
		jira.Heading(2, "Summary"),
		jira.Paragraph(ticket.Summary),
		jira.Heading(2, "Proposed Solution"),
		jira.Paragraph(ticket.ProposedSolution),
		jira.Rule(),
	}

	urls := group.AllURLs
	if len(urls) <= AttachmentThreshold {
		content = append(content, jira.Heading(3, fmt.Sprintf("Affected URLs (%d)", len(urls))))
		for _, url := range urls {
			content = append(content, jira.Paragraph(url))
		}
	} else {
		content = append(content,
			jira.Heading(3, "Affected URLs"),
			jira.Paragraph(fmt.Sprintf("%d URLs affected — see attached CSV file for complete list.", len(urls))),
			jira.Heading(4, "Sample (first 5):"),
		)
		for _, url := range urls[:AttachmentThreshold] {
			content = append(content, jira.Paragraph(url))
		}
	}

	return jira.Doc(content...)
}

func teamLabel(team models.TeamAssignment) string {
	if team == models.TeamTech {
		return "Tech-Team"
	}
	return "Data-Team"
}
