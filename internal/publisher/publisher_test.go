package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samad-cloud/ticketsmith/internal/jira"
	"github.com/samad-cloud/ticketsmith/internal/models"
)

// fakeTracker records create/attach calls and can fail on demand.
type fakeTracker struct {
	created     []jira.CreateIssueRequest
	attachments map[string][]byte
	attachNames map[string]string
	failCreate  map[string]bool // keyed by summary
	failAttach  bool
	nextID      int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		attachments: make(map[string][]byte),
		attachNames: make(map[string]string),
		failCreate:  make(map[string]bool),
	}
}

func (f *fakeTracker) CreateIssue(_ context.Context, req jira.CreateIssueRequest) (*jira.CreatedIssue, error) {
	if f.failCreate[req.Summary] {
		return nil, errors.New("issue creation failed (500): upstream exploded")
	}
	f.nextID++
	f.created = append(f.created, req)
	return &jira.CreatedIssue{Key: fmt.Sprintf("ENG-%d", f.nextID)}, nil
}

func (f *fakeTracker) AttachFile(_ context.Context, issueKey, filename string, data []byte, _ string) error {
	if f.failAttach {
		return errors.New("attachment failed for " + issueKey + " (413): too large")
	}
	f.attachments[issueKey] = data
	f.attachNames[issueKey] = filename
	return nil
}

func (f *fakeTracker) BrowseURL(issueKey string) string {
	return "https://example.atlassian.net/browse/" + issueKey
}

func draftedTicket(issueType string, urlCount int) *models.DraftedTicket {
	urls := make([]string, urlCount)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://printerpix.com/%s/%d", issueType, i)
	}
	return &models.DraftedTicket{
		Group: &models.IssueGroup{
			IssueType:       issueType,
			Severity:        models.SeverityHigh,
			Category:        "content",
			Count:           urlCount,
			AllURLs:         urls,
			AffectedDomains: []string{"printerpix.com"},
			Example: models.ExampleIssue{
				URL:           urls[0],
				CurrentValue:  `value with "quotes"`,
				ExpectedValue: "expected",
			},
		},
		Classification:   models.ClassFrontendRendering,
		Team:             models.TeamTech,
		Priority:         models.PriorityHigh,
		Objective:        "Fix " + issueType,
		Summary:          "what is wrong",
		ProposedSolution: "how to fix it",
	}
}

func TestPublish_NoAttachmentAtThreshold(t *testing.T) {
	tracker := newFakeTracker()
	p := New(tracker, "SEO", "acct-1")

	results := p.Publish(context.Background(), []*models.DraftedTicket{draftedTicket("missing_meta", 5)})

	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	assert.False(t, results[0].Ticket.AttachmentCreated)
	assert.Empty(t, tracker.attachments)

	// Inline list shows all 5 URLs under a counted heading.
	doc := tracker.created[0].Description
	assert.True(t, docContainsText(doc, "Affected URLs (5)"))
	assert.True(t, docContainsText(doc, "https://printerpix.com/missing_meta/4"))
}

func TestPublish_AttachmentAboveThreshold(t *testing.T) {
	tracker := newFakeTracker()
	p := New(tracker, "SEO", "acct-1")

	results := p.Publish(context.Background(), []*models.DraftedTicket{draftedTicket("missing_meta_description", 6)})

	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	assert.True(t, results[0].Ticket.AttachmentCreated)

	issueKey := results[0].Ticket.IssueKey
	assert.Equal(t, "affected-urls-missing-meta-description.csv", tracker.attachNames[issueKey])

	csv := string(tracker.attachments[issueKey])
	lines := strings.Split(csv, "\n")
	assert.Equal(t, "url,issue_type,severity,category,current_value,expected_value", lines[0])
	assert.Len(t, lines, 7) // header + 6 rows

	// Example row carries values with doubled quotes; other rows are blank.
	assert.Contains(t, lines[1], `"value with ""quotes"""`)
	assert.True(t, strings.HasSuffix(lines[2], `"",""`))

	// Body lists only the first 5 URLs as a sample.
	doc := tracker.created[0].Description
	assert.True(t, docContainsText(doc, "6 URLs affected — see attached CSV file for complete list."))
	assert.True(t, docContainsText(doc, "Sample (first 5):"))
	assert.True(t, docContainsText(doc, "https://printerpix.com/missing_meta_description/4"))
	assert.False(t, docContainsText(doc, "https://printerpix.com/missing_meta_description/5"))
}

func TestPublish_RoutingFields(t *testing.T) {
	tracker := newFakeTracker()
	p := New(tracker, "SEO", "acct-42")

	ticket := draftedTicket("broken_hreflang", 2)
	ticket.Team = models.TeamData
	ticket.Priority = models.PriorityHighest
	p.Publish(context.Background(), []*models.DraftedTicket{ticket})

	require.Len(t, tracker.created, 1)
	req := tracker.created[0]
	assert.Equal(t, []string{"SEO", "Data-Team"}, req.Labels)
	assert.Equal(t, "acct-42", req.AssigneeID)
	assert.Equal(t, "Highest", req.Priority)
	assert.Equal(t, "Fix broken_hreflang", req.Summary)
}

func TestPublish_FailureIsolation(t *testing.T) {
	tracker := newFakeTracker()
	tracker.failCreate["Fix second_issue"] = true
	p := New(tracker, "SEO", "acct-1")

	tickets := []*models.DraftedTicket{
		draftedTicket("first_issue", 2),
		draftedTicket("second_issue", 2),
		draftedTicket("third_issue", 2),
	}
	results := p.Publish(context.Background(), tickets)

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "upstream exploded")
	assert.True(t, results[2].Success)

	// Order matches input order and the failed item created no issue.
	assert.Equal(t, "first_issue", results[0].Ticket.IssueType)
	assert.Equal(t, "third_issue", results[2].Ticket.IssueType)
	assert.Len(t, tracker.created, 2)
}

func TestPublish_AttachFailureFailsTicket(t *testing.T) {
	tracker := newFakeTracker()
	tracker.failAttach = true
	p := New(tracker, "SEO", "acct-1")

	results := p.Publish(context.Background(), []*models.DraftedTicket{draftedTicket("big_group", 10)})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "attachment failed")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "missing-meta-description", slugify("Missing Meta Description"))
	assert.Equal(t, "h1-tag-as-h3", slugify("--H1 tag, as H3!--"))
	assert.Equal(t, "already-fine", slugify("already-fine"))
}

// docContainsText walks an ADF tree looking for an exact text node.
func docContainsText(node jira.Node, text string) bool {
	if node.Text == text {
		return true
	}
	for _, child := range node.Content {
		if docContainsText(child, text) {
			return true
		}
	}
	return false
}
