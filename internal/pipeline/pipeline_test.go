package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samad-cloud/ticketsmith/internal/dispatcher"
	"github.com/samad-cloud/ticketsmith/internal/grouper"
	"github.com/samad-cloud/ticketsmith/internal/jira"
	"github.com/samad-cloud/ticketsmith/internal/models"
	"github.com/samad-cloud/ticketsmith/internal/publisher"
)

// memBlobStore is an in-memory blob collaborator for tests.
type memBlobStore struct {
	docs      map[string][]byte
	failWrite bool
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{docs: make(map[string][]byte)}
}

func (m *memBlobStore) WriteJSON(_ context.Context, path string, value any) error {
	if m.failWrite {
		return errors.New("blob store unavailable")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.docs[path] = data
	return nil
}

func (m *memBlobStore) ReadJSON(_ context.Context, path string, out any) error {
	data, ok := m.docs[path]
	if !ok {
		return errors.New("not found: " + path)
	}
	return json.Unmarshal(data, out)
}

func (m *memBlobStore) Close(context.Context) error { return nil }

// okClassifier drafts a valid ticket for every group except those listed
// in failFor.
type okClassifier struct {
	failFor map[string]error
	calls   int
}

func (c *okClassifier) Classify(_ context.Context, group *models.IssueGroup) (*models.DraftedTicket, error) {
	c.calls++
	if err, ok := c.failFor[group.IssueType]; ok {
		return nil, err
	}
	return &models.DraftedTicket{
		Group:            group,
		Classification:   models.ClassAPIDataFieldExists,
		Team:             models.TeamData,
		Priority:         models.PriorityHigh,
		Objective:        "Fix " + group.IssueType,
		Summary:          "summary",
		ProposedSolution: "solution",
	}, nil
}

// countingTracker records create/attach calls.
type countingTracker struct {
	creates     int
	attachments map[string][]byte
}

func newCountingTracker() *countingTracker {
	return &countingTracker{attachments: make(map[string][]byte)}
}

func (c *countingTracker) CreateIssue(_ context.Context, _ jira.CreateIssueRequest) (*jira.CreatedIssue, error) {
	c.creates++
	return &jira.CreatedIssue{Key: fmt.Sprintf("ENG-%d", c.creates)}, nil
}

func (c *countingTracker) AttachFile(_ context.Context, issueKey, _ string, data []byte, _ string) error {
	c.attachments[issueKey] = data
	return nil
}

func (c *countingTracker) BrowseURL(issueKey string) string {
	return "https://example.atlassian.net/browse/" + issueKey
}

func newPipeline(c *okClassifier, tracker *countingTracker, blobs *memBlobStore) *Pipeline {
	return New(
		dispatcher.New(c, dispatcher.DefaultBatchSize),
		publisher.New(tracker, "SEO", "acct-1"),
		blobs,
		nil,
	)
}

func singleIssueAudit(domain string, urlCount int) *models.RawAudit {
	urls := make(map[string]models.RawURLEntry, urlCount)
	for i := 0; i < urlCount; i++ {
		urls[fmt.Sprintf("https://%s/page/%d", domain, i)] = models.RawURLEntry{
			Issues: []models.RawIssue{{
				IssueType: "missing_meta_description",
				Severity:  models.SeverityHigh,
				Category:  "content",
			}},
		}
	}
	return &models.RawAudit{Domain: domain, AuditDate: "2026-02-16", URLs: urls}
}

func TestRun_SingleDomainWithAttachment(t *testing.T) {
	// 8 URLs, one issue type: one group, one classification, one issue
	// with a CSV attachment of exactly 8 rows.
	classifier := &okClassifier{}
	tracker := newCountingTracker()
	blobs := newMemBlobStore()
	p := newPipeline(classifier, tracker, blobs)

	result, err := p.Run(context.Background(), Request{
		RunID: "audit-123",
		Single: &SingleDomain{
			Domain:    "printerpix.com",
			AuditDate: "2026-02-16",
			RawAudit:  singleIssueAudit("printerpix.com", 8),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, 1, tracker.creates)
	assert.Equal(t, 1, result.TicketsCreated)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Tickets, 1)
	assert.True(t, result.Tickets[0].AttachmentCreated)

	csv := string(tracker.attachments[result.Tickets[0].IssueKey])
	rows := strings.Split(strings.TrimSpace(csv), "\n")
	assert.Len(t, rows, 9) // header + 8 URL rows

	// Artifact persisted at the deterministic single-domain path.
	assert.Equal(t, "tickets/printerpix.com/2026-02-16/tickets.json", result.StorageLocation)
	var stored models.PipelineResult
	require.NoError(t, blobs.ReadJSON(context.Background(), result.StorageLocation, &stored))
	assert.Equal(t, "audit-123", stored.RunID)
	assert.Equal(t, 1, stored.TicketsCreated)
}

func TestRun_CrossDomainMergesBelowThreshold(t *testing.T) {
	// 3 URLs on domain A and 2 on domain B with the same identity triple:
	// one merged group of 5, no attachment.
	classifier := &okClassifier{}
	tracker := newCountingTracker()
	blobs := newMemBlobStore()
	p := newPipeline(classifier, tracker, blobs)

	result, err := p.Run(context.Background(), Request{
		RunID: "2026-02-16",
		Combined: &CrossDomain{
			RunDate: "2026-02-16",
			Audits: []grouper.AuditInput{
				{AuditID: "a", Domain: "printerpix.com", RawAudit: singleIssueAudit("printerpix.com", 3)},
				{AuditID: "b", Domain: "printerpix.co.uk", RawAudit: singleIssueAudit("printerpix.co.uk", 2)},
			},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, classifier.calls)
	require.Len(t, result.Tickets, 1)
	assert.False(t, result.Tickets[0].AttachmentCreated)
	assert.Empty(t, tracker.attachments)
	assert.Equal(t, "tickets/combined/2026-02-16/tickets.json", result.StorageLocation)
}

func TestRun_ClassifierTimeoutIsIsolated(t *testing.T) {
	// One of five groups times out: four tickets created, one failure,
	// the tracker saw exactly four create calls.
	urls := make(map[string]models.RawURLEntry)
	for i := 0; i < 5; i++ {
		urls[fmt.Sprintf("https://printerpix.com/%d", i)] = models.RawURLEntry{
			Issues: []models.RawIssue{{
				IssueType: fmt.Sprintf("issue_%d", i),
				Severity:  models.SeverityMedium,
				Category:  "content",
			}},
		}
	}
	raw := &models.RawAudit{Domain: "printerpix.com", AuditDate: "2026-02-16", URLs: urls}

	classifier := &okClassifier{failFor: map[string]error{
		"issue_3": context.DeadlineExceeded,
	}}
	tracker := newCountingTracker()
	p := newPipeline(classifier, tracker, newMemBlobStore())

	result, err := p.Run(context.Background(), Request{
		RunID:  "audit-5",
		Single: &SingleDomain{Domain: "printerpix.com", AuditDate: "2026-02-16", RawAudit: raw},
	})

	require.NoError(t, err)
	assert.Equal(t, 4, result.TicketsCreated)
	assert.Equal(t, 4, tracker.creates)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "issue_3", result.Failures[0].IssueType)
}

func TestRun_PublishFailureKeyedByIssueType(t *testing.T) {
	classifier := &okClassifier{}
	blobs := newMemBlobStore()
	tracker := &failingSecondTracker{}
	p := New(
		dispatcher.New(classifier, dispatcher.DefaultBatchSize),
		publisher.New(tracker, "SEO", "acct-1"),
		blobs,
		nil,
	)

	urls := map[string]models.RawURLEntry{
		"https://printerpix.com/a": {Issues: []models.RawIssue{{IssueType: "first", Severity: models.SeverityCritical, Category: "content"}}},
		"https://printerpix.com/b": {Issues: []models.RawIssue{{IssueType: "second", Severity: models.SeverityHigh, Category: "content"}}},
	}
	raw := &models.RawAudit{Domain: "printerpix.com", AuditDate: "2026-02-16", URLs: urls}

	result, err := p.Run(context.Background(), Request{
		RunID:  "audit-pub",
		Single: &SingleDomain{Domain: "printerpix.com", AuditDate: "2026-02-16", RawAudit: raw},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.TicketsCreated)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "second", result.Failures[0].IssueType)
	assert.Contains(t, result.Failures[0].Error, "rate limit")
}

func TestRun_StorageWriteErrorPropagates(t *testing.T) {
	classifier := &okClassifier{}
	blobs := newMemBlobStore()
	blobs.failWrite = true
	p := newPipeline(classifier, newCountingTracker(), blobs)

	_, err := p.Run(context.Background(), Request{
		RunID:  "audit-err",
		Single: &SingleDomain{Domain: "printerpix.com", AuditDate: "2026-02-16", RawAudit: singleIssueAudit("printerpix.com", 1)},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store pipeline result")
}

func TestRun_RejectsInvalidRequests(t *testing.T) {
	p := newPipeline(&okClassifier{}, newCountingTracker(), newMemBlobStore())

	_, err := p.Run(context.Background(), Request{RunID: "x"})
	assert.Error(t, err)

	_, err = p.Run(context.Background(), Request{RunID: "x", Single: &SingleDomain{Domain: "d", AuditDate: "2026-01-01"}})
	assert.Error(t, err)

	_, err = p.Run(context.Background(), Request{RunID: "x", Combined: &CrossDomain{RunDate: "2026-01-01"}})
	assert.Error(t, err)
}

// failingSecondTracker rejects the second create call with a rate-limit
// style error.
type failingSecondTracker struct {
	creates int
}

func (f *failingSecondTracker) CreateIssue(_ context.Context, _ jira.CreateIssueRequest) (*jira.CreatedIssue, error) {
	f.creates++
	if f.creates == 2 {
		return nil, errors.New("issue creation failed (429): rate limit exceeded")
	}
	return &jira.CreatedIssue{Key: fmt.Sprintf("ENG-%d", f.creates)}, nil
}

func (f *failingSecondTracker) AttachFile(context.Context, string, string, []byte, string) error {
	return nil
}

func (f *failingSecondTracker) BrowseURL(issueKey string) string {
	return "https://example.atlassian.net/browse/" + issueKey
}
