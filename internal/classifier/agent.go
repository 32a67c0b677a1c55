package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

// AgentClient calls the classification agent service over HTTP. The agent
// runs the LLM investigation (route matching, page specs, live API checks)
// and returns one structured draft per request.
type AgentClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewAgentClient creates a client for the agent service at baseURL.
// timeout bounds each classification call; an elapsed timeout is that
// group's failure, not a pipeline abort.
func NewAgentClient(baseURL string, timeout time.Duration) *AgentClient {
	return &AgentClient{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// classifyRequest is the wire shape sent to the agent service.
type classifyRequest struct {
	IssueType       string              `json:"issue_type"`
	Severity        models.Severity     `json:"severity"`
	Category        string              `json:"category"`
	Count           int                 `json:"count"`
	AffectedDomains []string            `json:"affected_domains"`
	Example         models.ExampleIssue `json:"example_issue"`
}

// classifyResponse is the agent's structured output. Enum validation
// happens in the dispatcher, not here.
type classifyResponse struct {
	Classification   models.Classification `json:"classification"`
	Team             models.TeamAssignment `json:"team"`
	Priority         models.Priority       `json:"priority"`
	Objective        string                `json:"objective"`
	Summary          string                `json:"summary"`
	ProposedSolution string                `json:"proposedSolution"`
}

// Classify sends one issue group to the agent service and decodes the
// structured draft. Non-2xx responses and undecodable bodies are failures.
func (a *AgentClient) Classify(ctx context.Context, group *models.IssueGroup) (*models.DraftedTicket, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload, err := json.Marshal(classifyRequest{
		IssueType:       group.IssueType,
		Severity:        group.Severity,
		Category:        group.Category,
		Count:           group.Count,
		AffectedDomains: group.AffectedDomains,
		Example:         group.Example,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier agent unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classifier agent failed (%d): %s", resp.StatusCode, truncate(string(body), 500))
	}

	var out classifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		// The agent produced prose instead of the structured result.
		return nil, fmt.Errorf("classifier agent returned unstructured output: %w", err)
	}

	return &models.DraftedTicket{
		Group:            group,
		Classification:   out.Classification,
		Team:             out.Team,
		Priority:         out.Priority,
		Objective:        out.Objective,
		Summary:          out.Summary,
		ProposedSolution: out.ProposedSolution,
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
