package models

import "time"

// Classification is the root-cause category assigned by the
// classification capability.
type Classification string

const (
	ClassFrontendRendering   Classification = "Frontend Rendering Issue"
	ClassAPIDataFieldExists  Classification = "API Data Issue - Field Exists"
	ClassAPIDataFieldMissing Classification = "API Data Issue - Field Missing"
	ClassOutOfScope          Classification = "Out of Scope"
)

// ValidClassification reports whether c is one of the four allowed values.
func ValidClassification(c Classification) bool {
	switch c {
	case ClassFrontendRendering, ClassAPIDataFieldExists, ClassAPIDataFieldMissing, ClassOutOfScope:
		return true
	}
	return false
}

// TeamAssignment routes a ticket to the team responsible for the fix.
type TeamAssignment string

const (
	TeamTech TeamAssignment = "Tech Team"
	TeamData TeamAssignment = "Data Team"
)

// ValidTeam reports whether t is an allowed team assignment.
func ValidTeam(t TeamAssignment) bool {
	return t == TeamTech || t == TeamData
}

// Priority is the tracker's priority vocabulary.
type Priority string

const (
	PriorityHighest Priority = "Highest"
	PriorityHigh    Priority = "High"
	PriorityMedium  Priority = "Medium"
	PriorityLow     Priority = "Low"
)

// ValidPriority reports whether p is one of the four allowed values.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DefaultPriority maps a severity to its fallback priority, used when the
// classification capability returns an invalid or missing priority.
func DefaultPriority(s Severity) Priority {
	switch s {
	case SeverityCritical:
		return PriorityHighest
	case SeverityHigh:
		return PriorityHigh
	case SeverityMedium:
		return PriorityMedium
	case SeverityLow:
		return PriorityLow
	}
	return PriorityMedium
}

// ExampleIssue is one representative raw issue kept per group so the
// classification capability has concrete context to reason from.
type ExampleIssue struct {
	URL            string `json:"url"`
	Description    string `json:"description,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	CurrentValue   string `json:"current_value,omitempty"`
	ExpectedValue  string `json:"expected_value,omitempty"`
}

// Rich reports whether the example carries enough context for
// classification (a description or a current value).
func (e ExampleIssue) Rich() bool {
	return e.Description != "" || e.CurrentValue != ""
}

// IssueGroup is the canonical unit of work for the pipeline. Identity is
// the (IssueType, Severity, Category) triple. AllURLs mirrors input
// cardinality exactly: Count == len(AllURLs), duplicates are kept.
// Read-only after the grouper builds it.
type IssueGroup struct {
	IssueType       string       `json:"issue_type"`
	Severity        Severity     `json:"severity"`
	Category        string       `json:"category"`
	Count           int          `json:"count"`
	AllURLs         []string     `json:"all_urls"`
	AffectedDomains []string     `json:"affected_domains"`
	Example         ExampleIssue `json:"example_issue"`
}

// DraftedTicket is the classification capability's structured output,
// validated by the dispatcher.
type DraftedTicket struct {
	Group            *IssueGroup    `json:"issue_group"`
	Classification   Classification `json:"classification"`
	Team             TeamAssignment `json:"team"`
	Priority         Priority       `json:"priority"`
	Objective        string         `json:"objective"`
	Summary          string         `json:"summary"`
	ProposedSolution string         `json:"proposed_solution"`
}

// TicketRecord describes one successfully created tracker issue.
type TicketRecord struct {
	IssueKey          string         `json:"issueKey"`
	TrackerURL        string         `json:"trackerUrl"`
	IssueType         string         `json:"issueType"`
	Team              TeamAssignment `json:"team"`
	AttachmentCreated bool           `json:"attachmentCreated"`
}

// PublishResult is the per-ticket outcome of the publisher.
type PublishResult struct {
	Success bool          `json:"success"`
	Ticket  *TicketRecord `json:"ticket,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Failure records one isolated stage-item failure, keyed by issue type.
type Failure struct {
	IssueType string `json:"issueType"`
	Error     string `json:"error"`
}

// PipelineResult is the persisted run artifact: both successes and
// failures are first-class, and a non-empty failure list does not make
// the invocation a failure.
type PipelineResult struct {
	RunID           string         `json:"runId"`
	CreatedAt       time.Time      `json:"createdAt"`
	TicketsCreated  int            `json:"ticketsCreated"`
	Tickets         []TicketRecord `json:"tickets"`
	Failures        []Failure      `json:"failures"`
	StorageLocation string         `json:"storageLocation"`
}

// RunRecord is the tracking store's row for one pipeline run. A non-empty
// StorageLocation means the run is done and must not be redone.
type RunRecord struct {
	RunID           string    `json:"runId"`
	StorageLocation string    `json:"storageLocation"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RunStatus is what a caller receives from the idempotency gate.
type RunStatus string

const (
	StatusComplete RunStatus = "complete"
	StatusExists   RunStatus = "exists"
)
