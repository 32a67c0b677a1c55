package models

// Severity levels reported by the audit system, most urgent first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRank orders severities for sorting. Unknown severities sort last.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// SeverityRank returns the sort position of a severity (lower = more urgent).
func SeverityRank(s Severity) int {
	if rank, ok := severityRank[s]; ok {
		return rank
	}
	return 9
}

// RawIssue is one finding attached to one URL within a domain audit.
// Produced by the audit system, consumed only by the grouper.
type RawIssue struct {
	IssueType      string   `json:"issue_type"`
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	Description    string   `json:"description,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	CurrentValue   string   `json:"current_value,omitempty"`
	ExpectedValue  string   `json:"expected_value,omitempty"`
}

// RawURLEntry holds all issues found for one audited URL.
type RawURLEntry struct {
	Issues []RawIssue `json:"issues,omitempty"`
}

// RawAudit is the full raw audit artifact for one domain, as stored
// in the blob store by the audit system.
type RawAudit struct {
	Domain       string                 `json:"domain"`
	AuditDate    string                 `json:"audit_date"`
	HealthScore  float64                `json:"health_score"`
	IssueSummary RawIssueSummary        `json:"issue_summary"`
	URLs         map[string]RawURLEntry `json:"urls,omitempty"`
}

// RawIssueSummary carries the audit system's own issue counts. The
// pipeline recomputes its own counts and only passes this through.
type RawIssueSummary struct {
	TotalIssues   int `json:"total_issues"`
	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`
}
