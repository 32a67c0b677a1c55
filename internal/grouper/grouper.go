// Package grouper collapses raw per-URL audit issues into canonical issue
// groups, the unit of work for classification and publishing. Grouping is
// pure: no side effects, identical output for identical input.
package grouper

import (
	"sort"
	"strings"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

// AuditInput pairs one domain's raw audit with its audit identity, for
// cross-domain grouping.
type AuditInput struct {
	AuditID  string
	Domain   string
	RawAudit *models.RawAudit
}

// keySep joins the identity triple into a map key. Never appears in
// audit-produced issue fields.
const keySep = "|||"

// accumulator collects group state while iterating raw issues.
type accumulator struct {
	allURLs []string
	domains map[string]struct{}
	example models.ExampleIssue
}

// Group collapses a single domain's raw audit into issue groups, sorted by
// severity ascending (critical first), ties broken by descending count.
func Group(domain string, raw *models.RawAudit) []*models.IssueGroup {
	return GroupAcrossDomains([]AuditInput{{Domain: domain, RawAudit: raw}})
}

// GroupAcrossDomains merges issues from many domains' audits: issues with
// the same (issue_type, severity, category) collapse into one group no
// matter which domain reported them. Every URL membership is kept, so a
// group's count always equals len(AllURLs), duplicates included.
func GroupAcrossDomains(audits []AuditInput) []*models.IssueGroup {
	groups := make(map[string]*accumulator)
	var order []string

	for _, audit := range audits {
		if audit.RawAudit == nil {
			continue
		}

		// Map iteration order is randomised; walk URLs in sorted order so
		// example selection is reproducible across runs.
		urls := make([]string, 0, len(audit.RawAudit.URLs))
		for url := range audit.RawAudit.URLs {
			urls = append(urls, url)
		}
		sort.Strings(urls)

		for _, url := range urls {
			for _, issue := range audit.RawAudit.URLs[url].Issues {
				key := issue.IssueType + keySep + string(issue.Severity) + keySep + issue.Category

				acc, ok := groups[key]
				if !ok {
					acc = &accumulator{domains: make(map[string]struct{})}
					groups[key] = acc
					order = append(order, key)
					acc.example = exampleFrom(url, issue)
				}

				acc.allURLs = append(acc.allURLs, url)
				acc.domains[audit.Domain] = struct{}{}

				// One-way ratchet: only replace an example that lacks both
				// a description and a current value, and only with an issue
				// that supplies at least one of them.
				if !acc.example.Rich() && (issue.Description != "" || issue.CurrentValue != "") {
					acc.example = exampleFrom(url, issue)
				}
			}
		}
	}

	result := make([]*models.IssueGroup, 0, len(groups))
	for _, key := range order {
		acc := groups[key]
		parts := strings.SplitN(key, keySep, 3)

		domains := make([]string, 0, len(acc.domains))
		for d := range acc.domains {
			domains = append(domains, d)
		}
		sort.Strings(domains)

		result = append(result, &models.IssueGroup{
			IssueType:       parts[0],
			Severity:        models.Severity(parts[1]),
			Category:        parts[2],
			Count:           len(acc.allURLs),
			AllURLs:         acc.allURLs,
			AffectedDomains: domains,
			Example:         acc.example,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		ri, rj := models.SeverityRank(result[i].Severity), models.SeverityRank(result[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return result[i].Count > result[j].Count
	})

	return result
}

func exampleFrom(url string, issue models.RawIssue) models.ExampleIssue {
	return models.ExampleIssue{
		URL:            url,
		Description:    issue.Description,
		Recommendation: issue.Recommendation,
		CurrentValue:   issue.CurrentValue,
		ExpectedValue:  issue.ExpectedValue,
	}
}
