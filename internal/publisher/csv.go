package publisher

import (
	"strings"

	"github.com/samad-cloud/ticketsmith/internal/models"
)

// affectedURLsCSV renders the complete URL list for one group. Every field
// is quoted, embedded quotes are doubled. Only rows whose URL matches the
// group's example carry current/expected values; the audit reported those
// for the example only.
func affectedURLsCSV(group *models.IssueGroup) string {
	var b strings.Builder
	b.WriteString("url,issue_type,severity,category,current_value,expected_value\n")

	rows := make([]string, 0, len(group.AllURLs))
	for _, url := range group.AllURLs {
		currentValue, expectedValue := "", ""
		if url == group.Example.URL {
			currentValue = group.Example.CurrentValue
			expectedValue = group.Example.ExpectedValue
		}

		fields := []string{
			csvEscape(url),
			csvEscape(group.IssueType),
			csvEscape(string(group.Severity)),
			csvEscape(group.Category),
			csvEscape(currentValue),
			csvEscape(expectedValue),
		}
		rows = append(rows, strings.Join(fields, ","))
	}

	b.WriteString(strings.Join(rows, "\n"))
	return b.String()
}

func csvEscape(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// slugify lowercases text and collapses non-alphanumeric runs into single
// hyphens, trimming leading/trailing ones.
func slugify(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
			b.WriteByte('-')
		}
	}
	return strings.TrimRight(b.String(), "-")
}
