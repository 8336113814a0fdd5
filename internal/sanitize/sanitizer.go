package sanitize

import (
	"sort"
	"strings"
)

// placeholders maps each category to its fixed redaction token. One token
// per category, not per match.
var placeholders = map[Category]string{
	CategoryEmail:      "[EMAIL_REDACTED]",
	CategoryPhone:      "[PHONE_REDACTED]",
	CategoryAPIKey:     "[API_KEY_REDACTED]",
	CategoryCreditCard: "[CARD_REDACTED]",
	CategorySSN:        "[SSN_REDACTED]",
	CategoryIPAddress:  "[IP_REDACTED]",
}

const fallbackPlaceholder = "[SENSITIVE_DATA_REDACTED]"

// Placeholder returns the redaction token for a category.
func Placeholder(c Category) string {
	if p, ok := placeholders[c]; ok {
		return p
	}
	return fallbackPlaceholder
}

// Result is the outcome of sanitizing one text. Findings carry matched text
// and must not leave the process; use Summary for anything that gets logged.
type Result struct {
	Text     string
	Findings []Finding
	Modified bool
}

// Summary is the loggable aggregate of a sanitization pass: counts and
// categories only, no matched spans.
type Summary struct {
	WasSanitized  bool     `json:"was_sanitized"`
	FindingsCount int      `json:"findings_count"`
	Categories    []string `json:"finding_types"`
}

// Summary reduces the result to its loggable form.
func (r Result) Summary() Summary {
	seen := make(map[string]bool)
	var categories []string
	for _, f := range r.Findings {
		if !seen[string(f.Category)] {
			seen[string(f.Category)] = true
			categories = append(categories, string(f.Category))
		}
	}
	sort.Strings(categories)
	return Summary{
		WasSanitized:  r.Modified,
		FindingsCount: len(r.Findings),
		Categories:    categories,
	}
}

// Metadata returns the summary as audit-event metadata.
func (s Summary) Metadata() map[string]any {
	return map[string]any{
		"was_sanitized":  s.WasSanitized,
		"findings_count": s.FindingsCount,
		"finding_types":  s.Categories,
	}
}

// Sanitize replaces every detected sensitive span with its category
// placeholder. Replacement is literal and sequential in fixed detector
// order, so overlapping matches redact deterministically. Empty input
// yields an unmodified empty result.
func Sanitize(text string) Result {
	if text == "" {
		return Result{Text: ""}
	}

	findings := Scan(text)
	if len(findings) == 0 {
		return Result{Text: text}
	}

	out := text
	for _, f := range findings {
		out = strings.ReplaceAll(out, f.Match, Placeholder(f.Category))
	}
	return Result{Text: out, Findings: findings, Modified: true}
}
