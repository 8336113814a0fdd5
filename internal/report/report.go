package report

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptgate/promptgate/internal/audit"
	"github.com/promptgate/promptgate/internal/hashchain"
	"github.com/promptgate/promptgate/internal/model"
	"github.com/promptgate/promptgate/internal/policy"
)

// DefaultWindow is the report period when the caller supplies none.
const DefaultWindow = 30 * 24 * time.Hour

// criticalMessageLimit caps how much of an incident message a report may
// carry. Reports summarize; they never expose raw log detail.
const criticalMessageLimit = 100

// maxCriticalIncidents caps the critical incident list in a report.
const maxCriticalIncidents = 10

// Report is a self-contained compliance report document.
type Report struct {
	ReportID    string     `json:"report_id"`
	GeneratedAt string     `json:"generated_at"`
	Period      Period     `json:"period"`
	Integrity   Integrity  `json:"audit_log_integrity"`
	Incidents   Incidents  `json:"incident_summary"`
	Privacy     Privacy    `json:"ai_privacy_score"`
	Policy      Compliance `json:"policy_compliance"`
	Statistics  Statistics `json:"statistics"`
}

// Period is the reporting window.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Integrity reports the audit chain's verification state.
type Integrity struct {
	ChainValid    bool   `json:"chain_valid"`
	LastEntryHash string `json:"last_entry_hash"`
	VerifiedAt    string `json:"verification_timestamp"`
}

// CriticalIncident is a truncated view of one critical incident. Metadata is
// deliberately absent.
type CriticalIncident struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Incidents summarizes incident events in the window.
type Incidents struct {
	Total             int                `json:"total_incidents"`
	SeverityBreakdown map[string]int     `json:"severity_breakdown"`
	CriticalIncidents []CriticalIncident `json:"critical_incidents"`
	CriticalCount     int                `json:"critical_count"`
}

// Privacy is the AI privacy score section.
type Privacy struct {
	Score             float64 `json:"score"`
	TotalAIRequests   int     `json:"total_ai_requests"`
	SanitizedRequests int     `json:"sanitized_requests"`
	SanitizationRate  float64 `json:"sanitization_rate"`
	ConsentGranted    int     `json:"consent_granted"`
	ConsentDenied     int     `json:"consent_denied"`
}

// Compliance is the policy-violation section.
type Compliance struct {
	TotalViolations int     `json:"total_violations"`
	ComplianceRate  float64 `json:"compliance_rate"`
}

// Statistics is the generic event breakdown.
type Statistics struct {
	TotalEvents        int            `json:"total_events"`
	EventTypeBreakdown map[string]int `json:"event_type_breakdown"`
	SeverityBreakdown  map[string]int `json:"severity_breakdown"`
}

// Generator builds reports from the audit log. The privacy-score weights
// come from policy configuration, not constants: the weighting is a business
// decision.
type Generator struct {
	log     *audit.Log
	weights policy.ScoringWeights
}

// NewGenerator creates a report generator over the given audit log.
func NewGenerator(log *audit.Log, weights policy.ScoringWeights) *Generator {
	return &Generator{log: log, weights: weights}
}

// Generate builds a report for the window [start, end]. Zero end means now;
// zero start means end minus the default trailing window.
func (g *Generator) Generate(start, end time.Time) *Report {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-DefaultWindow)
	}

	all := g.log.Events(audit.Filter{})
	var window []hashchain.Entry
	for _, e := range all {
		ts, err := model.ParseTimestamp(e.Timestamp())
		if err != nil {
			continue
		}
		if !ts.Before(start) && !ts.After(end) {
			window = append(window, e)
		}
	}

	return &Report{
		ReportID:    newReportID(),
		GeneratedAt: model.UTCNowISO(),
		Period: Period{
			Start: start.UTC().Format(model.TimestampFormat),
			End:   end.UTC().Format(model.TimestampFormat),
		},
		Integrity:  g.integrity(),
		Incidents:  incidentSummary(window),
		Privacy:    g.privacyScore(window),
		Policy:     policyCompliance(window),
		Statistics: statistics(window),
	}
}

func newReportID() string {
	return "COMP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func (g *Generator) integrity() Integrity {
	return Integrity{
		ChainValid:    g.log.VerifyIntegrity(),
		LastEntryHash: g.log.LastHash(),
		VerifiedAt:    model.UTCNowISO(),
	}
}

func eventType(e hashchain.Entry) string {
	t, _ := e["event_type"].(string)
	return t
}

func eventSeverity(e hashchain.Entry) string {
	s, _ := e["severity"].(string)
	return s
}

func incidentSummary(window []hashchain.Entry) Incidents {
	breakdown := map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0}
	var critical []CriticalIncident
	total := 0

	for _, e := range window {
		if eventType(e) != string(model.EventIncident) {
			continue
		}
		total++
		sev := eventSeverity(e)
		breakdown[sev]++

		if sev == string(model.SeverityCritical) && len(critical) < maxCriticalIncidents {
			msg, _ := e["message"].(string)
			// Truncate by characters, not bytes, so a multi-byte rune at
			// the boundary cannot leave invalid UTF-8 in the report.
			if r := []rune(msg); len(r) > criticalMessageLimit {
				msg = string(r[:criticalMessageLimit])
			}
			critical = append(critical, CriticalIncident{
				Timestamp: e.Timestamp(),
				Message:   msg,
			})
		}
	}

	return Incidents{
		Total:             total,
		SeverityBreakdown: breakdown,
		CriticalIncidents: critical,
		CriticalCount:     breakdown["critical"],
	}
}

func (g *Generator) privacyScore(window []hashchain.Entry) Privacy {
	var aiTotal, sanitized, granted, denied int
	for _, e := range window {
		switch eventType(e) {
		case string(model.EventAIRequest):
			aiTotal++
			if md, ok := e["metadata"].(map[string]any); ok {
				if was, _ := md["was_sanitized"].(bool); was {
					sanitized++
				}
			}
		case string(model.EventConsentGranted):
			granted++
		case string(model.EventConsentDenied):
			denied++
		}
	}

	score := 100.0
	sanitizationRate := 100.0
	if aiTotal > 0 {
		sanitizationRate = float64(sanitized) / float64(aiTotal) * 100
		score -= (100 - sanitizationRate) * g.weights.Sanitization
	}
	if checks := granted + denied; checks > 0 {
		consentRate := float64(granted) / float64(checks) * 100
		score -= (100 - consentRate) * g.weights.Consent
	}
	score = math.Max(0, math.Min(100, score))

	return Privacy{
		Score:             round2(score),
		TotalAIRequests:   aiTotal,
		SanitizedRequests: sanitized,
		SanitizationRate:  round2(sanitizationRate),
		ConsentGranted:    granted,
		ConsentDenied:     denied,
	}
}

func policyCompliance(window []hashchain.Entry) Compliance {
	violations := 0
	for _, e := range window {
		if eventType(e) == string(model.EventPolicyViolation) {
			violations++
		}
	}

	total := len(window)
	if total == 0 {
		total = 1
	}
	return Compliance{
		TotalViolations: violations,
		ComplianceRate:  round2((1 - float64(violations)/float64(total)) * 100),
	}
}

func statistics(window []hashchain.Entry) Statistics {
	types := map[string]int{}
	severities := map[string]int{}
	for _, e := range window {
		types[eventType(e)]++
		severities[eventSeverity(e)]++
	}
	return Statistics{
		TotalEvents:        len(window),
		EventTypeBreakdown: types,
		SeverityBreakdown:  severities,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
