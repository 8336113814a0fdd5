package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/promptgate/promptgate/internal/audit"
	"github.com/promptgate/promptgate/internal/model"
	"github.com/promptgate/promptgate/internal/policy"
)

func newTestLog(t *testing.T) *audit.Log {
	t.Helper()
	l, err := audit.Open(filepath.Join(t.TempDir(), "audit_chain.json"))
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	return l
}

func record(t *testing.T, l *audit.Log, e audit.Event) {
	t.Helper()
	if _, err := l.Record(e); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func defaultWeights() policy.ScoringWeights {
	return policy.ScoringWeights{Sanitization: 0.5, Consent: 0.3}
}

func TestPrivacyScoreSyntheticSet(t *testing.T) {
	l := newTestLog(t)

	// 10 AI requests, 8 sanitized; 10 consent checks, 9 granted.
	for i := 0; i < 10; i++ {
		record(t, l, audit.Event{
			Type:     model.EventAIRequest,
			Severity: model.SeverityLow,
			Message:  "ai request processed",
			Metadata: map[string]any{"was_sanitized": i < 8},
		})
	}
	for i := 0; i < 9; i++ {
		record(t, l, audit.Event{Type: model.EventConsentGranted, Severity: model.SeverityLow, Message: "consent granted"})
	}
	record(t, l, audit.Event{Type: model.EventConsentDenied, Severity: model.SeverityMedium, Message: "consent denied"})

	r := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})

	// 100 - 0.5*(100-80) - 0.3*(100-90) = 87.0
	if r.Privacy.Score != 87.0 {
		t.Fatalf("score = %v, want 87.0", r.Privacy.Score)
	}
	if r.Privacy.TotalAIRequests != 10 || r.Privacy.SanitizedRequests != 8 {
		t.Fatalf("ai counts = %d/%d, want 8/10", r.Privacy.SanitizedRequests, r.Privacy.TotalAIRequests)
	}
	if r.Privacy.SanitizationRate != 80.0 {
		t.Fatalf("sanitization rate = %v, want 80", r.Privacy.SanitizationRate)
	}
	if r.Privacy.ConsentGranted != 9 || r.Privacy.ConsentDenied != 1 {
		t.Fatalf("consent counts = %d/%d", r.Privacy.ConsentGranted, r.Privacy.ConsentDenied)
	}
}

func TestPrivacyScoreEmptyWindowIsPerfect(t *testing.T) {
	l := newTestLog(t)
	r := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})
	if r.Privacy.Score != 100.0 {
		t.Fatalf("score with no events = %v, want 100", r.Privacy.Score)
	}
}

func TestPrivacyWeightsAreConfiguration(t *testing.T) {
	l := newTestLog(t)
	record(t, l, audit.Event{
		Type:     model.EventAIRequest,
		Severity: model.SeverityLow,
		Message:  "ai request processed",
		Metadata: map[string]any{"was_sanitized": false},
	})

	strict := NewGenerator(l, policy.ScoringWeights{Sanitization: 1.0, Consent: 0.3}).Generate(time.Time{}, time.Time{})
	if strict.Privacy.Score != 0.0 {
		t.Fatalf("strict score = %v, want 0", strict.Privacy.Score)
	}
	lenient := NewGenerator(l, policy.ScoringWeights{Sanitization: 0.1, Consent: 0.3}).Generate(time.Time{}, time.Time{})
	if lenient.Privacy.Score != 90.0 {
		t.Fatalf("lenient score = %v, want 90", lenient.Privacy.Score)
	}
}

func TestIncidentSummaryTruncatesAndExcludesMetadata(t *testing.T) {
	l := newTestLog(t)

	long := strings.Repeat("x", 150)
	for i := 0; i < 12; i++ {
		record(t, l, audit.Event{
			Type:     model.EventIncident,
			Severity: model.SeverityCritical,
			Message:  long,
			Metadata: map[string]any{"internal_detail": "do-not-leak"},
		})
	}
	record(t, l, audit.Event{Type: model.EventIncident, Severity: model.SeverityLow, Message: "minor"})

	r := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})

	if r.Incidents.Total != 13 {
		t.Fatalf("total = %d, want 13", r.Incidents.Total)
	}
	if r.Incidents.CriticalCount != 12 {
		t.Fatalf("critical count = %d, want 12", r.Incidents.CriticalCount)
	}
	if len(r.Incidents.CriticalIncidents) != 10 {
		t.Fatalf("critical list = %d entries, want 10", len(r.Incidents.CriticalIncidents))
	}
	for _, ci := range r.Incidents.CriticalIncidents {
		if len(ci.Message) > 100 {
			t.Fatalf("message not truncated: %d chars", len(ci.Message))
		}
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "do-not-leak") {
		t.Fatal("incident metadata leaked into report")
	}
}

func TestIncidentTruncationKeepsRuneBoundaries(t *testing.T) {
	l := newTestLog(t)

	// Multi-byte runes straddling the limit must not be split into
	// invalid UTF-8.
	record(t, l, audit.Event{
		Type:     model.EventIncident,
		Severity: model.SeverityCritical,
		Message:  strings.Repeat("é", 150),
	})

	r := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})
	if len(r.Incidents.CriticalIncidents) != 1 {
		t.Fatalf("critical list = %d entries, want 1", len(r.Incidents.CriticalIncidents))
	}
	msg := r.Incidents.CriticalIncidents[0].Message
	if !utf8.ValidString(msg) {
		t.Fatal("truncated message is not valid UTF-8")
	}
	if got := utf8.RuneCountInString(msg); got != 100 {
		t.Fatalf("truncated length = %d runes, want 100", got)
	}
}

func TestPolicyComplianceRate(t *testing.T) {
	l := newTestLog(t)
	for i := 0; i < 3; i++ {
		record(t, l, audit.Event{Type: model.EventAIRequest, Severity: model.SeverityLow, Message: "ok"})
	}
	record(t, l, audit.Event{Type: model.EventPolicyViolation, Severity: model.SeverityHigh, Message: "violation"})

	r := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})
	if r.Policy.TotalViolations != 1 {
		t.Fatalf("violations = %d, want 1", r.Policy.TotalViolations)
	}
	if r.Policy.ComplianceRate != 75.0 {
		t.Fatalf("compliance rate = %v, want 75", r.Policy.ComplianceRate)
	}
}

func TestWindowFiltersByTimestamp(t *testing.T) {
	l := newTestLog(t)
	record(t, l, audit.Event{Type: model.EventSystem, Severity: model.SeverityLow, Message: "inside"})

	// A window entirely in the past excludes the event just recorded.
	end := time.Now().UTC().Add(-48 * time.Hour)
	start := end.Add(-24 * time.Hour)
	r := NewGenerator(l, defaultWeights()).Generate(start, end)
	if r.Statistics.TotalEvents != 0 {
		t.Fatalf("past window events = %d, want 0", r.Statistics.TotalEvents)
	}

	now := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})
	if now.Statistics.TotalEvents != 1 {
		t.Fatalf("default window events = %d, want 1", now.Statistics.TotalEvents)
	}
}

func TestIntegritySection(t *testing.T) {
	l := newTestLog(t)
	record(t, l, audit.Event{Type: model.EventSystem, Severity: model.SeverityLow, Message: "boot"})

	r := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})
	if !r.Integrity.ChainValid {
		t.Fatal("chain should be valid")
	}
	if r.Integrity.LastEntryHash != l.LastHash() {
		t.Fatalf("last hash = %q, want %q", r.Integrity.LastEntryHash, l.LastHash())
	}
	if r.Integrity.VerifiedAt == "" {
		t.Fatal("verification timestamp missing")
	}
}

func TestStatisticsBreakdowns(t *testing.T) {
	l := newTestLog(t)
	record(t, l, audit.Event{Type: model.EventAIRequest, Severity: model.SeverityLow, Message: "a"})
	record(t, l, audit.Event{Type: model.EventAIRequest, Severity: model.SeverityLow, Message: "b"})
	record(t, l, audit.Event{Type: model.EventIncident, Severity: model.SeverityHigh, Message: "c"})

	r := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})
	if r.Statistics.TotalEvents != 3 {
		t.Fatalf("total = %d, want 3", r.Statistics.TotalEvents)
	}
	if r.Statistics.EventTypeBreakdown["ai_request"] != 2 {
		t.Fatalf("type breakdown = %v", r.Statistics.EventTypeBreakdown)
	}
	if r.Statistics.SeverityBreakdown["high"] != 1 {
		t.Fatalf("severity breakdown = %v", r.Statistics.SeverityBreakdown)
	}
}

func TestExportWritesSelfContainedDocument(t *testing.T) {
	l := newTestLog(t)
	record(t, l, audit.Event{Type: model.EventSystem, Severity: model.SeverityLow, Message: "boot"})
	r := NewGenerator(l, defaultWeights()).Generate(time.Time{}, time.Time{})

	dir := t.TempDir()
	path, err := Export(r, dir, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(path, r.ReportID) {
		t.Fatalf("default path %q should carry report id", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported report: %v", err)
	}
	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("exported report is not valid JSON: %v", err)
	}
	if back.ReportID != r.ReportID {
		t.Fatalf("round-trip id = %q, want %q", back.ReportID, r.ReportID)
	}

	explicit := filepath.Join(dir, "sub", "named.json")
	got, err := Export(r, "", explicit)
	if err != nil {
		t.Fatalf("export to explicit path: %v", err)
	}
	if got != explicit {
		t.Fatalf("path = %q, want %q", got, explicit)
	}
}
