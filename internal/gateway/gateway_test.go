package gateway

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/promptgate/promptgate/internal/audit"
	"github.com/promptgate/promptgate/internal/consent"
	"github.com/promptgate/promptgate/internal/incident"
	"github.com/promptgate/promptgate/internal/model"
	"github.com/promptgate/promptgate/internal/policy"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := Open(Config{StateDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return gw
}

func TestEvaluateWithoutConsentDenies(t *testing.T) {
	gw := newTestGateway(t)

	ev, err := gw.EvaluateRequest("user-1", "ai_assistance", "my email is a@b.com")
	if err != nil {
		t.Fatalf("EvaluateRequest: %v", err)
	}
	if ev.Decision != model.Deny {
		t.Fatalf("decision = %q, want deny", ev.Decision)
	}
	if ev.Reason != ReasonConsentNotProvided {
		t.Errorf("reason = %q, want %q", ev.Reason, ReasonConsentNotProvided)
	}
	if ev.SanitizedPrompt != "" {
		t.Errorf("denied evaluation carries prompt text %q", ev.SanitizedPrompt)
	}

	denied := gw.AuditLog().Events(audit.Filter{Type: model.EventConsentDenied})
	if len(denied) != 1 {
		t.Fatalf("consent_denied entries = %d, want exactly 1", len(denied))
	}
	if got := gw.AuditLog().Events(audit.Filter{Type: model.EventAIRequest}); len(got) != 0 {
		t.Errorf("denied request produced %d ai_request entries", len(got))
	}
}

func TestDenyLeaksNoPromptContent(t *testing.T) {
	gw := newTestGateway(t)

	const secret = "ssn 078-05-1120 and card 4111 1111 1111 1111"
	if _, err := gw.EvaluateRequest("user-1", "ai_assistance", secret); err != nil {
		t.Fatalf("EvaluateRequest: %v", err)
	}

	for _, e := range gw.AuditLog().Events(audit.Filter{}) {
		raw, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal entry: %v", err)
		}
		if strings.Contains(string(raw), "078-05-1120") || strings.Contains(string(raw), "4111") {
			t.Fatalf("audit entry leaks prompt content: %s", raw)
		}
	}
}

func TestEvaluateWithConsentSanitizes(t *testing.T) {
	gw := newTestGateway(t)

	if err := gw.GrantConsent("user-2", "ai_assistance", 30); err != nil {
		t.Fatalf("GrantConsent: %v", err)
	}

	ev, err := gw.EvaluateRequest("user-2", "ai_assistance", "reach me at jane@example.com please")
	if err != nil {
		t.Fatalf("EvaluateRequest: %v", err)
	}
	if ev.Decision != model.Allow {
		t.Fatalf("decision = %q, want allow", ev.Decision)
	}
	if strings.Contains(ev.SanitizedPrompt, "jane@example.com") {
		t.Errorf("sanitized prompt still contains email: %q", ev.SanitizedPrompt)
	}
	if !strings.Contains(ev.SanitizedPrompt, "[EMAIL_REDACTED]") {
		t.Errorf("sanitized prompt = %q, want email placeholder", ev.SanitizedPrompt)
	}

	reqs := gw.AuditLog().Events(audit.Filter{Type: model.EventAIRequest})
	if len(reqs) != 1 {
		t.Fatalf("ai_request entries = %d, want 1", len(reqs))
	}
	raw, _ := json.Marshal(reqs[0])
	if strings.Contains(string(raw), "jane@example.com") {
		t.Fatalf("audit entry contains raw email: %s", raw)
	}
	md, _ := reqs[0]["metadata"].(map[string]any)
	if md == nil {
		t.Fatal("ai_request entry has no metadata")
	}
	if ws, _ := md["was_sanitized"].(bool); !ws {
		t.Errorf("metadata was_sanitized = %v, want true", md["was_sanitized"])
	}
}

func TestSanitizationDisabledPassesPromptThrough(t *testing.T) {
	gw := newTestGateway(t)
	gw.Engine().Update(func(c *policy.Config) { c.Privacy.SanitizePrompts = false })

	if err := gw.GrantConsent("user-3", "ai_assistance", 0); err != nil {
		t.Fatalf("GrantConsent: %v", err)
	}
	const prompt = "contact a@b.com"
	ev, err := gw.EvaluateRequest("user-3", "ai_assistance", prompt)
	if err != nil {
		t.Fatalf("EvaluateRequest: %v", err)
	}
	if ev.SanitizedPrompt != prompt {
		t.Errorf("prompt = %q, want unchanged %q", ev.SanitizedPrompt, prompt)
	}
}

func TestConsentNotRequiredAllowsStrangers(t *testing.T) {
	gw := newTestGateway(t)
	gw.Engine().Update(func(c *policy.Config) { c.Privacy.RequireConsent = false })

	ev, err := gw.EvaluateRequest("stranger", "ai_assistance", "hello")
	if err != nil {
		t.Fatalf("EvaluateRequest: %v", err)
	}
	if ev.Decision != model.Allow {
		t.Fatalf("decision = %q, want allow when consent not required", ev.Decision)
	}
}

func TestRevokedConsentDenies(t *testing.T) {
	gw := newTestGateway(t)

	if err := gw.GrantConsent("user-4", "ai_assistance", 30); err != nil {
		t.Fatalf("GrantConsent: %v", err)
	}
	ok, err := gw.RevokeConsent("user-4", "ai_assistance")
	if err != nil || !ok {
		t.Fatalf("RevokeConsent = %v, %v", ok, err)
	}

	ev, err := gw.EvaluateRequest("user-4", "ai_assistance", "hello")
	if err != nil {
		t.Fatalf("EvaluateRequest: %v", err)
	}
	if ev.Decision != model.Deny || ev.Reason != ReasonConsentDenied {
		t.Fatalf("got %q/%q, want deny/%q", ev.Decision, ev.Reason, ReasonConsentDenied)
	}
}

func TestAuthenticationRequirementDenies(t *testing.T) {
	gw := newTestGateway(t)
	gw.Engine().Update(func(c *policy.Config) { c.AccessControl.RequireAuthentication = true })

	if err := gw.GrantConsent("user-5", "ai_assistance", 30); err != nil {
		t.Fatalf("GrantConsent: %v", err)
	}
	ev, err := gw.EvaluateRequest("user-5", "ai_assistance", "hello")
	if err != nil {
		t.Fatalf("EvaluateRequest: %v", err)
	}
	if ev.Decision != model.Deny || ev.Reason != ReasonPolicyViolation {
		t.Fatalf("got %q/%q, want deny/%q", ev.Decision, ev.Reason, ReasonPolicyViolation)
	}
	if got := gw.AuditLog().Events(audit.Filter{Type: model.EventPolicyViolation}); len(got) != 1 {
		t.Errorf("policy_violation entries = %d, want 1", len(got))
	}
}

func TestForgetSubject(t *testing.T) {
	gw := newTestGateway(t)

	for _, p := range []string{"ai_assistance", "analytics"} {
		if err := gw.GrantConsent("user-6", p, 0); err != nil {
			t.Fatalf("GrantConsent(%s): %v", p, err)
		}
	}

	removed, err := gw.ForgetSubject("user-6")
	if err != nil {
		t.Fatalf("ForgetSubject: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if got := gw.CheckConsent("user-6", "ai_assistance"); got != consent.StatusNotProvided {
		t.Errorf("status after forget = %q, want not_provided", got)
	}
	if got := gw.AuditLog().Events(audit.Filter{Type: model.EventDataDeletion}); len(got) != 1 {
		t.Errorf("data_deletion entries = %d, want 1", len(got))
	}
}

func TestClassifyIncidentLogs(t *testing.T) {
	gw := newTestGateway(t)

	rec, err := gw.ClassifyIncident(incident.ServicePayment, incident.RiskCritical, "payment keys exposed", nil)
	if err != nil {
		t.Fatalf("ClassifyIncident: %v", err)
	}
	if rec.Severity != model.SeverityCritical || !rec.IsCritical {
		t.Errorf("severity = %q critical=%v, want critical/true", rec.Severity, rec.IsCritical)
	}

	events := gw.AuditLog().Events(audit.Filter{Type: model.EventIncident})
	if len(events) != 1 {
		t.Fatalf("incident entries = %d, want 1", len(events))
	}
	md, _ := events[0]["metadata"].(map[string]any)
	if md["incident_id"] != rec.IncidentID {
		t.Errorf("logged incident_id = %v, want %s", md["incident_id"], rec.IncidentID)
	}
}

func TestBuildAndExportReport(t *testing.T) {
	gw := newTestGateway(t)

	if err := gw.GrantConsent("user-7", "ai_assistance", 30); err != nil {
		t.Fatalf("GrantConsent: %v", err)
	}
	if _, err := gw.EvaluateRequest("user-7", "ai_assistance", "email a@b.com"); err != nil {
		t.Fatalf("EvaluateRequest: %v", err)
	}

	r := gw.BuildReport(time.Time{}, time.Time{})
	if !r.Integrity.ChainValid {
		t.Error("report says chain invalid on untampered log")
	}
	if r.Statistics.TotalEvents == 0 {
		t.Error("report window captured no events")
	}

	path, err := gw.ExportReport(r)
	if err != nil {
		t.Fatalf("ExportReport: %v", err)
	}
	if !strings.Contains(path, r.ReportID) {
		t.Errorf("export path %q does not contain report id %q", path, r.ReportID)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	gw, err := Open(Config{StateDir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := gw.GrantConsent("user-8", "ai_assistance", 0); err != nil {
		t.Fatalf("GrantConsent: %v", err)
	}
	lastHash := gw.AuditLog().LastHash()

	reopened, err := Open(Config{StateDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.CheckConsent("user-8", "ai_assistance"); got != consent.StatusGranted {
		t.Errorf("consent after reopen = %q, want granted", got)
	}
	if got := reopened.AuditLog().LastHash(); got != lastHash {
		t.Errorf("last hash after reopen = %s, want %s", got, lastHash)
	}
	if !reopened.VerifyIntegrity() {
		t.Error("chain integrity lost across reopen")
	}
}
