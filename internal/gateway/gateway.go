package gateway

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/promptgate/promptgate/internal/audit"
	"github.com/promptgate/promptgate/internal/consent"
	"github.com/promptgate/promptgate/internal/incident"
	"github.com/promptgate/promptgate/internal/model"
	"github.com/promptgate/promptgate/internal/policy"
	"github.com/promptgate/promptgate/internal/report"
	"github.com/promptgate/promptgate/internal/sanitize"
)

// Deny reasons carried on a blocked evaluation. Machine-readable; the
// human-oriented detail travels in the audit trail.
const (
	ReasonConsentNotProvided = "consent_not_provided"
	ReasonConsentDenied      = "consent_denied"
	ReasonConsentExpired     = "consent_expired"
	ReasonPolicyViolation    = "policy_violation"
)

// Evaluation is the boundary result for one AI request. On Deny the
// SanitizedPrompt is empty: nothing downstream may see the raw prompt.
type Evaluation struct {
	SanitizedPrompt string
	Decision        model.Decision
	Reason          string
}

// Config locates the gateway's durable state and policy file.
type Config struct {
	StateDir   string // holds audit_chain.json and consents.json
	ReportsDir string // exported report documents
	PolicyPath string // optional YAML policy config
}

// Gateway composes the compliance core and exposes the boundary the
// surrounding application calls. All state the gateway owns lives in
// self-contained JSON documents under StateDir.
type Gateway struct {
	cfg      Config
	auditLog *audit.Log
	consents *consent.Registry
	engine   *policy.Engine
}

// Open loads or creates the gateway's durable state and builds the policy
// engine from configuration.
func Open(cfg Config) (*Gateway, error) {
	if cfg.StateDir == "" {
		return nil, fmt.Errorf("gateway: state directory required")
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = filepath.Join(cfg.StateDir, "reports")
	}

	policyCfg, err := policy.LoadConfig(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}

	auditLog, err := audit.Open(filepath.Join(cfg.StateDir, "audit_chain.json"))
	if err != nil {
		return nil, err
	}

	consents, err := consent.Open(filepath.Join(cfg.StateDir, "consents.json"))
	if err != nil {
		return nil, err
	}

	return &Gateway{
		cfg:      cfg,
		auditLog: auditLog,
		consents: consents,
		engine:   policy.NewEngine(policyCfg),
	}, nil
}

// EvaluateRequest runs one AI request through the compliance pipeline:
// consent check, policy check, sanitization. Every deny is audit-logged
// before it is returned, and a deny short-circuits before sanitization so no
// work is spent on a request that cannot proceed.
func (g *Gateway) EvaluateRequest(subjectID, purpose, prompt string) (Evaluation, error) {
	status := g.consents.Check(subjectID, purpose)
	ctx := policy.Context{HasConsent: status == consent.StatusGranted}

	// The engine decides whether missing consent blocks the request; the
	// gateway only translates its verdict into the right audit event.
	if err := g.engine.Check(policy.PolicyPrivacy, ctx); err != nil {
		v, ok := err.(*policy.Violation)
		if !ok {
			return Evaluation{}, err
		}
		if v.ViolationType == "missing_consent" {
			reason := consentDenyReason(status)
			if _, err := g.auditLog.Record(audit.Event{
				Type:     model.EventConsentDenied,
				Severity: model.SeverityMedium,
				Message:  "ai request blocked: consent check failed",
				Metadata: map[string]any{
					"purpose":        purpose,
					"consent_status": string(status),
					"reason":         reason,
				},
				SubjectID: subjectID,
			}); err != nil {
				return Evaluation{}, err
			}
			return Evaluation{Decision: model.Deny, Reason: reason}, nil
		}
		return g.denyForViolation(subjectID, err)
	}
	if err := g.engine.Check(policy.PolicyAccessControl, ctx); err != nil {
		return g.denyForViolation(subjectID, err)
	}

	sanitized := prompt
	summary := sanitize.Result{Text: prompt}.Summary()
	if g.engine.Config().Privacy.SanitizePrompts {
		result := sanitize.Sanitize(prompt)
		sanitized = result.Text
		summary = result.Summary()
	}

	// The audit entry carries the sanitization summary only; the raw
	// prompt never reaches the log.
	md := summary.Metadata()
	md["purpose"] = purpose
	if _, err := g.auditLog.Record(audit.Event{
		Type:      model.EventAIRequest,
		Severity:  model.SeverityLow,
		Message:   "ai request evaluated",
		Metadata:  md,
		SubjectID: subjectID,
	}); err != nil {
		return Evaluation{}, err
	}

	return Evaluation{SanitizedPrompt: sanitized, Decision: model.Allow}, nil
}

func consentDenyReason(status consent.Status) string {
	switch status {
	case consent.StatusDenied:
		return ReasonConsentDenied
	case consent.StatusExpired:
		return ReasonConsentExpired
	default:
		return ReasonConsentNotProvided
	}
}

// denyForViolation logs a policy violation and converts it into a deny.
// A non-violation error from the engine is surfaced as-is.
func (g *Gateway) denyForViolation(subjectID string, err error) (Evaluation, error) {
	v, ok := err.(*policy.Violation)
	if !ok {
		return Evaluation{}, err
	}
	if _, logErr := g.auditLog.Record(audit.Event{
		Type:      model.EventPolicyViolation,
		Severity:  model.SeverityHigh,
		Message:   v.Error(),
		Metadata:  v.Metadata(),
		SubjectID: subjectID,
	}); logErr != nil {
		return Evaluation{}, logErr
	}
	return Evaluation{Decision: model.Deny, Reason: ReasonPolicyViolation}, nil
}

// GrantConsent records consent and audit-logs the grant.
func (g *Gateway) GrantConsent(subjectID, purpose string, expiresDays int) error {
	if err := g.consents.Grant(subjectID, purpose, expiresDays); err != nil {
		return err
	}
	_, err := g.auditLog.Record(audit.Event{
		Type:      model.EventConsentGranted,
		Severity:  model.SeverityLow,
		Message:   "consent granted",
		Metadata:  map[string]any{"purpose": purpose, "expires_days": expiresDays},
		SubjectID: subjectID,
	})
	return err
}

// RevokeConsent revokes consent and audit-logs the revocation.
func (g *Gateway) RevokeConsent(subjectID, purpose string) (bool, error) {
	ok, err := g.consents.Revoke(subjectID, purpose)
	if err != nil || !ok {
		return ok, err
	}
	_, err = g.auditLog.Record(audit.Event{
		Type:      model.EventConsentDenied,
		Severity:  model.SeverityLow,
		Message:   "consent revoked",
		Metadata:  map[string]any{"purpose": purpose, "reason": "revoked_by_subject"},
		SubjectID: subjectID,
	})
	return ok, err
}

// CheckConsent answers the consent status without side effects.
func (g *Gateway) CheckConsent(subjectID, purpose string) consent.Status {
	return g.consents.Check(subjectID, purpose)
}

// ForgetSubject erases every consent record for the subject and audit-logs
// the deletion. The audit trail itself is append-only and keeps its
// (PII-free) entries.
func (g *Gateway) ForgetSubject(subjectID string) (int, error) {
	removed, err := g.consents.Forget(subjectID)
	if err != nil {
		return 0, err
	}
	if _, err := g.auditLog.Record(audit.Event{
		Type:      model.EventDataDeletion,
		Severity:  model.SeverityMedium,
		Message:   "subject consent records deleted",
		Metadata:  map[string]any{"records_removed": removed},
		SubjectID: subjectID,
	}); err != nil {
		return removed, err
	}
	return removed, nil
}

// Record notes an operational fact in the audit trail. Open to any
// collaborator; message and metadata must already be PII-free.
func (g *Gateway) Record(typ model.EventType, sev model.Severity, message string, metadata map[string]any, subjectID string) (string, error) {
	return g.auditLog.Record(audit.Event{
		Type:      typ,
		Severity:  sev,
		Message:   message,
		Metadata:  metadata,
		SubjectID: subjectID,
	})
}

// ClassifyIncident builds a deterministic incident record and logs it as an
// INCIDENT event.
func (g *Gateway) ClassifyIncident(service incident.ServiceType, risk incident.DataRisk, description string, metadata map[string]any) (incident.Record, error) {
	rec := incident.NewRecord(service, risk, description, metadata)
	_, err := g.auditLog.Record(audit.Event{
		Type:     model.EventIncident,
		Severity: rec.Severity,
		Message:  description,
		Metadata: map[string]any{
			"incident_id":  rec.IncidentID,
			"service_type": string(rec.ServiceType),
			"data_risk":    string(rec.DataRisk),
			"is_critical":  rec.IsCritical,
		},
	})
	if err != nil {
		return incident.Record{}, err
	}
	return rec, nil
}

// BuildReport generates a compliance report for the window. Zero times use
// the default trailing window.
func (g *Gateway) BuildReport(start, end time.Time) *report.Report {
	gen := report.NewGenerator(g.auditLog, g.engine.Config().Scoring)
	return gen.Generate(start, end)
}

// ExportReport writes the report under the configured reports directory and
// returns its location.
func (g *Gateway) ExportReport(r *report.Report) (string, error) {
	return report.Export(r, g.cfg.ReportsDir, "")
}

// VerifyIntegrity rechecks the audit chain.
func (g *Gateway) VerifyIntegrity() bool { return g.auditLog.VerifyIntegrity() }

// AuditLog exposes the underlying log for read-side collaborators.
func (g *Gateway) AuditLog() *audit.Log { return g.auditLog }

// Engine exposes the policy engine (admin overrides, hot reload).
func (g *Gateway) Engine() *policy.Engine { return g.engine }
