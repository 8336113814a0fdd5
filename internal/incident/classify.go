package incident

import (
	"strings"

	"github.com/google/uuid"

	"github.com/promptgate/promptgate/internal/model"
)

// ServiceType identifies the affected service class.
type ServiceType string

const (
	ServicePayment        ServiceType = "payment"
	ServiceAuthentication ServiceType = "authentication"
	ServiceDatabase       ServiceType = "database"
	ServiceAPI            ServiceType = "api"
	ServiceMonitoring     ServiceType = "monitoring"
	ServiceAI             ServiceType = "ai_service"
	ServiceGeneral        ServiceType = "general"
)

// DataRisk grades the sensitivity of the data involved.
type DataRisk string

const (
	RiskNone     DataRisk = "none"     // no sensitive data
	RiskLow      DataRisk = "low"      // public data
	RiskMedium   DataRisk = "medium"   // internal data
	RiskHigh     DataRisk = "high"     // personal data
	RiskCritical DataRisk = "critical" // financial, health, highly sensitive
)

// serviceCriticality and riskScore are the fixed classification tables.
// Classification is pure table lookup plus banding: no randomness, no
// external calls, so identical inputs always produce identical severity and
// reports stay reproducible as compliance evidence.
var serviceCriticality = map[ServiceType]int{
	ServicePayment:        4,
	ServiceAuthentication: 4,
	ServiceDatabase:       4,
	ServiceAPI:            3,
	ServiceAI:             2,
	ServiceMonitoring:     2,
	ServiceGeneral:        1,
}

var riskScore = map[DataRisk]int{
	RiskNone:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Classify computes incident severity from the combined criticality and
// risk scores. Unknown service types score 1, unknown risks 0.
func Classify(service ServiceType, risk DataRisk) model.Severity {
	score, ok := serviceCriticality[service]
	if !ok {
		score = 1
	}
	score += riskScore[risk]

	switch {
	case score >= 7:
		return model.SeverityCritical
	case score >= 5:
		return model.SeverityHigh
	case score >= 3:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// IsCritical reports whether a severity requires flagging for compliance
// reports.
func IsCritical(severity model.Severity) bool {
	return severity == model.SeverityCritical
}

// Record is a fully classified incident. Immutable after creation.
type Record struct {
	IncidentID  string         `json:"incident_id"`
	Timestamp   string         `json:"timestamp"`
	ServiceType ServiceType    `json:"service_type"`
	DataRisk    DataRisk       `json:"data_risk"`
	Severity    model.Severity `json:"severity"`
	Description string         `json:"description"`
	IsCritical  bool           `json:"is_critical"`
	Metadata    map[string]any `json:"metadata"`
}

// NewRecord classifies and assembles a complete incident record.
func NewRecord(service ServiceType, risk DataRisk, description string, metadata map[string]any) Record {
	if metadata == nil {
		metadata = map[string]any{}
	}
	severity := Classify(service, risk)
	return Record{
		IncidentID:  newIncidentID(),
		Timestamp:   model.UTCNowISO(),
		ServiceType: service,
		DataRisk:    risk,
		Severity:    severity,
		Description: description,
		IsCritical:  IsCritical(severity),
		Metadata:    metadata,
	}
}

func newIncidentID() string {
	return "INC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
