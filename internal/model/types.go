package model

// EventType identifies the kind of audit event. The set is closed: every
// entry written to the chain carries one of these values so filtering and
// reporting can handle them exhaustively.
type EventType string

const (
	EventAIRequest       EventType = "ai_request"
	EventConsentGranted  EventType = "consent_granted"
	EventConsentDenied   EventType = "consent_denied"
	EventPolicyViolation EventType = "policy_violation"
	EventDataDeletion    EventType = "data_deletion"
	EventIncident        EventType = "incident"
	EventSystem          EventType = "system_event"
)

// EventTypes lists all valid event types.
var EventTypes = []EventType{
	EventAIRequest,
	EventConsentGranted,
	EventConsentDenied,
	EventPolicyViolation,
	EventDataDeletion,
	EventIncident,
	EventSystem,
}

// Valid reports whether t is a member of the closed event type set.
func (t EventType) Valid() bool {
	for _, e := range EventTypes {
		if t == e {
			return true
		}
	}
	return false
}

// ParseEventType maps a string to an EventType. Unknown input returns
// ok=false rather than a zero value that could be mistaken for a real type.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(s)
	return t, t.Valid()
}

// Severity grades audit events and incidents.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists all valid severities from lowest to highest.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is a member of the severity set.
func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

// ParseSeverity maps a string to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	v := Severity(s)
	return v, v.Valid()
}

// Decision is the outcome of evaluating one request at the gateway boundary.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)
