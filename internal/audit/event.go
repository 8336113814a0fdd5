package audit

import (
	"github.com/promptgate/promptgate/internal/hashchain"
	"github.com/promptgate/promptgate/internal/model"
)

// Event is a typed audit payload before chaining. Message and Metadata must
// never contain raw user content, unsanitized prompts, or PII; callers log
// sanitization summaries and counts, not the material itself.
type Event struct {
	Type      model.EventType
	Severity  model.Severity
	Message   string
	Metadata  map[string]any
	SubjectID string
}

// payload flattens the event into a chain payload. SubjectID is included
// only when set, matching the persisted document shape.
func (e Event) payload() hashchain.Entry {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	p := hashchain.Entry{
		"event_type": string(e.Type),
		"severity":   string(e.Severity),
		"message":    e.Message,
		"metadata":   metadata,
	}
	if e.SubjectID != "" {
		p["subject_id"] = e.SubjectID
	}
	return p
}

// Filter selects events for retrieval. Zero values mean "no constraint".
// Filters apply before Limit truncates.
type Filter struct {
	Type     model.EventType
	Severity model.Severity
	Limit    int
}

func (f Filter) matches(entry hashchain.Entry) bool {
	if f.Type != "" {
		if et, _ := entry["event_type"].(string); et != string(f.Type) {
			return false
		}
	}
	if f.Severity != "" {
		if sev, _ := entry["severity"].(string); sev != string(f.Severity) {
			return false
		}
	}
	return true
}
