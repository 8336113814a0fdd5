package retention

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Policy declares how long a category of data may be kept.
type Policy string

const (
	PolicyImmediate  Policy = "immediate"   // delete right away
	PolicyShortTerm  Policy = "short_term"  // 30 days by default
	PolicyMediumTerm Policy = "medium_term" // 90 days by default
	PolicyLongTerm   Policy = "long_term"   // 365 days by default
	PolicyIndefinite Policy = "indefinite"  // never, justification required
)

// Spans holds the configured day count per finite policy.
type Spans struct {
	ShortDays  int
	MediumDays int
	LongDays   int
}

// DefaultSpans returns the built-in spans with environment overrides
// (RETENTION_SHORT_DAYS, RETENTION_MEDIUM_DAYS, RETENTION_LONG_DAYS).
func DefaultSpans() Spans {
	return Spans{
		ShortDays:  envDays("RETENTION_SHORT_DAYS", 30),
		MediumDays: envDays("RETENTION_MEDIUM_DAYS", 90),
		LongDays:   envDays("RETENTION_LONG_DAYS", 365),
	}
}

func envDays(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s Spans) days(p Policy) (int, bool) {
	switch p {
	case PolicyImmediate:
		return 0, true
	case PolicyShortTerm:
		return s.ShortDays, true
	case PolicyMediumTerm:
		return s.MediumDays, true
	case PolicyLongTerm:
		return s.LongDays, true
	}
	return 0, false
}

// Metadata tags a retained artifact with its retention rule. Construct it
// through New so an INDEFINITE policy can never exist without justification.
type Metadata struct {
	Policy        Policy     `json:"policy"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DataType      string     `json:"data_type"`
	SubjectID     string     `json:"subject_id,omitempty"`
	Justification string     `json:"justification,omitempty"`
}

// New builds retention metadata for an artifact. INDEFINITE without a
// justification is a configuration error, rejected before anything is
// persisted.
func New(policy Policy, dataType, subjectID, justification string, spans Spans) (Metadata, error) {
	if policy == PolicyIndefinite {
		if justification == "" {
			return Metadata{}, fmt.Errorf("retention: justification required for indefinite policy")
		}
		return Metadata{
			Policy:        policy,
			CreatedAt:     time.Now().UTC(),
			DataType:      dataType,
			SubjectID:     subjectID,
			Justification: justification,
		}, nil
	}

	days, ok := spans.days(policy)
	if !ok {
		return Metadata{}, fmt.Errorf("retention: unknown policy %q", policy)
	}

	created := time.Now().UTC()
	expires := created.Add(time.Duration(days) * 24 * time.Hour)
	return Metadata{
		Policy:        policy,
		CreatedAt:     created,
		ExpiresAt:     &expires,
		DataType:      dataType,
		SubjectID:     subjectID,
		Justification: justification,
	}, nil
}

// Expired reports whether the retention period has lapsed at the given
// instant. INDEFINITE data never expires; IMMEDIATE data always has.
func (m Metadata) Expired(now time.Time) bool {
	switch m.Policy {
	case PolicyIndefinite:
		return false
	case PolicyImmediate:
		return true
	}
	if m.ExpiresAt == nil {
		return false
	}
	return now.After(*m.ExpiresAt)
}

// ShouldDelete reports whether the reaper may remove the artifact.
func (m Metadata) ShouldDelete(now time.Time) bool {
	return m.Policy != PolicyIndefinite && m.Expired(now)
}

// ExpiredSubset filters the given metadata to entries whose retention has
// lapsed. Used by the external reaper to pick deletion candidates.
func ExpiredSubset(items []Metadata, now time.Time) []Metadata {
	var out []Metadata
	for _, m := range items {
		if m.Expired(now) {
			out = append(out, m)
		}
	}
	return out
}
