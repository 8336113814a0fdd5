package consent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Status is the answer to a consent check. Only StatusGranted is a pass;
// callers gating an action must block on every other value.
type Status string

const (
	StatusGranted     Status = "granted"
	StatusDenied      Status = "denied"
	StatusExpired     Status = "expired"
	StatusNotProvided Status = "not_provided"
)

// Record captures one subject's decision for one purpose.
type Record struct {
	SubjectID string     `json:"subject_id"`
	Purpose   string     `json:"purpose"`
	Status    Status     `json:"status"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Registry tracks per-(subject, purpose) consent grants backed by a single
// JSON document. Expiry is evaluated lazily at check time; records are never
// deleted in the background.
type Registry struct {
	path    string
	mu      sync.Mutex
	records map[string]Record

	now func() time.Time // overridable in tests
}

// Open loads the consent document at path, creating an empty registry if
// none exists. A corrupt document starts empty rather than failing open.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("consent: create directory: %w", err)
	}

	r := &Registry{
		path:    path,
		records: make(map[string]Record),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("consent: read store: %w", err)
	}

	if err := json.Unmarshal(data, &r.records); err != nil {
		r.records = make(map[string]Record)
	}
	return r, nil
}

func key(subjectID, purpose string) string {
	return subjectID + ":" + purpose
}

// Grant records consent for the given subject and purpose, overwriting any
// prior record for the same key. expiresDays <= 0 means the grant never
// expires.
func (r *Registry) Grant(subjectID, purpose string, expiresDays int) error {
	if subjectID == "" || purpose == "" {
		return fmt.Errorf("consent: subject and purpose must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	rec := Record{
		SubjectID: subjectID,
		Purpose:   purpose,
		Status:    StatusGranted,
		GrantedAt: now,
	}
	if expiresDays > 0 {
		exp := now.Add(time.Duration(expiresDays) * 24 * time.Hour)
		rec.ExpiresAt = &exp
	}

	r.records[key(subjectID, purpose)] = rec
	return r.persist()
}

// Check returns the consent status for the subject and purpose.
// NOT_PROVIDED when no record exists; EXPIRED when the stored expiry is in
// the past (the record itself is not mutated); otherwise the stored status.
func (r *Registry) Check(subjectID, purpose string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key(subjectID, purpose)]
	if !ok {
		return StatusNotProvided
	}
	if rec.ExpiresAt != nil && r.now().UTC().After(*rec.ExpiresAt) {
		return StatusExpired
	}
	switch rec.Status {
	case StatusGranted, StatusDenied:
		return rec.Status
	}
	return StatusNotProvided
}

// HasConsent reports whether the subject currently passes the gating rule.
func (r *Registry) HasConsent(subjectID, purpose string) bool {
	return r.Check(subjectID, purpose) == StatusGranted
}

// Revoke sets the record's status to DENIED and stamps the revocation time.
// Returns false when no record exists for the key.
func (r *Registry) Revoke(subjectID, purpose string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(subjectID, purpose)
	rec, ok := r.records[k]
	if !ok {
		return false, nil
	}

	now := r.now().UTC()
	rec.Status = StatusDenied
	rec.RevokedAt = &now
	r.records[k] = rec
	if err := r.persist(); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the stored record for the key, if any.
func (r *Registry) Get(subjectID, purpose string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key(subjectID, purpose)]
	return rec, ok
}

// Forget removes every record belonging to the subject and returns how many
// were removed. Used for data-deletion requests; the caller is responsible
// for audit-logging the erasure.
func (r *Registry) Forget(subjectID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for k, rec := range r.records {
		if rec.SubjectID == subjectID {
			delete(r.records, k)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := r.persist(); err != nil {
		return 0, err
	}
	return removed, nil
}

// persist writes the whole consent document atomically. Callers hold mu.
func (r *Registry) persist() error {
	data, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return fmt.Errorf("consent: marshal store: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("consent: write store: %w", err)
	}
	return os.Rename(tmp, r.path)
}
