package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/promptgate/promptgate/internal/hashchain"
	"github.com/promptgate/promptgate/internal/model"
)

// document is the persisted chain layout: one self-contained JSON record.
type document struct {
	SeedHash string            `json:"seed_hash"`
	Entries  []hashchain.Entry `json:"entries"`
}

// Log is the durable audit log: a hash chain persisted as a whole document
// on every append. The mutex serializes read-append-persist so concurrent
// writers cannot both claim the same predecessor and fork the chain.
type Log struct {
	path  string
	mu    sync.Mutex
	chain *hashchain.Chain
}

// Open loads the persisted chain at path, or starts a fresh one if none
// exists. A loaded chain that fails verification is discarded rather than
// trusted: a fresh chain is started and the loss is recorded as a
// SYSTEM_EVENT on the new chain.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	l := &Log{path: path}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		l.chain = hashchain.New("")
		return l, nil
	case err != nil:
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err == nil && doc.SeedHash != "" {
		chain := hashchain.New(doc.SeedHash)
		chain.Restore(doc.Entries)
		if chain.Verify() {
			l.chain = chain
			return l, nil
		}
	}

	// Corrupted or unparseable chain: discard and start fresh. The loss
	// itself becomes the first entry of the new chain.
	l.chain = hashchain.New("")
	if _, err := l.Record(Event{
		Type:     model.EventSystem,
		Severity: model.SeverityCritical,
		Message:  "audit chain failed integrity verification and was discarded; starting fresh chain",
		Metadata: map[string]any{"discarded_file": filepath.Base(path)},
	}); err != nil {
		return nil, fmt.Errorf("audit: record chain reset: %w", err)
	}
	return l, nil
}

// Record appends an event to the chain and persists the full document
// synchronously. On a persistence failure the in-memory append is rolled
// back so the chain and the stored document never diverge, and a retry is
// consistent. Returns the new entry's hash.
func (l *Log) Record(e Event) (string, error) {
	if !e.Type.Valid() {
		return "", fmt.Errorf("audit: invalid event type %q", e.Type)
	}
	if !e.Severity.Valid() {
		return "", fmt.Errorf("audit: invalid severity %q", e.Severity)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.chain.Entries()
	hash := l.chain.Append(e.payload())

	if err := l.persist(); err != nil {
		l.chain.Restore(before)
		return "", fmt.Errorf("audit: persist chain: %w", err)
	}
	return hash, nil
}

// persist writes the whole chain document atomically (tmp + rename).
// Whole-document rewrite is O(n) per append, acceptable at audit volumes.
func (l *Log) persist() error {
	doc := document{SeedHash: l.chain.SeedHash(), Entries: l.chain.Entries()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmp, l.path)
}

// VerifyIntegrity rechecks the whole chain.
func (l *Log) VerifyIntegrity() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain.Verify()
}

// LastHash returns the chain tail hash.
func (l *Log) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain.LastHash()
}

// Events returns chain entries most-recent-first with the filter applied
// before truncation to Limit.
func (l *Log) Events(f Filter) []hashchain.Entry {
	l.mu.Lock()
	entries := l.chain.Entries()
	l.mu.Unlock()

	var out []hashchain.Entry
	for i := len(entries) - 1; i >= 0; i-- {
		if f.matches(entries[i]) {
			out = append(out, entries[i])
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// EntryByHash returns the entry with the given hash, or nil.
func (l *Log) EntryByHash(hash string) hashchain.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chain.EntryByHash(hash)
}

// Path returns the location of the persisted chain document.
func (l *Log) Path() string { return l.path }
