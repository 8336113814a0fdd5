package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/promptgate/promptgate/internal/model"
)

// Entry is one record in the chain: an event payload plus the hash fields
// stamped at append time. Entries are never edited or removed.
type Entry map[string]any

// Hash returns the entry's stored hash, or "" if absent.
func (e Entry) Hash() string {
	h, _ := e["hash"].(string)
	return h
}

// PreviousHash returns the entry's stored previous_hash, or "" if absent.
func (e Entry) PreviousHash() string {
	h, _ := e["previous_hash"].(string)
	return h
}

// Timestamp returns the entry's timestamp string, or "" if absent.
func (e Entry) Timestamp() string {
	t, _ := e["timestamp"].(string)
	return t
}

// Chain is an ordered, append-only sequence of entries where each entry's
// hash covers its own payload and the previous entry's hash. Undetected
// edits, deletions, or reorderings break verification.
//
// Chain is not safe for concurrent use; the owning audit log serializes
// access (one writer, read-modify-persist under a single lock).
type Chain struct {
	entries  []Entry
	seedHash string
	lastHash string
}

// New creates a chain. An empty seed derives a genesis hash from a fixed,
// timestamped bootstrap payload with no predecessor; a non-empty seed
// continues an existing chain.
func New(seed string) *Chain {
	if seed == "" {
		seed = genesisHash()
	}
	return &Chain{seedHash: seed, lastHash: seed}
}

func genesisHash() string {
	payload := Entry{
		"timestamp": model.UTCNowISO(),
		"type":      "genesis",
		"message":   "hash chain initialized",
	}
	return computeHash(payload, "")
}

// computeHash returns the SHA-256 hex digest of the canonical encoding of
// payload bound to previousHash. encoding/json sorts map keys, so logically
// identical payloads hash identically regardless of field insertion order.
func computeHash(payload Entry, previousHash string) string {
	canonical, err := json.Marshal(payload)
	if err != nil {
		// Payloads are scalar/nested JSON values by contract; a marshal
		// failure means a programming error upstream.
		panic(fmt.Sprintf("hashchain: unencodable payload: %v", err))
	}
	var combined []byte
	if previousHash != "" {
		combined = append([]byte(previousHash+":"), canonical...)
	} else {
		combined = canonical
	}
	sum := sha256.Sum256(combined)
	return hex.EncodeToString(sum[:])
}

// normalize rewrites the entry as its own JSON decoding, so the value hashed
// at append time is byte-identical to the value reloaded from disk later.
// Without this, Go-native values with no exact float64 representation (an
// int above 2^53, say) re-encode differently after a restore and an
// untampered chain would fail verification.
func normalize(entry Entry) Entry {
	data, err := json.Marshal(entry)
	if err != nil {
		panic(fmt.Sprintf("hashchain: unencodable payload: %v", err))
	}
	var out Entry
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("hashchain: re-decode payload: %v", err))
	}
	return out
}

// Append stamps the payload with the current time if absent, binds it to the
// chain tail, stores it, and returns the new entry's hash. The input map is
// not retained; Append copies it before stamping. The stored entry holds the
// payload's JSON decoding, not the caller's values, keeping the hash stable
// across persist and reload.
func (c *Chain) Append(payload Entry) string {
	entry := make(Entry, len(payload)+3)
	for k, v := range payload {
		entry[k] = v
	}
	if _, ok := entry["timestamp"]; !ok {
		entry["timestamp"] = model.UTCNowISO()
	}
	entry = normalize(entry)

	hash := computeHash(entry, c.lastHash)
	entry["hash"] = hash
	entry["previous_hash"] = c.lastHash

	c.entries = append(c.entries, entry)
	c.lastHash = hash
	return hash
}

// Verify walks the stored sequence from the seed hash, recomputing each hash
// from its payload and the running previous hash. It returns false at the
// first mismatch and true for an empty or fully consistent chain.
func (c *Chain) Verify() bool {
	previous := c.seedHash
	for _, entry := range c.entries {
		if entry.PreviousHash() != previous {
			return false
		}

		payload := make(Entry, len(entry))
		for k, v := range entry {
			if k == "hash" || k == "previous_hash" {
				continue
			}
			payload[k] = v
		}

		if entry.Hash() != computeHash(payload, previous) {
			return false
		}
		previous = entry.Hash()
	}
	return true
}

// Restore replaces the chain contents with persisted entries and resets the
// tail to the last entry's stored hash (or the seed hash when empty), so new
// appends link to the true tail after a process restart.
func (c *Chain) Restore(entries []Entry) {
	c.entries = make([]Entry, len(entries))
	copy(c.entries, entries)

	if n := len(c.entries); n > 0 {
		if h := c.entries[n-1].Hash(); h != "" {
			c.lastHash = h
			return
		}
	}
	c.lastHash = c.seedHash
}

// Entries returns a copy of the stored sequence, oldest first.
func (c *Chain) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// EntryByHash returns the entry with the given hash, or nil if absent.
func (c *Chain) EntryByHash(hash string) Entry {
	for _, entry := range c.entries {
		if entry.Hash() == hash {
			return entry
		}
	}
	return nil
}

// Len returns the number of entries.
func (c *Chain) Len() int { return len(c.entries) }

// SeedHash returns the hash the first entry links to.
func (c *Chain) SeedHash() string { return c.seedHash }

// LastHash returns the hash of the chain tail (the seed hash when empty).
func (c *Chain) LastHash() string { return c.lastHash }
