package policy

import (
	"fmt"
	"sync"
	"time"
)

// Violation is a structured policy violation. It is an error so callers can
// propagate it, and structured data so they can log it verbatim into the
// audit trail.
type Violation struct {
	PolicyName    string
	ViolationType string
	Details       string
	Timestamp     time.Time
}

func (v *Violation) Error() string {
	return fmt.Sprintf("policy violation: %s - %s", v.PolicyName, v.ViolationType)
}

// Metadata returns the violation as loggable audit metadata.
func (v *Violation) Metadata() map[string]any {
	return map[string]any{
		"policy_name":    v.PolicyName,
		"violation_type": v.ViolationType,
		"details":        v.Details,
	}
}

// Context carries the request facts a policy check evaluates against.
type Context struct {
	HasConsent    bool
	Authenticated bool
}

// Engine evaluates named policies against a request context. Reads are
// lock-free after construction except where Update or Reload races them, so
// all access goes through an RWMutex; checks are read-mostly.
type Engine struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewEngine creates an engine over the given configuration. A nil config
// uses defaults.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Check evaluates the named policy. Unknown names and disabled policies
// always pass: policies are additive restrictions, not a default-deny
// system. A violated policy returns a *Violation.
func (e *Engine) Check(name string, ctx Context) error {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	switch name {
	case PolicyPrivacy:
		p := cfg.Privacy
		if !p.Enabled {
			return nil
		}
		if p.RequireConsent && !ctx.HasConsent {
			return &Violation{
				PolicyName:    name,
				ViolationType: "missing_consent",
				Details:       "consent required for this operation",
				Timestamp:     time.Now().UTC(),
			}
		}
	case PolicyAccessControl:
		p := cfg.AccessControl
		if !p.Enabled {
			return nil
		}
		if p.RequireAuthentication && !ctx.Authenticated {
			return &Violation{
				PolicyName:    name,
				ViolationType: "missing_authentication",
				Details:       "authentication required for this operation",
				Timestamp:     time.Now().UTC(),
			}
		}
	case PolicyDataRetention, PolicySecurity:
		// Configuration-only policies: nothing to violate per request.
	}
	return nil
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.cfg
}

// Update applies an explicit configuration mutation. Intended for tests and
// admin overrides; normal operation treats the config as immutable.
func (e *Engine) Update(mutate func(*Config)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := *e.cfg
	mutate(&next)
	e.cfg = &next
}

// Reload replaces the whole configuration, used by the config file watcher.
func (e *Engine) Reload(cfg *Config) {
	if cfg == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}
