package policy

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy names. Checks against any other name pass (fail-open).
const (
	PolicyDataRetention = "data_retention"
	PolicyPrivacy       = "privacy"
	PolicyAccessControl = "access_control"
	PolicySecurity      = "security"
)

// RetentionPolicy controls how long data may be kept.
type RetentionPolicy struct {
	Enabled     bool `yaml:"enabled"`
	DefaultDays int  `yaml:"default_days"`
}

// PrivacyPolicy gates AI requests on consent and prompt sanitization.
type PrivacyPolicy struct {
	Enabled         bool `yaml:"enabled"`
	RequireConsent  bool `yaml:"require_consent"`
	SanitizePrompts bool `yaml:"sanitize_prompts"`
}

// AccessControlPolicy gates requests on authentication.
type AccessControlPolicy struct {
	Enabled               bool `yaml:"enabled"`
	RequireAuthentication bool `yaml:"require_authentication"`
}

// SecurityPolicy controls blanket audit behavior.
type SecurityPolicy struct {
	Enabled          bool `yaml:"enabled"`
	AuditAllRequests bool `yaml:"audit_all_requests"`
}

// ScoringWeights are the privacy-score deduction weights. The weighting is a
// business decision, so it lives in configuration rather than in code.
type ScoringWeights struct {
	Sanitization float64 `yaml:"sanitization"`
	Consent      float64 `yaml:"consent"`
}

// Config holds every configurable policy. Built once at process start;
// mutable afterwards only through Engine.Update.
type Config struct {
	DataRetention RetentionPolicy     `yaml:"data_retention"`
	Privacy       PrivacyPolicy       `yaml:"privacy"`
	AccessControl AccessControlPolicy `yaml:"access_control"`
	Security      SecurityPolicy      `yaml:"security"`
	Scoring       ScoringWeights      `yaml:"scoring"`
}

// DefaultConfig returns the built-in policy configuration.
func DefaultConfig() *Config {
	return &Config{
		DataRetention: RetentionPolicy{Enabled: true, DefaultDays: 365},
		Privacy:       PrivacyPolicy{Enabled: true, RequireConsent: true, SanitizePrompts: true},
		AccessControl: AccessControlPolicy{Enabled: true, RequireAuthentication: false},
		Security:      SecurityPolicy{Enabled: true, AuditAllRequests: true},
		Scoring:       ScoringWeights{Sanitization: 0.5, Consent: 0.3},
	}
}

// LoadConfig builds the effective configuration: defaults, overlaid by the
// YAML file at path (missing file is fine), overlaid by environment
// variables. Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults + env only
		case err != nil:
			return nil, fmt.Errorf("policy: read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("policy: parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides config fields from environment variables.
func (c *Config) applyEnv() {
	if v, ok := envBool("COMPLIANCE_REQUIRE_CONSENT"); ok {
		c.Privacy.RequireConsent = v
	}
	if v, ok := envBool("COMPLIANCE_SANITIZE_PROMPTS"); ok {
		c.Privacy.SanitizePrompts = v
	}
	if v, ok := envBool("COMPLIANCE_REQUIRE_AUTH"); ok {
		c.AccessControl.RequireAuthentication = v
	}
	if v, ok := envBool("COMPLIANCE_AUDIT_ALL"); ok {
		c.Security.AuditAllRequests = v
	}
	if v, ok := envBool("COMPLIANCE_RETENTION_ENABLED"); ok {
		c.DataRetention.Enabled = v
	}
	if v, ok := envInt("COMPLIANCE_RETENTION_DAYS"); ok {
		c.DataRetention.DefaultDays = v
	}
}

func envBool(name string) (bool, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return false, false
	}
	return strings.EqualFold(raw, "true"), true
}

func envInt(name string) (int, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DefaultConfigYAML returns a commented starter config for init.
func DefaultConfigYAML() string {
	return `# promptgate policy configuration
#
# Every policy is additive: unknown or disabled policies never block
# a request (fail-open). Environment variables override file values:
#   COMPLIANCE_REQUIRE_CONSENT, COMPLIANCE_SANITIZE_PROMPTS,
#   COMPLIANCE_REQUIRE_AUTH, COMPLIANCE_AUDIT_ALL,
#   COMPLIANCE_RETENTION_ENABLED, COMPLIANCE_RETENTION_DAYS

data_retention:
  enabled: true
  default_days: 365

privacy:
  enabled: true
  require_consent: true
  sanitize_prompts: true

access_control:
  enabled: true
  require_authentication: false

security:
  enabled: true
  audit_all_requests: true

# Privacy-score deduction weights used by compliance reports.
scoring:
  sanitization: 0.5
  consent: 0.3
`
}
