package sanitize

import (
	"regexp"
	"strconv"
	"strings"
)

// Category labels the kind of sensitive data a detector matched.
type Category string

const (
	CategoryEmail      Category = "email"
	CategoryPhone      Category = "phone"
	CategoryAPIKey     Category = "api_key"
	CategoryCreditCard Category = "credit_card"
	CategorySSN        Category = "ssn"
	CategoryIPAddress  Category = "ip_address"
)

// Finding is a single detected span. Findings are transient: only
// (category, count) aggregates may be logged, never the matched text.
type Finding struct {
	Category Category
	Match    string
}

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// Phone numbers in several formats, from strict US to loose
	// international. Intentionally aggressive; over-redaction of digit
	// runs is preferred to leaking a number.
	phoneRes = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),                               // 123-456-7890
		regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.]?\d{4}\b`),                               // (123) 456-7890
		regexp.MustCompile(`\b\+?\d{1,3}[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{1,9}\b`),    // international
		regexp.MustCompile(`\b\d{10,}\b`),                                                 // bare digit run
	}

	// API-key shapes for common provider conventions plus a generic long
	// alphanumeric token.
	apiKeyRes = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Za-z0-9]{32,}\b`),                         // generic
		regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),                         // AWS access key
		regexp.MustCompile(`\bsk-[A-Za-z0-9]{32,}\b`),                      // OpenAI / Stripe secret
		regexp.MustCompile(`\bpk_[A-Za-z0-9]{32,}\b`),                      // Stripe publishable
		regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`),                      // GitHub PAT
		regexp.MustCompile(`\bxox[baprs]-[0-9]{11}-[0-9]{11}-[A-Za-z0-9]{24}\b`), // Slack
	}

	creditCardRe = regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)
	ssnRe        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	ipRe         = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// Scan finds all sensitive spans in text. Detector order is fixed (email,
// phone, api_key, credit_card, ssn, ip_address) so that downstream
// replacement is deterministic across categories.
func Scan(text string) []Finding {
	var findings []Finding

	for _, m := range emailRe.FindAllString(text, -1) {
		findings = append(findings, Finding{CategoryEmail, m})
	}
	for _, re := range phoneRes {
		for _, m := range re.FindAllString(text, -1) {
			findings = append(findings, Finding{CategoryPhone, m})
		}
	}
	for _, re := range apiKeyRes {
		for _, m := range re.FindAllString(text, -1) {
			findings = append(findings, Finding{CategoryAPIKey, m})
		}
	}
	for _, m := range creditCardRe.FindAllString(text, -1) {
		findings = append(findings, Finding{CategoryCreditCard, m})
	}
	for _, m := range ssnRe.FindAllString(text, -1) {
		findings = append(findings, Finding{CategorySSN, m})
	}
	for _, m := range ipRe.FindAllString(text, -1) {
		// Public IPs are deliberately not redacted to avoid eating
		// version strings and the like; only private ranges count.
		if isPrivateIP(m) {
			findings = append(findings, Finding{CategoryIPAddress, m})
		}
	}

	return findings
}

// isPrivateIP reports whether a dotted quad sits in 10/8, 192.168/16, or
// 172.16/12.
func isPrivateIP(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	switch parts[0] {
	case "10":
		return true
	case "192":
		return parts[1] == "168"
	case "172":
		second, err := strconv.Atoi(parts[1])
		return err == nil && second >= 16 && second <= 31
	}
	return false
}
