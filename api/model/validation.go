package model

import (
	"fmt"
	"net/url"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type ValidationFinding struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
}

type ValidationResult struct {
	Errors   int                 `json:"errors"`
	Warnings int                 `json:"warnings"`
	Findings []ValidationFinding `json:"findings"`
}

func (r *ValidationResult) add(f ValidationFinding) {
	r.Findings = append(r.Findings, f)
	switch f.Severity {
	case SeverityError:
		r.Errors++
	case SeverityWarning:
		r.Warnings++
	}
}

func (r *ValidationResult) fail(field, msg string) {
	r.add(ValidationFinding{Severity: SeverityError, Field: field, Message: msg})
}

func (r *ValidationResult) Valid() bool {
	return r.Errors == 0
}

// Messages returns the error messages only, for API error payloads.
func (r *ValidationResult) Messages() []string {
	var out []string
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			out = append(out, f.Message)
		}
	}
	return out
}

var validMonitorTypes = map[string]bool{"http": true, "https": true, "api": true}

// ValidateURL accepts absolute http/https URLs with a host.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Validate checks a monitor for creation. Bounds: interval 10s..24h,
// timeout 1s..5m, threshold 1..99.
func (m *Monitor) Validate() *ValidationResult {
	r := &ValidationResult{}

	if strings.TrimSpace(m.Name) == "" {
		r.fail("name", "Name is required")
	} else if len(m.Name) > 255 {
		r.fail("name", "Name must be less than 255 characters")
	}

	if m.URL == "" {
		r.fail("url", "URL is required")
	} else if !ValidateURL(m.URL) {
		r.fail("url", "Invalid URL format")
	} else if len(m.URL) > 512 {
		r.fail("url", "URL must be less than 512 characters")
	}

	validateInterval(r, m.CheckInterval)
	validateTimeout(r, m.TimeoutSeconds)
	validateThreshold(r, m.AlertThreshold)

	if m.Type != "" && !validMonitorTypes[m.Type] {
		r.fail("monitorType", fmt.Sprintf("Monitor type must be one of: http, https, api (got %q)", m.Type))
	}

	return r
}

// Validate checks the touched fields of a partial update.
func (u *MonitorUpdate) Validate() *ValidationResult {
	r := &ValidationResult{}

	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			r.fail("name", "Name is required")
		} else if len(*u.Name) > 255 {
			r.fail("name", "Name must be less than 255 characters")
		}
	}

	if u.URL != nil {
		if *u.URL == "" {
			r.fail("url", "URL is required")
		} else if !ValidateURL(*u.URL) {
			r.fail("url", "Invalid URL format")
		} else if len(*u.URL) > 512 {
			r.fail("url", "URL must be less than 512 characters")
		}
	}

	if u.CheckInterval != nil {
		validateInterval(r, *u.CheckInterval)
	}
	if u.TimeoutSeconds != nil {
		validateTimeout(r, *u.TimeoutSeconds)
	}
	if u.AlertThreshold != nil {
		validateThreshold(r, *u.AlertThreshold)
	}
	if u.Type != nil && !validMonitorTypes[*u.Type] {
		r.fail("monitorType", fmt.Sprintf("Monitor type must be one of: http, https, api (got %q)", *u.Type))
	}

	return r
}

func validateInterval(r *ValidationResult, v int) {
	if v < 10 {
		r.fail("checkInterval", "Check interval must be at least 10 seconds")
	} else if v > 86400 {
		r.fail("checkInterval", "Check interval must be less than 24 hours")
	}
}

func validateTimeout(r *ValidationResult, v int) {
	if v < 1 {
		r.fail("timeout", "Timeout must be at least 1 second")
	} else if v > 300 {
		r.fail("timeout", "Timeout must be less than 5 minutes")
	}
}

func validateThreshold(r *ValidationResult, v int) {
	if v < 1 {
		r.fail("alertThreshold", "Alert threshold must be at least 1")
	} else if v > 99 {
		r.fail("alertThreshold", "Alert threshold must be less than 100")
	}
}

// SanitizeString trims whitespace and truncates to maxLen (0 = no cap).
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
