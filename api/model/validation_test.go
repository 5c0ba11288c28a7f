package model

import (
	"strings"
	"testing"
)

func validMonitor() *Monitor {
	return &Monitor{
		Name:           "Example",
		URL:            "https://example.com/health",
		Type:           "http",
		CheckInterval:  60,
		TimeoutSeconds: 10,
		AlertThreshold: 3,
	}
}

func TestMonitorValidateOK(t *testing.T) {
	r := validMonitor().Validate()
	if !r.Valid() {
		t.Fatalf("valid monitor rejected: %v", r.Messages())
	}
}

func TestMonitorValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Monitor)
		field  string
	}{
		{"empty name", func(m *Monitor) { m.Name = "   " }, "name"},
		{"long name", func(m *Monitor) { m.Name = strings.Repeat("x", 256) }, "name"},
		{"empty url", func(m *Monitor) { m.URL = "" }, "url"},
		{"bad scheme", func(m *Monitor) { m.URL = "ftp://example.com" }, "url"},
		{"no host", func(m *Monitor) { m.URL = "https://" }, "url"},
		{"long url", func(m *Monitor) { m.URL = "https://example.com/" + strings.Repeat("x", 512) }, "url"},
		{"interval too low", func(m *Monitor) { m.CheckInterval = 9 }, "checkInterval"},
		{"interval too high", func(m *Monitor) { m.CheckInterval = 86401 }, "checkInterval"},
		{"timeout too low", func(m *Monitor) { m.TimeoutSeconds = 0 }, "timeout"},
		{"timeout too high", func(m *Monitor) { m.TimeoutSeconds = 301 }, "timeout"},
		{"threshold too low", func(m *Monitor) { m.AlertThreshold = 0 }, "alertThreshold"},
		{"threshold too high", func(m *Monitor) { m.AlertThreshold = 100 }, "alertThreshold"},
		{"bad type", func(m *Monitor) { m.Type = "tcp" }, "monitorType"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validMonitor()
			tc.mutate(m)
			r := m.Validate()
			if r.Valid() {
				t.Fatal("expected validation failure")
			}
			found := false
			for _, f := range r.Findings {
				if f.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no finding for field %q: %+v", tc.field, r.Findings)
			}
		})
	}
}

func TestMonitorValidateBoundaryValues(t *testing.T) {
	m := validMonitor()
	m.CheckInterval = 10
	m.TimeoutSeconds = 1
	m.AlertThreshold = 1
	if r := m.Validate(); !r.Valid() {
		t.Errorf("lower bounds rejected: %v", r.Messages())
	}

	m = validMonitor()
	m.CheckInterval = 86400
	m.TimeoutSeconds = 300
	m.AlertThreshold = 99
	if r := m.Validate(); !r.Valid() {
		t.Errorf("upper bounds rejected: %v", r.Messages())
	}
}

func TestMonitorUpdateValidateSkipsUntouchedFields(t *testing.T) {
	// Only set fields are checked; an empty update is valid here
	// (handlers reject it separately).
	u := &MonitorUpdate{}
	if !u.Validate().Valid() {
		t.Fatal("empty update failed validation")
	}

	bad := "ftp://example.com"
	u = &MonitorUpdate{URL: &bad}
	if u.Validate().Valid() {
		t.Fatal("bad URL accepted in update")
	}

	n := 30
	u = &MonitorUpdate{CheckInterval: &n}
	if !u.Validate().Valid() {
		t.Fatal("valid interval rejected in update")
	}
}

func TestValidateURL(t *testing.T) {
	good := []string{"http://example.com", "https://example.com:8080/path?q=1"}
	bad := []string{"", "example.com", "ftp://example.com", "https://", "://nope"}

	for _, u := range good {
		if !ValidateURL(u) {
			t.Errorf("ValidateURL(%q) = false, want true", u)
		}
	}
	for _, u := range bad {
		if ValidateURL(u) {
			t.Errorf("ValidateURL(%q) = true, want false", u)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello  ", 0); got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
	if got := SanitizeString("   ", 10); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestMonitorUpdateEmpty(t *testing.T) {
	if !(&MonitorUpdate{}).Empty() {
		t.Error("zero update should be empty")
	}
	name := "n"
	if (&MonitorUpdate{Name: &name}).Empty() {
		t.Error("update with a field should not be empty")
	}
}
