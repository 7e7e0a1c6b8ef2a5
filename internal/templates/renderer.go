// Package templates renders tenant-parameterized response text. Named
// placeholders filled from a per-tenant profile replace the ad hoc string
// substitution that multi-tenant phrasing used to rely on.
package templates

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// TenantProfile carries the per-tenant parameters available to response
// templates.
type TenantProfile struct {
	BusinessName string
	Services     []string
	BookingURL   string
	HoursSummary string
	ContactEmail string
}

// ServiceList renders the service slice as a comma-separated list for
// template interpolation.
func (p TenantProfile) ServiceList() string {
	return strings.Join(p.Services, ", ")
}

// Renderer compiles and executes small text templates with strict
// missing-key semantics so a typo'd placeholder fails loudly at startup
// rather than leaking "<no value>" to a customer.
type Renderer struct{}

// Render executes tmpl against data.
func (Renderer) Render(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("templates: template text required")
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("templates: parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute %s: %w", name, err)
	}
	return buf.String(), nil
}
