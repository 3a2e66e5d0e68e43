package models

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// CredentialType names a template in the catalog.
type CredentialType string

const (
	CredentialTypeKYC       CredentialType = "KYC"
	CredentialTypeStudentID CredentialType = "StudentID"
	CredentialTypeLicense   CredentialType = "License"
	CredentialTypeAge       CredentialType = "Age"
	CredentialTypeIncome    CredentialType = "Income"
)

// Template describes a credential type and how long its credentials live.
type Template struct {
	Type            CredentialType
	Description     string
	Category        string
	DefaultDuration time.Duration
}

// catalog is closed and ordered; SupportedTypes follows this order.
var catalog = []Template{
	{Type: CredentialTypeKYC, Description: "Know Your Customer verification", Category: "Identity", DefaultDuration: 365 * day},
	{Type: CredentialTypeStudentID, Description: "Student identification credential", Category: "Education", DefaultDuration: 4 * 365 * day},
	{Type: CredentialTypeLicense, Description: "Professional license or certification", Category: "Professional", DefaultDuration: 2 * 365 * day},
	{Type: CredentialTypeAge, Description: "Age verification credential", Category: "Identity", DefaultDuration: 365 * day},
	{Type: CredentialTypeIncome, Description: "Income verification credential", Category: "Financial", DefaultDuration: 90 * day},
}

// Lookup returns the template for t. Matching is exact.
func Lookup(t CredentialType) (Template, bool) {
	for _, tpl := range catalog {
		if tpl.Type == t {
			return tpl, true
		}
	}
	return Template{}, false
}

// Templates returns the catalog in declaration order.
func Templates() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// SupportedTypes returns the catalog types in declaration order.
func SupportedTypes() []CredentialType {
	out := make([]CredentialType, 0, len(catalog))
	for _, tpl := range catalog {
		out = append(out, tpl.Type)
	}
	return out
}

func SupportedTypeNames() []string {
	out := make([]string, 0, len(catalog))
	for _, tpl := range catalog {
		out = append(out, string(tpl.Type))
	}
	return out
}

// ValidateCatalog fails when a template is incomplete, has a non-positive
// duration, or repeats a type. main refuses to start on error.
func ValidateCatalog() error {
	return validateTemplates(catalog)
}

func validateTemplates(templates []Template) error {
	seen := make(map[CredentialType]struct{}, len(templates))
	for _, tpl := range templates {
		if tpl.Type == "" {
			return fmt.Errorf("template with empty type")
		}
		if _, dup := seen[tpl.Type]; dup {
			return fmt.Errorf("template %s: duplicate type", tpl.Type)
		}
		seen[tpl.Type] = struct{}{}
		if tpl.DefaultDuration <= 0 {
			return fmt.Errorf("template %s: duration must be positive", tpl.Type)
		}
		if tpl.Description == "" || tpl.Category == "" {
			return fmt.Errorf("template %s: description and category are required", tpl.Type)
		}
	}
	return nil
}
