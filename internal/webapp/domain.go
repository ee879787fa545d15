package webapp

import (
	"fmt"
	"strings"
)

// Domain is the DNS name the application is served under.
type Domain struct {
	Apex      string
	Subdomain string
}

// FQDN returns subdomain.apex.
func (d Domain) FQDN() string {
	return d.Subdomain + "." + d.Apex
}

// Validate checks that both parts are well-formed DNS names.
func (d Domain) Validate() error {
	if err := validateName(d.Apex); err != nil {
		return fmt.Errorf("apex domain %q: %w", d.Apex, err)
	}
	if !strings.Contains(d.Apex, ".") {
		return fmt.Errorf("apex domain %q: must contain at least two labels", d.Apex)
	}
	if err := validateName(d.Subdomain); err != nil {
		return fmt.Errorf("subdomain %q: %w", d.Subdomain, err)
	}
	if len(d.FQDN()) > 253 {
		return fmt.Errorf("domain %q: longer than 253 characters", d.FQDN())
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("leading or trailing dot")
	}
	for _, label := range strings.Split(name, ".") {
		if err := validateLabel(label); err != nil {
			return err
		}
	}
	return nil
}

func validateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("empty label")
	}
	if len(label) > 63 {
		return fmt.Errorf("label %q longer than 63 characters", label)
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fmt.Errorf("label %q starts or ends with a hyphen", label)
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return fmt.Errorf("label %q contains %q", label, r)
		}
	}
	return nil
}
