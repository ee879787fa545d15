// Package validation checks a declared stack before it is deployed.
//
// Two layers run:
//   - CheckStack: structural properties of the web application stack
//     (domain formula, image gating, certificate binding, teardown policy)
//   - cfn-lint-go: CloudFormation validation of the synthesized template
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
	"github.com/lex00/wetwire-webapp-go/internal/template"
)

// Layout names the pieces of a web application stack that CheckStack inspects.
type Layout struct {
	Apex      string
	Subdomain string

	Certificate     string
	Repository      string
	ImageDeployment string
	Function        string
	DomainName      string
	AliasRecord     string
	ServiceRecord   string

	// ServiceRecordValue is the expected HTTPS record data.
	ServiceRecordValue string
}

// FQDN is the fully qualified domain name the layout serves.
func (l Layout) FQDN() string {
	return l.Subdomain + "." + l.Apex
}

// CheckStack verifies the structural properties of s and returns one message
// per violation.
func CheckStack(s *stack.Stack, l Layout) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	props := func(id string) map[string]any {
		p, err := s.Properties(id)
		if err != nil {
			fail("%s: not declared", id)
			return nil
		}
		return p
	}

	fqdn := l.FQDN()

	if cert := props(l.Certificate); cert != nil {
		if cert["DomainName"] != fqdn {
			fail("%s: DomainName %v does not equal %s", l.Certificate, cert["DomainName"], fqdn)
		}
		if cert["ValidationMethod"] != "DNS" {
			fail("%s: ValidationMethod must be DNS", l.Certificate)
		}
	}

	if _, ok := s.Step(l.ImageDeployment); !ok {
		fail("%s: image deployment step not declared", l.ImageDeployment)
	}
	if discovered, err := s.Discovered(); err != nil {
		fail("resolving dependencies: %v", err)
	} else if fn, ok := discovered[l.Function]; !ok {
		fail("%s: not declared", l.Function)
	} else if !slices.Contains(fn.Dependencies, l.ImageDeployment) {
		fail("%s: does not depend on %s", l.Function, l.ImageDeployment)
	}

	if dn := props(l.DomainName); dn != nil {
		if dn["DomainName"] != fqdn {
			fail("%s: DomainName %v does not equal the certificate domain %s", l.DomainName, dn["DomainName"], fqdn)
		}
		certRef := map[string]any{"Ref": l.Certificate}
		if !equalJSON(dn["RegionalCertificateArn"], certRef) && !equalJSON(dn["CertificateArn"], certRef) {
			fail("%s: not bound to certificate %s", l.DomainName, l.Certificate)
		}
	}

	if repo := props(l.Repository); repo != nil {
		if repo["EmptyOnDelete"] != true {
			fail("%s: EmptyOnDelete must be true", l.Repository)
		}
		attrs := s.Attributes(l.Repository)
		if attrs.DeletionPolicy != stack.PolicyDelete || attrs.UpdateReplacePolicy != stack.PolicyDelete {
			fail("%s: DeletionPolicy and UpdateReplacePolicy must be Delete", l.Repository)
		}
	}

	if rec := props(l.AliasRecord); rec != nil {
		if rec["Type"] != "A" || rec["AliasTarget"] == nil {
			fail("%s: must be an A alias record", l.AliasRecord)
		}
		if !sameName(rec["Name"], fqdn) {
			fail("%s: Name %v does not equal %s", l.AliasRecord, rec["Name"], fqdn)
		}
	}

	if rec := props(l.ServiceRecord); rec != nil {
		if rec["Type"] != "HTTPS" {
			fail("%s: Type must be HTTPS", l.ServiceRecord)
		}
		if !sameName(rec["Name"], fqdn) {
			fail("%s: Name %v does not equal %s", l.ServiceRecord, rec["Name"], fqdn)
		}
		values, _ := rec["ResourceRecords"].([]any)
		if !slices.Contains(values, any(l.ServiceRecordValue)) {
			fail("%s: ResourceRecords %v missing %q", l.ServiceRecord, values, l.ServiceRecordValue)
		}
	}

	return errs
}

func sameName(v any, fqdn string) bool {
	name, ok := v.(string)
	return ok && strings.TrimSuffix(name, ".") == fqdn
}

func equalJSON(a, b any) bool {
	am, ok := a.(map[string]any)
	if !ok {
		return false
	}
	bm := b.(map[string]any)
	if len(am) != len(bm) {
		return false
	}
	for k, v := range bm {
		if am[k] != v {
			return false
		}
	}
	return true
}

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	if len(matches) == 0 {
		result.Passed = true
		return result, nil
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable
	result.Passed = len(result.Errors) == 0

	return result, nil
}

// LintTemplate writes t to a scratch file and runs cfn-lint-go on it.
func LintTemplate(t *wetwire.Template) (*CfnLintResult, error) {
	data, err := template.ToYAML(t)
	if err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}
	dir, err := os.MkdirTemp("", "webapp-lint-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}
	return RunCfnLint(path)
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
