package validation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lex00/cfn-lint-go/pkg/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-webapp-go/internal/stack"
	"github.com/lex00/wetwire-webapp-go/internal/template"
	"github.com/lex00/wetwire-webapp-go/intrinsics"
	"github.com/lex00/wetwire-webapp-go/resources/apigateway"
	"github.com/lex00/wetwire-webapp-go/resources/certificatemanager"
	"github.com/lex00/wetwire-webapp-go/resources/ecr"
	"github.com/lex00/wetwire-webapp-go/resources/iam"
	"github.com/lex00/wetwire-webapp-go/resources/lambda"
	"github.com/lex00/wetwire-webapp-go/resources/route53"
)

func TestCfnLintResult_TotalIssues(t *testing.T) {
	tests := []struct {
		name     string
		result   CfnLintResult
		expected int
	}{
		{
			name:     "empty result",
			result:   CfnLintResult{},
			expected: 0,
		},
		{
			name: "errors only",
			result: CfnLintResult{
				Errors: []string{"error1", "error2"},
			},
			expected: 2,
		},
		{
			name: "warnings only",
			result: CfnLintResult{
				Warnings: []string{"warning1"},
			},
			expected: 1,
		},
		{
			name: "mixed issues",
			result: CfnLintResult{
				Errors:        []string{"error1"},
				Warnings:      []string{"warning1", "warning2"},
				Informational: []string{"info1"},
			},
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.TotalIssues())
		})
	}
}

func TestFormatMatch(t *testing.T) {
	tests := []struct {
		name     string
		match    lint.Match
		expected string
	}{
		{
			name: "simple match",
			match: lint.Match{
				Rule:    lint.MatchRule{ID: "E1234"},
				Message: "Something is wrong",
			},
			expected: "E1234: Something is wrong",
		},
		{
			name: "match with path",
			match: lint.Match{
				Rule:    lint.MatchRule{ID: "W5678"},
				Message: "Warning message",
				Location: lint.MatchLocation{
					Path: []any{"Resources", "MyBucket", "Properties"},
				},
			},
			expected: "W5678: Warning message (at Resources/MyBucket/Properties)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatMatch(tt.match)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRunCfnLint_FileNotFound(t *testing.T) {
	result, err := RunCfnLint("/nonexistent/template.yaml")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Template file not found")
}

func TestRunCfnLint_ValidTemplate(t *testing.T) {
	tempDir := t.TempDir()
	templatePath := filepath.Join(tempDir, "template.yaml")

	validTemplate := `AWSTemplateFormatVersion: '2010-09-09'
Description: Test template
Resources:
  Repository:
    Type: AWS::ECR::Repository
    DeletionPolicy: Delete
    UpdateReplacePolicy: Delete
    Properties:
      ImageTagMutability: MUTABLE
      EmptyOnDelete: true
`
	err := os.WriteFile(templatePath, []byte(validTemplate), 0644)
	require.NoError(t, err)

	result, err := RunCfnLint(templatePath)
	require.NoError(t, err)
	// Result should parse successfully (whether or not there are warnings)
	assert.NotNil(t, result)
}

func TestLintTemplate(t *testing.T) {
	s := stack.New("Lint", "")
	require.NoError(t, s.Add("Repository", ecr.Repository{
		ImageTagMutability: ecr.TagMutable,
		EmptyOnDelete:      true,
	}, stack.WithDeletionPolicy(stack.PolicyDelete)))

	tmpl, err := template.FromStack(s, nil)
	require.NoError(t, err)

	result, err := LintTemplate(tmpl)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

type imageStep struct{}

func (imageStep) Name() string                                 { return "Image" }
func (imageStep) Kind() string                                 { return "DockerImageDeployment" }
func (imageStep) Requires() []string                           { return []string{"Repo"} }
func (imageStep) Run(context.Context, map[string]string) error { return nil }

var testLayout = Layout{
	Apex:               "example.com",
	Subdomain:          "www",
	Certificate:        "Cert",
	Repository:         "Repo",
	ImageDeployment:    "Image",
	Function:           "Fn",
	DomainName:         "Domain",
	AliasRecord:        "Alias",
	ServiceRecord:      "Https",
	ServiceRecordValue: "1 . alpn=h2",
}

type mutations struct {
	certDomain    string
	skipDependsOn bool
	domainCertArn any
	emptyOnDelete bool
	retainRepo    bool
	httpsValue    string
}

func buildStack(t *testing.T, m mutations) *stack.Stack {
	t.Helper()
	s := stack.New("Test", "")

	certDomain := "www.example.com"
	if m.certDomain != "" {
		certDomain = m.certDomain
	}
	require.NoError(t, s.Add("Cert", certificatemanager.Certificate{
		DomainName:       certDomain,
		ValidationMethod: certificatemanager.ValidationDNS,
	}))

	policy := stack.PolicyDelete
	if m.retainRepo {
		policy = stack.PolicyRetain
	}
	require.NoError(t, s.Add("Repo", ecr.Repository{
		ImageTagMutability: ecr.TagMutable,
		EmptyOnDelete:      !m.emptyOnDelete,
	}, stack.WithDeletionPolicy(policy)))
	require.NoError(t, s.AddStep(imageStep{}))

	require.NoError(t, s.Add("Role", iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(),
	}))
	var fnOpts []stack.Option
	if !m.skipDependsOn {
		fnOpts = append(fnOpts, stack.DependsOn("Image"))
	}
	require.NoError(t, s.Add("Fn", lambda.Function{
		PackageType: lambda.PackageTypeImage,
		Code:        lambda.Function_Code{ImageUri: intrinsics.ImageURI("Repo", "v1")},
		Role:        intrinsics.AttOf("Role", "Arn"),
	}, fnOpts...))

	var certArn any = intrinsics.RefTo("Cert")
	if m.domainCertArn != nil {
		certArn = m.domainCertArn
	}
	require.NoError(t, s.Add("Domain", apigateway.DomainName{
		DomainName:             "www.example.com",
		RegionalCertificateArn: certArn,
	}))

	require.NoError(t, s.Add("Alias", route53.RecordSet{
		Name:  "www.example.com.",
		Type_: route53.TypeA,
		AliasTarget: &route53.RecordSet_AliasTarget{
			DNSName:      intrinsics.AttOf("Domain", "RegionalDomainName"),
			HostedZoneId: intrinsics.AttOf("Domain", "RegionalHostedZoneId"),
		},
	}))

	value := "1 . alpn=h2"
	if m.httpsValue != "" {
		value = m.httpsValue
	}
	require.NoError(t, s.Add("Https", route53.RecordSet{
		Name:            "www.example.com",
		Type_:           route53.TypeHTTPS,
		TTL:             "1800",
		ResourceRecords: []string{value},
	}))
	return s
}

func TestCheckStack(t *testing.T) {
	tests := []struct {
		name     string
		m        mutations
		contains string
	}{
		{name: "valid"},
		{name: "certificate domain", m: mutations{certDomain: "api.example.com"}, contains: "Cert: DomainName"},
		{name: "function not gated", m: mutations{skipDependsOn: true}, contains: "does not depend on Image"},
		{name: "domain not bound", m: mutations{domainCertArn: "arn:aws:acm:us-east-1:123456789012:certificate/x"}, contains: "not bound to certificate"},
		{name: "repository kept on delete", m: mutations{emptyOnDelete: true}, contains: "EmptyOnDelete"},
		{name: "repository retained", m: mutations{retainRepo: true}, contains: "DeletionPolicy"},
		{name: "https record value", m: mutations{httpsValue: "1 . alpn=h3"}, contains: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := CheckStack(buildStack(t, tt.m), testLayout)
			if tt.contains == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1, "%v", errs)
			assert.Contains(t, errs[0], tt.contains)
		})
	}
}

func TestCheckStack_MissingDeclarations(t *testing.T) {
	errs := CheckStack(stack.New("Empty", ""), testLayout)
	assert.Contains(t, errs, "Cert: not declared")
	assert.Contains(t, errs, "Image: image deployment step not declared")
	assert.Contains(t, errs, "Fn: not declared")
	assert.Contains(t, errs, "Https: not declared")
}

func TestLayout_FQDN(t *testing.T) {
	assert.Equal(t, "www.example.com", testLayout.FQDN())
}
