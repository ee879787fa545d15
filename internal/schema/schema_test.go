package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-webapp-go"
)

func templateWith(resources map[string]wetwire.ResourceDef) *wetwire.Template {
	return &wetwire.Template{AWSTemplateFormatVersion: "2010-09-09", Resources: resources}
}

func TestValidateTemplate_Valid(t *testing.T) {
	tmpl := templateWith(map[string]wetwire.ResourceDef{
		"Repository": {
			Type: "AWS::ECR::Repository",
			Properties: map[string]any{
				"ImageTagMutability": "MUTABLE",
				"EmptyOnDelete":      true,
			},
		},
		"AliasRecord": {
			Type: "AWS::Route53::RecordSet",
			Properties: map[string]any{
				"HostedZoneId": "Z123",
				"Name":         "www.example.com.",
				"Type":         "A",
				"AliasTarget": map[string]any{
					"DNSName":      map[string]any{"Fn::GetAtt": []any{"DomainName", "RegionalDomainName"}},
					"HostedZoneId": map[string]any{"Fn::GetAtt": []any{"DomainName", "RegionalHostedZoneId"}},
				},
			},
		},
		"ServiceRole": {
			Type: "AWS::IAM::Role",
			Properties: map[string]any{
				"AssumeRolePolicyDocument": map[string]any{"Version": "2012-10-17"},
			},
		},
	})

	result := ValidateTemplate(tmpl, Options{Strict: true})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateTemplate_Findings(t *testing.T) {
	tests := []struct {
		name         string
		resource     wetwire.ResourceDef
		strict       bool
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name:       "missing required",
			resource:   wetwire.ResourceDef{Type: "AWS::Lambda::Function", Properties: map[string]any{"Role": "arn"}},
			wantErrors: []string{"Res.Code: missing required property: Code"},
		},
		{
			name: "wrong type",
			resource: wetwire.ResourceDef{Type: "AWS::Lambda::Function", Properties: map[string]any{
				"Code": map[string]any{"ImageUri": "repo:tag"}, "Role": "arn", "MemorySize": "1024",
			}},
			wantErrors: []string{"Res.MemorySize: expected type Integer"},
		},
		{
			name: "not allowed",
			resource: wetwire.ResourceDef{Type: "AWS::Route53::RecordSet", Properties: map[string]any{
				"Name": "www.example.com.", "Type": "ALIAS",
			}},
			wantErrors: []string{`Res.Type: value "ALIAS" not in allowed values: [A AAAA CAA CNAME DS HTTPS MX NAPTR NS PTR SOA SPF SRV SSHFP SVCB TLSA TXT]`},
		},
		{
			name: "intrinsic accepted",
			resource: wetwire.ResourceDef{Type: "AWS::Lambda::Permission", Properties: map[string]any{
				"Action": "lambda:InvokeFunction", "Principal": "apigateway.amazonaws.com",
				"FunctionName": map[string]any{"Fn::GetAtt": []any{"Function", "Arn"}},
			}},
		},
		{
			name:         "unknown property strict",
			resource:     wetwire.ResourceDef{Type: "AWS::ApiGateway::RestApi", Properties: map[string]any{"Nme": "webapp"}},
			strict:       true,
			wantWarnings: []string{"Res.Nme: unknown property: Nme"},
		},
		{
			name:     "unknown property lenient",
			resource: wetwire.ResourceDef{Type: "AWS::ApiGateway::RestApi", Properties: map[string]any{"Nme": "webapp"}},
		},
		{
			name:         "unknown type",
			resource:     wetwire.ResourceDef{Type: "AWS::S3::Bucket"},
			wantWarnings: []string{"Res.Type: unknown resource type: AWS::S3::Bucket (schema not available for validation)"},
		},
		{
			name:       "malformed type",
			resource:   wetwire.ResourceDef{Type: "Lambda::Function"},
			wantErrors: []string{"Res.Type: invalid resource type format: Lambda::Function"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateTemplate(templateWith(map[string]wetwire.ResourceDef{"Res": tt.resource}), Options{Strict: tt.strict})
			assert.Equal(t, tt.wantErrors, issueStrings(result.Errors))
			assert.Equal(t, tt.wantWarnings, issueStrings(result.Warnings))
			assert.Equal(t, len(tt.wantErrors) == 0, result.Valid)
		})
	}
}

func TestValidateTemplate_Ordered(t *testing.T) {
	tmpl := templateWith(map[string]wetwire.ResourceDef{
		"B": {Type: "AWS::Lambda::Permission"},
		"A": {Type: "AWS::ApiGateway::Resource"},
	})
	result := ValidateTemplate(tmpl, Options{})
	require.Len(t, result.Errors, 6)
	assert.Equal(t, "A", result.Errors[0].Resource)
	assert.Equal(t, "B", result.Errors[5].Resource)
}

func TestIssue_String(t *testing.T) {
	assert.Equal(t, "Fn.Role: bad", Issue{Resource: "Fn", Property: "Role", Message: "bad"}.String())
	assert.Equal(t, "Fn: bad", Issue{Resource: "Fn", Message: "bad"}.String())
}

func issueStrings(issues []Issue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, i.String())
	}
	return out
}
