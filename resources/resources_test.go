package resources_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/resources/apigateway"
	"github.com/lex00/wetwire-webapp-go/resources/certificatemanager"
	"github.com/lex00/wetwire-webapp-go/resources/ecr"
	"github.com/lex00/wetwire-webapp-go/resources/iam"
	"github.com/lex00/wetwire-webapp-go/resources/lambda"
	"github.com/lex00/wetwire-webapp-go/resources/route53"
)

func TestResourceTypes(t *testing.T) {
	tests := []struct {
		name     string
		resource wetwire.Resource
		expected string
	}{
		{"Certificate", certificatemanager.Certificate{}, "AWS::CertificateManager::Certificate"},
		{"Repository", ecr.Repository{}, "AWS::ECR::Repository"},
		{"Role", iam.Role{}, "AWS::IAM::Role"},
		{"Function", lambda.Function{}, "AWS::Lambda::Function"},
		{"Permission", lambda.Permission{}, "AWS::Lambda::Permission"},
		{"RestApi", apigateway.RestApi{}, "AWS::ApiGateway::RestApi"},
		{"Resource", apigateway.Resource{}, "AWS::ApiGateway::Resource"},
		{"Method", apigateway.Method{}, "AWS::ApiGateway::Method"},
		{"Deployment", apigateway.Deployment{}, "AWS::ApiGateway::Deployment"},
		{"Stage", apigateway.Stage{}, "AWS::ApiGateway::Stage"},
		{"DomainName", apigateway.DomainName{}, "AWS::ApiGateway::DomainName"},
		{"BasePathMapping", apigateway.BasePathMapping{}, "AWS::ApiGateway::BasePathMapping"},
		{"RecordSet", route53.RecordSet{}, "AWS::Route53::RecordSet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.resource.ResourceType())
		})
	}
}

func TestRecordSet_JSON(t *testing.T) {
	https := route53.RecordSet{
		HostedZoneId:    "Z123",
		Name:            "www.example.com.",
		Type_:           route53.TypeHTTPS,
		ResourceRecords: []string{"1 . alpn=h2"},
		TTL:             "1800",
	}

	data, err := json.Marshal(https)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"HostedZoneId": "Z123",
		"Name": "www.example.com.",
		"Type": "HTTPS",
		"ResourceRecords": ["1 . alpn=h2"],
		"TTL": "1800"
	}`, string(data))
}

func TestMethod_Integration_JSON(t *testing.T) {
	m := apigateway.Method{
		RestApiId:         "api",
		ResourceId:        "res",
		HttpMethod:        "ANY",
		AuthorizationType: "NONE",
		Integration: &apigateway.Method_Integration{
			Type_:                 apigateway.IntegrationAWSProxy,
			IntegrationHttpMethod: "POST",
		},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	integration := raw["Integration"].(map[string]any)
	assert.Equal(t, "AWS_PROXY", integration["Type"])
	assert.Equal(t, "POST", integration["IntegrationHttpMethod"])
	assert.NotContains(t, integration, "Uri")
}

func TestFunction_Code(t *testing.T) {
	assert.True(t, lambda.Function_Code{}.IsZero())
	assert.False(t, lambda.Function_Code{ImageUri: "repo:tag"}.IsZero())

	data, err := json.Marshal(lambda.Function{
		PackageType: lambda.PackageTypeImage,
		Code:        lambda.Function_Code{ImageUri: "repo:tag"},
		Role:        wetwire.AttrRef{Resource: "ServiceRole", Attribute: "Arn"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"PackageType": "Image",
		"Code": {"ImageUri": "repo:tag"},
		"Role": {"Fn::GetAtt": ["ServiceRole", "Arn"]}
	}`, string(data))
}
