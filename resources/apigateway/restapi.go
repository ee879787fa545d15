// Package apigateway contains CloudFormation resource types for Amazon API Gateway (REST).
package apigateway

// RestApi represents AWS::ApiGateway::RestApi.
type RestApi struct {
	Name                  any                            `json:"Name,omitempty"`
	Description           any                            `json:"Description,omitempty"`
	BinaryMediaTypes      []string                       `json:"BinaryMediaTypes,omitempty"`
	EndpointConfiguration *RestApi_EndpointConfiguration `json:"EndpointConfiguration,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r RestApi) ResourceType() string {
	return "AWS::ApiGateway::RestApi"
}

// RestApi_EndpointConfiguration is a property type of AWS::ApiGateway::RestApi.
type RestApi_EndpointConfiguration struct {
	Types []string `json:"Types,omitempty"`
}

// Resource represents AWS::ApiGateway::Resource.
type Resource struct {
	RestApiId any    `json:"RestApiId"`
	ParentId  any    `json:"ParentId"`
	PathPart  string `json:"PathPart"`
}

// ResourceType returns the CloudFormation type.
func (r Resource) ResourceType() string {
	return "AWS::ApiGateway::Resource"
}

// Method represents AWS::ApiGateway::Method.
type Method struct {
	RestApiId         any                 `json:"RestApiId"`
	ResourceId        any                 `json:"ResourceId"`
	HttpMethod        string              `json:"HttpMethod"`
	AuthorizationType string              `json:"AuthorizationType,omitempty"`
	Integration       *Method_Integration `json:"Integration,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Method) ResourceType() string {
	return "AWS::ApiGateway::Method"
}

// Method_Integration is a property type of AWS::ApiGateway::Method.
type Method_Integration struct {
	Type_                 string `json:"Type"`
	IntegrationHttpMethod string `json:"IntegrationHttpMethod,omitempty"`
	Uri                   any    `json:"Uri,omitempty"`
}

// Integration types.
const (
	IntegrationAWSProxy = "AWS_PROXY"
)
