package apigateway

// DomainName represents AWS::ApiGateway::DomainName.
type DomainName struct {
	DomainName             any                               `json:"DomainName"`
	RegionalCertificateArn any                               `json:"RegionalCertificateArn,omitempty"`
	CertificateArn         any                               `json:"CertificateArn,omitempty"`
	EndpointConfiguration  *DomainName_EndpointConfiguration `json:"EndpointConfiguration,omitempty"`
	SecurityPolicy         string                            `json:"SecurityPolicy,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r DomainName) ResourceType() string {
	return "AWS::ApiGateway::DomainName"
}

// DomainName_EndpointConfiguration is a property type of AWS::ApiGateway::DomainName.
type DomainName_EndpointConfiguration struct {
	Types []string `json:"Types,omitempty"`
}

// BasePathMapping represents AWS::ApiGateway::BasePathMapping.
type BasePathMapping struct {
	DomainName any    `json:"DomainName"`
	RestApiId  any    `json:"RestApiId"`
	Stage      any    `json:"Stage,omitempty"`
	BasePath   string `json:"BasePath,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r BasePathMapping) ResourceType() string {
	return "AWS::ApiGateway::BasePathMapping"
}

// Endpoint types.
const (
	EndpointRegional = "REGIONAL"
	EndpointEdge     = "EDGE"
)
