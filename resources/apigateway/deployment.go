package apigateway

// Deployment represents AWS::ApiGateway::Deployment.
type Deployment struct {
	RestApiId   any    `json:"RestApiId"`
	Description string `json:"Description,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Deployment) ResourceType() string {
	return "AWS::ApiGateway::Deployment"
}

// Stage represents AWS::ApiGateway::Stage.
type Stage struct {
	RestApiId    any    `json:"RestApiId"`
	DeploymentId any    `json:"DeploymentId"`
	StageName    string `json:"StageName"`
}

// ResourceType returns the CloudFormation type.
func (r Stage) ResourceType() string {
	return "AWS::ApiGateway::Stage"
}
