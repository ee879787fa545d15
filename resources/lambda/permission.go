package lambda

// Permission represents AWS::Lambda::Permission.
type Permission struct {
	Action       string `json:"Action"`
	FunctionName any    `json:"FunctionName"`
	Principal    string `json:"Principal"`
	SourceArn    any    `json:"SourceArn,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Permission) ResourceType() string {
	return "AWS::Lambda::Permission"
}
