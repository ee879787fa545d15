// Package iam contains CloudFormation resource types for AWS IAM.
package iam

// Role represents AWS::IAM::Role.
type Role struct {
	RoleName                 any           `json:"RoleName,omitempty"`
	Description              string        `json:"Description,omitempty"`
	AssumeRolePolicyDocument any           `json:"AssumeRolePolicyDocument"`
	ManagedPolicyArns        []any         `json:"ManagedPolicyArns,omitempty"`
	Policies                 []Role_Policy `json:"Policies,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Role) ResourceType() string {
	return "AWS::IAM::Role"
}

// Role_Policy is a property type of AWS::IAM::Role.
type Role_Policy struct {
	PolicyName     string `json:"PolicyName"`
	PolicyDocument any    `json:"PolicyDocument"`
}
