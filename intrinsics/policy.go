package intrinsics

import (
	"encoding/json"
)

// PolicyVersion is the IAM policy language version written by NewPolicyDocument.
const PolicyVersion = "2012-10-17"

// PolicyDocument is an IAM policy document, used for role trust policies and
// inline policies.
type PolicyDocument struct {
	Version   string            `json:"Version,omitempty"`
	Statement []PolicyStatement `json:"Statement"`
}

// NewPolicyDocument returns a document at PolicyVersion.
func NewPolicyDocument(statements ...PolicyStatement) PolicyDocument {
	if statements == nil {
		statements = []PolicyStatement{}
	}
	return PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// PolicyStatement is one statement of a PolicyDocument. Action and Resource
// take a string or a list; Resource may hold intrinsics.
type PolicyStatement struct {
	Sid       string         `json:"Sid,omitempty"`
	Effect    string         `json:"Effect"`
	Principal any            `json:"Principal,omitempty"`
	Action    any            `json:"Action,omitempty"`
	Resource  any            `json:"Resource,omitempty"`
	Condition map[string]any `json:"Condition,omitempty"`
}

// Allow grants actions on resource.
func Allow(resource any, actions ...string) PolicyStatement {
	var action any = actions
	if len(actions) == 1 {
		action = actions[0]
	}
	return PolicyStatement{Effect: "Allow", Action: action, Resource: resource}
}

// AssumedBy is the trust statement letting the given services assume a role.
func AssumedBy(services ...string) PolicyStatement {
	p := make(ServicePrincipal, len(services))
	for i, s := range services {
		p[i] = s
	}
	return PolicyStatement{Effect: "Allow", Principal: p, Action: "sts:AssumeRole"}
}

// ServicePrincipal names AWS services, e.g. lambda.amazonaws.com.
// A single service marshals to {"Service": name}, several to a list.
type ServicePrincipal []any

// MarshalJSON implements json.Marshaler.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}
