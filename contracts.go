// Package wetwire_webapp provides the shared types for declaring a containerized
// web application stack as CloudFormation.
//
// The stack is declared in Go and synthesized to a CloudFormation template:
//
//	var Repository = ecr.Repository{
//	    ImageTagMutability: "MUTABLE",
//	    EmptyOnDelete:      true,
//	}
//
//	var Function = lambda.Function{
//	    PackageType: "Image",
//	    Role:        wetwire.AttrRef{Resource: "ServiceRole", Attribute: "Arn"},
//	}
//
// The webapp-stack CLI synthesizes, validates, diffs and deploys the result.
package wetwire_webapp

import (
	"encoding/json"
)

// Resource represents a CloudFormation resource.
// All resource types (ecr.Repository, lambda.Function, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::ECR::Repository")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["ServiceRole", "Arn"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "RegionalDomainName")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// AttrRefUsage records a GetAtt reference made from one resource's properties.
type AttrRefUsage struct {
	// ResourceName is the logical name of the referenced resource
	ResourceName string
	// Attribute is the referenced attribute
	Attribute string
}

// DiscoveredResource is a resource declared on a stack, with its resolved edges.
type DiscoveredResource struct {
	// Name is the logical ID
	Name string
	// Type is the CloudFormation type (e.g., "AWS::Lambda::Function")
	Type string
	// Dependencies are logical names of everything this resource waits for:
	// inferred references plus explicit DependsOn edges (resources and steps).
	Dependencies []string
	// DependsOn holds only the explicitly declared edges.
	DependsOn []string
	// AttrRefUsages lists the GetAtt references found in the properties.
	AttrRefUsages []AttrRefUsage
}

// DiscoveredStep is a provisioning step that runs outside the template
// (e.g. building and pushing a container image).
type DiscoveredStep struct {
	// Name is the step identifier, unique among resources and steps
	Name string
	// Kind describes the step (e.g., "DockerImageDeployment")
	Kind string
	// Dependencies are the logical names the step needs to exist first
	Dependencies []string
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Metadata                 map[string]any         `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
	Metadata            map[string]any `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default       any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any     `json:"Value" yaml:"Value"`
	Export      *Export `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// Export names a stack output for cross-stack references.
type Export struct {
	Name string `json:"Name" yaml:"Name"`
}

// DiffEntry describes one changed resource between two templates.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff groups resource changes by kind.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffSummary counts the changes in a TemplateDiff.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// BuildResult is the JSON output from `webapp-stack synth`.
type BuildResult struct {
	Success   bool     `json:"success"`
	Template  Template `json:"template,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `webapp-stack validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// DeployResult is the JSON output from `webapp-stack deploy`.
type DeployResult struct {
	Success bool              `json:"success"`
	Stack   string            `json:"stack"`
	Stages  []StageResult     `json:"stages"`
	Outputs map[string]string `json:"outputs,omitempty"`
	Errors  []string          `json:"errors,omitempty"`
}

// StageResult reports what happened to one deployment stage.
type StageResult struct {
	Index     int      `json:"index"`
	Resources []string `json:"resources"`
	// Status is "created", "updated" or "unchanged".
	Status string   `json:"status"`
	Steps  []string `json:"steps,omitempty"`
}

// ListResult is the JSON output from `webapp-stack list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	DependsOn []string `json:"depends_on,omitempty"`
}
