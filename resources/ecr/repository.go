// Package ecr contains CloudFormation resource types for Amazon ECR.
package ecr

// Repository represents AWS::ECR::Repository.
type Repository struct {
	RepositoryName             any                                    `json:"RepositoryName,omitempty"`
	ImageTagMutability         string                                 `json:"ImageTagMutability,omitempty"`
	EmptyOnDelete              bool                                   `json:"EmptyOnDelete,omitempty"`
	ImageScanningConfiguration *Repository_ImageScanningConfiguration `json:"ImageScanningConfiguration,omitempty"`
	LifecyclePolicy            *Repository_LifecyclePolicy            `json:"LifecyclePolicy,omitempty"`
	RepositoryPolicyText       any                                    `json:"RepositoryPolicyText,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Repository) ResourceType() string {
	return "AWS::ECR::Repository"
}

// Repository_ImageScanningConfiguration is a property type of AWS::ECR::Repository.
type Repository_ImageScanningConfiguration struct {
	ScanOnPush bool `json:"ScanOnPush,omitempty"`
}

// Repository_LifecyclePolicy is a property type of AWS::ECR::Repository.
type Repository_LifecyclePolicy struct {
	LifecyclePolicyText string `json:"LifecyclePolicyText,omitempty"`
	RegistryId          string `json:"RegistryId,omitempty"`
}

// Tag mutability values.
const (
	TagMutable   = "MUTABLE"
	TagImmutable = "IMMUTABLE"
)
