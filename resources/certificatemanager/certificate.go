// Package certificatemanager contains CloudFormation resource types for AWS Certificate Manager.
package certificatemanager

// Certificate represents AWS::CertificateManager::Certificate.
type Certificate struct {
	DomainName              any                                  `json:"DomainName"`
	SubjectAlternativeNames []any                                `json:"SubjectAlternativeNames,omitempty"`
	ValidationMethod        string                               `json:"ValidationMethod,omitempty"`
	DomainValidationOptions []Certificate_DomainValidationOption `json:"DomainValidationOptions,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r Certificate) ResourceType() string {
	return "AWS::CertificateManager::Certificate"
}

// Certificate_DomainValidationOption is a property type of AWS::CertificateManager::Certificate.
type Certificate_DomainValidationOption struct {
	DomainName   any `json:"DomainName"`
	HostedZoneId any `json:"HostedZoneId,omitempty"`
}

// Validation methods.
const (
	ValidationDNS   = "DNS"
	ValidationEmail = "EMAIL"
)
