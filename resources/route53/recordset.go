// Package route53 contains CloudFormation resource types for Amazon Route 53.
package route53

// RecordSet represents AWS::Route53::RecordSet.
type RecordSet struct {
	HostedZoneId    any                    `json:"HostedZoneId,omitempty"`
	Name            any                    `json:"Name"`
	Type_           string                 `json:"Type"`
	AliasTarget     *RecordSet_AliasTarget `json:"AliasTarget,omitempty"`
	ResourceRecords []string               `json:"ResourceRecords,omitempty"`
	TTL             string                 `json:"TTL,omitempty"`
	Comment         string                 `json:"Comment,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (r RecordSet) ResourceType() string {
	return "AWS::Route53::RecordSet"
}

// RecordSet_AliasTarget is a property type of AWS::Route53::RecordSet.
type RecordSet_AliasTarget struct {
	DNSName              any  `json:"DNSName"`
	HostedZoneId         any  `json:"HostedZoneId"`
	EvaluateTargetHealth bool `json:"EvaluateTargetHealth,omitempty"`
}

// Record types.
const (
	TypeA     = "A"
	TypeAAAA  = "AAAA"
	TypeHTTPS = "HTTPS"
)
