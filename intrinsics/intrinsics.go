// Package intrinsics provides the CloudFormation intrinsic functions used by the
// stack declarations.
//
// The core intrinsic types come from cloudformation-schema-go:
//
//	Ref{LogicalName: "Repository"}         → {"Ref": "Repository"}
//	GetAtt{LogicalName: "Api", Attribute: "RootResourceId"}
//	Join{Delimiter: "", Values: []any{"https://", Api, ".execute-api."}}
//
// Pseudo-parameters:
//
//	AWS_REGION, AWS_ACCOUNT_ID, AWS_PARTITION, AWS_URL_SUFFIX
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Select represents a CloudFormation Fn::Select intrinsic function.
	Select = intrinsics.Select

	// Split represents a CloudFormation Fn::Split intrinsic function.
	Split = intrinsics.Split
)

// Pseudo-parameters are predefined by CloudFormation and available in every template.
var (
	// AWS_ACCOUNT_ID returns the AWS account ID of the account in which the stack is created.
	AWS_ACCOUNT_ID = intrinsics.AWS_ACCOUNT_ID

	// AWS_PARTITION returns the partition the resource is in (aws, aws-cn, aws-us-gov).
	AWS_PARTITION = intrinsics.AWS_PARTITION

	// AWS_REGION returns the AWS Region in which the stack is created.
	AWS_REGION = intrinsics.AWS_REGION

	// AWS_STACK_NAME returns the name of the stack.
	AWS_STACK_NAME = intrinsics.AWS_STACK_NAME

	// AWS_URL_SUFFIX returns the suffix for a domain (usually amazonaws.com).
	AWS_URL_SUFFIX = intrinsics.AWS_URL_SUFFIX
)

// RefTo returns a Ref to the given logical ID.
func RefTo(logicalID string) Ref {
	return Ref{LogicalName: logicalID}
}

// AttOf returns a GetAtt for attribute attr of the given logical ID.
func AttOf(logicalID, attr string) GetAtt {
	return GetAtt{LogicalName: logicalID, Attribute: attr}
}

// ImageURI builds the registry URI of repository:tag for an ECR repository
// declared in the same template.
//
//	<account>.dkr.ecr.<region>.<url suffix>/<repository name>:<tag>
func ImageURI(repositoryID, tag string) Join {
	return Join{
		Delimiter: "",
		Values: []any{
			AWS_ACCOUNT_ID,
			".dkr.ecr.",
			AWS_REGION,
			".",
			AWS_URL_SUFFIX,
			"/",
			RefTo(repositoryID),
			":",
			tag,
		},
	}
}

// ARN builds arn:<partition>:<service>:<region>:<account>:<resource...>.
// An empty region or account is kept empty, as global services require.
func ARN(service string, regional, withAccount bool, resource ...any) Join {
	values := []any{"arn:", AWS_PARTITION, ":" + service + ":"}
	if regional {
		values = append(values, AWS_REGION)
	}
	values = append(values, ":")
	if withAccount {
		values = append(values, AWS_ACCOUNT_ID)
	}
	values = append(values, ":")
	values = append(values, resource...)
	return Join{Delimiter: "", Values: values}
}
