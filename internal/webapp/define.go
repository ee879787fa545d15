package webapp

import (
	"fmt"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/imagedeploy"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
	. "github.com/lex00/wetwire-webapp-go/intrinsics"
	"github.com/lex00/wetwire-webapp-go/resources/apigateway"
	"github.com/lex00/wetwire-webapp-go/resources/certificatemanager"
	"github.com/lex00/wetwire-webapp-go/resources/ecr"
	"github.com/lex00/wetwire-webapp-go/resources/iam"
	"github.com/lex00/wetwire-webapp-go/resources/lambda"
	"github.com/lex00/wetwire-webapp-go/resources/route53"
)

// Define declares the stack for cfg. deployer publishes the image during
// deployment and may be nil when the stack is only synthesized.
func Define(cfg Config, deployer *imagedeploy.Deployer) (*stack.Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fqdn := cfg.Domain.FQDN()
	s := stack.New(cfg.StackName, fmt.Sprintf("Web application served at https://%s/", fqdn))

	d := &declarer{s: s}

	// Certificate

	d.add(Certificate, certificatemanager.Certificate{
		DomainName:       fqdn,
		ValidationMethod: certificatemanager.ValidationDNS,
		DomainValidationOptions: []certificatemanager.Certificate_DomainValidationOption{{
			DomainName:   fqdn,
			HostedZoneId: cfg.HostedZoneID,
		}},
	})

	// Image

	d.add(Repository, ecr.Repository{
		ImageTagMutability: ecr.TagMutable,
		EmptyOnDelete:      true,
	}, stack.WithDeletionPolicy(stack.PolicyDelete))

	if d.err == nil {
		d.err = s.AddStep(cfg.imageStep(deployer))
	}

	// Function

	d.add(ServiceRole, iam.Role{
		AssumeRolePolicyDocument: NewPolicyDocument(AssumedBy("lambda.amazonaws.com")),
		ManagedPolicyArns: []any{
			Join{Delimiter: "", Values: []any{
				"arn:", AWS_PARTITION, ":iam::aws:policy/service-role/AWSLambdaBasicExecutionRole",
			}},
		},
		Policies: []iam.Role_Policy{{
			PolicyName: "ImagePull",
			PolicyDocument: NewPolicyDocument(
				Allow(AttOf(Repository, "Arn"),
					"ecr:BatchCheckLayerAvailability",
					"ecr:BatchGetImage",
					"ecr:GetDownloadUrlForLayer",
				),
				Allow("*", "ecr:GetAuthorizationToken"),
			),
		}},
	})

	d.add(Function, lambda.Function{
		PackageType: lambda.PackageTypeImage,
		Code:        lambda.Function_Code{ImageUri: ImageURI(Repository, cfg.ImageTag)},
		Role:        AttOf(ServiceRole, "Arn"),
		MemorySize:  1024,
		Timeout:     30,
	}, stack.DependsOn(ImageDeployment))

	// REST API

	d.add(RestApi, apigateway.RestApi{
		Name:             cfg.StackName,
		BinaryMediaTypes: []string{"*/*"},
		EndpointConfiguration: &apigateway.RestApi_EndpointConfiguration{
			Types: []string{apigateway.EndpointRegional},
		},
	})

	d.add(ProxyResource, apigateway.Resource{
		RestApiId: RefTo(RestApi),
		ParentId:  AttOf(RestApi, "RootResourceId"),
		PathPart:  "{proxy+}",
	})

	d.add(RootMethod, proxyMethod(AttOf(RestApi, "RootResourceId")))
	d.add(ProxyMethod, proxyMethod(RefTo(ProxyResource)))

	d.add(Deployment, apigateway.Deployment{
		RestApiId: RefTo(RestApi),
	}, stack.DependsOn(RootMethod, ProxyMethod))

	d.add(ProdStage, apigateway.Stage{
		RestApiId:    RefTo(RestApi),
		DeploymentId: RefTo(Deployment),
		StageName:    StageName,
	})

	d.add(RootPermission, invokePermission("/*/*/"))
	d.add(ProxyPermission, invokePermission("/*/*/*"))

	// Custom domain

	d.add(DomainName, apigateway.DomainName{
		DomainName:             fqdn,
		RegionalCertificateArn: RefTo(Certificate),
		EndpointConfiguration: &apigateway.DomainName_EndpointConfiguration{
			Types: []string{apigateway.EndpointRegional},
		},
		SecurityPolicy: "TLS_1_2",
	})

	d.add(BasePathMapping, apigateway.BasePathMapping{
		DomainName: RefTo(DomainName),
		RestApiId:  RefTo(RestApi),
		Stage:      RefTo(ProdStage),
	})

	// DNS

	d.add(AliasRecord, route53.RecordSet{
		HostedZoneId: cfg.HostedZoneID,
		Name:         fqdn + ".",
		Type_:        route53.TypeA,
		AliasTarget: &route53.RecordSet_AliasTarget{
			DNSName:      AttOf(DomainName, "RegionalDomainName"),
			HostedZoneId: AttOf(DomainName, "RegionalHostedZoneId"),
		},
	})

	d.add(ServiceRecord, route53.RecordSet{
		HostedZoneId:    cfg.HostedZoneID,
		Name:            fqdn + ".",
		Type_:           route53.TypeHTTPS,
		TTL:             ServiceRecordTTL,
		ResourceRecords: []string{ServiceRecordValue},
	})

	// Outputs

	d.output(OutputEndpoint, wetwire.Output{
		Description: "API Gateway endpoint",
		Value: Join{Delimiter: "", Values: []any{
			"https://", RefTo(RestApi), ".execute-api.", AWS_REGION, ".", AWS_URL_SUFFIX, "/", RefTo(ProdStage), "/",
		}},
	})
	d.output(OutputCustomDomainURL, wetwire.Output{
		Description: "Custom domain URL",
		Value:       "https://" + fqdn + "/",
	})
	d.output(OutputRepositoryURI, wetwire.Output{
		Description: "Image repository URI",
		Value:       AttOf(Repository, "RepositoryUri"),
	})
	d.output(OutputFunctionName, wetwire.Output{
		Description: "Lambda function name",
		Value:       RefTo(Function),
	})

	if d.err != nil {
		return nil, d.err
	}
	return s, nil
}

// declarer records the first declaration error.
type declarer struct {
	s   *stack.Stack
	err error
}

func (d *declarer) add(id string, r wetwire.Resource, opts ...stack.Option) {
	if d.err != nil {
		return
	}
	d.err = d.s.Add(id, r, opts...)
}

func (d *declarer) output(name string, out wetwire.Output) {
	if d.err != nil {
		return
	}
	d.err = d.s.AddOutput(name, out)
}

func proxyMethod(resourceID any) apigateway.Method {
	return apigateway.Method{
		RestApiId:         RefTo(RestApi),
		ResourceId:        resourceID,
		HttpMethod:        "ANY",
		AuthorizationType: "NONE",
		Integration: &apigateway.Method_Integration{
			Type_:                 apigateway.IntegrationAWSProxy,
			IntegrationHttpMethod: "POST",
			Uri: Join{Delimiter: "", Values: []any{
				"arn:", AWS_PARTITION, ":apigateway:", AWS_REGION,
				":lambda:path/2015-03-31/functions/", AttOf(Function, "Arn"), "/invocations",
			}},
		},
	}
}

func invokePermission(path string) lambda.Permission {
	return lambda.Permission{
		Action:       "lambda:InvokeFunction",
		FunctionName: AttOf(Function, "Arn"),
		Principal:    "apigateway.amazonaws.com",
		SourceArn:    ARN("execute-api", true, true, RefTo(RestApi), path),
	}
}
