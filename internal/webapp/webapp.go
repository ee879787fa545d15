// Package webapp declares the web application stack: a container image built
// from a local context, served by a Lambda function behind an API Gateway
// REST API on a custom domain with a DNS-validated certificate.
package webapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/lex00/wetwire-webapp-go/internal/imagedeploy"
	"github.com/lex00/wetwire-webapp-go/internal/lookup"
	"github.com/lex00/wetwire-webapp-go/internal/validation"
)

// Logical IDs of the declared resources.
const (
	Certificate     = "Certificate"
	Repository      = "Repository"
	ImageDeployment = "ImageDeployment"
	ServiceRole     = "ServiceRole"
	Function        = "Function"
	RestApi         = "RestApi"
	ProxyResource   = "ProxyResource"
	RootMethod      = "RootMethod"
	ProxyMethod     = "ProxyMethod"
	Deployment      = "Deployment"
	ProdStage       = "ProdStage"
	RootPermission  = "RootPermission"
	ProxyPermission = "ProxyPermission"
	DomainName      = "DomainName"
	BasePathMapping = "BasePathMapping"
	AliasRecord     = "AliasRecord"
	ServiceRecord   = "ServiceRecord"
)

// Output names.
const (
	OutputEndpoint        = "Endpoint"
	OutputCustomDomainURL = "CustomDomainUrl"
	OutputRepositoryURI   = "RepositoryUri"
	OutputFunctionName    = "FunctionName"
)

const (
	// ServiceRecordValue advertises HTTP/2 on the default endpoint.
	ServiceRecordValue = "1 . alpn=h2"
	// ServiceRecordTTL is the HTTPS record TTL in seconds.
	ServiceRecordTTL = "1800"
	// StageName is the API Gateway stage the application is served from.
	StageName = "prod"
)

// Config holds the inputs of the stack.
type Config struct {
	Domain       Domain
	BuildContext string
	ImageTag     string
	StackName    string

	// HostedZoneID is the public hosted zone of Domain.Apex. Resolve fills
	// it in when empty.
	HostedZoneID string
}

// DefaultConfig returns the stack's fixed inputs.
func DefaultConfig() Config {
	return Config{
		Domain:       Domain{Apex: "example.com", Subdomain: "www"},
		BuildContext: "webapp",
		ImageTag:     "code-server-custom",
		StackName:    "CdkNextAppStack",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if err := c.Domain.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.BuildContext == "" {
		errs = append(errs, errors.New("build context is required"))
	}
	if c.ImageTag == "" {
		errs = append(errs, errors.New("image tag is required"))
	}
	if c.StackName == "" {
		errs = append(errs, errors.New("stack name is required"))
	}
	if c.HostedZoneID == "" {
		errs = append(errs, errors.New("hosted zone is not resolved"))
	}
	return errors.Join(errs...)
}

// ZoneLookup resolves hosted zones.
type ZoneLookup interface {
	HostedZone(ctx context.Context, domain string) (lookup.HostedZone, error)
}

// Resolve fills in HostedZoneID from zones unless it is already set.
func (c *Config) Resolve(ctx context.Context, zones ZoneLookup) error {
	if c.HostedZoneID != "" {
		return nil
	}
	if zones == nil {
		return fmt.Errorf("no hosted zone configured for %s", c.Domain.Apex)
	}
	zone, err := zones.HostedZone(ctx, c.Domain.Apex)
	if err != nil {
		return err
	}
	c.HostedZoneID = zone.ID
	return nil
}

// Layout describes the declared stack for structural validation.
func (c Config) Layout() validation.Layout {
	return validation.Layout{
		Apex:               c.Domain.Apex,
		Subdomain:          c.Domain.Subdomain,
		Certificate:        Certificate,
		Repository:         Repository,
		ImageDeployment:    ImageDeployment,
		Function:           Function,
		DomainName:         DomainName,
		AliasRecord:        AliasRecord,
		ServiceRecord:      ServiceRecord,
		ServiceRecordValue: ServiceRecordValue,
	}
}

// imageStep builds the image deployment step for c.
func (c Config) imageStep(deployer *imagedeploy.Deployer) *imagedeploy.Step {
	return &imagedeploy.Step{
		ID:               ImageDeployment,
		RepositoryID:     Repository,
		RepositoryOutput: OutputRepositoryURI,
		ContextDir:       c.BuildContext,
		Tag:              c.ImageTag,
		Deployer:         deployer,
	}
}
