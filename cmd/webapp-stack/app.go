package main

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lex00/wetwire-webapp-go/internal/config"
	"github.com/lex00/wetwire-webapp-go/internal/deploy"
	"github.com/lex00/wetwire-webapp-go/internal/imagedeploy"
	"github.com/lex00/wetwire-webapp-go/internal/logging"
	"github.com/lex00/wetwire-webapp-go/internal/lookup"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
	"github.com/lex00/wetwire-webapp-go/internal/webapp"
)

// app carries the settings shared by every command.
type app struct {
	configPath string
	settings   config.Settings
	log        logr.Logger

	awsCfg *aws.Config
}

func (a *app) registerFlags(fs *pflag.FlagSet) {
	config.RegisterFlags(fs)
}

// setup resolves settings for cmd and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	v := config.New(a.configPath)
	if err := config.Bind(v, a.configPath != "", cmd.Flags()); err != nil {
		return err
	}
	a.settings = config.Load(v)

	log, err := logging.New(a.settings.LogLevel)
	if err != nil {
		return err
	}
	a.log = log.WithName("webapp-stack")
	return nil
}

func (a *app) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	cfg, err := a.settings.AWS(ctx)
	if err != nil {
		return aws.Config{}, err
	}
	a.awsCfg = &cfg
	return cfg, nil
}

// zones returns the hosted-zone provider. The Route 53 client is only
// consulted for domains missing from the context file.
func (a *app) zones(ctx context.Context) (*lookup.Provider, error) {
	opts := []lookup.Option{
		lookup.WithContextFile(a.settings.ContextFile),
		lookup.WithLogger(a.log.WithName("lookup")),
	}
	cfg, err := a.awsConfig(ctx)
	if err != nil {
		a.log.V(1).Info("AWS configuration unavailable, using context file only", "error", err.Error())
		return lookup.NewProvider(nil, opts...), nil
	}
	return lookup.NewProvider(route53.NewFromConfig(cfg), opts...), nil
}

// stackConfig returns the stack configuration with its hosted zone resolved.
func (a *app) stackConfig(ctx context.Context) (webapp.Config, error) {
	cfg := a.settings.Webapp
	if cfg.HostedZoneID == "" {
		zones, err := a.zones(ctx)
		if err != nil {
			return cfg, err
		}
		if err := cfg.Resolve(ctx, zones); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// contextDigest digests the build context. An unreadable context yields an
// empty digest.
func (a *app) contextDigest(dir string) (string, error) {
	d, err := imagedeploy.ContextDigest(dir)
	switch {
	case err == nil:
		return d.String(), nil
	case errors.Is(err, imagedeploy.ErrInvalidContext):
		a.log.V(1).Info("build context not digested", "context", dir, "error", err.Error())
		return "", nil
	}
	return "", err
}

// stack declares the stack for synthesis; its image step has no deployer.
func (a *app) stack(ctx context.Context) (*stack.Stack, webapp.Config, error) {
	cfg, err := a.stackConfig(ctx)
	if err != nil {
		return nil, cfg, err
	}
	s, err := webapp.Define(cfg, nil)
	return s, cfg, err
}

// deployableStack declares the stack with an image deployer wired to ECR.
func (a *app) deployableStack(ctx context.Context) (*stack.Stack, error) {
	cfg, err := a.stackConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := imagedeploy.ValidateContext(cfg.BuildContext); err != nil {
		return nil, err
	}
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	deployer := imagedeploy.NewDeployer(
		imagedeploy.DockerCLI{Output: os.Stderr},
		ecr.NewFromConfig(awsCfg),
		imagedeploy.WithLogger(a.log.WithName("image")),
	)
	return webapp.Define(cfg, deployer)
}

func (a *app) engine(ctx context.Context) (*deploy.Engine, error) {
	cfg, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	opts := []deploy.Option{deploy.WithLogger(a.log.WithName("deploy"))}
	if a.settings.AssetBucket != "" {
		opts = append(opts, deploy.WithAssetBucket(s3.NewFromConfig(cfg), a.settings.AssetBucket))
	}
	return deploy.New(cloudformation.NewFromConfig(cfg), opts...), nil
}
