// Package config resolves stack settings from flags, WEBAPP_* environment
// variables and an optional webapp.yaml file, in that order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lex00/wetwire-webapp-go/internal/lookup"
	"github.com/lex00/wetwire-webapp-go/internal/webapp"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "WEBAPP"

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "webapp"

// Keys shared by flags, environment variables and the config file.
const (
	KeyApex         = "apex"
	KeySubdomain    = "subdomain"
	KeyBuildContext = "build-context"
	KeyImageTag     = "image-tag"
	KeyStackName    = "stack-name"
	KeyHostedZoneID = "hosted-zone-id"
	KeyRegion       = "region"
	KeyProfile      = "profile"
	KeyAssetBucket  = "asset-bucket"
	KeyLogLevel     = "log-level"
	KeyContextFile  = "context-file"
)

// Settings is the resolved configuration of one CLI invocation.
type Settings struct {
	Webapp webapp.Config

	Region      string
	Profile     string
	AssetBucket string
	LogLevel    string
	ContextFile string
}

// RegisterFlags adds the stack flags to fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	def := webapp.DefaultConfig()
	fs.String(KeyApex, def.Domain.Apex, "Apex domain with a public hosted zone")
	fs.String(KeySubdomain, def.Domain.Subdomain, "Subdomain label the application is served at")
	fs.String(KeyBuildContext, def.BuildContext, "Container build context directory")
	fs.String(KeyImageTag, def.ImageTag, "Image tag pushed to the repository")
	fs.String(KeyStackName, def.StackName, "CloudFormation stack name")
	fs.String(KeyHostedZoneID, "", "Hosted zone ID (skips the Route 53 lookup)")
	fs.String(KeyRegion, "", "AWS region")
	fs.String(KeyProfile, "", "AWS shared config profile")
	fs.String(KeyAssetBucket, "", "S3 bucket for templates too large to send inline")
	fs.String(KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	fs.String(KeyContextFile, lookup.DefaultContextFile, "File caching context lookups")
}

// New returns a viper instance reading WEBAPP_* variables and the config file.
// explicitPath overrides the webapp.yaml search in the working directory.
func New(explicitPath string) *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	return v
}

// Bind binds the flag sets to v, reads the config file, and copies values
// from the environment and config file into flags not set on the command
// line. A missing config file is an error only when strict is set.
func Bind(v *viper.Viper, strict bool, flagSets ...*pflag.FlagSet) error {
	for _, fs := range flagSets {
		if err := v.BindPFlags(fs); err != nil {
			return err
		}
	}
	if err := readConfigFile(v, strict); err != nil {
		return err
	}
	var errs []error
	for _, fs := range flagSets {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Changed || !v.IsSet(f.Name) {
				return
			}
			val := fmt.Sprintf("%v", v.Get(f.Name))
			if val == "" {
				return
			}
			if err := f.Value.Set(val); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			}
		})
	}
	return errors.Join(errs...)
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load builds Settings from v.
func Load(v *viper.Viper) Settings {
	def := webapp.DefaultConfig()
	str := func(key, fallback string) string {
		if s := v.GetString(key); s != "" {
			return s
		}
		return fallback
	}
	return Settings{
		Webapp: webapp.Config{
			Domain: webapp.Domain{
				Apex:      str(KeyApex, def.Domain.Apex),
				Subdomain: str(KeySubdomain, def.Domain.Subdomain),
			},
			BuildContext: str(KeyBuildContext, def.BuildContext),
			ImageTag:     str(KeyImageTag, def.ImageTag),
			StackName:    str(KeyStackName, def.StackName),
			HostedZoneID: v.GetString(KeyHostedZoneID),
		},
		Region:      v.GetString(KeyRegion),
		Profile:     v.GetString(KeyProfile),
		AssetBucket: v.GetString(KeyAssetBucket),
		LogLevel:    str(KeyLogLevel, "info"),
		ContextFile: str(KeyContextFile, lookup.DefaultContextFile),
	}
}

// AWS loads the shared AWS configuration for s.
func (s Settings) AWS(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.Region))
	}
	if s.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}
