package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-webapp-go/internal/lookup"
	"github.com/lex00/wetwire-webapp-go/internal/webapp"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	return fs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	v := New("")
	require.NoError(t, Bind(v, false, newFlags()))

	s := Load(v)
	def := webapp.DefaultConfig()
	assert.Equal(t, def.Domain, s.Webapp.Domain)
	assert.Equal(t, def.BuildContext, s.Webapp.BuildContext)
	assert.Equal(t, def.ImageTag, s.Webapp.ImageTag)
	assert.Equal(t, def.StackName, s.Webapp.StackName)
	assert.Empty(t, s.Webapp.HostedZoneID)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, lookup.DefaultContextFile, s.ContextFile)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("WEBAPP_APEX", "example.org")
	t.Setenv("WEBAPP_BUILD_CONTEXT", "site")
	t.Setenv("WEBAPP_HOSTED_ZONE_ID", "Z42")

	v := New("")
	fs := newFlags()
	require.NoError(t, Bind(v, false, fs))

	s := Load(v)
	assert.Equal(t, "example.org", s.Webapp.Domain.Apex)
	assert.Equal(t, "site", s.Webapp.BuildContext)
	assert.Equal(t, "Z42", s.Webapp.HostedZoneID)

	// Values are copied into flags that were not set explicitly.
	apex, err := fs.GetString(KeyApex)
	require.NoError(t, err)
	assert.Equal(t, "example.org", apex)
}

func TestLoad_ConfigFileAndPrecedence(t *testing.T) {
	path := writeFile(t, "webapp.yaml", "subdomain: app\nimage-tag: v2\nstack-name: FileStack\nasset-bucket: templates\n")
	t.Setenv("WEBAPP_STACK_NAME", "EnvStack")

	v := New(path)
	fs := newFlags()
	require.NoError(t, fs.Set(KeyImageTag, "v3"))
	require.NoError(t, Bind(v, true, fs))

	s := Load(v)
	assert.Equal(t, "app", s.Webapp.Domain.Subdomain)
	assert.Equal(t, "v3", s.Webapp.ImageTag, "flag beats file")
	assert.Equal(t, "EnvStack", s.Webapp.StackName, "environment beats file")
	assert.Equal(t, "templates", s.AssetBucket)
}

func TestBind_MissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "webapp.yaml")

	err := Bind(New(missing), true, newFlags())
	assert.Error(t, err)
}

func TestBind_InvalidConfigFile(t *testing.T) {
	path := writeFile(t, "webapp.yaml", "apex: [unterminated\n")

	err := Bind(New(path), true, newFlags())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestSettings_AWS(t *testing.T) {
	empty := writeFile(t, "config", "")
	t.Setenv("AWS_CONFIG_FILE", empty)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", empty)
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")

	cfg, err := Settings{Region: "eu-west-1"}.AWS(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	_, err = Settings{Profile: "does-not-exist"}.AWS(context.Background())
	assert.Error(t, err)
}
