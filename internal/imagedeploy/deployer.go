package imagedeploy

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/go-logr/logr"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
)

// ECRAPI is the subset of the ECR client used to authenticate pushes.
type ECRAPI interface {
	GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
}

// Target is the registry location an image is published to.
type Target struct {
	// Repository is the repository URI without tag,
	// e.g. 123456789012.dkr.ecr.us-east-1.amazonaws.com/webapp.
	Repository string
	Tag        string
}

// Reference returns repository:tag.
func (t Target) Reference() string {
	return t.Repository + ":" + t.Tag
}

// Result describes a published image.
type Result struct {
	Reference string
	Digest    v1.Hash
}

// Deployer builds a context and pushes the image to a registry.
type Deployer struct {
	builder Builder
	ecr     ECRAPI
	log     logr.Logger
	workDir string
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(d *Deployer) { d.log = log }
}

// WithWorkDir sets the directory image tarballs are written to.
func WithWorkDir(dir string) Option {
	return func(d *Deployer) { d.workDir = dir }
}

// NewDeployer creates a Deployer. A nil ecrClient pushes anonymously.
func NewDeployer(builder Builder, ecrClient ECRAPI, opts ...Option) *Deployer {
	d := &Deployer{
		builder: builder,
		ecr:     ecrClient,
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run builds contextDir, pushes the image to target and verifies the tag.
func (d *Deployer) Run(ctx context.Context, contextDir string, target Target) (*Result, error) {
	if err := ValidateContext(contextDir); err != nil {
		return nil, err
	}
	ref, err := name.NewTag(target.Reference())
	if err != nil {
		return nil, fmt.Errorf("invalid image reference %q: %w", target.Reference(), err)
	}

	workDir, err := os.MkdirTemp(d.workDir, "webapp-image-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)
	tarPath := filepath.Join(workDir, "image.tar")

	localRef := "webapp-stack/" + sanitize(filepath.Base(filepath.Clean(contextDir))) + ":" + target.Tag
	d.log.Info("building image", "context", contextDir, "ref", localRef)
	if err := d.builder.Build(ctx, contextDir, localRef, tarPath); err != nil {
		return nil, err
	}

	img, err := tarball.ImageFromPath(tarPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: loading image tarball: %v", ErrBuildFailed, err)
	}
	want, err := img.Digest()
	if err != nil {
		return nil, fmt.Errorf("%w: computing image digest: %v", ErrBuildFailed, err)
	}

	auth, err := d.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	d.log.Info("pushing image", "ref", ref.String(), "digest", want.String())
	if err := remote.Write(ref, img, remote.WithContext(ctx), remote.WithAuth(auth)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPushRejected, ref, err)
	}

	if err := d.verify(ctx, ref, want, auth); err != nil {
		return nil, err
	}
	return &Result{Reference: ref.String(), Digest: want}, nil
}

// Verify checks that target resolves in the registry. When want is non-zero
// the tag must point at that digest.
func (d *Deployer) Verify(ctx context.Context, target Target, want v1.Hash) error {
	ref, err := name.NewTag(target.Reference())
	if err != nil {
		return fmt.Errorf("invalid image reference %q: %w", target.Reference(), err)
	}
	auth, err := d.authenticate(ctx)
	if err != nil {
		return err
	}
	return d.verify(ctx, ref, want, auth)
}

func (d *Deployer) verify(ctx context.Context, ref name.Tag, want v1.Hash, auth authn.Authenticator) error {
	desc, err := remote.Head(ref, remote.WithContext(ctx), remote.WithAuth(auth))
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrTagNotFound, ref)
		}
		return fmt.Errorf("resolving %s: %w", ref, err)
	}
	if want != (v1.Hash{}) && desc.Digest != want {
		return fmt.Errorf("%w: %s resolves to %s, pushed %s", ErrTagNotFound, ref, desc.Digest, want)
	}
	d.log.V(1).Info("verified image", "ref", ref.String(), "digest", desc.Digest.String())
	return nil
}

// authenticate exchanges an ECR authorization token for registry credentials.
func (d *Deployer) authenticate(ctx context.Context) (authn.Authenticator, error) {
	if d.ecr == nil {
		return authn.Anonymous, nil
	}
	out, err := d.ecr.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, fmt.Errorf("getting ECR authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return nil, errors.New("ECR returned no authorization data")
	}
	raw, err := base64.StdEncoding.DecodeString(*out.AuthorizationData[0].AuthorizationToken)
	if err != nil {
		return nil, fmt.Errorf("decoding ECR authorization token: %w", err)
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, errors.New("malformed ECR authorization token")
	}
	return authn.FromConfig(authn.AuthConfig{Username: user, Password: pass}), nil
}

func sanitize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "context"
	}
	return b.String()
}
