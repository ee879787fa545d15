package imagedeploy

import (
	"context"
	"errors"
	"fmt"
)

// StepKind is the kind reported for image deployment steps.
const StepKind = "DockerImageDeployment"

// Step publishes the build context to the stack's repository between
// deployment stages. The repository URI is read from the stack outputs
// deployed by the preceding stage.
type Step struct {
	ID string
	// RepositoryID is the logical ID of the repository the image is pushed to.
	RepositoryID string
	// RepositoryOutput names the stack output holding the repository URI.
	RepositoryOutput string
	ContextDir       string
	Tag              string
	Deployer         *Deployer
}

// Name returns the step identifier.
func (s *Step) Name() string { return s.ID }

// Kind returns StepKind.
func (s *Step) Kind() string { return StepKind }

// Requires returns the repository logical ID.
func (s *Step) Requires() []string { return []string{s.RepositoryID} }

// Run builds and pushes the image.
func (s *Step) Run(ctx context.Context, outputs map[string]string) error {
	if s.Deployer == nil {
		return errors.New("no image deployer configured")
	}
	uri := outputs[s.RepositoryOutput]
	if uri == "" {
		return fmt.Errorf("stack output %s not available", s.RepositoryOutput)
	}
	_, err := s.Deployer.Run(ctx, s.ContextDir, Target{Repository: uri, Tag: s.Tag})
	return err
}
