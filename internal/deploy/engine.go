// Package deploy provisions a staged stack through CloudFormation change sets.
//
// Each stage deploys the cumulative template of every resource provisioned so
// far; the steps gated by a stage run once it has converged, with the stack
// outputs deployed at that point. Resources a later stage owns stay at their
// deployed definition until that stage. A stage whose template is unchanged is
// not executed.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/differ"
	"github.com/lex00/wetwire-webapp-go/internal/serialize"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
	"github.com/lex00/wetwire-webapp-go/internal/template"
)

// MaxInlineTemplateSize is the largest template body CloudFormation accepts
// inline. Larger templates are uploaded to the asset bucket.
const MaxInlineTemplateSize = 51200

// Stage statuses.
const (
	StatusCreated   = "CREATED"
	StatusUpdated   = "UPDATED"
	StatusUnchanged = "UNCHANGED"
)

var (
	// ErrStackFailed is returned when a stack operation rolls back or fails.
	ErrStackFailed = errors.New("stack operation failed")
	// ErrStackNotFound is returned when the named stack does not exist.
	ErrStackNotFound = errors.New("stack not found")
	// ErrTemplateTooLarge is returned when a template exceeds the inline
	// limit and no asset bucket is configured.
	ErrTemplateTooLarge = errors.New("template too large to deploy inline")
)

// CloudFormationAPI is the subset of the CloudFormation client used by Engine.
type CloudFormationAPI interface {
	CreateChangeSet(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error)
	DescribeChangeSet(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error)
	ExecuteChangeSet(ctx context.Context, params *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error)
	DeleteChangeSet(ctx context.Context, params *cloudformation.DeleteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error)
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	DescribeStackEvents(ctx context.Context, params *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error)
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	GetTemplate(ctx context.Context, params *cloudformation.GetTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error)
}

// S3API is the subset of the S3 client used to stage large templates.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Engine deploys and destroys stacks.
type Engine struct {
	cfn          CloudFormationAPI
	s3           S3API
	bucket       string
	log          logr.Logger
	pollInterval time.Duration
	inlineLimit  int
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAssetBucket stages templates larger than MaxInlineTemplateSize in bucket.
func WithAssetBucket(client S3API, bucket string) Option {
	return func(e *Engine) {
		e.s3 = client
		e.bucket = bucket
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPollInterval sets how often change set and stack status is polled.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// New creates an Engine.
func New(cfn CloudFormationAPI, opts ...Option) *Engine {
	e := &Engine{
		cfn:          cfn,
		log:          logr.Discard(),
		pollInterval: 5 * time.Second,
		inlineLimit:  MaxInlineTemplateSize,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deploy provisions s stage by stage, running each stage's steps once it has
// converged.
func (e *Engine) Deploy(ctx context.Context, s *stack.Stack) (*wetwire.DeployResult, error) {
	result := &wetwire.DeployResult{Stack: s.Name}
	fail := func(err error) (*wetwire.DeployResult, error) {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

	stages, err := s.Stages()
	if err != nil {
		return fail(err)
	}

	discovered, err := s.Discovered()
	if err != nil {
		return fail(err)
	}
	deployed, err := e.deployedTemplate(ctx, s.Name)
	if err != nil {
		return fail(err)
	}

	outputs := map[string]string{}
	for _, stage := range stages {
		log := e.log.WithValues("stack", s.Name, "stage", stage.Index)

		include := stack.ResourcesThrough(stages, stage.Index)
		tmpl, err := template.FromStack(s, func(id string) bool { return include[id] })
		if err != nil {
			return fail(fmt.Errorf("stage %d: %w", stage.Index, err))
		}
		holdBack(tmpl, deployed, discovered)
		body, err := template.ToJSON(tmpl)
		if err != nil {
			return fail(fmt.Errorf("stage %d: %w", stage.Index, err))
		}

		log.Info("deploying stage", "resources", len(stage.Resources))
		status, err := e.apply(ctx, s.Name, body)
		if err != nil {
			return fail(fmt.Errorf("stage %d: %w", stage.Index, err))
		}
		log.Info("stage converged", "status", status)

		outputs, err = e.outputs(ctx, s.Name)
		if err != nil {
			return fail(err)
		}

		for _, name := range stage.Steps {
			step, _ := s.Step(name)
			log.Info("running step", "step", name, "kind", step.Kind())
			if err := step.Run(ctx, outputs); err != nil {
				return fail(fmt.Errorf("step %s: %w", name, err))
			}
		}

		result.Stages = append(result.Stages, wetwire.StageResult{
			Index:     stage.Index,
			Resources: stage.Resources,
			Status:    status,
			Steps:     stage.Steps,
		})
	}

	result.Outputs = outputs
	result.Success = true
	return result, nil
}

// holdBack adds to tmpl the deployed definition of every declared resource
// that a later stage owns, with the deployed resources and outputs it needs.
// An early stage then neither removes those resources nor rolls them ahead of
// the step that gates them.
func holdBack(tmpl, deployed *wetwire.Template, discovered map[string]wetwire.DiscoveredResource) {
	if deployed == nil {
		return
	}
	var queue []string
	for _, id := range slices.Sorted(maps.Keys(deployed.Resources)) {
		if _, declared := discovered[id]; declared {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, present := tmpl.Resources[id]; present {
			continue
		}
		def := deployed.Resources[id]
		tmpl.Resources[id] = def
		refs, _ := serialize.References(def.Properties)
		for _, dep := range append(refs, def.DependsOn...) {
			if _, ok := deployed.Resources[dep]; ok {
				queue = append(queue, dep)
			}
		}
	}

	for _, name := range slices.Sorted(maps.Keys(deployed.Outputs)) {
		if _, present := tmpl.Outputs[name]; present {
			continue
		}
		out := deployed.Outputs[name]
		refs, _ := serialize.References(map[string]any{"Value": out.Value})
		if !allPresent(refs, tmpl) {
			continue
		}
		if tmpl.Outputs == nil {
			tmpl.Outputs = make(map[string]wetwire.Output)
		}
		tmpl.Outputs[name] = out
	}
}

func allPresent(ids []string, tmpl *wetwire.Template) bool {
	for _, id := range ids {
		_, resource := tmpl.Resources[id]
		_, param := tmpl.Parameters[id]
		if !resource && !param {
			return false
		}
	}
	return true
}

// deployedTemplate returns the stack's current template, or nil when the
// stack is absent or never finished creating.
func (e *Engine) deployedTemplate(ctx context.Context, name string) (*wetwire.Template, error) {
	current, err := e.describe(ctx, name)
	if errors.Is(err, ErrStackNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	switch status := string(current.StackStatus); {
	case current.StackStatus == types.StackStatusReviewInProgress,
		current.StackStatus == types.StackStatusRollbackComplete,
		strings.HasSuffix(status, "_IN_PROGRESS"):
		return nil, nil
	}
	return e.DeployedTemplate(ctx, name)
}

// apply converges the stack to body and reports what happened.
func (e *Engine) apply(ctx context.Context, name string, body []byte) (string, error) {
	current, err := e.describe(ctx, name)
	if err != nil && !errors.Is(err, ErrStackNotFound) {
		return "", err
	}

	changeSetType := types.ChangeSetTypeUpdate
	switch {
	case current == nil:
		changeSetType = types.ChangeSetTypeCreate
	case current.StackStatus == types.StackStatusReviewInProgress:
		changeSetType = types.ChangeSetTypeCreate
	case current.StackStatus == types.StackStatusRollbackComplete:
		e.log.Info("removing stack left by a failed create", "stack", name)
		if err := e.Destroy(ctx, name); err != nil {
			return "", err
		}
		changeSetType = types.ChangeSetTypeCreate
	case strings.HasSuffix(string(current.StackStatus), "_IN_PROGRESS"):
		return "", fmt.Errorf("stack %s is busy (%s)", name, current.StackStatus)
	}

	input := &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(name),
		ChangeSetName: aws.String(fmt.Sprintf("webapp-%d", e.now().UnixNano())),
		ChangeSetType: changeSetType,
		Capabilities: []types.Capability{
			types.CapabilityCapabilityIam,
			types.CapabilityCapabilityNamedIam,
		},
	}
	if len(body) > e.inlineLimit {
		url, err := e.upload(ctx, name, body)
		if err != nil {
			return "", err
		}
		input.TemplateURL = aws.String(url)
	} else {
		input.TemplateBody = aws.String(string(body))
	}

	created, err := e.cfn.CreateChangeSet(ctx, input)
	if err != nil {
		return "", fmt.Errorf("creating change set: %w", describeAPIError(err))
	}
	changeSetID := aws.ToString(created.Id)

	changed, err := e.waitChangeSet(ctx, name, changeSetID)
	if err != nil {
		return "", err
	}
	if !changed {
		if _, err := e.cfn.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
			StackName:     aws.String(name),
			ChangeSetName: aws.String(changeSetID),
		}); err != nil {
			e.log.V(1).Info("could not delete empty change set", "error", err.Error())
		}
		return StatusUnchanged, nil
	}

	since := e.now()
	if _, err := e.cfn.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
		StackName:     aws.String(name),
		ChangeSetName: aws.String(changeSetID),
	}); err != nil {
		return "", fmt.Errorf("executing change set: %w", describeAPIError(err))
	}

	final, err := e.waitStack(ctx, name)
	if err != nil {
		return "", err
	}
	switch final {
	case types.StackStatusCreateComplete:
		return StatusCreated, nil
	case types.StackStatusUpdateComplete:
		return StatusUpdated, nil
	default:
		return "", e.failure(ctx, name, final, since)
	}
}

// waitChangeSet reports whether the change set contains changes.
func (e *Engine) waitChangeSet(ctx context.Context, name, id string) (bool, error) {
	var changed bool
	err := e.poll(ctx, func() (bool, error) {
		out, err := e.cfn.DescribeChangeSet(ctx, &cloudformation.DescribeChangeSetInput{
			StackName:     aws.String(name),
			ChangeSetName: aws.String(id),
		})
		if err != nil {
			return false, fmt.Errorf("describing change set: %w", describeAPIError(err))
		}
		switch out.Status {
		case types.ChangeSetStatusCreateComplete:
			e.log.V(1).Info("change set ready", "stack", name, "changes", len(out.Changes))
			changed = true
			return true, nil
		case types.ChangeSetStatusFailed:
			reason := aws.ToString(out.StatusReason)
			if isNoChanges(reason) {
				return true, nil
			}
			return false, fmt.Errorf("%w: change set: %s", ErrStackFailed, reason)
		}
		return false, nil
	})
	return changed, err
}

func isNoChanges(reason string) bool {
	return strings.Contains(reason, "didn't contain changes") ||
		strings.Contains(reason, "No updates are to be performed")
}

// waitStack polls until the stack leaves its in-progress state.
func (e *Engine) waitStack(ctx context.Context, name string) (types.StackStatus, error) {
	var status types.StackStatus
	err := e.poll(ctx, func() (bool, error) {
		current, err := e.describe(ctx, name)
		if err != nil {
			return false, err
		}
		status = current.StackStatus
		if strings.HasSuffix(string(status), "_IN_PROGRESS") {
			e.log.V(1).Info("waiting for stack", "stack", name, "status", string(status))
			return false, nil
		}
		return true, nil
	})
	return status, err
}

func (e *Engine) poll(ctx context.Context, check func() (bool, error)) error {
	for {
		done, err := check()
		if err != nil || done {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}

// describe returns the named stack, or ErrStackNotFound.
func (e *Engine) describe(ctx context.Context, name string) (*types.Stack, error) {
	out, err := e.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
		}
		return nil, fmt.Errorf("describing stack %s: %w", name, describeAPIError(err))
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
	}
	return &out.Stacks[0], nil
}

func (e *Engine) outputs(ctx context.Context, name string) (map[string]string, error) {
	current, err := e.describe(ctx, name)
	if err != nil {
		return nil, err
	}
	outputs := make(map[string]string, len(current.Outputs))
	for _, o := range current.Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs, nil
}

// Destroy deletes the named stack and waits for the deletion to finish. A
// stack that does not exist is already destroyed.
func (e *Engine) Destroy(ctx context.Context, name string) error {
	if _, err := e.describe(ctx, name); err != nil {
		if errors.Is(err, ErrStackNotFound) {
			e.log.Info("stack does not exist", "stack", name)
			return nil
		}
		return err
	}

	since := e.now()
	if _, err := e.cfn.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(name)}); err != nil {
		return fmt.Errorf("deleting stack %s: %w", name, describeAPIError(err))
	}
	e.log.Info("deleting stack", "stack", name)

	final, err := e.waitStack(ctx, name)
	if errors.Is(err, ErrStackNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if final == types.StackStatusDeleteComplete {
		return nil
	}
	return e.failure(ctx, name, final, since)
}

// DeployedTemplate returns the template the named stack was deployed with.
func (e *Engine) DeployedTemplate(ctx context.Context, name string) (*wetwire.Template, error) {
	out, err := e.cfn.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(name),
		TemplateStage: types.TemplateStageOriginal,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, name)
		}
		return nil, fmt.Errorf("getting template of %s: %w", name, describeAPIError(err))
	}
	return differ.Parse([]byte(aws.ToString(out.TemplateBody)))
}

// isNotFound matches the ValidationError CloudFormation returns for a
// missing stack.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist")
	}
	return false
}

func describeAPIError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err
}
