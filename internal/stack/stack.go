// Package stack holds a declared resource graph: CloudFormation resources,
// provisioning steps that run outside the template, and the edges between them.
package stack

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/serialize"
)

// Deletion policies.
const (
	PolicyDelete   = "Delete"
	PolicyRetain   = "Retain"
	PolicySnapshot = "Snapshot"
)

var (
	// ErrDuplicate is returned when a logical ID is declared twice.
	ErrDuplicate = errors.New("duplicate logical ID")
	// ErrUnknownDependency is returned when an edge names an undeclared ID.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrCycle is returned when the declared edges form a cycle.
	ErrCycle = errors.New("circular dependency detected")

	logicalIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,255}$`)
)

// Step is a provisioning action that is not a template resource. Resources
// that declare DependsOn(step) are not provisioned before the step completes.
type Step interface {
	// Name is the step identifier, unique among resources and steps.
	Name() string
	// Kind describes the step (e.g. "DockerImageDeployment").
	Kind() string
	// Requires lists the logical IDs that must exist before the step runs.
	Requires() []string
	// Run performs the step. outputs holds the stack outputs deployed so far.
	Run(ctx context.Context, outputs map[string]string) error
}

// Option configures a declared resource.
type Option func(*entry)

// DependsOn adds explicit edges to resources or steps.
func DependsOn(ids ...string) Option {
	return func(e *entry) {
		e.dependsOn = append(e.dependsOn, ids...)
	}
}

// WithDeletionPolicy sets both DeletionPolicy and UpdateReplacePolicy.
func WithDeletionPolicy(policy string) Option {
	return func(e *entry) {
		e.deletionPolicy = policy
		e.updateReplacePolicy = policy
	}
}

// WithMetadata attaches a resource Metadata entry.
func WithMetadata(key string, value any) Option {
	return func(e *entry) {
		if e.metadata == nil {
			e.metadata = make(map[string]any)
		}
		e.metadata[key] = value
	}
}

type entry struct {
	resource            wetwire.Resource
	dependsOn           []string
	deletionPolicy      string
	updateReplacePolicy string
	metadata            map[string]any
}

// Attributes are the resource-level template attributes of a declaration.
type Attributes struct {
	DeletionPolicy      string
	UpdateReplacePolicy string
	Metadata            map[string]any
}

// Stack is a named resource graph.
type Stack struct {
	Name        string
	Description string

	order     []string
	entries   map[string]*entry
	steps     []Step
	stepIndex map[string]Step
	outputs   map[string]wetwire.Output
	params    map[string]wetwire.Parameter
}

// New creates an empty stack.
func New(name, description string) *Stack {
	return &Stack{
		Name:        name,
		Description: description,
		entries:     make(map[string]*entry),
		stepIndex:   make(map[string]Step),
		outputs:     make(map[string]wetwire.Output),
		params:      make(map[string]wetwire.Parameter),
	}
}

// Add declares a resource under logicalID.
func (s *Stack) Add(logicalID string, r wetwire.Resource, opts ...Option) error {
	if err := s.checkNewID(logicalID); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%s: nil resource", logicalID)
	}
	e := &entry{resource: r}
	for _, opt := range opts {
		opt(e)
	}
	s.entries[logicalID] = e
	s.order = append(s.order, logicalID)
	return nil
}

// AddStep declares a provisioning step.
func (s *Stack) AddStep(step Step) error {
	if err := s.checkNewID(step.Name()); err != nil {
		return err
	}
	s.steps = append(s.steps, step)
	s.stepIndex[step.Name()] = step
	return nil
}

// AddOutput declares a stack output.
func (s *Stack) AddOutput(name string, out wetwire.Output) error {
	if !logicalIDPattern.MatchString(name) {
		return fmt.Errorf("invalid output name %q", name)
	}
	if _, exists := s.outputs[name]; exists {
		return fmt.Errorf("output %s: %w", name, ErrDuplicate)
	}
	s.outputs[name] = out
	return nil
}

// AddParameter declares a template parameter. Parameters share the logical ID
// namespace with resources.
func (s *Stack) AddParameter(name string, p wetwire.Parameter) error {
	if err := s.checkNewID(name); err != nil {
		return err
	}
	if p.Type == "" {
		p.Type = "String"
	}
	s.params[name] = p
	return nil
}

func (s *Stack) checkNewID(id string) error {
	if !logicalIDPattern.MatchString(id) {
		return fmt.Errorf("invalid logical ID %q: must be 1-255 alphanumeric characters", id)
	}
	if _, exists := s.entries[id]; exists {
		return fmt.Errorf("%s: %w", id, ErrDuplicate)
	}
	if _, exists := s.stepIndex[id]; exists {
		return fmt.Errorf("%s: %w", id, ErrDuplicate)
	}
	if _, exists := s.params[id]; exists {
		return fmt.Errorf("%s: %w", id, ErrDuplicate)
	}
	return nil
}

// Names returns resource logical IDs in declaration order.
func (s *Stack) Names() []string {
	return append([]string(nil), s.order...)
}

// Resource returns the resource declared under logicalID.
func (s *Stack) Resource(logicalID string) (wetwire.Resource, bool) {
	e, ok := s.entries[logicalID]
	if !ok {
		return nil, false
	}
	return e.resource, true
}

// Attributes returns the template attributes of a declared resource.
func (s *Stack) Attributes(logicalID string) Attributes {
	e, ok := s.entries[logicalID]
	if !ok {
		return Attributes{}
	}
	return Attributes{
		DeletionPolicy:      e.deletionPolicy,
		UpdateReplacePolicy: e.updateReplacePolicy,
		Metadata:            e.metadata,
	}
}

// Steps returns the declared steps in declaration order.
func (s *Stack) Steps() []Step {
	return append([]Step(nil), s.steps...)
}

// Step returns the step declared under name.
func (s *Stack) Step(name string) (Step, bool) {
	step, ok := s.stepIndex[name]
	return step, ok
}

// Outputs returns the declared outputs.
func (s *Stack) Outputs() map[string]wetwire.Output {
	out := make(map[string]wetwire.Output, len(s.outputs))
	for k, v := range s.outputs {
		out[k] = v
	}
	return out
}

// Parameters returns the declared parameters.
func (s *Stack) Parameters() map[string]wetwire.Parameter {
	out := make(map[string]wetwire.Parameter, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// Properties serializes the resource declared under logicalID.
func (s *Stack) Properties(logicalID string) (map[string]any, error) {
	e, ok := s.entries[logicalID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", logicalID, ErrUnknownDependency)
	}
	props, err := serialize.Resource(e.resource)
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", logicalID, err)
	}
	if props == nil {
		props = map[string]any{}
	}
	return props, nil
}

// Discovered resolves every resource's dependency set: references found in
// its properties plus its explicit DependsOn edges.
func (s *Stack) Discovered() (map[string]wetwire.DiscoveredResource, error) {
	result := make(map[string]wetwire.DiscoveredResource, len(s.entries))
	for _, name := range s.order {
		e := s.entries[name]
		props, err := s.Properties(name)
		if err != nil {
			return nil, err
		}
		refs, usages := serialize.References(props)

		deps := make(map[string]struct{})
		for _, ref := range refs {
			if _, isParam := s.params[ref]; isParam {
				continue
			}
			if _, ok := s.entries[ref]; !ok {
				return nil, fmt.Errorf("%s references %s: %w", name, ref, ErrUnknownDependency)
			}
			deps[ref] = struct{}{}
		}
		for _, dep := range e.dependsOn {
			if !s.has(dep) {
				return nil, fmt.Errorf("%s depends on %s: %w", name, dep, ErrUnknownDependency)
			}
			deps[dep] = struct{}{}
		}

		result[name] = wetwire.DiscoveredResource{
			Name:          name,
			Type:          e.resource.ResourceType(),
			Dependencies:  sortedKeys(deps),
			DependsOn:     dedupe(e.dependsOn),
			AttrRefUsages: usages,
		}
	}
	return result, nil
}

// DiscoveredSteps describes the declared steps.
func (s *Stack) DiscoveredSteps() []wetwire.DiscoveredStep {
	out := make([]wetwire.DiscoveredStep, 0, len(s.steps))
	for _, step := range s.steps {
		out = append(out, wetwire.DiscoveredStep{
			Name:         step.Name(),
			Kind:         step.Kind(),
			Dependencies: dedupe(step.Requires()),
		})
	}
	return out
}

func (s *Stack) has(id string) bool {
	if _, ok := s.entries[id]; ok {
		return true
	}
	_, ok := s.stepIndex[id]
	return ok
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
