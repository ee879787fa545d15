// Package template provides CloudFormation template building from a declared stack.
package template

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/serialize"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

var resourceTypePattern = regexp.MustCompile(`^[A-Za-z0-9]+::[A-Za-z0-9]+::[A-Za-z0-9]+$`)

// Builder constructs CloudFormation templates from discovered resources.
type Builder struct {
	description string
	resources   map[string]wetwire.DiscoveredResource
	values      map[string]map[string]any
	attributes  map[string]stack.Attributes
	parameters  map[string]wetwire.Parameter
	outputs     map[string]wetwire.Output
}

// NewBuilder creates a template builder from discovered resources.
func NewBuilder(resources map[string]wetwire.DiscoveredResource) *Builder {
	return &Builder{
		resources:  resources,
		values:     make(map[string]map[string]any),
		attributes: make(map[string]stack.Attributes),
		parameters: make(map[string]wetwire.Parameter),
		outputs:    make(map[string]wetwire.Output),
	}
}

// SetDescription sets the template Description.
func (b *Builder) SetDescription(desc string) {
	b.description = desc
}

// SetValue associates serialized properties with a resource's logical name.
func (b *Builder) SetValue(name string, props map[string]any) {
	b.values[name] = props
}

// SetAttributes sets DeletionPolicy, UpdateReplacePolicy and Metadata for a resource.
func (b *Builder) SetAttributes(name string, attrs stack.Attributes) {
	b.attributes[name] = attrs
}

// AddParameter adds a template parameter.
func (b *Builder) AddParameter(name string, p wetwire.Parameter) {
	b.parameters[name] = p
}

// AddOutput adds a template output.
func (b *Builder) AddOutput(name string, out wetwire.Output) {
	b.outputs[name] = out
}

// Build constructs the CloudFormation template.
func (b *Builder) Build() (*wetwire.Template, error) {
	order, err := b.order()
	if err != nil {
		return nil, err
	}

	template := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]wetwire.ResourceDef),
	}

	if len(b.parameters) > 0 {
		template.Parameters = make(map[string]wetwire.Parameter, len(b.parameters))
		for name, p := range b.parameters {
			template.Parameters[name] = p
		}
	}

	for _, name := range order {
		res := b.resources[name]
		if !resourceTypePattern.MatchString(res.Type) {
			return nil, fmt.Errorf("unknown resource type: %q (%s)", res.Type, name)
		}

		props, _ := clone(b.values[name]).(map[string]any)
		attrs := b.attributes[name]

		template.Resources[name] = wetwire.ResourceDef{
			Type:                res.Type,
			Properties:          props,
			DependsOn:           b.explicitDependsOn(res),
			DeletionPolicy:      attrs.DeletionPolicy,
			UpdateReplacePolicy: attrs.UpdateReplacePolicy,
			Metadata:            attrs.Metadata,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]wetwire.Output, len(b.outputs))
		for name, out := range b.outputs {
			template.Outputs[name] = out
		}
	}

	return template, nil
}

// explicitDependsOn keeps the declared DependsOn edges that name resources
// present in this template. Edges to steps are satisfied by staging and never
// reach CloudFormation.
func (b *Builder) explicitDependsOn(res wetwire.DiscoveredResource) []string {
	var deps []string
	for _, dep := range res.DependsOn {
		if _, ok := b.resources[dep]; ok {
			deps = append(deps, dep)
		}
	}
	sort.Strings(deps)
	return deps
}

// clone deep-copies a property tree so the template never aliases the
// caller's maps.
func clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return nil
		}
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = clone(elem)
		}
		return out
	}
	return value
}

// order returns the logical IDs with every resource after its dependencies,
// visiting names alphabetically. Dependencies outside the builder are ignored.
func (b *Builder) order() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(b.resources))
	out := make([]string, 0, len(b.resources))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			start := slices.Index(path, id)
			cycle := append(slices.Clone(path[start:]), id)
			return fmt.Errorf("%w: %s", stack.ErrCycle, strings.Join(cycle, " → "))
		}
		state[id] = visiting
		path = append(path, id)
		for _, dep := range slices.Sorted(slices.Values(b.resources[id].Dependencies)) {
			if _, ok := b.resources[dep]; !ok {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[id] = done
		out = append(out, id)
		return nil
	}

	for _, id := range slices.Sorted(maps.Keys(b.resources)) {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FromStack synthesizes a template from s. When include is non-nil only the
// resources it accepts are emitted, and outputs referencing excluded
// resources are dropped; every included resource must have its resource
// dependencies included too.
func FromStack(s *stack.Stack, include func(id string) bool) (*wetwire.Template, error) {
	discovered, err := s.Discovered()
	if err != nil {
		return nil, err
	}

	subset := make(map[string]wetwire.DiscoveredResource, len(discovered))
	for id, res := range discovered {
		if include == nil || include(id) {
			subset[id] = res
		}
	}
	for id, res := range subset {
		for _, dep := range res.Dependencies {
			if _, isStep := s.Step(dep); isStep {
				continue
			}
			if _, ok := subset[dep]; !ok {
				return nil, fmt.Errorf("%s depends on %s, which is not part of this template", id, dep)
			}
		}
	}

	builder := NewBuilder(subset)
	builder.SetDescription(s.Description)
	for id := range subset {
		props, err := s.Properties(id)
		if err != nil {
			return nil, err
		}
		builder.SetValue(id, props)
		builder.SetAttributes(id, s.Attributes(id))
	}
	params := s.Parameters()
	for name, p := range params {
		builder.AddParameter(name, p)
	}

	for name, out := range s.Outputs() {
		refs, err := outputReferences(out)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", name, err)
		}
		keep := true
		for _, ref := range refs {
			if _, isParam := params[ref]; isParam {
				continue
			}
			if _, declared := discovered[ref]; !declared {
				return nil, fmt.Errorf("output %s references %s: %w", name, ref, stack.ErrUnknownDependency)
			}
			if _, ok := subset[ref]; !ok {
				keep = false
			}
		}
		if keep {
			builder.AddOutput(name, out)
		}
	}

	return builder.Build()
}

func outputReferences(out wetwire.Output) ([]string, error) {
	data, err := json.Marshal(out.Value)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	refs, _ := serialize.References(map[string]any{"Value": value})
	return refs, nil
}

// ToJSON serializes the template to JSON.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML. The template is normalized through
// JSON first so intrinsics render as their Fn:: forms.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}
