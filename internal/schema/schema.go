// Package schema provides offline CloudFormation schema validation.
// It checks the resources of a synthesized template against the schemas of
// the resource types a web application stack declares, and checks string
// values against the service enums shipped with cloudformation-schema-go.
package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/lex00/cloudformation-schema-go/enums"

	wetwire "github.com/lex00/wetwire-webapp-go"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties missing from the schema as warnings.
	Strict bool
}

// Issue is a single schema finding.
type Issue struct {
	Resource string
	Property string
	Message  string
}

func (i Issue) String() string {
	if i.Property == "" {
		return fmt.Sprintf("%s: %s", i.Resource, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.Resource, i.Property, i.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// ValidateTemplate checks every resource of t against its schema. Findings
// are ordered by resource and property.
func ValidateTemplate(t *wetwire.Template, opts Options) *Result {
	c := &checker{opts: opts}
	for _, name := range slices.Sorted(maps.Keys(t.Resources)) {
		c.resource(name, t.Resources[name])
	}
	return &Result{Valid: len(c.errs) == 0, Errors: c.errs, Warnings: c.warnings}
}

type checker struct {
	opts     Options
	errs     []Issue
	warnings []Issue
}

func (c *checker) fail(resource, property, format string, args ...any) {
	c.errs = append(c.errs, Issue{Resource: resource, Property: property, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) warn(resource, property, format string, args ...any) {
	c.warnings = append(c.warnings, Issue{Resource: resource, Property: property, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) resource(name string, res wetwire.ResourceDef) {
	if !isValidResourceType(res.Type) {
		c.fail(name, "Type", "invalid resource type format: %s", res.Type)
		return
	}
	rs, ok := resourceSchemas[res.Type]
	if !ok {
		c.warn(name, "Type", "unknown resource type: %s (schema not available for validation)", res.Type)
		return
	}

	for _, required := range rs.Required {
		if _, ok := res.Properties[required]; !ok {
			c.fail(name, required, "missing required property: %s", required)
		}
	}

	service := enumService(res.Type)
	for _, prop := range slices.Sorted(maps.Keys(res.Properties)) {
		value := res.Properties[prop]
		ps, ok := rs.Properties[prop]
		if !ok {
			if c.opts.Strict {
				c.warn(name, prop, "unknown property: %s", prop)
			}
			continue
		}
		if !isValidType(value, ps.Type) {
			c.fail(name, prop, "expected type %s", ps.Type)
		}
		str, isString := value.(string)
		switch {
		case !isString:
		case len(ps.AllowedValues) > 0:
			if !slices.Contains(ps.AllowedValues, str) {
				c.fail(name, prop, "value %q not in allowed values: %v", str, ps.AllowedValues)
			}
		case service != "":
			if enum, known := knownEnumValue(service, prop, str); !known {
				c.warn(name, prop, "value %q is not a known %s %s", str, service, enum)
			}
		}
	}
}

// isValidResourceType accepts AWS::Service::Resource and Custom::Name.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	return len(parts) == 3 && parts[0] == "AWS"
}

// knownEnumValue reports whether value is valid for the service enum bound
// to property. Properties without an enum accept anything.
func knownEnumValue(service, property, value string) (string, bool) {
	enum := enums.GetEnumForProperty(service, property)
	if enum == "" {
		return "", true
	}
	return enum, enums.IsValidValue(service, enum, value)
}

// enumService maps a resource type to the service name used by the enums
// package.
func enumService(resourceType string) string {
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return ""
	}
	return enumServices[strings.ToLower(parts[1])]
}

var enumServices = map[string]string{
	"lambda":             "lambda",
	"apigateway":         "apigateway",
	"certificatemanager": "acm",
}

// isValidType reports whether value decodes as typ. Json and unknown types
// accept anything.
func isValidType(value any, typ string) bool {
	// Intrinsics resolve at deploy time.
	if m, ok := value.(map[string]any); ok {
		for key := range m {
			if strings.HasPrefix(key, "Fn::") || key == "Ref" {
				return true
			}
		}
	}

	switch typ {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		switch value.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		switch value.(type) {
		case []any, []string:
			return true
		}
		return false
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	}
	return true
}

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
}
