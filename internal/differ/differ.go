// Package differ compares CloudFormation templates resource by resource.
//
// It backs the diff command, which compares the synthesized stack against a
// template file or against the template of the deployed stack.
package differ

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"reflect"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-webapp-go"
)

// Options configures a comparison.
type Options struct {
	// IgnoreOrder compares lists as multisets.
	IgnoreOrder bool
}

// Result is the difference from a base template to a current one.
type Result struct {
	Diff    wetwire.TemplateDiff
	Summary wetwire.DiffSummary
	// Outputs lists output-level changes ("Url added", "Url modified", ...).
	Outputs []string
}

// Empty reports whether the templates are equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0 && len(r.Outputs) == 0
}

// Compare reports what changes from base to current. Both templates are
// round-tripped through JSON first, so a synthesized template compares equal
// to the same template read back from disk or from CloudFormation.
func Compare(base, current *wetwire.Template, opts Options) (*Result, error) {
	from, err := normalize(base)
	if err != nil {
		return nil, err
	}
	to, err := normalize(current)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, name := range unionKeys(from.Resources, to.Resources) {
		before, inBase := from.Resources[name]
		after, inCurrent := to.Resources[name]
		switch {
		case !inBase:
			result.Diff.Added = append(result.Diff.Added, wetwire.DiffEntry{Resource: name, Type: after.Type})
		case !inCurrent:
			result.Diff.Removed = append(result.Diff.Removed, wetwire.DiffEntry{Resource: name, Type: before.Type})
		default:
			if changes := resourceChanges(before, after, opts); len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, wetwire.DiffEntry{
					Resource: name,
					Type:     before.Type,
					Changes:  changes,
				})
			}
		}
	}
	result.Outputs = outputChanges(from.Outputs, to.Outputs, opts)

	s := &result.Summary
	s.Added, s.Removed, s.Modified = len(result.Diff.Added), len(result.Diff.Removed), len(result.Diff.Modified)
	s.Total = s.Added + s.Removed + s.Modified
	return result, nil
}

// LoadTemplate reads a JSON or YAML template file.
func LoadTemplate(path string) (*wetwire.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a JSON or YAML template body. YAML is re-encoded through JSON
// so both renderings decode identically.
func Parse(data []byte) (*wetwire.Template, error) {
	var t wetwire.Template
	if err := json.Unmarshal(data, &t); err == nil {
		return &t, nil
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("template is neither JSON nor YAML: %w", err)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("re-encoding YAML template: %w", err)
	}
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decoding YAML template: %w", err)
	}
	return &t, nil
}

func normalize(t *wetwire.Template) (*wetwire.Template, error) {
	out := &wetwire.Template{}
	if t == nil {
		return out, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("normalizing template: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("normalizing template: %w", err)
	}
	return out, nil
}

func resourceChanges(before, after wetwire.ResourceDef, opts Options) []string {
	var changes []string
	if before.Type != after.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", before.Type, after.Type))
	}
	changes = append(changes, propertyChanges("", before.Properties, after.Properties, opts)...)

	if !slices.Equal(sorted(before.DependsOn), sorted(after.DependsOn)) {
		changes = append(changes, "DependsOn changed")
	}
	if before.DeletionPolicy != after.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %q → %q", before.DeletionPolicy, after.DeletionPolicy))
	}
	if before.UpdateReplacePolicy != after.UpdateReplacePolicy {
		changes = append(changes, fmt.Sprintf("UpdateReplacePolicy changed: %q → %q", before.UpdateReplacePolicy, after.UpdateReplacePolicy))
	}
	if !equal(before.Metadata, after.Metadata, opts) {
		changes = append(changes, "Metadata changed")
	}
	return changes
}

// propertyChanges walks nested property objects and reports dotted paths.
// Intrinsic function objects are compared as a whole.
func propertyChanges(prefix string, before, after map[string]any, opts Options) []string {
	var changes []string
	for _, key := range unionKeys(before, after) {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		old, hadOld := before[key]
		cur, hasCur := after[key]
		switch {
		case !hadOld:
			changes = append(changes, path+" added")
		case !hasCur:
			changes = append(changes, path+" removed")
		default:
			m1, ok1 := old.(map[string]any)
			m2, ok2 := cur.(map[string]any)
			if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
				changes = append(changes, propertyChanges(path, m1, m2, opts)...)
			} else if !equal(old, cur, opts) {
				changes = append(changes, path+" modified")
			}
		}
	}
	sort.Strings(changes)
	return changes
}

func outputChanges(before, after map[string]wetwire.Output, opts Options) []string {
	var changes []string
	for _, name := range unionKeys(before, after) {
		old, hadOld := before[name]
		cur, hasCur := after[name]
		switch {
		case !hadOld:
			changes = append(changes, name+" added")
		case !hasCur:
			changes = append(changes, name+" removed")
		case !equal(old.Value, cur.Value, opts) || !reflect.DeepEqual(old.Export, cur.Export):
			changes = append(changes, name+" modified")
		}
	}
	sort.Strings(changes)
	return changes
}

// isIntrinsic reports whether m is a single-key intrinsic function object.
func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || k == "Condition" || strings.HasPrefix(k, "Fn::")
	}
	return false
}

func equal(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a, b = unordered(a), unordered(b)
	}
	return reflect.DeepEqual(a, b)
}

// unordered sorts every list in v by its JSON encoding.
func unordered(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = unordered(elem)
		}
		sort.Slice(out, func(i, j int) bool { return sortKey(out[i]) < sortKey(out[j]) })
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = unordered(elem)
		}
		return out
	}
	return v
}

func sortKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func sorted(s []string) []string {
	return slices.Sorted(slices.Values(s))
}

// unionKeys returns the keys of a and b, sorted.
func unionKeys[V any](a, b map[string]V) []string {
	keys := slices.Collect(maps.Keys(a))
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
