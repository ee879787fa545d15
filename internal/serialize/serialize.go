// Package serialize converts resource structs into CloudFormation properties and
// finds the logical IDs those properties reference.
package serialize

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-webapp-go"
)

// Resource serializes a resource struct to CloudFormation properties.
// Zero values are omitted, json tags name the properties, and values that
// implement json.Marshaler (intrinsics, AttrRef) are emitted as they marshal.
// Anything other than a struct or struct pointer yields nil.
func Resource(v any) (map[string]any, error) {
	val := reflect.Indirect(reflect.ValueOf(v))
	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	props := make(map[string]any)
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		name := propertyName(field)
		if !field.IsExported() || name == "-" {
			continue
		}
		fv := val.Field(i)
		if omitted(fv) {
			continue
		}
		out, err := value(fv)
		if err != nil {
			return nil, err
		}
		if out != nil {
			props[name] = out
		}
	}
	return props, nil
}

func propertyName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

// omitted reports whether a field is left out of the properties.
func omitted(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Struct:
		if z, ok := v.Interface().(interface{ IsZero() bool }); ok {
			return z.IsZero()
		}
		return false
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.IsZero()
	}
	return false
}

func value(v reflect.Value) (any, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}
	if m, ok := v.Interface().(json.Marshaler); ok {
		return roundTrip(m)
	}

	switch v.Kind() {
	case reflect.Struct:
		return Resource(v.Interface())
	case reflect.Slice:
		if v.Len() == 0 {
			return nil, nil
		}
		list := make([]any, v.Len())
		for i := range list {
			elem, err := value(v.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = elem
		}
		return list, nil
	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			elem, err := value(iter.Value())
			if err != nil {
				return nil, err
			}
			m[iter.Key().String()] = elem
		}
		return m, nil
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return roundTrip(v.Interface())
}

// roundTrip re-decodes v's JSON into plain maps, slices and scalars.
func roundTrip(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var subVarPattern = regexp.MustCompile(`\$\{([^}!][^}]*)\}`)

// References returns the logical IDs referenced from props through Ref,
// Fn::GetAtt and Fn::Sub, and the GetAtt usages among them. Pseudo parameters
// (AWS::*) are ignored. Both results are sorted and de-duplicated.
func References(props map[string]any) ([]string, []wetwire.AttrRefUsage) {
	refs := make(map[string]struct{})
	usages := make(map[wetwire.AttrRefUsage]struct{})
	collectRefs(props, refs, usages)

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]wetwire.AttrRefUsage, 0, len(usages))
	for u := range usages {
		attrs = append(attrs, u)
	}
	sort.Slice(attrs, func(i, j int) bool {
		if attrs[i].ResourceName != attrs[j].ResourceName {
			return attrs[i].ResourceName < attrs[j].ResourceName
		}
		return attrs[i].Attribute < attrs[j].Attribute
	})
	return names, attrs
}

func collectRefs(value any, refs map[string]struct{}, usages map[wetwire.AttrRefUsage]struct{}) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 1 {
			if name, ok := v["Ref"].(string); ok {
				addRef(name, refs)
				return
			}
			if att, ok := v["Fn::GetAtt"]; ok {
				if name, attr := parseGetAtt(att); name != "" {
					addRef(name, refs)
					usages[wetwire.AttrRefUsage{ResourceName: name, Attribute: attr}] = struct{}{}
				}
				return
			}
			if sub, ok := v["Fn::Sub"]; ok {
				collectSub(sub, refs, usages)
				return
			}
		}
		for _, val := range v {
			collectRefs(val, refs, usages)
		}
	case []any:
		for _, elem := range v {
			collectRefs(elem, refs, usages)
		}
	}
}

func collectSub(sub any, refs map[string]struct{}, usages map[wetwire.AttrRefUsage]struct{}) {
	var (
		text string
		vars map[string]any
	)
	switch s := sub.(type) {
	case string:
		text = s
	case []any:
		if len(s) > 0 {
			text, _ = s[0].(string)
		}
		if len(s) > 1 {
			vars, _ = s[1].(map[string]any)
		}
	}
	for _, val := range vars {
		collectRefs(val, refs, usages)
	}
	for _, m := range subVarPattern.FindAllStringSubmatch(text, -1) {
		name, attr, hasAttr := strings.Cut(m[1], ".")
		if _, local := vars[name]; local {
			continue
		}
		if strings.HasPrefix(name, "AWS::") {
			continue
		}
		refs[name] = struct{}{}
		if hasAttr {
			usages[wetwire.AttrRefUsage{ResourceName: name, Attribute: attr}] = struct{}{}
		}
	}
}

func parseGetAtt(att any) (string, string) {
	switch a := att.(type) {
	case []any:
		if len(a) == 2 {
			name, _ := a[0].(string)
			attr, _ := a[1].(string)
			return name, attr
		}
	case []string:
		if len(a) == 2 {
			return a[0], a[1]
		}
	case string:
		name, attr, _ := strings.Cut(a, ".")
		return name, attr
	}
	return "", ""
}

func addRef(name string, refs map[string]struct{}) {
	if name == "" || strings.HasPrefix(name, "AWS::") {
		return
	}
	refs[name] = struct{}{}
}
