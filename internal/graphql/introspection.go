package graphql

import (
	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/vektah/gqlparser/v2/ast"
)

// introspector resolves __schema and __type selections over gqlgen's
// introspection wrappers. Selections drive the walk, so recursive types
// such as __Type.ofType stay finite.
type introspector struct {
	schema *ast.Schema
	doc    *ast.QueryDocument
	vars   map[string]any
}

func isIntrospectionField(name string) bool {
	return name == "__schema" || name == "__type"
}

func (in *introspector) root(f *ast.Field) any {
	switch f.Name {
	case "__schema":
		return in.schemaObject(introspection.WrapSchema(in.schema), f.SelectionSet)
	case "__type":
		name, _ := f.ArgumentMap(in.vars)["name"].(string)
		def := in.schema.Types[name]
		if def == nil {
			return nil
		}
		return in.typeObject(introspection.WrapTypeFromDef(in.schema, def), f.SelectionSet)
	}
	return nil
}

func (in *introspector) schemaObject(s *introspection.Schema, set ast.SelectionSet) map[string]any {
	out := map[string]any{}
	for _, f := range collectFields(set, in.doc) {
		key := responseKey(f)
		switch f.Name {
		case "__typename":
			out[key] = "__Schema"
		case "description":
			out[key] = s.Description()
		case "types":
			types := s.Types()
			list := make([]any, len(types))
			for i := range types {
				list[i] = in.typeObject(&types[i], f.SelectionSet)
			}
			out[key] = list
		case "queryType":
			out[key] = in.typeObject(s.QueryType(), f.SelectionSet)
		case "mutationType":
			out[key] = in.typeObject(s.MutationType(), f.SelectionSet)
		case "subscriptionType":
			out[key] = in.typeObject(s.SubscriptionType(), f.SelectionSet)
		case "directives":
			dirs := s.Directives()
			list := make([]any, len(dirs))
			for i := range dirs {
				list[i] = in.directiveObject(&dirs[i], f.SelectionSet)
			}
			out[key] = list
		}
	}
	return out
}

// typeObject returns nil for a nil type so absent roots and ofType end as null.
func (in *introspector) typeObject(t *introspection.Type, set ast.SelectionSet) any {
	if t == nil {
		return nil
	}
	out := map[string]any{}
	for _, f := range collectFields(set, in.doc) {
		key := responseKey(f)
		switch f.Name {
		case "__typename":
			out[key] = "__Type"
		case "kind":
			out[key] = t.Kind()
		case "name":
			out[key] = t.Name()
		case "description":
			out[key] = t.Description()
		case "specifiedByURL":
			out[key] = t.SpecifiedByURL()
		case "isOneOf":
			out[key] = t.IsOneOf()
		case "fields":
			if !hasFields(t) {
				out[key] = nil
				continue
			}
			fields := t.Fields(in.includeDeprecated(f))
			list := make([]any, len(fields))
			for i := range fields {
				list[i] = in.fieldObject(&fields[i], f.SelectionSet)
			}
			out[key] = list
		case "inputFields":
			if t.Kind() != "INPUT_OBJECT" {
				out[key] = nil
				continue
			}
			out[key] = in.inputValues(t.InputFields(), f.SelectionSet)
		case "interfaces":
			out[key] = in.typeList(t.Interfaces(), f.SelectionSet)
		case "possibleTypes":
			out[key] = in.typeList(t.PossibleTypes(), f.SelectionSet)
		case "enumValues":
			if t.Kind() != "ENUM" {
				out[key] = nil
				continue
			}
			values := t.EnumValues(in.includeDeprecated(f))
			list := make([]any, len(values))
			for i := range values {
				list[i] = in.enumValueObject(&values[i], f.SelectionSet)
			}
			out[key] = list
		case "ofType":
			out[key] = in.typeObject(t.OfType(), f.SelectionSet)
		}
	}
	return out
}

func hasFields(t *introspection.Type) bool {
	kind := t.Kind()
	return kind == "OBJECT" || kind == "INTERFACE"
}

func (in *introspector) typeList(types []introspection.Type, set ast.SelectionSet) any {
	if types == nil {
		return nil
	}
	list := make([]any, len(types))
	for i := range types {
		list[i] = in.typeObject(&types[i], set)
	}
	return list
}

func (in *introspector) fieldObject(fd *introspection.Field, set ast.SelectionSet) map[string]any {
	out := map[string]any{}
	for _, f := range collectFields(set, in.doc) {
		key := responseKey(f)
		switch f.Name {
		case "__typename":
			out[key] = "__Field"
		case "name":
			out[key] = fd.Name
		case "description":
			out[key] = fd.Description()
		case "args":
			out[key] = in.inputValues(fd.Args, f.SelectionSet)
		case "type":
			out[key] = in.typeObject(fd.Type, f.SelectionSet)
		case "isDeprecated":
			out[key] = fd.IsDeprecated()
		case "deprecationReason":
			out[key] = fd.DeprecationReason()
		}
	}
	return out
}

func (in *introspector) inputValues(values []introspection.InputValue, set ast.SelectionSet) []any {
	list := make([]any, len(values))
	for i := range values {
		list[i] = in.inputValueObject(&values[i], set)
	}
	return list
}

func (in *introspector) inputValueObject(v *introspection.InputValue, set ast.SelectionSet) map[string]any {
	out := map[string]any{}
	for _, f := range collectFields(set, in.doc) {
		key := responseKey(f)
		switch f.Name {
		case "__typename":
			out[key] = "__InputValue"
		case "name":
			out[key] = v.Name
		case "description":
			out[key] = v.Description()
		case "type":
			out[key] = in.typeObject(v.Type, f.SelectionSet)
		case "defaultValue":
			out[key] = v.DefaultValue
		case "isDeprecated":
			out[key] = v.IsDeprecated()
		case "deprecationReason":
			out[key] = v.DeprecationReason()
		}
	}
	return out
}

func (in *introspector) enumValueObject(v *introspection.EnumValue, set ast.SelectionSet) map[string]any {
	out := map[string]any{}
	for _, f := range collectFields(set, in.doc) {
		key := responseKey(f)
		switch f.Name {
		case "__typename":
			out[key] = "__EnumValue"
		case "name":
			out[key] = v.Name
		case "description":
			out[key] = v.Description()
		case "isDeprecated":
			out[key] = v.IsDeprecated()
		case "deprecationReason":
			out[key] = v.DeprecationReason()
		}
	}
	return out
}

func (in *introspector) directiveObject(d *introspection.Directive, set ast.SelectionSet) map[string]any {
	out := map[string]any{}
	for _, f := range collectFields(set, in.doc) {
		key := responseKey(f)
		switch f.Name {
		case "__typename":
			out[key] = "__Directive"
		case "name":
			out[key] = d.Name
		case "description":
			out[key] = d.Description()
		case "locations":
			out[key] = d.Locations
		case "args":
			out[key] = in.inputValues(d.Args, f.SelectionSet)
		case "isRepeatable":
			out[key] = d.IsRepeatable
		}
	}
	return out
}

// includeDeprecated reads the includeDeprecated argument, false by default.
func (in *introspector) includeDeprecated(f *ast.Field) bool {
	v, _ := f.ArgumentMap(in.vars)["includeDeprecated"].(bool)
	return v
}
