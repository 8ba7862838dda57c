package graphql

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

//go:embed schema.graphql
var schemaSDL string

// Request is a GraphQL HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL HTTP response body.
type Response struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors gqlerror.List  `json:"errors,omitempty"`
}

// fieldFunc resolves one root field from its coerced arguments.
type fieldFunc func(ctx context.Context, args map[string]any) (any, error)

// Executor validates operations against the schema and runs root fields
// through the resolver. Results are plain maps and slices projected onto
// the requested selection set.
type Executor struct {
	schema    *ast.Schema
	queries   map[string]fieldFunc
	mutations map[string]fieldFunc
}

// NewExecutor loads the schema and binds the resolver.
func NewExecutor(r *Resolver) (*Executor, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: schemaSDL})
	if err != nil {
		return nil, fmt.Errorf("loading graphql schema: %w", err)
	}
	q := r.Query()
	m := r.Mutation()
	return &Executor{
		schema: schema,
		queries: map[string]fieldFunc{
			"health":         q.Health,
			"providers":      q.Providers,
			"notices":        q.Notices,
			"settingsFields": q.SettingsFields,
			"rates":          q.Rates,
		},
		mutations: map[string]fieldFunc{
			"validateCredentials": m.ValidateCredentials,
		},
	}, nil
}

// Schema returns the parsed schema.
func (e *Executor) Schema() *ast.Schema {
	return e.schema
}

// Execute runs one request. Validation failures produce errors without data.
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	doc, errs := gqlparser.LoadQuery(e.schema, req.Query)
	if len(errs) > 0 {
		return &Response{Errors: errs}
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("operation %q not found", req.OperationName)}}
	}

	vars, err := validator.VariableValues(e.schema, op, req.Variables)
	if err != nil {
		var gqlErr *gqlerror.Error
		if errors.As(err, &gqlErr) {
			return &Response{Errors: gqlerror.List{gqlErr}}
		}
		return &Response{Errors: gqlerror.List{gqlerror.Wrap(err)}}
	}

	roots := e.queries
	if op.Operation == ast.Mutation {
		roots = e.mutations
	} else if op.Operation != ast.Query {
		return &Response{Errors: gqlerror.List{gqlerror.Errorf("%s operations are not supported", op.Operation)}}
	}

	meta := &introspector{schema: e.schema, doc: doc, vars: vars}
	resp := &Response{Data: map[string]any{}}
	for _, f := range collectFields(op.SelectionSet, doc) {
		key := responseKey(f)
		if f.Name == "__typename" {
			resp.Data[key] = f.ObjectDefinition.Name
			continue
		}
		if op.Operation == ast.Query && isIntrospectionField(f.Name) {
			resp.Data[key] = meta.root(f)
			continue
		}
		resolve, ok := roots[f.Name]
		if !ok {
			resp.Errors = append(resp.Errors, gqlerror.Errorf("field %q has no resolver", f.Name))
			resp.Data[key] = nil
			continue
		}
		value, err := resolve(ctx, f.ArgumentMap(vars))
		if err != nil {
			gqlErr := gqlerror.Wrap(err)
			gqlErr.Path = ast.Path{ast.PathName(key)}
			resp.Errors = append(resp.Errors, gqlErr)
			resp.Data[key] = nil
			continue
		}
		resp.Data[key] = project(value, f.SelectionSet, doc)
	}
	return resp
}

// project keeps only the selected fields of maps, recursing into slices.
func project(value any, selection ast.SelectionSet, doc *ast.QueryDocument) any {
	if len(selection) == 0 {
		return value
	}
	switch v := value.(type) {
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = project(item, selection, doc)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = project(item, selection, doc)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(selection))
		for _, f := range collectFields(selection, doc) {
			if f.Name == "__typename" {
				out[responseKey(f)] = f.ObjectDefinition.Name
				continue
			}
			out[responseKey(f)] = project(v[f.Name], f.SelectionSet, doc)
		}
		return out
	default:
		return value
	}
}

// collectFields flattens fragments into the list of selected fields.
func collectFields(set ast.SelectionSet, doc *ast.QueryDocument) []*ast.Field {
	var fields []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			fields = append(fields, s)
		case *ast.InlineFragment:
			fields = append(fields, collectFields(s.SelectionSet, doc)...)
		case *ast.FragmentSpread:
			def := s.Definition
			if def == nil {
				def = doc.Fragments.ForName(s.Name)
			}
			if def != nil {
				fields = append(fields, collectFields(def.SelectionSet, doc)...)
			}
		}
	}
	return fields
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}
