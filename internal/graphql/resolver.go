package graphql

import (
	"context"

	"github.com/tournevent/machool/internal/service"
	"github.com/tournevent/machool/internal/settings"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Resolver is the root resolver for the GraphQL schema.
// It holds dependencies needed by all resolvers.
type Resolver struct {
	Service *service.Service
	Logger  *otelzap.Logger
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(svc *service.Service, logger *otelzap.Logger) *Resolver {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Resolver{
		Service: svc,
		Logger:  logger,
	}
}

// Query returns the query resolver.
func (r *Resolver) Query() *queryResolver { return &queryResolver{r} }

// Mutation returns the mutation resolver.
func (r *Resolver) Mutation() *mutationResolver { return &mutationResolver{r} }

type queryResolver struct{ *Resolver }

func (r *queryResolver) Health(ctx context.Context, args map[string]any) (any, error) {
	h := r.Service.Health()
	return map[string]any{
		"status":    h.Status,
		"version":   h.Version,
		"providers": h.Providers,
		"notices":   h.Notices,
	}, nil
}

func (r *queryResolver) Providers(ctx context.Context, args map[string]any) (any, error) {
	infos := r.Service.Providers()
	out := make([]any, len(infos))
	for i, info := range infos {
		out[i] = providerToMap(info)
	}
	return out, nil
}

func (r *queryResolver) Notices(ctx context.Context, args map[string]any) (any, error) {
	list := r.Service.Notices().List()
	out := make([]any, len(list))
	for i, n := range list {
		out[i] = map[string]any{"key": n.Key, "level": n.Level, "message": n.Message}
	}
	return out, nil
}

func (r *queryResolver) SettingsFields(ctx context.Context, args map[string]any) (any, error) {
	fields := settings.FormFields()
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = map[string]any{
			"key":         f.Key,
			"title":       f.Title,
			"type":        f.Type,
			"description": f.Description,
			"placeholder": f.Placeholder,
			"required":    f.Required,
		}
	}
	return out, nil
}

func (r *queryResolver) Rates(ctx context.Context, args map[string]any) (any, error) {
	pkg, err := packageInputToModel(args["package"])
	if err != nil {
		return nil, err
	}
	names := stringList(args["providers"])

	result := r.Service.Quote(ctx, pkg, names)
	r.Logger.Ctx(ctx).Debug("GraphQL rates resolved",
		zap.String("quote_id", result.QuoteID),
		zap.Int("rate_count", len(result.Rates)),
	)
	return quoteResultToMap(result), nil
}

type mutationResolver struct{ *Resolver }

func (r *mutationResolver) ValidateCredentials(ctx context.Context, args map[string]any) (any, error) {
	checks := r.Service.Validate(ctx)
	out := make([]any, len(checks))
	for i, c := range checks {
		out[i] = map[string]any{"provider": c.Provider, "valid": c.Valid}
	}
	return out, nil
}
