// Package mcptools exposes the shipping-rate service as MCP tools, so agents
// can quote checkout rates and check store credentials.
package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/machool/internal/service"
	"github.com/tournevent/machool/pkg/shipper"
	"github.com/tournevent/machool/pkg/shipper/machool"
)

// AddressInput is the destination of a quote.
type AddressInput struct {
	Country  string `json:"country,omitempty" jsonschema:"ISO 3166-1 alpha-2 country code"`
	Postcode string `json:"postcode,omitempty" jsonschema:"destination postal code; no rates are quoted without it"`
	State    string `json:"state,omitempty" jsonschema:"province or state code"`
	City     string `json:"city,omitempty" jsonschema:"city"`
	Address1 string `json:"address_1,omitempty" jsonschema:"first address line"`
	Address2 string `json:"address_2,omitempty" jsonschema:"second address line"`
}

// ItemInput is one cart line.
type ItemInput struct {
	Name     string  `json:"name,omitempty" jsonschema:"product name"`
	Weight   float64 `json:"weight,omitempty" jsonschema:"weight of one unit in the store weight unit"`
	Quantity int     `json:"quantity,omitempty" jsonschema:"number of units, defaults to 1"`
}

// QuoteInput is the input schema for quote_shipping_rates.
type QuoteInput struct {
	Destination AddressInput `json:"destination" jsonschema:"checkout destination"`
	Items       []ItemInput  `json:"items" jsonschema:"cart lines"`
	Providers   []string     `json:"providers,omitempty" jsonschema:"provider names to ask, every provider when empty"`
}

// QuoteOutput is the result of quote_shipping_rates.
type QuoteOutput struct {
	QuoteID string               `json:"quote_id"`
	Rates   []shipper.QuotedRate `json:"rates"`
	Errors  []string             `json:"errors"`
}

// ValidateInput is the input schema for validate_credentials.
type ValidateInput struct{}

// ValidateOutput is the result of validate_credentials.
type ValidateOutput struct {
	Checks  []service.CredentialCheck `json:"checks"`
	Notices []string                  `json:"notices"`
}

// ProvidersInput is the input schema for list_providers.
type ProvidersInput struct{}

// ProvidersOutput is the result of list_providers.
type ProvidersOutput struct {
	Providers []machool.Info `json:"providers"`
}

// Tools binds the MCP tool handlers to a service.
type Tools struct {
	svc     *service.Service
	logger  *otelzap.Logger
	version string
}

// New creates the tool set.
func New(svc *service.Service, logger *otelzap.Logger, version string) *Tools {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if version == "" {
		version = "dev"
	}
	return &Tools{svc: svc, logger: logger, version: version}
}

// NewServer creates an MCP server with the shipping tools registered.
func (t *Tools) NewServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "machool-shipping",
			Version: t.version,
		},
		&mcp.ServerOptions{
			Instructions: "Machool shipping rates for a WooCommerce store. " +
				"Quote a package to get checkout-ready rates sorted by cost.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "quote_shipping_rates",
		Description: "Quote shipping rates for a package. Rates are sorted ascending by cost; failures yield no rates.",
	}, t.quote)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_credentials",
		Description: "Check every configured store account against the Machool token endpoint and report admin notices.",
	}, t.validate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_providers",
		Description: "List the configured Machool shipping methods.",
	}, t.providers)

	return server
}

// Handler returns an HTTP handler for the MCP endpoint.
func (t *Tools) Handler() http.Handler {
	server := t.NewServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

func (t *Tools) quote(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input QuoteInput,
) (*mcp.CallToolResult, *QuoteOutput, error) {
	pkg := &shipper.Package{
		Destination: shipper.Address{
			Country:    input.Destination.Country,
			PostalCode: input.Destination.Postcode,
			Province:   input.Destination.State,
			City:       input.Destination.City,
			Address1:   input.Destination.Address1,
			Address2:   input.Destination.Address2,
		},
		Contents: make([]shipper.CartItem, 0, len(input.Items)),
	}
	for _, item := range input.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		pkg.Contents = append(pkg.Contents, shipper.CartItem{
			Name:     item.Name,
			Weight:   item.Weight,
			Quantity: qty,
		})
	}

	result := t.svc.Quote(ctx, pkg, input.Providers)
	t.logger.Ctx(ctx).Debug("MCP quote",
		zap.String("quote_id", result.QuoteID),
		zap.Int("rate_count", len(result.Rates)),
	)

	out := &QuoteOutput{
		QuoteID: result.QuoteID,
		Rates:   result.Rates,
		Errors:  result.Errors,
	}
	if out.Rates == nil {
		out.Rates = []shipper.QuotedRate{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	return nil, out, nil
}

func (t *Tools) validate(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ValidateInput,
) (*mcp.CallToolResult, *ValidateOutput, error) {
	checks := t.svc.Validate(ctx)
	notices := t.svc.Notices().List()

	out := &ValidateOutput{
		Checks:  checks,
		Notices: make([]string, 0, len(notices)),
	}
	for _, n := range notices {
		out.Notices = append(out.Notices, n.Message)
	}
	return nil, out, nil
}

func (t *Tools) providers(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProvidersInput,
) (*mcp.CallToolResult, *ProvidersOutput, error) {
	return nil, &ProvidersOutput{Providers: t.svc.Providers()}, nil
}
