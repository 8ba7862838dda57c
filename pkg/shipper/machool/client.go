// Package machool provides the Machool shipping-rate provider for checkout.
package machool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/machool/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const carrierName = "machool"

// Shipping method metadata shown to store admins.
const (
	MethodID          = "machool_shipping"
	MethodTitle       = "Shipping with Machool"
	MethodDescription = "All enabled providers from your Machool account will be used to generate quotes during checkout."
)

// DefaultVersion is stamped into each rate's meta_data.
const DefaultVersion = "2.0.4"

// AvailabilityFilter lets the host override whether the method is offered
// for a package. available is the method's own enabled state.
type AvailabilityFilter func(ctx context.Context, pkg *shipper.Package, available bool) bool

// StoreConfig holds the store-level settings used to build requests.
type StoreConfig struct {
	Origin     shipper.Address
	Currency   string
	Locale     string
	WeightUnit shipper.WeightUnit
}

// Config holds Machool configuration for one store account.
type Config struct {
	APIKey      string
	StoreDomain string
	BaseURL     string
	InstanceID  int
	Version     string // meta_data version, DefaultVersion when empty
	Timeout     time.Duration
	Disabled    bool
	Debug       bool // Log transport failures
	UseMock     bool // When true, uses mock API client
	Store       StoreConfig

	Notices      NoticeBoard
	Availability AvailabilityFilter
}

// Info describes the shipping method.
type Info struct {
	Name             string `json:"name"`
	ID               string `json:"id"`
	InstanceID       int    `json:"instance_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Version          string `json:"version"`
	StoreDomain      string `json:"store_domain"`
	Enabled          bool   `json:"enabled"`
	CredentialsValid bool   `json:"credentials_valid"`
}

// Client is the Machool rate provider.
// It implements shipper.RateProvider and delegates API calls to the
// underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
	valid     atomic.Bool
}

// New creates a new Machool client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			StoreDomain: cfg.StoreDomain,
			Timeout:     cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new Machool client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Store.WeightUnit == "" {
		cfg.Store.WeightUnit = shipper.WeightKG
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(carrierName)
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the provider name. Instances other than zero are suffixed.
func (c *Client) Name() string {
	if c.config.InstanceID != 0 {
		return fmt.Sprintf("%s:%d", MethodID, c.config.InstanceID)
	}
	return MethodID
}

// Info returns the shipping method metadata.
func (c *Client) Info() Info {
	return Info{
		Name:             c.Name(),
		ID:               MethodID,
		InstanceID:       c.config.InstanceID,
		Title:            MethodTitle,
		Description:      MethodDescription,
		Version:          c.config.Version,
		StoreDomain:      c.config.StoreDomain,
		Enabled:          !c.config.Disabled,
		CredentialsValid: c.CredentialsValid(),
	}
}

// IsAvailable reports whether the method is enabled, after the host filter.
func (c *Client) IsAvailable(ctx context.Context, pkg *shipper.Package) bool {
	available := !c.config.Disabled
	if c.config.Availability != nil {
		return c.config.Availability(ctx, pkg, available)
	}
	return available
}

// GetRates returns Machool rates for pkg sorted by cost.
// Every failure degrades to an empty list.
func (c *Client) GetRates(ctx context.Context, pkg *shipper.Package) []shipper.QuotedRate {
	if !c.IsAvailable(ctx, pkg) {
		return []shipper.QuotedRate{}
	}
	rates, err := c.Quote(ctx, pkg)
	if err != nil {
		return []shipper.QuotedRate{}
	}
	return rates
}

// Quote runs the rate pipeline and reports why no rates were produced.
// Rates are always non-nil. The error is a *shipper.ShipperError.
func (c *Client) Quote(ctx context.Context, pkg *shipper.Package) ([]shipper.QuotedRate, error) {
	quoteID := uuid.New().String()
	ctx, span := c.tracer.Start(ctx, "machool.GetRates",
		trace.WithAttributes(
			attribute.String("machool.quote_id", quoteID),
			attribute.String("machool.provider", c.Name()),
		),
	)
	defer span.End()

	if pkg == nil || pkg.Destination.PostalCode == "" {
		span.SetAttributes(attribute.String("machool.outcome", "unserviceable"))
		return []shipper.QuotedRate{}, shipper.NewShipperError(carrierName, shipper.CodeUnserviceable,
			"destination postcode is empty")
	}

	items := prepareItems(pkg.Contents, c.config.Store.WeightUnit)
	req := c.buildRequest(pkg, items)
	span.SetAttributes(
		attribute.Int("machool.item_count", len(items)),
		attribute.String("machool.destination_country", pkg.Destination.Country),
	)

	resp, err := c.call(ctx, EndpointRates, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate call failed")
		return []shipper.QuotedRate{}, err
	}

	rates, skipped, ok := normalizeRates(resp, c.config.Version)
	span.SetAttributes(
		attribute.Int("machool.rates_returned", len(rates)),
		attribute.Int("machool.rates_skipped", skipped),
	)
	if !ok {
		if obj, isObj := resp.(map[string]any); isObj && !tokenAccepted(obj) {
			return rates, shipper.NewShipperError(carrierName, shipper.CodeInvalidCredentials,
				"rate call rejected")
		}
		return rates, shipper.NewShipperError(carrierName, shipper.CodeMalformedResponse,
			"response has no rates array")
	}
	return rates, nil
}

// call performs one gateway call. Failures are logged only in debug mode.
func (c *Client) call(ctx context.Context, endpoint string, params any) (any, error) {
	ctx, span := c.tracer.Start(ctx, "machool.Call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("machool.endpoint", endpoint)),
	)
	defer span.End()

	resp, err := c.apiClient.Call(ctx, endpoint, params)
	if err != nil {
		var se *shipper.ShipperError
		if !errors.As(err, &se) {
			err = shipper.NewShipperError(carrierName, shipper.CodeTransport, "call failed").WithCause(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		if c.config.Debug {
			c.logger.Ctx(ctx).Warn("Machool API call failed",
				zap.String("url", c.config.BaseURL+endpoint),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return resp, nil
}

// Ensure Client implements shipper.RateProvider
var _ shipper.RateProvider = (*Client)(nil)
