package service_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/machool/internal/notice"
	"github.com/tournevent/machool/internal/service"
	"github.com/tournevent/machool/internal/telemetry"
	"github.com/tournevent/machool/pkg/shipper"
	"github.com/tournevent/machool/pkg/shipper/machool"
)

const validKey = "0f8fad5b-d9cb-469f-a165-70867728950e"

func newAccount(board *notice.Board, instance int, key string, api *machool.MockAPIClient) *machool.Client {
	return machool.NewWithAPIClient(machool.Config{
		APIKey:      key,
		StoreDomain: "shop.example.com",
		InstanceID:  instance,
		Notices:     board,
	}, api, nil, nil)
}

func testPackage() *shipper.Package {
	return &shipper.Package{
		Destination: shipper.Address{Country: "CA", PostalCode: "H2X 1Y4"},
		Contents:    []shipper.CartItem{{Weight: 2, Quantity: 1}},
	}
}

func TestService_Quote(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	svc := service.New(service.Options{Metrics: metrics, Version: "1.0.0"})
	svc.AddAccount(newAccount(svc.Notices(), 0, validKey, machool.NewMockAPIClient()))

	result := svc.Quote(context.Background(), testPackage(), nil)

	assert.NotEmpty(t, result.QuoteID)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Rates, 3)
	assert.Equal(t, 15.82, result.Rates[0].Cost)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QuotesTotal.WithLabelValues("machool_shipping", "ok")))
}

func TestService_Quote_MultipleAccounts(t *testing.T) {
	svc := service.New(service.Options{})
	svc.AddAccount(newAccount(svc.Notices(), 1, validKey, machool.NewMockAPIClient()))
	svc.AddAccount(newAccount(svc.Notices(), 2, validKey, machool.NewMockAPIClient()))

	result := svc.Quote(context.Background(), testPackage(), nil)

	assert.Len(t, result.Rates, 6)
	for i := 1; i < len(result.Rates); i++ {
		assert.LessOrEqual(t, result.Rates[i-1].Cost, result.Rates[i].Cost)
	}
}

func TestService_Quote_UnknownProvider(t *testing.T) {
	svc := service.New(service.Options{})
	svc.AddAccount(newAccount(svc.Notices(), 0, validKey, machool.NewMockAPIClient()))

	result := svc.Quote(context.Background(), testPackage(), []string{"nope"})

	assert.Empty(t, result.Rates)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "provider not found")
}

func TestService_Validate(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	svc := service.New(service.Options{Metrics: metrics})

	bad := machool.NewMockAPIClient()
	bad.OnValidateToken = func(ctx context.Context, req *machool.TokenRequest) (any, error) {
		return map[string]any{"statusCode": 401}, nil
	}
	svc.AddAccount(newAccount(svc.Notices(), 1, validKey, machool.NewMockAPIClient()))
	svc.AddAccount(newAccount(svc.Notices(), 2, validKey, bad))

	checks := svc.Validate(context.Background())

	assert.Equal(t, []service.CredentialCheck{
		{Provider: "machool_shipping:1", Valid: true},
		{Provider: "machool_shipping:2", Valid: false},
	}, checks)
	assert.Equal(t, 1, svc.Notices().Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CredentialChecks.WithLabelValues("invalid")))

	// Revalidation resets the board, so the notice is still shown once.
	svc.Validate(context.Background())
	assert.Equal(t, 1, svc.Notices().Len())
}

func TestService_ReplaceAccounts(t *testing.T) {
	svc := service.New(service.Options{})
	svc.AddAccount(newAccount(svc.Notices(), 1, validKey, machool.NewMockAPIClient()))
	svc.AddAccount(newAccount(svc.Notices(), 2, validKey, machool.NewMockAPIClient()))

	svc.ReplaceAccounts(newAccount(svc.Notices(), 3, "bad-key", machool.NewMockAPIClient()))

	assert.Equal(t, []string{"machool_shipping:3"}, svc.Registry().Names())
	providers := svc.Providers()
	require.Len(t, providers, 1)
	assert.Equal(t, 3, providers[0].InstanceID)

	checks := svc.Validate(context.Background())
	assert.False(t, checks[0].Valid)
	assert.False(t, svc.Providers()[0].CredentialsValid)
}

func TestService_Health(t *testing.T) {
	svc := service.New(service.Options{Version: "1.2.3"})
	svc.AddAccount(newAccount(svc.Notices(), 0, validKey, machool.NewMockAPIClient()))

	h := svc.Health()

	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "1.2.3", h.Version)
	assert.Equal(t, 1, h.Providers)
	assert.Equal(t, 0, h.Notices)
}
