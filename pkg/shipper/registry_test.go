package shipper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/machool/pkg/shipper"
	"github.com/tournevent/machool/pkg/shipper/mock"
)

func testPackage() *shipper.Package {
	return &shipper.Package{
		Destination: shipper.Address{
			Country:    "CA",
			PostalCode: "V6B 2W2",
			Province:   "BC",
			City:       "Vancouver",
			Address1:   "456 Oak Ave",
		},
		Contents: []shipper.CartItem{{Weight: 1.5, Quantity: 2}},
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("machool_shipping"))

	got, err := registry.Get("machool_shipping")
	require.NoError(t, err, "provider should be registered")
	assert.Equal(t, "machool_shipping", got.Name())
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("machool_shipping"))
	assert.Equal(t, 1, registry.Count())

	// Same name replaces the previous provider
	registry.Register(mock.New("machool_shipping"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("machool_shipping"))

	registry.Unregister("machool_shipping")

	assert.Equal(t, 0, registry.Count())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := shipper.NewRegistry()

	_, err := registry.Get("nonexistent")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrProviderNotFound))
}

func TestRegistry_NamesSorted(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("machool_shipping:3"))
	registry.Register(mock.New("machool_shipping:1"))
	registry.Register(mock.New("machool_shipping:2"))

	assert.Equal(t, []string{"machool_shipping:1", "machool_shipping:2", "machool_shipping:3"}, registry.Names())
}

func TestRegistry_QuoteFrom_SingleProvider(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("machool_shipping"))
	registry.Register(mock.New("other"))

	rates, errs := registry.QuoteFrom(context.Background(), testPackage(), []string{"machool_shipping"})

	assert.Empty(t, errs)
	require.Len(t, rates, 2)
	assert.Equal(t, 15.82, rates[0].Cost)
	assert.Equal(t, 29.95, rates[1].Cost)
}

func TestRegistry_QuoteAll_MergesAndSorts(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("a").WithRates(
		shipper.QuotedRate{ID: "a_slow", Cost: 30},
		shipper.QuotedRate{ID: "a_fast", Cost: 10},
	))
	registry.Register(mock.New("b").WithRates(
		shipper.QuotedRate{ID: "b_mid", Cost: 20},
		shipper.QuotedRate{ID: "b_tie", Cost: 10},
	))

	rates := registry.QuoteAll(context.Background(), testPackage())

	require.Len(t, rates, 4)
	ids := make([]string, len(rates))
	for i, r := range rates {
		ids[i] = r.ID
	}
	// Provider "a" is merged first, so its 10.00 rate stays ahead of "b"'s.
	assert.Equal(t, []string{"a_fast", "b_tie", "b_mid", "a_slow"}, ids)
}

func TestRegistry_QuoteAll_Empty(t *testing.T) {
	registry := shipper.NewRegistry()

	rates := registry.QuoteAll(context.Background(), testPackage())

	assert.NotNil(t, rates)
	assert.Empty(t, rates)
}

func TestRegistry_QuoteAll_SkipsUnavailable(t *testing.T) {
	registry := shipper.NewRegistry()
	disabled := mock.New("disabled").WithAvailable(false)
	registry.Register(disabled)
	registry.Register(mock.New("enabled"))

	rates := registry.QuoteAll(context.Background(), testPackage())

	assert.Len(t, rates, 2)
	assert.Equal(t, 0, disabled.Calls(), "unavailable providers are not asked for rates")
}

func TestRegistry_QuoteFrom_NotFound(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("machool_shipping"))

	rates, errs := registry.QuoteFrom(context.Background(), testPackage(), []string{"machool_shipping", "nonexistent"})

	assert.Len(t, rates, 2)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], shipper.ErrProviderNotFound))
}
