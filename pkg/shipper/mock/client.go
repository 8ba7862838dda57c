// Package mock provides a mock rate provider for testing.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tournevent/machool/pkg/shipper"
)

// Client is a mock rate provider for testing.
type Client struct {
	name      string
	available bool
	rates     []shipper.QuotedRate
	calls     atomic.Int64
}

// New creates a new mock provider that is available and quotes two rates.
func New(name string) *Client {
	return &Client{
		name:      name,
		available: true,
		rates: []shipper.QuotedRate{
			{
				ID:       fmt.Sprintf("%s_express", name),
				Label:    "Express (1 day)",
				Cost:     29.95,
				MetaData: map[string]string{"version": "test"},
			},
			{
				ID:       fmt.Sprintf("%s_standard", name),
				Label:    "Standard (5 days)",
				Cost:     15.82,
				MetaData: map[string]string{"version": "test"},
			},
		},
	}
}

// WithRates replaces the rates the mock quotes.
func (c *Client) WithRates(rates ...shipper.QuotedRate) *Client {
	c.rates = rates
	return c
}

// WithAvailable sets whether the mock is available.
func (c *Client) WithAvailable(available bool) *Client {
	c.available = available
	return c
}

// Calls returns how many times GetRates was invoked.
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// IsAvailable reports the configured availability.
func (c *Client) IsAvailable(ctx context.Context, pkg *shipper.Package) bool {
	return c.available
}

// GetRates returns a sorted copy of the configured rates.
func (c *Client) GetRates(ctx context.Context, pkg *shipper.Package) []shipper.QuotedRate {
	c.calls.Add(1)
	if !c.available {
		return []shipper.QuotedRate{}
	}
	out := make([]shipper.QuotedRate, len(c.rates))
	copy(out, c.rates)
	shipper.SortRatesByCost(out)
	return out
}

var _ shipper.RateProvider = (*Client)(nil)
