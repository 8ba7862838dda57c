package telemetry

import (
	"context"
	"time"

	"github.com/tournevent/machool/pkg/shipper"
)

// quoter is implemented by providers that can explain an empty result.
type quoter interface {
	Quote(ctx context.Context, pkg *shipper.Package) ([]shipper.QuotedRate, error)
}

// InstrumentedProvider records quote metrics around a rate provider.
type InstrumentedProvider struct {
	shipper.RateProvider
	metrics *Metrics
}

// Instrument wraps p so every GetRates call is recorded.
func Instrument(p shipper.RateProvider, m *Metrics) *InstrumentedProvider {
	return &InstrumentedProvider{RateProvider: p, metrics: m}
}

// GetRates forwards to the wrapped provider and records the outcome.
func (p *InstrumentedProvider) GetRates(ctx context.Context, pkg *shipper.Package) []shipper.QuotedRate {
	start := time.Now()
	if !p.IsAvailable(ctx, pkg) {
		p.metrics.RecordQuote(p.Name(), "unavailable", 0, time.Since(start).Seconds())
		return []shipper.QuotedRate{}
	}

	var (
		rates []shipper.QuotedRate
		err   error
	)
	if q, ok := p.RateProvider.(quoter); ok {
		rates, err = q.Quote(ctx, pkg)
		if err != nil || rates == nil {
			rates = []shipper.QuotedRate{}
		}
	} else {
		rates = p.RateProvider.GetRates(ctx, pkg)
	}

	p.metrics.RecordQuote(p.Name(), shipper.Outcome(err), len(rates), time.Since(start).Seconds())
	return rates
}

// Unwrap returns the wrapped provider.
func (p *InstrumentedProvider) Unwrap() shipper.RateProvider {
	return p.RateProvider
}

var _ shipper.RateProvider = (*InstrumentedProvider)(nil)
