package shipper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages the rate providers configured for a store.
// Each configured store account contributes one provider.
type Registry struct {
	providers map[string]RateProvider
	mu        sync.RWMutex
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]RateProvider),
	}
}

// Register adds a provider to the registry, replacing any provider with the same name.
func (r *Registry) Register(p RateProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Unregister removes a provider by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (RateProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

// Names returns the sorted names of all registered providers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// QuoteAll fetches rates from every registered provider in parallel and
// merges them into one list sorted by cost. Providers never fail; an empty
// registry yields an empty list.
func (r *Registry) QuoteAll(ctx context.Context, pkg *Package) []QuotedRate {
	rates, _ := r.QuoteFrom(ctx, pkg, nil)
	return rates
}

// QuoteFrom fetches rates from the named providers in parallel. An empty
// name list means every provider. Unknown names are reported as errors and
// do not affect the other providers.
func (r *Registry) QuoteFrom(ctx context.Context, pkg *Package, names []string) ([]QuotedRate, []error) {
	if len(names) == 0 {
		names = r.Names()
	}

	// Results are slotted by position so the merge order does not depend on scheduling.
	perProvider := make([][]QuotedRate, len(names))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for i, name := range names {
		g.Go(func() error {
			p, err := r.Get(name)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			if !p.IsAvailable(ctx, pkg) {
				return nil
			}
			perProvider[i] = p.GetRates(ctx, pkg)
			return nil
		})
	}

	g.Wait()

	merged := make([]QuotedRate, 0)
	for _, rates := range perProvider {
		merged = append(merged, rates...)
	}
	SortRatesByCost(merged)
	return merged, errs
}
