// Package service ties Machool store accounts to the host surfaces: it owns
// the provider registry, the admin notice board and the quote metrics.
package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/tournevent/machool/internal/notice"
	"github.com/tournevent/machool/internal/telemetry"
	"github.com/tournevent/machool/pkg/shipper"
	"github.com/tournevent/machool/pkg/shipper/machool"
)

// Options holds the service dependencies.
type Options struct {
	Registry *shipper.Registry
	Notices  *notice.Board
	Metrics  *telemetry.Metrics
	Logger   *otelzap.Logger
	Tracer   trace.Tracer
	Version  string
}

// Service is the host-side checkout integration.
type Service struct {
	registry *shipper.Registry
	notices  *notice.Board
	metrics  *telemetry.Metrics
	logger   *otelzap.Logger
	tracer   trace.Tracer
	version  string

	mu       sync.RWMutex
	accounts map[string]*machool.Client
}

// QuoteResult is the merged answer to a quote request.
type QuoteResult struct {
	QuoteID string               `json:"quoteId"`
	Rates   []shipper.QuotedRate `json:"rates"`
	Errors  []string             `json:"errors"`
}

// CredentialCheck is the validation result of one account.
type CredentialCheck struct {
	Provider string `json:"provider"`
	Valid    bool   `json:"valid"`
}

// Health summarizes the service state.
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Providers int    `json:"providers"`
	Notices   int    `json:"notices"`
}

// New creates a service. Missing dependencies get working defaults.
func New(opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = shipper.NewRegistry()
	}
	if opts.Notices == nil {
		opts.Notices = notice.NewBoard()
	}
	if opts.Logger == nil {
		opts.Logger = otelzap.New(zap.NewNop())
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("service")
	}
	return &Service{
		registry: opts.Registry,
		notices:  opts.Notices,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		version:  opts.Version,
		accounts: make(map[string]*machool.Client),
	}
}

// Notices returns the board the accounts post to.
func (s *Service) Notices() *notice.Board {
	return s.notices
}

// Registry returns the provider registry.
func (s *Service) Registry() *shipper.Registry {
	return s.registry
}

// AddAccount registers a store account as a rate provider.
func (s *Service) AddAccount(c *machool.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(c)
}

// ReplaceAccounts swaps every registered account for the given ones, as
// happens when the admin saves new settings.
func (s *Service) ReplaceAccounts(clients ...*machool.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.accounts {
		s.registry.Unregister(name)
		delete(s.accounts, name)
	}
	for _, c := range clients {
		s.addLocked(c)
	}
}

func (s *Service) addLocked(c *machool.Client) {
	s.accounts[c.Name()] = c
	if s.metrics != nil {
		s.registry.Register(telemetry.Instrument(c, s.metrics))
		return
	}
	s.registry.Register(c)
}

func (s *Service) sortedAccounts() []*machool.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*machool.Client, 0, len(s.accounts))
	for _, c := range s.accounts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Validate clears the notice board and revalidates every account.
func (s *Service) Validate(ctx context.Context) []CredentialCheck {
	s.notices.Reset()

	accounts := s.sortedAccounts()
	checks := make([]CredentialCheck, 0, len(accounts))
	for _, c := range accounts {
		valid := c.ValidateCredentials(ctx)
		if s.metrics != nil {
			s.metrics.RecordCredentialCheck(valid)
		}
		if !valid {
			s.logger.Ctx(ctx).Warn("Machool credentials rejected",
				zap.String("provider", c.Name()),
				zap.String("store_domain", c.Info().StoreDomain),
			)
		}
		checks = append(checks, CredentialCheck{Provider: c.Name(), Valid: valid})
	}
	return checks
}

// Quote collects rates for pkg from the named providers, or from every
// provider when names is empty.
func (s *Service) Quote(ctx context.Context, pkg *shipper.Package, names []string) QuoteResult {
	quoteID := uuid.New().String()
	ctx, span := s.tracer.Start(ctx, "service.Quote",
		trace.WithAttributes(attribute.String("quote.id", quoteID)),
	)
	defer span.End()

	var rates []shipper.QuotedRate
	var errs []error
	if len(names) == 0 {
		rates = s.registry.QuoteAll(ctx, pkg)
	} else {
		rates, errs = s.registry.QuoteFrom(ctx, pkg, names)
	}
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	span.SetAttributes(attribute.Int("quote.rates", len(rates)))

	return QuoteResult{QuoteID: quoteID, Rates: rates, Errors: messages}
}

// Providers describes every registered account.
func (s *Service) Providers() []machool.Info {
	accounts := s.sortedAccounts()
	infos := make([]machool.Info, 0, len(accounts))
	for _, c := range accounts {
		infos = append(infos, c.Info())
	}
	return infos
}

// Health reports the service status.
func (s *Service) Health() Health {
	return Health{
		Status:    "ok",
		Version:   s.version,
		Providers: s.registry.Count(),
		Notices:   s.notices.Len(),
	}
}
