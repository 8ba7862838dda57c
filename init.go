package main

import (
	"context"
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tournevent/machool/internal/config"
	"github.com/tournevent/machool/internal/notice"
	"github.com/tournevent/machool/internal/secrets"
	"github.com/tournevent/machool/internal/service"
	"github.com/tournevent/machool/internal/settings"
	"github.com/tournevent/machool/internal/telemetry"
	"github.com/tournevent/machool/pkg/shipper/machool"
)

// loadConfig reads the environment, then resolves the API key from Secret
// Manager when a secret is configured.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if settingsPath != "" {
		cfg.SettingsFile = settingsPath
	}

	if cfg.MachoolAPIKeySecret != "" {
		sm, err := secrets.NewSecretManager(ctx)
		if err != nil {
			return nil, err
		}
		defer sm.Close()

		key, err := sm.Access(ctx, cfg.MachoolAPIKeySecret)
		if err != nil {
			return nil, err
		}
		cfg.MachoolAPIKey = key
	}
	return cfg, nil
}

// loadSettings overlays the admin settings file on cfg. The secret-backed
// key wins over the file.
func loadSettings(cfg *config.Config, logger *otelzap.Logger) (*settings.Store, error) {
	if cfg.SettingsFile == "" {
		return nil, nil
	}
	store, err := settings.Load(cfg.SettingsFile, logger)
	if err != nil {
		return nil, err
	}
	*cfg = *applySettings(cfg, store.Current())
	return store, nil
}

// applySettings returns a copy of cfg with the admin settings applied.
func applySettings(cfg *config.Config, s settings.Settings) *config.Config {
	next := *cfg
	if s.StoreDomain != "" {
		next.MachoolStoreDomain = s.StoreDomain
	}
	if s.APIKey != "" && cfg.MachoolAPIKeySecret == "" {
		next.MachoolAPIKey = s.APIKey
	}
	next.MachoolEnabled = s.Enabled
	return &next
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return noop.NewTracerProvider().Tracer(cfg.ServiceName), func(context.Context) error { return nil }, nil
	}
	tracer, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.Attributes()...)
	if err != nil {
		return noop.NewTracerProvider().Tracer(cfg.ServiceName), nil, err
	}
	return tracer, shutdown, nil
}

func newAccount(cfg *config.Config, board *notice.Board, logger *otelzap.Logger, tracer trace.Tracer) *machool.Client {
	return machool.New(machool.Config{
		APIKey:      cfg.MachoolAPIKey,
		StoreDomain: cfg.MachoolStoreDomain,
		BaseURL:     cfg.MachoolBaseURL,
		Version:     cfg.MachoolVersion,
		Timeout:     cfg.MachoolTimeout,
		Disabled:    !cfg.MachoolEnabled,
		Debug:       cfg.MachoolDebug,
		UseMock:     cfg.MachoolUseMock,
		Store: machool.StoreConfig{
			Origin:     cfg.StoreOrigin(),
			Currency:   cfg.StoreCurrency,
			Locale:     cfg.StoreLocale,
			WeightUnit: cfg.WeightUnit(),
		},
		Notices: board,
	}, logger, tracer)
}

func newService(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer, metrics *telemetry.Metrics) *service.Service {
	svc := service.New(service.Options{
		Metrics: metrics,
		Logger:  logger,
		Tracer:  tracer,
		Version: cfg.Version,
	})
	svc.AddAccount(newAccount(cfg, svc.Notices(), logger, tracer))
	return svc
}

// buildCLIService wires a service for the one-shot commands. Logs go to
// stderr so stdout stays JSON.
func buildCLIService(ctx context.Context) (*service.Service, *otelzap.Logger, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger, err := telemetry.NewLogger(cfg.LogLevel, telemetry.LogConsole)
	if err != nil {
		return nil, nil, err
	}
	if _, err := loadSettings(cfg, logger); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	tracer := noop.NewTracerProvider().Tracer(cfg.ServiceName)
	return newService(cfg, logger, tracer, nil), logger, nil
}
