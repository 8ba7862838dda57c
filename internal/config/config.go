package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/mod/semver"

	"github.com/tournevent/machool/pkg/shipper"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Settings file managed by the store admin (store_domain, api_key, enabled)
	SettingsFile string `envconfig:"SETTINGS_FILE"`

	// Machool
	MachoolAPIKey       string        `envconfig:"MACHOOL_API_KEY"`
	MachoolAPIKeySecret string        `envconfig:"MACHOOL_API_KEY_SECRET"` // Secret Manager version name
	MachoolStoreDomain  string        `envconfig:"MACHOOL_STORE_DOMAIN"`
	MachoolBaseURL      string        `envconfig:"MACHOOL_BASE_URL" default:"https://api.machool.com/REST-app-services/"`
	MachoolEnabled      bool          `envconfig:"MACHOOL_ENABLED" default:"true"`
	MachoolUseMock      bool          `envconfig:"MACHOOL_USE_MOCK" default:"false"`
	MachoolDebug        bool          `envconfig:"MACHOOL_DEBUG" default:"false"`
	MachoolTimeout      time.Duration `envconfig:"MACHOOL_TIMEOUT" default:"30s"`
	MachoolVersion      string        `envconfig:"MACHOOL_VERSION" default:"2.0.4"`

	// Store base address and locale
	StoreCountry    string `envconfig:"STORE_COUNTRY" default:"CA"`
	StorePostcode   string `envconfig:"STORE_POSTCODE"`
	StoreState      string `envconfig:"STORE_STATE"`
	StoreCity       string `envconfig:"STORE_CITY"`
	StoreAddress1   string `envconfig:"STORE_ADDRESS_1"`
	StoreAddress2   string `envconfig:"STORE_ADDRESS_2"`
	StoreCurrency   string `envconfig:"STORE_CURRENCY" default:"CAD"`
	StoreLocale     string `envconfig:"STORE_LOCALE" default:"en_CA"`
	StoreWeightUnit string `envconfig:"STORE_WEIGHT_UNIT" default:"kg"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"machool-shipping"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the merged configuration before providers are built.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.MachoolStoreDomain) == "" {
		errs = append(errs, errors.New("store_domain is required"))
	}
	if strings.TrimSpace(c.MachoolAPIKey) == "" {
		errs = append(errs, errors.New("api_key is required"))
	}
	if !semver.IsValid(normalizeVersion(c.MachoolVersion)) {
		errs = append(errs, fmt.Errorf("invalid integration version %q", c.MachoolVersion))
	}
	if _, ok := shipper.ParseWeightUnit(c.StoreWeightUnit); !ok {
		errs = append(errs, fmt.Errorf("unsupported weight unit %q", c.StoreWeightUnit))
	}
	if c.MachoolTimeout <= 0 {
		errs = append(errs, errors.New("machool timeout must be positive"))
	}
	return errors.Join(errs...)
}

// WeightUnit returns the parsed store weight unit, kilograms when unknown.
func (c *Config) WeightUnit() shipper.WeightUnit {
	if u, ok := shipper.ParseWeightUnit(c.StoreWeightUnit); ok {
		return u
	}
	return shipper.WeightKG
}

// StoreOrigin returns the store base address.
func (c *Config) StoreOrigin() shipper.Address {
	return shipper.Address{
		Country:    c.StoreCountry,
		PostalCode: c.StorePostcode,
		Province:   c.StoreState,
		City:       c.StoreCity,
		Address1:   c.StoreAddress1,
		Address2:   c.StoreAddress2,
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("machool.enabled", c.MachoolEnabled),
		attribute.Bool("machool.mock", c.MachoolUseMock),
		attribute.String("machool.version", c.MachoolVersion),
		attribute.String("machool.store_domain", c.MachoolStoreDomain),
	}
}

// normalizeVersion adds the "v" prefix semver expects.
func normalizeVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
