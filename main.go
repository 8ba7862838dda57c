package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tournevent/machool/internal/server"
	"github.com/tournevent/machool/internal/settings"
	"github.com/tournevent/machool/internal/telemetry"
	"github.com/tournevent/machool/pkg/shipper"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var (
	settingsPath string
	packagePath  string
	providers    []string
)

var rootCmd = &cobra.Command{
	Use:     "machool",
	Short:   "Machool shipping rates for WooCommerce checkouts",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST, GraphQL and MCP server",
	RunE:  runServe,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configured API key and store domain against Machool",
	RunE:  runValidate,
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote shipping rates for a package read from a JSON file",
	RunE:  runQuote,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "store settings file (overrides SETTINGS_FILE)")
	quoteCmd.Flags().StringVar(&packagePath, "package", "", "package JSON file, - for stdin")
	quoteCmd.Flags().StringSliceVar(&providers, "provider", nil, "provider names to ask (default all)")
	_ = quoteCmd.MarkFlagRequired("package")

	rootCmd.AddCommand(serveCmd, validateCmd, quoteCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, telemetry.LogJSON)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	store, err := loadSettings(cfg, logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	svc := newService(cfg, logger, tracer, telemetry.NewMetrics(reg))

	logger.Info("Starting Machool shipping service",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.String("store_domain", cfg.MachoolStoreDomain),
		zap.Bool("mock", cfg.MachoolUseMock),
	)
	svc.Validate(ctx)

	reload := func(ctx context.Context, s settings.Settings) {
		next := applySettings(cfg, s)
		if err := next.Validate(); err != nil {
			logger.Error("Ignoring invalid settings", zap.Error(err))
			return
		}
		svc.ReplaceAccounts(newAccount(next, svc.Notices(), logger, tracer))
		svc.Validate(ctx)
	}

	srvCfg := server.Config{Port: cfg.Port, Version: version, Gatherer: reg}
	if store != nil {
		if err := store.Watch(func(s settings.Settings) { reload(ctx, s) }); err != nil {
			logger.Warn("Settings file will not be watched", zap.Error(err))
		}
		defer store.Close()
		srvCfg.Settings = store
		srvCfg.OnSettingsSaved = reload
	}

	srv, err := server.New(srvCfg, svc, logger)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, logger, err := buildCLIService(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	checks := svc.Validate(ctx)
	if err := printJSON(cmd, map[string]any{
		"checks":  checks,
		"notices": svc.Notices().List(),
	}); err != nil {
		return err
	}

	for _, c := range checks {
		if !c.Valid {
			return errors.New("credentials rejected")
		}
	}
	return nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pkg, err := readPackage(cmd, packagePath)
	if err != nil {
		return err
	}

	svc, logger, err := buildCLIService(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	return printJSON(cmd, svc.Quote(ctx, pkg, providers))
}

func readPackage(cmd *cobra.Command, path string) (*shipper.Package, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading package: %w", err)
	}

	var pkg shipper.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("decoding package: %w", err)
	}
	for i := range pkg.Contents {
		if pkg.Contents[i].Quantity <= 0 {
			pkg.Contents[i].Quantity = 1
		}
	}
	return &pkg, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
