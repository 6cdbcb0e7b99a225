// Package main is the entry point for the djula CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sdiabate1337/djula-com-sub000/internal/commerce"
	"github.com/Sdiabate1337/djula-com-sub000/internal/compose"
	"github.com/Sdiabate1337/djula-com-sub000/internal/config"
	"github.com/Sdiabate1337/djula-com-sub000/internal/conversation"
	"github.com/Sdiabate1337/djula-com-sub000/internal/cron"
	"github.com/Sdiabate1337/djula-com-sub000/internal/dispatch"
	"github.com/Sdiabate1337/djula-com-sub000/internal/engine"
	"github.com/Sdiabate1337/djula-com-sub000/internal/gateway"
	"github.com/Sdiabate1337/djula-com-sub000/internal/intent"
	"github.com/Sdiabate1337/djula-com-sub000/internal/metrics"
	"github.com/Sdiabate1337/djula-com-sub000/internal/provider"
	"github.com/Sdiabate1337/djula-com-sub000/internal/provider/openai"
	"github.com/Sdiabate1337/djula-com-sub000/internal/store/sqlite"
	"github.com/Sdiabate1337/djula-com-sub000/internal/wa"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout bounds graceful shutdown of each component.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "djula",
		Short:         "Conversational commerce engine for WhatsApp storefronts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), serveCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("djula %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook gateway and turn engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := resolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		return err
	}

	st, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return err
	}

	conv := conversation.NewManager(st, conversation.Options{
		CacheTTL:     cfg.Cache.TTL,
		HistoryLimit: cfg.Cache.HistoryLimit,
		Logger:       logger,
	})

	var llm provider.Provider
	if cfg.Provider.APIKey != "" {
		pc := openai.Config{
			APIKey:    cfg.Provider.APIKey,
			Model:     cfg.Provider.Model,
			BaseURL:   cfg.Provider.BaseURL,
			MaxTokens: cfg.Provider.MaxTokens,
		}
		if cfg.Provider.Temperature != 0 {
			t := cfg.Provider.Temperature
			pc.Temperature = &t
		}
		if cfg.Provider.Timeout > 0 {
			pc.Timeout = cfg.Provider.Timeout.String()
		}
		pc.Defaults()
		if err := pc.Validate(); err != nil {
			return err
		}
		llm = openai.New(pc)
		logger.Info("language model enabled", "model", pc.Model)
	} else {
		logger.Info("no provider api key, running deterministic-only")
	}

	backend, err := buildBackend(cfg.Commerce.CatalogPath)
	if err != nil {
		return err
	}

	dispatcher := dispatch.New(dispatch.Config{
		Catalog:  backend.Catalog(),
		Orders:   backend.Orders(),
		Payments: backend.Payments(),
		Support:  backend.Support(),
		SellerID: cfg.Commerce.SellerID,
		Logger:   logger,
	})

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	limiter := wa.NewSendLimiter(cfg.WhatsApp.SendLimit, logger)
	limiter.OnOverLimit = func(string) { m.RateLimitOverruns.Inc() }

	wc := wa.ClientConfig{
		Token:         cfg.WhatsApp.Token,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		BaseURL:       cfg.WhatsApp.BaseURL,
	}
	if cfg.WhatsApp.Timeout > 0 {
		wc.Timeout = cfg.WhatsApp.Timeout.String()
	}
	wc.Defaults()
	if err := wc.Validate(); err != nil {
		return err
	}
	sender := wa.NewClient(wc)

	eng, err := engine.New(engine.Config{
		Conversation:    conv,
		Store:           st,
		Resolver:        intent.NewResolver(llm, logger),
		Dispatcher:      dispatcher,
		Composer:        compose.New(llm, logger),
		Sender:          sender,
		Limiter:         limiter,
		Metrics:         m,
		WorkerCount:     cfg.Engine.Workers,
		InboxSize:       cfg.Engine.InboxSize,
		TurnTimeout:     cfg.Engine.TurnTimeout,
		DefaultLanguage: cfg.Engine.DefaultLanguage,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	eng.Start(ctx)

	gw := gateway.New(gateway.Config{
		Addr:        cfg.Server.Addr,
		VerifyToken: cfg.Server.VerifyToken,
		AppSecret:   cfg.Server.AppSecret,
	}, eng, m, registry, logger)
	if err := gw.Start(); err != nil {
		return err
	}

	sched := cron.NewScheduler(logger)
	jobs := []cron.Job{
		&cron.CacheSweepJob{Cache: conv, Logger: logger},
		&cron.LimiterResetJob{Limiter: limiter},
		&cron.DeliveryPruneJob{Store: st, Retention: cfg.Store.DeliveryRetention, Logger: logger},
		&cron.SessionAbandonJob{Sessions: conv, IdleAfter: cfg.Session.AbandonAfter, Logger: logger},
		&cron.LaneCleanupJob{Engine: eng},
	}
	for _, j := range jobs {
		if err := sched.RegisterJob(j); err != nil {
			return err
		}
	}
	if err := sched.Start(); err != nil {
		return err
	}

	logger.Info("djula started", "addr", cfg.Server.Addr, "version", version)
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := gw.Stop(shutdownCtx); err != nil {
		logger.Error("gateway shutdown", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown", "error", err)
	}
	eng.Stop(shutdownCtx)
	if err := st.Close(); err != nil {
		logger.Error("store close", "error", err)
	}
	shutdownTracing(shutdownCtx)

	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if cfg.Commerce.CatalogPath != "" {
				if _, err := commerce.LoadMemoryBackend(cfg.Commerce.CatalogPath); err != nil {
					return err
				}
			}
			fmt.Println("Configuration OK")
			return nil
		},
	})
	return cmd
}

func buildBackend(catalogPath string) (*commerce.MemoryBackend, error) {
	if catalogPath == "" {
		return commerce.NewMemoryBackend(), nil
	}
	return commerce.LoadMemoryBackend(catalogPath)
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// setupTracing installs an OTLP trace exporter when an endpoint is
// configured. The returned function flushes and stops the provider.
func setupTracing(ctx context.Context, endpoint string) (func(context.Context), error) {
	if endpoint == "" {
		return func(context.Context) {}, nil
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: creating exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "djula"),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("tracing shutdown", "error", err)
		}
	}, nil
}

// resolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/djula/djula.yaml → ./djula.yaml
func resolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "djula", "djula.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "djula", "djula.yaml"))
	}

	candidates = append(candidates, "djula.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}
