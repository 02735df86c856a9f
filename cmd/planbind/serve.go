package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/c360studio/planbind/config"
	"github.com/c360studio/planbind/llm"
	"github.com/c360studio/planbind/model"
	plandeveloper "github.com/c360studio/planbind/processor/plan-developer"
	"github.com/c360studio/planbind/prompts"
)

func serveCmd() *cobra.Command {
	var configPath string
	var natsURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the plan-developer processor",
		Long: `Connects to NATS, ensures the plan stream exists, and runs the
plan-developer processor until interrupted. Develop triggers arrive on
plan.trigger.develop; turn results publish to plan.result.develop.<session>.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, natsURL)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: layered planbind.yaml lookup)")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (overrides config and NATS_URL)")

	return cmd
}

func runServe(configPath, natsURL string) error {
	logger := slog.Default()

	cfg, err := loadServeConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	model.InitGlobal(cfg.ModelRegistry())
	llm.SetDefaultRetryConfig(llm.RetryConfig{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		BackoffBase:       cfg.Retry.BackoffBase,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		MaxBackoff:        cfg.Retry.MaxBackoff,
	})

	templates := prompts.Global()
	config.ApplyDisabledKeys(templates, cfg.Templates.Disabled)

	ctx := context.Background()
	natsClient, err := connectToNATS(ctx, resolveNATSURL(natsURL, cfg), logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	if err := ensurePlanStream(ctx, natsClient, logger); err != nil {
		return err
	}

	// Turn auditing is optional; the developer runs without it.
	if err := llm.InitGlobalCallStore(ctx, natsClient); err != nil {
		logger.Warn("Failed to initialize generation call store", "error", err)
	} else {
		logger.Debug("Generation call store initialized")
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if cfg.Templates.OverridesDir != "" {
		watcher, err := config.NewTemplateWatcher(cfg.Templates.OverridesDir, templates, logger)
		if err != nil {
			return fmt.Errorf("create template watcher: %w", err)
		}
		if err := watcher.Start(signalCtx); err != nil {
			return fmt.Errorf("start template watcher: %w", err)
		}
		defer watcher.Close()
	}

	comp, err := buildComponent(cfg, natsClient, logger)
	if err != nil {
		return err
	}

	if err := comp.Initialize(); err != nil {
		return fmt.Errorf("initialize plan-developer: %w", err)
	}
	if err := comp.Start(signalCtx); err != nil {
		return fmt.Errorf("start plan-developer: %w", err)
	}

	logger.Info("Planbind ready", "version", Version)

	<-signalCtx.Done()
	logger.Info("Received shutdown signal")

	if err := comp.Stop(30 * time.Second); err != nil {
		logger.Error("Error stopping plan-developer", "error", err)
	}

	logger.Info("Planbind shutdown complete")
	return nil
}

// loadServeConfig loads from an explicit path when given, otherwise walks
// the layered default/user/project chain.
func loadServeConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}

// resolveNATSURL picks the NATS URL: flag, then environment, then config.
func resolveNATSURL(flagURL string, cfg *config.Config) string {
	if flagURL != "" {
		return flagURL
	}
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if cfg.NATS.URL != "" {
		return cfg.NATS.URL
	}
	return "nats://localhost:4222"
}

func connectToNATS(ctx context.Context, url string, logger *slog.Logger) (*natsclient.Client, error) {
	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("NATS connection failed (is NATS running at %s?): %w", url, err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection failed (is NATS running at %s?): %w", url, err)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// ensurePlanStream creates or updates the stream that carries develop
// triggers and turn results.
func ensurePlanStream(ctx context.Context, natsClient *natsclient.Client, logger *slog.Logger) error {
	js, err := natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        "PLANS",
		Description: "Plan develop triggers and turn results",
		Subjects:    []string{"plan.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("ensure PLANS stream: %w", err)
	}

	logger.Debug("JetStream streams ready")
	return nil
}

// buildComponent constructs the plan-developer processor from the loaded
// configuration.
func buildComponent(cfg *config.Config, natsClient *natsclient.Client, logger *slog.Logger) (*plandeveloper.Component, error) {
	compCfg := plandeveloper.DefaultConfig()
	compCfg.Module = cfg.Strategy.Module
	compCfg.Domain = cfg.Strategy.Domain
	compCfg.ProfileDirectoryURL = cfg.Profile.DirectoryURL
	compCfg.ProfileTimeout = cfg.Profile.Timeout
	compCfg.Tools = cfg.Tools.Descriptors
	compCfg.DefaultPermissions = cfg.Tools.DefaultPermissions

	rawCfg, err := json.Marshal(compCfg)
	if err != nil {
		return nil, fmt.Errorf("marshal component config: %w", err)
	}

	deps := component.Dependencies{
		NATSClient: natsClient,
		Logger:     logger,
	}

	discoverable, err := plandeveloper.NewComponent(rawCfg, deps)
	if err != nil {
		return nil, fmt.Errorf("create plan-developer: %w", err)
	}

	comp, ok := discoverable.(*plandeveloper.Component)
	if !ok {
		return nil, fmt.Errorf("unexpected component type %T", discoverable)
	}
	return comp, nil
}
