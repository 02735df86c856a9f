package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/planbind/config"
	"github.com/c360studio/planbind/develop"
	"github.com/c360studio/planbind/llm"
	"github.com/c360studio/planbind/model"
	"github.com/c360studio/planbind/planspec"
	"github.com/c360studio/planbind/prompts"
	"github.com/c360studio/planbind/session"
	"github.com/c360studio/planbind/tools"
)

func developCmd() *cobra.Command {
	var configPath string
	var draftPath string
	var message string
	var mode string
	var fallbackOnly bool

	cmd := &cobra.Command{
		Use:   "develop",
		Short: "Run one develop turn locally",
		Long: `Runs a single plan convergence turn against a draft plan file and
prints the resulting bound plan as JSON. Session state is in-memory; no
NATS connection is made. With --fallback-only the deterministic fallback
path runs instead of a generation call, which also needs no model
endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevelop(configPath, draftPath, message, mode, fallbackOnly)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: layered planbind.yaml lookup)")
	cmd.Flags().StringVar(&draftPath, "draft", "", "Path to draft plan JSON file (required)")
	cmd.Flags().StringVar(&message, "message", "", "User message to fold into the session before the turn")
	cmd.Flags().StringVar(&mode, "mode", "standard", "Strategy mode for template resolution")
	cmd.Flags().BoolVar(&fallbackOnly, "fallback-only", false, "Skip generation and use the deterministic fallback")
	_ = cmd.MarkFlagRequired("draft")

	return cmd
}

func runDevelop(configPath, draftPath, message, mode string, fallbackOnly bool) error {
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

	draft, err := loadDraft(draftPath)
	if err != nil {
		return err
	}

	toolReg, err := tools.NewRegistryFromDescriptors(cfg.Tools.Descriptors)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	templates := prompts.Global()
	config.ApplyDisabledKeys(templates, cfg.Templates.Disabled)
	if fallbackOnly {
		templates.Disable(prompts.Key{
			Module: cfg.Strategy.Module,
			Domain: cfg.Strategy.Domain,
			Mode:   mode,
			Step:   prompts.StepBind,
		})
	}

	dev := develop.NewDeveloper(
		llm.NewClient(model.Global(), llm.WithLogger(logger)),
		templates,
		toolReg,
		develop.WithLogger(logger),
		develop.WithStrategy(cfg.Strategy.Module, cfg.Strategy.Domain),
	)

	state := session.NewState("")
	state.Strategy = mode
	state.Permissions = append(state.Permissions, cfg.Tools.DefaultPermissions...)

	ctx := context.Background()
	if message != "" {
		dev.ApplyUserMessage(ctx, state, message)
	}

	result, err := dev.DevelopTurn(ctx, state, draft, nil)
	if err != nil {
		return fmt.Errorf("develop turn: %w", err)
	}

	out, err := json.MarshalIndent(result.Spec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bound plan: %w", err)
	}

	fmt.Println(string(out))

	logger.Info("Develop turn completed",
		"session_id", state.SessionID,
		"readiness", result.Readiness,
		"blockers", len(result.Spec.Blockers))

	if result.NextRequest != nil {
		fmt.Fprintf(os.Stderr, "\nNext input needed (%s): %s\n",
			result.NextRequest.BlockerType, result.NextRequest.Message)
	}

	return nil
}

// loadDraft reads and parses a draft plan file.
func loadDraft(path string) (*planspec.DraftPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft plan: %w", err)
	}

	var draft planspec.DraftPlan
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("parse draft plan: %w", err)
	}
	return &draft, nil
}
