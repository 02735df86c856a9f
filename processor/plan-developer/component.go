// Package plandeveloper provides a processor that converges draft workflow
// plans into bound plans, one turn per trigger message. Each turn folds the
// user's message into session state, runs the develop loop, persists the
// session, and publishes the turn result.
package plandeveloper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/planbind/develop"
	"github.com/c360studio/planbind/llm"
	"github.com/c360studio/planbind/model"
	"github.com/c360studio/planbind/profile"
	"github.com/c360studio/planbind/prompts"
	"github.com/c360studio/planbind/session"
	"github.com/c360studio/planbind/tools"
)

// Component implements the plan-developer processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	developer *develop.Developer
	sessions  *session.Store
	toolReg   *tools.Registry

	// JetStream consumer
	consumer jetstream.Consumer
	stream   jetstream.Stream

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Metrics
	triggersProcessed atomic.Int64
	turnsCompleted    atomic.Int64
	turnsFailed       atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent creates a new plan-developer processor.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply defaults
	defaults := DefaultConfig()
	if config.StreamName == "" {
		config.StreamName = defaults.StreamName
	}
	if config.ConsumerName == "" {
		config.ConsumerName = defaults.ConsumerName
	}
	if config.TriggerSubject == "" {
		config.TriggerSubject = defaults.TriggerSubject
	}
	if config.ResultSubjectPrefix == "" {
		config.ResultSubjectPrefix = defaults.ResultSubjectPrefix
	}
	if config.Module == "" {
		config.Module = defaults.Module
	}
	if config.Domain == "" {
		config.Domain = defaults.Domain
	}
	if config.Ports == nil {
		config.Ports = defaults.Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()

	toolReg, err := tools.NewRegistryFromDescriptors(config.Tools)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	opts := []develop.Option{
		develop.WithLogger(logger),
		develop.WithStrategy(config.Module, config.Domain),
	}
	if config.ProfileDirectoryURL != "" {
		var dirOpts []profile.HTTPDirectoryOption
		if config.ProfileTimeout > 0 {
			dirOpts = append(dirOpts, profile.WithDirectoryTimeout(config.ProfileTimeout))
		}
		enricher := profile.NewEnricher(profile.NewHTTPDirectory(config.ProfileDirectoryURL, dirOpts...), logger)
		opts = append(opts, develop.WithEnricher(enricher))
	}

	developer := develop.NewDeveloper(
		llm.NewClient(model.Global(), llm.WithLogger(logger)),
		prompts.Global(),
		toolReg,
		opts...,
	)

	return &Component{
		name:       "plan-developer",
		config:     config,
		natsClient: deps.NATSClient,
		logger:     logger,
		developer:  developer,
		toolReg:    toolReg,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized plan-developer",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"trigger_subject", c.config.TriggerSubject,
		"tools", c.toolReg.Len())
	return nil
}

// Start begins processing develop triggers.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	sessions, err := session.NewStore(subCtx, c.natsClient)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create session store: %w", err)
	}
	c.sessions = sessions

	js, err := c.natsClient.JetStream()
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get jetstream: %w", err)
	}

	stream, err := js.Stream(subCtx, c.config.StreamName)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get stream %s: %w", c.config.StreamName, err)
	}
	c.stream = stream

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		FilterSubject: c.config.TriggerSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       180 * time.Second, // Allow time for generation calls
		MaxDeliver:    3,
	}

	consumer, err := stream.CreateOrUpdateConsumer(subCtx, consumerConfig)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create consumer: %w", err)
	}
	c.consumer = consumer

	go c.consumeLoop(subCtx)

	c.logger.Info("plan-developer started",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"subject", c.config.TriggerSubject)

	return nil
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// consumeLoop continuously consumes messages from the JetStream consumer.
func (c *Component) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("Fetch timeout or error", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if msgs.Error() != nil && !errors.Is(msgs.Error(), context.DeadlineExceeded) {
			c.logger.Warn("Message fetch error", "error", msgs.Error())
		}
	}
}

// handleMessage processes a single develop trigger.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	if ctx.Err() != nil {
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message during shutdown", "error", err)
		}
		return
	}

	c.triggersProcessed.Add(1)
	c.updateLastActivity()

	trigger, err := parseTrigger(msg.Data())
	if err != nil {
		c.logger.Error("Failed to parse trigger", "error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message", "error", err)
		}
		return
	}

	c.logger.Info("Processing develop trigger",
		"request_id", trigger.RequestID,
		"session_id", trigger.SessionID,
		"trace_id", trigger.TraceID)

	result, err := c.runTurn(ctx, trigger)
	if err != nil {
		c.turnsFailed.Add(1)
		c.logger.Error("Develop turn failed",
			"request_id", trigger.RequestID,
			"session_id", trigger.SessionID,
			"error", err)
		// If dispatcher-routed, publish failure callback so it can decide
		if trigger.HasCallback() {
			if cbErr := trigger.PublishCallbackFailure(ctx, c.natsClient, err.Error()); cbErr != nil {
				c.logger.Error("Failed to publish failure callback", "error", cbErr)
			}
			if err := msg.Ack(); err != nil {
				c.logger.Warn("Failed to ACK message", "error", err)
			}
			return
		}
		// Provider failures NAK for redelivery
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message", "error", err)
		}
		return
	}

	if err := c.publishResult(ctx, trigger, result); err != nil {
		c.logger.Warn("Failed to publish turn result",
			"request_id", trigger.RequestID,
			"session_id", trigger.SessionID,
			"error", err)
		// Don't fail - the session was persisted
	}

	c.turnsCompleted.Add(1)

	if err := msg.Ack(); err != nil {
		c.logger.Warn("Failed to ACK message", "error", err)
	}

	c.logger.Info("Develop turn completed",
		"request_id", trigger.RequestID,
		"session_id", trigger.SessionID,
		"readiness", result.Readiness)
}

// runTurn executes one develop turn end to end: load or create the session,
// fold in the user message, develop, and persist synchronously. A revision
// conflict reloads once and replays the turn.
func (c *Component) runTurn(ctx context.Context, trigger *TurnTrigger) (*develop.TurnResult, error) {
	llmCtx := ctx
	if trigger.TraceID != "" || trigger.SessionID != "" {
		llmCtx = llm.WithTraceContext(ctx, llm.TraceContext{
			TraceID:   trigger.TraceID,
			SessionID: trigger.SessionID,
		})
	}

	const maxConflictRetries = 2
	var lastErr error

	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		state, revision, err := c.sessions.Load(ctx, trigger.SessionID)
		if errors.Is(err, session.ErrNotFound) {
			state, revision, err = c.sessions.Create(ctx, trigger.SessionID, nil)
			if err == nil {
				c.grantDefaultPermissions(state)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}

		if trigger.Message != "" {
			c.developer.ApplyUserMessage(llmCtx, state, trigger.Message)
		}

		result, err := c.developer.DevelopTurn(llmCtx, state, trigger.Draft, trigger.TaskCatalog)
		if err != nil {
			// Provider failure, propagates per the turn contract
			return nil, err
		}

		if _, err := c.sessions.Persist(ctx, state, revision); err != nil {
			if errors.Is(err, session.ErrRevisionConflict) {
				lastErr = err
				c.logger.Warn("Session revision conflict, replaying turn",
					"session_id", trigger.SessionID,
					"attempt", attempt+1)
				continue
			}
			return nil, fmt.Errorf("persist session: %w", err)
		}

		return result, nil
	}

	return nil, fmt.Errorf("persist session after %d attempts: %w", maxConflictRetries+1, lastErr)
}

// grantDefaultPermissions grants the configured permission patterns to a
// newly created session.
func (c *Component) grantDefaultPermissions(state *session.State) {
	for _, pattern := range c.config.DefaultPermissions {
		state.GrantPermission(pattern)
	}
}

// publishResult publishes the turn result, preferring the dispatcher
// callback when one was injected.
func (c *Component) publishResult(ctx context.Context, trigger *TurnTrigger, result *develop.TurnResult) error {
	payload := &TurnResultPayload{
		RequestID:   trigger.RequestID,
		SessionID:   trigger.SessionID,
		Spec:        result.Spec,
		Readiness:   result.Readiness,
		NextRequest: result.NextRequest,
		Status:      "completed",
	}

	if trigger.HasCallback() {
		if err := trigger.PublishCallbackSuccess(ctx, c.natsClient, payload); err != nil {
			return fmt.Errorf("publish callback: %w", err)
		}
		c.logger.Info("Published develop callback result",
			"session_id", trigger.SessionID,
			"task_id", trigger.TaskID,
			"callback", trigger.CallbackSubject)
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	js, err := c.natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", c.config.ResultSubjectPrefix, trigger.SessionID)
	if _, err := js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish result to %s: %w", subject, err)
	}

	return nil
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}

	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	c.logger.Info("plan-developer stopped",
		"triggers_processed", c.triggersProcessed.Load(),
		"turns_completed", c.turnsCompleted.Load(),
		"turns_failed", c.turnsFailed.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "plan-developer",
		Type:        "processor",
		Description: "Converges draft workflow plans into tool-bound plans",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionInput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionOutput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return planDeveloperSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.turnsFailed.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         0,
		LastActivity:      c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
