package plandeveloper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/natsclient"
)

// AsyncStepResult is the result envelope a dispatcher expects on the
// callback subject.
type AsyncStepResult struct {
	TaskID      string          `json:"task_id"`
	ExecutionID string          `json:"execution_id,omitempty"`
	Status      string          `json:"status"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Async step result status constants.
const (
	AsyncStatusSuccess = "success"
	AsyncStatusFailed  = "failed"
)

// PublishCallbackSuccess publishes a successful AsyncStepResult to the
// callback subject via JetStream.
func (c *CallbackFields) PublishCallbackSuccess(ctx context.Context, nc *natsclient.Client, output any) error {
	return c.publishCallback(ctx, nc, AsyncStatusSuccess, output, "")
}

// PublishCallbackFailure publishes a failed AsyncStepResult to the
// callback subject via JetStream.
func (c *CallbackFields) PublishCallbackFailure(ctx context.Context, nc *natsclient.Client, errMsg string) error {
	return c.publishCallback(ctx, nc, AsyncStatusFailed, nil, errMsg)
}

func (c *CallbackFields) publishCallback(ctx context.Context, nc *natsclient.Client, status string, output any, errMsg string) error {
	if !c.HasCallback() {
		return fmt.Errorf("no callback configured")
	}

	var outputJSON json.RawMessage
	if output != nil {
		var err error
		outputJSON, err = json.Marshal(output)
		if err != nil {
			return fmt.Errorf("marshal callback output: %w", err)
		}
	}

	result := &AsyncStepResult{
		TaskID:      c.TaskID,
		ExecutionID: c.ExecutionID,
		Status:      status,
		Output:      outputJSON,
		Error:       errMsg,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal callback result: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream for callback: %w", err)
	}

	if _, err := js.Publish(ctx, c.CallbackSubject, data); err != nil {
		return fmt.Errorf("publish callback to %s: %w", c.CallbackSubject, err)
	}

	return nil
}
