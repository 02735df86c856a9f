package model

import (
	"testing"
	"time"
)

func TestEndpointHealthTracking(t *testing.T) {
	r := NewDefaultRegistry()

	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen to be available initially")
	}

	if health := r.GetEndpointHealth("qwen"); health != nil {
		t.Error("expected no health info before any requests")
	}

	r.MarkEndpointSuccess("qwen")

	health := r.GetEndpointHealth("qwen")
	if health == nil {
		t.Fatal("expected health info after success")
	}
	if !health.Available {
		t.Error("expected endpoint to be available after success")
	}
	if health.FailureCount != 0 {
		t.Errorf("expected failure count 0, got %d", health.FailureCount)
	}
	if health.LastSuccess.IsZero() {
		t.Error("expected last success to be set")
	}
}

func TestCircuitBreakerOpens(t *testing.T) {
	r := NewDefaultRegistry()

	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  100 * time.Millisecond,
	})

	r.MarkEndpointFailure("qwen")
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen to be available after 1 failure")
	}

	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen to be unavailable after circuit opens")
	}

	health := r.GetEndpointHealth("qwen")
	if health == nil {
		t.Fatal("expected health info")
	}
	if !health.CircuitOpen {
		t.Error("expected circuit to be open")
	}
	if health.FailureCount != 2 {
		t.Errorf("expected failure count 2, got %d", health.FailureCount)
	}
}

func TestCircuitBreakerRecovery(t *testing.T) {
	r := NewDefaultRegistry()

	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  50 * time.Millisecond,
	})

	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("expected circuit open immediately after failure")
	}

	// After the recovery timeout a test request is allowed (half-open)
	time.Sleep(60 * time.Millisecond)
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected half-open availability after recovery timeout")
	}

	// Success closes the circuit
	r.MarkEndpointSuccess("qwen")
	health := r.GetEndpointHealth("qwen")
	if health == nil || health.CircuitOpen {
		t.Error("expected circuit closed after success")
	}
}

func TestGetAvailableFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()

	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
	})

	// Take the preferred binding model down
	r.MarkEndpointFailure("claude-sonnet")

	chain := r.GetAvailableFallbackChain(CapabilityBinding)
	for _, name := range chain {
		if name == "claude-sonnet" {
			t.Error("expected claude-sonnet filtered out of available chain")
		}
	}
	if len(chain) == 0 {
		t.Error("expected remaining endpoints in chain")
	}
}

func TestGetAvailableFallbackChain_AllDown(t *testing.T) {
	r := NewDefaultRegistry()

	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
	})

	for _, name := range r.GetFallbackChain(CapabilityBinding) {
		r.MarkEndpointFailure(name)
	}

	// Better to try something than nothing
	chain := r.GetAvailableFallbackChain(CapabilityBinding)
	if len(chain) != len(r.GetFallbackChain(CapabilityBinding)) {
		t.Errorf("expected full chain when everything is down, got %v", chain)
	}
}

func TestResetEndpointHealth(t *testing.T) {
	r := NewDefaultRegistry()

	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
	})

	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen unavailable")
	}

	r.ResetEndpointHealth("qwen")
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen available after reset")
	}
	if r.GetEndpointHealth("qwen") != nil {
		t.Error("expected health info cleared after reset")
	}
}
