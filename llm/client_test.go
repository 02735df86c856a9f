package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c360studio/planbind/llm"
	_ "github.com/c360studio/planbind/llm/providers" // Register providers
	"github.com/c360studio/planbind/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(url string) *model.Registry {
	return model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityBinding: {
				Description: "Test capability",
				Preferred:   []string{"test-model"},
			},
		},
		map[string]*model.EndpointConfig{
			"test-model": {
				Provider: "ollama",
				URL:      url,
				Model:    "test-model",
			},
		},
	)
}

func successBody(content string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-123",
		"model": "test-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(successBody(`{"meta": {}}`))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "binding",
		Messages: []llm.Message{
			{Role: "user", Content: "Bind this plan"},
		},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, `{"meta": {}}`, resp.Content)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestClient_Complete_RetryOnTransientError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service temporarily unavailable"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(successBody("Success after retries"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL),
		llm.WithRetryConfig(llm.RetryConfig{
			MaxAttempts:       3,
			BackoffBase:       time.Millisecond,
			BackoffMultiplier: 1.0,
			MaxBackoff:        5 * time.Millisecond,
		}))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "binding",
		Messages:   []llm.Message{{Role: "user", Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Success after retries", resp.Content)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Complete_FatalErrorStopsRetries(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid api key"))
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL),
		llm.WithRetryConfig(llm.RetryConfig{
			MaxAttempts:       3,
			BackoffBase:       time.Millisecond,
			BackoffMultiplier: 1.0,
			MaxBackoff:        5 * time.Millisecond,
		}))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "binding",
		Messages:   []llm.Message{{Role: "user", Content: "hi"}},
	})

	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Complete_FallbackChain(t *testing.T) {
	// Primary always fails, fallback succeeds
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(successBody("from fallback"))
	}))
	defer fallback.Close()

	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityBinding: {
				Preferred: []string{"primary-model"},
				Fallback:  []string{"fallback-model"},
			},
		},
		map[string]*model.EndpointConfig{
			"primary-model":  {Provider: "ollama", URL: primary.URL, Model: "primary-model"},
			"fallback-model": {Provider: "ollama", URL: fallback.URL, Model: "fallback-model"},
		},
	)

	client := llm.NewClient(registry,
		llm.WithRetryConfig(llm.RetryConfig{
			MaxAttempts:       1,
			BackoffBase:       time.Millisecond,
			BackoffMultiplier: 1.0,
			MaxBackoff:        time.Millisecond,
		}))

	resp, err := client.Complete(context.Background(), llm.Request{
		Capability: "binding",
		Messages:   []llm.Message{{Role: "user", Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Content)
}

func TestClient_Complete_AllEndpointsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := llm.NewClient(testRegistry(server.URL),
		llm.WithRetryConfig(llm.RetryConfig{
			MaxAttempts:       1,
			BackoffBase:       time.Millisecond,
			BackoffMultiplier: 1.0,
			MaxBackoff:        time.Millisecond,
		}))

	_, err := client.Complete(context.Background(), llm.Request{
		Capability: "binding",
		Messages:   []llm.Message{{Role: "user", Content: "hi"}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all endpoints failed")
}

func TestClient_Complete_Validation(t *testing.T) {
	client := llm.NewClient(model.NewDefaultRegistry())

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	assert.Error(t, err, "missing capability should fail")

	_, err = client.Complete(context.Background(), llm.Request{
		Capability: "binding",
	})
	assert.Error(t, err, "missing messages should fail")
}
