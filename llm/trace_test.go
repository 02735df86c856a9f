package llm_test

import (
	"context"
	"testing"

	"github.com/c360studio/planbind/llm"
	"github.com/stretchr/testify/assert"
)

func TestTraceContext_RoundTrip(t *testing.T) {
	ctx := llm.WithTraceContext(context.Background(), llm.TraceContext{
		TraceID:   "trace-1",
		SessionID: "sess-abc",
	})

	tc := llm.GetTraceContext(ctx)
	assert.Equal(t, "trace-1", tc.TraceID)
	assert.Equal(t, "sess-abc", tc.SessionID)
}

func TestTraceContext_Missing(t *testing.T) {
	tc := llm.GetTraceContext(context.Background())
	assert.Empty(t, tc.TraceID)
	assert.Empty(t, tc.SessionID)
}
