package llm

import "context"

// TraceContext carries session correlation identifiers through a develop
// turn so generation calls can be attributed to the session that made them.
type TraceContext struct {
	TraceID   string
	SessionID string
}

type traceContextKey struct{}

// WithTraceContext returns a context carrying the given trace identifiers.
func WithTraceContext(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// GetTraceContext extracts trace identifiers from the context. Returns a
// zero TraceContext when none is present.
func GetTraceContext(ctx context.Context) TraceContext {
	if tc, ok := ctx.Value(traceContextKey{}).(TraceContext); ok {
		return tc
	}
	return TraceContext{}
}
