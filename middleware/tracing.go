package middleware

import (
	"context"

	"github.com/shrek82/jdao/core"
)

// ContextKey names a context value the tracing middleware copies into log fields.
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIPKey    ContextKey = "user_ip"
	TraceIDKey   ContextKey = "trace_id"
)

// TracingMiddleware attaches request information found in the context to
// the log lines of every statement.
type TracingMiddleware struct {
	Keys []ContextKey
}

// NewTracing traces the request id, user ip and trace id, plus any extra keys.
func NewTracing(extra ...ContextKey) *TracingMiddleware {
	keys := append([]ContextKey{RequestIDKey, UserIPKey, TraceIDKey}, extra...)
	return &TracingMiddleware{Keys: keys}
}

func (m *TracingMiddleware) Name() string {
	return "Tracing"
}

func (m *TracingMiddleware) Init(db *core.DB) error {
	return nil
}

func (m *TracingMiddleware) Shutdown() error {
	return nil
}

func (m *TracingMiddleware) Process(ctx context.Context, stmt *core.Statement, next core.StatementFunc) (*core.Result, error) {
	for _, k := range m.Keys {
		if v := ctx.Value(k); v != nil {
			stmt.SetField(string(k), v)
		}
	}
	return next(ctx, stmt)
}
