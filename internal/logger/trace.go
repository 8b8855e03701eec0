package logger

import "context"

// unexported, collision-proof context key
type traceIDContextKeyType struct{}

var traceIDKey = traceIDContextKeyType{}

// ContextWithTrace attaches a request correlation id so deeper layers can
// stamp it onto their log lines.
func ContextWithTrace(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID returns the correlation id carried by ctx, or "" when the work is
// not tied to a request (console runners, tests).
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
