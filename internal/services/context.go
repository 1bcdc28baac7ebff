package services

import "context"

type contextKey string

const (
	cycleIDKey contextKey = "cycle_id"
	itemIDKey  contextKey = "item_id"
)

// WithCycleID annotates context with the polling cycle identifier.
func WithCycleID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext extracts the polling cycle identifier if present.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(cycleIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithItemID annotates context with the feed item identifier.
func WithItemID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the feed item identifier if present.
func ItemIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(itemIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
