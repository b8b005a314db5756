package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	visitorIDKey contextKey = "visitor_id"
	matchTypeKey contextKey = "match_type"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithVisitorID annotates context with the resolved visitor identifier.
func WithVisitorID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, visitorIDKey, id)
}

// VisitorIDFromContext extracts the visitor identifier if present.
func VisitorIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(visitorIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithMatchType annotates context with the match layer that resolved a request.
func WithMatchType(ctx context.Context, matchType string) context.Context {
	if matchType == "" {
		return ctx
	}
	return context.WithValue(ctx, matchTypeKey, matchType)
}

// MatchTypeFromContext returns the match type if present.
func MatchTypeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(matchTypeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
