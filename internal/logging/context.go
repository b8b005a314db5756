package logging

import (
	"context"
	"log/slog"

	"whorl/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRequestID is the standardized structured logging key for request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldVisitorID is the standardized structured logging key for visitor identifiers.
	FieldVisitorID = "visitor_id"
	// FieldFingerprintID is the standardized structured logging key for fingerprint record identifiers.
	FieldFingerprintID = "fingerprint_id"
	// FieldMatchType is the standardized structured logging key for the match layer that resolved a request.
	FieldMatchType = "match_type"
	// FieldConfidence is the standardized structured logging key for match confidence values.
	FieldConfidence = "confidence"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
	}
	if vid, ok := services.VisitorIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldVisitorID, vid))
	}
	if mt, ok := services.MatchTypeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMatchType, mt))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
