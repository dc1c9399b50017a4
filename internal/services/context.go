package services

import "context"

type contextKey string

const (
	projectKey   contextKey = "project"
	tourIDKey    contextKey = "tour_id"
	requestIDKey contextKey = "request_id"
)

// WithProject annotates context with the project name.
func WithProject(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, projectKey, name)
}

// ProjectFromContext returns the project name if present.
func ProjectFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(projectKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTourID annotates context with the tour identifier (or tour path when
// the tour did not come from a project store).
func WithTourID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, tourIDKey, id)
}

// TourIDFromContext returns the tour identifier if present.
func TourIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(tourIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

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
