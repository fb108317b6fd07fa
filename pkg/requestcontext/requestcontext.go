// Package requestcontext carries per-request metadata through context.Context
// so middleware, services, and audit code can read it without importing net/http.
package requestcontext

import "context"

type (
	contextKeyRequestID  struct{}
	contextKeyClientIP   struct{}
	contextKeyUserAgent  struct{}
	contextKeyAdminActor struct{}
)

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// RequestID returns the request correlation ID, or "" if none was set.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyRequestID{}).(string)
	return v
}

// WithClientMetadata stores the client IP and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIP)
	return context.WithValue(ctx, contextKeyUserAgent{}, userAgent)
}

// ClientIP returns the client IP recorded by the metadata middleware.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyClientIP{}).(string)
	return v
}

// UserAgent returns the User-Agent recorded by the metadata middleware.
func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyUserAgent{}).(string)
	return v
}

// WithAdminActor stores the admin actor identifier for audit attribution.
func WithAdminActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyAdminActor{}, actorID)
}

// AdminActor returns the admin actor identifier, or "" outside admin requests.
func AdminActor(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyAdminActor{}).(string)
	return v
}
