// Package tracer is a small tracing seam so initialization code can emit spans
// without importing OpenTelemetry everywhere.
//
// Implementations:
//   - NoopTracer: tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span; a non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanAttempt      = "initializer.attempt"
	SpanLibraryInit  = "initializer.library_init"
	SpanPageAttach   = "pageload.attach"
	SpanSettingsLoad = "settings.load"
)

// Attribute keys.
const (
	AttrPageID   = "page.id"
	AttrScope    = "attach.scope"
	AttrOutcome  = "attach.outcome"
	AttrRevision = "settings.revision"
	AttrPath     = "settings.path"
)

// Event names.
const (
	EventNotified = "listeners.notified"
)
