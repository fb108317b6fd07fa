package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	dErrors "eucookie/pkg/domain-errors"
	"eucookie/pkg/platform/tracer"
)

// Source loads options from a YAML file and serves the current revision.
// Current returns the same pointer until the next successful Reload.
type Source struct {
	path   string
	logger *slog.Logger
	tracer tracer.Tracer
	now    func() time.Time

	mu       sync.Mutex // serializes reloads
	revision uint64
	current  atomic.Pointer[Options]
}

type Option func(*Source)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Source) {
		s.tracer = t
	}
}

// WithClock overrides time.Now for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}

// NewSource creates a Source reading path. An empty path means no site
// options are configured and Current returns nil.
func NewSource(path string, opts ...Option) *Source {
	s := &Source{
		path:   path,
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the configured settings file path.
func (s *Source) Path() string { return s.path }

// Current returns the options currently in effect, or nil when none are configured.
func (s *Source) Current() *Options {
	return s.current.Load()
}

// Reload reads the settings file and swaps in a new revision.
// On failure the previous revision stays current.
func (s *Source) Reload(ctx context.Context) (opts *Options, err error) {
	if s.path == "" {
		return nil, nil
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanSettingsLoad, tracer.String(tracer.AttrPath, s.path))
	defer func() { span.End(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := readDocument(s.path)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load site settings", "path", s.path, "error", err)
		return nil, err
	}

	s.revision++
	opts = &Options{
		Values:   values,
		Revision: s.revision,
		Source:   s.path,
		LoadedAt: s.now(),
	}
	s.current.Store(opts)
	span.SetAttributes(tracer.Int64(tracer.AttrRevision, int64(opts.Revision)))
	s.logger.InfoContext(ctx, "site settings loaded",
		"path", s.path,
		"revision", opts.Revision,
		"keys", len(values),
	)
	return opts, nil
}

func readDocument(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("settings file %s not found", path))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read settings file")
	}
	return Parse(raw)
}

// Parse decodes a settings document and returns the consent library options.
// A document without the DocumentKey section yields nil values.
func Parse(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "settings file is not valid YAML")
	}
	section, ok := doc[DocumentKey]
	if !ok || section == nil {
		return nil, nil
	}
	values, ok := section.(map[string]any)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, DocumentKey+" must be a mapping")
	}
	return values, nil
}
