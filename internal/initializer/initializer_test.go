package initializer_test

//go:generate mockgen -source=library.go -destination=mocks/library_mock.go -package=mocks Library,Locator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"eucookie/internal/initializer"
	"eucookie/internal/initializer/mocks"
	"eucookie/internal/settings"
	dErrors "eucookie/pkg/domain-errors"
	"eucookie/pkg/testutil"
)

// InitializerSuite covers the one-shot gate.
//
// Justification: every guarantee the service makes about banner setup
// (at most once, only when loaded, listeners first, same options object)
// lives here and nowhere else.
type InitializerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	library *mocks.MockLibrary
	slot    *initializer.Slot
	logger  *slog.Logger
	ctx     context.Context
}

func TestInitializerSuite(t *testing.T) {
	suite.Run(t, new(InitializerSuite))
}

func (s *InitializerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.library = mocks.NewMockLibrary(s.ctrl)
	s.slot = &initializer.Slot{}
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.ctx = context.Background()
}

func (s *InitializerSuite) newInitializer(opts ...initializer.Option) *initializer.Initializer {
	return initializer.New(s.slot, append([]initializer.Option{initializer.WithLogger(s.logger)}, opts...)...)
}

func visibleBanner() *settings.Options {
	return &settings.Options{Values: map[string]any{"banner": "visible"}, Revision: 1}
}

func (s *InitializerSuite) TestIdempotence() {
	opts := visibleBanner()
	s.slot.Install(s.library)
	s.library.EXPECT().Init(gomock.Any(), opts).Return(nil).Times(1)

	var notified int
	gate := s.newInitializer(initializer.WithListener(func(context.Context, initializer.Notification) {
		notified++
	}))

	outcomes := make([]initializer.Outcome, 0, 5)
	for range 5 {
		outcome, err := gate.Attempt(s.ctx, "#main", opts)
		s.Require().NoError(err)
		outcomes = append(outcomes, outcome)
	}

	s.Equal(1, notified)
	s.True(gate.Fired())
	s.Equal(initializer.OutcomeInitialized, outcomes[0])
	for _, o := range outcomes[1:] {
		s.Equal(initializer.OutcomeAlreadyFired, o)
	}
}

func (s *InitializerSuite) TestDeferredActivation() {
	opts := visibleBanner()
	var notified int
	gate := s.newInitializer(initializer.WithListener(func(context.Context, initializer.Notification) {
		notified++
	}))

	for range 3 {
		outcome, err := gate.Attempt(s.ctx, "#main", opts)
		s.Require().NoError(err)
		s.Equal(initializer.OutcomeDeferred, outcome)
		s.False(gate.Fired())
		s.Zero(notified)
	}

	s.slot.Install(s.library)
	s.library.EXPECT().Init(gomock.Any(), opts).Return(nil).Times(1)

	outcome, err := gate.Attempt(s.ctx, "#sidebar", opts)
	s.Require().NoError(err)
	s.Equal(initializer.OutcomeInitialized, outcome)
	s.Equal(1, notified)

	outcome, err = gate.Attempt(s.ctx, "#footer", opts)
	s.Require().NoError(err)
	s.Equal(initializer.OutcomeAlreadyFired, outcome)
	s.Equal(1, notified)
}

func (s *InitializerSuite) TestNeverAvailable() {
	locator := mocks.NewMockLocator(s.ctrl)
	locator.EXPECT().Lookup().Return(nil, false).Times(4)

	var notified int
	gate := initializer.New(locator,
		initializer.WithLogger(s.logger),
		initializer.WithListener(func(context.Context, initializer.Notification) { notified++ }),
	)

	for range 4 {
		outcome, err := gate.Attempt(s.ctx, "#main", visibleBanner())
		s.Require().NoError(err)
		s.Equal(initializer.OutcomeDeferred, outcome)
	}
	s.Zero(notified)
	s.False(gate.Fired())
}

func (s *InitializerSuite) TestNilLocatorDefers() {
	gate := initializer.New(nil, initializer.WithLogger(s.logger))
	outcome, err := gate.Attempt(s.ctx, "", nil)
	s.Require().NoError(err)
	s.Equal(initializer.OutcomeDeferred, outcome)
}

func (s *InitializerSuite) TestPayloadFidelity() {
	opts := visibleBanner()
	s.slot.Install(s.library)

	var seenByListener, seenByLibrary *settings.Options
	s.library.EXPECT().Init(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, got *settings.Options) error {
			seenByLibrary = got
			return nil
		})

	gate := s.newInitializer(initializer.WithListener(func(_ context.Context, n initializer.Notification) {
		seenByListener = n.Options
	}))

	_, err := gate.Attempt(s.ctx, "#main", opts)
	s.Require().NoError(err)
	s.Same(opts, seenByListener)
	s.Same(opts, seenByLibrary)
	s.Equal(map[string]any{"banner": "visible"}, opts.Values, "options must not be mutated")
}

func (s *InitializerSuite) TestNilOptionsPassThrough() {
	s.slot.Install(s.library)
	s.library.EXPECT().Init(gomock.Any(), gomock.Nil()).Return(nil)

	var listenerGotNil bool
	gate := s.newInitializer(initializer.WithListener(func(_ context.Context, n initializer.Notification) {
		listenerGotNil = n.Options == nil
	}))

	outcome, err := gate.Attempt(s.ctx, "#main", nil)
	s.Require().NoError(err)
	s.Equal(initializer.OutcomeInitialized, outcome)
	s.True(listenerGotNil)
}

func (s *InitializerSuite) TestNotificationPrecedesInit() {
	s.slot.Install(s.library)
	var order []string
	s.library.EXPECT().Init(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *settings.Options) error {
			order = append(order, "init")
			return nil
		})

	fixed := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	var got initializer.Notification
	gate := s.newInitializer(
		initializer.WithClock(func() time.Time { return fixed }),
		initializer.WithListener(func(_ context.Context, n initializer.Notification) {
			got = n
			order = append(order, "first listener")
		}),
		initializer.WithListener(func(context.Context, initializer.Notification) {
			order = append(order, "second listener")
		}),
	)

	_, err := gate.Attempt(s.ctx, "#main", visibleBanner())
	s.Require().NoError(err)
	s.Equal([]string{"first listener", "second listener", "init"}, order)
	s.Equal(initializer.EventInit, got.Name)
	s.Equal("#main", got.Scope)
	s.Equal(fixed, got.At)
}

func (s *InitializerSuite) TestVisibleBannerScenario() {
	opts := visibleBanner()
	s.slot.Install(s.library)
	s.library.EXPECT().Init(gomock.Any(), opts).Return(nil).Times(1)

	var payloads []*settings.Options
	gate := s.newInitializer(initializer.WithListener(func(_ context.Context, n initializer.Notification) {
		payloads = append(payloads, n.Options)
	}))

	first, err := gate.Attempt(s.ctx, "document", opts)
	s.Require().NoError(err)
	second, err := gate.Attempt(s.ctx, "document", opts)
	s.Require().NoError(err)

	s.Equal(initializer.OutcomeInitialized, first)
	s.Equal(initializer.OutcomeAlreadyFired, second)
	s.Require().Len(payloads, 1)
	s.Equal("visible", payloads[0].Values["banner"])
}

func (s *InitializerSuite) TestFailedInitLeavesGateOpen() {
	opts := visibleBanner()
	s.slot.Install(s.library)
	gomock.InOrder(
		s.library.EXPECT().Init(gomock.Any(), opts).Return(errors.New("storage unavailable")),
		s.library.EXPECT().Init(gomock.Any(), opts).Return(nil),
	)
	gate := s.newInitializer()

	outcome, err := gate.Attempt(s.ctx, "#main", opts)
	s.Require().Error(err)
	s.Equal(initializer.OutcomeFailed, outcome)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.False(gate.Fired())

	outcome, err = gate.Attempt(s.ctx, "#main", opts)
	s.Require().NoError(err)
	s.Equal(initializer.OutcomeInitialized, outcome)
	s.True(gate.Fired())
}

func (s *InitializerSuite) TestLibraryErrorCodeIsKept() {
	s.slot.Install(s.library)
	s.library.EXPECT().Init(gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeInvalidInput, "popup_enabled must be a boolean"))

	_, err := s.newInitializer().Attempt(s.ctx, "#main", visibleBanner())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *InitializerSuite) TestPanickingLibraryBecomesError() {
	s.slot.Install(s.library)
	s.library.EXPECT().Init(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *settings.Options) error { panic("banner template missing") })
	gate := s.newInitializer()

	var outcome initializer.Outcome
	var err error
	s.NotPanics(func() {
		outcome, err = gate.Attempt(s.ctx, "#main", visibleBanner())
	})
	s.Error(err)
	s.Equal(initializer.OutcomeFailed, outcome)
	s.False(gate.Fired())
}

func (s *InitializerSuite) TestPanickingListenerSkipsInit() {
	s.slot.Install(s.library)
	gate := s.newInitializer(initializer.WithListener(func(context.Context, initializer.Notification) {
		panic("observer bug")
	}))

	outcome, err := gate.Attempt(s.ctx, "#main", visibleBanner())
	s.Error(err)
	s.Equal(initializer.OutcomeFailed, outcome)
	s.False(gate.Fired())
}

func (s *InitializerSuite) TestUnsubscribe() {
	s.slot.Install(s.library)
	s.library.EXPECT().Init(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	var kept, dropped int
	gate := s.newInitializer()
	gate.Subscribe(func(context.Context, initializer.Notification) { kept++ })
	unsubscribe := gate.Subscribe(func(context.Context, initializer.Notification) { dropped++ })

	_, err := gate.Attempt(s.ctx, "#main", nil)
	s.Require().NoError(err)
	unsubscribe()
	unsubscribe()

	gate.Reset()
	_, err = gate.Attempt(s.ctx, "#main", nil)
	s.Require().NoError(err)

	s.Equal(2, kept)
	s.Equal(1, dropped)
}

func (s *InitializerSuite) TestRemovedLibraryDefersAgain() {
	s.slot.Install(s.library)
	s.slot.Remove()

	outcome, err := s.newInitializer().Attempt(s.ctx, "#main", nil)
	s.Require().NoError(err)
	s.Equal(initializer.OutcomeDeferred, outcome)
}

func (s *InitializerSuite) TestConcurrentAttemptsInitializeOnce() {
	s.slot.Install(s.library)
	s.library.EXPECT().Init(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *settings.Options) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		}).Times(1)

	var notified, initialized atomic.Int32
	gate := s.newInitializer(initializer.WithListener(func(context.Context, initializer.Notification) {
		notified.Add(1)
	}))

	result := testutil.RunConcurrent(50, func(int) error {
		outcome, err := gate.Attempt(s.ctx, "#main", nil)
		if outcome == initializer.OutcomeInitialized {
			initialized.Add(1)
		}
		return err
	})

	s.Equal(int32(50), result.Successes)
	s.Equal(int32(1), notified.Load())
	s.Equal(int32(1), initialized.Load())
	s.True(gate.Fired())
}

func TestLocatorFunc(t *testing.T) {
	calls := 0
	locator := initializer.LocatorFunc(func() (initializer.Library, bool) {
		calls++
		return nil, false
	})
	gate := initializer.New(locator)

	outcome, err := gate.Attempt(context.Background(), "", nil)
	if err != nil || outcome != initializer.OutcomeDeferred || calls != 1 {
		t.Fatalf("expected one deferred lookup, got outcome=%s err=%v calls=%d", outcome, err, calls)
	}
}
