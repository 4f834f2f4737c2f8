package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/mc-webhooks/internal/app"
	"github.com/shaharia-lab/mc-webhooks/internal/app/mocks"
	"github.com/shaharia-lab/mc-webhooks/internal/dispatch"
	"github.com/shaharia-lab/mc-webhooks/internal/event"
	"github.com/shaharia-lab/mc-webhooks/internal/notification"
	"github.com/shaharia-lab/mc-webhooks/internal/processor"
	"github.com/shaharia-lab/mc-webhooks/internal/pubsub"
)

// --- recording processor ---

type recorder struct {
	name  string
	tags  []string
	err   error
	panic any

	mu     sync.Mutex
	events []*event.Event
}

func (r *recorder) Name() string       { return r.name }
func (r *recorder) ReactsTo() []string { return r.tags }

func (r *recorder) Process(_ context.Context, ev *event.Event, _ *app.Services) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if r.panic != nil {
		panic(r.panic)
	}
	return r.err
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newHandler(t *testing.T, svc *app.Services, procs ...processor.Processor) *dispatch.Handler {
	t.Helper()
	r := processor.NewRegistry()
	for _, p := range procs {
		r.Add(p)
	}
	return dispatch.NewHandler(r, svc)
}

func newLoggedServices(n app.Notifier, p app.Publisher) (*app.Services, *syncBuffer) {
	buf := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return app.NewServices(n, p, nil, logger), buf
}

// --- tests ---

func TestHandleEvent_InvokesOnlyBoundProcessor(t *testing.T) {
	svc, _ := newLoggedServices(nil, nil)
	a := &recorder{name: "a", tags: []string{"tag_a"}}
	b := &recorder{name: "b", tags: []string{"tag_b"}}
	h := newHandler(t, svc, a, b)

	h.HandleEvent(context.Background(), "tag_a", map[string]any{"event": "tag_a", "k": "v"})

	require.Equal(t, 1, a.calls())
	assert.Equal(t, 0, b.calls())
	ev := a.events[0]
	assert.Equal(t, "tag_a", ev.Type())
	assert.Equal(t, "v", ev.String("k", ""))
	assert.False(t, ev.ReceivedAt().IsZero())
}

func TestHandleEvent_UnknownTag(t *testing.T) {
	svc, logs := newLoggedServices(nil, nil)
	a := &recorder{name: "a", tags: []string{"tag_a"}}
	h := newHandler(t, svc, a)

	assert.NotPanics(t, func() {
		h.HandleEvent(context.Background(), "unknown_tag", map[string]any{"event": "unknown_tag"})
	})
	assert.Equal(t, 0, a.calls())
	assert.Contains(t, logs.String(), "no processor for event type")
	assert.Contains(t, logs.String(), `"level":"INFO"`)
}

func TestHandleEvent_EmptyTag(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing event key", map[string]any{"player": "Steve"}},
		{"nil payload", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, logs := newLoggedServices(nil, nil)
			a := &recorder{name: "a", tags: []string{"", "tag_a"}}
			h := newHandler(t, svc, a)

			assert.NotPanics(t, func() {
				h.HandleEvent(context.Background(), "", tt.payload)
			})
			assert.Equal(t, 0, a.calls())
			assert.Contains(t, logs.String(), `"level":"WARN"`)
			assert.Contains(t, logs.String(), "dropping webhook without event type")
		})
	}
}

func TestHandleEvent_ProcessorErrorIsIsolated(t *testing.T) {
	svc, logs := newLoggedServices(nil, nil)
	failing := &recorder{name: "failing", tags: []string{"boom"}, err: errors.New("downstream exploded")}
	h := newHandler(t, svc, failing)

	assert.NotPanics(t, func() {
		h.HandleEvent(context.Background(), "boom", map[string]any{"event": "boom", "player": "Steve"})
	})
	assert.Equal(t, 1, failing.calls())

	out := logs.String()
	assert.Contains(t, out, "processor failed")
	assert.Contains(t, out, "downstream exploded")
	assert.Contains(t, out, `"event_type":"boom"`)
	assert.Contains(t, out, `"processor":"failing"`)
	assert.Contains(t, out, `"payload":`)
}

func TestHandleEvent_ProcessorPanicIsIsolated(t *testing.T) {
	svc, logs := newLoggedServices(nil, nil)
	panicking := &recorder{name: "panicky", tags: []string{"boom"}, panic: "nil map write"}
	h := newHandler(t, svc, panicking)

	assert.NotPanics(t, func() {
		h.HandleEvent(context.Background(), "boom", map[string]any{"event": "boom"})
	})
	assert.Contains(t, logs.String(), "panicked: nil map write")
}

func TestHandleEvent_DuplicateDeliveriesDispatchedIndependently(t *testing.T) {
	svc, _ := newLoggedServices(nil, nil)
	a := &recorder{name: "a", tags: []string{"tag_a"}}
	h := newHandler(t, svc, a)

	payload := map[string]any{"event": "tag_a"}
	h.HandleEvent(context.Background(), "tag_a", payload)
	h.HandleEvent(context.Background(), "tag_a", payload)

	require.Equal(t, 2, a.calls())
	assert.NotEqual(t, a.events[0].ID(), a.events[1].ID())
}

func TestHandleEvent_OverwrittenTagUsesLatest(t *testing.T) {
	svc, _ := newLoggedServices(nil, nil)
	first := &recorder{name: "first", tags: []string{"shared"}}
	second := &recorder{name: "second", tags: []string{"shared"}}
	h := newHandler(t, svc, first, second)

	h.HandleEvent(context.Background(), "shared", nil)

	assert.Equal(t, 0, first.calls())
	assert.Equal(t, 1, second.calls())
}

// A join event notifies and publishes on the join channel.
func TestDispatch_PlayerLogin(t *testing.T) {
	n := new(mocks.MockNotifier)
	p := new(mocks.MockPublisher)
	n.On("SendEmbed", mock.Anything, mock.MatchedBy(func(e notification.Embed) bool {
		return e.Author == "Steve | Joined"
	})).Return(nil).Once()
	p.On("Publish", mock.Anything, "events:player_join", processor.PresenceMessage{Player: "Steve"}).Return(nil).Once()

	svc, _ := newLoggedServices(n, p)
	h := dispatch.NewHandler(processor.Discover(svc.Logger()), svc)
	h.HandleEvent(context.Background(), "player_login", map[string]any{"event": "player_login", "player": "Steve"})

	n.AssertExpectations(t)
	p.AssertExpectations(t)
}

// A quit event reports "Left" on the leave channel.
func TestDispatch_PlayerQuit(t *testing.T) {
	n := new(mocks.MockNotifier)
	p := new(mocks.MockPublisher)
	n.On("SendEmbed", mock.Anything, mock.MatchedBy(func(e notification.Embed) bool {
		return e.Author == "Steve | Left"
	})).Return(nil).Once()
	p.On("Publish", mock.Anything, "events:player_leave", processor.PresenceMessage{Player: "Steve"}).Return(nil).Once()

	svc, _ := newLoggedServices(n, p)
	h := dispatch.NewHandler(processor.Discover(svc.Logger()), svc)
	h.HandleEvent(context.Background(), "player_quit", map[string]any{"event": "player_quit", "player": "Steve"})

	n.AssertExpectations(t)
	p.AssertExpectations(t)
}

// An unknown tag touches neither notifier nor publisher.
func TestDispatch_UnknownTag(t *testing.T) {
	n := new(mocks.MockNotifier)
	p := new(mocks.MockPublisher)

	svc, _ := newLoggedServices(n, p)
	h := dispatch.NewHandler(processor.Discover(svc.Logger()), svc)
	h.HandleEvent(context.Background(), "unknown_tag", map[string]any{"event": "unknown_tag"})

	n.AssertNotCalled(t, "SendEmbed", mock.Anything, mock.Anything)
	p.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// Publishing through a client that never connected fails, and the
// failure is only logged.
func TestDispatch_PublisherNotConnected(t *testing.T) {
	n := new(mocks.MockNotifier)
	n.On("SendEmbed", mock.Anything, mock.Anything).Return(nil)
	unconnected := pubsub.NewRedisClient("redis://localhost:6379", 0, slog.New(slog.DiscardHandler))

	svc, logs := newLoggedServices(n, unconnected)
	h := dispatch.NewHandler(processor.Discover(svc.Logger()), svc)

	assert.NotPanics(t, func() {
		h.HandleEvent(context.Background(), "player_login", map[string]any{"event": "player_login", "player": "Steve"})
	})
	n.AssertExpectations(t)
	assert.Contains(t, logs.String(), "processor failed")
	assert.Contains(t, logs.String(), pubsub.ErrNotConnected.Error())
}
