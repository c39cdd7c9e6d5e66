package runner_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/ports"
	"github.com/springjools/ombibot/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recorder is a Messenger that keeps every delivered effect.
type recorder struct {
	mu      sync.Mutex
	effects []domain.Effect
}

func (r *recorder) Deliver(ctx context.Context, effects []domain.Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, effects...)
	return nil
}

func (r *recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.effects))
	for _, e := range r.effects {
		out = append(out, e.Text)
	}
	return out
}

// echo answers every event with its text, after an optional delay.
func echo(delay time.Duration) runner.HandlerFunc {
	return func(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
		time.Sleep(delay)
		return []domain.Effect{{Kind: domain.EffectSend, ChatID: ev.ChatID, Text: ev.UserID + ":" + ev.Text}}, nil
	}
}

func TestRunner_PreservesPerUserOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	r := runner.New(echo(time.Millisecond), runner.WithMessenger("", rec))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, r.Submit(ctx, domain.Event{Kind: domain.EventText, UserID: "u1", Text: fmt.Sprint(i)}))
	}
	require.NoError(t, r.Close(ctx))

	var want []string
	for i := 0; i < 20; i++ {
		want = append(want, fmt.Sprintf("u1:%d", i))
	}
	assert.Equal(t, want, rec.Texts())
}

func TestRunner_UsersRunConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	handler := runner.HandlerFunc(func(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
		if ev.UserID == "slow" {
			<-release
		}
		return []domain.Effect{{Text: ev.UserID}}, nil
	})
	rec := &recorder{}
	r := runner.New(handler, runner.WithMessenger("", rec))
	ctx := context.Background()

	require.NoError(t, r.Submit(ctx, domain.Event{UserID: "slow"}))
	require.NoError(t, r.Submit(ctx, domain.Event{UserID: "fast"}))

	assert.Eventually(t, func() bool {
		texts := rec.Texts()
		return len(texts) == 1 && texts[0] == "fast"
	}, time.Second, 5*time.Millisecond, "fast user must not wait behind slow user")

	close(release)
	require.NoError(t, r.Close(ctx))
	assert.Equal(t, []string{"fast", "slow"}, rec.Texts())
}

func TestRunner_CallReturnsEffects(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	r := runner.New(echo(0), runner.WithMessenger("", rec))
	defer r.Close(context.Background())

	effects, err := r.Call(context.Background(), domain.Event{UserID: "u1", Text: "hi"})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, "u1:hi", effects[0].Text)
	assert.Empty(t, rec.Texts(), "Call must not deliver")
}

func TestRunner_RoutesByChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	discord, fallback := &recorder{}, &recorder{}
	r := runner.New(echo(0),
		runner.WithMessenger("discord", discord),
		runner.WithMessenger("", fallback),
	)
	ctx := context.Background()

	require.NoError(t, r.Submit(ctx, domain.Event{Channel: "discord", UserID: "a", Text: "1"}))
	require.NoError(t, r.Submit(ctx, domain.Event{Channel: "other", UserID: "b", Text: "2"}))
	require.NoError(t, r.Close(ctx))

	assert.Equal(t, []string{"a:1"}, discord.Texts())
	assert.Equal(t, []string{"b:2"}, fallback.Texts())
}

func TestRunner_AssignsEventIDAndSanitizes(t *testing.T) {
	defer goleak.VerifyNone(t)

	var seen domain.Event
	handler := runner.HandlerFunc(func(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
		seen = ev
		return nil, nil
	})
	r := runner.New(handler)
	defer r.Close(context.Background())

	_, err := r.Call(context.Background(), domain.Event{UserID: "u1", Text: "Alien\x1b[0m"})
	require.NoError(t, err)
	assert.NotEmpty(t, seen.ID)
	assert.False(t, seen.ReceivedAt.IsZero())
	assert.Equal(t, "Alien[0m", seen.Text)

	_, err = r.Call(context.Background(), domain.Event{UserID: "u1", Text: "bad\xff"})
	assert.ErrorIs(t, err, runner.ErrInvalidUTF8)
}

func TestRunner_LanesRetireWhenIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := runner.New(echo(0), runner.WithLaneIdle(10*time.Millisecond), runner.WithMessenger("", &recorder{}))
	defer r.Close(context.Background())

	require.NoError(t, r.Submit(context.Background(), domain.Event{UserID: "u1"}))
	assert.Eventually(t, func() bool { return r.ActiveLanes() == 0 }, time.Second, 5*time.Millisecond)

	// A retired user gets a fresh lane.
	_, err := r.Call(context.Background(), domain.Event{UserID: "u1"})
	assert.NoError(t, err)
}

func TestRunner_ClosedRejectsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := runner.New(echo(0))
	require.NoError(t, r.Close(context.Background()))
	require.NoError(t, r.Close(context.Background()))

	err := r.Submit(context.Background(), domain.Event{UserID: "u1"})
	assert.ErrorIs(t, err, runner.ErrClosed)
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	r := runner.New(echo(0), runner.WithMessenger("", rec))
	events := make(chan domain.Event)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, events) }()

	events <- domain.Event{UserID: "u1", Text: "x"}
	assert.Eventually(t, func() bool { return len(rec.Texts()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunner_RecoverMiddleware(t *testing.T) {
	defer goleak.VerifyNone(t)

	calls := 0
	handler := runner.HandlerFunc(func(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return []domain.Effect{{Text: "ok"}}, nil
	})
	r := runner.New(handler, runner.WithMiddleware(runner.RecoverMiddleware(discardLogger())))
	defer r.Close(context.Background())

	_, err := r.Call(context.Background(), domain.Event{UserID: "u1"})
	assert.ErrorContains(t, err, "panic")

	effects, err := r.Call(context.Background(), domain.Event{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "ok", effects[0].Text)
}

var _ ports.Messenger = (*recorder)(nil)
