package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/springjools/ombibot/internal/runtime"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	var (
		transitions []domain.TransitionEvent
		calls       []domain.CatalogEvent
	)
	hooks := domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			transitions = append(transitions, *e)
		},
		OnCatalogCall: func(ctx context.Context, e *domain.CatalogEvent) {
			calls = append(calls, *e)
		},
	}
	h := newHarness(t, runtime.WithLifecycleHooks(hooks))

	h.text("/start")
	h.press("0")
	h.text("Inception")
	h.press("not-a-token")

	require.Len(t, transitions, 4)
	assert.Equal(t, "/start", transitions[0].Trigger)
	assert.Equal(t, domain.StateEntry, transitions[0].To)
	assert.Equal(t, "movie", transitions[1].Trigger)
	assert.Equal(t, domain.StateAwaitingTitleText, transitions[1].To)
	assert.Equal(t, "text", transitions[2].Trigger)
	assert.Equal(t, domain.StateAwaitingTitleText, transitions[2].From)
	assert.Equal(t, domain.StateResultsShown, transitions[2].To)
	assert.Equal(t, "malformed", transitions[3].Trigger)
	assert.Equal(t, domain.StateResultsShown, transitions[3].To)

	require.Len(t, calls, 1)
	assert.Equal(t, "search_title", calls[0].Op)
	assert.NoError(t, calls[0].Err)
}

// blockingCatalog never answers until its context is done.
type blockingCatalog struct {
	*fakeCatalog
}

func (b blockingCatalog) SearchByTitle(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEngine_RequestTimeoutIsTransportFailure(t *testing.T) {
	var callErr error
	engine := runtime.NewEngine(blockingCatalog{newFakeCatalog()},
		runtime.WithRequestTimeout(20*time.Millisecond),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnCatalogCall: func(ctx context.Context, e *domain.CatalogEvent) { callErr = e.Err },
		}),
	)
	ctx := context.Background()
	ev := domain.Event{Kind: domain.EventText, UserID: "7", ChatID: "7"}

	ev.Text = "/start"
	_, err := engine.Handle(ctx, ev)
	require.NoError(t, err)
	ev.Kind, ev.Token = domain.EventCallback, "0"
	_, err = engine.Handle(ctx, ev)
	require.NoError(t, err)

	ev.Kind, ev.Text = domain.EventText, "Inception"
	effects, err := engine.Handle(ctx, ev)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].Text, "could not be reached")
	assert.True(t, errors.Is(callErr, domain.ErrTransport))
}
