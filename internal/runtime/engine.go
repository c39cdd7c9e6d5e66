package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/springjools/ombibot/internal/logging"
	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/menu"
	"github.com/springjools/ombibot/pkg/ports"
	"github.com/springjools/ombibot/pkg/session"
)

// DefaultRequestTimeout bounds every catalog call.
const DefaultRequestTimeout = 30 * time.Second

// Engine is the conversation state machine.
// It turns one inbound event into outbound effects, mutating the user's
// session under the session manager's per-user lock.
type Engine struct {
	catalog        ports.CatalogClient
	manager        *session.Manager
	codec          codec.Codec
	renderer       menu.Renderer
	requestTimeout time.Duration
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	now            func() time.Time
	table          transitionTable
}

// Option configures the Engine.
type Option func(*Engine)

// WithManager sets the session manager (default: in-memory, 24h idle timeout).
func WithManager(m *session.Manager) Option {
	return func(e *Engine) {
		e.manager = m
	}
}

// WithCodec sets the token codec used for decoding callbacks and rendering menus.
func WithCodec(c codec.Codec) Option {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithRequestTimeout bounds each catalog call. Zero keeps the default.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.requestTimeout = d
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces time.Now for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine backed by catalog.
func NewEngine(catalog ports.CatalogClient, opts ...Option) *Engine {
	e := &Engine{
		catalog:        catalog,
		requestTimeout: DefaultRequestTimeout,
		logger:         logging.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.manager == nil {
		e.manager = session.NewManager(session.WithLogger(e.logger))
	}
	e.renderer = menu.New(e.codec)
	e.table = e.buildTable()
	return e
}

// Manager exposes the session manager, for sweepers and introspection.
func (e *Engine) Manager() *session.Manager {
	return e.manager
}

// Handle applies one inbound event to the sender's session and returns the
// effects to deliver. Catalog failures and bad input are answered in-band;
// the error is reserved for session storage and locking failures.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
	if ev.UserID == "" {
		return nil, fmt.Errorf("event %q has no user id", ev.ID)
	}

	logger := e.logger.With("user_id", ev.UserID)
	if ev.ID != "" {
		logger = logger.With("event_id", ev.ID)
	}

	var effects []domain.Effect
	err := e.manager.Do(ctx, ev.UserID, func(ctx context.Context, sess *domain.Session, created bool) error {
		if created {
			logger.Debug("Session created")
		}
		if ev.ChatID != "" {
			sess.ChatID = ev.ChatID
		}
		if sess.ChatID == "" {
			sess.ChatID = ev.UserID
		}
		e.manager.ResolveAccountName(ctx, sess, ev.DisplayName)

		t := &turn{engine: e, sess: sess, ev: ev, logger: logger}
		from := sess.State
		trigger := e.dispatch(ctx, t)

		if !sess.State.Valid() {
			logger.Error("Transition left an undefined state, resetting", "state", sess.State)
			sess.Reset()
		}

		logger.Debug("Transition",
			"from", from,
			"to", sess.State,
			"trigger", trigger,
			"effects", len(t.effects),
		)
		e.emitTransition(ctx, &domain.TransitionEvent{
			Timestamp: e.now(),
			EventID:   ev.ID,
			UserID:    ev.UserID,
			From:      from,
			To:        sess.State,
			Trigger:   trigger,
		})

		effects = t.effects
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to handle event for user %s: %w", ev.UserID, err)
	}
	return effects, nil
}

func (e *Engine) emitTransition(ctx context.Context, ev *domain.TransitionEvent) {
	if e.hooks.OnTransition != nil {
		e.hooks.OnTransition(ctx, ev)
	}
}

// turn carries the state of a single Handle call.
type turn struct {
	engine  *Engine
	sess    *domain.Session
	ev      domain.Event
	tok     codec.Token
	logger  *slog.Logger
	effects []domain.Effect
}

// show displays screen and remembers it as the current prompt. Edits fall
// back to new messages when the event carries no message to edit.
func (t *turn) show(screen *domain.Screen, edit bool) {
	t.sess.Screen = screen.Clone()
	t.emit(screen, edit)
}

// emit displays screen without making it the current prompt.
func (t *turn) emit(screen *domain.Screen, edit bool) {
	kind := domain.EffectSend
	ref := ""
	if edit && t.ev.MessageRef != "" {
		kind = domain.EffectEdit
		ref = t.ev.MessageRef
	}
	t.effects = append(t.effects, domain.Effect{
		Kind:       kind,
		ChatID:     t.sess.ChatID,
		MessageRef: ref,
		Text:       screen.Text,
		Menu:       screen.Menu.Clone(),
	})
}

// say sends plain text.
func (t *turn) say(text string) {
	t.emit(&domain.Screen{Text: text}, false)
}

// current returns the prompt on display, falling back to the state's default.
func (t *turn) current() *domain.Screen {
	if t.sess.Screen != nil {
		return t.sess.Screen
	}
	r := t.engine.renderer
	switch t.sess.State {
	case domain.StateAwaitingTitleText:
		return r.TitlePrompt()
	case domain.StateAwaitingContributorText:
		return r.ContributorPrompt()
	case domain.StateResultsShown:
		if t.sess.LastMenu != nil {
			return t.sess.LastMenu
		}
	}
	return r.Entry()
}

// reprompt re-renders the current prompt in place.
func (t *turn) reprompt() {
	t.show(t.current(), true)
}

// fail answers a recoverable catalog failure, keeping state and prompt.
func (t *turn) fail(err error, edit bool) {
	t.logger.Warn("Catalog call failed", "state", t.sess.State, "err", err)
	t.emit(menu.Failure(domain.Reason(err), t.current()), edit)
}
