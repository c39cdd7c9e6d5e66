package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/springjools/ombibot/internal/logging"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/ports"
)

// DefaultLaneIdle is how long a user's lane waits for more events before retiring.
const DefaultLaneIdle = time.Minute

// DefaultLaneBuffer is the queue depth of a user's lane.
const DefaultLaneBuffer = 16

// ErrClosed is returned when submitting to a closed Runner.
var ErrClosed = errors.New("runner closed")

// Runner dispatches events to a Handler, one ordered lane per user.
type Runner struct {
	handler    Handler
	messengers map[string]ports.Messenger
	fallback   ports.Messenger
	logger     *slog.Logger
	laneIdle   time.Duration
	laneBuffer int
	maxInput   int
	now        func() time.Time

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// Option configures the Runner.
type Option func(*Runner)

// WithMessenger delivers effects of events whose Channel is name through m.
// An empty name registers the fallback messenger.
func WithMessenger(name string, m ports.Messenger) Option {
	return func(r *Runner) {
		if name == "" {
			r.fallback = m
			return
		}
		r.messengers[name] = m
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithLaneIdle sets how long an idle lane lives.
func WithLaneIdle(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.laneIdle = d
		}
	}
}

// WithLaneBuffer sets the per-user queue depth.
func WithLaneBuffer(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.laneBuffer = n
		}
	}
}

// WithMaxInputSize bounds inbound text, in bytes.
func WithMaxInputSize(n int) Option {
	return func(r *Runner) {
		r.maxInput = n
	}
}

// WithMiddleware wraps the handler.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(r *Runner) {
		r.handler = Chain(r.handler, middlewares...)
	}
}

// New creates a Runner around handler.
func New(handler Handler, opts ...Option) *Runner {
	r := &Runner{
		handler:    handler,
		messengers: make(map[string]ports.Messenger),
		logger:     logging.NewNop(),
		laneIdle:   DefaultLaneIdle,
		laneBuffer: DefaultLaneBuffer,
		maxInput:   DefaultMaxInputSize,
		now:        time.Now,
		lanes:      make(map[string]*lane),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type result struct {
	effects []domain.Effect
	err     error
}

type job struct {
	ctx   context.Context
	ev    domain.Event
	reply chan result // nil: deliver through the messenger
}

type lane struct {
	userID  string
	jobs    chan job
	pending int // guarded by Runner.mu
}

// Run submits every event from events until ctx is done or events is closed,
// then drains the lanes. It returns nil on a clean stop.
func (r *Runner) Run(ctx context.Context, events <-chan domain.Event) error {
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.Close(drainCtx); err != nil {
			r.logger.Warn("Runner did not drain cleanly", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Submit(ctx, ev); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				r.logger.Warn("Dropped event", "user_id", ev.UserID, "err", err)
			}
		}
	}
}

// Submit queues ev on its user's lane. Effects are delivered through the
// messenger of ev.Channel once handled.
func (r *Runner) Submit(ctx context.Context, ev domain.Event) error {
	ev, err := r.prepare(ev)
	if err != nil {
		return err
	}
	// Handling outlives the submitter: a cancelled transport must not abort a turn.
	return r.enqueue(ctx, job{ctx: context.WithoutCancel(ctx), ev: ev})
}

// Call handles ev on its user's lane and returns the effects instead of
// delivering them. It blocks until the event is handled or ctx is done.
func (r *Runner) Call(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
	ev, err := r.prepare(ev)
	if err != nil {
		return nil, err
	}

	reply := make(chan result, 1)
	if err := r.enqueue(ctx, job{ctx: ctx, ev: ev, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.effects, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// prepare assigns the correlation id and sanitizes user-supplied strings.
func (r *Runner) prepare(ev domain.Event) (domain.Event, error) {
	if ev.UserID == "" {
		return ev, fmt.Errorf("event has no user id")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = r.now()
	}

	var err error
	if ev.Text, err = SanitizeInput(ev.Text, r.maxInput); err != nil {
		return ev, fmt.Errorf("invalid text from user %s: %w", ev.UserID, err)
	}
	if ev.Token, err = SanitizeToken(ev.Token); err != nil {
		return ev, fmt.Errorf("invalid token from user %s: %w", ev.UserID, err)
	}
	return ev, nil
}

func (r *Runner) enqueue(ctx context.Context, j job) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	l, ok := r.lanes[j.ev.UserID]
	if !ok {
		l = &lane{userID: j.ev.UserID, jobs: make(chan job, r.laneBuffer)}
		r.lanes[l.userID] = l
		r.wg.Add(1)
		go r.runLane(l)
	}
	l.pending++
	r.mu.Unlock()

	select {
	case l.jobs <- j:
		return nil
	case <-ctx.Done():
		r.mu.Lock()
		l.pending--
		r.mu.Unlock()
		return ctx.Err()
	}
}

// runLane handles one user's jobs in order and retires when idle.
func (r *Runner) runLane(l *lane) {
	defer r.wg.Done()

	idle := time.NewTimer(r.laneIdle)
	defer idle.Stop()

	for {
		select {
		case j := <-l.jobs:
			r.process(j)
			r.mu.Lock()
			l.pending--
			r.mu.Unlock()
			idle.Reset(r.laneIdle)

		case <-idle.C:
			if r.retire(l) {
				return
			}
			idle.Reset(r.laneIdle)

		case <-r.done:
			// Draining: finish what was accepted, then leave.
			if r.retire(l) {
				return
			}
			select {
			case j := <-l.jobs:
				r.process(j)
				r.mu.Lock()
				l.pending--
				r.mu.Unlock()
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}

// retire removes the lane if nothing is pending on it.
func (r *Runner) retire(l *lane) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.pending > 0 {
		return false
	}
	delete(r.lanes, l.userID)
	return true
}

func (r *Runner) process(j job) {
	effects, err := r.handler.Handle(j.ctx, j.ev)
	if j.reply != nil {
		j.reply <- result{effects: effects, err: err}
		return
	}

	logger := r.logger.With("event_id", j.ev.ID, "user_id", j.ev.UserID)
	if err != nil {
		logger.Error("Failed to handle event", "err", err)
		return
	}
	if len(effects) == 0 {
		return
	}

	m := r.messengerFor(j.ev.Channel)
	if m == nil {
		logger.Warn("No messenger for channel, dropping effects", "channel", j.ev.Channel, "effects", len(effects))
		return
	}
	if err := m.Deliver(j.ctx, effects); err != nil {
		logger.Error("Failed to deliver effects", "channel", j.ev.Channel, "err", err)
	}
}

func (r *Runner) messengerFor(channel string) ports.Messenger {
	if m, ok := r.messengers[channel]; ok {
		return m
	}
	return r.fallback
}

// ActiveLanes reports how many users currently have a lane.
func (r *Runner) ActiveLanes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lanes)
}

// Close stops accepting events and waits for lanes to drain or ctx to end.
// It is safe to call more than once.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("runner drain interrupted: %w", ctx.Err())
	}
}
