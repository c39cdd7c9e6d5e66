// Package console is a terminal channel: screens are printed as text followed
// by numbered buttons, and typing a button's number presses it.
package console

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"github.com/springjools/ombibot/pkg/domain"
)

// Name is the channel name carried by console events.
const Name = "console"

// Dispatcher handles one event and returns its effects (see runner.Runner.Call).
type Dispatcher interface {
	Call(ctx context.Context, ev domain.Event) ([]domain.Effect, error)
}

// Conversation is one user's terminal session with the bot.
type Conversation struct {
	dispatcher Dispatcher
	userID     string
	name       string
	out        io.Writer
	profile    termenv.Profile

	mu       sync.Mutex
	buttons  []domain.Button
	menuRef  string
	messages int
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithDisplayName sets the name reported with each event.
func WithDisplayName(name string) Option {
	return func(c *Conversation) {
		c.name = name
	}
}

// WithProfile colours button numbers with the given terminal profile.
func WithProfile(p termenv.Profile) Option {
	return func(c *Conversation) {
		c.profile = p
	}
}

// New starts a conversation for userID that prints to out.
func New(dispatcher Dispatcher, userID string, out io.Writer, opts ...Option) *Conversation {
	c := &Conversation{
		dispatcher: dispatcher,
		userID:     userID,
		out:        out,
		profile:    termenv.Ascii,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Event turns a typed line into an inbound event. A number naming one of the
// buttons on screen presses it; anything else is sent as text.
func (c *Conversation) Event(line string) domain.Event {
	line = strings.TrimSpace(line)
	ev := domain.Event{
		Kind:        domain.EventText,
		Channel:     Name,
		UserID:      c.userID,
		ChatID:      c.userID,
		DisplayName: c.name,
		Text:        line,
		ReceivedAt:  time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(c.buttons) {
		ev.Kind = domain.EventCallback
		ev.Text = ""
		ev.Token = c.buttons[n-1].Token
		ev.MessageRef = c.menuRef
	}
	return ev
}

// Say dispatches a typed line and prints the resulting effects.
func (c *Conversation) Say(ctx context.Context, line string) error {
	effects, err := c.dispatcher.Call(ctx, c.Event(line))
	if err != nil {
		return err
	}
	return c.Deliver(ctx, effects)
}

// Deliver prints effects. The most recent menu becomes the one numbers refer to.
func (c *Conversation) Deliver(ctx context.Context, effects []domain.Effect) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, eff := range effects {
		ref := eff.MessageRef
		if eff.Kind != domain.EffectEdit || ref == "" {
			c.messages++
			ref = strconv.Itoa(c.messages)
		}

		var b strings.Builder
		b.WriteString(eff.Text)
		b.WriteString("\n")

		buttons := eff.Menu.Buttons()
		if eff.Kind == domain.EffectEdit || len(buttons) > 0 {
			c.buttons = buttons
			c.menuRef = ref
		}
		n := 0
		for _, row := range rows(eff.Menu) {
			for _, btn := range row {
				n++
				b.WriteString("  ")
				b.WriteString(c.profile.String(fmt.Sprintf("[%d]", n)).Bold().String())
				b.WriteString(" ")
				b.WriteString(btn.Label)
			}
			b.WriteString("\n")
		}

		if _, err := io.WriteString(c.out, b.String()+"\n"); err != nil {
			return fmt.Errorf("failed to write to console: %w", err)
		}
	}
	return nil
}

func rows(m *domain.Menu) []domain.Row {
	if m == nil {
		return nil
	}
	return m.Rows
}
