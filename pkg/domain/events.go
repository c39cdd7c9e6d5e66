package domain

import (
	"context"
	"time"
)

// EventKind distinguishes inbound events.
type EventKind string

const (
	EventText     EventKind = "text"     // Free-form text (including /commands)
	EventCallback EventKind = "callback" // A button press carrying an action token
)

// Event is an inbound message from a messaging channel.
type Event struct {
	ID          string    `json:"id,omitempty"` // Correlation id, assigned by the runner if empty
	Kind        EventKind `json:"kind"`
	Channel     string    `json:"channel,omitempty"`
	UserID      string    `json:"user_id"`
	ChatID      string    `json:"chat_id"`
	DisplayName string    `json:"display_name,omitempty"` // First-name hint for account resolution logs
	Text        string    `json:"text,omitempty"`
	Token       string    `json:"token,omitempty"`
	MessageRef  string    `json:"message_ref,omitempty"` // Message the button belonged to
	ReceivedAt  time.Time `json:"received_at"`
}

// EffectKind distinguishes outbound effects.
type EffectKind string

const (
	EffectSend EffectKind = "send" // Post a new message
	EffectEdit EffectKind = "edit" // Replace the message referenced by MessageRef
)

// Effect is an outbound instruction for a messaging channel.
type Effect struct {
	Kind       EffectKind `json:"kind"`
	ChatID     string     `json:"chat_id"`
	MessageRef string     `json:"message_ref,omitempty"`
	Text       string     `json:"text"`
	Menu       *Menu      `json:"menu,omitempty"`
}

// TransitionEvent describes one handled inbound event.
type TransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	Trigger   string    `json:"trigger"` // e.g. "text", "movie", "item", "malformed"
}

// CatalogEvent describes one call into the catalog.
type CatalogEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Op        string        `json:"op"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTransition     func(context.Context, *TransitionEvent)
	OnCatalogCall    func(context.Context, *CatalogEvent)
	OnSessionEvicted func(ctx context.Context, userID string)
}
