package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/springjools/ombibot/internal/logging"
	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/domain"
)

// Name is the channel name carried in Event.Channel.
const Name = "discord"

const (
	sendTimeout        = 10 * time.Second
	defaultEventBuffer = 64
)

// api is the part of *discordgo.Session the channel talks to.
type api interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Channel is a ports.Messenger and an inbound event source for one bot.
type Channel struct {
	session   *discordgo.Session
	api       api
	codec     codec.Codec
	logger    *slog.Logger
	allowList []string
	events    chan domain.Event

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures the Channel.
type Option func(*Channel)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithCodec sets the codec used to style buttons.
func WithCodec(cd codec.Codec) Option {
	return func(c *Channel) {
		c.codec = cd
	}
}

// WithAllowFrom restricts the bot to the given Discord user ids (or usernames).
// An empty list allows everyone.
func WithAllowFrom(ids ...string) Option {
	return func(c *Channel) {
		c.allowList = append(c.allowList, ids...)
	}
}

// WithEventBuffer sets the depth of the inbound event queue.
func WithEventBuffer(n int) Option {
	return func(c *Channel) {
		if n > 0 {
			c.events = make(chan domain.Event, n)
		}
	}
}

// New creates a Channel for the bot token.
func New(token string, opts ...Option) (*Channel, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("discord: bot token must not be empty")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	c := newChannel(session, opts...)
	c.session = session
	return c, nil
}

func newChannel(a api, opts ...Option) *Channel {
	c := &Channel{
		api:    a,
		codec:  codec.New(codec.IDNumeric),
		logger: logging.NewNop(),
		events: make(chan domain.Event, defaultEventBuffer),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the inbound event stream. It is never closed; consumers stop
// on their own context.
func (c *Channel) Events() <-chan domain.Event {
	return c.events
}

// Start connects to the gateway.
func (c *Channel) Start(ctx context.Context) error {
	c.logger.Info("Starting Discord bot")

	c.session.AddHandler(c.handleMessage)
	c.session.AddHandler(c.handleInteraction)
	c.session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	if u := c.session.State.User; u != nil {
		c.logger.Info("Discord bot connected", "username", u.Username, "user_id", u.ID)
	}
	return nil
}

// Stop disconnects. Pending handlers stop publishing.
func (c *Channel) Stop(ctx context.Context) error {
	c.logger.Info("Stopping Discord bot")
	c.stopOnce.Do(func() { close(c.stop) })

	if c.session == nil {
		return nil
	}
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

// IsAllowed reports whether the sender may talk to the bot.
func (c *Channel) IsAllowed(userID, username string) bool {
	if len(c.allowList) == 0 {
		return true
	}
	for _, allowed := range c.allowList {
		candidate := strings.TrimSpace(strings.TrimPrefix(allowed, "@"))
		if candidate == "" {
			continue
		}
		if candidate == userID || (username != "" && candidate == username) {
			return true
		}
	}
	return false
}

func (c *Channel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if !c.IsAllowed(m.Author.ID, m.Author.Username) {
		c.logger.Debug("Message rejected by allowlist", "user_id", m.Author.ID)
		return
	}
	if strings.TrimSpace(m.Content) == "" {
		return
	}

	c.publish(domain.Event{
		Kind:        domain.EventText,
		Channel:     Name,
		UserID:      m.Author.ID,
		ChatID:      m.ChannelID,
		DisplayName: displayName(m.Author),
		Text:        m.Content,
	})
}

func (c *Channel) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}
	if !c.IsAllowed(user.ID, user.Username) {
		c.logger.Debug("Interaction rejected by allowlist", "user_id", user.ID)
		return
	}

	// Acknowledge at once; the engine answers by editing the message.
	err := c.api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		c.logger.Warn("Failed to acknowledge interaction", "user_id", user.ID, "err", err)
	}

	ev := domain.Event{
		Kind:        domain.EventCallback,
		Channel:     Name,
		UserID:      user.ID,
		ChatID:      i.ChannelID,
		DisplayName: displayName(user),
		Token:       i.MessageComponentData().CustomID,
	}
	if i.Message != nil {
		ev.MessageRef = i.Message.ID
	}
	c.publish(ev)
}

func (c *Channel) publish(ev domain.Event) {
	select {
	case c.events <- ev:
	case <-c.stop:
		c.logger.Debug("Channel stopped, dropping event", "user_id", ev.UserID)
	}
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Deliver sends or edits messages for each effect, in order.
func (c *Channel) Deliver(ctx context.Context, effects []domain.Effect) error {
	for _, eff := range effects {
		if eff.ChatID == "" {
			return errors.New("discord: effect has no channel id")
		}
		if err := c.deliver(ctx, eff); err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) deliver(ctx context.Context, eff domain.Effect) error {
	pages := Paginate(c.codec, eff.Text, eff.Menu)

	first, rest := pages[0], pages[1:]
	if eff.Kind == domain.EffectEdit && eff.MessageRef != "" {
		if err := c.edit(ctx, eff.ChatID, eff.MessageRef, first); err != nil {
			return err
		}
	} else if err := c.send(ctx, eff.ChatID, first); err != nil {
		return err
	}

	for _, page := range rest {
		if err := c.send(ctx, eff.ChatID, page); err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) send(ctx context.Context, channelID string, page Page) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := c.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    page.Content,
		Components: page.Components,
	}, discordgo.WithContext(sendCtx))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func (c *Channel) edit(ctx context.Context, channelID, messageID string, page Page) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	// A non-nil empty slice clears buttons left over from the previous screen.
	components := page.Components
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	edit := discordgo.NewMessageEdit(channelID, messageID).SetContent(page.Content)
	edit.Components = &components

	if _, err := c.api.ChannelMessageEditComplex(edit, discordgo.WithContext(sendCtx)); err != nil {
		return fmt.Errorf("failed to edit discord message %s: %w", messageID, err)
	}
	return nil
}
