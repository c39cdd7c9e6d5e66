package domain

import "time"

// GuestAccount is the account name used for users missing from the account mapping.
const GuestAccount = "guest"

// SearchMode tells how a results list was produced.
type SearchMode int

const (
	SearchTitle SearchMode = iota
	SearchContributor
	SearchSimilar
)

func (m SearchMode) String() string {
	switch m {
	case SearchContributor:
		return "contributor"
	case SearchSimilar:
		return "similar"
	default:
		return "title"
	}
}

// Search records how to recompute a results list: a query for title and
// contributor searches, a reference item for similar-item searches.
type Search struct {
	Mode   SearchMode `json:"mode"`
	Query  string     `json:"query,omitempty"`
	ItemID ItemID     `json:"item_id,omitempty"`
}

// Session is the per-user conversational context.
type Session struct {
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`

	// AccountName is resolved once per session from the account mapping.
	AccountName     string `json:"account_name"`
	AccountResolved bool   `json:"account_resolved"`

	State State `json:"state"`

	// Screen is the prompt currently displayed, used to re-prompt.
	Screen *Screen `json:"screen,omitempty"`

	// LastMenu is the results screen most recently rendered. "Back" replays it.
	LastMenu *Screen `json:"last_menu,omitempty"`

	// LastSearch recomputes results when LastMenu is gone.
	LastSearch *Search `json:"last_search,omitempty"`

	// CurrentItem is the item shown while in StateDetailShown.
	CurrentItem ItemID `json:"current_item,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewSession creates a session in the initial state.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:       userID,
		AccountName:  GuestAccount,
		State:        StateEntry,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Reset drops the conversational context and returns to StateEntry.
// Identity fields and the resolved account survive.
func (s *Session) Reset() {
	s.State = StateEntry
	s.Screen = nil
	s.LastMenu = nil
	s.LastSearch = nil
	s.CurrentItem = ""
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// Expired reports whether the session has been idle for longer than timeout.
// A non-positive timeout disables expiry.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > timeout
}

// Clone returns a deep copy, so stores can hand out sessions safely.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Screen = s.Screen.Clone()
	c.LastMenu = s.LastMenu.Clone()
	if s.LastSearch != nil {
		search := *s.LastSearch
		c.LastSearch = &search
	}
	return &c
}
