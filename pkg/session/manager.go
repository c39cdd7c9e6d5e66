package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/springjools/ombibot/internal/logging"
	"github.com/springjools/ombibot/pkg/adapters/memory"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/ports"
)

// DefaultIdleTimeout is how long a session survives without activity.
const DefaultIdleTimeout = 24 * time.Hour

// DefaultLockTTL bounds how long a distributed lock is held if never released.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring a user's events are serialized.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store    ports.SessionStore
	resolver ports.AccountResolver

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration

	idleTimeout time.Duration
	now         func() time.Time
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithStore sets the backing store (default: in-memory).
func WithStore(store ports.SessionStore) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithResolver sets the account resolver. Without one every user is a guest.
func WithResolver(resolver ports.AccountResolver) Option {
	return func(m *Manager) {
		m.resolver = resolver
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithIdleTimeout sets the idle eviction threshold. Zero disables eviction.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.idleTimeout = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Session Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:       make(map[string]*lockEntry),
		lockTTL:     DefaultLockTTL,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = memory.NewStore()
	}
	return m
}

// IdleTimeout returns the configured idle eviction threshold.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// activeLocks reports how many lock entries are alive.
func (m *Manager) activeLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// WithLock executes fn while holding the lock for the user.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"user_id", userID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Do runs fn on the user's session under the user's lock, creating the session
// if it does not exist or has expired. After fn returns nil the session is
// touched and saved; if fn fails nothing is saved.
func (m *Manager) Do(ctx context.Context, userID string, fn func(ctx context.Context, sess *domain.Session, created bool) error) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		sess, created, err := m.loadOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(ctx, sess, created); err != nil {
			return err
		}
		sess.Touch(m.now())
		if err := m.store.Save(ctx, sess); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// GetOrCreate returns the user's session, creating and saving a new one if
// none exists or the old one has expired. The boolean reports creation.
func (m *Manager) GetOrCreate(ctx context.Context, userID string) (*domain.Session, bool, error) {
	var (
		sess    *domain.Session
		created bool
	)
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		sess, created, err = m.loadOrCreate(ctx, userID)
		if err != nil || !created {
			return err
		}
		if err := m.store.Save(ctx, sess); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return sess, created, err
}

// loadOrCreate must be called with the user's lock held.
func (m *Manager) loadOrCreate(ctx context.Context, userID string) (*domain.Session, bool, error) {
	now := m.now()

	sess, err := m.store.Load(ctx, userID)
	switch {
	case err == nil:
		if !sess.Expired(now, m.idleTimeout) {
			return sess, false, nil
		}
		m.logger.Info("Session expired, starting over",
			"user_id", userID,
			"idle", now.Sub(sess.LastActivity).Round(time.Second).String(),
		)
		m.evicted(ctx, userID)
	case !errors.Is(err, domain.ErrSessionNotFound):
		return nil, false, fmt.Errorf("failed to check session existence: %w", err)
	}

	return domain.NewSession(userID, now), true, nil
}

// Load returns the user's session without creating one.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.Session, error) {
	var sess *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		sess, err = m.store.Load(ctx, userID)
		return err
	})
	return sess, err
}

// Touch refreshes the user's last activity.
func (m *Manager) Touch(ctx context.Context, userID string) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		sess, err := m.store.Load(ctx, userID)
		if err != nil {
			return err
		}
		sess.Touch(m.now())
		return m.store.Save(ctx, sess)
	})
}

// Delete removes the user's session.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.store.Delete(ctx, userID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// ResolveAccountName returns the catalog account for the session's user,
// looking it up at most once per session. Unmapped users and unreadable
// mappings yield the guest account; only the former is memoized, so a
// transient mapping failure is retried on the next turn.
func (m *Manager) ResolveAccountName(ctx context.Context, sess *domain.Session, firstNameHint string) string {
	if sess.AccountResolved {
		return sess.AccountName
	}
	if m.resolver == nil {
		sess.AccountName = domain.GuestAccount
		sess.AccountResolved = true
		return sess.AccountName
	}

	name, err := m.resolver.Resolve(ctx, sess.UserID)
	switch {
	case err == nil && name != "":
		sess.AccountName = name
		sess.AccountResolved = true
		m.logger.Info("Assigned user to account",
			"user", firstNameHint,
			"user_id", sess.UserID,
			"account", name,
		)
	case err == nil || errors.Is(err, ports.ErrAccountNotFound):
		sess.AccountName = domain.GuestAccount
		sess.AccountResolved = true
		m.logger.Info("Assigned user to guest account",
			"user", firstNameHint,
			"user_id", sess.UserID,
		)
	default:
		sess.AccountName = domain.GuestAccount
		m.logger.Warn("Account mapping unavailable, using guest account",
			"user_id", sess.UserID,
			"err", err,
		)
	}
	return sess.AccountName
}

// Sweep evicts every session idle for longer than the idle timeout at now.
// Each eviction takes the user's lock and re-checks idleness, so a live
// transition is never cut short.
func (m *Manager) Sweep(ctx context.Context, now time.Time) (int, error) {
	if m.idleTimeout <= 0 {
		return 0, nil
	}

	ids, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	evicted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		err := m.WithLock(ctx, id, func(ctx context.Context) error {
			sess, err := m.store.Load(ctx, id)
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if !sess.Expired(now, m.idleTimeout) {
				return nil
			}
			if err := m.store.Delete(ctx, id); err != nil {
				return err
			}
			evicted++
			m.evicted(ctx, id)
			return nil
		})
		if err != nil {
			m.logger.Warn("Failed to sweep session", "user_id", id, "err", err)
		}
	}
	return evicted, nil
}

func (m *Manager) evicted(ctx context.Context, userID string) {
	m.logger.Debug("Session evicted", "user_id", userID)
	if m.hooks.OnSessionEvicted != nil {
		m.hooks.OnSessionEvicted(ctx, userID)
	}
}
