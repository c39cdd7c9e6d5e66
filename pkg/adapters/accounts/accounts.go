// Package accounts resolves external user ids to catalog account names from
// a static mapping or from the "users" section of a YAML/JSON file.
package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/springjools/ombibot/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Static resolves from a fixed map.
type Static map[string]string

// Resolve looks userID up in the map.
func (s Static) Resolve(ctx context.Context, userID string) (string, error) {
	if name := strings.TrimSpace(s[userID]); name != "" {
		return name, nil
	}
	return "", ports.ErrAccountNotFound
}

// File resolves from the "users" mapping of a config file. YAML is a superset
// of JSON, so the bot's original config.json works unchanged.
type File struct {
	path     string
	reload   bool
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.RWMutex
	users Static
}

// FileOption configures a File resolver.
type FileOption func(*File)

// WithReload re-reads the file on every lookup, so edits apply without a restart.
func WithReload(reload bool) FileOption {
	return func(f *File) {
		f.reload = reload
	}
}

// WithLogger sets the logger used by Watch.
func WithLogger(logger *slog.Logger) FileOption {
	return func(f *File) {
		f.logger = logger
	}
}

// WithDebounce sets how long Watch waits after the last change before reloading.
func WithDebounce(d time.Duration) FileOption {
	return func(f *File) {
		if d > 0 {
			f.debounce = d
		}
	}
}

// NewFile loads the mapping at path.
func NewFile(path string, opts ...FileOption) (*File, error) {
	f := &File{path: path, logger: slog.Default(), debounce: 250 * time.Millisecond}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.Load(); err != nil {
		return nil, err
	}
	return f, nil
}

type usersDocument struct {
	Users map[string]string `yaml:"users"`
}

// Load (re)reads the file.
func (f *File) Load() error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read account mapping: %w", err)
	}
	users, err := ParseUsers(raw)
	if err != nil {
		return fmt.Errorf("failed to parse account mapping %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.users = users
	f.mu.Unlock()
	return nil
}

// ParseUsers extracts the "users" mapping from a YAML or JSON document.
// Numeric keys (Telegram ids written without quotes) are accepted.
func ParseUsers(raw []byte) (Static, error) {
	var doc usersDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	users := make(Static, len(doc.Users))
	for id, name := range doc.Users {
		users[strings.TrimSpace(id)] = strings.TrimSpace(name)
	}
	return users, nil
}

// Resolve looks userID up, re-reading the file first when reload is on.
// A file that became unreadable is an error; the caller falls back to guest.
func (f *File) Resolve(ctx context.Context, userID string) (string, error) {
	if f.reload {
		if err := f.Load(); err != nil {
			return "", err
		}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.users.Resolve(ctx, userID)
}

// Watch reloads the mapping whenever the file changes, until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are still seen. A reload that fails keeps the previous mapping.
func (f *File) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(f.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.path, err)
	}
	f.logger.Debug("Watching account mapping", "path", f.path)
	// Edits made before the directory was registered raised no event.
	if err := f.Load(); err != nil {
		f.logger.Warn("Keeping previous account mapping", "path", f.path, "err", err)
	}

	timer := time.NewTimer(f.debounce)
	timer.Stop()
	defer timer.Stop()
	// The timer is armed by the first event of a burst and not pushed back by
	// later ones, so a file rewritten more often than the debounce still reloads.
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !pending && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)) {
				timer.Reset(f.debounce)
				pending = true
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("Account mapping watcher error", "err", err)

		case <-timer.C:
			pending = false
			if err := f.Load(); err != nil {
				f.logger.Warn("Keeping previous account mapping", "path", f.path, "err", err)
				continue
			}
			f.logger.Info("Account mapping reloaded", "path", f.path)
		}
	}
}
