// Package config loads the bot configuration from a YAML or JSON file and
// applies OMBIBOT_* environment overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/springjools/ombibot/internal/logging"
	"github.com/springjools/ombibot/pkg/adapters/paramstore"
	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/session"
	"gopkg.in/yaml.v3"
)

// DefaultPaths are tried in order when no file is named.
var DefaultPaths = []string{"config.yaml", "config.yml", "config.json"}

// Config is the full bot configuration. The top-level keys keep the names of
// the classic config.json, so an existing file loads unchanged.
type Config struct {
	APIKey   string            `yaml:"apiKey" env:"OMBIBOT_API_KEY"`
	Server   string            `yaml:"server" env:"OMBIBOT_SERVER"`
	Port     int               `yaml:"port" env:"OMBIBOT_PORT"`
	BaseURL  string            `yaml:"baseUrl" env:"OMBIBOT_BASE_URL"`
	BotToken string            `yaml:"botToken" env:"OMBIBOT_BOT_TOKEN"`
	Users    map[string]string `yaml:"users"`

	RequestTimeout time.Duration `yaml:"requestTimeout" env:"OMBIBOT_REQUEST_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idleTimeout" env:"OMBIBOT_IDLE_TIMEOUT"`
	SweepInterval  time.Duration `yaml:"sweepInterval" env:"OMBIBOT_SWEEP_INTERVAL"`
	SweepSchedule  string        `yaml:"sweepSchedule" env:"OMBIBOT_SWEEP_SCHEDULE"`
	IDShape        string        `yaml:"idShape" env:"OMBIBOT_ID_SHAPE"`
	LanguageCode   string        `yaml:"languageCode" env:"OMBIBOT_LANGUAGE_CODE"`

	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Discord  DiscordConfig  `yaml:"discord"`
	Accounts AccountsConfig `yaml:"accounts"`
	Secrets  SecretsConfig  `yaml:"secrets"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"OMBIBOT_HTTP_ADDR"`
}

// RedisConfig enables the distributed session lock and the Redis account
// mapping when Addr is set.
type RedisConfig struct {
	Addr        string        `yaml:"addr" env:"OMBIBOT_REDIS_ADDR"`
	Password    string        `yaml:"password" env:"OMBIBOT_REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"OMBIBOT_REDIS_DB"`
	Prefix      string        `yaml:"prefix" env:"OMBIBOT_REDIS_PREFIX"`
	AccountsKey string        `yaml:"accountsKey" env:"OMBIBOT_REDIS_ACCOUNTS_KEY"`
	LockTTL     time.Duration `yaml:"lockTTL" env:"OMBIBOT_REDIS_LOCK_TTL"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"OMBIBOT_LOG_LEVEL"`
	Format string `yaml:"format" env:"OMBIBOT_LOG_FORMAT"`
}

type DiscordConfig struct {
	AllowFrom []string `yaml:"allowFrom" env:"OMBIBOT_DISCORD_ALLOW_FROM" envSeparator:","`
}

type AccountsConfig struct {
	// Reload re-reads the users mapping on every lookup.
	Reload bool `yaml:"reload" env:"OMBIBOT_ACCOUNTS_RELOAD"`
	// Watch reloads the users mapping when the config file changes on disk.
	Watch bool `yaml:"watch" env:"OMBIBOT_ACCOUNTS_WATCH"`
}

// SecretsConfig names where credentials live when they are not in the file.
type SecretsConfig struct {
	// SSMPrefix reads <prefix>/apiKey and <prefix>/botToken from AWS
	// Parameter Store for whichever of the two is unset.
	SSMPrefix string `yaml:"ssmPrefix" env:"OMBIBOT_SECRETS_SSM_PREFIX"`
}

// SecretGetter fetches one secret by name (see paramstore.Client).
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ResolveSecrets fills APIKey and BotToken from the secret store when they
// are empty. A missing parameter is left empty for Validate to report.
func (c *Config) ResolveSecrets(ctx context.Context, getter SecretGetter) error {
	prefix := strings.TrimRight(c.Secrets.SSMPrefix, "/")
	if prefix == "" {
		return nil
	}
	for name, field := range map[string]*string{"apiKey": &c.APIKey, "botToken": &c.BotToken} {
		if *field != "" {
			continue
		}
		value, err := getter.GetParameter(ctx, prefix+"/"+name)
		switch {
		case errors.Is(err, paramstore.ErrNotFound):
			continue
		case err != nil:
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		*field = strings.TrimSpace(value)
	}
	return nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Users:          map[string]string{},
		RequestTimeout: 30 * time.Second,
		IdleTimeout:    session.DefaultIdleTimeout,
		SweepInterval:  time.Hour,
		IDShape:        "numeric",
		LanguageCode:   "en",
		HTTP:           HTTPConfig{Addr: ":8080"},
		Redis: RedisConfig{
			Prefix:      "ombibot:",
			AccountsKey: "accounts",
			LockTTL:     session.DefaultLockTTL,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (or the first existing DefaultPaths entry when path is
// empty), then applies environment overrides. A named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range DefaultPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.Path = path
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	return cfg, nil
}

// Parse decodes a YAML or JSON document over cfg. Durations are strings such
// as "30s" or "24h".
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if cfg.Users == nil {
		cfg.Users = map[string]string{}
	}
	return nil
}

// HasCatalog reports whether the catalog is configured at all.
func (c *Config) HasCatalog() bool {
	return strings.TrimSpace(c.Server) != "" && strings.TrimSpace(c.APIKey) != ""
}

// Validate reports every problem at once. requireBot demands a Discord token.
func (c *Config) Validate(requireBot bool) error {
	var errs []error
	if strings.TrimSpace(c.Server) == "" {
		errs = append(errs, errors.New("server is required"))
	}
	if strings.TrimSpace(c.APIKey) == "" {
		errs = append(errs, errors.New("apiKey is required"))
	}
	if requireBot && strings.TrimSpace(c.BotToken) == "" {
		errs = append(errs, errors.New("botToken is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("requestTimeout must be positive"))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, errors.New("idleTimeout must be positive"))
	}
	if _, err := c.Schedule(); err != nil {
		errs = append(errs, err)
	}
	if _, err := codec.ParseIDShape(c.IDShape); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Schedule returns the sweep schedule; a cron expression wins over the interval.
func (c *Config) Schedule() (session.Schedule, error) {
	return session.ParseSchedule(c.SweepInterval, c.SweepSchedule)
}

// Codec returns the token codec for the configured id shape.
func (c *Config) Codec() (codec.Codec, error) {
	shape, err := codec.ParseIDShape(c.IDShape)
	if err != nil {
		return codec.Codec{}, err
	}
	return codec.New(shape), nil
}
