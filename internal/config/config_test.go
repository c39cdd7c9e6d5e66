package config_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/springjools/ombibot/internal/config"
	"github.com/springjools/ombibot/pkg/adapters/paramstore"
	"github.com/springjools/ombibot/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ClassicJSON(t *testing.T) {
	path := write(t, "config.json", `{
		"apiKey": "secret",
		"server": "http://ombi.local",
		"port": 5000,
		"baseUrl": "/ombi",
		"botToken": "token",
		"users": {"123456": "ann"}
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "/ombi", cfg.BaseURL)
	assert.Equal(t, map[string]string{"123456": "ann"}, cfg.Users)
	assert.Equal(t, path, cfg.Path)

	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, session.DefaultIdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.NoError(t, cfg.Validate(true))
}

func TestLoad_YAMLWithDurations(t *testing.T) {
	path := write(t, "config.yaml", `
apiKey: secret
server: http://ombi.local
idleTimeout: 2h
sweepSchedule: "*/15 * * * *"
users:
  123456: ann
redis:
  addr: localhost:6379
  lockTTL: 10s
discord:
  allowFrom: [111, "222"]
log:
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.IdleTimeout)
	assert.Equal(t, "ann", cfg.Users["123456"])
	assert.Equal(t, 10*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, "ombibot:", cfg.Redis.Prefix)
	assert.Equal(t, []string{"111", "222"}, cfg.Discord.AllowFrom)

	sched, err := cfg.Schedule()
	require.NoError(t, err)
	assert.Equal(t, session.Cron("*/15 * * * *"), sched)
	assert.NoError(t, cfg.Validate(false))
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := write(t, "config.yaml", "apiKey: from-file\nserver: http://ombi.local\n")
	t.Setenv("OMBIBOT_API_KEY", "from-env")
	t.Setenv("OMBIBOT_REQUEST_TIMEOUT", "5s")
	t.Setenv("OMBIBOT_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("OMBIBOT_DISCORD_ALLOW_FROM", "1,2")
	t.Setenv("OMBIBOT_ACCOUNTS_RELOAD", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"1", "2"}, cfg.Discord.AllowFrom)
	assert.True(t, cfg.Accounts.Reload)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(write(t, "config.yaml", "apiKey: [unterminated"))
	assert.Error(t, err)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OMBIBOT_SERVER", "http://ombi.local")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, "http://ombi.local", cfg.Server)
	assert.False(t, cfg.HasCatalog())
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 70000
	cfg.IDShape = "uuid"
	cfg.SweepSchedule = "every day"
	cfg.Log.Format = "xml"

	err := cfg.Validate(true)
	require.Error(t, err)
	for _, want := range []string{"server is required", "apiKey is required", "botToken is required", "port 70000", "id shape", "sweep schedule", "log.format"} {
		assert.ErrorContains(t, err, want)
	}

	cd, err := config.Default().Codec()
	require.NoError(t, err)
	assert.NoError(t, cd.Validate("603"))
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetParameter(_ context.Context, name string) (string, error) {
	if name == "/fail/apiKey" {
		return "", errors.New("access denied")
	}
	v, ok := f[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, paramstore.ErrNotFound)
	}
	return v, nil
}

func TestResolveSecrets(t *testing.T) {
	ctx := context.Background()
	secrets := fakeSecrets{"/ombibot/apiKey": " from-ssm\n", "/ombibot/botToken": "token"}

	cfg := config.Default()
	require.NoError(t, cfg.ResolveSecrets(ctx, secrets))
	assert.Empty(t, cfg.APIKey, "no prefix, nothing fetched")

	cfg.Secrets.SSMPrefix = "/ombibot/"
	cfg.BotToken = "from-file"
	require.NoError(t, cfg.ResolveSecrets(ctx, secrets))
	assert.Equal(t, "from-ssm", cfg.APIKey)
	assert.Equal(t, "from-file", cfg.BotToken)

	// Missing parameters stay empty.
	cfg = config.Default()
	cfg.Secrets.SSMPrefix = "/other"
	require.NoError(t, cfg.ResolveSecrets(ctx, secrets))
	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.BotToken)

	cfg = config.Default()
	cfg.Secrets.SSMPrefix = "/fail"
	assert.ErrorContains(t, cfg.ResolveSecrets(ctx, secrets), "access denied")
}
