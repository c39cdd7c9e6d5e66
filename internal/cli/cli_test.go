package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/springjools/ombibot/internal/cli"
	"github.com/springjools/ombibot/internal/config"
	"github.com/springjools/ombibot/internal/logging"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOmbi answers the endpoints the bot uses with fixed data.
func fakeOmbi(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/Search/movie/{title}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 27205, "title": "Inception", "releaseDate": "2010-07-15T00:00:00", "available": true}]`)
	})
	mux.HandleFunc("POST /api/v1/Search/movie/info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 27205, "title": "Inception", "voteAverage": 8.4, "voteCount": 100, "releaseDate": "2010-07-15T00:00:00", "overView": "Dreams."}`)
	})
	mux.HandleFunc("POST /api/v1/Search/movie/similar", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 157336, "title": "Interstellar", "releaseDate": "2014-11-05"}]`)
	})
	mux.HandleFunc("POST /api/v1/Request/movie", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"result": true, "message": "Requested for %s"}`, r.Header.Get("UserName"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(server string) *config.Config {
	cfg := config.Default()
	cfg.Server = server
	cfg.APIKey = "secret"
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Users = map[string]string{"u1": "ann"}
	return cfg
}

func TestBuild_StaticAccounts(t *testing.T) {
	cfg := testConfig(fakeOmbi(t).URL)
	app, err := cli.Build(cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()
	defer app.Runner.Close(context.Background())

	ctx := context.Background()
	_, err = app.Runner.Call(ctx, domain.Event{Kind: domain.EventText, UserID: "u1", Text: "/start"})
	require.NoError(t, err)

	sess, err := app.Manager.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ann", sess.AccountName)
}

func TestBuild_RedisAccounts(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.HSet("ombibot:accounts", "u2", "bob")

	cfg := testConfig(fakeOmbi(t).URL)
	cfg.Redis.Addr = mr.Addr()
	app, err := cli.Build(cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()
	defer app.Runner.Close(context.Background())

	ctx := context.Background()
	_, err = app.Runner.Call(ctx, domain.Event{Kind: domain.EventText, UserID: "u2", Text: "/start"})
	require.NoError(t, err)
	sess, err := app.Manager.Load(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "bob", sess.AccountName)
}

func TestBuild_ReloadedFileAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": {}}`), 0o600))

	cfg := testConfig(fakeOmbi(t).URL)
	cfg.Path = path
	cfg.Accounts.Reload = true
	app, err := cli.Build(cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Runner.Close(context.Background())

	// Mapped after startup: picked up on the next session.
	require.NoError(t, os.WriteFile(path, []byte(`{"users": {"u3": "cat"}}`), 0o600))
	ctx := context.Background()
	_, err = app.Runner.Call(ctx, domain.Event{Kind: domain.EventText, UserID: "u3", Text: "/start"})
	require.NoError(t, err)
	sess, err := app.Manager.Load(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, "cat", sess.AccountName)
}

func TestBuild_WatchedFileAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: {}\n"), 0o600))

	cfg := testConfig(fakeOmbi(t).URL)
	cfg.Path = path
	cfg.Accounts.Watch = true
	app, err := cli.Build(cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Runner.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.WatchAccounts(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("users:\n  u4: dan\n"), 0o600))
	require.Eventually(t, func() bool {
		// Account names are memoized per session; start a fresh one each round.
		_ = app.Manager.Delete(context.Background(), "u4")
		_, err := app.Runner.Call(context.Background(), domain.Event{Kind: domain.EventText, UserID: "u4", Text: "/start"})
		if err != nil {
			return false
		}
		sess, err := app.Manager.Load(context.Background(), "u4")
		return err == nil && sess.AccountName == "dan"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestBuild_InvalidShape(t *testing.T) {
	cfg := testConfig("http://ombi.local")
	cfg.IDShape = "uuid"
	_, err := cli.Build(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	cfg := testConfig(fakeOmbi(t).URL)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, cli.Lookup(ctx, cfg, logging.NewNop(), cli.LookupOptions{Query: "inception", Out: &out}))
	assert.Equal(t, "27205\tInception (2010)✅\tavailable\n", out.String())

	out.Reset()
	require.NoError(t, cli.Lookup(ctx, cfg, logging.NewNop(), cli.LookupOptions{ID: "27205", Out: &out}))
	assert.Contains(t, out.String(), "Released: 2010-07-15")
	assert.Contains(t, out.String(), "Dreams.")

	out.Reset()
	require.NoError(t, cli.Lookup(ctx, cfg, logging.NewNop(), cli.LookupOptions{ID: "27205", Similar: true, Out: &out}))
	assert.Contains(t, out.String(), "Interstellar")

	out.Reset()
	require.NoError(t, cli.Lookup(ctx, cfg, logging.NewNop(), cli.LookupOptions{Query: "inception", Out: &out, TTY: true}))
	assert.Contains(t, out.String(), "Inception")

	err := cli.Lookup(ctx, cfg, logging.NewNop(), cli.LookupOptions{Out: &out})
	assert.ErrorContains(t, err, "query")
}

func TestLookup_Unreachable(t *testing.T) {
	srv := fakeOmbi(t)
	cfg := testConfig(srv.URL)
	srv.Close()

	err := cli.Lookup(context.Background(), cfg, logging.NewNop(), cli.LookupOptions{Query: "x", Out: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "could not be reached")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestConsole(t *testing.T) {
	cfg := testConfig(fakeOmbi(t).URL)
	var out bytes.Buffer
	in := io.NopCloser(strings.NewReader("1\ninception\nexit\n"))

	err := cli.Console(context.Background(), cfg, logging.NewNop(), cli.ConsoleOptions{UserID: "u1", In: in, Out: &out})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "[1] Movie")
	assert.Contains(t, out.String(), "Inception (2010)✅")
}

func TestConsole_NoCatalog(t *testing.T) {
	err := cli.Console(context.Background(), config.Default(), logging.NewNop(), cli.ConsoleOptions{Out: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "apiKey")
}

func TestRun_ServeBridge(t *testing.T) {
	cfg := testConfig(fakeOmbi(t).URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- cli.Run(ctx, cfg, logging.NewNop(), cli.RunOptions{Ready: func(a string) { addr <- a }})
	}()

	var base string
	select {
	case a := <-addr:
		base = "http://" + a
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not start")
	}

	send := func(body string) []domain.Effect {
		t.Helper()
		var resp *http.Response
		var err error
		require.Eventually(t, func() bool {
			resp, err = http.Post(base+"/v1/events", "application/json", strings.NewReader(body))
			return err == nil
		}, time.Second, 10*time.Millisecond)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Effects []domain.Effect `json:"effects"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.Effects
	}

	send(`{"kind":"text","user_id":"u1","text":"/start"}`)
	send(`{"kind":"callback","user_id":"u1","token":"0","message_ref":"m1"}`)
	effects := send(`{"kind":"text","user_id":"u1","text":"inception"}`)
	require.Len(t, effects, 2)
	assert.Equal(t, "Found 1 results for inception", effects[0].Text)

	send(`{"kind":"callback","user_id":"u1","token":"27205","message_ref":"m2"}`)
	effects = send(`{"kind":"callback","user_id":"u1","token":"27205","message_ref":"m2"}`)
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].Text, "Requested for ann")

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	var metrics bytes.Buffer
	_, _ = metrics.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, metrics.String(), `ombibot_catalog_call_duration_seconds_count{op="submit_request",outcome="ok"} 1`)
	assert.Contains(t, metrics.String(), "ombibot_active_sessions 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	err := cli.Run(context.Background(), cfg, logging.NewNop(), cli.RunOptions{Bot: true})
	assert.ErrorContains(t, err, "botToken is required")
}
