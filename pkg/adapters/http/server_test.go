package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	bridge "github.com/springjools/ombibot/pkg/adapters/http"
	"github.com/springjools/ombibot/pkg/adapters/memory"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/runner"
	"github.com/springjools/ombibot/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatcherFunc func(ctx context.Context, ev domain.Event) ([]domain.Effect, error)

func (f dispatcherFunc) Call(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
	return f(ctx, ev)
}

func echo(seen *domain.Event) dispatcherFunc {
	return func(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
		*seen = ev
		return []domain.Effect{{Kind: domain.EffectSend, ChatID: ev.ChatID, Text: "echo: " + ev.Text}}, nil
	}
}

func newServer(t *testing.T, d bridge.Dispatcher, opts ...bridge.Option) *httptest.Server {
	t.Helper()
	h, err := bridge.NewHandler(d, opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestLoadSpec(t *testing.T) {
	doc, err := bridge.LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/v1/events"))
}

func TestPostEvent(t *testing.T) {
	var seen domain.Event
	srv := newServer(t, echo(&seen))

	resp, out := post(t, srv.URL+"/v1/events", `{"kind":"text","user_id":"u1","text":"alien"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	effects := out["effects"].([]any)
	require.Len(t, effects, 1)
	assert.Equal(t, "echo: alien", effects[0].(map[string]any)["text"])
	assert.Equal(t, "http", seen.Channel)
	assert.Equal(t, "u1", seen.ChatID, "chat defaults to the user")
}

func TestPostEvent_RejectedBySchema(t *testing.T) {
	called := false
	srv := newServer(t, dispatcherFunc(func(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
		called = true
		return nil, nil
	}))

	for name, body := range map[string]string{
		"missing user": `{"kind":"text","text":"alien"}`,
		"bad kind":     `{"kind":"voice","user_id":"u1"}`,
		"not json":     `alien`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, out := post(t, srv.URL+"/v1/events", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
	assert.False(t, called)
}

func TestPostEvent_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("invalid text: %w", runner.ErrInvalidUTF8), http.StatusBadRequest},
		{runner.ErrClosed, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		srv := newServer(t, dispatcherFunc(func(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
			return nil, tt.err
		}))
		resp, _ := post(t, srv.URL+"/v1/events", `{"kind":"text","user_id":"u1"}`)
		assert.Equal(t, tt.want, resp.StatusCode, tt.err.Error())
	}
}

func TestSessions(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mgr := session.NewManager(session.WithStore(memory.NewStore()), session.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	_, _, err := mgr.GetOrCreate(ctx, "u2")
	require.NoError(t, err)
	_, _, err = mgr.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	var seen domain.Event
	srv := newServer(t, echo(&seen), bridge.WithSessions(mgr))

	resp, err := http.Get(srv.URL + "/v1/sessions")
	require.NoError(t, err)
	var list struct {
		Sessions []struct {
			UserID string `json:"user_id"`
			State  string `json:"state"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list.Sessions, 2)
	assert.Equal(t, "u1", list.Sessions[0].UserID)
	assert.Equal(t, string(domain.StateEntry), list.Sessions[0].State)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/sessions/u1", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/sessions/u1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInfoHealthAndSpec(t *testing.T) {
	var seen domain.Event
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ombibot_up 1")
	})
	srv := newServer(t, echo(&seen), bridge.WithVersion("1.2.3\n"), bridge.WithMetricsHandler(metrics))

	resp, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	for path, want := range map[string]string{
		"/health":       `"ok"`,
		"/openapi.yaml": "openapi: 3.0.3",
		"/metrics":      "ombibot_up 1",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Contains(t, string(raw), want, path)
	}

	resp, err = http.Get(srv.URL + "/v1/sessions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "sessions are off without WithSessions")
}
