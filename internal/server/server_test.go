package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/leapstack-labs/starfleet/internal/state"
	"github.com/leapstack-labs/starfleet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv   *Server
	store *state.SQLiteStore
	ts    *httptest.Server
}

func setupServer(t *testing.T, scenariosDir string) *testEnv {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	store := state.NewSQLiteStore(logger)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })

	srv := New(Config{Store: store, Logger: logger, ScenariosDir: scenariosDir})
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, store: store, ts: ts}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) startGame(t *testing.T, name string) string {
	t.Helper()
	resp, err := http.Post(e.ts.URL+"/api/games", "application/json", strings.NewReader(`{"scenario":"`+name+`"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out StartGameResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ID)

	require.Eventually(t, func() bool {
		g, err := e.store.GetGame(context.Background(), out.ID)
		return err == nil && g.Status != state.GameStatusRunning
	}, 10*time.Second, 10*time.Millisecond)
	return out.ID
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Health(t *testing.T) {
	env := setupServer(t, "")

	resp := env.get(t, "/healthz")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestServer_ListGamesEmpty(t *testing.T) {
	env := setupServer(t, "")

	resp := env.get(t, "/api/games")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]state.Game](t, resp))
}

func TestServer_StartAndInspectGame(t *testing.T) {
	env := setupServer(t, "")
	id := env.startGame(t, "demo-scripted")

	resp := env.get(t, "/api/games/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	g := decode[state.Game](t, resp)
	assert.Equal(t, "demo-scripted", g.Scenario)
	assert.Equal(t, state.GameStatusCompleted, g.Status)
	require.NotNil(t, g.Winner)
	assert.Equal(t, uint(1), *g.Winner)

	resp = env.get(t, "/api/games?limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	games := decode[[]state.Game](t, resp)
	require.Len(t, games, 1)
	assert.Equal(t, id, games[0].ID)

	resp = env.get(t, "/api/games/"+id+"/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := decode[[]game.Event](t, resp)
	require.NotEmpty(t, events)
	assert.Equal(t, game.EventGameStarted, events[0].Type)
	assert.Equal(t, game.EventGameOver, events[len(events)-1].Type)
}

func TestServer_CloudEventsFormat(t *testing.T) {
	env := setupServer(t, "")
	id := env.startGame(t, "demo")

	resp := env.get(t, "/api/games/"+id+"/events?format=cloudevents")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/cloudevents-batch+json", resp.Header.Get("Content-Type"))
	batch := decode[[]map[string]any](t, resp)
	require.NotEmpty(t, batch)
	assert.Equal(t, "1.0", batch[0]["specversion"])
	assert.Equal(t, "io.starfleet.game.game_started", batch[0]["type"])
	assert.Equal(t, EventSource, batch[0]["source"])
	assert.Equal(t, id, batch[0]["subject"])

	resp = env.get(t, "/api/games/"+id+"/events?format=xml")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StreamCompletedGame(t *testing.T) {
	env := setupServer(t, "")
	id := env.startGame(t, "demo")

	resp := env.get(t, "/api/games/"+id+"/stream")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var (
		ids   int
		types []string
	)
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "id: "):
			ids++
		case strings.HasPrefix(line, "event: "):
			types = append(types, strings.TrimPrefix(line, "event: "))
		}
	}
	require.NoError(t, sc.Err())

	events, err := env.store.EventsForGame(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, len(events), ids)
	require.NotEmpty(t, types)
	assert.Equal(t, string(game.EventGameStarted), types[0])
	assert.Equal(t, string(game.EventTurnEnded), types[len(types)-1])
}

func TestServer_Errors(t *testing.T) {
	env := setupServer(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "unknown game", method: http.MethodGet, path: "/api/games/missing", want: http.StatusNotFound},
		{name: "unknown game events", method: http.MethodGet, path: "/api/games/missing/events", want: http.StatusNotFound},
		{name: "bad limit", method: http.MethodGet, path: "/api/games?limit=lots", want: http.StatusBadRequest},
		{name: "negative limit", method: http.MethodGet, path: "/api/games?limit=-1", want: http.StatusBadRequest},
		{name: "bad body", method: http.MethodPost, path: "/api/games", body: "{", want: http.StatusBadRequest},
		{name: "missing scenario", method: http.MethodPost, path: "/api/games", body: "{}", want: http.StatusBadRequest},
		{name: "unknown scenario", method: http.MethodPost, path: "/api/games", body: `{"scenario":"atlantis"}`, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, env.ts.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}
}

func TestServer_ListScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "duel.yaml"), []byte("fleets:\n  - player: 1\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("fleets: [\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# notes\n"), 0o600))
	env := setupServer(t, dir)

	resp := env.get(t, "/api/scenarios")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var names []string
	for _, s := range decode[[]ScenarioInfo](t, resp) {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"demo", "demo-scripted", "duel"}, names)
}

func TestServer_ServeListener(t *testing.T) {
	env := setupServer(t, "")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
