package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/agentic-chess/core/internal/daily"
	"github.com/agentic-chess/core/internal/engine"
	"github.com/agentic-chess/core/internal/live"
	"github.com/agentic-chess/core/internal/progress"
	"github.com/agentic-chess/core/internal/puzzle"
	"github.com/agentic-chess/core/internal/sched"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	selector, err := engine.NewSelector("")
	require.NoError(t, err)
	selector.SetRandomSeed(5)
	store := progress.NewStore(nil)
	scheduler := sched.New()
	t.Cleanup(scheduler.CancelAll)

	arena := live.NewArena(store, selector, scheduler, time.Hour)
	t.Cleanup(arena.Shutdown)
	dailies := daily.NewCoordinator(store, selector, scheduler, time.Hour)
	catalog, err := puzzle.LoadCatalog()
	require.NoError(t, err)
	trainer, err := puzzle.NewTrainer(catalog, store, puzzle.DifficultyBeginner)
	require.NoError(t, err)

	return NewServer(arena, dailies, trainer, store)
}

func call(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	if body != "" {
		req.SetBodyString(body)
	}
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	s.Handler()(&ctx)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &payload))
	return ctx.Response.StatusCode(), payload
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t)
	status, payload := call(t, s, "GET", "/nope", "")
	assert.Equal(t, fasthttp.StatusNotFound, status)
	assert.Equal(t, false, payload["ok"])
}

func TestProgressEndpoints(t *testing.T) {
	s := newServer(t)
	status, payload := call(t, s, "GET", "/progress", "")
	require.Equal(t, fasthttp.StatusOK, status)
	data := payload["data"].(map[string]any)
	assert.Equal(t, float64(1280), data["live_rating"])
	assert.Equal(t, float64(1325), data["daily_rating"])
	assert.Equal(t, float64(1240), data["puzzle_rating"])

	status, payload = call(t, s, "POST", "/progress/reset", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, true, payload["ok"])
}

func TestLiveFlow(t *testing.T) {
	s := newServer(t)
	status, payload := call(t, s, "POST", "/live/start",
		`{"persona":"balanced","color":"white","time_control":"5+0"}`)
	require.Equal(t, fasthttp.StatusOK, status)
	require.Equal(t, true, payload["ok"])
	data := payload["data"].(map[string]any)
	assert.Equal(t, float64(300), data["white_clock"])

	status, payload = call(t, s, "POST", "/live/move", `{"move":"e4"}`)
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, true, payload["ok"])

	// Out of turn now: silent rejection, not a 5xx.
	status, payload = call(t, s, "POST", "/live/move", `{"move":"d4"}`)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, false, payload["ok"])
	assert.Equal(t, "not your turn", payload["reason"])

	status, payload = call(t, s, "GET", "/live/state", "")
	require.Equal(t, fasthttp.StatusOK, status)
	data = payload["data"].(map[string]any)
	assert.Equal(t, true, data["active"])
}

func TestLiveStartRejectsBadPersona(t *testing.T) {
	s := newServer(t)
	status, payload := call(t, s, "POST", "/live/start",
		`{"persona":"speedrun","color":"white","time_control":"5+0"}`)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, false, payload["ok"])
}

func TestDailyFlow(t *testing.T) {
	s := newServer(t)
	status, payload := call(t, s, "POST", "/daily/create",
		`{"persona":"casual","color":"white"}`)
	require.Equal(t, fasthttp.StatusOK, status)
	require.Equal(t, true, payload["ok"])
	data := payload["data"].(map[string]any)
	id := data["id"].(string)
	assert.Equal(t, "Daily Clash #1", data["title"])

	status, payload = call(t, s, "POST", "/daily/move",
		`{"game_id":"`+id+`","move":"e4"}`)
	require.Equal(t, fasthttp.StatusOK, status)
	require.Equal(t, true, payload["ok"])

	status, payload = call(t, s, "POST", "/daily/move",
		`{"game_id":"missing","move":"e4"}`)
	assert.Equal(t, fasthttp.StatusNotFound, status)
	assert.Equal(t, false, payload["ok"])

	status, payload = call(t, s, "GET", "/daily/games", "")
	require.Equal(t, fasthttp.StatusOK, status)
	games := payload["data"].([]any)
	assert.Len(t, games, 1)
}

func TestPuzzleFlow(t *testing.T) {
	s := newServer(t)
	status, payload := call(t, s, "GET", "/puzzle/current", "")
	require.Equal(t, fasthttp.StatusOK, status)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "beginner", data["difficulty"])

	status, payload = call(t, s, "POST", "/puzzle/difficulty", `{"difficulty":"advanced"}`)
	require.Equal(t, fasthttp.StatusOK, status)
	data = payload["data"].(map[string]any)
	assert.Equal(t, "advanced", data["difficulty"])

	status, payload = call(t, s, "POST", "/puzzle/difficulty", `{"difficulty":"impossible"}`)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, false, payload["ok"])

	status, payload = call(t, s, "POST", "/puzzle/move", `{"move":"Zz9"}`)
	require.Equal(t, fasthttp.StatusOK, status)
	require.Equal(t, true, payload["ok"])
	data = payload["data"].(map[string]any)
	assert.Equal(t, false, data["correct"])

	status, payload = call(t, s, "POST", "/puzzle/replay", "")
	require.Equal(t, fasthttp.StatusOK, status)
	data = payload["data"].(map[string]any)
	assert.Equal(t, float64(0), data["attempts"])

	status, payload = call(t, s, "POST", "/puzzle/skip", "")
	require.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, true, payload["ok"])
}

func TestBadBodyIsRejected(t *testing.T) {
	s := newServer(t)
	status, payload := call(t, s, "POST", "/live/start", `{"persona":`)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, false, payload["ok"])
}
