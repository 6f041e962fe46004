// Package gateway is the JSON API the presentation layer drives: live games,
// daily games, puzzles, and progress, one route per callback.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/agentic-chess/core/internal/daily"
	"github.com/agentic-chess/core/internal/engine"
	"github.com/agentic-chess/core/internal/live"
	"github.com/agentic-chess/core/internal/obslog"
	"github.com/agentic-chess/core/internal/progress"
	"github.com/agentic-chess/core/internal/puzzle"
	"github.com/agentic-chess/core/pkg/traindto"
)

type Server struct {
	arena   *live.Arena
	dailies *daily.Coordinator
	trainer *puzzle.Trainer
	store   *progress.Store

	httpServer *fasthttp.Server
}

func NewServer(arena *live.Arena, dailies *daily.Coordinator, trainer *puzzle.Trainer, store *progress.Store) *Server {
	s := &Server{
		arena:   arena,
		dailies: dailies,
		trainer: trainer,
		store:   store,
	}
	s.httpServer = &fasthttp.Server{
		Handler:            s.route,
		Name:               "chess-trainer",
		MaxRequestBodySize: 1 << 20,
	}
	return s
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe(addr string) error {
	obslog.L().Info("gateway_listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown()
}

// Handler exposes the request handler for in-memory test serving.
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.route
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	path := string(ctx.Path())

	switch {
	case method == fasthttp.MethodPost && path == "/live/start":
		s.handleLiveStart(ctx)
	case method == fasthttp.MethodPost && path == "/live/move":
		s.handleLiveMove(ctx)
	case method == fasthttp.MethodGet && path == "/live/state":
		writeOK(ctx, s.arena.State())
	case method == fasthttp.MethodPost && path == "/daily/create":
		s.handleDailyCreate(ctx)
	case method == fasthttp.MethodPost && path == "/daily/move":
		s.handleDailyMove(ctx)
	case method == fasthttp.MethodGet && path == "/daily/games":
		writeOK(ctx, s.dailies.Games())
	case method == fasthttp.MethodGet && path == "/puzzle/current":
		writeOK(ctx, s.trainer.State())
	case method == fasthttp.MethodPost && path == "/puzzle/move":
		s.handlePuzzleMove(ctx)
	case method == fasthttp.MethodPost && path == "/puzzle/skip":
		s.handlePuzzleSkip(ctx)
	case method == fasthttp.MethodPost && path == "/puzzle/replay":
		s.handlePuzzleReplay(ctx)
	case method == fasthttp.MethodPost && path == "/puzzle/difficulty":
		s.handlePuzzleDifficulty(ctx)
	case method == fasthttp.MethodGet && path == "/progress":
		writeOK(ctx, s.store.Snapshot())
	case method == fasthttp.MethodPost && path == "/progress/reset":
		s.store.Reset()
		writeOK(ctx, s.store.Snapshot())
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		writeJSON(ctx, traindto.Rejection{OK: false, Reason: "unknown route"})
	}
}

func (s *Server) handleLiveStart(ctx *fasthttp.RequestCtx) {
	var req traindto.LiveStartRequest
	if !readJSON(ctx, &req) {
		return
	}
	style, err := engine.ParseStyle(req.Persona)
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	state, err := s.arena.Start(live.StartOptions{
		Persona:     style,
		PlayerColor: progress.PlayerColor(req.Color),
		TimeControl: live.TimeControl(req.TimeControl),
	})
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	writeOK(ctx, state)
}

func (s *Server) handleLiveMove(ctx *fasthttp.RequestCtx) {
	var req traindto.MoveRequest
	if !readJSON(ctx, &req) {
		return
	}
	state, err := s.arena.SubmitMove(req.Move)
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	writeOK(ctx, state)
}

func (s *Server) handleDailyCreate(ctx *fasthttp.RequestCtx) {
	var req traindto.DailyCreateRequest
	if !readJSON(ctx, &req) {
		return
	}
	style, err := engine.ParseStyle(req.Persona)
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	game, err := s.dailies.Create(daily.CreateOptions{
		Persona:     style,
		PlayerColor: progress.PlayerColor(req.Color),
	})
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	writeOK(ctx, game)
}

func (s *Server) handleDailyMove(ctx *fasthttp.RequestCtx) {
	var req traindto.MoveRequest
	if !readJSON(ctx, &req) {
		return
	}
	game, err := s.dailies.PlayMove(req.GameID, req.Move)
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	writeOK(ctx, game)
}

func (s *Server) handlePuzzleMove(ctx *fasthttp.RequestCtx) {
	var req traindto.MoveRequest
	if !readJSON(ctx, &req) {
		return
	}
	res, err := s.trainer.Submit(req.Move)
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	writeOK(ctx, res)
}

func (s *Server) handlePuzzleSkip(ctx *fasthttp.RequestCtx) {
	state, err := s.trainer.Skip()
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	writeOK(ctx, state)
}

func (s *Server) handlePuzzleReplay(ctx *fasthttp.RequestCtx) {
	state, err := s.trainer.Replay()
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	writeOK(ctx, state)
}

func (s *Server) handlePuzzleDifficulty(ctx *fasthttp.RequestCtx) {
	var req traindto.DifficultyRequest
	if !readJSON(ctx, &req) {
		return
	}
	d, err := puzzle.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	state, err := s.trainer.SetDifficulty(d)
	if err != nil {
		writeRejection(ctx, err)
		return
	}
	writeOK(ctx, state)
}

func readJSON(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		writeRejection(ctx, fmt.Errorf("bad request body: %w", err))
		return false
	}
	return true
}

// writeRejection answers user errors with 200 ok=false; the UI surfaces them
// as move refusals, not failures. A 404 with the same shape covers unknown
// daily game ids.
func writeRejection(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, daily.ErrGameNotFound) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
	writeJSON(ctx, traindto.Rejection{OK: false, Reason: err.Error()})
}

func writeOK(ctx *fasthttp.RequestCtx, data any) {
	writeJSON(ctx, traindto.Envelope{OK: true, Data: data})
}

func writeJSON(ctx *fasthttp.RequestCtx, v any) {
	ctx.SetContentType("application/json; charset=utf-8")
	body, err := json.Marshal(v)
	if err != nil {
		obslog.L().Error("gateway_encode_error", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"ok":false,"reason":"encode error"}`)
		return
	}
	ctx.SetBody(body)
}
