// Package daily runs correspondence-style games: one active game per id in
// the progress store, the full move list as the source of truth, and engine
// replies deferred through the scheduler so a reply never lands on a stale
// game.
package daily

import (
	"errors"
	"fmt"
	"math"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentic-chess/core/internal/engine"
	"github.com/agentic-chess/core/internal/obslog"
	"github.com/agentic-chess/core/internal/progress"
	"github.com/agentic-chess/core/internal/rules"
	"github.com/agentic-chess/core/internal/sched"
)

var (
	ErrGameNotFound = errors.New("daily game not found")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrIllegalMove  = errors.New("illegal move")
)

const moveThinkSeconds = 45

type Coordinator struct {
	store      *progress.Store
	selector   *engine.Selector
	scheduler  *sched.Scheduler
	replyDelay time.Duration
}

func NewCoordinator(store *progress.Store, selector *engine.Selector, scheduler *sched.Scheduler, replyDelay time.Duration) *Coordinator {
	return &Coordinator{
		store:      store,
		selector:   selector,
		scheduler:  scheduler,
		replyDelay: replyDelay,
	}
}

// CreateOptions selects the opponent persona and the player's color.
type CreateOptions struct {
	Persona     engine.Style
	PlayerColor progress.PlayerColor
}

// Create opens a new daily game. Playing black defers the engine's opening
// ply through the scheduler.
func (c *Coordinator) Create(opts CreateOptions) (progress.DailyGame, error) {
	persona, err := c.selector.Persona(opts.Persona)
	if err != nil {
		return progress.DailyGame{}, err
	}
	if opts.PlayerColor != progress.ColorWhite && opts.PlayerColor != progress.ColorBlack {
		return progress.DailyGame{}, fmt.Errorf("invalid player color %q", opts.PlayerColor)
	}

	game := progress.DailyGame{
		ID:               uuid.NewString(),
		Title:            fmt.Sprintf("Daily Clash #%d", len(c.store.DailyGames())+1),
		Opponent:         persona.Label,
		FEN:              nchess.NewGame().FEN(),
		Moves:            []string{},
		LastUpdated:      time.Now(),
		ColorToMove:      "w",
		PlayerColor:      opts.PlayerColor,
		RemindersEnabled: true,
	}
	c.store.UpsertDailyGame(game)
	obslog.L().Info("daily_game_created",
		zap.String("game_id", game.ID),
		zap.String("title", game.Title),
		zap.String("persona", string(opts.Persona)),
		zap.String("player_color", string(opts.PlayerColor)),
	)

	if opts.PlayerColor == progress.ColorBlack {
		c.scheduler.Schedule(game.ID, c.replyDelay, func() { c.engineReply(game.ID) })
	}
	return game, nil
}

// Games lists the active daily games, most recent first.
func (c *Coordinator) Games() []progress.DailyGame {
	return c.store.DailyGames()
}

// PlayMove applies one player move to the identified game. Turn violations
// and illegal moves reject without mutating anything; an accepted move either
// ends the game or schedules the engine reply.
func (c *Coordinator) PlayMove(id, input string) (progress.DailyGame, error) {
	g, ok := c.store.DailyGameByID(id)
	if !ok {
		return progress.DailyGame{}, ErrGameNotFound
	}
	game, err := rules.Reconstruct("", g.Moves)
	if err != nil {
		return progress.DailyGame{}, fmt.Errorf("reconstruct daily game %s: %w", id, err)
	}
	if rules.ColorLetter(game.Position().Turn()) != playerLetter(g.PlayerColor) {
		return progress.DailyGame{}, ErrNotYourTurn
	}
	mv, err := rules.DecodeMove(game.Position(), input)
	if err != nil {
		return progress.DailyGame{}, ErrIllegalMove
	}
	moveUCI := rules.EncodeUCI(game.Position(), mv)
	if err := game.Move(mv, nil); err != nil {
		return progress.DailyGame{}, ErrIllegalMove
	}

	updated, err := c.applyMove(g, game, moveUCI)
	if err != nil {
		return progress.DailyGame{}, err
	}
	if rules.ResultOf(game) != rules.ResultNone {
		c.complete(updated, game)
		return updated, nil
	}
	c.scheduler.Schedule(id, c.replyDelay, func() { c.engineReply(id) })
	return updated, nil
}

// applyMove patches the stored game after a move was pushed onto the
// reconstruction.
func (c *Coordinator) applyMove(g progress.DailyGame, game *nchess.Game, moveUCI string) (progress.DailyGame, error) {
	moves := append(append([]string{}, g.Moves...), moveUCI)
	fen := game.FEN()
	turn := rules.ColorLetter(game.Position().Turn())
	now := time.Now()
	if !c.store.UpdateDailyGame(g.ID, progress.DailyGamePatch{
		FEN:         &fen,
		Moves:       &moves,
		ColorToMove: &turn,
		LastUpdated: &now,
	}) {
		return progress.DailyGame{}, ErrGameNotFound
	}
	g.FEN = fen
	g.Moves = moves
	g.ColorToMove = turn
	g.LastUpdated = now
	return g, nil
}

// engineReply is the deferred callback. It re-reads the game and quietly
// drops itself when the game is gone or the turn moved on.
func (c *Coordinator) engineReply(id string) {
	g, ok := c.store.DailyGameByID(id)
	if !ok {
		return
	}
	game, err := rules.Reconstruct("", g.Moves)
	if err != nil {
		obslog.L().Error("daily_reconstruct_failed", zap.String("game_id", id), zap.Error(err))
		return
	}
	if rules.ColorLetter(game.Position().Turn()) == playerLetter(g.PlayerColor) {
		return
	}
	if rules.ResultOf(game) != rules.ResultNone {
		return
	}

	style, ok := c.selector.StyleForLabel(g.Opponent)
	if !ok {
		style = engine.StyleBalanced
	}
	mv := c.selector.Select(game.Position(), style)
	if mv == nil {
		obslog.L().Error("daily_no_engine_move",
			zap.String("game_id", id),
			zap.String("fen", game.FEN()),
		)
		return
	}
	moveUCI := rules.EncodeUCI(game.Position(), mv)
	if err := game.Move(mv, nil); err != nil {
		obslog.L().Error("daily_engine_move_rejected", zap.String("game_id", id), zap.Error(err))
		return
	}
	updated, err := c.applyMove(g, game, moveUCI)
	if err != nil {
		return
	}
	if rules.ResultOf(game) != rules.ResultNone {
		c.complete(updated, game)
	}
}

// complete archives a finished game. Checkmate credits the side that just
// moved; every other terminal is a draw.
func (c *Coordinator) complete(g progress.DailyGame, game *nchess.Game) {
	c.scheduler.Cancel(g.ID)

	result := progress.ResultDraw
	if rules.IsCheckmate(game) {
		switch rules.ResultOf(game) {
		case rules.ResultWhite:
			result = progress.ResultWhite
		case rules.ResultBlack:
			result = progress.ResultBlack
		}
	}

	totalMoves := len(g.Moves)
	bonus := 0.0
	if result != progress.ResultDraw {
		if string(result) == string(g.PlayerColor) {
			bonus = 10
		} else {
			bonus = -8
		}
	}
	accuracy := clampInt(58, 99, int(math.Round(80+bonus-float64(totalMoves)*0.4)))
	duration := totalMoves * moveThinkSeconds

	if _, err := c.store.CompleteDailyGame(g.ID, result, accuracy, duration); err != nil {
		obslog.L().Warn("daily_complete_failed", zap.String("game_id", g.ID), zap.Error(err))
		return
	}
	obslog.L().Info("daily_game_finished",
		zap.String("game_id", g.ID),
		zap.String("result", string(result)),
		zap.Int("accuracy", accuracy),
	)
}

func playerLetter(c progress.PlayerColor) string {
	if c == progress.ColorWhite {
		return "w"
	}
	return "b"
}

func clampInt(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
