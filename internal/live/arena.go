// Package live runs real-time games against an engine persona: a ticking
// clock per side, deferred engine replies, and a concluded GameRecord handed
// to the progress store. One game is active at a time; starting a new one
// supersedes the old.
package live

import (
	"errors"
	"fmt"
	"math"
	"sync"
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
	ErrNoActiveGame = errors.New("no active live game")
	ErrGameOver     = errors.New("game already finished")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrIllegalMove  = errors.New("illegal move")
)

// TimeControl is one of the offered clock presets.
type TimeControl string

const (
	ControlBlitz     TimeControl = "5+0"
	ControlRapid     TimeControl = "10+0"
	ControlClassical TimeControl = "15+10"
)

func controlSeconds(tc TimeControl) (base, increment int, err error) {
	switch tc {
	case ControlBlitz:
		return 300, 0, nil
	case ControlRapid:
		return 600, 0, nil
	case ControlClassical:
		return 900, 10, nil
	}
	return 0, 0, fmt.Errorf("unknown time control %q", tc)
}

type liveGame struct {
	id          string
	game        *nchess.Game
	style       engine.Style
	persona     engine.Persona
	playerColor progress.PlayerColor
	moves       []string
	whiteClock  int
	blackClock  int
	increment   int
	startedAt   time.Time
	elapsed     int
	finished    bool
	result      progress.Result
}

type Arena struct {
	mu         sync.Mutex
	store      *progress.Store
	selector   *engine.Selector
	scheduler  *sched.Scheduler
	replyDelay time.Duration

	current *liveGame
	ticker  *time.Ticker
	stop    chan struct{}
}

func NewArena(store *progress.Store, selector *engine.Selector, scheduler *sched.Scheduler, replyDelay time.Duration) *Arena {
	return &Arena{
		store:      store,
		selector:   selector,
		scheduler:  scheduler,
		replyDelay: replyDelay,
	}
}

// StartOptions selects the opponent persona, the player's color, and the
// clock preset.
type StartOptions struct {
	Persona     engine.Style
	PlayerColor progress.PlayerColor
	TimeControl TimeControl
}

// State is a read-only snapshot for presentation.
type State struct {
	GameID      string               `json:"game_id,omitempty"`
	FEN         string               `json:"fen,omitempty"`
	Moves       []string             `json:"moves,omitempty"`
	Opponent    string               `json:"opponent,omitempty"`
	PlayerColor progress.PlayerColor `json:"player_color,omitempty"`
	WhiteClock  int                  `json:"white_clock"`
	BlackClock  int                  `json:"black_clock"`
	SideToMove  string               `json:"side_to_move,omitempty"`
	Active      bool                 `json:"active"`
	Finished    bool                 `json:"finished"`
	Result      progress.Result      `json:"result,omitempty"`
}

// Start opens a fresh game, superseding any game in progress. A superseded
// unfinished game is abandoned without a record; its pending engine reply is
// cancelled. Playing black defers the engine's opening ply.
func (a *Arena) Start(opts StartOptions) (State, error) {
	persona, err := a.selector.Persona(opts.Persona)
	if err != nil {
		return State{}, err
	}
	if opts.PlayerColor != progress.ColorWhite && opts.PlayerColor != progress.ColorBlack {
		return State{}, fmt.Errorf("invalid player color %q", opts.PlayerColor)
	}
	base, inc, err := controlSeconds(opts.TimeControl)
	if err != nil {
		return State{}, err
	}

	a.mu.Lock()
	if a.current != nil {
		a.scheduler.Cancel(a.current.id)
	}
	a.stopClockLocked()

	g := &liveGame{
		id:          uuid.NewString(),
		game:        nchess.NewGame(),
		style:       opts.Persona,
		persona:     persona,
		playerColor: opts.PlayerColor,
		whiteClock:  base,
		blackClock:  base,
		increment:   inc,
		startedAt:   time.Now(),
	}
	a.current = g
	a.startClockLocked()
	state := a.stateLocked()
	a.mu.Unlock()

	obslog.L().Info("live_game_started",
		zap.String("game_id", g.id),
		zap.String("persona", string(opts.Persona)),
		zap.String("player_color", string(opts.PlayerColor)),
		zap.String("time_control", string(opts.TimeControl)),
	)
	if opts.PlayerColor == progress.ColorBlack {
		a.scheduler.Schedule(g.id, a.replyDelay, func() { a.engineReply(g.id) })
	}
	return state, nil
}

// SubmitMove applies one player move to the active game.
func (a *Arena) SubmitMove(input string) (State, error) {
	a.mu.Lock()
	g := a.current
	if g == nil {
		a.mu.Unlock()
		return State{}, ErrNoActiveGame
	}
	if g.finished {
		a.mu.Unlock()
		return State{}, ErrGameOver
	}
	if rules.ColorLetter(g.game.Position().Turn()) != playerLetter(g.playerColor) {
		a.mu.Unlock()
		return State{}, ErrNotYourTurn
	}
	mv, err := rules.DecodeMove(g.game.Position(), input)
	if err != nil {
		a.mu.Unlock()
		return State{}, ErrIllegalMove
	}
	moveUCI := rules.EncodeUCI(g.game.Position(), mv)
	if err := g.game.Move(mv, nil); err != nil {
		a.mu.Unlock()
		return State{}, ErrIllegalMove
	}
	g.moves = append(g.moves, moveUCI)
	a.addIncrementLocked(g, g.playerColor)

	if res := rules.ResultOf(g.game); res != rules.ResultNone {
		a.concludeLocked(g, resultFromRules(res))
		state := a.stateLocked()
		a.mu.Unlock()
		return state, nil
	}
	state := a.stateLocked()
	a.mu.Unlock()

	a.scheduler.Schedule(g.id, a.replyDelay, func() { a.engineReply(g.id) })
	return state, nil
}

// State reports the current game, or an inactive zero state.
func (a *Arena) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *Arena) stateLocked() State {
	g := a.current
	if g == nil {
		return State{}
	}
	return State{
		GameID:      g.id,
		FEN:         g.game.FEN(),
		Moves:       append([]string(nil), g.moves...),
		Opponent:    g.persona.Label,
		PlayerColor: g.playerColor,
		WhiteClock:  g.whiteClock,
		BlackClock:  g.blackClock,
		SideToMove:  rules.ColorLetter(g.game.Position().Turn()),
		Active:      !g.finished,
		Finished:    g.finished,
		Result:      g.result,
	}
}

// engineReply is the deferred callback; it drops itself when the game it was
// scheduled for is gone or finished.
func (a *Arena) engineReply(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g := a.current
	if g == nil || g.id != id || g.finished {
		return
	}
	if rules.ColorLetter(g.game.Position().Turn()) == playerLetter(g.playerColor) {
		return
	}
	mv := a.selector.Select(g.game.Position(), g.style)
	if mv == nil {
		obslog.L().Error("live_no_engine_move",
			zap.String("game_id", g.id),
			zap.String("fen", g.game.FEN()),
		)
		return
	}
	moveUCI := rules.EncodeUCI(g.game.Position(), mv)
	if err := g.game.Move(mv, nil); err != nil {
		obslog.L().Error("live_engine_move_rejected", zap.String("game_id", g.id), zap.Error(err))
		return
	}
	g.moves = append(g.moves, moveUCI)
	a.addIncrementLocked(g, engineColor(g.playerColor))

	if res := rules.ResultOf(g.game); res != rules.ResultNone {
		a.concludeLocked(g, resultFromRules(res))
	}
}

func (a *Arena) addIncrementLocked(g *liveGame, side progress.PlayerColor) {
	if side == progress.ColorWhite {
		g.whiteClock += g.increment
	} else {
		g.blackClock += g.increment
	}
}

// Clock loop: one decrement per second for the side to move. A clock hitting
// zero is a timeout loss decided in the same tick.
func (a *Arena) startClockLocked() {
	a.ticker = time.NewTicker(time.Second)
	a.stop = make(chan struct{})
	go a.runClock(a.ticker, a.stop)
}

func (a *Arena) stopClockLocked() {
	if a.ticker != nil {
		a.ticker.Stop()
		close(a.stop)
		a.ticker = nil
		a.stop = nil
	}
}

func (a *Arena) runClock(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Arena) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()
	g := a.current
	if g == nil || g.finished {
		return
	}
	g.elapsed++
	if rules.ColorLetter(g.game.Position().Turn()) == "w" {
		g.whiteClock--
		if g.whiteClock <= 0 {
			g.whiteClock = 0
			a.concludeLocked(g, progress.ResultBlack)
		}
		return
	}
	g.blackClock--
	if g.blackClock <= 0 {
		g.blackClock = 0
		a.concludeLocked(g, progress.ResultWhite)
	}
}

// concludeLocked finishes the game and records it. Caller holds the mutex.
func (a *Arena) concludeLocked(g *liveGame, result progress.Result) {
	if g.finished {
		return
	}
	g.finished = true
	g.result = result
	a.scheduler.Cancel(g.id)
	a.stopClockLocked()

	score := 0.5
	if result != progress.ResultDraw {
		if string(result) == string(g.playerColor) {
			score = 1
		} else {
			score = 0
		}
	}
	moves := len(g.moves)
	lengthPenalty := math.Max(0, float64(moves-40)) * 0.8
	accuracy := clampInt(55, 98, int(math.Round(82+(score-0.5)*28-lengthPenalty)))

	finishedAt := time.Now()
	a.store.RecordGame(progress.GameRecord{
		ID:              g.id,
		Mode:            progress.ModeLive,
		Opponent:        g.persona.Label,
		Moves:           append([]string(nil), g.moves...),
		StartedAt:       g.startedAt,
		FinishedAt:      finishedAt,
		Result:          result,
		PlayerColor:     g.playerColor,
		Accuracy:        accuracy,
		DurationSeconds: g.elapsed,
		Tags:            []string{"live", string(g.style)},
	})
	obslog.L().Info("live_game_finished",
		zap.String("game_id", g.id),
		zap.String("result", string(result)),
		zap.Int("accuracy", accuracy),
		zap.Int("duration_seconds", g.elapsed),
	)
}

// Shutdown stops the clock loop and cancels any pending reply.
func (a *Arena) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		a.scheduler.Cancel(a.current.id)
	}
	a.stopClockLocked()
}

func resultFromRules(r rules.Result) progress.Result {
	switch r {
	case rules.ResultWhite:
		return progress.ResultWhite
	case rules.ResultBlack:
		return progress.ResultBlack
	default:
		return progress.ResultDraw
	}
}

func playerLetter(c progress.PlayerColor) string {
	if c == progress.ColorWhite {
		return "w"
	}
	return "b"
}

func engineColor(c progress.PlayerColor) progress.PlayerColor {
	if c == progress.ColorWhite {
		return progress.ColorBlack
	}
	return progress.ColorWhite
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
