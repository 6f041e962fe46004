package puzzle

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/agentic-chess/core/internal/obslog"
	"github.com/agentic-chess/core/internal/progress"
	"github.com/agentic-chess/core/internal/rules"
)

var ErrPuzzleSolved = errors.New("puzzle already solved")

// Trainer walks one puzzle at a time: it checks submitted moves against the
// scripted solution, auto-plays the opponent replies, and reports terminal
// outcomes to the progress store exactly once each.
type Trainer struct {
	mu      sync.Mutex
	rand    *rand.Rand
	catalog *Catalog
	store   *progress.Store

	difficulty Difficulty
	current    Puzzle
	game       *nchess.Game
	trail      []string
	index      int
	attempts   int
	solved     bool
	startedAt  time.Time
}

// State is a read-only view of the trainer for presentation.
type State struct {
	PuzzleID   string     `json:"puzzle_id"`
	FEN        string     `json:"fen"`
	Difficulty Difficulty `json:"difficulty"`
	Themes     []string   `json:"themes"`
	SideToMove string     `json:"side_to_move"`
	Moves      []string   `json:"moves"`
	Attempts   int        `json:"attempts"`
	Solved     bool       `json:"solved"`
	TotalSteps int        `json:"total_steps"`
	Step       int        `json:"step"`
}

// SubmitResult reports one submission: whether it matched, the auto-played
// reply if any, and the solve outcome when the line completed.
type SubmitResult struct {
	Correct   bool   `json:"correct"`
	Solved    bool   `json:"solved"`
	Reply     string `json:"reply,omitempty"`
	Attempts  int    `json:"attempts"`
	Accuracy  int    `json:"accuracy,omitempty"`
	TimeTaken int    `json:"time_taken,omitempty"`
}

func NewTrainer(catalog *Catalog, store *progress.Store, difficulty Difficulty) (*Trainer, error) {
	t := &Trainer{
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		catalog:    catalog,
		store:      store,
		difficulty: difficulty,
	}
	p, err := catalog.PickRandom(t.rand, difficulty, "")
	if err != nil {
		return nil, err
	}
	if err := t.loadLocked(p); err != nil {
		return nil, err
	}
	return t, nil
}

// SetRandomSeed makes puzzle selection reproducible. Test hook.
func (t *Trainer) SetRandomSeed(seed int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rand = rand.New(rand.NewSource(seed))
}

func (t *Trainer) loadLocked(p Puzzle) error {
	game, err := rules.GameFromFEN(p.FEN)
	if err != nil {
		return err
	}
	t.current = p
	t.game = game
	t.trail = t.trail[:0]
	t.index = 0
	t.attempts = 0
	t.solved = false
	t.startedAt = time.Now()
	obslog.L().Info("puzzle_loaded",
		zap.String("puzzle_id", p.ID),
		zap.String("difficulty", string(p.Difficulty)),
	)
	return nil
}

// normalizeSAN strips check, mate, and annotation marks so "Ra8#", "Ra8+?!"
// and "Ra8" all compare equal.
func normalizeSAN(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '+', '#', '?', '!':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// Submit checks one player move against the current solution step. A
// mismatch leaves the board untouched and counts a failed try; a match
// advances the line and auto-plays the scripted reply.
func (t *Trainer) Submit(input string) (SubmitResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.solved {
		return SubmitResult{}, ErrPuzzleSolved
	}

	expected := t.current.Solution[t.index]
	mv, err := rules.DecodeMove(t.game.Position(), input)
	if err != nil {
		// Undecodable or illegal input mutates nothing, including the
		// attempt counter. Only a legal-but-wrong move is a failed try.
		return SubmitResult{Correct: false, Attempts: t.attempts}, nil
	}
	submitted := normalizeSAN(rules.EncodeSAN(t.game.Position(), mv))

	if submitted != normalizeSAN(expected.Move) {
		t.attempts++
		// Rebuild from the FEN plus the accepted trail; decoding never
		// mutates, but the board must provably match the trail after a miss.
		game, err := rules.GameFromFEN(t.current.FEN)
		if err == nil {
			for _, san := range t.trail {
				if applyErr := applySAN(game, san); applyErr != nil {
					err = applyErr
					break
				}
			}
		}
		if err != nil {
			return SubmitResult{}, fmt.Errorf("rebuild puzzle %s: %w", t.current.ID, err)
		}
		t.game = game
		return SubmitResult{Correct: false, Attempts: t.attempts}, nil
	}

	if err := applySAN(t.game, expected.Move); err != nil {
		return SubmitResult{}, fmt.Errorf("apply solution move %q: %w", expected.Move, err)
	}
	t.trail = append(t.trail, expected.Move)
	res := SubmitResult{Correct: true, Attempts: t.attempts}
	if expected.Reply != "" {
		if err := applySAN(t.game, expected.Reply); err != nil {
			return SubmitResult{}, fmt.Errorf("apply scripted reply %q: %w", expected.Reply, err)
		}
		t.trail = append(t.trail, expected.Reply)
		res.Reply = expected.Reply
	}
	t.index++

	if t.index == len(t.current.Solution) {
		t.solved = true
		res.Solved = true
		res.TimeTaken = int(time.Since(t.startedAt).Seconds())
		res.Accuracy = solvedAccuracy(t.attempts)
		t.store.RecordPuzzleAttempt(progress.PuzzleAttempt{
			PuzzleID:  t.current.ID,
			Solved:    true,
			TimeTaken: res.TimeTaken,
			Accuracy:  res.Accuracy,
		})
	}
	return res, nil
}

// Skip abandons the current puzzle. An unsolved puzzle is recorded as a
// failed attempt; a solved one just rotates out. Either way a fresh puzzle of
// the current difficulty comes up.
func (t *Trainer) Skip() (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.solved {
		t.store.RecordPuzzleAttempt(progress.PuzzleAttempt{
			PuzzleID:  t.current.ID,
			Solved:    false,
			TimeTaken: int(time.Since(t.startedAt).Seconds()),
			Accuracy:  failedAccuracy(t.attempts),
		})
	}
	next, err := t.catalog.PickRandom(t.rand, t.difficulty, t.current.ID)
	if err != nil {
		return State{}, err
	}
	if err := t.loadLocked(next); err != nil {
		return State{}, err
	}
	return t.stateLocked(), nil
}

// Replay restarts the current puzzle from its initial position. Nothing is
// recorded; attempts and the clock reset.
func (t *Trainer) Replay() (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadLocked(t.current); err != nil {
		return State{}, err
	}
	return t.stateLocked(), nil
}

// SetDifficulty discards the current puzzle without recording and draws from
// the target pool.
func (t *Trainer) SetDifficulty(d Difficulty) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, err := t.catalog.PickRandom(t.rand, d, "")
	if err != nil {
		return State{}, err
	}
	t.difficulty = d
	if err := t.loadLocked(next); err != nil {
		return State{}, err
	}
	return t.stateLocked(), nil
}

func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Trainer) stateLocked() State {
	return State{
		PuzzleID:   t.current.ID,
		FEN:        t.game.FEN(),
		Difficulty: t.current.Difficulty,
		Themes:     append([]string(nil), t.current.Themes...),
		SideToMove: rules.ColorLetter(t.game.Position().Turn()),
		Moves:      append([]string(nil), t.trail...),
		Attempts:   t.attempts,
		Solved:     t.solved,
		TotalSteps: len(t.current.Solution),
		Step:       t.index,
	}
}

func applySAN(game *nchess.Game, san string) error {
	mv, err := rules.DecodeMove(game.Position(), san)
	if err != nil {
		return err
	}
	return game.Move(mv, nil)
}

func solvedAccuracy(attempts int) int {
	return clampInt(35, 99, 95-attempts*10)
}

func failedAccuracy(attempts int) int {
	base := 65 - attempts*8
	if base < 40 {
		base = 40
	}
	return clampInt(35, 99, base)
}

func clampInt(lo, hi, v int) int {
	return int(math.Min(float64(hi), math.Max(float64(lo), float64(v))))
}
