// Package progress holds the process-wide skill-tracking state: per-mode
// ratings and streaks, completed-game history, active daily games, and
// puzzle attempt history. All mutation funnels through named operations on
// Store, which apply the change and persist it as one atomic unit.
package progress

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentic-chess/core/internal/obslog"
)

const (
	seedLiveRating   = 1280
	seedDailyRating  = 1325
	seedPuzzleRating = 1240

	ratingFloor    = 100
	historyCap     = 100
	accuracyWindow = 20
)

// Store is the progress state container. Constructor-injected where needed;
// a single mutex gives the single-writer discipline the rating fields need.
type Store struct {
	mu        sync.Mutex
	state     Snapshot
	persister Persister
}

// NewStore restores state from the persister (seed defaults when the blob is
// absent, corrupt, or carries an unknown version). A nil persister keeps the
// store memory-only, which tests use.
func NewStore(p Persister) *Store {
	s := &Store{persister: p, state: seedState()}
	if p == nil {
		return s
	}
	raw, err := p.Load(context.Background())
	if err != nil {
		obslog.L().Warn("progress_load_error", zap.Error(err))
		return s
	}
	if len(raw) == 0 {
		return s
	}
	state, err := decodeState(raw)
	if err != nil {
		obslog.L().Warn("progress_blob_rejected", zap.Error(err))
		return s
	}
	s.state = state
	return s
}

func seedState() Snapshot {
	return Snapshot{
		LiveRating:    seedLiveRating,
		DailyRating:   seedDailyRating,
		PuzzleRating:  seedPuzzleRating,
		Games:         []GameRecord{},
		DailyGames:    []DailyGame{},
		PuzzleHistory: []PuzzleHistory{},
	}
}

// ApplyResult is the rating-update rule: K=32 below 2000 (else 16),
// delta = round(K*(score-0.5)), floored at 100. Score is 0, 0.5, or 1.
func ApplyResult(current int, score float64) int {
	k := 32.0
	if current >= 2000 {
		k = 16.0
	}
	delta := int(math.Round(k * (score - 0.5)))
	next := current + delta
	if next < ratingFloor {
		next = ratingFloor
	}
	return next
}

func computeScore(result Result, color PlayerColor) float64 {
	if result == ResultDraw {
		return 0.5
	}
	if string(result) == string(color) {
		return 1
	}
	return 0
}

// RecordGame appends a completed game (most-recent-first, capacity 100) and
// applies the mode's rating and streak update in the same atomic step.
func (s *Store) RecordGame(rec GameRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordGameLocked(rec)
	s.persistLocked()
}

func (s *Store) recordGameLocked(rec GameRecord) {
	score := computeScore(rec.Result, rec.PlayerColor)

	s.state.Games = append([]GameRecord{rec}, s.state.Games...)
	if len(s.state.Games) > historyCap {
		s.state.Games = s.state.Games[:historyCap]
	}

	switch rec.Mode {
	case ModeLive:
		s.state.LiveRating = ApplyResult(s.state.LiveRating, score)
		s.state.LiveStreak = nextStreak(s.state.LiveStreak, score)
	default:
		s.state.DailyRating = ApplyResult(s.state.DailyRating, score)
		s.state.DailyStreak = nextStreak(s.state.DailyStreak, score)
	}

	obslog.L().Info("game_recorded",
		zap.String("game_id", rec.ID),
		zap.String("mode", string(rec.Mode)),
		zap.String("result", string(rec.Result)),
		zap.Int("accuracy", rec.Accuracy),
	)
}

func nextStreak(current int, score float64) int {
	if score == 1 {
		return current + 1
	}
	return 0
}

// UpsertDailyGame inserts a daily game or replaces the entry with its id.
func (s *Store) UpsertDailyGame(game DailyGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.DailyGames {
		if s.state.DailyGames[i].ID == game.ID {
			s.state.DailyGames[i] = game
			s.persistLocked()
			return
		}
	}
	s.state.DailyGames = append([]DailyGame{game}, s.state.DailyGames...)
	s.persistLocked()
}

// UpdateDailyGame merge-patches the daily game with the given id. Reports
// false when no such game is active.
func (s *Store) UpdateDailyGame(id string, patch DailyGamePatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.DailyGames {
		if s.state.DailyGames[i].ID != id {
			continue
		}
		g := &s.state.DailyGames[i]
		if patch.FEN != nil {
			g.FEN = *patch.FEN
		}
		if patch.Moves != nil {
			g.Moves = append([]string(nil), (*patch.Moves)...)
		}
		if patch.ColorToMove != nil {
			g.ColorToMove = *patch.ColorToMove
		}
		if patch.LastUpdated != nil {
			g.LastUpdated = *patch.LastUpdated
		}
		if patch.RemindersEnabled != nil {
			g.RemindersEnabled = *patch.RemindersEnabled
		}
		s.persistLocked()
		return true
	}
	return false
}

// DailyGameByID returns a copy of the active daily game with the given id.
func (s *Store) DailyGameByID(id string) (DailyGame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.state.DailyGames {
		if g.ID == id {
			return cloneDailyGame(g), true
		}
	}
	return DailyGame{}, false
}

// DailyGames returns copies of the active daily games, most recent first.
func (s *Store) DailyGames() []DailyGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DailyGame, 0, len(s.state.DailyGames))
	for _, g := range s.state.DailyGames {
		out = append(out, cloneDailyGame(g))
	}
	return out
}

// CompleteDailyGame removes the daily game from the active set and archives
// it as one GameRecord, triggering the daily rating update. Removal and
// archive are one atomic unit.
func (s *Store) CompleteDailyGame(id string, result Result, accuracy, durationSeconds int) (GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.state.DailyGames {
		if s.state.DailyGames[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return GameRecord{}, fmt.Errorf("daily game %s not active", id)
	}
	target := s.state.DailyGames[idx]
	s.state.DailyGames = append(s.state.DailyGames[:idx], s.state.DailyGames[idx+1:]...)

	finishedAt := time.Now()
	rec := GameRecord{
		ID:              fmt.Sprintf("%s-completed-%s", id, finishedAt.Format(time.RFC3339)),
		Mode:            ModeDaily,
		Opponent:        target.Opponent,
		Moves:           append([]string(nil), target.Moves...),
		StartedAt:       target.LastUpdated,
		FinishedAt:      finishedAt,
		Result:          result,
		PlayerColor:     target.PlayerColor,
		Accuracy:        accuracy,
		DurationSeconds: durationSeconds,
		Tags:            []string{"daily"},
	}
	s.recordGameLocked(rec)
	s.persistLocked()
	return rec, nil
}

// RecordPuzzleAttempt updates (or creates) the per-puzzle history entry and
// applies the puzzle rating and streak update. Called exactly once per
// terminal puzzle outcome; in-puzzle retries never reach the store.
func (s *Store) RecordPuzzleAttempt(attempt PuzzleAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var entry *PuzzleHistory
	for i := range s.state.PuzzleHistory {
		if s.state.PuzzleHistory[i].ID == attempt.PuzzleID {
			entry = &s.state.PuzzleHistory[i]
			break
		}
	}
	if entry == nil {
		s.state.PuzzleHistory = append([]PuzzleHistory{{ID: attempt.PuzzleID}}, s.state.PuzzleHistory...)
		entry = &s.state.PuzzleHistory[0]
	}

	entry.Attempts++
	entry.Solved = attempt.Solved
	entry.LastAttemptAt = &now
	if attempt.Solved {
		if entry.BestTime == nil || attempt.TimeTaken < *entry.BestTime {
			t := attempt.TimeTaken
			entry.BestTime = &t
		}
	}
	entry.AccuracyHistory = append(entry.AccuracyHistory, attempt.Accuracy)
	if len(entry.AccuracyHistory) > accuracyWindow {
		entry.AccuracyHistory = entry.AccuracyHistory[len(entry.AccuracyHistory)-accuracyWindow:]
	}

	score := 0.0
	if attempt.Solved {
		score = 1.0
	}
	s.state.PuzzleRating = ApplyResult(s.state.PuzzleRating, score)
	s.state.PuzzleStreak = nextStreak(s.state.PuzzleStreak, score)

	obslog.L().Info("puzzle_attempt_recorded",
		zap.String("puzzle_id", attempt.PuzzleID),
		zap.Bool("solved", attempt.Solved),
		zap.Int("accuracy", attempt.Accuracy),
		zap.Int("rating", s.state.PuzzleRating),
	)
	s.persistLocked()
}

// Reset restores seed ratings and empties every collection.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = seedState()
	obslog.L().Info("progress_reset")
	s.persistLocked()
}

// Snapshot returns a deep copy of the full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Games = make([]GameRecord, len(s.state.Games))
	for i, g := range s.state.Games {
		out.Games[i] = g
		out.Games[i].Moves = append([]string(nil), g.Moves...)
		out.Games[i].Tags = append([]string(nil), g.Tags...)
	}
	out.DailyGames = make([]DailyGame, len(s.state.DailyGames))
	for i, g := range s.state.DailyGames {
		out.DailyGames[i] = cloneDailyGame(g)
	}
	out.PuzzleHistory = make([]PuzzleHistory, len(s.state.PuzzleHistory))
	for i, h := range s.state.PuzzleHistory {
		out.PuzzleHistory[i] = h
		out.PuzzleHistory[i].AccuracyHistory = append([]int(nil), h.AccuracyHistory...)
		if h.BestTime != nil {
			t := *h.BestTime
			out.PuzzleHistory[i].BestTime = &t
		}
		if h.LastAttemptAt != nil {
			at := *h.LastAttemptAt
			out.PuzzleHistory[i].LastAttemptAt = &at
		}
	}
	return out
}

func cloneDailyGame(g DailyGame) DailyGame {
	dup := g
	dup.Moves = append([]string(nil), g.Moves...)
	return dup
}

func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	raw, err := encodeState(s.state)
	if err != nil {
		obslog.L().Warn("progress_encode_error", zap.Error(err))
		return
	}
	if err := s.persister.Save(context.Background(), raw); err != nil {
		obslog.L().Warn("progress_save_error", zap.Error(err))
	}
}
