package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-chess/core/internal/engine"
	"github.com/agentic-chess/core/internal/progress"
	"github.com/agentic-chess/core/internal/sched"
)

func newCoordinator(t *testing.T, replyDelay time.Duration) (*Coordinator, *progress.Store) {
	t.Helper()
	selector, err := engine.NewSelector("")
	require.NoError(t, err)
	selector.SetRandomSeed(11)
	store := progress.NewStore(nil)
	scheduler := sched.New()
	t.Cleanup(scheduler.CancelAll)
	return NewCoordinator(store, selector, scheduler, replyDelay), store
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestCreateAsWhite(t *testing.T) {
	c, store := newCoordinator(t, time.Hour)

	g, err := c.Create(CreateOptions{Persona: engine.StyleBalanced, PlayerColor: progress.ColorWhite})
	require.NoError(t, err)
	assert.Equal(t, "Daily Clash #1", g.Title)
	assert.Equal(t, "Balanced Engine", g.Opponent)
	assert.Equal(t, "w", g.ColorToMove)
	assert.True(t, g.RemindersEnabled)
	assert.Empty(t, g.Moves)

	g2, err := c.Create(CreateOptions{Persona: engine.StyleCasual, PlayerColor: progress.ColorWhite})
	require.NoError(t, err)
	assert.Equal(t, "Daily Clash #2", g2.Title)

	require.Len(t, store.DailyGames(), 2)
}

func TestCreateAsBlackGetsEngineOpening(t *testing.T) {
	c, store := newCoordinator(t, 5*time.Millisecond)

	g, err := c.Create(CreateOptions{Persona: engine.StyleTactical, PlayerColor: progress.ColorBlack})
	require.NoError(t, err)

	waitFor(t, func() bool {
		got, ok := store.DailyGameByID(g.ID)
		return ok && len(got.Moves) == 1
	})
	got, _ := store.DailyGameByID(g.ID)
	assert.Equal(t, "b", got.ColorToMove)
}

func TestCreateRejectsUnknownInputs(t *testing.T) {
	c, _ := newCoordinator(t, time.Hour)
	_, err := c.Create(CreateOptions{Persona: "speedrun", PlayerColor: progress.ColorWhite})
	assert.Error(t, err)
	_, err = c.Create(CreateOptions{Persona: engine.StyleBalanced, PlayerColor: "green"})
	assert.Error(t, err)
}

func TestPlayMoveRejections(t *testing.T) {
	c, _ := newCoordinator(t, time.Hour)

	_, err := c.PlayMove("nope", "e4")
	assert.ErrorIs(t, err, ErrGameNotFound)

	g, err := c.Create(CreateOptions{Persona: engine.StyleBalanced, PlayerColor: progress.ColorBlack})
	require.NoError(t, err)
	_, err = c.PlayMove(g.ID, "e5")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	g2, err := c.Create(CreateOptions{Persona: engine.StyleBalanced, PlayerColor: progress.ColorWhite})
	require.NoError(t, err)
	_, err = c.PlayMove(g2.ID, "Ke4")
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestPlayMoveAndEngineReply(t *testing.T) {
	c, store := newCoordinator(t, 5*time.Millisecond)

	g, err := c.Create(CreateOptions{Persona: engine.StyleBalanced, PlayerColor: progress.ColorWhite})
	require.NoError(t, err)

	updated, err := c.PlayMove(g.ID, "e4")
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4"}, updated.Moves)
	assert.Equal(t, "b", updated.ColorToMove)

	waitFor(t, func() bool {
		got, ok := store.DailyGameByID(g.ID)
		return ok && len(got.Moves) == 2
	})
	got, _ := store.DailyGameByID(g.ID)
	assert.Equal(t, "w", got.ColorToMove)
}

func TestCheckmateCompletesGame(t *testing.T) {
	c, store := newCoordinator(t, time.Hour)

	// Fool's mate, one ply from the end, player as black.
	store.UpsertDailyGame(progress.DailyGame{
		ID:               "d-mate",
		Title:            "Daily Clash #1",
		Opponent:         "Balanced Engine",
		Moves:            []string{"f2f3", "e7e5", "g2g4"},
		LastUpdated:      time.Now(),
		ColorToMove:      "b",
		PlayerColor:      progress.ColorBlack,
		RemindersEnabled: true,
	})

	_, err := c.PlayMove("d-mate", "Qh4#")
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.Empty(t, snap.DailyGames)
	require.Len(t, snap.Games, 1)
	rec := snap.Games[0]
	assert.Equal(t, progress.ModeDaily, rec.Mode)
	assert.Equal(t, progress.ResultBlack, rec.Result)
	assert.Equal(t, []string{"daily"}, rec.Tags)
	// 80 + 10 win bonus - 4 moves * 0.4, rounded.
	assert.Equal(t, 88, rec.Accuracy)
	assert.Equal(t, 4*moveThinkSeconds, rec.DurationSeconds)
	assert.Equal(t, 1, snap.DailyStreak)
}

func TestStaleReplyIsDropped(t *testing.T) {
	c, store := newCoordinator(t, 30*time.Millisecond)

	g, err := c.Create(CreateOptions{Persona: engine.StyleBalanced, PlayerColor: progress.ColorWhite})
	require.NoError(t, err)
	_, err = c.PlayMove(g.ID, "e4")
	require.NoError(t, err)

	// The game vanishes before the deferred reply fires.
	_, err = store.CompleteDailyGame(g.ID, progress.ResultDraw, 60, 90)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	snap := store.Snapshot()
	assert.Empty(t, snap.DailyGames)
	require.Len(t, snap.Games, 1)
}
