package engine

import (
	"os"
	"path/filepath"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-chess/core/internal/rules"
)

func newSelector(t *testing.T) *Selector {
	t.Helper()
	s, err := NewSelector("")
	require.NoError(t, err)
	s.SetRandomSeed(42)
	return s
}

func TestEmbeddedProfilesLoad(t *testing.T) {
	s := newSelector(t)
	for _, style := range Styles() {
		p, err := s.Persona(style)
		require.NoError(t, err)
		assert.NotEmpty(t, p.Label)
		assert.GreaterOrEqual(t, p.Weights.Noise, 0.0)
	}
	_, err := s.Persona("speedrun")
	assert.Error(t, err)
}

func TestParseStyle(t *testing.T) {
	style, err := ParseStyle(" Tactical ")
	require.NoError(t, err)
	assert.Equal(t, StyleTactical, style)
	_, err = ParseStyle("hypermodern")
	assert.Error(t, err)
}

func TestStyleForLabel(t *testing.T) {
	s := newSelector(t)
	style, ok := s.StyleForLabel("Casual Bot")
	require.True(t, ok)
	assert.Equal(t, StyleCasual, style)
	_, ok = s.StyleForLabel("Unknown Opponent")
	assert.False(t, ok)
}

func TestOverrideFileRetunesWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`profiles:
  casual:
    weights:
      noise: 1.5
`), 0o644))

	s, err := NewSelector(path)
	require.NoError(t, err)
	p, err := s.Persona(StyleCasual)
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.Weights.Noise)
	// Untouched personas keep embedded values.
	balanced, err := s.Persona(StyleBalanced)
	require.NoError(t, err)
	assert.Equal(t, "Balanced Engine", balanced.Label)
}

func TestOverrideFileRejectsNewStyles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`profiles:
  hypermodern:
    label: New One
`), 0o644))
	_, err := NewSelector(path)
	assert.Error(t, err)
}

func TestSelectReturnsLegalMoves(t *testing.T) {
	s := newSelector(t)
	game := nchess.NewGame()
	for _, style := range Styles() {
		for i := 0; i < 10; i++ {
			mv := s.Select(game.Position(), style)
			require.NotNil(t, mv)
			picked := rules.EncodeUCI(game.Position(), mv)
			legal := false
			for _, valid := range game.Position().ValidMoves() {
				if rules.EncodeUCI(game.Position(), &valid) == picked {
					legal = true
					break
				}
			}
			assert.True(t, legal, "style %s produced illegal move", style)
		}
	}
}

func TestSelectOnTerminalPosition(t *testing.T) {
	s := newSelector(t)
	// Fool's mate: black has just mated, white has no legal moves.
	game, err := rules.Reconstruct("", []string{"f2f3", "e7e5", "g2g4", "d8h4"})
	require.NoError(t, err)
	assert.Nil(t, s.Select(game.Position(), StyleBalanced))
	assert.Nil(t, s.Select(nil, StyleBalanced))
}

func TestTacticalGrabsHangingQueen(t *testing.T) {
	s := newSelector(t)
	game, err := rules.GameFromFEN("rnb1kbnr/pppp1ppp/8/3qp3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 1")
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		mv := s.Select(game.Position(), StyleTactical)
		require.NotNil(t, mv)
		assert.Equal(t, "e4d5", rules.EncodeUCI(game.Position(), mv))
	}
}

func TestCasualIsNoisier(t *testing.T) {
	s := newSelector(t)
	game := nchess.NewGame()

	distinct := func(style Style) int {
		seen := map[string]bool{}
		for i := 0; i < 40; i++ {
			mv := s.Select(game.Position(), style)
			require.NotNil(t, mv)
			seen[rules.EncodeUCI(game.Position(), mv)] = true
		}
		return len(seen)
	}
	assert.Greater(t, distinct(StyleCasual), 1)
}
