package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameFromFEN(t *testing.T) {
	g, err := GameFromFEN("")
	require.NoError(t, err)
	assert.Equal(t, ResultNone, ResultOf(g))

	g, err = GameFromFEN("startpos")
	require.NoError(t, err)
	assert.Equal(t, "w", ColorLetter(g.Position().Turn()))

	g, err = GameFromFEN("6k1/5ppp/8/8/8/8/8/R6K w - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, "w", ColorLetter(g.Position().Turn()))

	_, err = GameFromFEN("this is not a fen")
	assert.Error(t, err)
}

func TestReconstructAndTerminal(t *testing.T) {
	g, err := Reconstruct("", []string{"f2f3", "e7e5", "g2g4", "d8h4"})
	require.NoError(t, err)
	assert.Equal(t, ResultBlack, ResultOf(g))
	assert.True(t, IsCheckmate(g))

	_, err = Reconstruct("", []string{"e2e5"})
	assert.Error(t, err)
}

func TestDecodeMoveFallsBackToUCI(t *testing.T) {
	g, err := GameFromFEN("")
	require.NoError(t, err)

	mv, err := DecodeMove(g.Position(), "Nf3")
	require.NoError(t, err)
	assert.Equal(t, "g1f3", EncodeUCI(g.Position(), mv))

	mv, err = DecodeMove(g.Position(), "E2E4")
	require.NoError(t, err)
	assert.Equal(t, "e4", EncodeSAN(g.Position(), mv))

	_, err = DecodeMove(g.Position(), "e2e5")
	assert.Error(t, err)
	_, err = DecodeMove(g.Position(), "  ")
	assert.Error(t, err)
}
