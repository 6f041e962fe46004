// Package rules wraps the corentings/chess rules engine with the small set of
// helpers the core services share: game reconstruction from a serialized
// position, notation decoding with SAN/UCI fallback, and terminal mapping.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Result is the outcome of a finished game from White's perspective.
type Result string

const (
	ResultWhite Result = "white"
	ResultBlack Result = "black"
	ResultDraw  Result = "draw"
	ResultNone  Result = ""
)

// GameFromFEN builds a fresh game from a FEN string. Empty input or the
// literal "startpos" yields the standard starting position.
func GameFromFEN(fen string) (*nchess.Game, error) {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return nchess.NewGame(), nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	return nchess.NewGame(option), nil
}

// Reconstruct replays stored UCI moves on top of a starting FEN. Stored move
// lists are the source of truth; the FEN on a record is presentational.
func Reconstruct(fen string, movesUCI []string) (*nchess.Game, error) {
	game, err := GameFromFEN(fen)
	if err != nil {
		return nil, err
	}
	for _, mv := range movesUCI {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("apply move %q: %w", mv, err)
		}
	}
	return game, nil
}

// DecodeMove parses a player-supplied move against a position, trying SAN
// first and falling back to lowercase UCI. The decoded move is checked
// against the position's legal set: the UCI decoder only parses squares, so
// legality has to be enforced here, not left to Game.Move.
func DecodeMove(pos *nchess.Position, input string) (*nchess.Move, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, fmt.Errorf("empty move")
	}
	if mv, err := (nchess.AlgebraicNotation{}).Decode(pos, text); err == nil && isLegal(pos, mv) {
		return mv, nil
	}
	mv, err := (nchess.UCINotation{}).Decode(pos, strings.ToLower(text))
	if err != nil {
		return nil, fmt.Errorf("decode move %q: %w", input, err)
	}
	if !isLegal(pos, mv) {
		return nil, fmt.Errorf("illegal move %q", input)
	}
	return mv, nil
}

func isLegal(pos *nchess.Position, mv *nchess.Move) bool {
	want := (nchess.UCINotation{}).Encode(pos, mv)
	for _, legal := range pos.ValidMoves() {
		if (nchess.UCINotation{}).Encode(pos, &legal) == want {
			return true
		}
	}
	return false
}

// EncodeSAN renders a move in algebraic notation for the given position.
func EncodeSAN(pos *nchess.Position, mv *nchess.Move) string {
	return nchess.AlgebraicNotation{}.Encode(pos, mv)
}

// EncodeUCI renders a move in lowercase UCI.
func EncodeUCI(pos *nchess.Position, mv *nchess.Move) string {
	return strings.ToLower(nchess.UCINotation{}.Encode(pos, mv))
}

// ResultOf maps a game outcome to a Result; ResultNone while in progress.
func ResultOf(game *nchess.Game) Result {
	switch game.Outcome() {
	case nchess.WhiteWon:
		return ResultWhite
	case nchess.BlackWon:
		return ResultBlack
	case nchess.Draw:
		return ResultDraw
	default:
		return ResultNone
	}
}

// IsCheckmate reports whether the game ended by checkmate.
func IsCheckmate(game *nchess.Game) bool {
	return game.Outcome() != nchess.NoOutcome && game.Method() == nchess.Checkmate
}

// ColorLetter is the FEN side-to-move letter for a color.
func ColorLetter(c nchess.Color) string {
	if c == nchess.White {
		return "w"
	}
	return "b"
}
