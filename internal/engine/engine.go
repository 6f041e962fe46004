// Package engine implements the opponent move-selection heuristics. It is
// advisory scoring over one ply plus a capture-exchange probe, not search:
// each legal move gets a persona-weighted feature score with persona-scaled
// random jitter, and near-ties are broken uniformly at random.
package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// tie band width: moves scoring within epsilon of the best are interchangeable.
const scoreEpsilon = 0.25

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   1,
	nchess.Knight: 3,
	nchess.Bishop: 3,
	nchess.Rook:   5,
	nchess.Queen:  9,
}

// Selector picks opponent moves. Safe for concurrent use; the internal rand
// is mutex-guarded and each selection derives its own source from it.
type Selector struct {
	randMu   sync.Mutex
	rand     *rand.Rand
	profiles map[Style]Persona
}

// NewSelector loads the embedded persona profiles, optionally re-tuned by an
// override file (empty path skips the overlay).
func NewSelector(overridePath string) (*Selector, error) {
	profiles, err := loadEmbeddedProfiles()
	if err != nil {
		return nil, err
	}
	if overridePath != "" {
		if err := applyOverrideFile(profiles, overridePath); err != nil {
			return nil, err
		}
	}
	return &Selector{
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		profiles: profiles,
	}, nil
}

// SetRandomSeed reseeds the selector; tests use this for determinism.
func (s *Selector) SetRandomSeed(seed int64) {
	s.randMu.Lock()
	s.rand = rand.New(rand.NewSource(seed))
	s.randMu.Unlock()
}

func (s *Selector) random() *rand.Rand {
	s.randMu.Lock()
	seed := s.rand.Int63()
	s.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// Persona returns the loaded profile for a style.
func (s *Selector) Persona(style Style) (Persona, error) {
	p, ok := s.profiles[style]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona style %q", style)
	}
	return p, nil
}

// StyleForLabel maps a display label back to its style. Stored games carry
// the label; replies need the style.
func (s *Selector) StyleForLabel(label string) (Style, bool) {
	for style, p := range s.profiles {
		if p.Label == label {
			return style, true
		}
	}
	return "", false
}

// Select returns one legal move for the side to move, or nil when no legal
// move exists. Callers exclude terminal positions as a precondition; the nil
// return is the defensive path, never a panic.
func (s *Selector) Select(pos *nchess.Position, style Style) *nchess.Move {
	if pos == nil {
		return nil
	}
	moves := pos.ValidMoves()
	if len(moves) == 0 {
		return nil
	}
	persona, ok := s.profiles[style]
	if !ok {
		persona = s.profiles[StyleBalanced]
	}
	r := s.random()

	scores := make([]float64, len(moves))
	best := 0.0
	for i := range moves {
		score := s.scoreMove(pos, &moves[i], persona)
		score += (r.Float64()*2 - 1) * persona.Weights.Noise
		scores[i] = score
		if i == 0 || score > best {
			best = score
		}
	}

	// Uniform choice among the tie band keeps behavior non-deterministic even
	// at low noise.
	band := make([]int, 0, 4)
	for i, score := range scores {
		if best-score <= scoreEpsilon {
			band = append(band, i)
		}
	}
	return &moves[band[r.Intn(len(band))]]
}

func (s *Selector) scoreMove(pos *nchess.Position, mv *nchess.Move, persona Persona) float64 {
	f := extractFeatures(pos, mv)
	w := persona.Weights

	score := w.Capture * float64(f.captureValue)
	if f.givesCheck {
		score += w.Check
	}
	score += w.Trade * float64(f.materialDelta)
	if f.hanging {
		penalty := w.HangingPenalty * float64(f.pieceValue)
		if f.givesCheck {
			penalty *= 1 - w.ForcingRelief
		}
		score -= penalty
	}
	if f.exposesKing {
		score -= w.KingSafety
	}
	score += w.Development * developmentBonus(pos, mv)
	return score
}

// moveFeatures is the derived scoring vector for one candidate move.
type moveFeatures struct {
	pieceValue    int
	captureValue  int
	materialDelta int
	givesCheck    bool
	hanging       bool
	exposesKing   bool
}

func extractFeatures(pos *nchess.Position, mv *nchess.Move) moveFeatures {
	f := moveFeatures{}
	board := pos.Board()
	f.pieceValue = pieceValues[board.Piece(mv.S1()).Type()]
	if mv.HasTag(nchess.Capture) {
		f.captureValue = pieceValues[board.Piece(mv.S2()).Type()]
	}
	if mv.HasTag(nchess.EnPassant) {
		f.captureValue = pieceValues[nchess.Pawn]
	}
	f.givesCheck = mv.HasTag(nchess.Check)

	next := pos.Update(mv)
	if next == nil {
		f.materialDelta = f.captureValue
		return f
	}

	minAttacker := 0
	for _, reply := range next.ValidMoves() {
		if reply.HasTag(nchess.Check) {
			f.exposesKing = true
		}
		if reply.S2() != mv.S2() {
			continue
		}
		if !reply.HasTag(nchess.Capture) && !reply.HasTag(nchess.EnPassant) {
			continue
		}
		av := pieceValues[next.Board().Piece(reply.S1()).Type()]
		if minAttacker == 0 || av < minAttacker {
			minAttacker = av
		}
	}
	if minAttacker > 0 {
		if minAttacker < f.pieceValue {
			// a cheaper attacker makes any recapture a losing trade
			f.hanging = true
		} else if !defendedAfterExchange(next, mv.S2()) {
			f.hanging = true
		}
	}

	f.materialDelta = f.captureValue
	if f.hanging {
		f.materialDelta -= f.pieceValue
	}
	return f
}

// defendedAfterExchange probes one capture-recapture pair on the square: if
// the opponent takes there, can the mover take back?
func defendedAfterExchange(next *nchess.Position, sq nchess.Square) bool {
	for _, reply := range next.ValidMoves() {
		if reply.S2() != sq || !reply.HasTag(nchess.Capture) {
			continue
		}
		after := next.Update(&reply)
		if after == nil {
			continue
		}
		for _, back := range after.ValidMoves() {
			if back.S2() == sq && back.HasTag(nchess.Capture) {
				return true
			}
		}
		return false
	}
	return true
}

// developmentBonus nudges quiet moves that develop minor pieces and center
// pawns, and discourages early queen sorties.
func developmentBonus(pos *nchess.Position, mv *nchess.Move) float64 {
	piece := pos.Board().Piece(mv.S1())
	switch piece.Type() {
	case nchess.Pawn:
		file := mv.S2().File()
		if file >= nchess.FileC && file <= nchess.FileF {
			return 1.0
		}
		return 0.4
	case nchess.Knight, nchess.Bishop:
		if mv.S1().Rank() == homeRank(piece.Color()) {
			return 1.2
		}
		return 0.3
	case nchess.Queen:
		return -0.4
	default:
		return 0
	}
}

func homeRank(c nchess.Color) nchess.Rank {
	if c == nchess.White {
		return nchess.Rank1
	}
	return nchess.Rank8
}
