// Package puzzle serves tactics puzzles from an embedded catalogue and walks
// the player through each scripted solution line.
package puzzle

import (
	_ "embed"
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"

	"github.com/agentic-chess/core/internal/rules"
)

//go:embed puzzles.yaml
var embeddedCatalog []byte

// Difficulty is a closed set: beginner, intermediate, advanced.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// SolutionStep is one expected player move in SAN, with the scripted
// opponent reply that follows it (absent on the final step).
type SolutionStep struct {
	Move  string `yaml:"move" json:"move"`
	Reply string `yaml:"reply,omitempty" json:"reply,omitempty"`
}

type Puzzle struct {
	ID         string         `yaml:"id" json:"id"`
	FEN        string         `yaml:"fen" json:"fen"`
	Difficulty Difficulty     `yaml:"difficulty" json:"difficulty"`
	Themes     []string       `yaml:"themes" json:"themes"`
	SideToMove string         `yaml:"side_to_move" json:"side_to_move"`
	Solution   []SolutionStep `yaml:"solution" json:"solution"`
}

type catalogDoc struct {
	Puzzles []Puzzle `yaml:"puzzles"`
}

// Catalog is the immutable puzzle set, grouped by difficulty.
type Catalog struct {
	byDifficulty map[Difficulty][]Puzzle
	all          []Puzzle
}

// LoadCatalog parses the embedded catalogue and verifies every solution line
// replays legally from its FEN.
func LoadCatalog() (*Catalog, error) {
	return parseCatalog(embeddedCatalog)
}

func parseCatalog(raw []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse puzzle catalogue: %w", err)
	}
	if len(doc.Puzzles) == 0 {
		return nil, fmt.Errorf("puzzle catalogue is empty")
	}
	c := &Catalog{byDifficulty: make(map[Difficulty][]Puzzle)}
	seen := make(map[string]bool)
	for _, p := range doc.Puzzles {
		if err := validatePuzzle(p); err != nil {
			return nil, fmt.Errorf("puzzle %s: %w", p.ID, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate puzzle id %s", p.ID)
		}
		seen[p.ID] = true
		c.byDifficulty[p.Difficulty] = append(c.byDifficulty[p.Difficulty], p)
		c.all = append(c.all, p)
	}
	return c, nil
}

func validatePuzzle(p Puzzle) error {
	if p.ID == "" {
		return fmt.Errorf("missing id")
	}
	if _, err := ParseDifficulty(string(p.Difficulty)); err != nil {
		return err
	}
	if len(p.Solution) == 0 {
		return fmt.Errorf("empty solution")
	}
	game, err := rules.GameFromFEN(p.FEN)
	if err != nil {
		return fmt.Errorf("bad fen: %w", err)
	}
	if rules.ColorLetter(game.Position().Turn()) != p.SideToMove {
		return fmt.Errorf("side_to_move %q disagrees with fen", p.SideToMove)
	}
	for i, step := range p.Solution {
		if err := applySAN(game, step.Move); err != nil {
			return fmt.Errorf("step %d move %q: %w", i, step.Move, err)
		}
		if step.Reply == "" {
			if i != len(p.Solution)-1 {
				return fmt.Errorf("step %d missing reply", i)
			}
			continue
		}
		if err := applySAN(game, step.Reply); err != nil {
			return fmt.Errorf("step %d reply %q: %w", i, step.Reply, err)
		}
	}
	return nil
}

// ByDifficulty returns the puzzles of one difficulty (shared slice, treat as
// read-only).
func (c *Catalog) ByDifficulty(d Difficulty) []Puzzle {
	return c.byDifficulty[d]
}

// PickRandom draws a uniform puzzle of the given difficulty, excluding the
// puzzle with excludeID when the pool has an alternative.
func (c *Catalog) PickRandom(r *rand.Rand, d Difficulty, excludeID string) (Puzzle, error) {
	pool := c.byDifficulty[d]
	if len(pool) == 0 {
		return Puzzle{}, fmt.Errorf("no puzzles at difficulty %s", d)
	}
	if len(pool) > 1 && excludeID != "" {
		filtered := make([]Puzzle, 0, len(pool))
		for _, p := range pool {
			if p.ID != excludeID {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	return pool[r.Intn(len(pool))], nil
}
