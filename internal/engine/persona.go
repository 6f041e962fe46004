package engine

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultProfiles embed.FS

// Style identifies an opponent behavior profile. The set is closed: profiles
// can be re-tuned via an override file but new styles cannot be added.
type Style string

const (
	StyleCasual   Style = "casual"
	StyleBalanced Style = "balanced"
	StyleTactical Style = "tactical"
)

// Weights are the scoring coefficients for one persona. Capture/check/trade
// reward forcing and material-gaining moves, HangingPenalty scales with the
// value of a piece left en prise, ForcingRelief is the fraction of that
// penalty waived when the move itself gives check, Noise is the amplitude of
// per-move random jitter.
type Weights struct {
	Capture        float64 `yaml:"capture"`
	Check          float64 `yaml:"check"`
	Trade          float64 `yaml:"trade"`
	HangingPenalty float64 `yaml:"hanging_penalty"`
	ForcingRelief  float64 `yaml:"forcing_relief"`
	Development    float64 `yaml:"development"`
	KingSafety     float64 `yaml:"king_safety"`
	Noise          float64 `yaml:"noise"`
}

// Persona is an immutable opponent profile selected per game.
type Persona struct {
	ID      Style
	Label   string  `yaml:"label"`
	Cadence string  `yaml:"cadence"`
	Style   string  `yaml:"style"`
	Weights Weights `yaml:"weights"`
}

type profileFile struct {
	Profiles map[string]Persona `yaml:"profiles"`
}

// Styles lists the closed style set in presentation order.
func Styles() []Style { return []Style{StyleCasual, StyleBalanced, StyleTactical} }

// ParseStyle normalizes user input into a Style.
func ParseStyle(raw string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(raw))) {
	case StyleCasual:
		return StyleCasual, nil
	case StyleBalanced:
		return StyleBalanced, nil
	case StyleTactical:
		return StyleTactical, nil
	default:
		return "", fmt.Errorf("unknown persona style %q", raw)
	}
}

func loadEmbeddedProfiles() (map[Style]Persona, error) {
	raw, err := fs.ReadFile(defaultProfiles, "personas.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded personas: %w", err)
	}
	return parseProfiles(raw)
}

func parseProfiles(raw []byte) (map[Style]Persona, error) {
	var file profileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}
	out := make(map[Style]Persona, len(file.Profiles))
	for id, p := range file.Profiles {
		style, err := ParseStyle(id)
		if err != nil {
			return nil, err
		}
		p.ID = style
		if err := validatePersona(p); err != nil {
			return nil, fmt.Errorf("persona %s: %w", id, err)
		}
		out[style] = p
	}
	for _, required := range Styles() {
		if _, ok := out[required]; !ok {
			return nil, fmt.Errorf("persona %s missing from profile set", required)
		}
	}
	return out, nil
}

// applyOverrideFile re-tunes existing personas from a YAML file on disk.
// Text fields replace individually; weights replace as a whole block when
// the override sets any of them.
func applyOverrideFile(base map[Style]Persona, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read persona override: %w", err)
	}
	var file profileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse persona override: %w", err)
	}
	for id, override := range file.Profiles {
		style, err := ParseStyle(id)
		if err != nil {
			return err
		}
		merged := base[style]
		if strings.TrimSpace(override.Label) != "" {
			merged.Label = override.Label
		}
		if strings.TrimSpace(override.Cadence) != "" {
			merged.Cadence = override.Cadence
		}
		if strings.TrimSpace(override.Style) != "" {
			merged.Style = override.Style
		}
		merged.Weights = mergeWeights(merged.Weights, override.Weights)
		if err := validatePersona(merged); err != nil {
			return fmt.Errorf("persona override %s: %w", id, err)
		}
		base[style] = merged
	}
	return nil
}

func mergeWeights(base, override Weights) Weights {
	if override != (Weights{}) {
		return override
	}
	return base
}

func validatePersona(p Persona) error {
	if strings.TrimSpace(p.Label) == "" {
		return fmt.Errorf("label required")
	}
	w := p.Weights
	for _, v := range []float64{w.Capture, w.Check, w.Trade, w.HangingPenalty, w.ForcingRelief, w.Development, w.KingSafety, w.Noise} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weights must be finite")
		}
	}
	if w.Noise < 0 {
		return fmt.Errorf("noise must be non-negative")
	}
	if w.ForcingRelief < 0 || w.ForcingRelief > 1 {
		return fmt.Errorf("forcing_relief must be within [0,1]")
	}
	return nil
}
