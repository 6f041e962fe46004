// Package traindto holds the wire types of the training gateway.
package traindto

type LiveStartRequest struct {
	Persona     string `json:"persona"`
	Color       string `json:"color"`
	TimeControl string `json:"time_control"`
}

type MoveRequest struct {
	GameID string `json:"game_id,omitempty"`
	Move   string `json:"move"`
}

type DailyCreateRequest struct {
	Persona string `json:"persona"`
	Color   string `json:"color"`
}

type DifficultyRequest struct {
	Difficulty string `json:"difficulty"`
}

// Rejection is the silent-refusal payload: user errors answer 200 with
// ok=false instead of a 5xx.
type Rejection struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// Envelope wraps a successful payload.
type Envelope struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}
