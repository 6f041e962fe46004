package progress

import "time"

// Mode separates the three rating tracks.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeDaily  Mode = "daily"
	ModePuzzle Mode = "puzzle"
)

// Result is a finished game's outcome from White's perspective.
type Result string

const (
	ResultWhite Result = "white"
	ResultBlack Result = "black"
	ResultDraw  Result = "draw"
)

// PlayerColor is the human's side in a game.
type PlayerColor string

const (
	ColorWhite PlayerColor = "white"
	ColorBlack PlayerColor = "black"
)

// GameRecord is an immutable completed-game summary. Created exactly once by
// RecordGame and never mutated afterward.
type GameRecord struct {
	ID              string      `json:"id"`
	Mode            Mode        `json:"mode"`
	Opponent        string      `json:"opponent"`
	Moves           []string    `json:"moves"`
	StartedAt       time.Time   `json:"started_at"`
	FinishedAt      time.Time   `json:"finished_at"`
	Result          Result      `json:"result"`
	PlayerColor     PlayerColor `json:"player_color"`
	Accuracy        int         `json:"accuracy"`
	DurationSeconds int         `json:"duration_seconds"`
	Tags            []string    `json:"tags,omitempty"`
}

// DailyGame is a long-lived correspondence game. Mutated through patch-merge
// updates until it reaches a terminal state, then archived as a GameRecord.
type DailyGame struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Opponent         string      `json:"opponent"`
	FEN              string      `json:"fen"`
	Moves            []string    `json:"moves"`
	LastUpdated      time.Time   `json:"last_updated"`
	ColorToMove      string      `json:"color_to_move"` // "w" | "b"
	PlayerColor      PlayerColor `json:"player_color"`
	RemindersEnabled bool        `json:"reminders_enabled"`
}

// DailyGamePatch is a merge-patch for a DailyGame; nil fields are untouched
// and later patch fields always win.
type DailyGamePatch struct {
	FEN              *string    `json:"fen,omitempty"`
	Moves            *[]string  `json:"moves,omitempty"`
	ColorToMove      *string    `json:"color_to_move,omitempty"`
	LastUpdated      *time.Time `json:"last_updated,omitempty"`
	RemindersEnabled *bool      `json:"reminders_enabled,omitempty"`
}

// PuzzleHistory tracks cumulative results for one puzzle id.
type PuzzleHistory struct {
	ID              string     `json:"id"`
	Attempts        int        `json:"attempts"`
	Solved          bool       `json:"solved"`
	BestTime        *int       `json:"best_time"` // seconds; monotonically non-increasing once set
	LastAttemptAt   *time.Time `json:"last_attempt_at"`
	AccuracyHistory []int      `json:"accuracy_history"`
}

// PuzzleAttempt is one terminal puzzle outcome handed to the recorder.
type PuzzleAttempt struct {
	PuzzleID  string
	Solved    bool
	TimeTaken int // seconds
	Accuracy  int
}

// Snapshot is a read-only copy of the full progress state.
type Snapshot struct {
	LiveRating    int             `json:"live_rating"`
	DailyRating   int             `json:"daily_rating"`
	PuzzleRating  int             `json:"puzzle_rating"`
	LiveStreak    int             `json:"live_streak"`
	DailyStreak   int             `json:"daily_streak"`
	PuzzleStreak  int             `json:"puzzle_streak"`
	Games         []GameRecord    `json:"games"`
	DailyGames    []DailyGame     `json:"daily_games"`
	PuzzleHistory []PuzzleHistory `json:"puzzle_history"`
}
