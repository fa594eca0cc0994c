// Package deskdto holds the JSON shapes exchanged over the desk API.
package deskdto

// SessionState is the API view of one session.
type SessionState struct {
	ID          string   `json:"id"`
	FEN         string   `json:"fen"`
	Status      string   `json:"status"`
	StatusSide  string   `json:"status_side,omitempty"`
	StatusText  string   `json:"status_text"`
	WhiteMoves  []string `json:"white_moves"`
	BlackMoves  []string `json:"black_moves"`
	WhiteClock  string   `json:"white_clock"`
	BlackClock  string   `json:"black_clock"`
	Running     string   `json:"running,omitempty"`
	TimeControl int      `json:"time_control"`
	GameOver    bool     `json:"game_over"`
}

// SessionList enumerates the live session ids.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

// CreateSessionRequest selects the per-side budget in whole seconds;
// zero picks the server default.
type CreateSessionRequest struct {
	TimeControl int `json:"time_control"`
}

// ResetRequest restarts a session, optionally switching the time
// control; zero keeps the current one.
type ResetRequest struct {
	TimeControl int `json:"time_control"`
}
