// Package board defines the rendering surface the session talks to and
// the adapters behind it: a websocket view for interactive boards and a
// PNG renderer for static snapshots. The surface is write-only from the
// core's perspective; the only thing it reports back is a move attempt,
// and the only trusted fields of that are the source and target squares.
package board

// View displays a position. Implementations must tolerate SetPosition
// being called from the session's event loop goroutine.
type View interface {
	SetPosition(fen string) error
	Close() error
}

// Update carries the derived display state alongside the position:
// status line, clock text, and the move lists split by side.
type Update struct {
	FEN        string   `json:"fen"`
	StatusText string   `json:"status_text"`
	WhiteClock string   `json:"white_clock"`
	BlackClock string   `json:"black_clock"`
	WhiteMoves []string `json:"white_moves"`
	BlackMoves []string `json:"black_moves"`
	GameOver   bool     `json:"game_over"`
}

// StatusDisplay is implemented by views that also show clocks, status
// text, and move lists. The session feature-detects it.
type StatusDisplay interface {
	ShowUpdate(u Update) error
}
