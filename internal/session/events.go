package session

import (
	"errors"

	"github.com/deskchess/deskchess/internal/board"
)

var (
	// ErrGameOver rejects moves and undo once the session is terminal.
	ErrGameOver = errors.New("game is over")
	// ErrNoMoveToUndo marks an undo with empty history. The session
	// state is unchanged; callers usually swallow it.
	ErrNoMoveToUndo = errors.New("no move to undo")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// MoveResult is the reply to one move attempt. When the move is
// rejected, Snapback tells the view to return the piece to its source
// square; nothing else changed.
type MoveResult struct {
	Accepted bool
	Snapback bool
	Err      error
	State    Snapshot
}

// Snapshot is a consistent copy of the session's derived state, taken
// on the event loop.
type Snapshot struct {
	ID             string
	FEN            string
	Status         Status
	StatusText     string
	WhiteMoves     []string
	BlackMoves     []string
	MovesUCI       []string
	WhiteClock     int
	BlackClock     int
	WhiteClockText string
	BlackClockText string
	Running        Side
	TimeControl    int
}

// Events consumed by the session loop. Gesture callbacks and the timer
// are explicit messages so their interleaving is a testable ordering
// rule rather than implicit callback scheduling.
type (
	moveAttempted struct {
		from, to string
		reply    chan MoveResult
	}

	// tickElapsed carries the clock epoch it was scheduled under;
	// stale epochs are dropped. reply is nil for ticker-generated
	// events and non-nil when a test drives the clock synchronously.
	tickElapsed struct {
		epoch uint64
		reply chan struct{}
	}

	undoRequested struct {
		reply chan error
	}

	resetRequested struct {
		seconds int
		reply   chan struct{}
	}

	snapshotRequested struct {
		reply chan Snapshot
	}

	viewAttached struct {
		view  board.View
		reply chan struct{}
	}
)
