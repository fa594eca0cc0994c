// Package rules wraps a chess rules library behind the narrow contract
// the session core consumes: apply a move, ask about terminal facts,
// undo, and read the notated history. The session never constructs a
// position by hand; every Position it sees was produced here.
package rules

import "errors"

// Position is an opaque FEN snapshot of the board, side to move, and
// special-move rights.
type Position string

// ErrIllegalMove is returned when the rules library rejects a candidate
// move. The caller's state is unchanged.
var ErrIllegalMove = errors.New("illegal move")

// Engine validates and applies moves for a single game.
// Implementations are not safe for concurrent use; the session serializes
// all calls on its event loop.
type Engine interface {
	// ApplyMove applies the move from source to target square (for
	// example "e2", "e4"). Pawn promotion is resolved to a queen.
	ApplyMove(from, to string) (Position, error)

	// InCheck reports whether the side to move is currently in check.
	InCheck() bool

	// IsCheckmate reports whether the side to move has been mated.
	IsCheckmate() bool

	// IsDraw reports whether the game ended in a draw (stalemate,
	// insufficient material, or an automatic draw rule).
	IsDraw() bool

	// UndoLast pops the most recent move and returns the restored
	// position. The second result is false when there is nothing to
	// undo; the position is then unchanged.
	UndoLast() (Position, bool)

	// History returns the applied moves in algebraic notation, oldest
	// first.
	History() []string

	// MovesUCI returns the applied moves in UCI notation, oldest first.
	MovesUCI() []string

	// SideToMove returns "white" or "black".
	SideToMove() string

	// Reset discards all state and returns the starting position.
	Reset() Position

	// Current returns the current position.
	Current() Position
}
