package session

import (
	"fmt"
	"strings"

	"github.com/deskchess/deskchess/internal/rules"
)

// StatusKind enumerates the derived game statuses. Exactly one holds at
// any time.
type StatusKind string

const (
	StatusToMove        StatusKind = "to_move"
	StatusToMoveInCheck StatusKind = "to_move_in_check"
	StatusCheckmate     StatusKind = "checkmate"
	StatusDraw          StatusKind = "draw"
	StatusTimeExpired   StatusKind = "time_expired"
)

// Status is recomputed from the position and the clock after every
// mutation, never patched incrementally. Side means: the mover for
// ToMove and ToMoveInCheck, the winner for Checkmate, the loser for
// TimeExpired, and is empty for Draw.
type Status struct {
	Kind StatusKind `json:"kind"`
	Side Side       `json:"side,omitempty"`
}

// Terminal reports whether no further moves are accepted.
func (s Status) Terminal() bool {
	switch s.Kind {
	case StatusCheckmate, StatusDraw, StatusTimeExpired:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s.Kind {
	case StatusToMove:
		return fmt.Sprintf("%s to move", titleSide(s.Side))
	case StatusToMoveInCheck:
		return fmt.Sprintf("%s to move, in check", titleSide(s.Side))
	case StatusCheckmate:
		return fmt.Sprintf("checkmate, %s wins", titleSide(s.Side))
	case StatusDraw:
		return "draw"
	case StatusTimeExpired:
		return fmt.Sprintf("%s ran out of time", titleSide(s.Side))
	}
	return string(s.Kind)
}

func titleSide(s Side) string {
	if s == "" {
		return "?"
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// deriveStatus recomputes the status from rules facts and the clock.
// Rules facts about the committed position outrank a clock expiring on
// the same tick: a mate or draw already on the board wins the race.
func deriveStatus(eng rules.Engine, clk *Clock) Status {
	toMove := sideFrom(eng.SideToMove())
	switch {
	case eng.IsCheckmate():
		return Status{Kind: StatusCheckmate, Side: toMove.Opponent()}
	case eng.IsDraw():
		return Status{Kind: StatusDraw}
	}
	if side, ok := clk.Expired(); ok {
		return Status{Kind: StatusTimeExpired, Side: side}
	}
	if eng.InCheck() {
		return Status{Kind: StatusToMoveInCheck, Side: toMove}
	}
	return Status{Kind: StatusToMove, Side: toMove}
}

func sideFrom(s string) Side {
	if s == string(Black) {
		return Black
	}
	return White
}

// splitMoves partitions the ordered move history by index parity:
// even indexes are White's moves, odd indexes Black's.
func splitMoves(history []string) (white, black []string) {
	white = make([]string, 0, (len(history)+1)/2)
	black = make([]string, 0, len(history)/2)
	for i, mv := range history {
		if i%2 == 0 {
			white = append(white, mv)
		} else {
			black = append(black, mv)
		}
	}
	return white, black
}

// FormatClock renders whole seconds as zero-padded MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
