package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// chessEngine implements Engine on corentings/chess. The UCI move list
// is the single source of truth: undo trims it and replays from the
// starting position, which keeps the library's own legality tracking
// authoritative for the restored state.
type chessEngine struct {
	game  *nchess.Game
	moves []string
}

// NewEngine returns an engine at the standard starting position.
func NewEngine() Engine {
	return &chessEngine{game: nchess.NewGame()}
}

// NewEngineFromMoves replays a recorded UCI move list, oldest first.
// Used when re-adopting a live session from the registry.
func NewEngineFromMoves(moves []string) (Engine, error) {
	e := &chessEngine{game: nchess.NewGame()}
	for _, mv := range moves {
		game, err := replay(append(e.moves, mv))
		if err != nil {
			return nil, fmt.Errorf("replay move %s: %w", mv, err)
		}
		e.game = game
		e.moves = append(e.moves, strings.ToLower(strings.TrimSpace(mv)))
	}
	return e, nil
}

func (e *chessEngine) ApplyMove(from, to string) (Position, error) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if len(from) != 2 || len(to) != 2 {
		return "", ErrIllegalMove
	}

	notation := nchess.UCINotation{}
	pos := e.game.Position()

	uci := from + to
	if mv, err := notation.Decode(pos, uci); err == nil {
		if err := e.game.Move(mv, nil); err == nil {
			e.moves = append(e.moves, uci)
			return Position(e.game.FEN()), nil
		}
	}

	// A bare from-to decodes fine on a promotion square but carries no
	// promotion piece, so the game rejects it. Promotion is always
	// resolved to a queen; retry with the suffix.
	uci += "q"
	mv, err := notation.Decode(pos, uci)
	if err != nil {
		return "", ErrIllegalMove
	}
	if err := e.game.Move(mv, nil); err != nil {
		return "", ErrIllegalMove
	}
	e.moves = append(e.moves, uci)
	return Position(e.game.FEN()), nil
}

func (e *chessEngine) InCheck() bool {
	moves := e.game.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

func (e *chessEngine) IsCheckmate() bool {
	return e.game.Outcome() != nchess.NoOutcome && e.game.Method() == nchess.Checkmate
}

func (e *chessEngine) IsDraw() bool {
	return e.game.Outcome() == nchess.Draw
}

func (e *chessEngine) UndoLast() (Position, bool) {
	if len(e.moves) == 0 {
		return Position(e.game.FEN()), false
	}
	trimmed := e.moves[:len(e.moves)-1]
	game, err := replay(trimmed)
	if err != nil {
		// Moves were validated when applied, so a replay failure means
		// internal corruption; keep the current state.
		return Position(e.game.FEN()), false
	}
	e.game = game
	e.moves = trimmed
	return Position(e.game.FEN()), true
}

func (e *chessEngine) History() []string {
	positions := e.game.Positions()
	moves := e.game.Moves()
	notation := nchess.AlgebraicNotation{}
	san := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i < len(positions) {
			san = append(san, notation.Encode(positions[i], mv))
		}
	}
	return san
}

func (e *chessEngine) MovesUCI() []string {
	return append([]string(nil), e.moves...)
}

func (e *chessEngine) SideToMove() string {
	if e.game.Position().Turn() == nchess.White {
		return "white"
	}
	return "black"
}

func (e *chessEngine) Reset() Position {
	e.game = nchess.NewGame()
	e.moves = nil
	return Position(e.game.FEN())
}

func (e *chessEngine) Current() Position {
	return Position(e.game.FEN())
}

func replay(moves []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, mv := range moves {
		uci := strings.ToLower(strings.TrimSpace(mv))
		m, err := notation.Decode(game.Position(), uci)
		if err == nil {
			err = game.Move(m, nil)
		}
		if err != nil && !strings.HasSuffix(uci, "q") {
			// Recorded promotions carry the q suffix, but accept a bare
			// from-to onto the last rank the same way ApplyMove does.
			if m, err = notation.Decode(game.Position(), uci+"q"); err == nil {
				err = game.Move(m, nil)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return game, nil
}
