package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/deskchess/deskchess/internal/board"
	"github.com/deskchess/deskchess/internal/session"
)

// handleWS upgrades the connection and wires it to a session as its
// interactive board. Inbound frames carry gestures (move, undo, reset);
// outbound frames carry positions, status updates, and snapbacks.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "missing session id")
		return
	}
	sess, err := s.mgr.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "session "+id+" not found")
		} else {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	view := board.NewSocketView(conn)
	logger := s.logger.With(zap.String("session_id", id))

	ctx := r.Context()
	if err := sess.AttachView(ctx, view); err != nil {
		logger.Warn("attach view failed", zap.Error(err))
		_ = view.Close()
		return
	}
	logger.Info("board connected")

	s.readLoop(ctx, sess, view, logger)

	_ = view.Close()
	logger.Info("board disconnected")
}

func (s *Server) readLoop(ctx context.Context, sess *session.Session, view *board.SocketView, logger *zap.Logger) {
	for {
		frame, err := view.ReadFrame(ctx)
		if err != nil {
			return
		}

		switch frame.Type {
		case "move":
			res, err := sess.AttemptMove(ctx, frame.From, frame.To)
			if err != nil {
				return
			}
			if res.Snapback {
				if err := view.Snapback(frame.From); err != nil {
					logger.Warn("snapback write failed", zap.Error(err))
				}
			}
		case "undo":
			if err := sess.Undo(ctx); err != nil {
				if errors.Is(err, session.ErrSessionClosed) {
					return
				}
				// Empty history or a finished game; the board keeps its
				// current state.
				logger.Debug("undo rejected", zap.Error(err))
			}
		case "reset":
			seconds := frame.Seconds
			if seconds > 0 && !s.mgr.Allows(seconds) {
				logger.Debug("reset rejected", zap.Int("time_control", seconds))
				continue
			}
			if seconds <= 0 {
				snap, err := sess.Snapshot(ctx)
				if err != nil {
					return
				}
				seconds = snap.TimeControl
			}
			if err := sess.Reset(ctx, seconds); err != nil {
				return
			}
		default:
			logger.Debug("unknown frame", zap.String("type", frame.Type))
		}
	}
}
