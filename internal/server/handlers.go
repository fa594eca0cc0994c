package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/deskchess/deskchess/internal/board"
	"github.com/deskchess/deskchess/internal/session"
	"github.com/deskchess/deskchess/pkg/deskdto"
)

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req deskdto.CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	sess, err := s.mgr.Create(r.Context(), req.TimeControl)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time_control", err.Error())
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toSessionState(snap))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.mgr.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, deskdto.SessionList{Sessions: ids})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSessionState(snap))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	var req deskdto.MoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res, err := sess.AttemptMove(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	state := toSessionState(res.State)
	resp := deskdto.MoveResponse{
		Accepted: res.Accepted,
		Snapback: res.Snapback,
		State:    &state,
	}
	if res.Err != nil {
		resp.Reason = res.Err.Error()
	}
	// A rejected move is still a well-formed exchange; the response
	// body says what happened.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	if err := sess.Undo(r.Context()); err != nil {
		switch {
		case errors.Is(err, session.ErrNoMoveToUndo):
			writeError(w, http.StatusConflict, "no_move_to_undo", err.Error())
		case errors.Is(err, session.ErrGameOver):
			writeError(w, http.StatusConflict, "game_over", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSessionState(snap))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	var req deskdto.ResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	seconds := req.TimeControl
	if seconds > 0 && !s.mgr.Allows(seconds) {
		writeError(w, http.StatusBadRequest, "invalid_time_control",
			"time control "+strconv.Itoa(seconds)+" not offered")
		return
	}
	if seconds <= 0 {
		snap, err := sess.Snapshot(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		seconds = snap.TimeControl
	}
	if err := sess.Reset(r.Context(), seconds); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSessionState(snap))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mgr.Remove(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r, r.URL.Query().Get("session"))
	if !ok {
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	size := 64
	if raw := r.URL.Query().Get("square"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 16 && n <= 256 {
			size = n
		}
	}
	png, err := board.RenderPNG(snap.FEN, size)
	if err != nil {
		s.logger.Error("render board failed",
			zap.String("session_id", snap.ID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, id string) (*session.Session, bool) {
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "missing session id")
		return nil, false
	}
	sess, err := s.mgr.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", "session "+id+" not found")
		} else {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return nil, false
	}
	return sess, true
}

func toSessionState(snap session.Snapshot) deskdto.SessionState {
	return deskdto.SessionState{
		ID:          snap.ID,
		FEN:         snap.FEN,
		Status:      string(snap.Status.Kind),
		StatusSide:  string(snap.Status.Side),
		StatusText:  snap.StatusText,
		WhiteMoves:  snap.WhiteMoves,
		BlackMoves:  snap.BlackMoves,
		WhiteClock:  snap.WhiteClockText,
		BlackClock:  snap.BlackClockText,
		Running:     string(snap.Running),
		TimeControl: snap.TimeControl,
		GameOver:    snap.Status.Terminal(),
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, apiCode, msg string) {
	writeJSON(w, code, deskdto.APIError{Code: apiCode, Message: msg})
}
