package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deskchess/deskchess/internal/board"
)

// fakeView records everything the session pushes at it.
type fakeView struct {
	mu        sync.Mutex
	positions []string
	updates   []board.Update
	closed    bool
}

func (v *fakeView) SetPosition(fen string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.positions = append(v.positions, fen)
	return nil
}

func (v *fakeView) ShowUpdate(u board.Update) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.updates = append(v.updates, u)
	return nil
}

func (v *fakeView) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

func (v *fakeView) lastPosition() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.positions) == 0 {
		return ""
	}
	return v.positions[len(v.positions)-1]
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustMove(t *testing.T, s *Session, from, to string) MoveResult {
	t.Helper()
	res, err := s.AttemptMove(context.Background(), from, to)
	if err != nil {
		t.Fatalf("AttemptMove(%s, %s): %v", from, to, err)
	}
	if !res.Accepted {
		t.Fatalf("AttemptMove(%s, %s) rejected: %v", from, to, res.Err)
	}
	return res
}

func playScholarsMate(t *testing.T, s *Session) Snapshot {
	t.Helper()
	moves := [][2]string{
		{"e2", "e4"}, {"e7", "e5"},
		{"f1", "c4"}, {"b8", "c6"},
		{"d1", "h5"}, {"g8", "f6"},
	}
	for _, mv := range moves {
		mustMove(t, s, mv[0], mv[1])
	}
	return mustMove(t, s, "h5", "f7").State
}

func TestNewSessionInitialState(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Status.Kind != StatusToMove || snap.Status.Side != White {
		t.Fatalf("initial status = %+v", snap.Status)
	}
	if snap.WhiteClockText != "10:00" || snap.BlackClockText != "10:00" {
		t.Fatalf("initial clocks = %s / %s", snap.WhiteClockText, snap.BlackClockText)
	}
	if snap.Running != White {
		t.Fatalf("running side = %q, want white", snap.Running)
	}
	if len(snap.WhiteMoves) != 0 || len(snap.BlackMoves) != 0 {
		t.Fatal("fresh session has recorded moves")
	}
	if !strings.HasPrefix(snap.FEN, "rnbqkbnr/pppppppp") {
		t.Fatalf("initial FEN = %s", snap.FEN)
	}
}

func TestMoveSwitchesRunningClock(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	res := mustMove(t, s, "e2", "e4")
	if res.State.Running != Black {
		t.Fatalf("running after white's move = %q, want black", res.State.Running)
	}
	if res.State.Status.Kind != StatusToMove || res.State.Status.Side != Black {
		t.Fatalf("status = %+v, want black to move", res.State.Status)
	}

	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if snap.WhiteClock != 600 || snap.BlackClock != 599 {
		t.Fatalf("clocks = %d/%d, want 600/599", snap.WhiteClock, snap.BlackClock)
	}
}

func TestIllegalMoveIsNoOp(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	before, _ := s.Snapshot(ctx)
	res, err := s.AttemptMove(ctx, "e2", "e5")
	if err != nil {
		t.Fatalf("AttemptMove: %v", err)
	}
	if res.Accepted || !res.Snapback {
		t.Fatalf("result = %+v, want rejected with snapback", res)
	}
	after, _ := s.Snapshot(ctx)
	if after.FEN != before.FEN || after.Running != before.Running {
		t.Fatal("rejected move changed the session")
	}
	if len(after.MovesUCI) != 0 {
		t.Fatal("rejected move was recorded")
	}
}

func TestScholarsMateEndsSession(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	snap := playScholarsMate(t, s)
	if snap.Status.Kind != StatusCheckmate || snap.Status.Side != White {
		t.Fatalf("status = %+v, want checkmate by White", snap.Status)
	}
	if snap.Running != "" {
		t.Fatalf("clock still running after mate: %q", snap.Running)
	}

	// Clocks are frozen: ticks no longer drain anything.
	whiteBefore, blackBefore := snap.WhiteClock, snap.BlackClock
	for i := 0; i < 3; i++ {
		if err := s.Tick(ctx); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	snap, _ = s.Snapshot(ctx)
	if snap.WhiteClock != whiteBefore || snap.BlackClock != blackBefore {
		t.Fatal("clock moved after the game ended")
	}

	// Further moves bounce.
	res, err := s.AttemptMove(ctx, "e8", "f7")
	if err != nil {
		t.Fatalf("AttemptMove: %v", err)
	}
	if res.Accepted || !res.Snapback || !errors.Is(res.Err, ErrGameOver) {
		t.Fatalf("post-mate move result = %+v", res)
	}
}

func TestTimeExpiry(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Tick(ctx); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	snap, _ := s.Snapshot(ctx)
	if snap.Status.Kind != StatusTimeExpired || snap.Status.Side != White {
		t.Fatalf("status = %+v, want white time expired", snap.Status)
	}
	if snap.WhiteClockText != "00:00" {
		t.Fatalf("white clock = %s, want 00:00", snap.WhiteClockText)
	}

	res, err := s.AttemptMove(ctx, "e2", "e4")
	if err != nil {
		t.Fatalf("AttemptMove: %v", err)
	}
	if res.Accepted || !errors.Is(res.Err, ErrGameOver) {
		t.Fatalf("move after flag fall = %+v", res)
	}

	// A game decided on time stays decided: no undo back into it.
	if err := s.Undo(ctx); !errors.Is(err, ErrGameOver) {
		t.Fatalf("Undo after flag fall = %v, want ErrGameOver", err)
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	if err := s.Undo(context.Background()); !errors.Is(err, ErrNoMoveToUndo) {
		t.Fatalf("Undo = %v, want ErrNoMoveToUndo", err)
	}
}

func TestUndoResynchronizesClock(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	mustMove(t, s, "e2", "e4")
	if err := s.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	snap, _ := s.Snapshot(ctx)
	if snap.Running != White {
		t.Fatalf("running after undo = %q, want white", snap.Running)
	}
	if snap.Status.Kind != StatusToMove || snap.Status.Side != White {
		t.Fatalf("status after undo = %+v", snap.Status)
	}
	if len(snap.MovesUCI) != 0 {
		t.Fatalf("history after undo = %v", snap.MovesUCI)
	}
}

func TestUndoMatingMoveRearmsClock(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	playScholarsMate(t, s)
	if err := s.Undo(ctx); err != nil {
		t.Fatalf("Undo of mating move: %v", err)
	}

	snap, _ := s.Snapshot(ctx)
	if snap.Status.Terminal() {
		t.Fatalf("still terminal after undo: %+v", snap.Status)
	}
	if snap.Running != White {
		t.Fatalf("running after undo = %q, want white", snap.Running)
	}

	// The game is playable again.
	mustMove(t, s, "h5", "e5")
}

func TestResetRestoresInitialConditions(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	mustMove(t, s, "e2", "e4")
	mustMove(t, s, "e7", "e5")
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if err := s.Reset(ctx, 600); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if len(snap.MovesUCI) != 0 {
		t.Fatal("reset kept history")
	}
	if snap.WhiteClock != 600 || snap.BlackClock != 600 {
		t.Fatalf("clocks after reset = %d/%d", snap.WhiteClock, snap.BlackClock)
	}
	if snap.Status.Kind != StatusToMove || snap.Status.Side != White {
		t.Fatalf("status after reset = %+v", snap.Status)
	}
	if snap.Running != White {
		t.Fatalf("running after reset = %q, want white", snap.Running)
	}
}

func TestResetSwitchesTimeControl(t *testing.T) {
	// Selecting a new budget is reset with a different number; the
	// outcome must match a fresh session at that control.
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	mustMove(t, s, "e2", "e4")
	if err := s.Reset(ctx, 300); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	snap, _ := s.Snapshot(ctx)
	fresh := newTestSession(t, Options{TimeControl: 300})
	want, _ := fresh.Snapshot(ctx)

	if snap.FEN != want.FEN {
		t.Fatalf("FEN = %s, want %s", snap.FEN, want.FEN)
	}
	if snap.TimeControl != 300 || snap.WhiteClockText != "05:00" || snap.BlackClockText != "05:00" {
		t.Fatalf("clocks = %s/%s tc=%d", snap.WhiteClockText, snap.BlackClockText, snap.TimeControl)
	}
	if snap.Status != want.Status || snap.Running != want.Running {
		t.Fatalf("status/running = %+v/%q, want %+v/%q", snap.Status, snap.Running, want.Status, want.Running)
	}
}

func TestResetRevivesExpiredSession(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 1})
	ctx := context.Background()

	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if snap.Status.Kind != StatusTimeExpired {
		t.Fatalf("setup: status = %+v", snap.Status)
	}

	if err := s.Reset(ctx, 60); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	snap, _ = s.Snapshot(ctx)
	if snap.Status.Terminal() {
		t.Fatalf("still terminal after reset: %+v", snap.Status)
	}
	mustMove(t, s, "e2", "e4")
}

func TestStaleEpochTickIsDiscarded(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	stale := s.tickEpoch.Load()
	mustMove(t, s, "e2", "e4") // reconfigures the clock, bumping the epoch

	reply := make(chan struct{}, 1)
	s.events <- tickElapsed{epoch: stale, reply: reply}
	<-reply

	snap, _ := s.Snapshot(ctx)
	if snap.WhiteClock != 600 || snap.BlackClock != 600 {
		t.Fatalf("stale tick drained a clock: %d/%d", snap.WhiteClock, snap.BlackClock)
	}

	// A current-epoch tick still lands.
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	snap, _ = s.Snapshot(ctx)
	if snap.BlackClock != 599 {
		t.Fatalf("live tick dropped: black = %d", snap.BlackClock)
	}
}

func TestTickScheduledBeforeResetIsDiscarded(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	stale := s.tickEpoch.Load()
	if err := s.Reset(ctx, 60); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	reply := make(chan struct{}, 1)
	s.events <- tickElapsed{epoch: stale, reply: reply}
	<-reply

	snap, _ := s.Snapshot(ctx)
	if snap.WhiteClock != 60 || snap.BlackClock != 60 {
		t.Fatalf("pre-reset tick drained a clock: %d/%d", snap.WhiteClock, snap.BlackClock)
	}
}

func TestViewReceivesPositions(t *testing.T) {
	view := &fakeView{}
	s := newTestSession(t, Options{TimeControl: 600, View: view})

	res := mustMove(t, s, "e2", "e4")
	if got := view.lastPosition(); got != res.State.FEN {
		t.Fatalf("view position = %s, want %s", got, res.State.FEN)
	}

	view.mu.Lock()
	updates := len(view.updates)
	view.mu.Unlock()
	if updates == 0 {
		t.Fatal("no status updates pushed to the view")
	}

	s.Close()
	deadline := time.Now().Add(time.Second)
	for {
		view.mu.Lock()
		closed := view.closed
		view.mu.Unlock()
		if closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("view not closed after session Close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAttachViewPushesCurrentPosition(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	ctx := context.Background()

	res := mustMove(t, s, "e2", "e4")

	view := &fakeView{}
	if err := s.AttachView(ctx, view); err != nil {
		t.Fatalf("AttachView: %v", err)
	}
	if got := view.lastPosition(); got != res.State.FEN {
		t.Fatalf("attached view position = %s, want %s", got, res.State.FEN)
	}
}

func TestAttachViewClosesReplacedView(t *testing.T) {
	first := &fakeView{}
	s := newTestSession(t, Options{TimeControl: 600, View: first})
	ctx := context.Background()

	second := &fakeView{}
	if err := s.AttachView(ctx, second); err != nil {
		t.Fatalf("AttachView: %v", err)
	}

	first.mu.Lock()
	closed := first.closed
	first.mu.Unlock()
	if !closed {
		t.Fatal("replaced view left open")
	}

	res := mustMove(t, s, "e2", "e4")
	if got := second.lastPosition(); got != res.State.FEN {
		t.Fatalf("new view position = %s, want %s", got, res.State.FEN)
	}
	first.mu.Lock()
	stalePositions := len(first.positions)
	first.mu.Unlock()
	if stalePositions != 1 {
		t.Fatalf("replaced view kept receiving positions: %d", stalePositions)
	}
}

func TestRestoreFromRecordedMoves(t *testing.T) {
	s := newTestSession(t, Options{
		TimeControl:    600,
		Moves:          []string{"e2e4", "e7e5", "g1f3"},
		RemainingWhite: 540,
		RemainingBlack: 580,
	})

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.WhiteClock != 540 || snap.BlackClock != 580 {
		t.Fatalf("restored clocks = %d/%d, want 540/580", snap.WhiteClock, snap.BlackClock)
	}
	if snap.Running != Black {
		t.Fatalf("running = %q, want black", snap.Running)
	}
	if len(snap.WhiteMoves) != 2 || len(snap.BlackMoves) != 1 {
		t.Fatalf("move lists = %v / %v", snap.WhiteMoves, snap.BlackMoves)
	}
}

func TestOnChangeObservesCommits(t *testing.T) {
	var mu sync.Mutex
	var seen []StatusKind
	s := newTestSession(t, Options{
		TimeControl: 600,
		OnChange: func(snap Snapshot) {
			mu.Lock()
			seen = append(seen, snap.Status.Kind)
			mu.Unlock()
		},
	})

	mustMove(t, s, "e2", "e4")
	mustMove(t, s, "e7", "e5")

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("onChange fired %d times, want 2", len(seen))
	}
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	s := newTestSession(t, Options{TimeControl: 600})
	s.Close()

	// Give the loop a moment to drain.
	time.Sleep(10 * time.Millisecond)
	_, err := s.AttemptMove(context.Background(), "e2", "e4")
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("AttemptMove on closed session = %v, want ErrSessionClosed", err)
	}
}
