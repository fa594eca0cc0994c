// Package session implements the game session core: the canonical
// position, move history, derived status, and the per-side clocks. All
// state lives behind a single event loop; gestures from the board,
// clock ticks, and user commands are serialized onto it, so no mutex
// guards the game state itself.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskchess/deskchess/internal/board"
	"github.com/deskchess/deskchess/internal/rules"
)

// Options configures a session. Zero values get sensible defaults.
type Options struct {
	ID          string
	TimeControl int // whole seconds per side

	// Moves replays a recorded UCI move list before the session starts
	// accepting events (registry re-adoption). RemainingWhite and
	// RemainingBlack restore the clocks alongside it; zero means a
	// full budget.
	Moves          []string
	RemainingWhite int
	RemainingBlack int

	// TickInterval drives the internal ticker; zero disables it and
	// the clock only advances through injected ticks (tests).
	TickInterval time.Duration

	Rules  rules.Engine
	View   board.View
	Logger *zap.Logger

	// OnChange observes every committed state change. Called from the
	// event loop; keep it cheap.
	OnChange func(Snapshot)
}

const DefaultTimeControl = 600

// Session owns one game. Construct with New, interact through the
// public methods, and Close when the desk goes away.
type Session struct {
	id          string
	timeControl int

	eng   rules.Engine
	clock *Clock
	view  board.View

	status   Status
	logger   *zap.Logger
	onChange func(Snapshot)

	events chan any
	done   chan struct{}
	closed sync.Once

	// Epoch visible to the ticker goroutine. Mirrors the clock's epoch
	// after every reconfiguration.
	tickEpoch atomic.Uint64
}

func New(opts Options) (*Session, error) {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.TimeControl <= 0 {
		opts.TimeControl = DefaultTimeControl
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	eng := opts.Rules
	if eng == nil {
		if len(opts.Moves) > 0 {
			restored, err := rules.NewEngineFromMoves(opts.Moves)
			if err != nil {
				return nil, err
			}
			eng = restored
		} else {
			eng = rules.NewEngine()
		}
	}

	s := &Session{
		id:          opts.ID,
		timeControl: opts.TimeControl,
		eng:         eng,
		clock:       NewClock(opts.TimeControl),
		view:        opts.View,
		logger:      opts.Logger.With(zap.String("session_id", opts.ID)),
		onChange:    opts.OnChange,
		events:      make(chan any),
		done:        make(chan struct{}),
	}

	if opts.RemainingWhite > 0 && opts.RemainingBlack > 0 {
		s.clock.SetRemaining(opts.RemainingWhite, opts.RemainingBlack)
	}
	s.clock.Start(sideFrom(eng.SideToMove()))
	s.status = deriveStatus(s.eng, s.clock)
	if s.status.Terminal() {
		s.clock.Stop()
	}
	s.publishEpoch()
	s.pushView()

	go s.run()
	if opts.TickInterval > 0 {
		go s.tickLoop(opts.TickInterval)
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// AttemptMove validates and applies a move from the board. On
// rejection the session is untouched and the result asks the view to
// snap the piece back to the source square.
func (s *Session) AttemptMove(ctx context.Context, from, to string) (MoveResult, error) {
	reply := make(chan MoveResult, 1)
	if err := s.post(ctx, moveAttempted{from: from, to: to, reply: reply}); err != nil {
		return MoveResult{}, err
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return MoveResult{}, ctx.Err()
	}
}

// Undo pops the most recent move and reverts the position. With empty
// history it is a no-op and returns ErrNoMoveToUndo. A session that
// ended on time rejects undo with ErrGameOver.
func (s *Session) Undo(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, undoRequested{reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset clears the game back to the starting position with
// initialSeconds on both clocks and White to move. Changing the time
// control goes through here.
func (s *Session) Reset(ctx context.Context, initialSeconds int) error {
	reply := make(chan struct{}, 1)
	if err := s.post(ctx, resetRequested{seconds: initialSeconds, reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a consistent copy of the derived state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.post(ctx, snapshotRequested{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// AttachView replaces the session's rendering surface and immediately
// pushes the current position to it.
func (s *Session) AttachView(ctx context.Context, v board.View) error {
	reply := make(chan struct{}, 1)
	if err := s.post(ctx, viewAttached{view: v, reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick advances the running clock by one second, synchronously. Used
// by tests and by external tick sources when the internal ticker is
// disabled.
func (s *Session) Tick(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	if err := s.post(ctx, tickElapsed{epoch: s.tickEpoch.Load(), reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop and tears down the view. Idempotent.
func (s *Session) Close() {
	s.closed.Do(func() {
		close(s.done)
	})
}

func (s *Session) post(ctx context.Context, ev any) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) run() {
	// The view is owned by this goroutine; it is torn down here so
	// Close never races a concurrent push.
	for {
		select {
		case <-s.done:
			if s.view != nil {
				_ = s.view.Close()
			}
			return
		case ev := <-s.events:
			switch ev := ev.(type) {
			case moveAttempted:
				ev.reply <- s.handleMove(ev.from, ev.to)
			case tickElapsed:
				s.handleTick(ev.epoch)
				if ev.reply != nil {
					ev.reply <- struct{}{}
				}
			case undoRequested:
				ev.reply <- s.handleUndo()
			case resetRequested:
				s.handleReset(ev.seconds)
				ev.reply <- struct{}{}
			case snapshotRequested:
				ev.reply <- s.snapshot()
			case viewAttached:
				if s.view != nil && s.view != ev.view {
					// The replaced board would otherwise linger until
					// its client disconnects on its own.
					_ = s.view.Close()
				}
				s.view = ev.view
				s.pushView()
				ev.reply <- struct{}{}
			}
		}
	}
}

func (s *Session) tickLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			select {
			case s.events <- tickElapsed{epoch: s.tickEpoch.Load()}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *Session) handleMove(from, to string) MoveResult {
	if s.status.Terminal() {
		return MoveResult{Accepted: false, Snapback: true, Err: ErrGameOver, State: s.snapshot()}
	}

	if _, err := s.eng.ApplyMove(from, to); err != nil {
		s.logger.Debug("move rejected",
			zap.String("from", from),
			zap.String("to", to),
		)
		return MoveResult{Accepted: false, Snapback: true, Err: err, State: s.snapshot()}
	}

	s.status = deriveStatus(s.eng, s.clock)
	if s.status.Terminal() {
		s.clock.Stop()
	} else {
		s.clock.Start(sideFrom(s.eng.SideToMove()))
	}
	s.publishEpoch()

	s.logger.Info("move applied",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("status", string(s.status.Kind)),
	)

	s.pushView()
	snap := s.snapshot()
	s.notify(snap)
	return MoveResult{Accepted: true, State: snap}
}

func (s *Session) handleTick(epoch uint64) {
	if epoch != s.clock.Epoch() {
		// Tick scheduled against a configuration that no longer
		// exists: a reset, side switch, or stop happened in between.
		return
	}
	if s.status.Terminal() {
		return
	}

	expired, side := s.clock.Tick()
	if expired {
		// The position may already hold a mate or draw committed on
		// this same scheduling turn; deriveStatus gives that fact
		// precedence over the flag fall.
		s.status = deriveStatus(s.eng, s.clock)
		s.clock.Stop()
		s.publishEpoch()
		s.logger.Info("clock expired",
			zap.String("side", string(side)),
			zap.String("status", string(s.status.Kind)),
		)
	}
	snap := s.snapshot()
	s.notify(snap)
	if expired {
		s.pushView()
	} else if sd, ok := s.view.(board.StatusDisplay); ok {
		_ = sd.ShowUpdate(s.update(snap))
	}
}

func (s *Session) handleUndo() error {
	if s.status.Kind == StatusTimeExpired {
		return ErrGameOver
	}

	if _, ok := s.eng.UndoLast(); !ok {
		return ErrNoMoveToUndo
	}

	s.status = deriveStatus(s.eng, s.clock)
	// Resynchronize the running clock to the reverted side-to-move.
	// Undoing a mating move also rearms a clock stopped by that mate.
	if s.status.Terminal() {
		s.clock.Stop()
	} else {
		s.clock.Start(sideFrom(s.eng.SideToMove()))
	}
	s.publishEpoch()

	s.logger.Info("move undone", zap.String("status", string(s.status.Kind)))

	s.pushView()
	s.notify(s.snapshot())
	return nil
}

func (s *Session) handleReset(initialSeconds int) {
	if initialSeconds <= 0 {
		initialSeconds = DefaultTimeControl
	}
	s.timeControl = initialSeconds
	s.eng.Reset()
	s.clock.Reset(initialSeconds)
	s.clock.Start(White)
	s.status = deriveStatus(s.eng, s.clock)
	s.publishEpoch()

	s.logger.Info("session reset", zap.Int("time_control", initialSeconds))

	s.pushView()
	s.notify(s.snapshot())
}

func (s *Session) snapshot() Snapshot {
	white, black := splitMoves(s.eng.History())
	running, _ := s.clock.Running()
	return Snapshot{
		ID:             s.id,
		FEN:            string(s.eng.Current()),
		Status:         s.status,
		StatusText:     s.status.String(),
		WhiteMoves:     white,
		BlackMoves:     black,
		MovesUCI:       s.eng.MovesUCI(),
		WhiteClock:     s.clock.Remaining(White),
		BlackClock:     s.clock.Remaining(Black),
		WhiteClockText: FormatClock(s.clock.Remaining(White)),
		BlackClockText: FormatClock(s.clock.Remaining(Black)),
		Running:        running,
		TimeControl:    s.timeControl,
	}
}

func (s *Session) update(snap Snapshot) board.Update {
	return board.Update{
		FEN:        snap.FEN,
		StatusText: snap.StatusText,
		WhiteClock: snap.WhiteClockText,
		BlackClock: snap.BlackClockText,
		WhiteMoves: snap.WhiteMoves,
		BlackMoves: snap.BlackMoves,
		GameOver:   snap.Status.Terminal(),
	}
}

func (s *Session) pushView() {
	if s.view == nil {
		return
	}
	snap := s.snapshot()
	if err := s.view.SetPosition(snap.FEN); err != nil {
		s.logger.Warn("push position to view failed", zap.Error(err))
		return
	}
	if sd, ok := s.view.(board.StatusDisplay); ok {
		if err := sd.ShowUpdate(s.update(snap)); err != nil {
			s.logger.Warn("push update to view failed", zap.Error(err))
		}
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

func (s *Session) publishEpoch() {
	s.tickEpoch.Store(s.clock.Epoch())
}
