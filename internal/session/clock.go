package session

// Side identifies a chess side.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

type clockState int

const (
	clockIdle clockState = iota
	clockRunning
	clockStopped
)

// Clock tracks remaining whole seconds for both sides. At most one side
// runs at a time. Every reconfiguration (start, stop, reset) bumps the
// epoch; the session loop discards ticks stamped with an older epoch so
// a tick scheduled against a previous configuration can never land on
// the new one.
//
// The clock itself does not know about game status; the session decides
// when starting is allowed.
type Clock struct {
	white   int
	black   int
	running Side
	state   clockState
	epoch   uint64
}

func NewClock(initialSeconds int) *Clock {
	return &Clock{white: initialSeconds, black: initialSeconds, epoch: 1}
}

// Start begins ticking the given side. Starting one side implicitly
// stops the other.
func (c *Clock) Start(side Side) {
	c.running = side
	c.state = clockRunning
	c.epoch++
}

// Stop halts ticking entirely. Used when the game reaches a terminal
// status.
func (c *Clock) Stop() {
	c.running = ""
	c.state = clockStopped
	c.epoch++
}

// Reset rearms both sides with initialSeconds and leaves the clock
// idle. Only Reset brings a stopped clock back.
func (c *Clock) Reset(initialSeconds int) {
	c.white = initialSeconds
	c.black = initialSeconds
	c.running = ""
	c.state = clockIdle
	c.epoch++
}

// SetRemaining overrides both budgets, used when restoring a live
// session from the registry.
func (c *Clock) SetRemaining(white, black int) {
	c.white = white
	c.black = black
	c.epoch++
}

// Tick decrements the running side by one second. It reports whether
// this tick drained the side to zero. A tick on an idle, stopped, or
// already-drained clock is a no-op.
func (c *Clock) Tick() (expired bool, side Side) {
	if c.state != clockRunning {
		return false, ""
	}
	switch c.running {
	case White:
		if c.white <= 0 {
			return false, ""
		}
		c.white--
		return c.white == 0, White
	case Black:
		if c.black <= 0 {
			return false, ""
		}
		c.black--
		return c.black == 0, Black
	}
	return false, ""
}

// Remaining returns the whole seconds left for side.
func (c *Clock) Remaining(side Side) int {
	if side == White {
		return c.white
	}
	return c.black
}

// Running returns the ticking side, if any.
func (c *Clock) Running() (Side, bool) {
	if c.state != clockRunning {
		return "", false
	}
	return c.running, true
}

// Expired returns the side whose budget is exhausted, if any.
func (c *Clock) Expired() (Side, bool) {
	if c.white == 0 {
		return White, true
	}
	if c.black == 0 {
		return Black, true
	}
	return "", false
}

// Epoch identifies the current configuration. Ticks carry the epoch
// they were scheduled under.
func (c *Clock) Epoch() uint64 { return c.epoch }
