package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deskchess/deskchess/internal/registry"
)

var ErrSessionNotFound = errors.New("session not found")

// ManagerConfig carries the desk-wide policy: which time controls the
// selector offers, the default, and how fast clocks tick.
type ManagerConfig struct {
	TimeControls       []int
	DefaultTimeControl int
	TickInterval       time.Duration
}

// Manager owns the live sessions of one process and mirrors their
// state into the registry so a restart can pick them back up.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store  registry.Store
	cfg    ManagerConfig
	logger *zap.Logger
}

func NewManager(store registry.Store, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTimeControl <= 0 {
		cfg.DefaultTimeControl = DefaultTimeControl
	}
	if len(cfg.TimeControls) == 0 {
		cfg.TimeControls = []int{cfg.DefaultTimeControl}
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// Allows reports whether seconds is one of the selectable time
// controls.
func (m *Manager) Allows(seconds int) bool {
	for _, tc := range m.cfg.TimeControls {
		if tc == seconds {
			return true
		}
	}
	return false
}

// TimeControls returns the selector options.
func (m *Manager) TimeControls() []int {
	return append([]int(nil), m.cfg.TimeControls...)
}

// Create starts a fresh session. A non-positive seconds picks the
// default; anything else must be one of the enumerated options.
func (m *Manager) Create(ctx context.Context, seconds int) (*Session, error) {
	if seconds <= 0 {
		seconds = m.cfg.DefaultTimeControl
	}
	if !m.Allows(seconds) {
		return nil, fmt.Errorf("time control %d not offered", seconds)
	}

	s, err := New(Options{
		TimeControl:  seconds,
		TickInterval: m.cfg.TickInterval,
		Logger:       m.logger,
		OnChange:     m.persist,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	if snap, err := s.Snapshot(ctx); err == nil {
		m.persist(snap)
	}
	m.logger.Info("session created",
		zap.String("session_id", s.ID()),
		zap.Int("time_control", seconds),
	)
	return s, nil
}

// Get returns a live session, re-adopting it from the registry if this
// process has not seen it yet.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	return m.adopt(ctx, id)
}

func (m *Manager) adopt(ctx context.Context, id string) (*Session, error) {
	if m.store == nil {
		return nil, ErrSessionNotFound
	}
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Terminal {
		return nil, ErrSessionNotFound
	}

	s, err := New(Options{
		ID:             rec.ID,
		TimeControl:    rec.TimeControl,
		Moves:          rec.MovesUCI,
		RemainingWhite: rec.WhiteClock,
		RemainingBlack: rec.BlackClock,
		TickInterval:   m.cfg.TickInterval,
		Logger:         m.logger,
		OnChange:       m.persist,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		// Lost the race to another adopter; keep theirs.
		m.mu.Unlock()
		s.Close()
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session adopted from registry", zap.String("session_id", id))
	return s, nil
}

// List returns the ids of every session with a live registry record,
// including ones owned by other processes. With no registry it lists
// the local sessions.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	if m.store != nil {
		return m.store.List(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

// Remove closes a session and drops its registry record.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn("delete session record failed",
				zap.String("session_id", id),
				zap.Error(err),
			)
		}
	}
}

// CloseAll tears down every live session. Registry records are left to
// expire so a restart can re-adopt them.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
	m.mu.Unlock()
}

func (m *Manager) persist(snap Snapshot) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec := &registry.Record{
		ID:          snap.ID,
		TimeControl: snap.TimeControl,
		MovesUCI:    snap.MovesUCI,
		WhiteClock:  snap.WhiteClock,
		BlackClock:  snap.BlackClock,
		Status:      string(snap.Status.Kind),
		Terminal:    snap.Status.Terminal(),
		UpdatedAt:   time.Now(),
	}
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Warn("persist session snapshot failed",
			zap.String("session_id", snap.ID),
			zap.Error(err),
		)
	}
}
