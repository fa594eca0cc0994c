package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deskchess/deskchess/internal/registry"
)

func newTestManager(t *testing.T, store registry.Store) *Manager {
	t.Helper()
	m := NewManager(store, ManagerConfig{
		TimeControls:       []int{600, 300, 60},
		DefaultTimeControl: 600,
	}, nil)
	t.Cleanup(m.CloseAll)
	return m
}

func TestManagerCreateUsesDefault(t *testing.T) {
	m := newTestManager(t, registry.NewMemoryStore(time.Minute))
	ctx := context.Background()

	s, err := m.Create(ctx, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	snap, _ := s.Snapshot(ctx)
	if snap.TimeControl != 600 {
		t.Fatalf("time control = %d, want 600", snap.TimeControl)
	}

	got, err := m.Get(ctx, s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Fatal("Get returned a different session")
	}
}

func TestManagerCreateRejectsUnknownTimeControl(t *testing.T) {
	m := newTestManager(t, registry.NewMemoryStore(time.Minute))
	if _, err := m.Create(context.Background(), 42); err == nil {
		t.Fatal("Create accepted a time control outside the selector")
	}
}

func TestManagerAllows(t *testing.T) {
	m := newTestManager(t, registry.NewMemoryStore(time.Minute))
	for _, tc := range []int{600, 300, 60} {
		if !m.Allows(tc) {
			t.Errorf("Allows(%d) = false", tc)
		}
	}
	if m.Allows(120) {
		t.Error("Allows(120) = true")
	}
}

func TestManagerGetUnknownSession(t *testing.T) {
	m := newTestManager(t, registry.NewMemoryStore(time.Minute))
	if _, err := m.Get(context.Background(), "no-such-id"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerAdoptsFromRegistry(t *testing.T) {
	store := registry.NewMemoryStore(time.Minute)
	ctx := context.Background()

	first := newTestManager(t, store)
	s, err := first.Create(ctx, 300)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := s.ID()
	if _, err := s.AttemptMove(ctx, "e2", "e4"); err != nil {
		t.Fatalf("AttemptMove: %v", err)
	}
	first.CloseAll()

	second := newTestManager(t, store)
	adopted, err := second.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after restart: %v", err)
	}
	snap, _ := adopted.Snapshot(ctx)
	if snap.ID != id {
		t.Fatalf("adopted id = %s, want %s", snap.ID, id)
	}
	if snap.TimeControl != 300 {
		t.Fatalf("adopted time control = %d, want 300", snap.TimeControl)
	}
	if len(snap.MovesUCI) != 1 || snap.MovesUCI[0] != "e2e4" {
		t.Fatalf("adopted moves = %v", snap.MovesUCI)
	}
	if snap.Running != Black {
		t.Fatalf("adopted running side = %q, want black", snap.Running)
	}
}

func TestManagerDoesNotAdoptFinishedGames(t *testing.T) {
	store := registry.NewMemoryStore(time.Minute)
	ctx := context.Background()

	first := newTestManager(t, store)
	s, err := first.Create(ctx, 600)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := s.ID()
	for _, mv := range [][2]string{
		{"e2", "e4"}, {"e7", "e5"},
		{"f1", "c4"}, {"b8", "c6"},
		{"d1", "h5"}, {"g8", "f6"},
		{"h5", "f7"},
	} {
		if _, err := s.AttemptMove(ctx, mv[0], mv[1]); err != nil {
			t.Fatalf("AttemptMove: %v", err)
		}
	}
	first.CloseAll()

	second := newTestManager(t, store)
	if _, err := second.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get finished game = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerRemove(t *testing.T) {
	store := registry.NewMemoryStore(time.Minute)
	m := newTestManager(t, store)
	ctx := context.Background()

	s, err := m.Create(ctx, 600)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := s.ID()

	m.Remove(ctx, id)
	if _, err := m.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get after Remove = %v, want ErrSessionNotFound", err)
	}
	rec, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec != nil {
		t.Fatal("registry record survived Remove")
	}
}
