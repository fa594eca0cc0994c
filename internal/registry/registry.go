// Package registry keeps TTL-bounded snapshots of live sessions so a
// restarted process can re-adopt a desk mid-game. Records expire on
// their own and are deleted when a session closes; this is a liveness
// cache, not an archive of finished games.
package registry

import (
	"context"
	"time"
)

// Record is the persisted shape of one live session.
type Record struct {
	ID          string    `json:"id"`
	TimeControl int       `json:"time_control"`
	MovesUCI    []string  `json:"moves_uci"`
	WhiteClock  int       `json:"white_clock"`
	BlackClock  int       `json:"black_clock"`
	Status      string    `json:"status"`
	Terminal    bool      `json:"terminal"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists live session records. Implementations must be safe
// for concurrent use.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}
