// Package state persists played games and their event logs in SQLite.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/starfleet/internal/game"
)

var (
	// ErrNotFound is returned when a game does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotOpened is returned by every operation before Open.
	ErrNotOpened = errors.New("database not opened")
)

// GameStatus is the lifecycle state of a recorded game.
type GameStatus string

// Game statuses.
const (
	GameStatusRunning   GameStatus = "running"
	GameStatusCompleted GameStatus = "completed"
	GameStatusFailed    GameStatus = "failed"
	GameStatusCancelled GameStatus = "cancelled"
)

// DefaultListLimit applies when ListGames is called without a limit.
const DefaultListLimit = 20

// Game is one recorded play of a scenario.
type Game struct {
	ID          string     `json:"id"`
	Scenario    string     `json:"scenario"`
	Source      string     `json:"source,omitempty"`
	Status      GameStatus `json:"status"`
	Winner      *uint      `json:"winner,omitempty"`
	Turns       int        `json:"turns"`
	Rejected    int        `json:"rejected"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Outcome is what CompleteGame records about a finished game.
type Outcome struct {
	Status      GameStatus
	Winner      *uint
	Turns       int
	Rejected    int
	CompletedAt time.Time
	Error       string
}

// Store is the persistence used by the CLI and the HTTP server.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateGame(ctx context.Context, g *Game) error
	CompleteGame(ctx context.Context, id string, out Outcome) error
	GetGame(ctx context.Context, id string) (*Game, error)
	ListGames(ctx context.Context, limit int) ([]*Game, error)

	RecordEvent(ctx context.Context, e game.Event) error
	RecordEvents(ctx context.Context, events []game.Event) error
	EventsForGame(ctx context.Context, id string) ([]game.Event, error)
}
