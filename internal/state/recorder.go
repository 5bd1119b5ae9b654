package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/leapstack-labs/starfleet/internal/scenario"
)

// Recorder persists games as they are played. It is a game.Observer for
// the event log and provides runner hooks for the game row.
type Recorder struct {
	store  Store
	logger *slog.Logger

	// batch holds events per game until the game finishes
	batch   bool
	mu      sync.Mutex
	pending map[string][]game.Event
}

var _ game.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{store: store, logger: logger}
}

// NewBatchRecorder creates a recorder that keeps the events of each game in
// memory and writes them in one transaction when the game finishes. The
// event log of a running game stays empty, so it is not suited to live
// streaming.
func NewBatchRecorder(store Store, logger *slog.Logger) *Recorder {
	r := NewRecorder(store, logger)
	r.batch = true
	r.pending = make(map[string][]game.Event)
	return r
}

// OnEvent appends e to the log of its game.
func (r *Recorder) OnEvent(ctx context.Context, e game.Event) error {
	if !r.batch {
		return r.store.RecordEvent(ctx, e)
	}
	r.mu.Lock()
	r.pending[e.GameID] = append(r.pending[e.GameID], e)
	r.mu.Unlock()
	return nil
}

// flush writes the events held for gameID.
func (r *Recorder) flush(ctx context.Context, gameID string) error {
	if !r.batch {
		return nil
	}
	r.mu.Lock()
	events := r.pending[gameID]
	delete(r.pending, gameID)
	r.mu.Unlock()

	if err := r.store.RecordEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to record events: %w", err)
	}
	return nil
}

// Hooks returns runner hooks that create the game row when play starts and
// record the outcome when it ends.
func (r *Recorder) Hooks() scenario.Hooks {
	return scenario.Hooks{
		Started:  r.started,
		Finished: r.finished,
	}
}

func (r *Recorder) started(ctx context.Context, res *scenario.Result, sc *scenario.Scenario) error {
	return r.store.CreateGame(ctx, &Game{
		ID:        res.GameID,
		Scenario:  sc.Name,
		Source:    sc.Source,
		Status:    GameStatusRunning,
		StartedAt: res.StartedAt,
	})
}

func (r *Recorder) finished(ctx context.Context, res *scenario.Result, runErr error) error {
	if err := r.flush(ctx, res.GameID); err != nil {
		return err
	}

	out := Outcome{
		Status:      GameStatusCompleted,
		Turns:       res.Turns,
		Rejected:    res.Rejected,
		CompletedAt: res.CompletedAt,
	}
	if res.Winner != nil {
		w := res.Winner.Number
		out.Winner = &w
	}
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		out.Status = GameStatusCancelled
		out.Error = runErr.Error()
	case runErr != nil:
		out.Status = GameStatusFailed
		out.Error = runErr.Error()
	}

	if err := r.store.CompleteGame(ctx, res.GameID, out); err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	r.logger.Debug("game recorded", slog.String("game", res.GameID), slog.String("status", string(out.Status)))
	return nil
}
