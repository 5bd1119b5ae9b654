package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/starfleet/internal/entities"
	"github.com/leapstack-labs/starfleet/internal/game"
)

// Result summarises a played scenario.
type Result struct {
	GameID      string           `json:"game_id"`
	Scenario    string           `json:"scenario"`
	Turns       int              `json:"turns"`
	Over        bool             `json:"over"`
	Winner      *entities.Player `json:"winner,omitempty"`
	Rejected    int              `json:"rejected"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	Events      []game.Event     `json:"events"`
	Entities    []game.Snapshot  `json:"entities"`
}

// Summary is a one line description of the outcome.
func (r *Result) Summary() string {
	switch {
	case r.Winner != nil:
		return fmt.Sprintf("%s wins %s after %d turns", r.Winner, r.Scenario, r.Turns)
	case r.Over:
		return fmt.Sprintf("%s ends in a draw after %d turns", r.Scenario, r.Turns)
	default:
		return fmt.Sprintf("%s undecided after %d turns", r.Scenario, r.Turns)
	}
}

// Hooks are called around a game. Started receives the result before any
// order is played; an error from it aborts the run.
type Hooks struct {
	Started  func(ctx context.Context, res *Result, sc *Scenario) error
	Finished func(ctx context.Context, res *Result, runErr error) error
}

// Runner plays scenarios.
type Runner struct {
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Observers are attached to every game
	Observers []game.Observer
	// Clock stamps events (optional, defaults to time.Now)
	Clock func() time.Time
	Hooks Hooks
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock().UTC()
}

// Play runs sc to completion and returns its result. Rejected orders are
// recorded as events and do not stop the run; malformed orders, script
// errors and cancellation do. A partial result is returned alongside any
// error.
func (r *Runner) Play(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	logger := r.logger().With(slog.String("scenario", sc.Name))
	g := game.New(game.Config{
		Name:      sc.Name,
		Logger:    logger,
		Observers: r.Observers,
		Clock:     r.Clock,
	})
	res := &Result{GameID: g.ID(), Scenario: sc.Name, StartedAt: r.now()}

	if r.Hooks.Started != nil {
		if err := r.Hooks.Started(ctx, res, sc); err != nil {
			return nil, fmt.Errorf("failed to start game: %w", err)
		}
	}

	logger.Info("playing scenario", slog.String("game", g.ID()), slog.String("source", sc.Source))

	var err error
	if sc.Scripted() {
		res.Rejected, err = runScript(ctx, g, sc, logger)
	} else {
		res.Rejected, err = r.playTurns(ctx, g, sc, logger)
	}

	r.finish(g, res)
	if err != nil {
		logger.Error("scenario failed", slog.String("game", g.ID()), slog.Any("error", err))
	} else {
		logger.Info("scenario finished", slog.String("game", g.ID()), slog.String("result", res.Summary()))
	}

	if r.Hooks.Finished != nil {
		// The run may have been cancelled; the hook still gets to persist.
		hookCtx := context.WithoutCancel(ctx)
		if hookErr := r.Hooks.Finished(hookCtx, res, err); hookErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to finish game: %w", hookErr))
		}
	}
	return res, err
}

func (r *Runner) playTurns(ctx context.Context, g *game.Game, sc *Scenario, logger *slog.Logger) (int, error) {
	if err := setup(g, sc, logger); err != nil {
		return 0, err
	}
	g.Start(ctx)

	rejected := 0
	for i, turn := range sc.Turns {
		for j, spec := range turn.Orders {
			if err := ctx.Err(); err != nil {
				return rejected, err
			}
			order, err := spec.Order()
			if err != nil {
				return rejected, fmt.Errorf("turns[%d].orders[%d]: %w", i, j, err)
			}
			if _, err := g.Apply(ctx, order); err != nil {
				if errors.Is(err, game.ErrRejected) {
					rejected++
					continue
				}
				return rejected, fmt.Errorf("turns[%d].orders[%d]: %w", i, j, err)
			}
			if g.Over() {
				return rejected, nil
			}
		}
		if _, err := g.Apply(ctx, game.EndTurn()); err != nil {
			return rejected, err
		}
	}
	return rejected, nil
}

// setup spawns the fleets of a declarative scenario.
func setup(g *game.Game, sc *Scenario, logger *slog.Logger) error {
	for _, f := range sc.Fleets {
		fleet := entities.NewFleet(entities.Player{Number: f.Player})
		for _, b := range f.Starbases {
			fleet.AddEntities(entities.NewStarbase(b.Sector.Sector(), entities.WithName(b.Name), entities.WithLogger(logger)))
		}
		for _, s := range f.Starships {
			fleet.AddEntities(entities.NewStarship(s.Sector.Sector(), entities.WithName(s.Name), entities.WithLogger(logger)))
		}
		if err := g.AddFleet(fleet); err != nil {
			return fmt.Errorf("failed to add fleet of %s: %w", fleet.Player(), err)
		}
	}
	return nil
}

func (r *Runner) finish(g *game.Game, res *Result) {
	res.CompletedAt = r.now()
	res.Over = g.Over()
	if p, ok := g.Winner(); ok {
		res.Winner = &p
	}
	res.Turns = g.Turn() - 1
	if res.Over {
		res.Turns = g.Turn()
	}
	res.Events = g.Events()
	res.Entities = g.Snapshot()
}
