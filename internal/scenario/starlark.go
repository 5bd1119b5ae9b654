package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/starfleet/internal/entities"
	"github.com/leapstack-labs/starfleet/internal/game"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// scriptOptions enables the statements scenario scripts rely on: while
// loops and control flow at the top level.
var scriptOptions = &syntax.FileOptions{
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// maxScriptSteps bounds runaway scripts.
const maxScriptSteps = 10_000_000

// scriptHost binds builtins to one running game.
type scriptHost struct {
	ctx      context.Context
	game     *game.Game
	logger   *slog.Logger
	rejected int
}

// runScript executes a scripted scenario against g. Orders that break a
// rule return False to the script; malformed orders abort it.
func runScript(ctx context.Context, g *game.Game, sc *Scenario, logger *slog.Logger) (int, error) {
	h := &scriptHost{ctx: ctx, game: g, logger: logger}

	thread := &starlark.Thread{
		Name: "scenario:" + sc.Name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(msg, slog.String("scenario", sc.Name))
		},
	}
	thread.SetMaxExecutionSteps(maxScriptSteps)

	stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
	defer stop()

	_, err := starlark.ExecFileOptions(scriptOptions, thread, sc.Source, sc.Script, h.predeclared())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return h.rejected, ctxErr
		}
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return h.rejected, fmt.Errorf("script %s failed: %s", sc.Source, evalErr.Backtrace())
		}
		return h.rejected, fmt.Errorf("script %s failed: %w", sc.Source, err)
	}
	return h.rejected, nil
}

func (h *scriptHost) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"fleet":      starlark.NewBuiltin("fleet", h.fleet),
		"starbase":   starlark.NewBuiltin("starbase", h.spawn(entities.KindStarbase)),
		"starship":   starlark.NewBuiltin("starship", h.spawn(entities.KindStarship)),
		"move":       starlark.NewBuiltin("move", h.move),
		"move_fleet": starlark.NewBuiltin("move_fleet", h.moveFleet),
		"dock":       starlark.NewBuiltin("dock", h.dock),
		"undock":     starlark.NewBuiltin("undock", h.undock),
		"repair":     starlark.NewBuiltin("repair", h.repair),
		"attack":     starlark.NewBuiltin("attack", h.attack),
		"attack_all": starlark.NewBuiltin("attack_all", h.attackAll),
		"end_turn":   starlark.NewBuiltin("end_turn", h.endTurn),
		"health":     starlark.NewBuiltin("health", h.health),
		"destroyed":  starlark.NewBuiltin("destroyed", h.destroyed),
		"turn":       starlark.NewBuiltin("turn", h.turn),
		"game_over":  starlark.NewBuiltin("game_over", h.gameOver),
	}
}

// apply runs o and reports whether it was accepted.
func (h *scriptHost) apply(o game.Order) (starlark.Value, error) {
	if err := h.ctx.Err(); err != nil {
		return nil, err
	}
	_, err := h.game.Apply(h.ctx, o)
	switch {
	case err == nil:
		return starlark.True, nil
	case errors.Is(err, game.ErrRejected):
		h.rejected++
		return starlark.False, nil
	case errors.Is(err, game.ErrGameOver):
		return starlark.False, nil
	default:
		return nil, err
	}
}

func (h *scriptHost) fleet(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var player int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "player", &player); err != nil {
		return nil, err
	}
	if player <= 0 {
		return nil, fmt.Errorf("%s: player must be positive", b.Name())
	}
	if _, ok := h.game.Fleet(uint(player)); !ok {
		if err := h.game.AddFleet(entities.NewFleet(entities.Player{Number: uint(player)})); err != nil {
			return nil, err
		}
	}
	return starlark.MakeInt(player), nil
}

func (h *scriptHost) spawn(kind entities.Kind) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			player, x, y int
			name         string
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "player", &player, "name", &name, "x", &x, "y", &y); err != nil {
			return nil, err
		}
		if player <= 0 {
			return nil, fmt.Errorf("%s: player must be positive", b.Name())
		}

		at := entities.Sector{X: x, Y: y}
		opts := []entities.Option{entities.WithName(name), entities.WithLogger(h.logger)}
		var e entities.Entity
		if kind == entities.KindStarbase {
			e = entities.NewStarbase(at, opts...)
		} else {
			e = entities.NewStarship(at, opts...)
		}
		if err := h.game.Spawn(uint(player), e); err != nil {
			return nil, err
		}
		return starlark.String(e.Name()), nil
	}
}

func (h *scriptHost) move(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name string
		x, y int
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "x", &x, "y", &y); err != nil {
		return nil, err
	}
	return h.apply(game.Move(name, entities.Sector{X: x, Y: y}))
}

func (h *scriptHost) moveFleet(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var player, x, y int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "player", &player, "x", &x, "y", &y); err != nil {
		return nil, err
	}
	if player <= 0 {
		return nil, fmt.Errorf("%s: player must be positive", b.Name())
	}
	return h.apply(game.MoveFleet(uint(player), entities.Sector{X: x, Y: y}))
}

func (h *scriptHost) dock(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ship, base string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ship", &ship, "base", &base); err != nil {
		return nil, err
	}
	return h.apply(game.Dock(ship, base))
}

func (h *scriptHost) undock(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ship, base string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ship", &ship, "base?", &base); err != nil {
		return nil, err
	}
	o := game.Undock(ship)
	o.Target = base
	return h.apply(o)
}

func (h *scriptHost) repair(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ship string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ship", &ship); err != nil {
		return nil, err
	}
	return h.apply(game.Repair(ship))
}

func (h *scriptHost) attack(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var ship, target string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ship", &ship, "target", &target); err != nil {
		return nil, err
	}
	return h.apply(game.Attack(ship, target))
}

func (h *scriptHost) attackAll(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		player         int
		target         string
		untilDestroyed bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"player", &player, "target", &target, "until_destroyed?", &untilDestroyed); err != nil {
		return nil, err
	}
	if player <= 0 {
		return nil, fmt.Errorf("%s: player must be positive", b.Name())
	}
	return h.apply(game.AttackWithAll(uint(player), target, untilDestroyed))
}

func (h *scriptHost) endTurn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	if _, err := h.apply(game.EndTurn()); err != nil {
		return nil, err
	}
	return starlark.MakeInt(h.game.Turn()), nil
}

func (h *scriptHost) lookup(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (entities.Entity, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	e, ok := h.game.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", b.Name(), game.ErrUnknownEntity, name)
	}
	return e, nil
}

func (h *scriptHost) health(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	e, err := h.lookup(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	return starlark.Float(e.Health()), nil
}

func (h *scriptHost) destroyed(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	e, err := h.lookup(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	return starlark.Bool(e.IsDestroyed()), nil
}

func (h *scriptHost) turn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeInt(h.game.Turn()), nil
}

func (h *scriptHost) gameOver(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return starlark.Bool(h.game.Over()), nil
}
