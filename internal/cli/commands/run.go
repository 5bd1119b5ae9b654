package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	PlayOptions
	Watch bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <scenario>...",
		Short: "Play one or more scenarios",
		Long: `Play scenarios and record them in the state database.

A scenario is a YAML or Starlark file, a file name inside the scenarios
directory, or the name of a built-in scenario. Several scenarios are played
concurrently, up to --parallelism at a time.

With --watch, scenario files are played again whenever they change until
the command is interrupted.`,
		Example: `  # Play a scenario file
  starfleet run scenarios/skirmish.yaml

  # Play two built-ins side by side and print every event
  starfleet run demo demo-scripted --events

  # Replay a script on every save
  starfleet run tactics.star --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().IntP("parallelism", "p", 0, "Maximum number of scenarios played at once")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Play scenario files again when they change")
	cmd.Flags().Duration("debounce", 0, "Quiet period before a changed file is played again")
	cmd.Flags().BoolVarP(&opts.Events, "events", "e", false, "Print every game event as it happens")
	cmd.Flags().BoolVar(&opts.NoRecord, "no-record", false, "Do not record games in the state database")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	scenarios, err := openScenarios(args, cmdCtx.Cfg.ScenariosDir)
	if err != nil {
		return err
	}

	s, err := cmdCtx.newSession(opts.PlayOptions, len(scenarios) > 1 || opts.Watch)
	if err != nil {
		return err
	}
	defer s.cleanup()

	playErr := s.playAll(ctx, scenarios, cmdCtx.Cfg.Parallelism)
	if !opts.Watch {
		return playErr
	}
	if playErr != nil {
		cmdCtx.Renderer.Error(playErr.Error())
	}

	paths := watchable(scenarios)
	if len(paths) == 0 {
		return errors.New("--watch needs at least one scenario file; built-in scenarios never change")
	}
	if skipped := len(scenarios) - len(paths); skipped > 0 {
		cmdCtx.Renderer.Warning(fmt.Sprintf("%d built-in scenario(s) are not watched", skipped))
	}
	cmdCtx.Renderer.Info(fmt.Sprintf("watching %d scenario file(s), press Ctrl+C to stop", len(paths)))

	return scenario.Watch(ctx, paths, scenario.WatchOptions{
		Debounce: cmdCtx.Cfg.Watch.Debounce,
		Logger:   cmdCtx.Logger,
	}, func(ctx context.Context, path string) {
		sc, err := scenario.Load(path)
		if err != nil {
			s.printer.failure(path, err)
			return
		}
		if err := s.play(ctx, sc); err != nil {
			s.logger.Warn("replay failed", slog.String("path", path), slog.Any("error", err))
			s.printer.failure(path, err)
		}
	})
}
