package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/starfleet/internal/state"
	"github.com/spf13/cobra"
)

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <game-id>",
		Short: "Show a recorded game and its event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, cleanup, err := cmdCtx.OpenStore()
			if err != nil {
				return err
			}
			defer cleanup()

			g, err := store.GetGame(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, state.ErrNotFound) {
					return fmt.Errorf("game %s not found; see 'starfleet history'", args[0])
				}
				return fmt.Errorf("failed to load game: %w", err)
			}
			events, err := store.EventsForGame(cmd.Context(), g.ID)
			if err != nil {
				return fmt.Errorf("failed to load events: %w", err)
			}
			return renderGame(cmdCtx.Renderer, g, events)
		},
	}
}

// NewEventsCommand creates the events command, which exports a game's log
// as CloudEvents JSON lines regardless of the output mode.
func NewEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events <game-id>",
		Short: "Export a game's events as CloudEvents JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, cleanup, err := cmdCtx.OpenStore()
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := store.GetGame(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, state.ErrNotFound) {
					return fmt.Errorf("game %s not found; see 'starfleet history'", args[0])
				}
				return fmt.Errorf("failed to load game: %w", err)
			}
			events, err := store.EventsForGame(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load events: %w", err)
			}
			for _, e := range events {
				if err := writeCloudEvent(cmdCtx.Renderer, e); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
