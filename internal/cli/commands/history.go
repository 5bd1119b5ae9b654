package commands

import (
	"fmt"

	"github.com/leapstack-labs/starfleet/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List recorded games",
		Long:    `List the most recently started games in the state database, newest first.`,
		Aliases: []string{"games"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			cmdCtx := NewCommandContext(cmd)
			store, cleanup, err := cmdCtx.OpenStore()
			if err != nil {
				return err
			}
			defer cleanup()

			games, err := store.ListGames(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list games: %w", err)
			}
			return renderGames(cmdCtx.Renderer, games)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", state.DefaultListLimit, "Maximum number of games to list")
	return cmd
}
