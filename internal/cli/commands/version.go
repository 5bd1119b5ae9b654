package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the starfleet version, the Go runtime it was built with and the built-in scenarios it ships.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "starfleet v%s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintln(w, "Starship and starbase battles played from YAML or Starlark scenarios")
			_, _ = fmt.Fprintf(w, "Built-in scenarios: %s\n", strings.Join(scenario.List(), ", "))
		},
	}
}
