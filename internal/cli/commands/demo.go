package commands

import (
	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/spf13/cobra"
)

// Built-in scenarios played by demo.
const (
	demoScenario         = "demo"
	demoScriptedScenario = "demo-scripted"
)

// DemoOptions holds options for the demo command.
type DemoOptions struct {
	PlayOptions
	Scripted bool
	Quiet    bool
}

// NewDemoCommand creates the demo command.
func NewDemoCommand() *cobra.Command {
	opts := &DemoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Play the built-in demo battle",
		Long: `Play the built-in demo: two fleets meet, ships dock and repair, and the
first fleet lays siege to the second fleet's starbase.

Every event is printed as it happens unless --quiet is given.`,
		Example: `  starfleet demo
  starfleet demo --scripted
  starfleet demo -o json --no-record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Scripted, "scripted", false, "Play the Starlark version that fights until one fleet is gone")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Only print the result")
	cmd.Flags().BoolVar(&opts.NoRecord, "no-record", false, "Do not record the game in the state database")

	return cmd
}

func runDemo(cmd *cobra.Command, opts *DemoOptions) error {
	cmdCtx := NewCommandContext(cmd)

	name := demoScenario
	if opts.Scripted {
		name = demoScriptedScenario
	}
	sc, err := scenario.Builtin(name)
	if err != nil {
		return err
	}

	opts.Events = !opts.Quiet
	s, err := cmdCtx.newSession(opts.PlayOptions, false)
	if err != nil {
		return err
	}
	defer s.cleanup()

	return s.play(cmd.Context(), sc)
}
