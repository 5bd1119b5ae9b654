package commands

import (
	"fmt"

	"github.com/leapstack-labs/starfleet/internal/cli/output"
	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// scenarioInfo is the JSON form of a listed scenario.
type scenarioInfo struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

func scenarioKind(sc *scenario.Scenario) string {
	if sc.Scripted() {
		return "starlark"
	}
	return "yaml"
}

// NewScenariosCommand creates the scenarios command.
func NewScenariosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List built-in scenarios and those in the scenarios directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			scenarios, err := scenario.Catalog(cmdCtx.Cfg.ScenariosDir, cmdCtx.Logger)
			if err != nil {
				return err
			}
			return renderScenarios(cmdCtx.Renderer, scenarios)
		},
	}
	cmd.AddCommand(newScenarioShowCommand())
	return cmd
}

func renderScenarios(r *output.Renderer, scenarios []*scenario.Scenario) error {
	infos := make([]scenarioInfo, 0, len(scenarios))
	for _, sc := range scenarios {
		infos = append(infos, scenarioInfo{
			Name:        sc.Name,
			Source:      sc.Source,
			Kind:        scenarioKind(sc),
			Description: sc.Description,
		})
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, fmt.Sprintf("Scenarios (%d)", len(infos)))
	rows := make([][]string, 0, len(infos))
	for _, i := range infos {
		rows = append(rows, []string{i.Name, i.Kind, i.Source, i.Description})
	}
	r.Table([]string{"Name", "Kind", "Source", "Description"}, rows)
	return nil
}

func newScenarioShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <scenario>",
		Short: "Print a scenario's source",
		Long: `Print a scenario as it will be played. Declarative scenarios are
printed as normalised YAML; scripts are printed as written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			sc, err := scenario.Open(args[0], cmdCtx.Cfg.ScenariosDir)
			if err != nil {
				return err
			}
			if sc.Scripted() {
				_, err := cmd.OutOrStdout().Write(sc.Script)
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(sc); err != nil {
				return fmt.Errorf("failed to encode %s: %w", sc.Name, err)
			}
			return enc.Close()
		},
	}
}
