package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/starfleet/internal/cli/output"
	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/leapstack-labs/starfleet/internal/state"
)

// renderResult writes the outcome of one played scenario.
func renderResult(r *output.Renderer, res *scenario.Result) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSONLine(res)
	}

	r.Header(2, res.Summary())
	r.KeyValue("Game", res.GameID)
	r.KeyValue("Rejected orders", strconv.Itoa(res.Rejected))
	r.Println("")

	rows := make([][]string, 0, len(res.Entities))
	for _, s := range res.Entities {
		rows = append(rows, []string{
			s.Name,
			string(s.Kind),
			strconv.FormatUint(uint64(s.Player), 10),
			s.Sector.String(),
			formatAmount(s.Health),
			entityState(s),
		})
	}
	r.Table([]string{"Entity", "Kind", "Player", "Sector", "Health", "State"}, rows)
	return nil
}

func entityState(s game.Snapshot) string {
	switch {
	case s.Destroyed:
		return "destroyed"
	case s.Repairing:
		return "repairing"
	case s.Docked:
		return "docked"
	default:
		return "active"
	}
}

// renderGames writes the history table.
func renderGames(r *output.Renderer, games []*state.Game) error {
	if r.EffectiveMode() == output.ModeJSON {
		if games == nil {
			games = []*state.Game{}
		}
		return r.JSON(games)
	}

	r.Header(1, fmt.Sprintf("Games (%d)", len(games)))
	if len(games) == 0 {
		r.Println(r.Muted("No games recorded yet. Try 'starfleet demo'."))
		return nil
	}

	rows := make([][]string, 0, len(games))
	for _, g := range games {
		rows = append(rows, []string{
			g.ID,
			g.Scenario,
			string(g.Status),
			formatWinner(g.Winner),
			strconv.Itoa(g.Turns),
			strconv.Itoa(g.Rejected),
			g.StartedAt.Local().Format(time.DateTime),
		})
	}
	r.Table([]string{"ID", "Scenario", "Status", "Winner", "Turns", "Rejected", "Started"}, rows)
	return nil
}

// gameDetail is the JSON form of show.
type gameDetail struct {
	*state.Game
	Events []game.Event `json:"events"`
}

// renderGame writes one recorded game and its event log.
func renderGame(r *output.Renderer, g *state.Game, events []game.Event) error {
	if r.EffectiveMode() == output.ModeJSON {
		if events == nil {
			events = []game.Event{}
		}
		return r.JSON(gameDetail{Game: g, Events: events})
	}

	r.Header(1, "Game "+g.ID)
	r.KeyValue("Scenario", g.Scenario)
	if g.Source != "" {
		r.KeyValue("Source", g.Source)
	}
	r.KeyValue("Status", string(g.Status))
	r.KeyValue("Winner", formatWinner(g.Winner))
	r.KeyValue("Turns", strconv.Itoa(g.Turns))
	r.KeyValue("Rejected orders", strconv.Itoa(g.Rejected))
	r.KeyValue("Started", g.StartedAt.Local().Format(time.DateTime))
	if g.CompletedAt != nil {
		r.KeyValue("Duration", g.CompletedAt.Sub(g.StartedAt).Round(time.Millisecond).String())
	}
	if g.Error != "" {
		r.KeyValue("Error", g.Error)
	}
	r.Println("")

	r.Header(2, fmt.Sprintf("Events (%d)", len(events)))
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		amount := ""
		if e.Amount != 0 {
			amount = formatAmount(e.Amount)
		}
		rows = append(rows, []string{
			strconv.Itoa(e.Seq),
			strconv.Itoa(e.Turn),
			string(e.Type),
			e.Actor,
			e.Target,
			amount,
			e.Detail,
		})
	}
	r.Table([]string{"Seq", "Turn", "Type", "Actor", "Target", "Amount", "Detail"}, rows)
	return nil
}

// eventSource is the CloudEvents source of events exported by the CLI.
const eventSource = "starfleet/cli"

// writeCloudEvent writes e as one CloudEvents JSON line.
func writeCloudEvent(r *output.Renderer, e game.Event) error {
	ce, err := e.CloudEvent(eventSource)
	if err != nil {
		return err
	}
	return r.JSONLine(ce)
}

func formatWinner(w *uint) string {
	if w == nil {
		return "-"
	}
	return fmt.Sprintf("player %d", *w)
}

func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}
