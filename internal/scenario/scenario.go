// Package scenario loads battle descriptions and plays them through the game
// engine.
//
// A scenario is either declarative YAML, listing fleets and the orders of
// each turn, or a Starlark script that drives the game through builtins and
// can react to its state.
package scenario

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/starfleet/internal/entities"
	"github.com/leapstack-labs/starfleet/internal/game"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a scenario that fails validation.
var ErrInvalid = errors.New("invalid scenario")

// Scenario describes a battle. Scripted scenarios carry their source in
// Script and leave Fleets and Turns empty.
type Scenario struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Fleets      []FleetSpec `yaml:"fleets" json:"fleets,omitempty"`
	Turns       []Turn      `yaml:"turns" json:"turns,omitempty"`

	// Source is the file path or builtin reference the scenario came from.
	Source string `yaml:"-" json:"source,omitempty"`
	// Script holds Starlark source for scripted scenarios.
	Script []byte `yaml:"-" json:"-"`
}

// Scripted reports whether the scenario is a Starlark script.
func (s *Scenario) Scripted() bool { return len(s.Script) > 0 }

// FleetSpec lists the entities a player starts with.
type FleetSpec struct {
	Player    uint         `yaml:"player" json:"player"`
	Starbases []EntitySpec `yaml:"starbases,omitempty" json:"starbases,omitempty"`
	Starships []EntitySpec `yaml:"starships,omitempty" json:"starships,omitempty"`
}

// EntitySpec places a named entity.
type EntitySpec struct {
	Name   string `yaml:"name" json:"name"`
	Sector Coords `yaml:"sector" json:"sector"`
}

// Turn is the list of orders issued during one turn. The turn is closed
// automatically after its last order.
type Turn struct {
	Orders []OrderSpec `yaml:"orders" json:"orders"`
}

// OrderSpec is the serialized form of a game.Order.
type OrderSpec struct {
	Action     string  `yaml:"action" json:"action"`
	Actor      string  `yaml:"actor,omitempty" json:"actor,omitempty"`
	Target     string  `yaml:"target,omitempty" json:"target,omitempty"`
	Fleet      uint    `yaml:"fleet,omitempty" json:"fleet,omitempty"`
	Sector     *Coords `yaml:"sector,omitempty" json:"sector,omitempty"`
	Until      string  `yaml:"until,omitempty" json:"until,omitempty"`
	MaxVolleys int     `yaml:"max_volleys,omitempty" json:"max_volleys,omitempty"`
}

// UntilDestroyed is the only supported value of OrderSpec.Until.
const UntilDestroyed = "destroyed"

var knownActions = []game.Action{
	game.ActionMove,
	game.ActionDock,
	game.ActionUndock,
	game.ActionRepair,
	game.ActionAttack,
	game.ActionAttackWithAll,
	game.ActionEndTurn,
}

// Order converts the serialized order into a game.Order.
func (o OrderSpec) Order() (game.Order, error) {
	action := game.Action(strings.ToLower(strings.TrimSpace(o.Action)))
	if !slices.Contains(knownActions, action) {
		return game.Order{}, fmt.Errorf("%w: %q", game.ErrUnknownAction, o.Action)
	}

	order := game.Order{
		Action:     action,
		Actor:      o.Actor,
		Target:     o.Target,
		Fleet:      o.Fleet,
		MaxVolleys: o.MaxVolleys,
	}
	if o.Sector != nil {
		order.Sector = o.Sector.Sector()
	}

	switch o.Until {
	case "":
	case UntilDestroyed:
		order.UntilDestroyed = true
	default:
		return game.Order{}, fmt.Errorf("unsupported until %q (want %q)", o.Until, UntilDestroyed)
	}

	if err := checkOrder(o, order); err != nil {
		return game.Order{}, err
	}
	return order, nil
}

// checkOrder verifies that each action has the fields it needs.
func checkOrder(spec OrderSpec, o game.Order) error {
	need := func(ok bool, field string) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%s order requires %s", o.Action, field)
	}

	switch o.Action {
	case game.ActionMove:
		if err := need(spec.Sector != nil, "sector"); err != nil {
			return err
		}
		return need(o.Actor != "" || o.Fleet != 0, "actor or fleet")
	case game.ActionDock:
		if err := need(o.Actor != "", "actor"); err != nil {
			return err
		}
		return need(o.Target != "", "target")
	case game.ActionUndock, game.ActionRepair:
		return need(o.Actor != "", "actor")
	case game.ActionAttack:
		if err := need(o.Actor != "", "actor"); err != nil {
			return err
		}
		return need(o.Target != "", "target")
	case game.ActionAttackWithAll:
		if err := need(o.Fleet != 0, "fleet"); err != nil {
			return err
		}
		return need(o.Target != "", "target")
	}
	return nil
}

// Coords is a sector written either as [x, y] or as {x: .., y: ..}.
type Coords entities.Sector

// Sector returns the coordinates as an entities.Sector.
func (c Coords) Sector() entities.Sector { return entities.Sector(c) }

// UnmarshalYAML accepts both the flow sequence and the mapping form.
func (c *Coords) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var xy []int
		if err := node.Decode(&xy); err != nil {
			return fmt.Errorf("line %d: sector: %w", node.Line, err)
		}
		if len(xy) != 2 {
			return fmt.Errorf("line %d: sector needs exactly two coordinates, got %d", node.Line, len(xy))
		}
		*c = Coords{X: xy[0], Y: xy[1]}
		return nil
	case yaml.MappingNode:
		var s entities.Sector
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("line %d: sector: %w", node.Line, err)
		}
		*c = Coords(s)
		return nil
	default:
		return fmt.Errorf("line %d: sector must be [x, y] or {x, y}", node.Line)
	}
}

// MarshalYAML writes the compact [x, y] form.
func (c Coords) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range []int{c.X, c.Y} {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(v)})
	}
	return node, nil
}

// Validate checks fleets, entity names and orders. All problems are
// reported together.
func (s *Scenario) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}

	if s.Scripted() {
		return wrapInvalid(s, errs)
	}

	if len(s.Fleets) == 0 {
		errs = append(errs, errors.New("at least one fleet is required"))
	}

	players := make(map[uint]bool)
	names := make(map[string]bool)
	for i, f := range s.Fleets {
		if f.Player == 0 {
			errs = append(errs, fmt.Errorf("fleets[%d]: player must be positive", i))
		}
		if players[f.Player] {
			errs = append(errs, fmt.Errorf("fleets[%d]: duplicate player %d", i, f.Player))
		}
		players[f.Player] = true

		for _, e := range slices.Concat(f.Starbases, f.Starships) {
			switch {
			case e.Name == "":
				errs = append(errs, fmt.Errorf("fleets[%d]: entity without a name", i))
			case names[e.Name]:
				errs = append(errs, fmt.Errorf("fleets[%d]: duplicate entity name %q", i, e.Name))
			}
			names[e.Name] = true
		}
	}

	for i, t := range s.Turns {
		for j, o := range t.Orders {
			if _, err := o.Order(); err != nil {
				errs = append(errs, fmt.Errorf("turns[%d].orders[%d]: %w", i, j, err))
			}
		}
	}

	return wrapInvalid(s, errs)
}

func wrapInvalid(s *Scenario, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	label := s.Name
	if label == "" {
		label = s.Source
	}
	return fmt.Errorf("%w %s: %w", ErrInvalid, label, errors.Join(errs...))
}
