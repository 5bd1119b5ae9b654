package game

import (
	"fmt"

	"github.com/leapstack-labs/starfleet/internal/entities"
)

// Action is the verb of an order.
type Action string

// Order actions.
const (
	ActionMove          Action = "move"
	ActionDock          Action = "dock"
	ActionUndock        Action = "undock"
	ActionRepair        Action = "repair"
	ActionAttack        Action = "attack"
	ActionAttackWithAll Action = "attack_all"
	ActionEndTurn       Action = "end_turn"
)

// DefaultMaxVolleys bounds an AttackWithAll order that repeats until the
// target is destroyed.
const DefaultMaxVolleys = 1000

// Order is an instruction to the game. Actor and Target are entity
// references resolved through the game registry.
//
//   - move: Actor to Sector, or every ship of Fleet when Actor is empty
//   - dock: Actor at Target
//   - undock: Actor from Target, or from its current base when Target is empty
//   - repair: Actor
//   - attack: Actor fires on Target
//   - attack_all: every ship of Fleet fires on Target, repeating while
//     UntilDestroyed is set, at most MaxVolleys times
//   - end_turn
type Order struct {
	Action         Action          `json:"action" yaml:"action"`
	Actor          string          `json:"actor,omitempty" yaml:"actor,omitempty"`
	Target         string          `json:"target,omitempty" yaml:"target,omitempty"`
	Fleet          uint            `json:"fleet,omitempty" yaml:"fleet,omitempty"`
	Sector         entities.Sector `json:"sector" yaml:"sector"`
	UntilDestroyed bool            `json:"until_destroyed,omitempty" yaml:"until_destroyed,omitempty"`
	MaxVolleys     int             `json:"max_volleys,omitempty" yaml:"max_volleys,omitempty"`
}

func (o Order) String() string {
	switch o.Action {
	case ActionMove:
		if o.Actor == "" {
			return fmt.Sprintf("move fleet %d to %s", o.Fleet, o.Sector)
		}
		return fmt.Sprintf("move %s to %s", o.Actor, o.Sector)
	case ActionDock:
		return fmt.Sprintf("dock %s at %s", o.Actor, o.Target)
	case ActionUndock:
		return fmt.Sprintf("undock %s", o.Actor)
	case ActionRepair:
		return fmt.Sprintf("repair %s", o.Actor)
	case ActionAttack:
		return fmt.Sprintf("%s attacks %s", o.Actor, o.Target)
	case ActionAttackWithAll:
		return fmt.Sprintf("fleet %d attacks %s", o.Fleet, o.Target)
	default:
		return string(o.Action)
	}
}

// Move orders a ship to a sector.
func Move(ship string, to entities.Sector) Order {
	return Order{Action: ActionMove, Actor: ship, Sector: to}
}

// MoveFleet orders every ship of a fleet to a sector.
func MoveFleet(player uint, to entities.Sector) Order {
	return Order{Action: ActionMove, Fleet: player, Sector: to}
}

// Dock orders a ship to dock at a base.
func Dock(ship, base string) Order {
	return Order{Action: ActionDock, Actor: ship, Target: base}
}

// Undock orders a ship off its current base.
func Undock(ship string) Order {
	return Order{Action: ActionUndock, Actor: ship}
}

// Repair orders a repair tick on a docked ship.
func Repair(ship string) Order {
	return Order{Action: ActionRepair, Actor: ship}
}

// Attack orders a ship to fire on a target.
func Attack(ship, target string) Order {
	return Order{Action: ActionAttack, Actor: ship, Target: target}
}

// AttackWithAll orders a whole fleet to fire on a target.
func AttackWithAll(player uint, target string, untilDestroyed bool) Order {
	return Order{Action: ActionAttackWithAll, Fleet: player, Target: target, UntilDestroyed: untilDestroyed}
}

// EndTurn closes the current turn.
func EndTurn() Order {
	return Order{Action: ActionEndTurn}
}
