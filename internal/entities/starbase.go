package entities

import (
	"fmt"
	"log/slog"
	"slices"
)

// Starbase base values.
const (
	StarbaseMaxDefence = 20.0
	StarbaseMaxHealth  = 500.0
)

// Starbase is a stationary entity. Ships of its own fleet dock at it to
// repair, and every live docked ship adds to its defence.
type Starbase struct {
	base

	docked []*Starship
}

var _ Entity = (*Starbase)(nil)

// NewStarbase creates an empty starbase at full health.
func NewStarbase(position Sector, opts ...Option) *Starbase {
	return &Starbase{
		base: newBase(KindStarbase, StarbaseMaxHealth, StarbaseMaxDefence, position, opts),
	}
}

// DefenceStrength is the base's own defence, scaled by health, plus the
// combined defence of live docked ships weighted by how many are docked.
func (b *Starbase) DefenceStrength() float64 {
	live := b.liveDocked()
	dockedTotal := b.DockedShipsStrength(live)

	defence := (b.maxDefence * (b.health / b.maxHealth)) + (dockedTotal * (float64(len(live)) / b.maxDefence))
	b.logger.Debug("starbase defence", slog.Float64("defence", defence), slog.Int("docked", len(live)))
	return defence
}

// DockedShipsStrength sums the defence of the non-nil, non-destroyed ships.
func (b *Starbase) DockedShipsStrength(ships []*Starship) float64 {
	var total float64
	for _, s := range ships {
		if s == nil || s.IsDestroyed() {
			continue
		}
		total += s.DefenceStrength()
	}
	return total
}

// TakeDamage applies an attack. A destroyed base releases every docked ship.
func (b *Starbase) TakeDamage(attack float64) float64 {
	if b.IsDestroyed() {
		return 0
	}

	applied := b.applyDamage(attack, b.DefenceStrength())
	if b.IsDestroyed() {
		for _, s := range slices.Clone(b.docked) {
			b.release(s)
		}
		b.logger.Info("starbase destroyed", slog.Float64("damage", applied))
		return applied
	}

	b.logger.Debug("starbase damaged", slog.Float64("damage", applied), slog.Float64("health", b.health))
	return applied
}

// DockStarship docks s at this base. The ship must be alive, undocked, in
// the same fleet and in the same sector.
func (b *Starbase) DockStarship(s *Starship) error {
	if s == nil {
		return ErrNoTarget
	}
	if b.IsDestroyed() {
		b.logger.Debug("destroyed starbase cannot dock starships", slog.String("starship", s.Name()))
		return fmt.Errorf("%s: %w", b, ErrDestroyed)
	}
	if !sameFleet(s.fleet, b.fleet) {
		b.logger.Debug("cannot dock starship from another fleet", slog.String("starship", s.Name()))
		return fmt.Errorf("dock %s at %s: %w", s, b, ErrDifferentFleet)
	}
	if s.IsDestroyed() {
		b.logger.Debug("destroyed starship cannot dock", slog.String("starship", s.Name()))
		return fmt.Errorf("%s: %w", s, ErrDestroyed)
	}
	if s.position != b.position {
		b.logger.Debug("starship not in starbase sector", slog.String("starship", s.Name()))
		return fmt.Errorf("dock %s at %s: %w", s, b, ErrDifferentSector)
	}
	if s.Docked() || slices.Contains(b.docked, s) {
		b.logger.Debug("starship already docked", slog.String("starship", s.Name()))
		return fmt.Errorf("%s: %w", s, ErrAlreadyDocked)
	}

	b.docked = append(b.docked, s)
	s.starbase = b
	b.logger.Info("docked starship", slog.String("starship", s.Name()))
	return nil
}

// UndockStarship undocks s from this base. A repairing ship stays docked.
func (b *Starbase) UndockStarship(s *Starship) error {
	if s == nil {
		return ErrNoTarget
	}
	if b.IsDestroyed() {
		b.logger.Debug("destroyed starbase cannot undock starships", slog.String("starship", s.Name()))
		return fmt.Errorf("%s: %w", b, ErrDestroyed)
	}
	if !sameFleet(s.fleet, b.fleet) {
		b.logger.Debug("cannot undock starship from another fleet", slog.String("starship", s.Name()))
		return fmt.Errorf("undock %s from %s: %w", s, b, ErrDifferentFleet)
	}
	if s.starbase != b || !slices.Contains(b.docked, s) {
		b.logger.Debug("starship is not docked here", slog.String("starship", s.Name()))
		return fmt.Errorf("undock %s from %s: %w", s, b, ErrNotDocked)
	}
	if s.repairing {
		return fmt.Errorf("undock %s: %w", s, ErrRepairing)
	}

	b.release(s)
	b.logger.Info("undocked starship", slog.String("starship", s.Name()))
	return nil
}

// DockedStarships returns a copy of the docked ships in docking order.
func (b *Starbase) DockedStarships() []*Starship {
	return slices.Clone(b.docked)
}

// release removes s from the docked list without rule checks.
func (b *Starbase) release(s *Starship) {
	b.docked = slices.DeleteFunc(b.docked, func(d *Starship) bool { return d == s })
	if s.starbase == b {
		s.starbase = nil
		s.repairing = false
	}
}

func (b *Starbase) liveDocked() []*Starship {
	live := make([]*Starship, 0, len(b.docked))
	for _, s := range b.docked {
		if s != nil && !s.IsDestroyed() {
			live = append(live, s)
		}
	}
	return live
}
