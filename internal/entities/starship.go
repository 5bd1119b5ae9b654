package entities

import (
	"fmt"
	"log/slog"
	"math"
)

// Starship base values shared by every ship.
const (
	StarshipMaxAttack  = 30.0
	StarshipMaxDefence = 10.0
	StarshipMaxHealth  = 100.0
	StarshipMaxCrew    = 10
)

// RepairStep is the fraction of max health restored by one repair tick.
const RepairStep = 0.25

// Starship is a mobile combat unit. It can attack, move between sectors and
// dock at a starbase of its own fleet to repair.
type Starship struct {
	base

	crew      int
	repairing bool
	starbase  *Starbase
}

var _ Entity = (*Starship)(nil)

// NewStarship creates an undocked, fully crewed ship at full health.
func NewStarship(position Sector, opts ...Option) *Starship {
	return &Starship{
		base: newBase(KindStarship, StarshipMaxHealth, StarshipMaxDefence, position, opts),
		crew: StarshipMaxCrew,
	}
}

// Crew returns the current crew count.
func (s *Starship) Crew() int { return s.crew }

// Docked reports whether the ship is docked at a starbase.
func (s *Starship) Docked() bool { return s.starbase != nil }

// Starbase returns the base the ship is docked at.
func (s *Starship) Starbase() (*Starbase, bool) {
	return s.starbase, s.starbase != nil
}

// Repairing reports whether the ship is part way through a repair.
func (s *Starship) Repairing() bool { return s.repairing }

// DefenceStrength scales the maximum defence by combined health and crew.
func (s *Starship) DefenceStrength() float64 {
	return s.maxDefence * ((s.health + float64(s.crew)) / (s.maxHealth + StarshipMaxCrew))
}

// AttackStrength scales the maximum attack by health.
func (s *Starship) AttackStrength() float64 {
	return StarshipMaxAttack * (s.health / s.maxHealth)
}

// TakeDamage applies an attack and kills crew in proportion to the damage.
func (s *Starship) TakeDamage(attack float64) float64 {
	if s.IsDestroyed() {
		return 0
	}

	applied := s.applyDamage(attack, s.DefenceStrength())
	lost := s.CalculateCrewLost(applied)

	if s.IsDestroyed() {
		s.crew = 0
		s.repairing = false
		if s.starbase != nil {
			s.starbase.release(s)
		}
		s.logger.Info("starship destroyed", slog.Float64("damage", applied))
		return applied
	}

	s.setCrew(s.crew - lost)
	s.logger.Debug("starship damaged",
		slog.Float64("damage", applied),
		slog.Int("crew_lost", lost),
		slog.Float64("health", s.health))
	return applied
}

// CalculateCrewLost returns the crew killed by damage, proportional to the
// share of max health it represents.
func (s *Starship) CalculateCrewLost(damage float64) int {
	if damage <= 0 {
		return 0
	}
	return int(math.Floor(float64(s.crew) * damage / s.maxHealth))
}

// DockTo docks the ship at base.
func (s *Starship) DockTo(base *Starbase) error {
	if base == nil {
		return ErrNoTarget
	}
	return base.DockStarship(s)
}

// UndockFrom undocks the ship from base.
func (s *Starship) UndockFrom(base *Starbase) error {
	if base == nil {
		return ErrNoTarget
	}
	return base.UndockStarship(s)
}

// MoveTo moves the ship to another sector.
func (s *Starship) MoveTo(sector Sector) error {
	if err := s.ready(); err != nil {
		return err
	}
	from := s.position
	s.position = sector
	s.logger.Debug("starship moved", slog.String("from", from.String()), slog.String("to", sector.String()))
	return nil
}

// Repair runs one repair tick, raising health to the next RepairStep
// threshold. Only docked ships repair. The ship stays in the repairing
// state, unable to act, until it is back at full health.
func (s *Starship) Repair() error {
	if s.IsDestroyed() {
		return ErrDestroyed
	}
	if !s.Docked() {
		s.logger.Debug("cannot repair undocked starship")
		return ErrNotDocked
	}
	if s.health >= s.maxHealth {
		s.repairing = false
		return nil
	}

	step := s.maxHealth * RepairStep
	s.setHealth((math.Floor(s.health/step) + 1) * step)
	s.repairing = s.health < s.maxHealth

	s.logger.Info("starship repaired", slog.Float64("health", s.health), slog.Bool("repairing", s.repairing))
	return nil
}

// Attack fires on target and returns the damage it took.
func (s *Starship) Attack(target Entity) (float64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if target == nil {
		return 0, ErrNoTarget
	}
	if target.IsDestroyed() {
		return 0, fmt.Errorf("%s: %w", target, ErrTargetDestroyed)
	}
	if sameFleet(s.fleet, target.Fleet()) {
		return 0, fmt.Errorf("%s: %w", target, ErrFriendlyFire)
	}
	if s.position != target.Position() {
		return 0, fmt.Errorf("%s at %s, target at %s: %w", s, s.position, target.Position(), ErrDifferentSector)
	}

	damage := target.TakeDamage(s.AttackStrength())
	s.logger.Info("starship attacked",
		slog.String("target", target.Name()),
		slog.Float64("damage", damage),
		slog.Bool("destroyed", target.IsDestroyed()))
	return damage, nil
}

// ready checks that the ship is free to act.
func (s *Starship) ready() error {
	switch {
	case s.IsDestroyed():
		return ErrDestroyed
	case s.repairing:
		return ErrRepairing
	case s.Docked():
		return ErrDocked
	}
	return nil
}

// setCrew clamps newCrew to [1, StarshipMaxCrew].
func (s *Starship) setCrew(newCrew int) {
	s.crew = min(StarshipMaxCrew, max(1, newCrew))
}
