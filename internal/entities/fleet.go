package entities

import (
	"errors"
	"fmt"
	"slices"
)

// Fleet associates a player with the entities it owns, in the order they
// were added.
type Fleet struct {
	player   Player
	entities []Entity
}

// NewFleet creates an empty fleet for player.
func NewFleet(player Player) *Fleet {
	return &Fleet{player: player}
}

// Player returns the owner of the fleet.
func (f *Fleet) Player() Player { return f.player }

func (f *Fleet) String() string {
	return fmt.Sprintf("fleet of %s", f.player)
}

// AddEntities transfers ownership of es to this fleet. A docked starship
// changing fleet is released from its base first.
func (f *Fleet) AddEntities(es ...Entity) {
	for _, e := range es {
		if e == nil || e.Fleet() == f {
			continue
		}
		if prev := e.Fleet(); prev != nil {
			prev.remove(e)
		}
		if s, ok := e.(*Starship); ok && s.starbase != nil {
			s.starbase.release(s)
		}
		if o, ok := e.(interface{ setFleet(*Fleet) }); ok {
			o.setFleet(f)
		}
		f.entities = append(f.entities, e)
	}
}

// Entities returns every entity in the fleet, destroyed ones included.
func (f *Fleet) Entities() []Entity {
	return slices.Clone(f.entities)
}

// Starships returns the fleet's starships in insertion order.
func (f *Fleet) Starships() []*Starship {
	var ships []*Starship
	for _, e := range f.entities {
		if s, ok := e.(*Starship); ok {
			ships = append(ships, s)
		}
	}
	return ships
}

// Starbases returns the fleet's starbases in insertion order.
func (f *Fleet) Starbases() []*Starbase {
	var bases []*Starbase
	for _, e := range f.entities {
		if b, ok := e.(*Starbase); ok {
			bases = append(bases, b)
		}
	}
	return bases
}

// StarshipAt returns the i-th starship of the fleet.
func (f *Fleet) StarshipAt(i int) (*Starship, bool) {
	ships := f.Starships()
	if i < 0 || i >= len(ships) {
		return nil, false
	}
	return ships[i], true
}

// StarbaseAt returns the i-th starbase of the fleet.
func (f *Fleet) StarbaseAt(i int) (*Starbase, bool) {
	bases := f.Starbases()
	if i < 0 || i >= len(bases) {
		return nil, false
	}
	return bases[i], true
}

// Lookup finds an entity of the fleet by name.
func (f *Fleet) Lookup(name string) (Entity, bool) {
	for _, e := range f.entities {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// DockStarshipsTo docks each ship at base and returns how many docked.
// Refusals are joined into the returned error.
func (f *Fleet) DockStarshipsTo(base *Starbase, ships ...*Starship) (int, error) {
	if base == nil {
		return 0, ErrNoTarget
	}
	var (
		docked int
		errs   []error
	)
	for _, s := range ships {
		if err := base.DockStarship(s); err != nil {
			errs = append(errs, err)
			continue
		}
		docked++
	}
	return docked, errors.Join(errs...)
}

// MoveAllEntities moves every starship able to move into sector. Starbases
// are stationary and destroyed ships are skipped silently.
func (f *Fleet) MoveAllEntities(sector Sector) (int, error) {
	var (
		moved int
		errs  []error
	)
	for _, s := range f.Starships() {
		if s.IsDestroyed() {
			continue
		}
		if err := s.MoveTo(sector); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
			continue
		}
		moved++
	}
	return moved, errors.Join(errs...)
}

// Hit records one starship's contribution to a volley.
type Hit struct {
	Attacker *Starship
	Damage   float64
}

// Volley is the outcome of AttackWithAll.
type Volley struct {
	Hits   []Hit
	Damage float64
}

// AttackWithAll has every eligible starship attack target in turn. Ships
// that are destroyed, docked, repairing or out of sector hold fire. Once
// the target is destroyed the remaining ships stand down. ErrNoAttackers is
// returned when no ship fired.
func (f *Fleet) AttackWithAll(target Entity) (Volley, error) {
	var v Volley
	if target == nil {
		return v, ErrNoTarget
	}

	var errs []error
	for _, s := range f.Starships() {
		if s.IsDestroyed() {
			continue
		}
		if target.IsDestroyed() {
			break
		}
		damage, err := s.Attack(target)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
			continue
		}
		v.Hits = append(v.Hits, Hit{Attacker: s, Damage: damage})
		v.Damage += damage
	}

	if len(v.Hits) == 0 {
		return v, errors.Join(append([]error{ErrNoAttackers}, errs...)...)
	}
	return v, nil
}

// TickRepairs advances every repairing starship by one repair tick and
// returns the ships repaired.
func (f *Fleet) TickRepairs() []*Starship {
	var repaired []*Starship
	for _, s := range f.Starships() {
		if !s.Repairing() {
			continue
		}
		if err := s.Repair(); err == nil {
			repaired = append(repaired, s)
		}
	}
	return repaired
}

// IsDefeated reports whether the fleet has no surviving entity.
func (f *Fleet) IsDefeated() bool {
	for _, e := range f.entities {
		if !e.IsDestroyed() {
			return false
		}
	}
	return true
}

func (f *Fleet) remove(e Entity) {
	f.entities = slices.DeleteFunc(f.entities, func(x Entity) bool { return x == e })
}
