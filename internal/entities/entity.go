// Package entities models the units of a game: starships and starbases,
// the fleets that own them and the sectors they occupy.
//
// Entities are not safe for concurrent use. A game serialises access to
// every entity it owns.
package entities

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Kind identifies the concrete type of an Entity.
type Kind string

// Entity kinds.
const (
	KindStarship Kind = "starship"
	KindStarbase Kind = "starbase"
)

// MinimumDamage is the least damage any hit inflicts, however strong the
// target's defence.
const MinimumDamage = 5.0

// Entity is the behaviour shared by starships and starbases.
type Entity interface {
	ID() string
	Name() string
	Kind() Kind
	Health() float64
	MaxHealth() float64
	DefenceStrength() float64
	Position() Sector
	Fleet() *Fleet
	IsDestroyed() bool

	// TakeDamage applies an incoming attack and returns the damage
	// actually subtracted from health.
	TakeDamage(attack float64) float64

	String() string
}

// Option configures a new entity.
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
}

// WithName sets the entity name used in logs and order lookups.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger for docking and combat decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// base holds the state common to all entities.
type base struct {
	id         string
	name       string
	kind       Kind
	maxHealth  float64
	maxDefence float64
	health     float64
	position   Sector
	fleet      *Fleet
	logger     *slog.Logger
}

func newBase(kind Kind, maxHealth, maxDefence float64, position Sector, opts []Option) base {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	idStr := id.String()

	name := o.name
	if name == "" {
		// The tail of a v7 UUID is random; the head is a timestamp.
		name = fmt.Sprintf("%s-%s", kind, idStr[len(idStr)-8:])
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return base{
		id:         idStr,
		name:       name,
		kind:       kind,
		maxHealth:  maxHealth,
		maxDefence: maxDefence,
		health:     maxHealth,
		position:   position,
		logger:     logger.With(slog.String("entity", name)),
	}
}

// ID returns the unique identifier of the entity.
func (b *base) ID() string { return b.id }

// Name returns the human-readable name of the entity.
func (b *base) Name() string { return b.name }

// Kind returns the entity kind.
func (b *base) Kind() Kind { return b.kind }

// Health returns the current health.
func (b *base) Health() float64 { return b.health }

// MaxHealth returns the health of an undamaged entity.
func (b *base) MaxHealth() float64 { return b.maxHealth }

// Position returns the sector the entity occupies.
func (b *base) Position() Sector { return b.position }

// Fleet returns the owning fleet, or nil for an unowned entity.
func (b *base) Fleet() *Fleet { return b.fleet }

// IsDestroyed reports whether health has reached zero.
func (b *base) IsDestroyed() bool { return b.health <= 0 }

func (b *base) String() string {
	return fmt.Sprintf("%s %s", b.kind, b.name)
}

func (b *base) setFleet(f *Fleet) { b.fleet = f }

// setHealth clamps newHealth to [0, maxHealth].
func (b *base) setHealth(newHealth float64) {
	b.health = math.Min(b.maxHealth, math.Max(0.0, newHealth))
}

// applyDamage subtracts max(MinimumDamage, attack-defence) from health and
// returns the amount removed, which never exceeds the remaining health.
func (b *base) applyDamage(attack, defence float64) float64 {
	if b.IsDestroyed() {
		return 0
	}
	net := math.Max(MinimumDamage, attack-defence)
	if net > b.health {
		net = b.health
	}
	b.setHealth(b.health - net)
	return net
}

// sameFleet reports whether two owners match. Two unowned entities share a fleet.
func sameFleet(a, b *Fleet) bool {
	return a == b
}
