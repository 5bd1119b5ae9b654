// Package registry maps the names used in orders and scenarios to the
// entities of a game.
package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/starfleet/internal/entities"
)

// ErrDuplicateName is returned when a name is already taken in the game.
var ErrDuplicateName = errors.New("entity name already registered")

// EntityRegistry resolves entity names to entities.
type EntityRegistry struct {
	mu sync.RWMutex

	// byName maps unqualified names: "a1" → entity
	byName map[string]entities.Entity

	// byID maps entity IDs: "0190..." → entity
	byID map[string]entities.Entity
}

// NewEntityRegistry creates a new empty registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{
		byName: make(map[string]entities.Entity),
		byID:   make(map[string]entities.Entity),
	}
}

// Register adds an entity under its name and ID.
func (r *EntityRegistry) Register(e entities.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[e.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, e.Name())
	}
	r.byName[e.Name()] = e
	r.byID[e.ID()] = e
	return nil
}

// RegisterAll adds every entity or none of them. Names must be free in the
// registry and distinct within es.
func (r *EntityRegistry) RegisterAll(es ...entities.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(es))
	for _, e := range es {
		if _, ok := r.byName[e.Name()]; ok || seen[e.Name()] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, e.Name())
		}
		seen[e.Name()] = true
	}
	for _, e := range es {
		r.byName[e.Name()] = e
		r.byID[e.ID()] = e
	}
	return nil
}

// Resolve finds an entity by name, ID or player-qualified name.
//
// Qualified names take the form "<player>.<name>" or "p<player>.<name>" and
// only resolve when the entity belongs to that player's fleet.
func (r *EntityRegistry) Resolve(ref string) (entities.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// 1. Exact name
	if e, ok := r.byName[ref]; ok {
		return e, true
	}

	// 2. Entity ID
	if e, ok := r.byID[ref]; ok {
		return e, true
	}

	// 3. Player-qualified name
	if player, name, ok := strings.Cut(ref, "."); ok {
		num, err := strconv.ParseUint(strings.TrimPrefix(player, "p"), 10, 32)
		if err != nil {
			return nil, false
		}
		e, ok := r.byName[name]
		if !ok || e.Fleet() == nil || e.Fleet().Player().Number != uint(num) {
			return nil, false
		}
		return e, true
	}

	return nil, false
}

// Starship resolves ref and checks that it names a starship.
func (r *EntityRegistry) Starship(ref string) (*entities.Starship, bool) {
	e, ok := r.Resolve(ref)
	if !ok {
		return nil, false
	}
	s, ok := e.(*entities.Starship)
	return s, ok
}

// Starbase resolves ref and checks that it names a starbase.
func (r *EntityRegistry) Starbase(ref string) (*entities.Starbase, bool) {
	e, ok := r.Resolve(ref)
	if !ok {
		return nil, false
	}
	b, ok := e.(*entities.Starbase)
	return b, ok
}

// Count returns the number of registered entities.
func (r *EntityRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
