package entities

import "errors"

// Rule violations returned by entity operations. Callers match them with errors.Is.
var (
	ErrDestroyed       = errors.New("entity is destroyed")
	ErrTargetDestroyed = errors.New("target is destroyed")
	ErrDifferentFleet  = errors.New("entities belong to different fleets")
	ErrDifferentSector = errors.New("entities are in different sectors")
	ErrFriendlyFire    = errors.New("cannot attack an entity of the same fleet")
	ErrAlreadyDocked   = errors.New("starship is already docked")
	ErrNotDocked       = errors.New("starship is not docked")
	ErrDocked          = errors.New("starship is docked")
	ErrRepairing       = errors.New("starship is repairing")
	ErrNoTarget        = errors.New("no target")
	ErrNoAttackers     = errors.New("no starship could attack")
)
