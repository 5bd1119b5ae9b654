package game

import "errors"

var (
	// ErrRejected marks an order that was well formed but broke a game rule.
	// The rule violation from the entities package is wrapped alongside it.
	ErrRejected = errors.New("order rejected")

	ErrUnknownAction  = errors.New("unknown action")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrUnknownFleet   = errors.New("unknown fleet")
	ErrWrongKind      = errors.New("entity has the wrong kind")
	ErrDuplicateFleet = errors.New("fleet already in game")
	ErrGameOver       = errors.New("game is over")
)
