package game

import "context"

// Observer receives every event of a game, in order, as it is emitted.
type Observer interface {
	OnEvent(ctx context.Context, e Event) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, e Event) error

// OnEvent calls f.
func (f ObserverFunc) OnEvent(ctx context.Context, e Event) error {
	return f(ctx, e)
}
