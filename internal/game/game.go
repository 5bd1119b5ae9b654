// Package game runs a match between fleets. It turns orders into entity
// operations, keeps the turn counter and publishes an ordered event log to
// observers.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/starfleet/internal/entities"
	"github.com/leapstack-labs/starfleet/internal/registry"
)

// Config holds game configuration.
type Config struct {
	// ID identifies the game (generated when empty)
	ID string
	// Name is a label for the game, usually the scenario name
	Name string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Observers receive every event
	Observers []Observer
	// Clock stamps events (optional, defaults to time.Now)
	Clock func() time.Time
}

// Game is a single match. It is safe for concurrent use; observers are
// called with the game lock held and must not call back into the game.
type Game struct {
	mu sync.Mutex

	id     string
	name   string
	logger *slog.Logger
	clock  func() time.Time

	registry  *registry.EntityRegistry
	fleets    []*entities.Fleet
	observers []Observer
	events    []Event

	seq     int
	turn    int
	started bool
	over    bool
	winner  *entities.Player
}

// New creates a game with no fleets on turn 1.
func New(cfg Config) *Game {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	id := cfg.ID
	if id == "" {
		u, err := uuid.NewV7()
		if err != nil {
			u = uuid.New()
		}
		id = u.String()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Game{
		id:        id,
		name:      cfg.Name,
		logger:    logger.With(slog.String("game", id)),
		clock:     clock,
		registry:  registry.NewEntityRegistry(),
		observers: slices.Clone(cfg.Observers),
		turn:      1,
	}
}

// ID returns the game identifier.
func (g *Game) ID() string { return g.id }

// Name returns the game label.
func (g *Game) Name() string { return g.name }

// Turn returns the current turn number.
func (g *Game) Turn() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

// Over reports whether a winner (or a draw) has been decided.
func (g *Game) Over() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over
}

// Winner returns the winning player once the game is over. A draw, where
// every fleet was defeated, has no winner.
func (g *Game) Winner() (entities.Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.winner == nil {
		return entities.Player{}, false
	}
	return *g.winner, true
}

// Events returns a copy of the event log.
func (g *Game) Events() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.events)
}

// AddObserver subscribes o to events emitted from now on.
func (g *Game) AddObserver(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, o)
}

// Fleets returns the fleets in the order they joined.
func (g *Game) Fleets() []*entities.Fleet {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.fleets)
}

// Fleet returns the fleet of player.
func (g *Game) Fleet(player uint) (*entities.Fleet, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fleetLocked(player)
}

// Lookup resolves an entity reference.
func (g *Game) Lookup(ref string) (entities.Entity, bool) {
	return g.registry.Resolve(ref)
}

// AddFleet adds f and registers the entities it already owns.
func (g *Game) AddFleet(f *entities.Fleet) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.fleetLocked(f.Player().Number); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFleet, f.Player())
	}
	if err := g.registry.RegisterAll(f.Entities()...); err != nil {
		return err
	}
	g.fleets = append(g.fleets, f)
	g.logger.Debug("fleet joined", slog.Uint64("player", uint64(f.Player().Number)), slog.Int("entities", len(f.Entities())))
	return nil
}

// Spawn adds e to the fleet of player, creating the fleet if needed.
func (g *Game) Spawn(player uint, e entities.Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.registry.Register(e); err != nil {
		return err
	}
	f, ok := g.fleetLocked(player)
	if !ok {
		f = entities.NewFleet(entities.Player{Number: player})
		g.fleets = append(g.fleets, f)
	}
	f.AddEntities(e)
	g.logger.Debug("entity spawned", slog.String("entity", e.Name()), slog.Uint64("player", uint64(player)))
	return nil
}

// Start emits the game_started event. Otherwise the game starts with the
// first event an order produces.
func (g *Game) Start(ctx context.Context) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b batch
	g.startLocked(ctx, &b)
	return b.events
}

// Apply executes one order and returns the events it produced.
//
// Malformed orders naming an unknown action, entity or fleet fail without
// emitting any event.
// Orders that break a game rule emit order_rejected and return an error
// matching ErrRejected and the underlying rule error; the game continues.
func (g *Game) Apply(ctx context.Context, o Order) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.over {
		return nil, ErrGameOver
	}

	var (
		b   batch
		err error
	)
	switch o.Action {
	case ActionMove:
		err = g.move(ctx, &b, o)
	case ActionDock:
		err = g.dock(ctx, &b, o)
	case ActionUndock:
		err = g.undock(ctx, &b, o)
	case ActionRepair:
		err = g.repair(ctx, &b, o)
	case ActionAttack:
		err = g.attack(ctx, &b, o)
	case ActionAttackWithAll:
		err = g.attackWithAll(ctx, &b, o)
	case ActionEndTurn:
		g.endTurn(ctx, &b)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, o.Action)
	}

	if err != nil {
		if errors.Is(err, ErrRejected) {
			g.logger.Debug("order rejected", slog.String("order", o.String()), slog.Any("error", err))
		}
		return b.events, err
	}

	g.checkVictory(ctx, &b)
	g.logger.Debug("order applied", slog.String("order", o.String()), slog.Int("events", len(b.events)))
	return b.events, nil
}

// Snapshot describes one entity at a point in time.
type Snapshot struct {
	Name      string          `json:"name"`
	Kind      entities.Kind   `json:"kind"`
	Player    uint            `json:"player"`
	Sector    entities.Sector `json:"sector"`
	Health    float64         `json:"health"`
	Defence   float64         `json:"defence"`
	Crew      int             `json:"crew,omitempty"`
	Docked    bool            `json:"docked,omitempty"`
	Repairing bool            `json:"repairing,omitempty"`
	Destroyed bool            `json:"destroyed,omitempty"`
}

// Snapshot returns the state of every entity, fleet by fleet.
func (g *Game) Snapshot() []Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Snapshot
	for _, f := range g.fleets {
		for _, e := range f.Entities() {
			s := Snapshot{
				Name:      e.Name(),
				Kind:      e.Kind(),
				Player:    f.Player().Number,
				Sector:    e.Position(),
				Health:    e.Health(),
				Defence:   e.DefenceStrength(),
				Destroyed: e.IsDestroyed(),
			}
			if ship, ok := e.(*entities.Starship); ok {
				s.Crew = ship.Crew()
				s.Docked = ship.Docked()
				s.Repairing = ship.Repairing()
			}
			out = append(out, s)
		}
	}
	return out
}

// batch collects the events of one call.
type batch struct {
	events []Event
}

func (g *Game) fleetLocked(player uint) (*entities.Fleet, bool) {
	for _, f := range g.fleets {
		if f.Player().Number == player {
			return f, true
		}
	}
	return nil, false
}

func (g *Game) startLocked(ctx context.Context, b *batch) {
	if g.started {
		return
	}
	g.started = true
	g.record(ctx, b, Event{
		Type:   EventGameStarted,
		Detail: fmt.Sprintf("%d fleets, %d entities", len(g.fleets), g.registry.Count()),
	})
}

// emit starts the game if needed and records e.
func (g *Game) emit(ctx context.Context, b *batch, e Event) {
	g.startLocked(ctx, b)
	g.record(ctx, b, e)
}

// record stamps e, appends it to the log and notifies observers.
func (g *Game) record(ctx context.Context, b *batch, e Event) {
	g.seq++
	e.GameID = g.id
	e.Seq = g.seq
	e.Turn = g.turn
	e.Time = g.clock().UTC()

	g.events = append(g.events, e)
	b.events = append(b.events, e)

	for _, o := range g.observers {
		if err := o.OnEvent(ctx, e); err != nil {
			g.logger.Warn("observer failed", slog.Int("seq", e.Seq), slog.Any("error", err))
		}
	}
}

// reject records a rule violation and wraps it for the caller.
func (g *Game) reject(ctx context.Context, b *batch, o Order, actor string, cause error) error {
	g.emit(ctx, b, Event{
		Type:   EventOrderRejected,
		Actor:  actor,
		Target: o.Target,
		Detail: fmt.Sprintf("%s: %v", o.Action, cause),
	})
	return fmt.Errorf("%w: %s: %w", ErrRejected, o, cause)
}

func (g *Game) starship(ref string) (*entities.Starship, error) {
	if s, ok := g.registry.Starship(ref); ok {
		return s, nil
	}
	e, err := g.target(ref)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s is not a starship", ErrWrongKind, e)
}

func (g *Game) starbase(ref string) (*entities.Starbase, error) {
	if b, ok := g.registry.Starbase(ref); ok {
		return b, nil
	}
	e, err := g.target(ref)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s is not a starbase", ErrWrongKind, e)
}

func (g *Game) target(ref string) (entities.Entity, error) {
	e, ok := g.registry.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, ref)
	}
	return e, nil
}

func (g *Game) move(ctx context.Context, b *batch, o Order) error {
	if o.Actor != "" {
		ship, err := g.starship(o.Actor)
		if err != nil {
			return err
		}
		from := ship.Position()
		if err := ship.MoveTo(o.Sector); err != nil {
			return g.reject(ctx, b, o, ship.Name(), err)
		}
		g.emit(ctx, b, Event{Type: EventMoved, Actor: ship.Name(), Detail: fmt.Sprintf("%s -> %s", from, o.Sector)})
		return nil
	}

	f, ok := g.fleetLocked(o.Fleet)
	if !ok {
		return fmt.Errorf("%w: player %d", ErrUnknownFleet, o.Fleet)
	}

	var (
		moved int
		errs  []error
	)
	for _, ship := range f.Starships() {
		if ship.IsDestroyed() {
			continue
		}
		from := ship.Position()
		if err := ship.MoveTo(o.Sector); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ship, err))
			continue
		}
		moved++
		g.emit(ctx, b, Event{Type: EventMoved, Actor: ship.Name(), Detail: fmt.Sprintf("%s -> %s", from, o.Sector)})
	}
	if moved == 0 && len(errs) > 0 {
		return g.reject(ctx, b, o, "", errors.Join(errs...))
	}
	return nil
}

func (g *Game) dock(ctx context.Context, b *batch, o Order) error {
	ship, err := g.starship(o.Actor)
	if err != nil {
		return err
	}
	base, err := g.starbase(o.Target)
	if err != nil {
		return err
	}
	if err := ship.DockTo(base); err != nil {
		return g.reject(ctx, b, o, ship.Name(), err)
	}
	g.emit(ctx, b, Event{Type: EventDocked, Actor: ship.Name(), Target: base.Name()})
	return nil
}

func (g *Game) undock(ctx context.Context, b *batch, o Order) error {
	ship, err := g.starship(o.Actor)
	if err != nil {
		return err
	}

	var base *entities.Starbase
	if o.Target != "" {
		if base, err = g.starbase(o.Target); err != nil {
			return err
		}
	} else {
		var ok bool
		if base, ok = ship.Starbase(); !ok {
			return g.reject(ctx, b, o, ship.Name(), entities.ErrNotDocked)
		}
	}

	if err := ship.UndockFrom(base); err != nil {
		return g.reject(ctx, b, o, ship.Name(), err)
	}
	g.emit(ctx, b, Event{Type: EventUndocked, Actor: ship.Name(), Target: base.Name()})
	return nil
}

func (g *Game) repair(ctx context.Context, b *batch, o Order) error {
	ship, err := g.starship(o.Actor)
	if err != nil {
		return err
	}
	if err := ship.Repair(); err != nil {
		return g.reject(ctx, b, o, ship.Name(), err)
	}
	g.emitRepaired(ctx, b, ship)
	return nil
}

func (g *Game) emitRepaired(ctx context.Context, b *batch, ship *entities.Starship) {
	detail := "complete"
	if ship.Repairing() {
		detail = "in progress"
	}
	g.emit(ctx, b, Event{Type: EventRepaired, Actor: ship.Name(), Amount: ship.Health(), Detail: detail})
}

func (g *Game) attack(ctx context.Context, b *batch, o Order) error {
	ship, err := g.starship(o.Actor)
	if err != nil {
		return err
	}
	target, err := g.target(o.Target)
	if err != nil {
		return err
	}

	damage, err := ship.Attack(target)
	if err != nil {
		return g.reject(ctx, b, o, ship.Name(), err)
	}
	g.emitHit(ctx, b, ship, target, damage, target.Health(), target.IsDestroyed())
	return nil
}

func (g *Game) attackWithAll(ctx context.Context, b *batch, o Order) error {
	f, ok := g.fleetLocked(o.Fleet)
	if !ok {
		return fmt.Errorf("%w: player %d", ErrUnknownFleet, o.Fleet)
	}
	target, err := g.target(o.Target)
	if err != nil {
		return err
	}

	maxVolleys := o.MaxVolleys
	if maxVolleys <= 0 {
		maxVolleys = DefaultMaxVolleys
	}

	for i := 0; i < maxVolleys; i++ {
		health := target.Health()
		volley, err := f.AttackWithAll(target)
		if err != nil {
			if i == 0 {
				return g.reject(ctx, b, o, "", err)
			}
			break
		}
		// The fleet stands down once the target is destroyed, so only the
		// last hit of a volley can be the killing blow.
		last := len(volley.Hits) - 1
		for j, hit := range volley.Hits {
			health -= hit.Damage
			g.emitHit(ctx, b, hit.Attacker, target, hit.Damage, max(health, 0), j == last && target.IsDestroyed())
		}
		if !o.UntilDestroyed || target.IsDestroyed() {
			break
		}
	}
	return nil
}

func (g *Game) emitHit(ctx context.Context, b *batch, attacker *entities.Starship, target entities.Entity, damage, health float64, destroyed bool) {
	g.emit(ctx, b, Event{
		Type:   EventAttacked,
		Actor:  attacker.Name(),
		Target: target.Name(),
		Amount: damage,
		Detail: fmt.Sprintf("target health %.2f", health),
	})
	if destroyed {
		g.emit(ctx, b, Event{Type: EventDestroyed, Actor: target.Name(), Detail: fmt.Sprintf("destroyed by %s", attacker.Name())})
	}
}

func (g *Game) endTurn(ctx context.Context, b *batch) {
	for _, f := range g.fleets {
		for _, ship := range f.TickRepairs() {
			g.emitRepaired(ctx, b, ship)
		}
	}
	g.emit(ctx, b, Event{Type: EventTurnEnded})
	g.turn++
}

// checkVictory ends the game once at most one fleet survives. Games with
// fewer than two fleets never end.
func (g *Game) checkVictory(ctx context.Context, b *batch) {
	if g.over || len(g.fleets) < 2 {
		return
	}

	var alive []*entities.Fleet
	for _, f := range g.fleets {
		if !f.IsDefeated() {
			alive = append(alive, f)
		}
	}
	if len(alive) > 1 {
		return
	}

	g.over = true
	detail := "draw"
	if len(alive) == 1 {
		p := alive[0].Player()
		g.winner = &p
		detail = fmt.Sprintf("%s wins", p)
	}
	g.logger.Info("game over", slog.String("result", detail), slog.Int("turn", g.turn))
	g.emit(ctx, b, Event{Type: EventGameOver, Detail: detail})
}
