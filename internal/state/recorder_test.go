package state

import (
	"context"
	"testing"
	"time"

	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/leapstack-labs/starfleet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playRecorded(ctx context.Context, t *testing.T, store *SQLiteStore, name string, extra ...game.Observer) (*scenario.Result, error) {
	t.Helper()
	return playWith(ctx, t, NewRecorder(store, testutil.NewTestLogger(t)), name, extra...)
}

func playWith(ctx context.Context, t *testing.T, rec *Recorder, name string, extra ...game.Observer) (*scenario.Result, error) {
	t.Helper()
	sc, err := scenario.Builtin(name)
	require.NoError(t, err)

	runner := &scenario.Runner{
		Logger:    testutil.NewTestLogger(t),
		Observers: append([]game.Observer{rec}, extra...),
		Clock:     testutil.SteppingClock(t0, time.Millisecond),
		Hooks:     rec.Hooks(),
	}
	return runner.Play(ctx, sc)
}

func TestRecorder_PersistsGameAndEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	res, err := playRecorded(ctx, t, store, "demo-scripted")
	require.NoError(t, err)

	g, err := store.GetGame(ctx, res.GameID)
	require.NoError(t, err)
	assert.Equal(t, "demo-scripted", g.Scenario)
	assert.Equal(t, "builtin:demo-scripted", g.Source)
	assert.Equal(t, GameStatusCompleted, g.Status)
	require.NotNil(t, g.Winner)
	assert.Equal(t, uint(1), *g.Winner)
	assert.Equal(t, res.Turns, g.Turns)
	assert.Equal(t, res.StartedAt, g.StartedAt)

	events, err := store.EventsForGame(ctx, res.GameID)
	require.NoError(t, err)
	assert.Equal(t, res.Events, events)
}

func TestRecorder_CancelledGame(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopAfterStart := game.ObserverFunc(func(context.Context, game.Event) error {
		cancel()
		return nil
	})

	res, err := playRecorded(ctx, t, store, "demo", stopAfterStart)
	require.ErrorIs(t, err, context.Canceled)

	g, err := store.GetGame(context.Background(), res.GameID)
	require.NoError(t, err)
	assert.Equal(t, GameStatusCancelled, g.Status)
	assert.Contains(t, g.Error, "canceled")

	events, err := store.EventsForGame(context.Background(), res.GameID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, game.EventGameStarted, events[0].Type)
}

func TestBatchRecorder_WritesEventsWhenGameFinishes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	rec := NewBatchRecorder(store, testutil.NewTestLogger(t))

	var midGame []game.Event
	peek := game.ObserverFunc(func(ctx context.Context, e game.Event) error {
		if e.Type != game.EventGameStarted {
			return nil
		}
		var err error
		midGame, err = store.EventsForGame(ctx, e.GameID)
		return err
	})

	res, err := playWith(ctx, t, rec, "demo", peek)
	require.NoError(t, err)
	assert.Empty(t, midGame, "nothing is written while the game runs")

	events, err := store.EventsForGame(ctx, res.GameID)
	require.NoError(t, err)
	assert.Equal(t, res.Events, events)
	assert.Empty(t, rec.pending)
}

func TestBatchRecorder_CancelledGameKeepsEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := game.ObserverFunc(func(context.Context, game.Event) error {
		cancel()
		return nil
	})

	res, err := playWith(ctx, t, NewBatchRecorder(store, testutil.NewTestLogger(t)), "demo", stop)
	require.ErrorIs(t, err, context.Canceled)

	g, err := store.GetGame(context.Background(), res.GameID)
	require.NoError(t, err)
	assert.Equal(t, GameStatusCancelled, g.Status)

	events, err := store.EventsForGame(context.Background(), res.GameID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, game.EventGameStarted, events[0].Type)
}
