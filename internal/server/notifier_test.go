package server

import (
	"context"
	"testing"
	"time"

	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch chan game.Event) game.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return game.Event{}
	}
}

func TestNotifier_SubscribeUnsubscribe(t *testing.T) {
	n := NewNotifier()

	ch := n.Subscribe("")
	require.NotNil(t, ch)
	assert.Equal(t, 1, n.Subscribers())

	n.Unsubscribe(ch)
	assert.Zero(t, n.Subscribers())

	_, open := <-ch
	assert.False(t, open, "unsubscribing closes the channel")
}

func TestNotifier_FiltersByGame(t *testing.T) {
	n := NewNotifier()
	all := n.Subscribe("")
	one := n.Subscribe("g1")
	defer n.Unsubscribe(all)
	defer n.Unsubscribe(one)

	require.NoError(t, n.OnEvent(context.Background(), game.Event{GameID: "g2", Seq: 1}))
	require.NoError(t, n.OnEvent(context.Background(), game.Event{GameID: "g1", Seq: 1}))

	assert.Equal(t, "g2", receive(t, all).GameID)
	assert.Equal(t, "g1", receive(t, all).GameID)
	assert.Equal(t, "g1", receive(t, one).GameID)

	select {
	case e := <-one:
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestNotifier_SlowSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe("")
	defer n.Unsubscribe(ch)

	for i := range subscriberBuffer + 10 {
		require.NoError(t, n.OnEvent(context.Background(), game.Event{Seq: i + 1}))
	}

	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, 1, receive(t, ch).Seq, "the oldest events are kept")
}
