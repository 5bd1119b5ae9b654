package game

import (
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// EventType names something that happened in a game.
type EventType string

// Event types.
const (
	EventGameStarted   EventType = "game_started"
	EventMoved         EventType = "moved"
	EventDocked        EventType = "docked"
	EventUndocked      EventType = "undocked"
	EventRepaired      EventType = "repaired"
	EventAttacked      EventType = "attacked"
	EventDestroyed     EventType = "destroyed"
	EventOrderRejected EventType = "order_rejected"
	EventTurnEnded     EventType = "turn_ended"
	EventGameOver      EventType = "game_over"
)

// CloudEventTypePrefix prefixes EventType in exported CloudEvents.
const CloudEventTypePrefix = "io.starfleet.game."

// Event is one entry of a game's log. Seq is gapless and starts at 1.
type Event struct {
	GameID string    `json:"game_id"`
	Seq    int       `json:"seq"`
	Turn   int       `json:"turn"`
	Type   EventType `json:"type"`
	Actor  string    `json:"actor,omitempty"`
	Target string    `json:"target,omitempty"`
	Amount float64   `json:"amount,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

func (e Event) String() string {
	s := fmt.Sprintf("#%d turn %d %s", e.Seq, e.Turn, e.Type)
	if e.Actor != "" {
		s += " " + e.Actor
	}
	if e.Target != "" {
		s += " -> " + e.Target
	}
	if e.Amount != 0 {
		s += fmt.Sprintf(" (%.2f)", e.Amount)
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

// CloudEvent converts the event into a CloudEvents v1 event with a JSON
// payload. The game ID becomes the subject, and the ID is derived from the
// game and sequence number so repeated exports of an event match.
func (e Event) CloudEvent(source string) (cloudevents.Event, error) {
	ce := cloudevents.NewEvent()
	ce.SetID(fmt.Sprintf("%s-%d", e.GameID, e.Seq))
	ce.SetSource(source)
	ce.SetType(CloudEventTypePrefix + string(e.Type))
	ce.SetSubject(e.GameID)
	ce.SetTime(e.Time)
	ce.SetSpecVersion(cloudevents.VersionV1)
	ce.SetExtension("seq", e.Seq)
	ce.SetExtension("turn", e.Turn)

	if err := ce.SetData(cloudevents.ApplicationJSON, e); err != nil {
		return ce, fmt.Errorf("failed to encode event data: %w", err)
	}
	if err := ce.Validate(); err != nil {
		return ce, fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return ce, nil
}
