package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/leapstack-labs/starfleet/internal/state"
	"github.com/starfederation/datastar-go/datastar"
)

// streamPollInterval is how often a stream checks whether its game ended.
const streamPollInterval = time.Second

// eventStream writes the log of one game as server-sent events, in
// sequence order and without repeats.
type eventStream struct {
	sse    *datastar.ServerSentEventGenerator
	store  state.Store
	gameID string
	last   int
	over   bool
}

// deliver sends e, first sending from the store any event between the last
// one sent and e that the live feed dropped. It reports whether the stream
// continues, which it does until game_over.
func (st *eventStream) deliver(ctx context.Context, e game.Event) (bool, error) {
	if e.Seq <= st.last {
		return true, nil
	}
	if e.Seq > st.last+1 {
		if err := st.catchUp(ctx, e.Seq); err != nil {
			return false, err
		}
	}
	if err := st.send(e); err != nil {
		return false, err
	}
	return !st.over, nil
}

// catchUp sends the stored events after the last one sent and before seq.
// A seq of zero sends everything stored.
func (st *eventStream) catchUp(ctx context.Context, seq int) error {
	stored, err := st.store.EventsForGame(ctx, st.gameID)
	if err != nil {
		return fmt.Errorf("failed to load missed events: %w", err)
	}
	for _, e := range stored {
		if e.Seq <= st.last {
			continue
		}
		if seq > 0 && e.Seq >= seq {
			break
		}
		if err := st.send(e); err != nil {
			return err
		}
	}
	return nil
}

func (st *eventStream) send(e game.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event %d: %w", e.Seq, err)
	}
	if err := st.sse.Send(datastar.EventType(e.Type), []string{string(data)},
		datastar.WithSSEEventId(strconv.Itoa(e.Seq))); err != nil {
		return err
	}
	st.last = e.Seq
	st.over = e.Type == game.EventGameOver
	return nil
}

// handleStreamEvents replays the stored events of a game as server-sent
// events and then follows it live until the game ends or the client leaves.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGame(w, r)
	if !ok {
		return
	}

	// Subscribe before reading the log so nothing falls between the two.
	live := s.notifier.Subscribe(g.ID)
	defer s.notifier.Unsubscribe(live)

	ctx := r.Context()
	st := &eventStream{sse: datastar.NewSSE(w, r), store: s.store, gameID: g.ID}

	if err := st.catchUp(ctx, 0); err != nil {
		s.logger.Warn("stream failed", slog.String("game", g.ID), slog.Any("error", err))
		return
	}
	if st.over || g.Status != state.GameStatusRunning {
		return
	}

	// Undecided games end without game_over, so the status is polled.
	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case e, ok := <-live:
			if !ok {
				return
			}
			more, err := st.deliver(ctx, e)
			if err != nil {
				s.logger.Debug("stream closed", slog.String("game", g.ID), slog.Any("error", err))
				return
			}
			if !more {
				return
			}
		case <-ticker.C:
			current, err := s.store.GetGame(ctx, g.ID)
			if err != nil || current.Status == state.GameStatusRunning {
				continue
			}
			// The game row is completed after the last event is stored.
			if err := st.catchUp(ctx, 0); err != nil {
				s.logger.Debug("stream closed", slog.String("game", g.ID), slog.Any("error", err))
			}
			return
		}
	}
}
