package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/leapstack-labs/starfleet/internal/state"
)

// EventSource is the CloudEvents source of exported game events.
const EventSource = "starfleet/server"

// maxListLimit caps the limit query parameter.
const maxListLimit = 500

type errorResponse struct {
	Error string `json:"error"`
}

// StartGameRequest is the body of POST /api/games.
type StartGameRequest struct {
	Scenario string `json:"scenario"`
}

// StartGameResponse acknowledges a game started in the background.
type StartGameResponse struct {
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
}

// ScenarioInfo describes a scenario that can be started.
type ScenarioInfo struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
	Scripted    bool   `json:"scripted"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Now().Add(s.writeTimeout))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	limit := state.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxListLimit)
	}

	games, err := s.store.ListGames(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if games == nil {
		games = []*state.Game{}
	}
	s.writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGame(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

// lookupGame loads the game named in the URL, writing the error response
// when it cannot.
func (s *Server) lookupGame(w http.ResponseWriter, r *http.Request) (*state.Game, bool) {
	g, err := s.store.GetGame(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, state.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
		return nil, false
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return g, true
}

// handleGameEvents returns the event log as JSON, or as a CloudEvents batch
// when format=cloudevents.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGame(w, r)
	if !ok {
		return
	}
	events, err := s.store.EventsForGame(r.Context(), g.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []game.Event{}
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		s.writeJSON(w, http.StatusOK, events)
	case "cloudevents":
		batch := make([]cloudevents.Event, 0, len(events))
		for _, e := range events {
			ce, err := e.CloudEvent(EventSource)
			if err != nil {
				s.writeError(w, http.StatusInternalServerError, err)
				return
			}
			batch = append(batch, ce)
		}
		w.Header().Set("Content-Type", "application/cloudevents-batch+json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(batch); err != nil {
			s.logger.Warn("failed to write response", slog.Any("error", err))
		}
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", format))
	}
}

// handleStartGame plays a scenario in the background and answers as soon
// as the game is recorded.
func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req StartGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Scenario == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("scenario is required"))
		return
	}

	sc, err := scenario.Open(req.Scenario, s.scenariosDir)
	switch {
	case errors.Is(err, scenario.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	started := make(chan string, 1)
	done := make(chan error, 1)

	runner := *s.runner
	base := runner.Hooks.Started
	runner.Hooks.Started = func(ctx context.Context, res *scenario.Result, sc *scenario.Scenario) error {
		if base != nil {
			if err := base(ctx, res, sc); err != nil {
				return err
			}
		}
		started <- res.GameID
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := runner.Play(s.ctx, sc)
		if err != nil {
			s.logger.Warn("background game failed", slog.String("scenario", sc.Name), slog.Any("error", err))
		} else {
			s.logger.Info("background game finished", slog.String("game", res.GameID), slog.String("result", res.Summary()))
		}
		done <- err
	}()

	select {
	case id := <-started:
		s.writeJSON(w, http.StatusAccepted, StartGameResponse{ID: id, Scenario: sc.Name})
	case err := <-done:
		s.writeError(w, http.StatusInternalServerError, err)
	case <-r.Context().Done():
	}
}

func (s *Server) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	scenarios, err := scenario.Catalog(s.scenariosDir, s.logger)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]ScenarioInfo, 0, len(scenarios))
	for _, sc := range scenarios {
		out = append(out, describe(sc))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func describe(sc *scenario.Scenario) ScenarioInfo {
	return ScenarioInfo{
		Name:        sc.Name,
		Source:      sc.Source,
		Description: sc.Description,
		Scripted:    sc.Scripted(),
	}
}
