package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

const gameColumns = `id, scenario, source, status, winner, turns, rejected, started_at, completed_at, error`

// CreateGame inserts a game in the running state.
func (s *SQLiteStore) CreateGame(ctx context.Context, g *Game) error {
	if s.db == nil {
		return ErrNotOpened
	}
	if g.Status == "" {
		g.Status = GameStatusRunning
	}

	s.logger.Debug("creating game", slog.String("id", g.ID), slog.String("scenario", g.Scenario))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (`+gameColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
		g.ID, g.Scenario, g.Source, string(g.Status), nullableWinner(g.Winner), g.Turns, g.Rejected, formatTime(g.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// CompleteGame records the outcome of a game.
func (s *SQLiteStore) CompleteGame(ctx context.Context, id string, out Outcome) error {
	if s.db == nil {
		return ErrNotOpened
	}

	var errMsg sql.NullString
	if out.Error != "" {
		errMsg = sql.NullString{String: out.Error, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET status = ?, winner = ?, turns = ?, rejected = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(out.Status), nullableWinner(out.Winner), out.Turns, out.Rejected, formatTime(out.CompletedAt), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete game: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetGame retrieves a game by ID.
func (s *SQLiteStore) GetGame(ctx context.Context, id string) (*Game, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return g, nil
}

// ListGames returns the most recently started games, newest first.
func (s *SQLiteStore) ListGames(ctx context.Context, limit int) ([]*Game, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var games []*Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*Game, error) {
	var (
		g           Game
		status      string
		winner      sql.NullInt64
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
	)
	if err := row.Scan(&g.ID, &g.Scenario, &g.Source, &status, &winner, &g.Turns, &g.Rejected, &startedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}

	g.Status = GameStatus(status)
	if winner.Valid {
		w := uint(winner.Int64)
		g.Winner = &w
	}

	var err error
	if g.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		g.CompletedAt = &t
	}
	g.Error = errMsg.String
	return &g, nil
}

func nullableWinner(w *uint) sql.NullInt64 {
	if w == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*w), Valid: true}
}
