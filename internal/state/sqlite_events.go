package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/starfleet/internal/game"
)

const insertEvent = `INSERT INTO events (game_id, seq, turn, type, actor, target, amount, detail, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RecordEvent appends one event to the log of its game.
func (s *SQLiteStore) RecordEvent(ctx context.Context, e game.Event) error {
	if s.db == nil {
		return ErrNotOpened
	}
	return writeEvent(ctx, s.db, e)
}

// RecordEvents appends events in a single transaction.
func (s *SQLiteStore) RecordEvents(ctx context.Context, events []game.Event) error {
	if s.db == nil {
		return ErrNotOpened
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range events {
		if err := writeEvent(ctx, tx, e); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

func writeEvent(ctx context.Context, db execer, e game.Event) error {
	_, err := db.ExecContext(ctx, insertEvent,
		e.GameID, e.Seq, e.Turn, string(e.Type), e.Actor, e.Target, e.Amount, e.Detail, formatTime(e.Time),
	)
	if err != nil {
		return fmt.Errorf("failed to record event %d of game %s: %w", e.Seq, e.GameID, err)
	}
	return nil
}

// EventsForGame returns the event log of a game in sequence order.
func (s *SQLiteStore) EventsForGame(ctx context.Context, id string) ([]game.Event, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, seq, turn, type, actor, target, amount, detail, occurred_at
		FROM events WHERE game_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []game.Event
	for rows.Next() {
		var (
			e          game.Event
			typ        string
			occurredAt string
		)
		if err := rows.Scan(&e.GameID, &e.Seq, &e.Turn, &typ, &e.Actor, &e.Target, &e.Amount, &e.Detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = game.EventType(typ)
		if e.Time, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}
