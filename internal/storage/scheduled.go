package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	KindUnban       = "unban"
	KindUnmute      = "unmute"
	KindVoiceUnmute = "voice_unmute"
	KindReminder    = "reminder"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ScheduledAction is a durable reversal or delivery obligation. Payload is
// only used by reminder actions. Status transitions pending -> completed or
// pending -> cancelled; both are terminal.
type ScheduledAction struct {
	ID       int64
	GuildID  string
	TargetID string
	Kind     string
	DueAt    time.Time
	Payload  string
	Status   string
}

// CreateScheduledAction persists a new pending action. For reversal kinds it
// first cancels any pending action for the same (guild, target, kind) in the
// same transaction, so at most one reversal timer exists per key. Reminders
// are exempt: a user may hold several at once.
func (s *Store) CreateScheduledAction(ctx context.Context, action ScheduledAction) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if action.Kind != KindReminder {
		_, err = tx.ExecContext(ctx, `
			UPDATE scheduled_actions SET status = ?
			WHERE guild_id = ? AND target_id = ? AND kind = ? AND status = ?
		`, StatusCancelled, action.GuildID, action.TargetID, action.Kind, StatusPending)
		if err != nil {
			return 0, err
		}
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `
		INSERT INTO scheduled_actions (guild_id, target_id, kind, due_at, payload, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, action.GuildID, action.TargetID, action.Kind, action.DueAt.Unix(), action.Payload, StatusPending)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) CancelPendingAction(ctx context.Context, guildID, targetID, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_actions SET status = ?
		WHERE guild_id = ? AND target_id = ? AND kind = ? AND status = ?
	`, StatusCancelled, guildID, targetID, kind, StatusPending)
	return err
}

func (s *Store) MarkActionCompleted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_actions SET status = ? WHERE id = ? AND status = ?
	`, StatusCompleted, id, StatusPending)
	return err
}

func (s *Store) MarkActionCancelled(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_actions SET status = ? WHERE id = ? AND status = ?
	`, StatusCancelled, id, StatusPending)
	return err
}

func (s *Store) QueryDueActions(ctx context.Context, now time.Time) ([]ScheduledAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, target_id, kind, due_at, payload, status
		FROM scheduled_actions
		WHERE status = ? AND due_at <= ?
		ORDER BY due_at
	`, StatusPending, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActions(rows)
}

// QueryPendingAction returns the pending action for the key, or nil.
func (s *Store) QueryPendingAction(ctx context.Context, guildID, targetID, kind string) (*ScheduledAction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, target_id, kind, due_at, payload, status
		FROM scheduled_actions
		WHERE guild_id = ? AND target_id = ? AND kind = ? AND status = ?
		LIMIT 1
	`, guildID, targetID, kind, StatusPending)

	var action ScheduledAction
	var dueAt int64
	err := row.Scan(&action.ID, &action.GuildID, &action.TargetID, &action.Kind, &dueAt, &action.Payload, &action.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	action.DueAt = time.Unix(dueAt, 0)
	return &action, nil
}

func scanActions(rows *sql.Rows) ([]ScheduledAction, error) {
	var actions []ScheduledAction
	for rows.Next() {
		var action ScheduledAction
		var dueAt int64
		if err := rows.Scan(&action.ID, &action.GuildID, &action.TargetID, &action.Kind, &dueAt, &action.Payload, &action.Status); err != nil {
			return nil, err
		}
		action.DueAt = time.Unix(dueAt, 0)
		actions = append(actions, action)
	}
	return actions, rows.Err()
}
