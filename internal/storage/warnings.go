package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type WarnCount struct {
	GuildID    string
	UserID     string
	CountTotal int
	LastAt     time.Time
}

func (s *Store) GetWarnCount(ctx context.Context, guildID, userID string) (WarnCount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, user_id, count_total, last_at
		FROM warn_counts
		WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)

	var count WarnCount
	var lastAt int64
	err := row.Scan(&count.GuildID, &count.UserID, &count.CountTotal, &lastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WarnCount{GuildID: guildID, UserID: userID}, nil
		}
		return WarnCount{}, err
	}
	count.LastAt = time.Unix(lastAt, 0)
	return count, nil
}

func (s *Store) IncrementWarnCount(ctx context.Context, guildID, userID string) (int, error) {
	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	row := tx.QueryRowContext(ctx, `
		SELECT count_total FROM warn_counts WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	scanErr := row.Scan(&count)
	if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return 0, err
	}

	count++
	_, err = tx.ExecContext(ctx, `
		INSERT INTO warn_counts (guild_id, user_id, count_total, last_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			count_total = excluded.count_total,
			last_at = excluded.last_at
	`, guildID, userID, count, now.Unix())
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}
