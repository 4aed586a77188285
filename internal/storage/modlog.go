package storage

import (
	"context"
	"database/sql"
	"time"
)

const (
	ActionDelete      = "delete"
	ActionWarn        = "warn"
	ActionKick        = "kick"
	ActionBan         = "ban"
	ActionTempBan     = "tempban"
	ActionMute        = "mute"
	ActionTempMute    = "tempmute"
	ActionAutomod     = "automod_delete"
	ActionUnban       = "unban"
	ActionUnmute      = "unmute"
	ActionVoiceMute   = "voicemute"
	ActionVoiceUnmute = "voiceunmute"
)

// ModLogEntry is one row of the append-only moderation log. ModeratorID is
// empty for automated actions and stored as NULL.
type ModLogEntry struct {
	ID          int64
	GuildID     string
	Action      string
	ModeratorID string
	TargetID    string
	Reason      string
	CreatedAt   time.Time
}

func (s *Store) AppendModLog(ctx context.Context, entry ModLogEntry) (int64, error) {
	var moderator any
	if entry.ModeratorID != "" {
		moderator = entry.ModeratorID
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_log (guild_id, action, moderator_id, target_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.GuildID, entry.Action, moderator, entry.TargetID, entry.Reason, entry.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) ListModLog(ctx context.Context, guildID string, limit int) ([]ModLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, action, moderator_id, target_id, reason, created_at
		FROM mod_log
		WHERE guild_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ModLogEntry
	for rows.Next() {
		var entry ModLogEntry
		var moderator sql.NullString
		var created int64
		if err := rows.Scan(&entry.ID, &entry.GuildID, &entry.Action, &moderator, &entry.TargetID, &entry.Reason, &created); err != nil {
			return nil, err
		}
		if moderator.Valid {
			entry.ModeratorID = moderator.String
		}
		entry.CreatedAt = time.Unix(created, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
