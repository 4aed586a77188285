package modlog

import (
	"context"
	"time"

	"github.com/CreeperRick/Discord-Bot/internal/storage"

	"go.uber.org/zap"
)

// Logger appends moderation actions to the durable mod log and mirrors them
// to the process log. A notifier hook, when set, posts the entry to the
// guild's configured mod-log channel; notifier failures never propagate.
type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.ModLogEntry)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.ModLogEntry)) {
	l.notify = notify
}

// Record persists the entry and returns its id. Persistence failure is the
// caller's problem: an action without its audit row must be reported, not
// papered over.
func (l *Logger) Record(ctx context.Context, action, guildID, moderatorID, targetID, reason string) (int64, error) {
	entry := storage.ModLogEntry{
		GuildID:     guildID,
		Action:      action,
		ModeratorID: moderatorID,
		TargetID:    targetID,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	id, err := l.store.AppendModLog(ctx, entry)
	if err != nil {
		l.logger.Error("mod log append failed", zap.String("action", action), zap.Error(err))
		return 0, err
	}
	entry.ID = id

	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("mod action",
		zap.Int64("case_id", id),
		zap.String("guild_id", guildID),
		zap.String("action", action),
		zap.String("moderator_id", moderatorID),
		zap.String("target_id", targetID),
		zap.String("reason", reason))
	return id, nil
}

// RecordAutomod is Record for automated actions; the moderator column stays
// null.
func (l *Logger) RecordAutomod(ctx context.Context, guildID, targetID, reason string) (int64, error) {
	return l.Record(ctx, storage.ActionAutomod, guildID, "", targetID, reason)
}
