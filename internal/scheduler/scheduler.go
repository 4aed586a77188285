package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CreeperRick/Discord-Bot/internal/storage"

	"go.uber.org/zap"
)

// ErrTargetGone is returned by a Dispatcher when the guild or target no
// longer resolves; the action is cancelled instead of completed.
var ErrTargetGone = errors.New("scheduler: target no longer resolvable")

// Dispatcher performs the external effect of a due action. Every reversal
// must be idempotent: a crash between the external call and the status
// update can replay the call on restart.
type Dispatcher interface {
	ReverseBan(ctx context.Context, guildID, userID string) error
	ReverseMute(ctx context.Context, guildID, userID string) error
	ReverseVoiceMute(ctx context.Context, guildID, userID string) error
	DeliverReminder(ctx context.Context, guildID, userID, text string) error
}

type Request struct {
	GuildID  string
	TargetID string
	Kind     string
	DueAt    time.Time
	Payload  string
}

// Scheduler persists delayed reversal actions and fires them from a polling
// loop. Actions survive restarts: the first tick runs immediately, so
// anything that came due while the process was down fires right away.
type Scheduler struct {
	store    *storage.Store
	dispatch Dispatcher
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	keys map[string]*keyLock

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(store *storage.Store, dispatch Dispatcher, logger *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		store:    store,
		dispatch: dispatch,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		keys:     make(map[string]*keyLock),
	}
}

// Schedule persists the request as pending, superseding any pending action
// for the same (guild, target, kind). The record is durable before Schedule
// returns; a failed write means nothing was scheduled and the caller must
// report the failure.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (int64, error) {
	lock := s.acquireKey(req.GuildID, req.TargetID, req.Kind)
	defer s.releaseKey(lock)

	id, err := s.store.CreateScheduledAction(ctx, storage.ScheduledAction{
		GuildID:  req.GuildID,
		TargetID: req.TargetID,
		Kind:     req.Kind,
		DueAt:    req.DueAt,
		Payload:  req.Payload,
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %s for %s/%s: %w", req.Kind, req.GuildID, req.TargetID, err)
	}
	s.logger.Info("action scheduled",
		zap.Int64("id", id),
		zap.String("guild_id", req.GuildID),
		zap.String("target_id", req.TargetID),
		zap.String("kind", req.Kind),
		zap.Time("due_at", req.DueAt))
	return id, nil
}

// CancelPending cancels the pending action for the key without invoking its
// reversal effect. Used when a moderator reverses manually before the timer.
func (s *Scheduler) CancelPending(ctx context.Context, guildID, targetID, kind string) error {
	lock := s.acquireKey(guildID, targetID, kind)
	defer s.releaseKey(lock)

	return s.store.CancelPendingAction(ctx, guildID, targetID, kind)
}

func (s *Scheduler) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		// Fire anything that came due while we were down.
		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.store.QueryDueActions(ctx, s.now())
	if err != nil {
		s.logger.Error("due query failed", zap.Error(err))
		return
	}
	for _, action := range due {
		if ctx.Err() != nil {
			return
		}
		s.fire(ctx, action)
	}
}

func (s *Scheduler) fire(ctx context.Context, action storage.ScheduledAction) {
	var err error
	switch action.Kind {
	case storage.KindUnban:
		err = s.dispatch.ReverseBan(ctx, action.GuildID, action.TargetID)
	case storage.KindUnmute:
		err = s.dispatch.ReverseMute(ctx, action.GuildID, action.TargetID)
	case storage.KindVoiceUnmute:
		err = s.dispatch.ReverseVoiceMute(ctx, action.GuildID, action.TargetID)
	case storage.KindReminder:
		err = s.dispatch.DeliverReminder(ctx, action.GuildID, action.TargetID, action.Payload)
	default:
		s.logger.Error("unknown action kind", zap.Int64("id", action.ID), zap.String("kind", action.Kind))
		err = ErrTargetGone
	}

	if errors.Is(err, ErrTargetGone) {
		if markErr := s.store.MarkActionCancelled(ctx, action.ID); markErr != nil {
			s.logger.Error("cancel mark failed", zap.Int64("id", action.ID), zap.Error(markErr))
		}
		return
	}
	if err != nil {
		// Best effort: the external call failed but the adapters are
		// idempotent and a moderator can redo the reversal by hand.
		s.logger.Warn("action dispatch failed",
			zap.Int64("id", action.ID),
			zap.String("kind", action.Kind),
			zap.Error(err))
	}
	if markErr := s.store.MarkActionCompleted(ctx, action.ID); markErr != nil {
		s.logger.Error("complete mark failed", zap.Int64("id", action.ID), zap.Error(markErr))
		return
	}
	s.logger.Info("action fired",
		zap.Int64("id", action.ID),
		zap.String("guild_id", action.GuildID),
		zap.String("target_id", action.TargetID),
		zap.String("kind", action.Kind))
}

// keyLock serializes Schedule and CancelPending calls for one
// (guild, target, kind) key. Entries are refcounted and dropped from the
// map once no caller holds them, so the map stays bounded by concurrency
// rather than by the number of distinct keys ever seen.
type keyLock struct {
	key  string
	refs int
	mu   sync.Mutex
}

func (s *Scheduler) acquireKey(guildID, targetID, kind string) *keyLock {
	key := guildID + ":" + targetID + ":" + kind
	s.mu.Lock()
	lock := s.keys[key]
	if lock == nil {
		lock = &keyLock{key: key}
		s.keys[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *Scheduler) releaseKey(lock *keyLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.keys, lock.key)
	}
	s.mu.Unlock()
}
