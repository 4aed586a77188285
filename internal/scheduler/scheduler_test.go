package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/CreeperRick/Discord-Bot/internal/storage"

	"go.uber.org/zap"
)

type recordingDispatcher struct {
	mu        sync.Mutex
	unbans    []string
	unmutes   []string
	vunmutes  []string
	reminders []string
	fail      error
}

func (d *recordingDispatcher) ReverseBan(_ context.Context, guildID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unbans = append(d.unbans, guildID+":"+userID)
	return d.fail
}

func (d *recordingDispatcher) ReverseMute(_ context.Context, guildID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unmutes = append(d.unmutes, guildID+":"+userID)
	return d.fail
}

func (d *recordingDispatcher) ReverseVoiceMute(_ context.Context, guildID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vunmutes = append(d.vunmutes, guildID+":"+userID)
	return d.fail
}

func (d *recordingDispatcher) DeliverReminder(_ context.Context, guildID, userID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reminders = append(d.reminders, guildID+":"+userID+":"+text)
	return d.fail
}

func (d *recordingDispatcher) unmuteCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.unmutes)
}

func newTestScheduler(t *testing.T) (*Scheduler, *storage.Store, *recordingDispatcher) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	dispatcher := &recordingDispatcher{}
	return New(store, dispatcher, zap.NewNop(), 30*time.Second), store, dispatcher
}

func TestScheduleIdempotentPerKey(t *testing.T) {
	sched, store, _ := newTestScheduler(t)
	ctx := context.Background()

	first, err := sched.Schedule(ctx, Request{GuildID: "g1", TargetID: "u1", Kind: storage.KindUnban, DueAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	second, err := sched.Schedule(ctx, Request{GuildID: "g1", TargetID: "u1", Kind: storage.KindUnban, DueAt: time.Now().Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("schedule again: %v", err)
	}

	pending, err := store.QueryPendingAction(ctx, "g1", "u1", storage.KindUnban)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if pending == nil || pending.ID != second {
		t.Fatalf("expected only the second action pending, got %+v", pending)
	}
	if first == second {
		t.Fatalf("expected distinct ids")
	}
}

func TestRestartRecoveryFiresOverdue(t *testing.T) {
	sched, store, dispatcher := newTestScheduler(t)
	ctx := context.Background()

	// Simulate a pending action persisted by a previous process.
	id, err := store.CreateScheduledAction(ctx, storage.ScheduledAction{
		GuildID:  "g1",
		TargetID: "u1",
		Kind:     storage.KindUnban,
		DueAt:    time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sched.tick(ctx)

	if len(dispatcher.unbans) != 1 || dispatcher.unbans[0] != "g1:u1" {
		t.Fatalf("expected one unban, got %v", dispatcher.unbans)
	}
	pending, _ := store.QueryPendingAction(ctx, "g1", "u1", storage.KindUnban)
	if pending != nil {
		t.Fatalf("fired action should be completed, still pending: %+v", pending)
	}

	// A second tick must not fire it again.
	sched.tick(ctx)
	if len(dispatcher.unbans) != 1 {
		t.Fatalf("action %d fired twice", id)
	}
}

func TestCancelPreventsLaterFire(t *testing.T) {
	sched, _, dispatcher := newTestScheduler(t)
	ctx := context.Background()

	if _, err := sched.Schedule(ctx, Request{GuildID: "g1", TargetID: "42", Kind: storage.KindUnmute, DueAt: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := sched.CancelPending(ctx, "g1", "42", storage.KindUnmute); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	sched.tick(ctx)
	if dispatcher.unmuteCount() != 0 {
		t.Fatalf("cancelled action must not fire, got %v", dispatcher.unmutes)
	}
}

func TestReminderDeliversPayload(t *testing.T) {
	sched, _, dispatcher := newTestScheduler(t)
	ctx := context.Background()

	if _, err := sched.Schedule(ctx, Request{GuildID: "g1", TargetID: "u1", Kind: storage.KindReminder, DueAt: time.Now().Add(-time.Second), Payload: "stand up"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	sched.tick(ctx)

	if len(dispatcher.reminders) != 1 || dispatcher.reminders[0] != "g1:u1:stand up" {
		t.Fatalf("expected delivered reminder, got %v", dispatcher.reminders)
	}
}

func TestDispatchFailureStillCompletes(t *testing.T) {
	sched, store, dispatcher := newTestScheduler(t)
	dispatcher.fail = errors.New("api down")
	ctx := context.Background()

	if _, err := sched.Schedule(ctx, Request{GuildID: "g1", TargetID: "u1", Kind: storage.KindUnmute, DueAt: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	sched.tick(ctx)

	pending, _ := store.QueryPendingAction(ctx, "g1", "u1", storage.KindUnmute)
	if pending != nil {
		t.Fatalf("failed dispatch must not stay pending (would hot-loop)")
	}
}

func TestTargetGoneCancels(t *testing.T) {
	sched, store, dispatcher := newTestScheduler(t)
	dispatcher.fail = ErrTargetGone
	ctx := context.Background()

	id, err := sched.Schedule(ctx, Request{GuildID: "g1", TargetID: "u1", Kind: storage.KindUnban, DueAt: time.Now().Add(-time.Second)})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	sched.tick(ctx)

	pending, _ := store.QueryPendingAction(ctx, "g1", "u1", storage.KindUnban)
	if pending != nil {
		t.Fatalf("action %d should be cancelled, still pending", id)
	}
	// One dispatch attempt happened, then cancellation.
	if len(dispatcher.unbans) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(dispatcher.unbans))
	}
}

func TestKeyLocksDoNotAccumulate(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		target := fmt.Sprintf("u%d", i)
		if _, err := sched.Schedule(ctx, Request{GuildID: "g1", TargetID: target, Kind: storage.KindUnban, DueAt: time.Now().Add(time.Hour)}); err != nil {
			t.Fatalf("schedule %s: %v", target, err)
		}
		if err := sched.CancelPending(ctx, "g1", target, storage.KindUnban); err != nil {
			t.Fatalf("cancel %s: %v", target, err)
		}
	}

	sched.mu.Lock()
	remaining := len(sched.keys)
	sched.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected no retained key locks, got %d", remaining)
	}
}

func TestStartFiresWithinPollInterval(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	dispatcher := &recordingDispatcher{}
	sched := New(store, dispatcher, zap.NewNop(), 20*time.Millisecond)

	if _, err := store.CreateScheduledAction(context.Background(), storage.ScheduledAction{
		GuildID: "g1", TargetID: "u1", Kind: storage.KindUnmute, DueAt: time.Now().Add(-time.Second),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	sched.Start()
	defer sched.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if dispatcher.unmuteCount() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("overdue action did not fire after start")
}
