package storage

import (
	"context"
	"testing"
	"time"
)

func TestScheduleSupersedesPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	due := time.Now().Add(time.Minute)

	first, err := store.CreateScheduledAction(ctx, ScheduledAction{GuildID: "g1", TargetID: "u1", Kind: KindUnban, DueAt: due})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := store.CreateScheduledAction(ctx, ScheduledAction{GuildID: "g1", TargetID: "u1", Kind: KindUnban, DueAt: due.Add(time.Minute)})
	if err != nil {
		t.Fatalf("create again: %v", err)
	}

	pending, err := store.QueryPendingAction(ctx, "g1", "u1", KindUnban)
	if err != nil {
		t.Fatalf("query pending: %v", err)
	}
	if pending == nil {
		t.Fatalf("expected one pending action")
	}
	if pending.ID != second {
		t.Fatalf("expected newest action %d pending, got %d", second, pending.ID)
	}
	if pending.ID == first {
		t.Fatalf("first action should be superseded")
	}
}

func TestRemindersDoNotSupersede(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	due := time.Now().Add(-time.Second)

	if _, err := store.CreateScheduledAction(ctx, ScheduledAction{GuildID: "g1", TargetID: "u1", Kind: KindReminder, DueAt: due, Payload: "one"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateScheduledAction(ctx, ScheduledAction{GuildID: "g1", TargetID: "u1", Kind: KindReminder, DueAt: due, Payload: "two"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	actions, err := store.QueryDueActions(ctx, time.Now())
	if err != nil {
		t.Fatalf("query due: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected both reminders pending, got %d", len(actions))
	}
}

func TestQueryDueAndComplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	overdue, err := store.CreateScheduledAction(ctx, ScheduledAction{GuildID: "g1", TargetID: "u1", Kind: KindUnmute, DueAt: time.Now().Add(-time.Minute)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateScheduledAction(ctx, ScheduledAction{GuildID: "g1", TargetID: "u2", Kind: KindUnmute, DueAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	due, err := store.QueryDueActions(ctx, time.Now())
	if err != nil {
		t.Fatalf("query due: %v", err)
	}
	if len(due) != 1 || due[0].ID != overdue {
		t.Fatalf("expected only the overdue action, got %v", due)
	}

	if err := store.MarkActionCompleted(ctx, overdue); err != nil {
		t.Fatalf("complete: %v", err)
	}
	due, _ = store.QueryDueActions(ctx, time.Now())
	if len(due) != 0 {
		t.Fatalf("completed action still due")
	}

	// completed is terminal
	if err := store.MarkActionCancelled(ctx, overdue); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	pending, _ := store.QueryPendingAction(ctx, "g1", "u1", KindUnmute)
	if pending != nil {
		t.Fatalf("terminal action resurrected")
	}
}

func TestCancelPendingAction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateScheduledAction(ctx, ScheduledAction{GuildID: "g1", TargetID: "u1", Kind: KindUnban, DueAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CancelPendingAction(ctx, "g1", "u1", KindUnban); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	pending, err := store.QueryPendingAction(ctx, "g1", "u1", KindUnban)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if pending != nil {
		t.Fatalf("expected no pending action after cancel")
	}
}
