package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestGuildConfigDefaults(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.GetGuildConfig(context.Background(), "g1")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.LinkFilter || cfg.CapsThreshold != 0 || len(cfg.Blacklist) != 0 {
		t.Fatalf("expected all rules disabled by default, got %+v", cfg)
	}
}

func TestConfigFieldSettersDoNotClobber(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetLinkFilter(ctx, "g1", true); err != nil {
		t.Fatalf("set link filter: %v", err)
	}
	if err := store.SetCapsThreshold(ctx, "g1", 70); err != nil {
		t.Fatalf("set caps threshold: %v", err)
	}
	if err := store.SetModLogChannel(ctx, "g1", "c9"); err != nil {
		t.Fatalf("set modlog channel: %v", err)
	}

	cfg, err := store.GetGuildConfig(ctx, "g1")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if !cfg.LinkFilter {
		t.Fatalf("link filter lost by later field writes")
	}
	if cfg.CapsThreshold != 70 {
		t.Fatalf("expected caps threshold 70, got %d", cfg.CapsThreshold)
	}
	if cfg.ModLogChannel != "c9" {
		t.Fatalf("expected modlog channel c9, got %q", cfg.ModLogChannel)
	}
}

func TestSetCapsThresholdRange(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetCapsThreshold(context.Background(), "g1", 150); err == nil {
		t.Fatalf("expected error for threshold above 100")
	}
}

func TestBlacklistRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetBlacklist(ctx, "g1", []string{" Spam ", "SCAM", ""}); err != nil {
		t.Fatalf("set blacklist: %v", err)
	}
	words, err := store.ListBlacklist(ctx, "g1")
	if err != nil {
		t.Fatalf("list blacklist: %v", err)
	}
	if len(words) != 2 || words[0] != "scam" || words[1] != "spam" {
		t.Fatalf("expected lowered trimmed words, got %v", words)
	}

	if err := store.RemoveBlacklistWord(ctx, "g1", "scam"); err != nil {
		t.Fatalf("remove word: %v", err)
	}
	words, _ = store.ListBlacklist(ctx, "g1")
	if len(words) != 1 || words[0] != "spam" {
		t.Fatalf("expected only spam after removal, got %v", words)
	}
}

func TestModLogAppendOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.AppendModLog(ctx, ModLogEntry{GuildID: "g1", Action: ActionWarn, ModeratorID: "m1", TargetID: "u1", Reason: "spam", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := store.AppendModLog(ctx, ModLogEntry{GuildID: "g1", Action: ActionAutomod, TargetID: "u2", Reason: "caps", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if second <= first {
		t.Fatalf("expected monotonic ids, got %d then %d", first, second)
	}

	entries, err := store.ListModLog(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != second {
		t.Fatalf("expected newest-first ordering")
	}
	if entries[0].ModeratorID != "" {
		t.Fatalf("expected empty moderator for automated entry, got %q", entries[0].ModeratorID)
	}
}

func TestWarnCountIncrement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := store.IncrementWarnCount(ctx, "g1", "u1")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	count, err := store.GetWarnCount(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if count.CountTotal != 3 {
		t.Fatalf("expected 3 warns, got %d", count.CountTotal)
	}
}
