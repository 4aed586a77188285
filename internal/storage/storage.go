package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// GuildConfig holds the per-guild automod settings. The zero value has every
// rule disabled, which is also what GetGuildConfig returns for guilds that
// never configured anything.
type GuildConfig struct {
	GuildID       string
	Blacklist     []string
	LinkFilter    bool
	CapsThreshold int
	ModLogChannel string
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite serializes writers anyway, and a pooled
	// ":memory:" handle would otherwise open a separate database per
	// connection.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (GuildConfig, error) {
	result := GuildConfig{GuildID: guildID}

	row := s.db.QueryRowContext(ctx, `
		SELECT link_filter, caps_threshold, modlog_channel
		FROM guild_config WHERE guild_id = ?`, guildID)

	var linkFilter int
	err := row.Scan(&linkFilter, &result.CapsThreshold, &result.ModLogChannel)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return GuildConfig{}, err
	}
	result.LinkFilter = linkFilter == 1

	words, err := s.ListBlacklist(ctx, guildID)
	if err != nil {
		return GuildConfig{}, err
	}
	result.Blacklist = words
	return result, nil
}

// Each setter upserts only its own column so two moderators editing different
// settings at the same time cannot clobber each other.

func (s *Store) SetLinkFilter(ctx context.Context, guildID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_config (guild_id, link_filter) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET link_filter = excluded.link_filter
	`, guildID, boolToInt(enabled))
	return err
}

func (s *Store) SetCapsThreshold(ctx context.Context, guildID string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("caps threshold must be 0-100, got %d", percent)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_config (guild_id, caps_threshold) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET caps_threshold = excluded.caps_threshold
	`, guildID, percent)
	return err
}

func (s *Store) SetModLogChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_config (guild_id, modlog_channel) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET modlog_channel = excluded.modlog_channel
	`, guildID, channelID)
	return err
}

func (s *Store) SetBlacklist(ctx context.Context, guildID string, words []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM blacklist_words WHERE guild_id = ?`, guildID); err != nil {
		return err
	}
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO blacklist_words (guild_id, word) VALUES (?, ?)
		`, guildID, word); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) AddBlacklistWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blacklist_words (guild_id, word) VALUES (?, ?)
	`, guildID, strings.ToLower(strings.TrimSpace(word)))
	return err
}

func (s *Store) RemoveBlacklistWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM blacklist_words WHERE guild_id = ? AND word = ?
	`, guildID, strings.ToLower(strings.TrimSpace(word)))
	return err
}

func (s *Store) ListBlacklist(ctx context.Context, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT word FROM blacklist_words WHERE guild_id = ? ORDER BY word
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	return words, rows.Err()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
