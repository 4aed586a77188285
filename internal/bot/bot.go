package bot

import (
	"context"
	"fmt"

	"github.com/CreeperRick/Discord-Bot/internal/automod"
	"github.com/CreeperRick/Discord-Bot/internal/config"
	"github.com/CreeperRick/Discord-Bot/internal/modlog"
	"github.com/CreeperRick/Discord-Bot/internal/scheduler"
	"github.com/CreeperRick/Discord-Bot/internal/storage"
	"github.com/CreeperRick/Discord-Bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	modLog    *modlog.Logger
	evaluator *automod.Evaluator
	scheduler *scheduler.Scheduler
	session   *discordgo.Session
	collab    *Collaborators
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, modLog *modlog.Logger, evaluator *automod.Evaluator) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	collab := NewCollaborators(session, store, logger)
	bot := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		modLog:    modLog,
		evaluator: evaluator,
		scheduler: scheduler.New(store, collab, logger, cfg.Scheduler.PollInterval()),
		session:   session,
		collab:    collab,
	}

	if cfg.Notifications.ModLogToChannel {
		modLog.SetNotifier(bot.notifyModLog)
	}

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onInteractionCreate)
	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}
	if err := b.registerCommands(); err != nil {
		b.logger.Error("command registration failed", zap.Error(err))
	}
	b.scheduler.Start()
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	b.scheduler.Stop()
	done := make(chan struct{})
	go func() {
		_ = b.session.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("session close timed out")
	}
}

func (b *Bot) onReady(_ *discordgo.Session, ready *discordgo.Ready) {
	b.logger.Info("gateway ready",
		zap.String("user", ready.User.Username),
		zap.Int("guilds", len(ready.Guilds)))
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.GuildID == "" || msg.Author == nil {
		return
	}

	ctx := context.Background()
	cfg, err := b.store.GetGuildConfig(ctx, msg.GuildID)
	if err != nil {
		b.logger.Error("guild config load failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return
	}

	verdict := b.evaluator.Evaluate(cfg, automod.Message{
		GuildID:  msg.GuildID,
		AuthorID: msg.Author.ID,
		Content:  msg.Content,
		FromBot:  msg.Author.Bot,
	})
	if !verdict.Violation {
		return
	}

	b.collab.DeleteMessage(msg.ChannelID, msg.ID)
	reason := automodReason(verdict)
	if _, err := b.modLog.RecordAutomod(ctx, msg.GuildID, msg.Author.ID, reason); err != nil {
		b.logger.Error("automod log failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
}

func automodReason(verdict automod.Verdict) string {
	switch verdict.Rule {
	case automod.RuleBlacklist:
		return "blacklisted word: " + verdict.Matched
	case automod.RuleLink:
		return "link not allowed: " + linkHost(verdict.Matched)
	case automod.RuleCaps:
		return "excessive caps"
	case automod.RuleDuplicate:
		return "duplicate message"
	default:
		return string(verdict.Rule)
	}
}

// linkHost reduces a matched URL to its normalized host so mod-log reasons
// stay stable across path noise, casing and IDN homoglyph hosts.
func linkHost(rawURL string) string {
	host, err := utils.NormalizeHost(rawURL)
	if err != nil || host == "" {
		return rawURL
	}
	return host
}

func (b *Bot) notifyModLog(ctx context.Context, entry storage.ModLogEntry) {
	cfg, err := b.store.GetGuildConfig(ctx, entry.GuildID)
	if err != nil || cfg.ModLogChannel == "" {
		return
	}

	moderator := "automod"
	if entry.ModeratorID != "" {
		moderator = "<@" + entry.ModeratorID + ">"
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Case #%d — %s", entry.ID, entry.Action),
		Color: b.cfg.Notifications.EmbedColors.Action,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Target", Value: "<@" + entry.TargetID + ">", Inline: true},
			{Name: "By", Value: moderator, Inline: true},
			{Name: "Reason", Value: orDefault(entry.Reason, "No reason"), Inline: false},
		},
	}
	if _, err := b.session.ChannelMessageSendEmbed(cfg.ModLogChannel, embed); err != nil {
		b.logger.Debug("mod log notify failed", zap.String("guild_id", entry.GuildID), zap.Error(err))
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
