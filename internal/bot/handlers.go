package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CreeperRick/Discord-Bot/internal/scheduler"
	"github.com/CreeperRick/Discord-Bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()

	if interaction.GuildID == "" {
		b.respondError(session, interaction, "This command only works in a server.")
		return
	}

	options := optionMap(data.Options)
	switch data.Name {
	case "setfilter":
		b.handleSetFilter(ctx, session, interaction, options)
	case "setmodlog":
		b.handleSetModLog(ctx, session, interaction, options)
	case "ban":
		b.handleBan(ctx, session, interaction, options)
	case "unban":
		b.handleUnban(ctx, session, interaction, options)
	case "tempban":
		b.handleTempBan(ctx, session, interaction, options)
	case "kick":
		b.handleKick(ctx, session, interaction, options)
	case "warn":
		b.handleWarn(ctx, session, interaction, options)
	case "warnings":
		b.handleWarnings(ctx, session, interaction, options)
	case "tempmute":
		b.handleTempMute(ctx, session, interaction, options)
	case "unmute":
		b.handleUnmute(ctx, session, interaction, options)
	case "voicemute":
		b.handleVoiceMute(ctx, session, interaction, options)
	case "modlog":
		b.handleModLogView(ctx, session, interaction, options)
	case "remindme":
		b.handleRemindMe(ctx, session, interaction, options)
	}
}

func (b *Bot) handleSetFilter(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	filterType := options.str("type")
	value := options.str("value")

	switch filterType {
	case "blacklist":
		words := strings.Split(value, ",")
		if err := b.store.SetBlacklist(ctx, interaction.GuildID, words); err != nil {
			b.failStore(session, interaction, "blacklist update", err)
			return
		}
		saved, _ := b.store.ListBlacklist(ctx, interaction.GuildID)
		b.respondAction(session, interaction, "Filter updated", fmt.Sprintf("Blacklist set: %s", strings.Join(saved, ", ")))
	case "links":
		enabled, ok := parseToggle(value)
		if !ok {
			b.respondError(session, interaction, "Link filter value must be on/off, true/false, yes/no or 1/0.")
			return
		}
		if err := b.store.SetLinkFilter(ctx, interaction.GuildID, enabled); err != nil {
			b.failStore(session, interaction, "link filter update", err)
			return
		}
		b.respondAction(session, interaction, "Filter updated", fmt.Sprintf("Link filter set to %t", enabled))
	case "caps":
		percent, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || percent < 0 || percent > 100 {
			b.respondError(session, interaction, "Caps threshold must be a number between 0 and 100.")
			return
		}
		if err := b.store.SetCapsThreshold(ctx, interaction.GuildID, percent); err != nil {
			b.failStore(session, interaction, "caps threshold update", err)
			return
		}
		b.respondAction(session, interaction, "Filter updated", fmt.Sprintf("Caps threshold set to %d%%", percent))
	default:
		b.respondError(session, interaction, "Unknown filter type.")
	}
}

func (b *Bot) handleSetModLog(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	channel := options.channel(session, "channel")
	if channel == nil {
		b.respondError(session, interaction, "Channel not found.")
		return
	}
	if err := b.store.SetModLogChannel(ctx, interaction.GuildID, channel.ID); err != nil {
		b.failStore(session, interaction, "mod-log channel update", err)
		return
	}
	b.respondAction(session, interaction, "Mod log", "Mod-log channel set to <#"+channel.ID+">")
}

func (b *Bot) handleBan(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}
	reason := options.str("reason")

	if err := b.collab.ApplyBan(interaction.GuildID, target.ID, reason); err != nil {
		b.respondError(session, interaction, "Ban failed: missing permissions or invalid target.")
		return
	}
	if _, err := b.modLog.Record(ctx, storage.ActionBan, interaction.GuildID, moderatorID(interaction), target.ID, reason); err != nil {
		b.respondError(session, interaction, "Banned, but the action could not be logged.")
		return
	}
	b.respondAction(session, interaction, "Member banned", fmt.Sprintf("<@%s> banned. Reason: %s", target.ID, orDefault(reason, "No reason")))
}

func (b *Bot) handleUnban(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}

	// Immediate reversal plus cancellation of any pending timed unban, so no
	// second reversal fires later.
	if err := b.collab.ReverseBan(ctx, interaction.GuildID, target.ID); err != nil {
		b.respondError(session, interaction, "Unban failed: missing permissions.")
		return
	}
	if err := b.scheduler.CancelPending(ctx, interaction.GuildID, target.ID, storage.KindUnban); err != nil {
		b.failStore(session, interaction, "pending unban cancellation", err)
		return
	}
	if _, err := b.modLog.Record(ctx, storage.ActionUnban, interaction.GuildID, moderatorID(interaction), target.ID, ""); err != nil {
		b.respondError(session, interaction, "Unbanned, but the action could not be logged.")
		return
	}
	b.respondAction(session, interaction, "Member unbanned", fmt.Sprintf("<@%s> unbanned.", target.ID))
}

func (b *Bot) handleTempBan(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}
	seconds := options.integer("seconds")
	reason := options.str("reason")

	// Order matters: apply the ban, persist the scheduled reversal, only
	// then acknowledge. A persistence failure after the ban is a
	// caller-visible error even though the ban already happened.
	if err := b.collab.ApplyBan(interaction.GuildID, target.ID, reason); err != nil {
		b.respondError(session, interaction, "Ban failed: missing permissions or invalid target.")
		return
	}
	_, recordErr := b.modLog.Record(ctx, storage.ActionTempBan, interaction.GuildID, moderatorID(interaction), target.ID, reason)
	_, err := b.scheduler.Schedule(ctx, scheduler.Request{
		GuildID:  interaction.GuildID,
		TargetID: target.ID,
		Kind:     storage.KindUnban,
		DueAt:    time.Now().Add(time.Duration(seconds) * time.Second),
	})
	if err != nil {
		b.logger.Error("tempban schedule failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondError(session, interaction, "The ban was applied, but the automatic unban could NOT be scheduled. Unban manually.")
		return
	}
	if recordErr != nil {
		b.respondError(session, interaction, "Banned with automatic unban scheduled, but the action could not be logged.")
		return
	}
	b.respondAction(session, interaction, "Member temp-banned", fmt.Sprintf("<@%s> banned for %d seconds.", target.ID, seconds))
}

func (b *Bot) handleKick(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}
	reason := options.str("reason")

	if err := session.GuildMemberDeleteWithReason(interaction.GuildID, target.ID, reason); err != nil {
		b.respondError(session, interaction, "Kick failed: missing permissions or invalid target.")
		return
	}
	if _, err := b.modLog.Record(ctx, storage.ActionKick, interaction.GuildID, moderatorID(interaction), target.ID, reason); err != nil {
		b.respondError(session, interaction, "Kicked, but the action could not be logged.")
		return
	}
	b.respondAction(session, interaction, "Member kicked", fmt.Sprintf("<@%s> kicked.", target.ID))
}

func (b *Bot) handleWarn(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}
	reason := options.str("reason")

	count, err := b.store.IncrementWarnCount(ctx, interaction.GuildID, target.ID)
	if err != nil {
		b.failStore(session, interaction, "warning", err)
		return
	}
	if _, err := b.modLog.Record(ctx, storage.ActionWarn, interaction.GuildID, moderatorID(interaction), target.ID, reason); err != nil {
		b.failStore(session, interaction, "warning log", err)
		return
	}
	b.respondAction(session, interaction, "Member warned", fmt.Sprintf("<@%s> warned (%d total): %s", target.ID, count, reason))
}

func (b *Bot) handleWarnings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}
	count, err := b.store.GetWarnCount(ctx, interaction.GuildID, target.ID)
	if err != nil {
		b.failStore(session, interaction, "warning lookup", err)
		return
	}
	b.respondAction(session, interaction, "Warnings", fmt.Sprintf("<@%s> has %d warning(s).", target.ID, count.CountTotal))
}

func (b *Bot) handleTempMute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}
	seconds := options.integer("seconds")
	reason := options.str("reason")

	if err := b.collab.ApplyMuteRole(interaction.GuildID, target.ID, reason); err != nil {
		b.respondError(session, interaction, "Mute failed: missing permissions.")
		return
	}
	_, recordErr := b.modLog.Record(ctx, storage.ActionTempMute, interaction.GuildID, moderatorID(interaction), target.ID, reason)
	_, err := b.scheduler.Schedule(ctx, scheduler.Request{
		GuildID:  interaction.GuildID,
		TargetID: target.ID,
		Kind:     storage.KindUnmute,
		DueAt:    time.Now().Add(time.Duration(seconds) * time.Second),
	})
	if err != nil {
		b.logger.Error("tempmute schedule failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondError(session, interaction, "The mute was applied, but the automatic unmute could NOT be scheduled. Unmute manually.")
		return
	}
	if recordErr != nil {
		b.respondError(session, interaction, "Muted with automatic unmute scheduled, but the action could not be logged.")
		return
	}
	b.respondAction(session, interaction, "Member muted", fmt.Sprintf("<@%s> muted for %d seconds.", target.ID, seconds))
}

func (b *Bot) handleUnmute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}

	if err := b.collab.ReverseMute(ctx, interaction.GuildID, target.ID); err != nil {
		b.respondError(session, interaction, "Unmute failed: missing permissions.")
		return
	}
	if err := b.scheduler.CancelPending(ctx, interaction.GuildID, target.ID, storage.KindUnmute); err != nil {
		b.failStore(session, interaction, "pending unmute cancellation", err)
		return
	}
	if _, err := b.modLog.Record(ctx, storage.ActionUnmute, interaction.GuildID, moderatorID(interaction), target.ID, ""); err != nil {
		b.respondError(session, interaction, "Unmuted, but the action could not be logged.")
		return
	}
	b.respondAction(session, interaction, "Member unmuted", fmt.Sprintf("<@%s> unmuted.", target.ID))
}

func (b *Bot) handleVoiceMute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	target := options.user(session, "user")
	if target == nil {
		b.respondError(session, interaction, "User not found.")
		return
	}
	seconds := options.integer("seconds")
	reason := options.str("reason")

	if err := b.collab.ApplyVoiceMute(interaction.GuildID, target.ID); err != nil {
		b.respondError(session, interaction, "Voice mute failed: member must be in a voice channel.")
		return
	}
	_, recordErr := b.modLog.Record(ctx, storage.ActionVoiceMute, interaction.GuildID, moderatorID(interaction), target.ID, reason)
	_, err := b.scheduler.Schedule(ctx, scheduler.Request{
		GuildID:  interaction.GuildID,
		TargetID: target.ID,
		Kind:     storage.KindVoiceUnmute,
		DueAt:    time.Now().Add(time.Duration(seconds) * time.Second),
	})
	if err != nil {
		b.logger.Error("voicemute schedule failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondError(session, interaction, "The voice mute was applied, but the automatic unmute could NOT be scheduled.")
		return
	}
	if recordErr != nil {
		b.respondError(session, interaction, "Voice-muted with automatic unmute scheduled, but the action could not be logged.")
		return
	}
	b.respondAction(session, interaction, "Member voice-muted", fmt.Sprintf("<@%s> voice-muted for %d seconds.", target.ID, seconds))
}

func (b *Bot) handleModLogView(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	limit := int(options.integer("limit"))
	if limit <= 0 {
		limit = 10
	}

	entries, err := b.store.ListModLog(ctx, interaction.GuildID, limit)
	if err != nil {
		b.failStore(session, interaction, "mod log query", err)
		return
	}
	if len(entries) == 0 {
		b.respondAction(session, interaction, "Mod log", "No mod log entries.")
		return
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(entries))
	for _, entry := range entries {
		moderator := "automod"
		if entry.ModeratorID != "" {
			moderator = "<@" + entry.ModeratorID + ">"
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("#%d %s", entry.ID, entry.Action),
			Value:  fmt.Sprintf("By %s on <@%s> — %s (<t:%d:R>)", moderator, entry.TargetID, orDefault(entry.Reason, "no reason"), entry.CreatedAt.Unix()),
			Inline: false,
		})
	}
	b.respondEmbed(session, interaction, &discordgo.MessageEmbed{
		Title:  "Mod log",
		Color:  b.cfg.Notifications.EmbedColors.Action,
		Fields: fields,
	})
}

func (b *Bot) handleRemindMe(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optMap) {
	seconds := options.integer("seconds")
	text := options.str("text")
	userID := moderatorID(interaction)
	if userID == "" {
		b.respondError(session, interaction, "Could not resolve your user.")
		return
	}

	_, err := b.scheduler.Schedule(ctx, scheduler.Request{
		GuildID:  interaction.GuildID,
		TargetID: userID,
		Kind:     storage.KindReminder,
		DueAt:    time.Now().Add(time.Duration(seconds) * time.Second),
		Payload:  text,
	})
	if err != nil {
		b.failStore(session, interaction, "reminder", err)
		return
	}
	b.respondAction(session, interaction, "Reminder set", fmt.Sprintf("Okay, I'll remind you in %d seconds.", seconds))
}

// ---- response and option helpers ----

func (b *Bot) respondAction(session *discordgo.Session, interaction *discordgo.InteractionCreate, title, description string) {
	b.respondEmbed(session, interaction, &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       b.cfg.Notifications.EmbedColors.Action,
	})
}

func (b *Bot) respondError(session *discordgo.Session, interaction *discordgo.InteractionCreate, description string) {
	b.respondEmbed(session, interaction, &discordgo.MessageEmbed{
		Title:       "Error",
		Description: description,
		Color:       b.cfg.Notifications.EmbedColors.Error,
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

func (b *Bot) failStore(session *discordgo.Session, interaction *discordgo.InteractionCreate, what string, err error) {
	b.logger.Error(what+" failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	b.respondError(session, interaction, "Storage error: the "+what+" was not saved.")
}

func moderatorID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

// parseToggle accepts only the explicit on/off spellings; anything else is
// rejected at the command boundary instead of silently meaning "off".
func parseToggle(value string) (enabled bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "on", "yes":
		return true, true
	case "false", "0", "off", "no":
		return false, true
	}
	return false, false
}

type optMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optMap {
	m := make(optMap, len(options))
	for _, option := range options {
		m[option.Name] = option
	}
	return m
}

func (m optMap) str(name string) string {
	if option, ok := m[name]; ok {
		return option.StringValue()
	}
	return ""
}

func (m optMap) integer(name string) int64 {
	if option, ok := m[name]; ok {
		return option.IntValue()
	}
	return 0
}

func (m optMap) user(session *discordgo.Session, name string) *discordgo.User {
	if option, ok := m[name]; ok {
		return option.UserValue(session)
	}
	return nil
}

func (m optMap) channel(session *discordgo.Session, name string) *discordgo.Channel {
	if option, ok := m[name]; ok {
		return option.ChannelValue(session)
	}
	return nil
}
