package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/CreeperRick/Discord-Bot/internal/scheduler"
	"github.com/CreeperRick/Discord-Bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const mutedRoleName = "Muted"

// Collaborators wraps the Discord API behind the idempotent operations the
// scheduler and command handlers need. Every reversal is safe to call when
// the target state already holds: an expired ban, an already-removed role or
// a user who left all become no-ops, never errors.
type Collaborators struct {
	session *discordgo.Session
	store   *storage.Store
	logger  *zap.Logger
}

func NewCollaborators(session *discordgo.Session, store *storage.Store, logger *zap.Logger) *Collaborators {
	return &Collaborators{session: session, store: store, logger: logger}
}

var _ scheduler.Dispatcher = (*Collaborators)(nil)

func (c *Collaborators) ApplyBan(guildID, userID, reason string) error {
	return c.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (c *Collaborators) ReverseBan(_ context.Context, guildID, userID string) error {
	if c.guildGone(guildID) {
		return scheduler.ErrTargetGone
	}
	err := c.session.GuildBanDelete(guildID, userID)
	if isUnknownEntity(err) {
		return nil
	}
	return err
}

func (c *Collaborators) ApplyMuteRole(guildID, userID, reason string) error {
	role, err := c.ensureMutedRole(guildID)
	if err != nil {
		return err
	}
	return c.session.GuildMemberRoleAdd(guildID, userID, role.ID)
}

func (c *Collaborators) ReverseMute(_ context.Context, guildID, userID string) error {
	if c.guildGone(guildID) {
		return scheduler.ErrTargetGone
	}
	role := c.findMutedRole(guildID)
	if role == nil {
		return nil
	}
	member, err := c.session.GuildMember(guildID, userID)
	if err != nil {
		if isUnknownEntity(err) {
			return nil
		}
		return err
	}
	for _, id := range member.Roles {
		if id == role.ID {
			err := c.session.GuildMemberRoleRemove(guildID, userID, role.ID)
			if isUnknownEntity(err) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (c *Collaborators) ApplyVoiceMute(guildID, userID string) error {
	return c.session.GuildMemberMute(guildID, userID, true)
}

func (c *Collaborators) ReverseVoiceMute(_ context.Context, guildID, userID string) error {
	if c.guildGone(guildID) {
		return scheduler.ErrTargetGone
	}
	err := c.session.GuildMemberMute(guildID, userID, false)
	if isUnknownEntity(err) {
		return nil
	}
	return err
}

// DeliverReminder DMs the user and falls back to the guild's mod-log or
// system channel when DMs are closed. Best effort, no retries.
func (c *Collaborators) DeliverReminder(ctx context.Context, guildID, userID, text string) error {
	content := fmt.Sprintf("<@%s> Reminder: %s", userID, text)

	if channel, err := c.session.UserChannelCreate(userID); err == nil {
		if _, err := c.session.ChannelMessageSend(channel.ID, "Reminder: "+text); err == nil {
			return nil
		}
	}

	fallback := ""
	if cfg, err := c.store.GetGuildConfig(ctx, guildID); err == nil {
		fallback = cfg.ModLogChannel
	}
	if fallback == "" {
		if guild, err := c.session.State.Guild(guildID); err == nil {
			fallback = guild.SystemChannelID
		}
	}
	if fallback == "" {
		c.logger.Warn("reminder undeliverable", zap.String("guild_id", guildID), zap.String("user_id", userID))
		return nil
	}
	c.SendMessage(fallback, content)
	return nil
}

func (c *Collaborators) DeleteMessage(channelID, messageID string) {
	if err := c.session.ChannelMessageDelete(channelID, messageID); err != nil {
		c.logger.Debug("message delete failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (c *Collaborators) SendMessage(channelID, content string) {
	if _, err := c.session.ChannelMessageSend(channelID, content); err != nil {
		c.logger.Debug("message send failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (c *Collaborators) guildGone(guildID string) bool {
	_, err := c.session.State.Guild(guildID)
	return err != nil
}

func (c *Collaborators) findMutedRole(guildID string) *discordgo.Role {
	guild, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil
	}
	for _, role := range guild.Roles {
		if role.Name == mutedRoleName {
			return role
		}
	}
	return nil
}

func (c *Collaborators) ensureMutedRole(guildID string) (*discordgo.Role, error) {
	if role := c.findMutedRole(guildID); role != nil {
		return role, nil
	}

	role, err := c.session.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: mutedRoleName})
	if err != nil {
		return nil, err
	}

	// Deny send/speak everywhere the bot can edit; channels it cannot edit
	// are skipped.
	channels, err := c.session.GuildChannels(guildID)
	if err != nil {
		return role, nil
	}
	deny := int64(discordgo.PermissionSendMessages | discordgo.PermissionAddReactions | discordgo.PermissionVoiceSpeak)
	for _, channel := range channels {
		if err := c.session.ChannelPermissionSet(channel.ID, role.ID, discordgo.PermissionOverwriteTypeRole, 0, deny); err != nil {
			c.logger.Debug("mute overwrite failed", zap.String("channel_id", channel.ID), zap.Error(err))
		}
	}
	return role, nil
}

func isUnknownEntity(err error) bool {
	if err == nil {
		return false
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	switch restErr.Message.Code {
	case discordgo.ErrCodeUnknownBan,
		discordgo.ErrCodeUnknownMember,
		discordgo.ErrCodeUnknownUser,
		discordgo.ErrCodeUnknownRole,
		discordgo.ErrCodeUnknownGuild:
		return true
	}
	return false
}
