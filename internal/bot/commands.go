package bot

import "github.com/bwmarrin/discordgo"

var (
	permManageGuild = int64(discordgo.PermissionManageServer)
	permBanMembers  = int64(discordgo.PermissionBanMembers)
	permKickMembers = int64(discordgo.PermissionKickMembers)
	permManageRoles = int64(discordgo.PermissionManageRoles)
	permMuteMembers = int64(discordgo.PermissionVoiceMuteMembers)
	permViewAudit   = int64(discordgo.PermissionViewAuditLogs)
)

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "setfilter",
			Description:              "Configure an automod filter",
			DefaultMemberPermissions: &permManageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "Which filter to configure",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "blacklist", Value: "blacklist"},
						{Name: "links", Value: "links"},
						{Name: "caps", Value: "caps"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "Comma-separated words, on/off, or a percentage",
					Required:    true,
				},
			},
		},
		{
			Name:                     "setmodlog",
			Description:              "Set the mod-log channel",
			DefaultMemberPermissions: &permManageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel for moderation log posts",
					Required:    true,
				},
			},
		},
		{
			Name:                     "ban",
			Description:              "Ban a member",
			DefaultMemberPermissions: &permBanMembers,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to ban"),
				reasonOption(),
			},
		},
		{
			Name:                     "unban",
			Description:              "Remove a ban immediately",
			DefaultMemberPermissions: &permBanMembers,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to unban"),
			},
		},
		{
			Name:                     "tempban",
			Description:              "Ban a member for a limited time",
			DefaultMemberPermissions: &permBanMembers,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to ban"),
				secondsOption("Ban duration in seconds"),
				reasonOption(),
			},
		},
		{
			Name:                     "kick",
			Description:              "Kick a member",
			DefaultMemberPermissions: &permKickMembers,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to kick"),
				reasonOption(),
			},
		},
		{
			Name:                     "warn",
			Description:              "Warn a member",
			DefaultMemberPermissions: &permKickMembers,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to warn"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Why the warning is issued",
					Required:    true,
				},
			},
		},
		{
			Name:                     "warnings",
			Description:              "Show a member's warning count",
			DefaultMemberPermissions: &permKickMembers,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to look up"),
			},
		},
		{
			Name:                     "tempmute",
			Description:              "Mute a member for a limited time",
			DefaultMemberPermissions: &permManageRoles,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to mute"),
				secondsOption("Mute duration in seconds"),
				reasonOption(),
			},
		},
		{
			Name:                     "unmute",
			Description:              "Unmute a member immediately",
			DefaultMemberPermissions: &permManageRoles,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to unmute"),
			},
		},
		{
			Name:                     "voicemute",
			Description:              "Server-mute a member in voice for a limited time",
			DefaultMemberPermissions: &permMuteMembers,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Member to voice-mute"),
				secondsOption("Mute duration in seconds"),
				reasonOption(),
			},
		},
		{
			Name:                     "modlog",
			Description:              "Show recent moderation cases",
			DefaultMemberPermissions: &permViewAudit,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "How many cases to show (default 10)",
					Required:    false,
					MinValue:    float64Ptr(1),
					MaxValue:    25,
				},
			},
		},
		{
			Name:        "remindme",
			Description: "Get a reminder after a delay",
			Options: []*discordgo.ApplicationCommandOption{
				secondsOption("Delay in seconds"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "What to be reminded about",
					Required:    true,
				},
			},
		},
	}

	for _, command := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", command); err != nil {
			return err
		}
	}
	return nil
}

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func secondsOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "seconds",
		Description: description,
		Required:    true,
		MinValue:    float64Ptr(1),
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason for the action",
		Required:    false,
	}
}

func float64Ptr(value float64) *float64 {
	return &value
}
