package discord

import (
	"github.com/bwmarrin/discordgo"

	pkgdiscord "checkin/pkg/discord"
)

const commandStats = "checkin-stats"

func (h *Handler) commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: commandStats, Description: h.tr.T(h.settings.Locale, "command_stats_description", nil)},
	}
}

// HandleStatsCommand answers /checkin-stats with the current statistics,
// in the locale of the user who asked.
func (h *Handler) HandleStatsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	locale := string(i.Locale)
	if locale == "" {
		locale = h.settings.Locale
	}
	respondEphemeralEmbed(s, i.Interaction, pkgdiscord.BuildStatsEmbed(h.tr, locale, h.view(), h.settings.Location))
}

func (h *Handler) view() pkgdiscord.StatsView {
	return pkgdiscord.StatsView{
		Stats:     h.roster.Stats(),
		Source:    h.roster.Status(),
		UpdatedAt: h.now(),
	}
}
