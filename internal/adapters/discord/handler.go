package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"checkin/internal/ports/input"
	"checkin/internal/ports/output"
)

// messenger is the part of *discordgo.Session the stats message needs.
type messenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Settings locate the stats message and how it is rendered.
type Settings struct {
	ChannelID string
	Locale    string
	Location  *time.Location
}

// Handler renders roster statistics to Discord.
type Handler struct {
	roster   input.RosterUseCase
	tr       output.Translator
	out      messenger
	settings Settings

	dirty     chan struct{}
	messageID string
	now       func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(roster input.RosterUseCase, tr output.Translator, out messenger, settings Settings) *Handler {
	return &Handler{
		roster:   roster,
		tr:       tr,
		out:      out,
		settings: settings,
		dirty:    make(chan struct{}, 1),
		now:      time.Now,
	}
}
