package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"checkin/internal/config"
	"checkin/internal/ports/input"
	"checkin/internal/ports/output"
)

// Bot is the Discord adapter: it keeps one stats message up to date in a
// channel and answers /checkin-stats.
type Bot struct {
	session *discordgo.Session
	handler *Handler
}

// NewBot creates the session and wires the roster use case into the handler.
func NewBot(cfg *config.Config, roster input.RosterUseCase, tr output.Translator) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("erreur lors de la création de la session Discord: %w", err)
	}

	handler := NewHandler(roster, tr, s, Settings{
		ChannelID: cfg.DiscordChannelID,
		Locale:    cfg.Locale,
		Location:  cfg.Location,
	})

	bot := &Bot{
		session: s,
		handler: handler,
	}
	bot.setupHandlers()
	return bot, nil
}

func (b *Bot) setupHandlers() {
	b.session.AddHandler(b.handleInteraction)
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.ApplicationCommandData().Name == commandStats {
		b.handler.HandleStatsCommand(s, i)
	}
}

// Start runs the bot until ctx is canceled.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("erreur lors de l'ouverture de la session: %w", err)
	}
	defer b.session.Close()

	for _, cmd := range b.handler.commands() {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd); err != nil {
			log.Printf("⚠️ Erreur lors de l'enregistrement de la commande %s: %v", cmd.Name, err)
		}
	}

	log.Println("🤖 Bot en ligne, statistiques publiées dans le salon configuré.")
	b.handler.Run(ctx, rate.NewLimiter(rate.Every(2*time.Second), 1), 10*time.Minute)
	return nil
}
