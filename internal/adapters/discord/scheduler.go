package discord

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"checkin/internal/domain/entities"
	pkgdiscord "checkin/pkg/discord"
)

// Run keeps the stats message in sync with the roster until ctx is done.
// Publications only mark the message dirty; limiter bounds how often it is
// rewritten and refresh re-renders it periodically so the footer stays current.
func (h *Handler) Run(ctx context.Context, limiter *rate.Limiter, refresh time.Duration) {
	unsubscribe := h.roster.Subscribe(func(entities.Roster) { h.markDirty() })
	defer unsubscribe()

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	h.markDirty()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-h.dirty:
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		// Anything published while waiting is included in this render.
		select {
		case <-h.dirty:
		default:
		}
		h.sync()
	}
}

func (h *Handler) markDirty() {
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

// sync edits the stats message, posting a new one the first time or when the
// previous one can no longer be edited.
func (h *Handler) sync() {
	embed := pkgdiscord.BuildStatsEmbed(h.tr, h.settings.Locale, h.view(), h.settings.Location)
	if h.messageID != "" {
		_, err := h.out.ChannelMessageEditEmbed(h.settings.ChannelID, h.messageID, embed)
		if err == nil {
			return
		}
		log.Printf("⚠️ Message de statistiques %s non modifiable, republication: %v", h.messageID, err)
	}
	msg, err := h.out.ChannelMessageSendEmbed(h.settings.ChannelID, embed)
	if err != nil {
		log.Printf("❌ Erreur lors de l'envoi des statistiques: %v", err)
		return
	}
	h.messageID = msg.ID
}
