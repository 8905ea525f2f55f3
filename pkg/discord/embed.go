package discord

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"checkin/internal/domain/entities"
	"checkin/internal/ports/input"
	"checkin/internal/ports/output"
	"checkin/pkg/tz"
)

const (
	embedColor      = 0x5865F2
	embedColorDone  = 0x57F287
	embedColorError = 0xED4245

	// maxFieldLines keeps breakdown fields under Discord's 1024 character limit.
	maxFieldLines = 15
)

// StatsView is what the stats embed renders.
type StatsView struct {
	Stats     entities.Stats
	Source    input.SourceStatus
	UpdatedAt time.Time
}

// BuildStatsEmbed renders live check-in statistics in locale.
func BuildStatsEmbed(tr output.Translator, locale string, v StatsView, loc *time.Location) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: tr.T(locale, "stats_title", nil),
		Color: embedColor,
		Footer: &discordgo.MessageEmbedFooter{Text: tr.T(locale, "stats_footer", map[string]any{
			"Source": v.Source.Kind,
			"Time":   tz.Clock(v.UpdatedAt, loc),
		})},
	}

	if v.Stats.Total == 0 {
		embed.Description = tr.T(locale, "stats_empty", nil)
	} else {
		embed.Description = tr.T(locale, "stats_description", map[string]any{
			"CheckedIn":  v.Stats.CheckedIn,
			"Total":      v.Stats.Total,
			"Percentage": fmt.Sprintf("%.0f", v.Stats.Percentage),
			"Pending":    v.Stats.Pending,
		})
		if v.Stats.Pending == 0 {
			embed.Color = embedColorDone
		}
	}

	if f := breakdownField(tr.T(locale, "stats_by_table", nil), v.Stats.ByTable); f != nil {
		embed.Fields = append(embed.Fields, f)
	}
	if f := breakdownField(tr.T(locale, "stats_by_group", nil), v.Stats.ByGroup); f != nil {
		embed.Fields = append(embed.Fields, f)
	}

	if v.Source.ErrorCode != "" {
		embed.Color = embedColorError
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "⚠️",
			Value: tr.T(locale, "error_"+v.Source.ErrorCode, nil),
		})
	}
	return embed
}

// breakdownField lists counts, highest first, ties by name.
func breakdownField(name string, counts map[string]int) *discordgo.MessageEmbedField {
	if len(counts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	var b strings.Builder
	for i, k := range keys {
		if i == maxFieldLines {
			b.WriteString(fmt.Sprintf("… +%d", len(keys)-maxFieldLines))
			break
		}
		b.WriteString(fmt.Sprintf("**%s** : %d\n", k, counts[k]))
	}
	return &discordgo.MessageEmbedField{Name: name, Value: strings.TrimRight(b.String(), "\n"), Inline: true}
}
