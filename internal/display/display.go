// Package display composes the Discord-facing views of a server: the
// header embed, the live game-state embed, and the two map-rotation views.
// Builders are pure functions of (config, freshly fetched API results); the
// only threaded state is the caller-supplied clock.
package display

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hlltools/server-status/internal/config"
	"github.com/hlltools/server-status/internal/crcon"
	"github.com/hlltools/server-status/internal/gamemap"
	"github.com/hlltools/server-status/internal/rotation"
)

// Fetcher is the slice of the CRCON client the builders need. Each builder
// fetches only the endpoints its section requires.
type Fetcher interface {
	ServerName(ctx context.Context) (crcon.ServerName, error)
	GameState(ctx context.Context) (crcon.GameState, error)
	Slots(ctx context.Context) (crcon.Slots, error)
	VIPSlots(ctx context.Context) (int, error)
	VIPCount(ctx context.Context) (int, error)
	MapRotation(ctx context.Context) ([]gamemap.Map, error)
}

// Message is the output of one builder: either plain content or an embed,
// never both.
type Message struct {
	Content string
	Embed   *discordgo.MessageEmbed
}

// Builder renders display sections for a single configured server.
type Builder struct {
	cfg     *config.Config
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Builder. A nil logger falls back to slog.Default.
func New(cfg *config.Config, fetcher Fetcher, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{cfg: cfg, fetcher: fetcher, logger: logger, now: time.Now}
}

// --------------------------------------------------------------------------
// Header
// --------------------------------------------------------------------------

// Header builds the server header embed: identity, optional connect links,
// and the configured VIP count fields.
func (b *Builder) Header(ctx context.Context) (Message, error) {
	name, err := b.fetcher.ServerName(ctx)
	if err != nil {
		return Message{}, err
	}

	h := b.cfg.Display.Header
	embed := &discordgo.MessageEmbed{}

	switch h.ServerName {
	case "name":
		embed.Title = name.Name
	case "short_name":
		embed.Title = name.ShortName
	default:
		// Guarded at config load; a miss here means validation was bypassed.
		return Message{}, fmt.Errorf("unknown display.header server_name %q", h.ServerName)
	}

	if h.QuickConnectURL != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: h.QuickConnectName, Value: h.QuickConnectURL,
		})
	}
	if h.BattlemetricsURL != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: h.BattlemetricsName, Value: h.BattlemetricsURL,
		})
	}

	for _, field := range h.Embeds {
		var n int
		switch field.Value {
		case "reserved_vip_slots":
			n, err = b.fetcher.VIPSlots(ctx)
		case "current_vips":
			n, err = b.fetcher.VIPCount(ctx)
		default:
			return Message{}, fmt.Errorf("unknown display.header.embeds value %q for %s",
				field.Value, b.cfg.ServerIdentifier)
		}
		if err != nil {
			return Message{}, err
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: field.Name, Value: strconv.Itoa(n), Inline: field.Inline,
		})
	}

	b.applyFooter(embed, h.Footer)
	return Message{Embed: embed}, nil
}

// --------------------------------------------------------------------------
// Game state
// --------------------------------------------------------------------------

// Gamestate builds the live match embed with the configured fields and an
// optional current-map image.
func (b *Builder) Gamestate(ctx context.Context) (Message, error) {
	gs, err := b.fetcher.GameState(ctx)
	if err != nil {
		return Message{}, err
	}

	g := b.cfg.Display.Gamestate
	embed := &discordgo.MessageEmbed{}

	if g.Image {
		if url, ok := gs.CurrentMap.PictureURL(b.cfg.API.BaseServerURL); ok {
			embed.Image = &discordgo.MessageEmbedImage{URL: url}
		}
	}

	for _, field := range g.Embeds {
		var value string
		switch field.Value {
		case "slots":
			slots, err := b.fetcher.Slots(ctx)
			if err != nil {
				return Message{}, err
			}
			value = fmt.Sprintf("%d/%d", slots.PlayerCount, slots.MaxPlayers)
		case config.EmptyEmbedValue:
			value = field.Value
		case "score":
			value = fmt.Sprintf(b.scoreFormat(gs.CurrentMap), gs.AlliedScore, gs.AxisScore)
		case "current_map":
			value = gs.CurrentMap.Name()
		case "next_map":
			value = gs.NextMap.Name()
		case "time_remaining":
			value = gs.RawTimeRemaining
		case "num_allied_players":
			value = strconv.Itoa(gs.NumAlliedPlayers)
		case "num_axis_players":
			value = strconv.Itoa(gs.NumAxisPlayers)
		default:
			return Message{}, fmt.Errorf("unknown display.gamestate.embeds value %q for %s",
				field.Value, b.cfg.ServerIdentifier)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: field.Name, Value: value, Inline: field.Inline,
		})
	}

	b.applyFooter(embed, g.Footer)
	return Message{Embed: embed}, nil
}

// scoreFormat picks the score template by front, falling back to the
// default template when no front-specific one is configured.
func (b *Builder) scoreFormat(current gamemap.Map) string {
	g := b.cfg.Display.Gamestate
	switch {
	case g.ScoreFormatGerUS != "" && current.OnWesternFront():
		return g.ScoreFormatGerUS
	case g.ScoreFormatGerRUS != "" && current.OnEasternFront():
		return g.ScoreFormatGerRUS
	default:
		return g.ScoreFormat
	}
}

// --------------------------------------------------------------------------
// Map rotation, color block view
// --------------------------------------------------------------------------

// MapRotationColor builds the rotation as stacked color code blocks, one
// per rotation slot, colored by estimated position. Every candidate slot
// for an ambiguous position is highlighted rather than guessing one.
func (b *Builder) MapRotationColor(ctx context.Context) (Message, error) {
	rot, err := b.fetcher.MapRotation(ctx)
	if err != nil {
		return Message{}, err
	}
	gs, err := b.fetcher.GameState(ctx)
	if err != nil {
		return Message{}, err
	}

	currentPositions := rotation.CurrentPositions(rot, gs.CurrentMap, gs.NextMap)
	nextPositions := rotation.NextPositions(currentPositions, len(rot))
	b.logger.Debug("rotation positions",
		"server", b.cfg.ServerIdentifier,
		"current", currentPositions, "next", nextPositions)

	mc := b.cfg.Display.MapRotation.Color
	currentStyle, err := b.colorStyle("current_map_color", mc.CurrentMapColor)
	if err != nil {
		return Message{}, err
	}
	nextStyle, err := b.colorStyle("next_map_color", mc.NextMapColor)
	if err != nil {
		return Message{}, err
	}
	otherStyle, err := b.colorStyle("other_map_color", mc.OtherMapColor)
	if err != nil {
		return Message{}, err
	}

	var content strings.Builder
	if mc.DisplayTitle {
		content.WriteString(mc.Title + "\n")
	}

	for idx, m := range rot {
		style := otherStyle
		if containsIndex(currentPositions, idx) {
			style = currentStyle
		} else if containsIndex(nextPositions, idx) {
			style = nextStyle
		}
		content.WriteString(codeBlock(style, m.Name()))
	}

	if mc.DisplayLegend {
		content.WriteString(mc.LegendTitle + "\n")
		content.WriteString(codeBlock(currentStyle, mc.Legend[0]))
		content.WriteString(codeBlock(nextStyle, mc.Legend[1]))
		content.WriteString(codeBlock(otherStyle, mc.Legend[2]))
	}

	if mc.DisplayLastRefreshed {
		content.WriteString(fmt.Sprintf(mc.LastRefreshText, b.now().Unix()))
	}

	return Message{Content: content.String()}, nil
}

func codeBlock(style, text string) string {
	return "```" + style + "\n" + text + "\n```"
}

// colorStyle resolves a configured color name to its code block style.
func (b *Builder) colorStyle(selector, color string) (string, error) {
	style, ok := config.CodeBlockStyles[color]
	if !ok {
		// Guarded at config load; a miss here means validation was bypassed.
		return "", fmt.Errorf("unknown display.map_rotation.color %s %q for %s",
			selector, color, b.cfg.ServerIdentifier)
	}
	return style, nil
}

// --------------------------------------------------------------------------
// Map rotation, embed view
// --------------------------------------------------------------------------

// MapRotationEmbed builds the rotation as an embed with one templated line
// per slot, tagged with its 1-based position.
func (b *Builder) MapRotationEmbed(ctx context.Context) (Message, error) {
	rot, err := b.fetcher.MapRotation(ctx)
	if err != nil {
		return Message{}, err
	}
	gs, err := b.fetcher.GameState(ctx)
	if err != nil {
		return Message{}, err
	}

	currentPositions := rotation.CurrentPositions(rot, gs.CurrentMap, gs.NextMap)
	nextPositions := rotation.NextPositions(currentPositions, len(rot))

	me := b.cfg.Display.MapRotation.Embed

	lines := make([]string, 0, len(rot)+1)
	for idx, m := range rot {
		tmpl := me.OtherMap
		if containsIndex(currentPositions, idx) {
			tmpl = me.CurrentMap
		} else if containsIndex(nextPositions, idx) {
			tmpl = me.NextMap
		}
		lines = append(lines, fmt.Sprintf(tmpl, m.Name(), idx+1))
	}
	if me.DisplayLegend {
		lines = append(lines, me.Legend)
	}

	embed := &discordgo.MessageEmbed{
		Fields: []*discordgo.MessageEmbedField{
			{Name: me.Title, Value: strings.Join(lines, "\n")},
		},
	}

	if me.BannerEnabled {
		// Cache-busting query so Discord refetches the banner every cycle.
		embed.Image = &discordgo.MessageEmbedImage{
			URL: fmt.Sprintf("%s?id=%d", me.BannerURL, b.now().UnixMilli()),
		}
	}

	b.applyFooter(embed, me.Footer)
	return Message{Embed: embed}, nil
}

// --------------------------------------------------------------------------
// Shared helpers
// --------------------------------------------------------------------------

func (b *Builder) applyFooter(embed *discordgo.MessageEmbed, f config.Footer) {
	if !f.Enabled {
		return
	}
	if text := f.Text + f.LastRefreshText; text != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: text}
	}
	if f.IncludeTimestamp {
		embed.Timestamp = b.now().UTC().Format(time.RFC3339)
	}
}

func containsIndex(positions []int, idx int) bool {
	for _, p := range positions {
		if p == idx {
			return true
		}
	}
	return false
}
