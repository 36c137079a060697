// Package config loads and validates per-server YAML configuration. One
// file per tracked server; every closed-vocabulary display selector is
// checked at load time so render code never sees an out-of-vocabulary
// value without failing loudly.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// --------------------------------------------------------------------------
// Display vocabularies — single source of truth for selector validation
// --------------------------------------------------------------------------

// EmptyEmbedValue is the literal placeholder used to lay out blank embed
// fields (a zero-width space, which Discord accepts as non-empty).
const EmptyEmbedValue = "​"

// ServerNameChoices are the valid display.header.server_name selectors.
var ServerNameChoices = map[string]bool{
	"name":       true,
	"short_name": true,
}

// HeaderEmbedValues are the valid display.header.embeds field kinds.
var HeaderEmbedValues = map[string]bool{
	"reserved_vip_slots": true,
	"current_vips":       true,
}

// GamestateEmbedValues are the valid display.gamestate.embeds field kinds.
var GamestateEmbedValues = map[string]bool{
	"slots":              true,
	"score":              true,
	"current_map":        true,
	"next_map":           true,
	"time_remaining":     true,
	"num_allied_players": true,
	"num_axis_players":   true,
	EmptyEmbedValue:      true,
}

// CodeBlockStyles maps a rotation color name to the Discord code block
// language tag that renders text in that color.
var CodeBlockStyles = map[string]string{
	"white":  "",
	"cyan":   "yaml",
	"yellow": "fix",
	"orange": "css",
	"blue":   "ini",
}

// --------------------------------------------------------------------------
// Config structs
// --------------------------------------------------------------------------

type Config struct {
	// ServerIdentifier distinguishes servers in logs and the message store.
	// Defaults to the config file name without extension.
	ServerIdentifier string `yaml:"server_identifier"`

	Discord DiscordConfig `yaml:"discord"`
	API     APIConfig     `yaml:"api"`
	Display DisplayConfig `yaml:"display"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type APIConfig struct {
	BaseServerURL     string `yaml:"base_server_url"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type DisplayConfig struct {
	Header      HeaderConfig      `yaml:"header"`
	Gamestate   GamestateConfig   `yaml:"gamestate"`
	MapRotation MapRotationConfig `yaml:"map_rotation"`
}

// EmbedField is one configured embed field: a display name, a field kind
// from the section's closed vocabulary, and the Discord inline flag.
type EmbedField struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Inline bool   `yaml:"inline"`
}

type Footer struct {
	Enabled          bool   `yaml:"enabled"`
	Text             string `yaml:"text"`
	LastRefreshText  string `yaml:"last_refresh_text"`
	IncludeTimestamp bool   `yaml:"include_timestamp"`
}

type HeaderConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Refresh           time.Duration `yaml:"refresh"`
	ServerName        string        `yaml:"server_name"`
	QuickConnectName  string        `yaml:"quick_connect_name"`
	QuickConnectURL   string        `yaml:"quick_connect_url"`
	BattlemetricsName string        `yaml:"battlemetrics_name"`
	BattlemetricsURL  string        `yaml:"battlemetrics_url"`
	Embeds            []EmbedField  `yaml:"embeds"`
	Footer            Footer        `yaml:"footer"`
}

type GamestateConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Refresh           time.Duration `yaml:"refresh"`
	Image             bool          `yaml:"image"`
	ScoreFormat       string        `yaml:"score_format"`
	ScoreFormatGerUS  string        `yaml:"score_format_ger_us"`
	ScoreFormatGerRUS string        `yaml:"score_format_ger_rus"`
	Embeds            []EmbedField  `yaml:"embeds"`
	Footer            Footer        `yaml:"footer"`
}

type MapRotationConfig struct {
	Color RotationColorConfig `yaml:"color"`
	Embed RotationEmbedConfig `yaml:"embed"`
}

type RotationColorConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Refresh              time.Duration `yaml:"refresh"`
	Title                string        `yaml:"title"`
	DisplayTitle         bool          `yaml:"display_title"`
	CurrentMapColor      string        `yaml:"current_map_color"`
	NextMapColor         string        `yaml:"next_map_color"`
	OtherMapColor        string        `yaml:"other_map_color"`
	DisplayLegend        bool          `yaml:"display_legend"`
	LegendTitle          string        `yaml:"legend_title"`
	Legend               []string      `yaml:"legend"` // current, next, other
	DisplayLastRefreshed bool          `yaml:"display_last_refreshed"`
	LastRefreshText      string        `yaml:"last_refresh_text"` // takes a unix timestamp (%d)
}

type RotationEmbedConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Refresh       time.Duration `yaml:"refresh"`
	Title         string        `yaml:"title"`
	CurrentMap    string        `yaml:"current_map"` // fmt template: map name (%s), 1-based position (%d)
	NextMap       string        `yaml:"next_map"`
	OtherMap      string        `yaml:"other_map"`
	DisplayLegend bool          `yaml:"display_legend"`
	Legend        string        `yaml:"legend"`
	BannerEnabled bool          `yaml:"banner_enabled"`
	BannerURL     string        `yaml:"banner_url"`
	Footer        Footer        `yaml:"footer"`
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// Load reads, defaults, and validates a single server config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.ServerIdentifier == "" {
		baseName := filepath.Base(path)
		cfg.ServerIdentifier = strings.TrimSuffix(baseName, filepath.Ext(baseName))
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDir loads every *.yml / *.yaml file in dir, sorted by name.
func LoadDir(dir string) ([]*Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yml", ".yaml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no config files in %s", dir)
	}

	configs := make([]*Config, 0, len(paths))
	for _, p := range paths {
		cfg, err := Load(p)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (c *Config) applyDefaults() {
	if c.API.RequestsPerMinute <= 0 {
		c.API.RequestsPerMinute = 60
	}
	if c.Display.Header.Refresh <= 0 {
		c.Display.Header.Refresh = 5 * time.Minute
	}
	if c.Display.Gamestate.Refresh <= 0 {
		c.Display.Gamestate.Refresh = time.Minute
	}
	if c.Display.MapRotation.Color.Refresh <= 0 {
		c.Display.MapRotation.Color.Refresh = 2 * time.Minute
	}
	if c.Display.MapRotation.Embed.Refresh <= 0 {
		c.Display.MapRotation.Embed.Refresh = 2 * time.Minute
	}
	if c.Display.Gamestate.ScoreFormat == "" {
		c.Display.Gamestate.ScoreFormat = "Allied %d : Axis %d"
	}
	if c.Display.MapRotation.Color.CurrentMapColor == "" {
		c.Display.MapRotation.Color.CurrentMapColor = "cyan"
	}
	if c.Display.MapRotation.Color.NextMapColor == "" {
		c.Display.MapRotation.Color.NextMapColor = "yellow"
	}
	if c.Display.MapRotation.Color.OtherMapColor == "" {
		c.Display.MapRotation.Color.OtherMapColor = "white"
	}
	if c.Display.MapRotation.Embed.CurrentMap == "" {
		c.Display.MapRotation.Embed.CurrentMap = "🟩 %s (#%d)"
	}
	if c.Display.MapRotation.Embed.NextMap == "" {
		c.Display.MapRotation.Embed.NextMap = "🟨 %s (#%d)"
	}
	if c.Display.MapRotation.Embed.OtherMap == "" {
		c.Display.MapRotation.Embed.OtherMap = "⬜ %s (#%d)"
	}
}

// applyEnvOverrides lets CRCON credentials come from the environment so
// config files can be committed without secrets.
func (c *Config) applyEnvOverrides() {
	c.API.Username = envOr("CRCON_USERNAME", c.API.Username)
	c.API.Password = envOr("CRCON_PASSWORD", c.API.Password)
}

// --------------------------------------------------------------------------
// Validation
// --------------------------------------------------------------------------

// Validate checks required fields and every closed-vocabulary selector.
func (c *Config) Validate() error {
	if c.API.BaseServerURL == "" {
		return fmt.Errorf("api.base_server_url is required")
	}
	if _, err := url.ParseRequestURI(c.API.BaseServerURL); err != nil {
		return fmt.Errorf("api.base_server_url: %w", err)
	}
	if c.Discord.WebhookURL == "" {
		return fmt.Errorf("discord.webhook_url is required")
	}

	h := c.Display.Header
	if !ServerNameChoices[h.ServerName] {
		return fmt.Errorf("invalid display.header server_name=%q", h.ServerName)
	}
	for _, field := range h.Embeds {
		if !HeaderEmbedValues[field.Value] {
			return fmt.Errorf("invalid display.header.embeds value=%q", field.Value)
		}
	}

	for _, field := range c.Display.Gamestate.Embeds {
		if !GamestateEmbedValues[field.Value] {
			return fmt.Errorf("invalid display.gamestate.embeds value=%q", field.Value)
		}
	}

	// Checked even when the section is disabled: the render command builds
	// any section on demand, so a disabled section's settings must still be
	// sound at load time.
	mc := c.Display.MapRotation.Color
	for name, color := range map[string]string{
		"current_map_color": mc.CurrentMapColor,
		"next_map_color":    mc.NextMapColor,
		"other_map_color":   mc.OtherMapColor,
	} {
		if _, ok := CodeBlockStyles[color]; !ok {
			return fmt.Errorf("invalid display.map_rotation.color %s=%q", name, color)
		}
	}
	if mc.DisplayLegend && len(mc.Legend) != 3 {
		return fmt.Errorf("display.map_rotation.color legend needs exactly 3 entries, got %d", len(mc.Legend))
	}

	me := c.Display.MapRotation.Embed
	if me.Enabled && me.BannerEnabled && me.BannerURL == "" {
		return fmt.Errorf("display.map_rotation.embed banner_enabled requires banner_url")
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
