package crcon

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hlltools/server-status/internal/gamemap"
)

// ServerName is the server identity from api/get_status.
type ServerName struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// Slots is the player slot usage from api/get_slots.
type Slots struct {
	PlayerCount int `json:"player_count"`
	MaxPlayers  int `json:"max_players"`
}

// GameState is the live match snapshot from api/get_gamestate.
type GameState struct {
	NumAlliedPlayers int
	NumAxisPlayers   int
	AlliedScore      int
	AxisScore        int
	RawTimeRemaining string
	TimeRemaining    time.Duration
	CurrentMap       gamemap.Map
	NextMap          gamemap.Map
}

// ParseServerName decodes the get_status result.
func ParseServerName(raw json.RawMessage) (ServerName, error) {
	var name ServerName
	if err := json.Unmarshal(raw, &name); err != nil {
		return ServerName{}, fmt.Errorf("parse server name: %w", err)
	}
	if name.Name == "" {
		return ServerName{}, fmt.Errorf("parse server name: empty name in %s", truncate(raw, 100))
	}
	return name, nil
}

// ParseSlots decodes the get_slots result.
func ParseSlots(raw json.RawMessage) (Slots, error) {
	var slots Slots
	if err := json.Unmarshal(raw, &slots); err != nil {
		return Slots{}, fmt.Errorf("parse slots: %w", err)
	}
	return slots, nil
}

// ParseCount decodes a bare numeric result (VIP slot/count endpoints).
func ParseCount(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return n, nil
}

// ParseGameState decodes the get_gamestate result, validating both map
// names. An invalid map name fails the whole parse; the caller must not be
// handed a guessed substitute.
func ParseGameState(raw json.RawMessage) (GameState, error) {
	var wire struct {
		NumAlliedPlayers int    `json:"num_allied_players"`
		NumAxisPlayers   int    `json:"num_axis_players"`
		AlliedScore      int    `json:"allied_score"`
		AxisScore        int    `json:"axis_score"`
		RawTimeRemaining string `json:"raw_time_remaining"`
		CurrentMap       string `json:"current_map"`
		NextMap          string `json:"next_map"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return GameState{}, fmt.Errorf("parse gamestate: %w", err)
	}

	currentMap, err := gamemap.Parse(wire.CurrentMap)
	if err != nil {
		return GameState{}, fmt.Errorf("parse gamestate current_map: %w", err)
	}
	nextMap, err := gamemap.Parse(wire.NextMap)
	if err != nil {
		return GameState{}, fmt.Errorf("parse gamestate next_map: %w", err)
	}

	remaining, err := parseTimeRemaining(wire.RawTimeRemaining)
	if err != nil {
		return GameState{}, fmt.Errorf("parse gamestate: %w", err)
	}

	return GameState{
		NumAlliedPlayers: wire.NumAlliedPlayers,
		NumAxisPlayers:   wire.NumAxisPlayers,
		AlliedScore:      wire.AlliedScore,
		AxisScore:        wire.AxisScore,
		RawTimeRemaining: wire.RawTimeRemaining,
		TimeRemaining:    remaining,
		CurrentMap:       currentMap,
		NextMap:          nextMap,
	}, nil
}

// ParseMapRotation decodes the get_map_rotation result: a list of raw map
// names in rotation order, duplicates allowed.
func ParseMapRotation(raw json.RawMessage) ([]gamemap.Map, error) {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("parse map rotation: %w", err)
	}

	rot := make([]gamemap.Map, 0, len(names))
	for i, name := range names {
		m, err := gamemap.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("parse map rotation entry %d: %w", i, err)
		}
		rot = append(rot, m)
	}
	return rot, nil
}

// parseTimeRemaining parses the H:MM:SS clock CRCON sends.
func parseTimeRemaining(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("time remaining %q: want H:MM:SS", s)
	}
	var total time.Duration
	for i, unit := range []time.Duration{time.Hour, time.Minute, time.Second} {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("time remaining %q: bad component %q", s, parts[i])
		}
		total += time.Duration(n) * unit
	}
	return total, nil
}
