package crcon

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hlltools/server-status/internal/gamemap"
)

func TestParseServerName(t *testing.T) {
	raw := json.RawMessage(`{"name": "Some Server [EU] | hlltools.com", "short_name": "SOME"}`)
	name, err := ParseServerName(raw)
	if err != nil {
		t.Fatalf("ParseServerName: %v", err)
	}
	if name.Name != "Some Server [EU] | hlltools.com" || name.ShortName != "SOME" {
		t.Errorf("unexpected result: %+v", name)
	}

	if _, err := ParseServerName(json.RawMessage(`{"short_name": "X"}`)); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := ParseServerName(json.RawMessage(`"not an object"`)); err == nil {
		t.Error("expected error for wrong shape")
	}
}

func TestParseSlots(t *testing.T) {
	slots, err := ParseSlots(json.RawMessage(`{"player_count": 87, "max_players": 100}`))
	if err != nil {
		t.Fatalf("ParseSlots: %v", err)
	}
	if slots.PlayerCount != 87 || slots.MaxPlayers != 100 {
		t.Errorf("unexpected result: %+v", slots)
	}
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount(json.RawMessage(`12`))
	if err != nil {
		t.Fatalf("ParseCount: %v", err)
	}
	if n != 12 {
		t.Errorf("ParseCount = %d, want 12", n)
	}
	if _, err := ParseCount(json.RawMessage(`"twelve"`)); err == nil {
		t.Error("expected error for non-numeric count")
	}
}

func TestParseGameState(t *testing.T) {
	raw := json.RawMessage(`{
		"num_allied_players": 44,
		"num_axis_players": 43,
		"allied_score": 3,
		"axis_score": 2,
		"raw_time_remaining": "1:26:02",
		"current_map": "foy_offensive_ger_RESTART",
		"next_map": "carentan_warfare"
	}`)

	gs, err := ParseGameState(raw)
	if err != nil {
		t.Fatalf("ParseGameState: %v", err)
	}
	if gs.NumAlliedPlayers != 44 || gs.NumAxisPlayers != 43 {
		t.Errorf("player counts: %+v", gs)
	}
	if gs.AlliedScore != 3 || gs.AxisScore != 2 {
		t.Errorf("scores: %+v", gs)
	}
	if gs.CurrentMap.Raw() != "foy_offensive_ger" {
		t.Errorf("current map = %q, want restart suffix stripped", gs.CurrentMap.Raw())
	}
	if gs.NextMap.Raw() != "carentan_warfare" {
		t.Errorf("next map = %q", gs.NextMap.Raw())
	}
	want := time.Hour + 26*time.Minute + 2*time.Second
	if gs.TimeRemaining != want {
		t.Errorf("time remaining = %v, want %v", gs.TimeRemaining, want)
	}
	if gs.RawTimeRemaining != "1:26:02" {
		t.Errorf("raw time remaining = %q", gs.RawTimeRemaining)
	}
}

func TestParseGameStateBetweenMatches(t *testing.T) {
	raw := json.RawMessage(`{
		"num_allied_players": 0,
		"num_axis_players": 0,
		"allied_score": 0,
		"axis_score": 0,
		"raw_time_remaining": "0:00:00",
		"current_map": "Untitled_219",
		"next_map": "foy_warfare"
	}`)

	gs, err := ParseGameState(raw)
	if err != nil {
		t.Fatalf("ParseGameState: %v", err)
	}
	if !gs.CurrentMap.IsBetweenMatches() {
		t.Error("current map should be the between-matches sentinel")
	}
}

func TestParseGameStateInvalidMap(t *testing.T) {
	raw := json.RawMessage(`{
		"raw_time_remaining": "0:10:00",
		"current_map": "not_a_real_map",
		"next_map": "foy_warfare"
	}`)

	_, err := ParseGameState(raw)
	if !errors.Is(err, gamemap.ErrInvalidMapName) {
		t.Errorf("error = %v, want ErrInvalidMapName", err)
	}
}

func TestParseMapRotation(t *testing.T) {
	raw := json.RawMessage(`["foy_warfare", "carentan_warfare", "foy_warfare", "kursk_offensive_rus"]`)
	rot, err := ParseMapRotation(raw)
	if err != nil {
		t.Fatalf("ParseMapRotation: %v", err)
	}
	if len(rot) != 4 {
		t.Fatalf("len = %d, want 4", len(rot))
	}
	if rot[0].Raw() != "foy_warfare" || rot[2].Raw() != "foy_warfare" {
		t.Errorf("duplicates must be preserved in order: %v", rot)
	}

	_, err = ParseMapRotation(json.RawMessage(`["foy_warfare", "bogus"]`))
	if !errors.Is(err, gamemap.ErrInvalidMapName) {
		t.Errorf("error = %v, want ErrInvalidMapName", err)
	}
}

func TestParseTimeRemaining(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"0:00:00", 0, false},
		{"1:26:02", time.Hour + 26*time.Minute + 2*time.Second, false},
		{"10:05:59", 10*time.Hour + 5*time.Minute + 59*time.Second, false},
		{"90:00", 0, true},
		{"x:00:00", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseTimeRemaining(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTimeRemaining(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseTimeRemaining(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
