// Package gamemap models Hell Let Loose map identities as they appear in
// CRCON responses (raw names such as "foy_offensive_ger") and provides the
// closed vocabulary of valid maps, human-readable names, and front
// classification used for display formatting.
package gamemap

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidMapName is returned by Parse for raw names outside the map
// vocabulary that also don't match the between-matches or restart patterns.
var ErrInvalidMapName = errors.New("invalid map name")

// BetweenMatchesName is the normalized raw name for the transitional map the
// server reports while switching between matches. The live server sends an
// auto-generated placeholder ("Untitled_123") during that window.
const BetweenMatchesName = "Untitled"

const restartSuffix = "_RESTART"

var betweenMatchesPattern = regexp.MustCompile(`^Untitled_\d+$`)

// --------------------------------------------------------------------------
// Map vocabulary
// --------------------------------------------------------------------------

type front int

const (
	frontWestern front = iota
	frontEastern
)

// base holds per-map display data shared by all mode variants of a map.
type base struct {
	name    string // human-readable name
	front   front
	picture string // CRCON map image file
}

var bases = map[string]base{
	"stmereeglise":    {"Sainte-Mère-Église", frontWestern, "stmereeglise.webp"},
	"stmariedumont":   {"Sainte-Marie-du-Mont", frontWestern, "stmariedumont.webp"},
	"utahbeach":       {"Utah Beach", frontWestern, "utahbeach.webp"},
	"omahabeach":      {"Omaha Beach", frontWestern, "omahabeach.webp"},
	"purpleheartlane": {"Purple Heart Lane", frontWestern, "purpleheartlane.webp"},
	"carentan":        {"Carentan", frontWestern, "carentan.webp"},
	"hurtgenforest":   {"Hürtgen Forest", frontWestern, "hurtgenforest.webp"},
	"hill400":         {"Hill 400", frontWestern, "hill400.webp"},
	"foy":             {"Foy", frontWestern, "foy.webp"},
	"remagen":         {"Remagen", frontWestern, "remagen.webp"},
	"kursk":           {"Kursk", frontEastern, "kursk.webp"},
	"stalingrad":      {"Stalingrad", frontEastern, "stalingrad.webp"},
	"kharkov":         {"Kharkov", frontEastern, "kharkov.webp"},
}

// allMaps maps every valid raw name to its long human-readable name. Built
// from the base table: every map has a warfare variant plus two offensive
// variants (attacker per front).
var allMaps = buildVocabulary()

func buildVocabulary() map[string]string {
	vocab := make(map[string]string, len(bases)*3+1)
	for raw, b := range bases {
		vocab[raw+"_warfare"] = b.name

		allied := "US"
		if b.front == frontEastern {
			allied = "RUS"
		}
		vocab[raw+"_offensive_"+strings.ToLower(allied)] = fmt.Sprintf("%s Offensive (%s)", b.name, allied)
		vocab[raw+"_offensive_ger"] = fmt.Sprintf("%s Offensive (GER)", b.name)
	}
	vocab[BetweenMatchesName] = "Switching maps"
	return vocab
}

// --------------------------------------------------------------------------
// Map type
// --------------------------------------------------------------------------

// Map is a validated, normalized map identity. The zero value is invalid;
// construct via Parse.
type Map struct {
	raw string
}

// Parse validates and normalizes a raw CRCON map name.
//
// Normalization order: the between-matches placeholder collapses to the
// sentinel identity, then a trailing restart suffix is stripped, then the
// result must be in the map vocabulary.
func Parse(raw string) (Map, error) {
	if betweenMatchesPattern.MatchString(raw) {
		return Map{raw: BetweenMatchesName}, nil
	}

	name := strings.TrimSuffix(raw, restartSuffix)
	if _, ok := allMaps[name]; !ok {
		return Map{}, fmt.Errorf("%w: %q", ErrInvalidMapName, raw)
	}
	return Map{raw: name}, nil
}

// Raw returns the normalized raw name (restart suffix stripped).
func (m Map) Raw() string { return m.raw }

// Name returns the long human-readable map name.
func (m Map) Name() string {
	name, ok := allMaps[m.raw]
	if !ok {
		// Only reachable for a zero-value Map; Parse guarantees membership.
		panic(fmt.Sprintf("gamemap: no display name for %q", m.raw))
	}
	return name
}

// IsBetweenMatches reports whether this is the transitional sentinel
// identity reported while the server switches maps.
func (m Map) IsBetweenMatches() bool { return m.raw == BetweenMatchesName }

// OnWesternFront reports whether the map belongs to the western front pool
// (US vs GER score formatting).
func (m Map) OnWesternFront() bool {
	b, ok := bases[m.baseName()]
	return ok && b.front == frontWestern
}

// OnEasternFront reports whether the map belongs to the eastern front pool
// (RUS vs GER score formatting).
func (m Map) OnEasternFront() bool {
	b, ok := bases[m.baseName()]
	return ok && b.front == frontEastern
}

func (m Map) baseName() string {
	name, _, _ := strings.Cut(m.raw, "_")
	return name
}

// PictureURL builds the CRCON map image URL for this map. Returns ok=false
// for the between-matches sentinel, which has no image.
func (m Map) PictureURL(baseServerURL string) (string, bool) {
	if m.IsBetweenMatches() {
		return "", false
	}
	b, ok := bases[m.baseName()]
	if !ok {
		return "", false
	}
	return strings.TrimSuffix(baseServerURL, "/") + "/maps/" + b.picture, true
}

func (m Map) String() string {
	return fmt.Sprintf("Map(%s)", m.raw)
}
