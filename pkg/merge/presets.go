package merge

import (
	"encoding/json"

	"github.com/agentstation/gamesync/pkg/constants"
)

// Preset names accepted by Preset.
const (
	PresetGenres  = "genres"
	PresetSummary = "summary"
)

// GenresPreset copies genres and categories from the games store into the
// raw description store. Games without the lists get empty ones.
func GenresPreset(games, rawDesc string) Config {
	empty := json.RawMessage(`[]`)
	return Config{
		Primary:   rawDesc,
		Secondary: games,
		IDField:   constants.IDField,
		Fields: []FieldMapping{
			{From: "genres", To: "genres", Default: empty},
			{From: "categories", To: "categories", Default: empty},
		},
	}
}

// SummaryPreset replaces each game's long description with its AI summary.
// The games store is backed up first.
func SummaryPreset(summaries, games string) Config {
	return Config{
		Primary:   games,
		Secondary: summaries,
		IDField:   constants.IDField,
		Fields: []FieldMapping{
			{From: "summary", To: "detailed_description"},
		},
		Backup: true,
	}
}

// Preset returns the named preset config, or false if the name is unknown.
func Preset(name, secondary, primary string) (Config, bool) {
	switch name {
	case PresetGenres:
		return GenresPreset(secondary, primary), true
	case PresetSummary:
		return SummaryPreset(secondary, primary), true
	default:
		return Config{}, false
	}
}
