package authority

import "hash/fnv"

// colors and adjectives/nouns form the deterministic identity palette:
// a player gets a color and name by hashing playerId, so reconnects
// look identical.
var colors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#fffac8", "#800000",
	"#aaffc3",
}

var adjectives = []string{
	"brisk", "quiet", "amber", "lucid", "terse", "wry", "bold",
	"dusky", "keen", "mellow", "nimble", "stark",
}

var nouns = []string{
	"kick", "snare", "hat", "clap", "tom", "rim", "cowbell",
	"conga", "shaker", "tambourine", "ride", "crash",
}

// DeriveIdentity hashes playerID into a stable color and two-word name.
// Hashing the same playerID always yields the same identity, so a
// reconnecting player looks identical to every other connected client.
func DeriveIdentity(playerID string) (color, name string) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(playerID))
	sum := h.Sum32()

	color = colors[sum%uint32(len(colors))]
	adj := adjectives[(sum/uint32(len(colors)))%uint32(len(adjectives))]
	noun := nouns[(sum/uint32(len(colors)*len(adjectives)))%uint32(len(nouns))]
	name = adj + "-" + noun
	return color, name
}
