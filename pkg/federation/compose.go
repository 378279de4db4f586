package federation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

const supergraphBanner = "# Supergraph SDL generated by Meetinity API Gateway"

// Digest returns the hex encoded SHA-256 of the UTF-8 schema text.
func Digest(sdl string) string {
	sum := sha256.Sum256([]byte(sdl))
	return hex.EncodeToString(sum[:])
}

// Version derives the supergraph version from the identity and content of the snapshots.
// The pairs are sorted by name first, so the registration order does not matter.
func Version(snapshots []SubgraphSnapshot) string {
	pairs := make([][2]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		pairs = append(pairs, [2]string{snapshot.Definition.Name, snapshot.Digest})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	// marshalling a slice of string arrays cannot fail
	data, _ := json.Marshal(pairs)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ComposeSupergraph concatenates the subgraph schemas behind a banner per subgraph.
// Type definitions shared by several subgraphs are not merged.
func ComposeSupergraph(snapshots []SubgraphSnapshot, composedAt time.Time) string {
	sections := make([]string, 0, 2+2*len(snapshots))
	sections = append(sections,
		supergraphBanner,
		"# composed_at: "+formatTimestamp(composedAt),
	)
	for _, snapshot := range snapshots {
		sections = append(sections,
			"# Subgraph: "+snapshot.Definition.Name,
			strings.TrimSpace(snapshot.SDL),
		)
	}
	return strings.Join(sections, "\n\n") + "\n"
}
