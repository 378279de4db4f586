package federation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/decarvalhoe/meetinity/pkg/testing/goldie"
)

func snapshot(name, routingURL, sdl string) SubgraphSnapshot {
	return SubgraphSnapshot{
		Definition: SubgraphDefinition{Name: name, RoutingURL: routingURL, SDL: sdl},
		SDL:        sdl,
		Digest:     Digest(sdl),
	}
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(""))
	assert.NotEqual(t, Digest("type Query { a: ID }"), Digest("type Query { b: ID }"))
}

func TestVersion(t *testing.T) {
	identity := snapshot("identity", "http://identity:4001/graphql", "type Query { users: [ID!] }")
	auth := snapshot("auth", "http://auth:4002/graphql", "type Query { auth: Boolean }")

	t.Run("should not depend on registration order", func(t *testing.T) {
		assert.Equal(t,
			Version([]SubgraphSnapshot{identity, auth}),
			Version([]SubgraphSnapshot{auth, identity}),
		)
	})

	t.Run("should change when a schema changes", func(t *testing.T) {
		changed := snapshot("auth", "http://auth:4002/graphql", "type Query { auth: Boolean token: String }")
		assert.NotEqual(t,
			Version([]SubgraphSnapshot{identity, auth}),
			Version([]SubgraphSnapshot{identity, changed}),
		)
	})

	t.Run("should change when a subgraph is renamed", func(t *testing.T) {
		renamed := snapshot("authentication", "http://auth:4002/graphql", "type Query { auth: Boolean }")
		assert.NotEqual(t,
			Version([]SubgraphSnapshot{identity, auth}),
			Version([]SubgraphSnapshot{identity, renamed}),
		)
	})

	t.Run("should ignore routing urls", func(t *testing.T) {
		moved := snapshot("auth", "http://auth.internal:8080/graphql", "type Query { auth: Boolean }")
		assert.Equal(t,
			Version([]SubgraphSnapshot{identity, auth}),
			Version([]SubgraphSnapshot{identity, moved}),
		)
	})

	t.Run("should be a hex encoded sha256", func(t *testing.T) {
		assert.Regexp(t, "^[0-9a-f]{64}$", Version([]SubgraphSnapshot{identity}))
	})
}

func TestComposeSupergraph(t *testing.T) {
	composedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	snapshots := []SubgraphSnapshot{
		snapshot("identity", "http://identity:4001/graphql", "\n  type Query {\n  users: [ID!]\n}\n\n"),
		snapshot("auth", "http://auth:4002/graphql", "type Query {\n  auth: Boolean\n}"),
	}

	supergraph := ComposeSupergraph(snapshots, composedAt)
	goldie.Assert(t, "supergraph", []byte(supergraph))
}
