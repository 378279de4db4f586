package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSubgraphDefinitions(t *testing.T) {
	t.Run("should load definitions from a json array", func(t *testing.T) {
		payload := `[
			{
				"name": "identity",
				"routing_url": "http://router.identity/graphql",
				"sdl": "type Query { viewer: ID }",
				"headers": {"Authorization": "Bearer token"},
				"rest_mappings": {"/api/users": "viewer", "/api/profile": "profile"}
			}
		]`

		definitions, err := LoadSubgraphDefinitions([]byte(payload), nil)
		require.NoError(t, err)
		require.Len(t, definitions, 1)
		assert.Equal(t, "identity", definitions[0].Name)
		assert.Equal(t, "http://router.identity/graphql", definitions[0].RoutingURL)
		assert.Equal(t, "type Query { viewer: ID }", definitions[0].SDL)
		assert.Equal(t, map[string]string{"Authorization": "Bearer token"}, definitions[0].Headers)
		assert.Equal(t, []RestMapping{
			{Path: "/api/users", Field: "viewer"},
			{Path: "/api/profile", Field: "profile"},
		}, definitions[0].RestMappings)
	})

	t.Run("should accept upper case keys", func(t *testing.T) {
		payload := `[{"NAME": "auth", "ROUTING_URL": "http://router.auth/graphql", "SCHEMA_URL": "http://auth/schema", "REST_MAPPINGS": {"/api/auth": "auth"}}]`

		definitions, err := LoadSubgraphDefinitions([]byte(payload), nil)
		require.NoError(t, err)
		require.Len(t, definitions, 1)
		assert.Equal(t, "auth", definitions[0].Name)
		assert.Equal(t, "http://auth/schema", definitions[0].SchemaURL)
		assert.Equal(t, []RestMapping{{Path: "/api/auth", Field: "auth"}}, definitions[0].RestMappings)
	})

	t.Run("should unescape json strings and stringify scalars", func(t *testing.T) {
		payload := `[{"name": "search", "routing_url": "http://router.search/graphql", "sdl": "type Query {\n  search: [ID!]\n}", "headers": {"X-Retries": 3, "X-Debug": true}}]`

		definitions, err := LoadSubgraphDefinitions([]byte(payload), nil)
		require.NoError(t, err)
		require.Len(t, definitions, 1)
		assert.Equal(t, "type Query {\n  search: [ID!]\n}", definitions[0].SDL)
		assert.Equal(t, map[string]string{"X-Retries": "3", "X-Debug": "true"}, definitions[0].Headers)
	})

	t.Run("should return no definitions for an empty payload", func(t *testing.T) {
		definitions, err := LoadSubgraphDefinitions([]byte("[]"), nil)
		require.NoError(t, err)
		assert.Empty(t, definitions)

		definitions, err = LoadSubgraphDefinitions([]byte("   "), nil)
		require.NoError(t, err)
		assert.Empty(t, definitions)
	})

	t.Run("should require routing_url", func(t *testing.T) {
		_, err := LoadSubgraphDefinitions([]byte(`[{"name": "invalid"}]`), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrComposition)
		assert.True(t, IsKind(err, KindConfiguration))
	})

	t.Run("should reject entries that are not objects", func(t *testing.T) {
		_, err := LoadSubgraphDefinitions([]byte(`["identity"]`), nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindConfiguration))
	})

	t.Run("should reject payloads that are not arrays", func(t *testing.T) {
		_, err := LoadSubgraphDefinitions([]byte(`{"name": "identity"}`), nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindConfiguration))
	})

	t.Run("should reject invalid json", func(t *testing.T) {
		_, err := LoadSubgraphDefinitions([]byte(`not json`), nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindConfiguration))
	})

	t.Run("should reject trailing garbage after a valid array", func(t *testing.T) {
		definitions, err := LoadSubgraphDefinitions([]byte(`[{"name":"a","routing_url":"b"}] }}}garbage`), nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindConfiguration))
		assert.Nil(t, definitions)
	})

	t.Run("should keep the first non-empty object when a key is spelled twice", func(t *testing.T) {
		payload := `[{
			"name": "identity",
			"routing_url": "http://router.identity/graphql",
			"headers": {},
			"HEADERS": {"X-Api-Key": "upper"},
			"rest_mappings": {"/api/users": "users"},
			"REST_MAPPINGS": {"/api/profile": "profile"}
		}]`

		definitions, err := LoadSubgraphDefinitions([]byte(payload), nil)
		require.NoError(t, err)
		require.Len(t, definitions, 1)
		assert.Equal(t, map[string]string{"X-Api-Key": "upper"}, definitions[0].Headers)
		assert.Equal(t, []RestMapping{{Path: "/api/users", Field: "users"}}, definitions[0].RestMappings)
	})

	t.Run("should prefer lower case keys of a nested tree", func(t *testing.T) {
		tree := map[string]interface{}{
			"GRAPHQL": map[string]interface{}{
				"SUBGRAPHS": map[string]interface{}{
					"identity": map[string]interface{}{
						"routing_url":   "http://router.identity/graphql",
						"ROUTING_URL":   "http://other/graphql",
						"rest_mappings": map[string]interface{}{"/api/users": "users"},
						"REST_MAPPINGS": map[string]interface{}{"/api/profile": "profile"},
						"HEADERS":       map[string]interface{}{"X-Api-Key": "secret"},
					},
				},
			},
		}

		definitions, err := LoadSubgraphDefinitions(nil, tree)
		require.NoError(t, err)
		require.Len(t, definitions, 1)
		assert.Equal(t, "http://router.identity/graphql", definitions[0].RoutingURL)
		assert.Equal(t, []RestMapping{{Path: "/api/users", Field: "users"}}, definitions[0].RestMappings)
		assert.Equal(t, map[string]string{"X-Api-Key": "secret"}, definitions[0].Headers)
	})

	t.Run("should load definitions from a nested tree", func(t *testing.T) {
		tree := map[string]interface{}{
			"GRAPHQL": map[string]interface{}{
				"SUBGRAPHS": map[string]interface{}{
					"identity": map[string]interface{}{
						"ROUTING_URL":   "http://router.identity/graphql",
						"SCHEMA_PATH":   "/schemas/identity.graphql",
						"REST_MAPPINGS": map[string]interface{}{"/api/users": "users", "/api/profile": "profile"},
					},
					"auth": map[interface{}]interface{}{
						"routing_url": "http://router.auth/graphql",
						"sdl":         "type Query { auth: Boolean }",
					},
					"broken": "not a map",
				},
			},
		}

		definitions, err := LoadSubgraphDefinitions(nil, tree)
		require.NoError(t, err)
		require.Len(t, definitions, 2)

		assert.Equal(t, "auth", definitions[0].Name)
		assert.Equal(t, "type Query { auth: Boolean }", definitions[0].SDL)

		assert.Equal(t, "identity", definitions[1].Name)
		assert.Equal(t, "/schemas/identity.graphql", definitions[1].SchemaPath)
		assert.Equal(t, []RestMapping{
			{Path: "/api/profile", Field: "profile"},
			{Path: "/api/users", Field: "users"},
		}, definitions[1].RestMappings)
	})

	t.Run("should accept a lower case tree as produced by viper", func(t *testing.T) {
		tree := map[string]interface{}{
			"graphql": map[string]interface{}{
				"subgraphs": map[string]interface{}{
					"engagement": map[string]interface{}{
						"routing_url": "http://router.engagement/graphql",
						"schema_url":  "http://engagement/schema",
					},
				},
			},
		}

		definitions, err := LoadSubgraphDefinitions(nil, tree)
		require.NoError(t, err)
		require.Len(t, definitions, 1)
		assert.Equal(t, "engagement", definitions[0].Name)
		assert.Equal(t, "http://engagement/schema", definitions[0].SchemaURL)
	})

	t.Run("should return no definitions without a subgraph tree", func(t *testing.T) {
		definitions, err := LoadSubgraphDefinitions(nil, map[string]interface{}{"graphql": "disabled"})
		require.NoError(t, err)
		assert.Empty(t, definitions)
	})

	t.Run("should require routing_url in a nested tree", func(t *testing.T) {
		tree := map[string]interface{}{
			"GRAPHQL": map[string]interface{}{
				"SUBGRAPHS": map[string]interface{}{
					"identity": map[string]interface{}{"sdl": "type Query { a: ID }"},
				},
			},
		}

		_, err := LoadSubgraphDefinitions(nil, tree)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindConfiguration))
	})
}
