package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normalized", input: "/api/users", expected: "/api/users"},
		{name: "missing leading slash and trailing slash", input: "api/users/", expected: "/api/users"},
		{name: "repeated slashes", input: "//api//users", expected: "/api/users"},
		{name: "surrounding whitespace", input: "  /api/events  ", expected: "/api/events"},
		{name: "root", input: "/", expected: "/"},
		{name: "only slashes", input: "///", expected: "/"},
		{name: "empty", input: "", expected: "/"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual := NormalizePath(tc.input)
			assert.Equal(t, tc.expected, actual)
			assert.Equal(t, actual, NormalizePath(actual), "normalization must be idempotent")
		})
	}
}

func TestSubgraphDefinition_NormalizedRestMappings(t *testing.T) {
	definition := SubgraphDefinition{
		Name:       "identity",
		RoutingURL: "http://router.identity/graphql",
		RestMappings: []RestMapping{
			{Path: "api/users/", Field: "users"},
			{Path: "", Field: "ignored"},
			{Path: "/api/profile", Field: "profile"},
			{Path: "//api//users", Field: "viewer"},
		},
	}

	assert.Equal(t, []RestMapping{
		{Path: "/api/users", Field: "viewer"},
		{Path: "/api/profile", Field: "profile"},
	}, definition.NormalizedRestMappings())
}

func TestSubgraphDefinition_SchemaSource(t *testing.T) {
	assert.Equal(t, "inline", SubgraphDefinition{SDL: "type Query { a: ID }", SchemaPath: "a.graphql"}.SchemaSource())
	assert.Equal(t, "file", SubgraphDefinition{SchemaPath: "a.graphql", SchemaURL: "http://a"}.SchemaSource())
	assert.Equal(t, "remote", SubgraphDefinition{SchemaURL: "http://a"}.SchemaSource())
}
