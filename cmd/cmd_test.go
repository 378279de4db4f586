package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decarvalhoe/meetinity/pkg/federation"
)

const testSubgraphs = `[
	{
		"name": "identity",
		"routing_url": "http://identity:4001/graphql",
		"sdl": "type Query { users: [ID!]! }",
		"rest_mappings": {"/api/users": "users"}
	},
	{
		"name": "engagement",
		"routing_url": "http://engagement:4003/graphql",
		"sdl": "type Query { events: [ID!]! }",
		"rest_mappings": {"/api/events": "events"}
	}
]`

// federationEnv configures an enabled federation writing below a temporary directory and returns it.
func federationEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("GRAPHQL_FEDERATION_ENABLED", "true")
	t.Setenv("GRAPHQL_SUPERGRAPH_DIR", filepath.Join(dir, "supergraph"))
	t.Setenv("GRAPHQL_CONTRACT_DIR", filepath.Join(dir, "contracts"))
	t.Setenv("GRAPHQL_SUBGRAPHS", testSubgraphs)
	t.Setenv("PROXY_ROUTES", "")
	return dir
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	homedir.DisableCache = true
	cfgFile, debug = "", false
	publishPrintPath = false
	auditRoutesFile, auditOpenAPIFile, auditManifest, auditFields = "", "", "", false
	schemaFormat = false

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPublishCommand(t *testing.T) {
	t.Run("should fail when federation is disabled", func(t *testing.T) {
		dir := federationEnv(t)
		t.Setenv("GRAPHQL_FEDERATION_ENABLED", "false")

		out, err := executeCommand(t, "publish")
		assert.ErrorIs(t, err, errFederationDisabled)
		assert.Empty(t, out)

		exists, err := afero.DirExists(afero.NewOsFs(), filepath.Join(dir, "supergraph"))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("should print only the artifact path", func(t *testing.T) {
		dir := federationEnv(t)

		out, err := executeCommand(t, "publish", "--print-path")
		require.NoError(t, err)

		path := strings.TrimSuffix(out, "\n")
		assert.NotContains(t, path, "\n")
		assert.Equal(t, filepath.Join(dir, "supergraph"), filepath.Dir(path))
		assert.True(t, strings.HasPrefix(filepath.Base(path), "supergraph-"), path)
		assert.Equal(t, ".graphql", filepath.Ext(path))

		sdl, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(sdl), "# Subgraph: identity")
	})

	t.Run("should print version and paths as json", func(t *testing.T) {
		dir := federationEnv(t)

		out, err := executeCommand(t, "publish")
		require.NoError(t, err)

		var result map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Len(t, result, 3)
		assert.Equal(t, filepath.Join(dir, "contracts", federation.ManifestFilename), result["manifest_path"])
		assert.Equal(t, filepath.Join(dir, "supergraph", "supergraph-"+result["version"]+".graphql"), result["supergraph_path"])

		manifest, err := federation.LoadManifest(afero.NewOsFs(), result["manifest_path"])
		require.NoError(t, err)
		assert.Equal(t, result["version"], manifest.Version)
	})

	t.Run("should fail on an invalid subgraph configuration", func(t *testing.T) {
		federationEnv(t)
		t.Setenv("GRAPHQL_SUBGRAPHS", `[{"name": "identity"}]`)

		_, err := executeCommand(t, "publish")
		require.Error(t, err)
		assert.True(t, federation.IsKind(err, federation.KindConfiguration))
	})
}

func TestAuditCommand(t *testing.T) {
	t.Run("should fail when a route is unmapped", func(t *testing.T) {
		dir := federationEnv(t)
		t.Setenv("PROXY_ROUTES", `[{"name": "users", "gateway_path": "/api/users"}, {"name": "billing", "gateway_path": "/api/billing"}]`)

		out, err := executeCommand(t, "audit")
		require.Error(t, err)
		assert.Contains(t, out, "unmapped route: /api/billing")
		assert.NotContains(t, out, "/api/users")

		exists, err := afero.DirExists(afero.NewOsFs(), filepath.Join(dir, "supergraph"))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("should pass when every route is mapped", func(t *testing.T) {
		federationEnv(t)
		t.Setenv("PROXY_ROUTES", `[{"name": "users", "gateway_path": "/api/users/"}, {"name": "events", "gateway_path": "//api//events"}]`)

		out, err := executeCommand(t, "audit")
		require.NoError(t, err)
		assert.Equal(t, "2 route(s) mapped to 2 operation(s)\n", out)
	})

	t.Run("should read routes from a route table and the catalog from a manifest", func(t *testing.T) {
		dir := federationEnv(t)

		out, err := executeCommand(t, "publish")
		require.NoError(t, err)
		var published map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &published))

		routesFile := filepath.Join(dir, "routes.json")
		require.NoError(t, os.WriteFile(routesFile, []byte(`{"routes": [{"name": "events", "gateway_path": "/api/events"}, {"name": "chat", "path": "/api/chat"}]}`), 0o644))

		out, err = executeCommand(t, "audit", "--routes", routesFile, "--manifest", published["manifest_path"])
		require.Error(t, err)
		assert.Equal(t, "unmapped route: /api/chat\n", out)
	})

	t.Run("should fail without routes", func(t *testing.T) {
		federationEnv(t)

		_, err := executeCommand(t, "audit")
		assert.Error(t, err)
	})
}

func TestSchemaCommand(t *testing.T) {
	t.Run("should print the schema of a subgraph", func(t *testing.T) {
		federationEnv(t)

		out, err := executeCommand(t, "schema", "identity")
		require.NoError(t, err)
		assert.Equal(t, "type Query { users: [ID!]! }", out)
	})

	t.Run("should pretty print the schema", func(t *testing.T) {
		federationEnv(t)

		out, err := executeCommand(t, "schema", "engagement", "--format")
		require.NoError(t, err)
		assert.Contains(t, out, "type Query {\n")
		assert.Contains(t, out, "events: [ID!]!")
	})

	t.Run("should fail to format an invalid schema", func(t *testing.T) {
		federationEnv(t)
		t.Setenv("GRAPHQL_SUBGRAPHS", `[{"name": "broken", "routing_url": "http://broken/graphql", "sdl": "type Query {"}]`)

		_, err := executeCommand(t, "schema", "broken", "--format")
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "schema: "), err.Error())
	})

	t.Run("should fail for an unknown subgraph", func(t *testing.T) {
		federationEnv(t)

		_, err := executeCommand(t, "schema", "billing")
		assert.Error(t, err)
	})
}
