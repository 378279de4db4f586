package federation

import (
	"strings"
	"time"
)

// RestMapping binds a REST path of the gateway to a GraphQL field of one subgraph.
type RestMapping struct {
	Path  string
	Field string
}

// SubgraphDefinition describes the contribution of one owning service.
// Exactly one of SDL, SchemaPath or SchemaURL is expected to be the schema source;
// when several are set, SDL wins over SchemaPath which wins over SchemaURL.
type SubgraphDefinition struct {
	Name         string
	RoutingURL   string
	SchemaURL    string
	SchemaPath   string
	SDL          string
	Headers      map[string]string
	RestMappings []RestMapping
}

// SchemaSource names the source the schema of d is resolved from.
func (d SubgraphDefinition) SchemaSource() string {
	switch {
	case d.SDL != "":
		return "inline"
	case d.SchemaPath != "":
		return "file"
	default:
		return "remote"
	}
}

// NormalizedRestMappings returns the rest mappings keyed by normalized path, in declaration order.
// Mappings with an empty path are skipped. A later mapping for an already seen path replaces
// the field of the earlier one but keeps its position.
func (d SubgraphDefinition) NormalizedRestMappings() []RestMapping {
	out := make([]RestMapping, 0, len(d.RestMappings))
	index := make(map[string]int, len(d.RestMappings))
	for _, mapping := range d.RestMappings {
		if strings.TrimSpace(mapping.Path) == "" {
			continue
		}
		path := NormalizePath(mapping.Path)
		if i, ok := index[path]; ok {
			out[i].Field = mapping.Field
			continue
		}
		index[path] = len(out)
		out = append(out, RestMapping{Path: path, Field: mapping.Field})
	}
	return out
}

// NormalizePath brings a REST path into its canonical form: a single leading slash,
// no trailing slash and no repeated slashes. The root path normalizes to "/".
// NormalizePath is idempotent.
func NormalizePath(path string) string {
	segments := strings.Split(strings.TrimSpace(path), "/")
	var b strings.Builder
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(segment)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// SubgraphSnapshot pairs a definition with the schema text resolved for one composition.
type SubgraphSnapshot struct {
	Definition SubgraphDefinition
	SDL        string
	Digest     string
}

// FederatedSchema is the result of one successful composition.
// Values handed out by Gateway are shared between readers and must not be modified.
type FederatedSchema struct {
	Version        string
	ComposedAt     time.Time
	SupergraphSDL  string
	SupergraphPath string
	ManifestPath   string
	Subgraphs      []SubgraphSnapshot
}

// Route is a REST proxy route of the gateway as seen by the contract audit.
type Route struct {
	Name        string   `mapstructure:"name" json:"name"`
	GatewayPath string   `mapstructure:"gateway_path" json:"gateway_path"`
	Upstream    string   `mapstructure:"upstream" json:"upstream,omitempty"`
	Methods     []string `mapstructure:"methods" json:"methods,omitempty"`
}

func validateDefinitions(definitions []SubgraphDefinition) error {
	if len(definitions) == 0 {
		return configurationError("at least one subgraph must be configured")
	}
	seen := make(map[string]struct{}, len(definitions))
	for _, definition := range definitions {
		if definition.Name == "" || definition.RoutingURL == "" {
			return configurationError("subgraph entries require 'name' and 'routing_url'")
		}
		if _, ok := seen[definition.Name]; ok {
			return configurationError("subgraph '%s' is configured more than once", definition.Name)
		}
		seen[definition.Name] = struct{}{}
	}
	return nil
}
