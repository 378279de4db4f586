package federation

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ValidateRestMappings returns the gateway paths of routes that are missing from the operation
// catalog of the latest schema. Without a published schema every route is reported.
func (g *Gateway) ValidateRestMappings(routes []Route) []string {
	return UnmappedRoutes(g.OperationCatalog(), routes)
}

// UnmappedRoutes returns the gateway paths of routes whose normalized path is not in catalog,
// in the order of routes. An empty catalog reports every route.
func UnmappedRoutes(catalog Catalog, routes []Route) []string {
	missing := make([]string, 0)
	for _, route := range routes {
		if len(catalog) == 0 {
			missing = append(missing, route.GatewayPath)
			continue
		}
		if _, ok := catalog.Lookup(route.GatewayPath); !ok {
			missing = append(missing, route.GatewayPath)
		}
	}
	return missing
}

// FieldFinding reports a rest mapping that does not resolve to a root field of its subgraph.
type FieldFinding struct {
	Subgraph string
	Path     string
	Field    string
	Reason   string
}

func (f FieldFinding) String() string {
	if f.Path == "" {
		return fmt.Sprintf("%s: %s", f.Subgraph, f.Reason)
	}
	return fmt.Sprintf("%s: %s -> %s: %s", f.Subgraph, f.Path, f.Field, f.Reason)
}

// AuditFields checks the rest mappings of the latest schema against the root fields each
// subgraph declares. It returns nil when nothing has been published yet.
func (g *Gateway) AuditFields() []FieldFinding {
	schema := g.Latest()
	if schema == nil {
		return nil
	}
	return AuditSnapshotFields(schema.Subgraphs)
}

// AuditSnapshotFields reports, for every snapshot, the rest mappings whose field is not declared
// on a root operation type, and the snapshots whose schema text cannot be parsed.
func AuditSnapshotFields(snapshots []SubgraphSnapshot) []FieldFinding {
	var findings []FieldFinding
	for _, snapshot := range snapshots {
		name := snapshot.Definition.Name
		document, err := parser.ParseSchema(&ast.Source{Name: name, Input: snapshot.SDL})
		if err != nil {
			findings = append(findings, FieldFinding{
				Subgraph: name,
				Reason:   fmt.Sprintf("schema does not parse: %v", err),
			})
			continue
		}

		fields := rootFields(document)
		for _, mapping := range snapshot.Definition.NormalizedRestMappings() {
			if _, ok := fields[mapping.Field]; ok {
				continue
			}
			findings = append(findings, FieldFinding{
				Subgraph: name,
				Path:     mapping.Path,
				Field:    mapping.Field,
				Reason:   "field is not declared on a root operation type",
			})
		}
	}
	return findings
}

func rootFields(document *ast.SchemaDocument) map[string]struct{} {
	roots := map[string]struct{}{
		"Query":        {},
		"Mutation":     {},
		"Subscription": {},
	}
	for _, schemaDefinitions := range []ast.SchemaDefinitionList{document.Schema, document.SchemaExtension} {
		for _, definition := range schemaDefinitions {
			for _, operationType := range definition.OperationTypes {
				roots[operationType.Type] = struct{}{}
			}
		}
	}

	fields := make(map[string]struct{})
	for _, definitions := range []ast.DefinitionList{document.Definitions, document.Extensions} {
		for _, definition := range definitions {
			if _, ok := roots[definition.Name]; !ok {
				continue
			}
			for _, field := range definition.Fields {
				fields[field.Name] = struct{}{}
			}
		}
	}
	return fields
}
