package federation

// Operation is the federated field a REST path corresponds to.
type Operation struct {
	Field    string `json:"field"`
	Subgraph string `json:"subgraph"`
}

// Catalog maps normalized REST paths to federated operations.
type Catalog map[string]Operation

// CatalogConflict records a REST path declared by more than one subgraph.
// Kept is the operation present in the catalog, Dropped the one that lost.
type CatalogConflict struct {
	Path    string
	Kept    Operation
	Dropped Operation
}

// BuildCatalog derives the operation catalog from the rest mappings of definitions.
// When two subgraphs declare the same normalized path the subgraph registered first keeps it
// and the collision is reported as a CatalogConflict.
func BuildCatalog(definitions []SubgraphDefinition) (Catalog, []CatalogConflict) {
	catalog := make(Catalog)
	var conflicts []CatalogConflict
	for _, definition := range definitions {
		for _, mapping := range definition.NormalizedRestMappings() {
			operation := Operation{Field: mapping.Field, Subgraph: definition.Name}
			if existing, ok := catalog[mapping.Path]; ok {
				conflicts = append(conflicts, CatalogConflict{
					Path:    mapping.Path,
					Kept:    existing,
					Dropped: operation,
				})
				continue
			}
			catalog[mapping.Path] = operation
		}
	}
	return catalog, conflicts
}

// Lookup returns the operation registered for path after normalizing it.
func (c Catalog) Lookup(path string) (Operation, bool) {
	operation, ok := c[NormalizePath(path)]
	return operation, ok
}

func (c Catalog) clone() Catalog {
	out := make(Catalog, len(c))
	for path, operation := range c {
		out[path] = operation
	}
	return out
}
