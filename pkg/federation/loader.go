package federation

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	treeRootKey      = "graphql"
	treeSubgraphsKey = "subgraphs"

	fieldName         = "name"
	fieldRoutingURL   = "routing_url"
	fieldSchemaURL    = "schema_url"
	fieldSchemaPath   = "schema_path"
	fieldSDL          = "sdl"
	fieldHeaders      = "headers"
	fieldRestMappings = "rest_mappings"
)

// LoadSubgraphDefinitions parses subgraph definitions from a flat JSON array or, when raw is blank,
// from a nested configuration tree rooted at GRAPHQL.SUBGRAPHS. Keys are matched case-insensitively
// in both forms. An empty payload yields no definitions and no error.
func LoadSubgraphDefinitions(raw []byte, tree map[string]interface{}) ([]SubgraphDefinition, error) {
	var (
		entries []rawEntry
		err     error
	)
	if len(bytes.TrimSpace(raw)) > 0 {
		entries, err = entriesFromJSON(raw)
	} else {
		entries, err = entriesFromTree(tree)
	}
	if err != nil {
		return nil, err
	}

	definitions := make([]SubgraphDefinition, 0, len(entries))
	for _, entry := range entries {
		definition, err := entry.definition()
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, definition)
	}
	return definitions, nil
}

// rawEntry is the canonical form both configuration shapes are normalized into before validation.
// Keys spelled in several cases resolve to the first non-empty value.
type rawEntry struct {
	fields  map[string]string
	objects map[string][]RestMapping
}

func newRawEntry() rawEntry {
	return rawEntry{
		fields:  make(map[string]string),
		objects: make(map[string][]RestMapping),
	}
}

func (e rawEntry) setField(key, value string) {
	if existing := e.fields[key]; existing != "" {
		return
	}
	e.fields[key] = value
}

func (e rawEntry) setObject(key string, pairs []RestMapping) {
	if len(e.objects[key]) > 0 {
		return
	}
	e.objects[key] = pairs
}

func (e rawEntry) definition() (SubgraphDefinition, error) {
	name := strings.TrimSpace(e.fields[fieldName])
	routingURL := strings.TrimSpace(e.fields[fieldRoutingURL])
	if name == "" || routingURL == "" {
		return SubgraphDefinition{}, configurationError("subgraph entries require 'name' and 'routing_url'")
	}
	headers := make(map[string]string, len(e.objects[fieldHeaders]))
	for _, pair := range e.objects[fieldHeaders] {
		headers[pair.Path] = pair.Field
	}
	return SubgraphDefinition{
		Name:         name,
		RoutingURL:   routingURL,
		SchemaURL:    e.fields[fieldSchemaURL],
		SchemaPath:   e.fields[fieldSchemaPath],
		SDL:          e.fields[fieldSDL],
		Headers:      headers,
		RestMappings: e.objects[fieldRestMappings],
	}, nil
}

func entriesFromJSON(raw []byte) ([]rawEntry, error) {
	if !gjson.ValidBytes(raw) {
		return nil, configurationError("invalid subgraph configuration payload")
	}
	_, dataType, _, err := jsonparser.Get(raw)
	if err != nil {
		return nil, &CompositionError{Kind: KindConfiguration, Message: "invalid subgraph configuration payload", Err: err}
	}
	if dataType != jsonparser.Array {
		return nil, configurationError("subgraph configuration payload must be a JSON array")
	}

	var (
		entries  []rawEntry
		entryErr error
	)
	_, err = jsonparser.ArrayEach(raw, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if entryErr != nil {
			return
		}
		if err != nil {
			entryErr = err
			return
		}
		if dataType != jsonparser.Object {
			entryErr = configurationError("invalid subgraph configuration entry at offset %d", offset)
			return
		}
		entry, err := entryFromJSONObject(value)
		if err != nil {
			entryErr = err
			return
		}
		entries = append(entries, entry)
	})
	if entryErr != nil {
		if _, ok := entryErr.(*CompositionError); ok {
			return nil, entryErr
		}
		return nil, &CompositionError{Kind: KindConfiguration, Message: "invalid subgraph configuration payload", Err: entryErr}
	}
	if err != nil {
		return nil, &CompositionError{Kind: KindConfiguration, Message: "invalid subgraph configuration payload", Err: err}
	}
	return entries, nil
}

func entryFromJSONObject(object []byte) (rawEntry, error) {
	entry := newRawEntry()
	err := jsonparser.ObjectEach(object, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		name := strings.ToLower(string(key))
		switch name {
		case fieldHeaders, fieldRestMappings:
			var pairs []RestMapping
			err := eachJSONPair(value, dataType, name, func(k, v string) {
				pairs = append(pairs, RestMapping{Path: k, Field: v})
			})
			if err != nil {
				return err
			}
			entry.setObject(name, pairs)
			return nil
		default:
			scalar, err := jsonScalar(value, dataType)
			if err != nil {
				return configurationError("subgraph field '%s' must be a scalar value", name)
			}
			entry.setField(name, scalar)
			return nil
		}
	})
	return entry, err
}

func eachJSONPair(object []byte, dataType jsonparser.ValueType, field string, fn func(key, value string)) error {
	switch dataType {
	case jsonparser.Null:
		return nil
	case jsonparser.Object:
	default:
		return configurationError("subgraph field '%s' must be an object", field)
	}
	return jsonparser.ObjectEach(object, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		v, err := jsonScalar(value, dataType)
		if err != nil {
			return configurationError("values of subgraph field '%s' must be scalars", field)
		}
		fn(k, v)
		return nil
	})
}

func jsonScalar(value []byte, dataType jsonparser.ValueType) (string, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number, jsonparser.Boolean:
		return string(value), nil
	case jsonparser.Null:
		return "", nil
	default:
		return "", errors.Errorf("unexpected %s value", dataType)
	}
}

func entriesFromTree(tree map[string]interface{}) ([]rawEntry, error) {
	graphqlTree, ok := toStringMap(lookupFold(tree, treeRootKey))
	if !ok {
		return nil, nil
	}
	subgraphs, ok := toStringMap(lookupFold(graphqlTree, treeSubgraphsKey))
	if !ok {
		return nil, nil
	}

	names := make([]string, 0, len(subgraphs))
	for name := range subgraphs {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]rawEntry, 0, len(names))
	for _, name := range names {
		data, ok := toStringMap(subgraphs[name])
		if !ok {
			continue
		}
		entry := newRawEntry()
		entry.setField(fieldName, name)
		for _, rawKey := range treeKeys(data) {
			value := data[rawKey]
			key := strings.ToLower(rawKey)
			switch key {
			case fieldHeaders, fieldRestMappings:
				pairs, err := treePairs(value, key)
				if err != nil {
					return nil, err
				}
				entry.setObject(key, pairs)
			default:
				scalar, ok := treeScalar(value)
				if !ok {
					return nil, configurationError("subgraph field '%s' must be a scalar value", key)
				}
				entry.setField(key, scalar)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// treeKeys orders lower case spellings before the others so they win when a key appears in several cases.
func treeKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		iLower, jLower := keys[i] == strings.ToLower(keys[i]), keys[j] == strings.ToLower(keys[j])
		if iLower != jLower {
			return iLower
		}
		return keys[i] < keys[j]
	})
	return keys
}

// treePairs returns the key/value pairs of a nested map sorted by key.
func treePairs(value interface{}, field string) ([]RestMapping, error) {
	if value == nil {
		return nil, nil
	}
	m, ok := toStringMap(value)
	if !ok {
		return nil, configurationError("subgraph field '%s' must be an object", field)
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]RestMapping, 0, len(keys))
	for _, key := range keys {
		scalar, ok := treeScalar(m[key])
		if !ok {
			return nil, configurationError("values of subgraph field '%s' must be scalars", field)
		}
		pairs = append(pairs, RestMapping{Path: key, Field: scalar})
	}
	return pairs, nil
}

func lookupFold(tree map[string]interface{}, key string) interface{} {
	if value, ok := tree[key]; ok {
		return value
	}
	for k, value := range tree {
		if strings.EqualFold(k, key) {
			return value
		}
	}
	return nil
}

func toStringMap(value interface{}) (map[string]interface{}, bool) {
	switch m := value.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	case map[string]string:
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func treeScalar(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}
