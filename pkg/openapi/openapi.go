// Package openapi reads the REST surface of the gateway from an OpenAPI v3 document.
package openapi

import (
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pkg/errors"

	"github.com/decarvalhoe/meetinity/pkg/federation"
)

func ParseOpenAPIDocument(input []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	document, err := loader.LoadFromData(input)
	if err != nil {
		return nil, err
	}
	if err = document.Validate(loader.Context); err != nil {
		return nil, err
	}
	return document, nil
}

// ImportRoutes returns one route per path of document, sorted by path. The route is named after
// the operation id when the path has a single operation, after the path otherwise.
// A path prefix of the first server URL is prepended to every route.
func ImportRoutes(document *openapi3.T) []federation.Route {
	prefix := serverPathPrefix(document)

	paths := make([]string, 0, len(document.Paths))
	for path := range document.Paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	routes := make([]federation.Route, 0, len(paths))
	for _, path := range paths {
		operations := document.Paths[path].Operations()

		methods := make([]string, 0, len(operations))
		for method := range operations {
			methods = append(methods, strings.ToUpper(method))
		}
		sort.Strings(methods)

		name := path
		if len(methods) == 1 {
			if id := operations[methods[0]].OperationID; id != "" {
				name = id
			}
		}

		routes = append(routes, federation.Route{
			Name:        name,
			GatewayPath: prefix + path,
			Methods:     methods,
		})
	}
	return routes
}

// ImportRoutesFromBytes parses input and returns its routes.
func ImportRoutesFromBytes(input []byte) ([]federation.Route, error) {
	document, err := ParseOpenAPIDocument(input)
	if err != nil {
		return nil, errors.Wrap(err, "parse OpenAPI document")
	}
	return ImportRoutes(document), nil
}

func serverPathPrefix(document *openapi3.T) string {
	if len(document.Servers) == 0 {
		return ""
	}
	u, err := url.Parse(document.Servers[0].URL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}
