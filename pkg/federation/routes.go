package federation

import (
	"github.com/tidwall/gjson"
)

// ParseRouteTable reads gateway routes from a JSON document holding either a list of routes or
// an object with a "routes" list. Each route needs a gateway_path (or path); entries without one
// are skipped.
func ParseRouteTable(data []byte) ([]Route, error) {
	if !gjson.ValidBytes(data) {
		return nil, configurationError("route table is not valid JSON")
	}

	list := gjson.ParseBytes(data)
	if list.IsObject() {
		list = list.Get("routes")
	}
	if !list.IsArray() {
		return nil, configurationError("route table must be a JSON array or an object with a 'routes' array")
	}

	routes := make([]Route, 0)
	list.ForEach(func(_, value gjson.Result) bool {
		path := value.Get("gateway_path").String()
		if path == "" {
			path = value.Get("path").String()
		}
		if path == "" {
			return true
		}

		route := Route{
			Name:        value.Get("name").String(),
			GatewayPath: path,
			Upstream:    value.Get("upstream").String(),
		}
		for _, method := range value.Get("methods").Array() {
			route.Methods = append(route.Methods, method.String())
		}
		routes = append(routes, route)
		return true
	})
	return routes, nil
}
