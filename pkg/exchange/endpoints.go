package exchange

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"nakula/pkg/core"
)

// endpoint is one declared REST call: a path template bound to its api type
// and HTTP method. The dispatch table maps both generated names (camel-case
// and snake-case) to the same endpoint.
type endpoint struct {
	path    string
	apiType string
	method  string
}

var pathSegments = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// splitPath splits a path template on any non-alphanumeric run, discarding
// empty segments. "orders/{market}" yields ["orders", "market"].
func splitPath(path string) []string {
	parts := pathSegments.Split(path, -1)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// endpointNames returns the two dispatch names generated for one declared
// endpoint: the camel-case form (publicGetTicker24hr) and the snake-case
// form (public_get_ticker_24hr).
func endpointNames(apiType, httpMethod, path string) (camel, snake string) {
	segments := splitPath(path)
	lower := strings.ToLower(httpMethod)

	var camelSuffix strings.Builder
	for _, segment := range segments {
		camelSuffix.WriteString(capitalize(segment))
	}
	camel = apiType + capitalize(lower) + camelSuffix.String()

	lowered := make([]string, len(segments))
	for i, segment := range segments {
		lowered[i] = strings.ToLower(segment)
	}
	snake = apiType + "_" + lower + "_" + strings.Join(lowered, "_")
	return camel, snake
}

// buildEndpoints expands an APIMap into the dispatch table consulted by
// Client.Call. Both generated names of each declared path map to the same
// endpoint value.
func buildEndpoints(api APIMap) map[string]endpoint {
	table := make(map[string]endpoint)
	for apiType, methods := range api {
		for httpMethod, paths := range methods {
			for _, path := range paths {
				path = strings.TrimSpace(path)
				ep := endpoint{
					path:    path,
					apiType: apiType,
					method:  strings.ToUpper(httpMethod),
				}
				camel, snake := endpointNames(apiType, httpMethod, path)
				table[camel] = ep
				table[snake] = ep
			}
		}
	}
	return table
}

// EndpointNames returns the sorted dispatch names of a declared API table.
func EndpointNames(api APIMap) []string {
	table := buildEndpoints(api)
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var placeholder = regexp.MustCompile(`{([^}]+)}`)

// ExtractParams returns the {placeholder} names embedded in a path template.
func ExtractParams(path string) []string {
	matches := placeholder.FindAllStringSubmatch(path, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}
	return names
}

// ImplodeParams substitutes {placeholder} tokens in the path template from
// params and returns the resulting path together with the remaining,
// unconsumed params.
func ImplodeParams(path string, params core.Params) (string, core.Params) {
	rest := params.Clone()
	imploded := placeholder.ReplaceAllStringFunc(path, func(token string) string {
		name := token[1 : len(token)-1]
		if !rest.Has(name) {
			return token
		}
		value := rest.String(name, "")
		delete(rest, name)
		return value
	})
	return imploded, rest
}

// BuildQuery URL-encodes params in sorted key order. Deterministic ordering
// matters to signature schemes that sign the query string.
func BuildQuery(params core.Params) string {
	values := url.Values{}
	for key := range params {
		values.Set(key, params.String(key, ""))
	}
	return values.Encode()
}

// BuildURL implodes the path template and appends the leftover params as a
// query string. Adapters use it for unauthenticated GET endpoints.
func BuildURL(base, path string, params core.Params) string {
	imploded, rest := ImplodeParams(path, params)
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(imploded, "/")
	if len(rest) > 0 {
		u += "?" + BuildQuery(rest)
	}
	return u
}
