package exchange

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"nakula/internal/transport"
	"nakula/pkg/core"
)

var (
	maintenancePattern = regexp.MustCompile(`(?i)offline|busy|retry|wait|unavailable|maintain|maintenance|maintenancing`)
	ddosPattern        = regexp.MustCompile(`(?i)cloudflare|incapsula|overload|ddos`)
)

// possibleReasons is appended to ExchangeNotAvailable messages. Informational
// only; nothing branches on it.
var possibleReasons = strings.Join([]string{
	"invalid API keys",
	"bad or old nonce",
	"exchange is down or offline",
	"on maintenance",
	"DDoS protection",
	"rate-limiting",
}, ", ")

// parseJSON decodes body when it is syntactically a JSON object or array.
// Anything else, including bare JSON scalars and malformed payloads,
// yields nil: venue error pages are frequently HTML or plain text.
func parseJSON(body string) any {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) < 2 {
		return nil
	}
	first := trimmed[0]
	if first != '{' && first != '[' {
		return nil
	}
	var decoded any
	if err := sonic.UnmarshalString(trimmed, &decoded); err != nil {
		return nil
	}
	return decoded
}

// canonicalHeaders maps header names to their Title-Cased-Per-Word form and
// keeps the first value of each.
func canonicalHeaders(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		words := strings.Split(name, "-")
		for i, word := range words {
			words[i] = capitalize(strings.ToLower(word))
		}
		result[strings.Join(words, "-")] = values[0]
	}
	return result
}

// handleRestResponse decodes and classifies a transport response. The
// adapter's HandleErrors hook runs first; when it passes, the default
// handler applies the status table and body heuristics. A clean response
// yields its parsed JSON, or the raw body string when the body was not
// JSON.
func (c *Client) handleRestResponse(resp *transport.Response, url, method string, reqHeaders map[string]string, reqBody []byte) (any, error) {
	body := string(resp.Body)
	decoded := parseJSON(body)
	respHeaders := canonicalHeaders(resp.Headers)

	c.registry.mu.Lock()
	if c.desc.EnableLastHTTPResponse {
		c.lastHTTPResponse = body
	}
	if c.desc.EnableLastJSONResponse {
		c.lastJSONResponse = decoded
	}
	if c.desc.EnableLastResponseHeaders {
		c.lastResponseHeaders = respHeaders
	}
	c.registry.mu.Unlock()

	if handler, ok := c.adapter.(ErrorHandler); ok {
		err := handler.HandleErrors(&ResponseContext{
			StatusCode:     resp.StatusCode,
			Status:         resp.Status,
			URL:            url,
			Method:         method,
			Headers:        respHeaders,
			Body:           body,
			JSON:           decoded,
			RequestHeaders: reqHeaders,
			RequestBody:    reqBody,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := c.defaultErrorHandler(resp.StatusCode, resp.Status, url, method, body, decoded); err != nil {
		return nil, err
	}

	if decoded != nil {
		return decoded, nil
	}
	return body, nil
}

// defaultErrorHandler classifies a response by HTTP status. 2xx passes.
// Other statuses resolve through the status table; when the body was not
// JSON, maintenance and DDoS keyword scans may set or upgrade the kind.
// Statuses that resolve to no kind pass through undisturbed.
func (c *Client) defaultErrorHandler(status int, reason, url, method, body string, decoded any) error {
	if status >= 200 && status <= 299 {
		return nil
	}

	details := body
	kind, matched := c.desc.statusKind(status)

	if decoded == nil {
		if maintenancePattern.MatchString(body) {
			kind = core.KindExchangeNotAvailable
			matched = true
			details += " offline, on maintenance, or unreachable from this location at the moment"
		}
		if ddosPattern.MatchString(body) {
			kind = core.KindDDoSProtection
			matched = true
		}
	}

	if !matched {
		return nil
	}

	if kind == core.KindExchangeNotAvailable {
		details += " (possible reasons: " + possibleReasons + ")"
	}

	return &core.Error{
		Kind:       kind,
		Exchange:   c.desc.ID,
		Message:    strings.Join([]string{method, url, strconv.Itoa(status), reason, details}, " "),
		HTTPStatus: status,
		Method:     method,
		URL:        url,
	}
}

// ThrowExactlyMatchedException fails with the mapped kind when the exact
// table contains key. A nil return means no match.
func (c *Client) ThrowExactlyMatchedException(key, message string) error {
	if kind, ok := c.desc.Exceptions.MatchExact(key); ok {
		return core.NewError(kind, c.desc.ID, message)
	}
	return nil
}

// ThrowBroadlyMatchedException fails with the kind of the first broad table
// entry found inside body. A nil return means no match.
func (c *Client) ThrowBroadlyMatchedException(body, message string) error {
	if kind, ok := c.desc.Exceptions.MatchBroad(body); ok {
		return core.NewError(kind, c.desc.ID, message)
	}
	return nil
}

// Remarshal maps a decoded generic payload onto a typed structure. Venue
// adapters use it to turn the request pipeline's output into their raw
// response types.
func Remarshal(decoded, target any) error {
	raw, err := sonic.Marshal(decoded)
	if err != nil {
		return fmt.Errorf("remarshal: %w", err)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("remarshal: %w", err)
	}
	return nil
}
