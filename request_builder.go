package bragapi

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Credential body fields injected into write requests. The gallery service
// accepts batches, so both are arrays.
const (
	fieldAPITokens   = "apiTokens"
	fieldPropertyIDs = "websitePropertyIds"
)

// cacheBustParam defeats intermediary/browser caching of GET responses so
// the only cache layer in play is this client's own store.
const cacheBustParam = "_t"

// buildURL joins the configured base URL with an endpoint path so exactly
// one separator sits between them, appends query parameters, and validates
// the result. GET requests additionally carry a monotonic cache-busting
// parameter.
func (c *Client) buildURL(endpoint string, query map[string]string, cacheBust bool) (string, *APIError) {
	base := strings.TrimRight(c.baseURL, "/")
	path := strings.TrimLeft(endpoint, "/")
	full := base + "/" + path

	params := url.Values{}
	for k, v := range query {
		params.Set(k, v)
	}
	if cacheBust {
		params.Set(cacheBustParam, strconv.FormatInt(time.Now().UnixNano(), 10))
	}
	if encoded := params.Encode(); encoded != "" {
		full += "?" + encoded
	}

	parsed, err := url.Parse(full)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", newAPIError(KindInvalidURL, "malformed request URL", endpoint, 0, err, map[string]any{
			"url": full,
		})
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", newAPIError(KindInvalidURL, "unsupported URL scheme "+parsed.Scheme, endpoint, 0, nil, map[string]any{
			"url": full,
		})
	}
	return full, nil
}

// cacheKey builds the namespaced cache key for a GET request. The
// cache-busting parameter is never part of the key. Query parameters are
// sorted so equivalent requests share an entry.
func cacheKey(endpoint string, query map[string]string) string {
	var b strings.Builder
	b.WriteString(cacheKeyPrefix)
	b.WriteString(strings.Trim(endpoint, "/"))

	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('?')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(query[k])
		}
	}
	return b.String()
}

// buildBody serializes a write-request body, injecting the configured
// credential arrays when the caller omitted them. Caller-supplied values
// always win.
func (c *Client) buildBody(endpoint string, body map[string]any) ([]byte, *APIError) {
	merged := make(map[string]any, len(body)+2)
	for k, v := range body {
		merged[k] = v
	}
	if _, ok := merged[fieldAPITokens]; !ok && len(c.apiTokens) > 0 {
		merged[fieldAPITokens] = c.apiTokens
	}
	if _, ok := merged[fieldPropertyIDs]; !ok && len(c.propertyIDs) > 0 {
		merged[fieldPropertyIDs] = c.propertyIDs
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, newAPIError(KindValidation, "request body is not serializable", endpoint, 0, err, nil)
	}
	return raw, nil
}

// checkRequiredFields fails fast when a required body key is absent. Only
// presence is checked: a present zero value (e.g. caseId 0) passes, and
// value-level rules belong to the caller.
func checkRequiredFields(endpoint string, body map[string]any, required []string) *APIError {
	for _, field := range required {
		if _, ok := body[field]; !ok {
			return newAPIError(KindMissingField, "required field "+field+" missing from request body", endpoint, 0, nil, map[string]any{
				"field": field,
			})
		}
	}
	return nil
}

// isWriteMethod reports whether the method carries a body with credentials.
func isWriteMethod(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	default:
		return false
	}
}
