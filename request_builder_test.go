package bragapi

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
)

func TestBuildURLJoinsWithSingleSlash(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		endpoint string
		want     string
	}{
		{"no slashes", "https://api.example.com", "cases", "https://api.example.com/cases"},
		{"base trailing slash", "https://api.example.com/", "cases", "https://api.example.com/cases"},
		{"endpoint leading slash", "https://api.example.com", "/cases", "https://api.example.com/cases"},
		{"both slashes", "https://api.example.com/", "/cases", "https://api.example.com/cases"},
		{"nested endpoint", "https://api.example.com/v3", "cases/42", "https://api.example.com/v3/cases/42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithBaseURL(tt.baseURL))
			got, apiErr := c.buildURL(tt.endpoint, nil, false)
			if apiErr != nil {
				t.Fatalf("buildURL: %v", apiErr)
			}
			if got != tt.want {
				t.Errorf("buildURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildURLQueryParameters(t *testing.T) {
	c := New(WithBaseURL("https://api.example.com"))

	got, apiErr := c.buildURL("cases", map[string]string{"page": "2", "limit": "10"}, false)
	if apiErr != nil {
		t.Fatalf("buildURL: %v", apiErr)
	}

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("result not parseable: %v", err)
	}
	q := parsed.Query()
	if q.Get("page") != "2" || q.Get("limit") != "10" {
		t.Errorf("query = %v, want page=2 limit=10", q)
	}
}

func TestBuildURLCacheBuster(t *testing.T) {
	c := New(WithBaseURL("https://api.example.com"))

	got, apiErr := c.buildURL("cases", nil, true)
	if apiErr != nil {
		t.Fatalf("buildURL: %v", apiErr)
	}
	parsed, _ := url.Parse(got)
	if parsed.Query().Get(cacheBustParam) == "" {
		t.Error("expected cache-busting parameter on GET URLs")
	}

	// Two builds must not collide.
	second, _ := c.buildURL("cases", nil, true)
	if got == second {
		t.Error("expected distinct cache-busting values")
	}
}

func TestBuildURLRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{"empty base", ""},
		{"no scheme", "api.example.com"},
		{"bad scheme", "ftp://api.example.com"},
		{"control char", "https://api.exam\x7fple.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithBaseURL(tt.baseURL))
			_, apiErr := c.buildURL("cases", nil, false)
			if apiErr == nil {
				t.Fatal("expected error")
			}
			if apiErr.Kind != KindInvalidURL {
				t.Errorf("Kind = %v, want KindInvalidURL", apiErr.Kind)
			}
		})
	}
}

func TestCacheKeyExcludesBusterAndSortsQuery(t *testing.T) {
	a := cacheKey("cases", map[string]string{"b": "2", "a": "1"})
	b := cacheKey("cases", map[string]string{"a": "1", "b": "2"})
	if a != b {
		t.Errorf("equivalent queries produced different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, cacheKeyPrefix) {
		t.Errorf("key %q missing namespace prefix", a)
	}
	if strings.Contains(a, cacheBustParam+"=") {
		t.Errorf("key %q must not include the cache buster", a)
	}

	if cacheKey("/cases/", nil) != cacheKey("cases", nil) {
		t.Error("expected slash-trimmed endpoints to share a key")
	}
}

func TestBuildBodyInjectsCredentials(t *testing.T) {
	c := New(
		WithBaseURL("https://api.example.com"),
		WithCredentials([]string{"tok-1"}, []string{"prop-1"}),
	)

	raw, apiErr := c.buildBody("cases", map[string]any{"caseId": 42})
	if apiErr != nil {
		t.Fatalf("buildBody: %v", apiErr)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("body not valid JSON: %v", err)
	}
	tokens, ok := body[fieldAPITokens].([]any)
	if !ok || len(tokens) != 1 || tokens[0] != "tok-1" {
		t.Errorf("apiTokens = %v, want [tok-1]", body[fieldAPITokens])
	}
	props, ok := body[fieldPropertyIDs].([]any)
	if !ok || len(props) != 1 || props[0] != "prop-1" {
		t.Errorf("websitePropertyIds = %v, want [prop-1]", body[fieldPropertyIDs])
	}
	if body["caseId"] != float64(42) {
		t.Errorf("caseId = %v, want 42", body["caseId"])
	}
}

func TestBuildBodyCallerValuesWin(t *testing.T) {
	c := New(
		WithBaseURL("https://api.example.com"),
		WithCredentials([]string{"configured"}, nil),
	)

	raw, apiErr := c.buildBody("cases", map[string]any{
		fieldAPITokens: []string{"explicit"},
	})
	if apiErr != nil {
		t.Fatalf("buildBody: %v", apiErr)
	}

	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	tokens := body[fieldAPITokens].([]any)
	if tokens[0] != "explicit" {
		t.Errorf("apiTokens = %v, caller value must win", tokens)
	}
}

func TestBuildBodyDoesNotMutateInput(t *testing.T) {
	c := New(
		WithBaseURL("https://api.example.com"),
		WithCredentials([]string{"tok-1"}, nil),
	)

	body := map[string]any{"caseId": 42}
	if _, apiErr := c.buildBody("cases", body); apiErr != nil {
		t.Fatalf("buildBody: %v", apiErr)
	}
	if _, ok := body[fieldAPITokens]; ok {
		t.Error("buildBody must not mutate the caller's map")
	}
}

func TestBuildBodyUnserializable(t *testing.T) {
	c := New(WithBaseURL("https://api.example.com"))

	_, apiErr := c.buildBody("cases", map[string]any{"bad": make(chan int)})
	if apiErr == nil {
		t.Fatal("expected error for unserializable body")
	}
	if apiErr.Kind != KindValidation {
		t.Errorf("Kind = %v, want KindValidation", apiErr.Kind)
	}
}

func TestCheckRequiredFields(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		required []string
		wantErr  bool
	}{
		{"all present", map[string]any{"caseId": 42, "name": "x"}, []string{"caseId", "name"}, false},
		{"zero value passes", map[string]any{"caseId": 0}, []string{"caseId"}, false},
		{"nil value passes", map[string]any{"caseId": nil}, []string{"caseId"}, false},
		{"missing field", map[string]any{"name": "x"}, []string{"caseId"}, true},
		{"no requirements", map[string]any{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRequiredFields("cases", tt.body, tt.required)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if err.Kind != KindMissingField {
					t.Errorf("Kind = %v, want KindMissingField", err.Kind)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestIsWriteMethod(t *testing.T) {
	for _, m := range []string{"POST", "PUT", "PATCH", "DELETE"} {
		if !isWriteMethod(m) {
			t.Errorf("expected %s to be a write method", m)
		}
	}
	for _, m := range []string{"GET", "HEAD", "OPTIONS"} {
		if isWriteMethod(m) {
			t.Errorf("expected %s not to be a write method", m)
		}
	}
}
