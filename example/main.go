// Example usage of the bragapi gallery client: a basic cached GET, a write
// with credential injection, and a batch, all against a local stub server so
// the example runs without network access or real credentials.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	bragapi "github.com/bragbook2/brag-book-gallery-sub010"
)

func main() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/cases":
			_, _ = w.Write([]byte(`{"data":[{"id":1,"title":"Rhinoplasty"}],"total":1}`))
		case "/sitemap":
			_, _ = w.Write([]byte(`{"urls":["/gallery/rhinoplasty"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	defer server.Close()

	client := bragapi.New(
		bragapi.WithBaseURL(server.URL),
		bragapi.WithCredentials([]string{"demo-token"}, []string{"12345"}),
		bragapi.WithMaxAttempts(3),
		bragapi.WithRateLimit(30, time.Minute),
		bragapi.WithCircuitBreaker(bragapi.CircuitBreakerConfig{}),
		bragapi.WithSimpleLogger(),
	)
	if !client.IsValid() {
		log.Fatalf("invalid client config: %v", client.ValidationError())
	}
	ctx := context.Background()

	// Cached GET: the second call is served from memory.
	res := client.Get(ctx, "cases", map[string]string{"page": "1"}, 5*time.Minute)
	if !res.OK() {
		log.Fatalf("GET cases failed: %v", res.Err)
	}
	fmt.Println("cases status:", res.StatusCode)

	cached := client.Get(ctx, "cases", map[string]string{"page": "1"}, 5*time.Minute)
	fmt.Println("cached payload:", cached.Payload)

	// Write call: apiTokens and websitePropertyIds are injected from the
	// configured credentials.
	created := client.Post(ctx, "cases", map[string]any{"caseId": 42}, []string{"caseId"})
	if created.Err != nil {
		fmt.Println("POST cases:", created.Err)
	} else {
		fmt.Println("POST cases status:", created.StatusCode)
	}

	// Batch: each entry gets an independent result.
	results := client.Batch(ctx, []bragapi.BatchRequest{
		{Endpoint: "cases"},
		{Endpoint: "sitemap"},
		{Endpoint: "cases/missing"},
	})
	for i, r := range results {
		if r.OK() {
			fmt.Printf("batch[%d] status %d\n", i, r.StatusCode)
		} else {
			fmt.Printf("batch[%d] error %s\n", i, r.Err.Kind)
		}
	}

	// Per-endpoint stats and the event log.
	for endpoint, stats := range client.MetricsSnapshot() {
		fmt.Printf("%s: %d calls, avg %v\n", endpoint, stats.Count, stats.AverageTime())
	}
	for _, event := range client.Events() {
		fmt.Printf("event: %s %s\n", event.Endpoint, event.Message)
	}
}
