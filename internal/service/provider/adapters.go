package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Provider identifiers used as source tags on enrichment payloads.
const (
	NameCompound = "compound"
	NameSearch   = "search"
)

// Query carries everything an adapter needs to research one company.
type Query struct {
	CompanyName string
	Domain      string
	Origin      string
	// ExtraURLs are additional caller-supplied pages used as context.
	ExtraURLs []string
}

// RawResult is the provider-shaped output before schema validation. Fields
// uses the sanitizer's key vocabulary.
type RawResult struct {
	Fields     map[string]any
	StatusCode int
	Retries    int
}

// Adapter is one concrete provider. Each supplies its own endpoint, auth and
// retry tuning but shares the resilient client underneath.
type Adapter interface {
	Name() string
	Call(ctx context.Context, q Query) (*RawResult, error)
}

// CompoundAdapter talks to the primary search+generation provider, which
// returns a structured company profile in a single call.
type CompoundAdapter struct {
	client   *Client
	endpoint string
	apiKey   string
}

// NewCompoundAdapter wires the primary provider adapter.
func NewCompoundAdapter(client *Client, endpoint, apiKey string) *CompoundAdapter {
	return &CompoundAdapter{client: client, endpoint: endpoint, apiKey: apiKey}
}

// Name implements Adapter.
func (a *CompoundAdapter) Name() string { return NameCompound }

type compoundRequest struct {
	Query  string   `json:"query"`
	URLs   []string `json:"urls"`
	Format string   `json:"format"`
}

type compoundResponse struct {
	Profile   map[string]any `json:"profile"`
	Citations []string       `json:"citations"`
}

// Call implements Adapter.
func (a *CompoundAdapter) Call(ctx context.Context, q Query) (*RawResult, error) {
	payload := compoundRequest{
		Query:  fmt.Sprintf("Provide a structured company profile for %s (%s)", q.CompanyName, q.Origin),
		URLs:   append([]string{q.Origin}, q.ExtraURLs...),
		Format: "json",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal compound request: %w", err)
	}

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
		return req, nil
	}

	call, err := a.client.Do(ctx, a.Name(), build, 2)
	if err != nil {
		return rawFromCall(call), err
	}

	var resp compoundResponse
	if err := json.Unmarshal(call.Body, &resp); err != nil {
		return rawFromCall(call), fmt.Errorf("decode compound response: %w", err)
	}

	fields := resp.Profile
	if fields == nil {
		fields = map[string]any{}
	}
	if len(resp.Citations) > 0 {
		fields["citations"] = resp.Citations
	}

	result := rawFromCall(call)
	result.Fields = fields
	return result, nil
}

// SearchAdapter talks to the plain web-search fallback provider. It issues two
// concurrent queries for more source material and merges the result sets by
// URL, so the sanitizer sees one de-duplicated payload. Retry budget is 1: the
// provider enforces an aggressive per-minute quota.
type SearchAdapter struct {
	client   *Client
	endpoint string
	apiKey   string
}

// NewSearchAdapter wires the fallback provider adapter.
func NewSearchAdapter(client *Client, endpoint, apiKey string) *SearchAdapter {
	return &SearchAdapter{client: client, endpoint: endpoint, apiKey: apiKey}
}

// Name implements Adapter.
func (a *SearchAdapter) Name() string { return NameSearch }

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Call implements Adapter.
func (a *SearchAdapter) Call(ctx context.Context, q Query) (*RawResult, error) {
	queries := []string{
		fmt.Sprintf("%s company profile overview site:%s", q.CompanyName, q.Domain),
		fmt.Sprintf("%s headquarters industry founded employees", q.CompanyName),
	}

	type outcome struct {
		results []searchResult
		call    *CallResult
		err     error
	}

	outcomes := make([]outcome, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			results, call, err := a.search(ctx, query)
			outcomes[i] = outcome{results: results, call: call, err: err}
		}(i, query)
	}
	wg.Wait()

	merged := make([]searchResult, 0, 16)
	seen := make(map[string]struct{})
	var firstErr error
	var lastCall *CallResult
	succeeded := 0

	for _, out := range outcomes {
		if out.call != nil {
			lastCall = out.call
		}
		if out.err != nil {
			if firstErr == nil {
				firstErr = out.err
			}
			continue
		}
		succeeded++
		for _, r := range out.results {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			merged = append(merged, r)
		}
	}

	// One successful query is enough to produce a usable payload.
	if succeeded == 0 {
		return rawFromCall(lastCall), firstErr
	}

	result := rawFromCall(lastCall)
	result.Fields = fieldsFromSearchResults(q, merged)
	return result, nil
}

func (a *SearchAdapter) search(ctx context.Context, query string) ([]searchResult, *CallResult, error) {
	body, err := json.Marshal(map[string]any{"query": query, "max_results": 10})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal search request: %w", err)
	}

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", a.apiKey)
		return req, nil
	}

	call, err := a.client.Do(ctx, a.Name(), build, 1)
	if err != nil {
		return nil, call, err
	}

	var resp searchResponse
	if err := json.Unmarshal(call.Body, &resp); err != nil {
		return nil, call, fmt.Errorf("decode search response: %w", err)
	}
	return resp.Results, call, nil
}

func fieldsFromSearchResults(q Query, results []searchResult) map[string]any {
	snippets := make([]string, 0, len(results))
	citations := make([]string, 0, len(results))
	for _, r := range results {
		if s := strings.TrimSpace(r.Snippet); s != "" {
			snippets = append(snippets, s)
		}
		citations = append(citations, r.URL)
	}

	fields := map[string]any{"citations": citations}
	if len(snippets) > 0 {
		limit := len(snippets)
		if limit > 5 {
			limit = 5
		}
		fields["description"] = strings.Join(snippets[:limit], " ")
	}
	return fields
}

func rawFromCall(call *CallResult) *RawResult {
	if call == nil {
		return &RawResult{}
	}
	return &RawResult{StatusCode: call.StatusCode, Retries: call.Retries}
}
