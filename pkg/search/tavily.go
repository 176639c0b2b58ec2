package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilySearcher provides web search via the Tavily API. The API's own AI
// summary is disabled; stages get the raw page excerpts.
type TavilySearcher struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	maxResults int
}

// TavilyOption configures a TavilySearcher.
type TavilyOption func(*TavilySearcher)

// WithTavilyAPIKey sets the API key (alternative to env var).
func WithTavilyAPIKey(key string) TavilyOption {
	return func(t *TavilySearcher) {
		t.apiKey = key
	}
}

// WithMaxResults sets the maximum search results to return.
func WithMaxResults(max int) TavilyOption {
	return func(t *TavilySearcher) {
		t.maxResults = max
	}
}

// WithEndpoint overrides the search endpoint.
func WithEndpoint(url string) TavilyOption {
	return func(t *TavilySearcher) {
		t.endpoint = url
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) TavilyOption {
	return func(t *TavilySearcher) {
		t.httpClient = client
	}
}

// NewTavily creates a new Tavily-backed searcher.
func NewTavily(opts ...TavilyOption) *TavilySearcher {
	t := &TavilySearcher{
		apiKey:   os.Getenv("TAVILY_API_KEY"),
		endpoint: tavilyEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxResults: 5,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Available returns true if the API key is configured.
func (t *TavilySearcher) Available() bool {
	return t.apiKey != ""
}

type tavilyRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Search queries Tavily and formats the hits as a markdown list.
func (t *TavilySearcher) Search(ctx context.Context, query string) (string, error) {
	if !t.Available() {
		return "", &SearchError{Query: query, Err: fmt.Errorf("tavily API key not configured")}
	}

	payload := tavilyRequest{
		Query:         query,
		SearchDepth:   "advanced",
		IncludeAnswer: false,
		MaxResults:    t.maxResults,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &SearchError{Query: query, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &SearchError{Query: query, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &SearchError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &SearchError{Query: query, Status: resp.StatusCode, Err: fmt.Errorf("tavily API error")}
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &SearchError{Query: query, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(decoded.Results) == 0 {
		return "", &SearchError{Query: query, Err: fmt.Errorf("no results")}
	}

	return formatResults(decoded.Results), nil
}

func formatResults(results []tavilyResult) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.URL, strings.TrimSpace(r.Content))
	}
	return sb.String()
}
