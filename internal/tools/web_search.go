package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/voicebridge/gateway/pkg/commons"
)

const (
	maxSearchResults = 5
	snippetMaxLen    = 500
)

var (
	htmlTagRE    = regexp.MustCompile(`<[^>]+>`)
	htmlEntityRE = regexp.MustCompile(`&#x[0-9a-fA-F]+;|&[a-z]+;`)
)

func cleanHTML(s string) string {
	s = htmlTagRE.ReplaceAllString(s, "")
	s = htmlEntityRE.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func truncateSnippet(s string) string {
	if len(s) <= snippetMaxLen {
		return s
	}
	return s[:snippetMaxLen]
}

// WebSearchTool implements the Tavily -> Brave -> DuckDuckGo fallback chain:
// the first provider with a configured API key is tried, and DuckDuckGo's
// HTML endpoint (no key required) is the last resort.
type WebSearchTool struct {
	client       *resty.Client
	tavilyKey    string
	braveKey     string
	logger       commons.Logger
}

// NewWebSearchTool constructs a WebSearchTool. Either API key may be empty,
// in which case that provider is skipped.
func NewWebSearchTool(tavilyKey, braveKey string, logger commons.Logger) *WebSearchTool {
	return &WebSearchTool{
		client:    resty.New().SetTimeout(10 * time.Second),
		tavilyKey: tavilyKey,
		braveKey:  braveKey,
		logger:    logger,
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for current information. Use for weather, news, prices, recent events, or anything requiring up-to-date data."
}

func (t *WebSearchTool) ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "Error: no search query provided.", nil
	}

	var result string
	if t.tavilyKey != "" {
		result = t.searchTavily(ctx, query)
	}
	if result == "" && t.braveKey != "" {
		result = t.searchBrave(ctx, query)
	}
	if result == "" {
		result = t.searchDuckDuckGo(ctx, query)
	}

	if result == "" {
		return fmt.Sprintf("Web search failed for '%s'. All search providers returned no results.", query), nil
	}
	return result, nil
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type tavilyResponse struct {
	Answer  string         `json:"answer"`
	Results []tavilyResult `json:"results"`
}

func (t *WebSearchTool) searchTavily(ctx context.Context, query string) string {
	var data tavilyResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("X-API-Key", t.tavilyKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"query":          query,
			"max_results":    maxSearchResults,
			"include_answer": true,
		}).
		SetResult(&data).
		Post("https://api.tavily.com/search")
	if err != nil || resp.IsError() {
		t.logger.Warnw("tavily search failed", "error", err)
		return ""
	}

	results := data.Results
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	if len(results) == 0 && data.Answer == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for '%s':", query)
	if data.Answer != "" {
		fmt.Fprintf(&b, "\nDirect answer: %s\n", data.Answer)
	}
	for i, r := range results {
		title := cleanHTML(r.Title)
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, title, r.URL)
		if snippet := truncateSnippet(cleanHTML(r.Content)); snippet != "" {
			fmt.Fprintf(&b, "\n   %s", snippet)
		}
	}

	t.logger.Infow("tavily search succeeded", "results", len(results), "query", query)
	return b.String()
}

type braveResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	ExtraSnippets []string `json:"extra_snippets"`
}

type braveWeb struct {
	Results []braveResult `json:"results"`
}

type braveInfobox struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type braveResponse struct {
	Web     braveWeb     `json:"web"`
	Infobox braveInfobox `json:"infobox"`
}

func (t *WebSearchTool) searchBrave(ctx context.Context, query string) string {
	var data braveResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("X-Subscription-Token", t.braveKey).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{"q": query, "count": fmt.Sprint(maxSearchResults)}).
		SetResult(&data).
		Get("https://api.search.brave.com/res/v1/web/search")
	if err != nil || resp.IsError() {
		t.logger.Warnw("brave search failed", "error", err)
		return ""
	}

	results := data.Web.Results
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	hasInfobox := data.Infobox.Title != "" || data.Infobox.Description != ""
	if len(results) == 0 && !hasInfobox {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for '%s':", query)
	if hasInfobox {
		if data.Infobox.Title != "" {
			fmt.Fprintf(&b, "\nInfobox: %s", data.Infobox.Title)
		}
		if desc := truncateSnippet(cleanHTML(data.Infobox.Description)); desc != "" {
			fmt.Fprintf(&b, "\n  %s", desc)
		}
	}
	for i, r := range results {
		title := cleanHTML(r.Title)
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, title, r.URL)
		if desc := truncateSnippet(cleanHTML(r.Description)); desc != "" {
			fmt.Fprintf(&b, "\n   %s", desc)
		}
		extras := r.ExtraSnippets
		if len(extras) > 2 {
			extras = extras[:2]
		}
		for _, extra := range extras {
			fmt.Fprintf(&b, "\n   %s", truncateSnippet(cleanHTML(extra)))
		}
	}

	t.logger.Infow("brave search succeeded", "results", len(results), "query", query)
	return b.String()
}

// duckduckgoResultRE extracts result titles/URLs/snippets from the
// no-JS HTML results page at html.duckduckgo.com/html/ — the only
// key-free endpoint the fallback chain can hit without a registered API.
var duckduckgoResultRE = regexp.MustCompile(`(?s)<a[^>]*class="result__a"[^>]*href="([^"]*)"[^>]*>(.*?)</a>.*?<a[^>]*class="result__snippet"[^>]*>(.*?)</a>`)

func (t *WebSearchTool) searchDuckDuckGo(ctx context.Context, query string) string {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetQueryParam("q", query).
		Get("https://html.duckduckgo.com/html/")
	if err != nil || resp.IsError() {
		t.logger.Warnw("duckduckgo search failed", "error", err)
		return ""
	}

	matches := duckduckgoResultRE.FindAllStringSubmatch(resp.String(), maxSearchResults)
	if len(matches) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for '%s':", query)
	for i, m := range matches {
		url := m[1]
		title := cleanHTML(m[2])
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, title, url)
		if snippet := truncateSnippet(cleanHTML(m[3])); snippet != "" {
			fmt.Fprintf(&b, "\n   %s", snippet)
		}
	}

	t.logger.Infow("duckduckgo search succeeded", "results", len(matches), "query", query)
	return b.String()
}
