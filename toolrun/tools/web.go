package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/GoCodeAlone/coldfront/toolrun"
)

const (
	webTimeout   = 15 * time.Second
	maxGetBody   = 8000
	maxPostBody  = 4000
	userAgent    = "coldfront/1.0"
	searchTarget = "https://html.duckduckgo.com/html/"
)

// WebGet performs an HTTP GET request.
type WebGet struct {
	Client *http.Client
}

func (t *WebGet) Name() string        { return "web_get" }
func (t *WebGet) Description() string { return "Fetch a URL via HTTP GET" }
func (t *WebGet) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "url", Desc: "URL to fetch"}}
}
func (t *WebGet) NeedsConfirm() bool { return false }

func (t *WebGet) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("no URL provided")
	}
	body, status, err := doRequest(ctx, t.Client, http.MethodGet, args[0], "")
	if err != nil {
		return "", err
	}
	if status >= 400 {
		return "", fmt.Errorf("GET %s: status %d: %s", args[0], status, truncate(body, 500))
	}
	return truncate(body, maxGetBody), nil
}

// WebPost performs an HTTP POST with a JSON body. Posting to arbitrary
// endpoints can have irreversible effects, so it is gated behind
// confirmation.
type WebPost struct {
	Client *http.Client
}

func (t *WebPost) Name() string        { return "web_post" }
func (t *WebPost) Description() string { return "Send an HTTP POST request with a JSON body" }
func (t *WebPost) Params() []toolrun.Param {
	return []toolrun.Param{
		{Name: "url", Desc: "URL to post to"},
		{Name: "data", Desc: "Request body"},
	}
}
func (t *WebPost) NeedsConfirm() bool { return true }

func (t *WebPost) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("no URL provided")
	}
	data := ""
	if len(args) > 1 {
		data = args[1]
	}
	body, status, err := doRequest(ctx, t.Client, http.MethodPost, args[0], data)
	if err != nil {
		return "", err
	}
	if status >= 400 {
		return "", fmt.Errorf("POST %s: status %d: %s", args[0], status, truncate(body, 500))
	}
	return truncate(body, maxPostBody), nil
}

var searchResultRe = regexp.MustCompile(`class="result__a"[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)

// WebSearch queries the DuckDuckGo HTML endpoint and extracts the top
// results.
type WebSearch struct {
	Client *http.Client
	// Endpoint overrides the search URL, for tests.
	Endpoint string
}

func (t *WebSearch) Name() string        { return "web_search" }
func (t *WebSearch) Description() string { return "Search the web (DuckDuckGo)" }
func (t *WebSearch) Params() []toolrun.Param {
	return []toolrun.Param{{Name: "query", Desc: "Search query"}}
}
func (t *WebSearch) NeedsConfirm() bool { return false }

func (t *WebSearch) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("no query provided")
	}
	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = searchTarget
	}
	target := endpoint + "?q=" + url.QueryEscape(strings.Join(args, " "))
	body, status, err := doRequest(ctx, t.Client, http.MethodGet, target, "")
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if status >= 400 {
		return "", fmt.Errorf("search: status %d", status)
	}

	matches := searchResultRe.FindAllStringSubmatch(body, 5)
	if len(matches) == 0 {
		return "no results found", nil
	}
	var lines []string
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("- %s: %s", strings.TrimSpace(stripTags(m[2])), m[1]))
	}
	return strings.Join(lines, "\n"), nil
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

func stripTags(s string) string { return tagRe.ReplaceAllString(s, "") }

func doRequest(ctx context.Context, client *http.Client, method, target, body string) (string, int, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, webTimeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB limit
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}
	return string(data), resp.StatusCode, nil
}
