package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/mkoskin/chatter/src/chatsdk"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxPages = 3
	maxPageBytes    = 2 * 1024 * 1024
	maxExtractChars = 4000
)

// Config configures the search backend: a SearxNG-compatible JSON endpoint.
// An empty Endpoint disables augmentation entirely.
type Config struct {
	Endpoint string
	APIKey   string
	MaxPages int
}

// Augmenter resolves queries against the search backend and summarizes the
// top result pages into system-role text blocks.
type Augmenter struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an augmenter.
func New(cfg Config, logger *slog.Logger) *Augmenter {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Augmenter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("component", "websearch"),
	}
}

// Enabled reports whether search credentials are configured.
func (a *Augmenter) Enabled() bool {
	return a.cfg.Endpoint != ""
}

// Run resolves each query into one system-role message. A failed query
// produces a block stating the failure instead of aborting the turn.
func (a *Augmenter) Run(ctx context.Context, queries []string) []chatsdk.Message {
	if !a.Enabled() || len(queries) == 0 {
		return nil
	}

	var out []chatsdk.Message
	for _, query := range queries {
		block, err := a.resolve(ctx, query)
		if err != nil {
			a.logger.Warn("search query failed", "query", query, "error", err)
			block = fmt.Sprintf("Web search for %q failed: %v", query, err)
		}
		out = append(out, chatsdk.Message{Role: chatsdk.RoleSystem, Content: block})
	}
	return out
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

func (a *Augmenter) resolve(ctx context.Context, query string) (string, error) {
	results, err := a.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("Web search for %q returned no results.", query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for %q:\n", query)

	limit := a.cfg.MaxPages
	if limit > len(results) {
		limit = len(results)
	}
	for i := 0; i < limit; i++ {
		r := results[i]
		fmt.Fprintf(&b, "\n## %s\n%s\n", r.Title, r.URL)
		if r.Content != "" {
			fmt.Fprintf(&b, "%s\n", r.Content)
		}

		// Page fetch is best-effort; the snippet above already stands alone.
		if body, err := a.fetchPage(ctx, r.URL); err == nil && body != "" {
			fmt.Fprintf(&b, "\n%s\n", body)
		} else if err != nil {
			a.logger.Debug("page fetch failed", "url", r.URL, "error", err)
		}
	}
	return b.String(), nil
}

func (a *Augmenter) search(ctx context.Context, query string) ([]searchResult, error) {
	u, err := url.Parse(a.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/search"
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search backend returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Results, nil
}

// fetchPage downloads a result page and extracts readable markdown from it.
func (a *Augmenter) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "chatter/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}

	text, err := extractReadable(string(body))
	if err != nil {
		return "", err
	}
	if len(text) > maxExtractChars {
		text = text[:maxExtractChars]
	}
	return text, nil
}

// extractReadable strips boilerplate elements and converts the remaining
// HTML to markdown.
func extractReadable(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, header, footer, aside, noscript").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	body := doc.Find("body")
	inner, err := body.Html()
	if err != nil || inner == "" {
		return strings.TrimSpace(doc.Text()), nil
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(inner)
	if err != nil {
		return strings.TrimSpace(body.Text()), nil
	}
	return strings.TrimSpace(markdown), nil
}
