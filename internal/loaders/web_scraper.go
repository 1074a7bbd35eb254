package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// maxPageBytes bounds how much of a page body the scraper will read.
const maxPageBytes = 4 << 20

// PageMetadata is the provenance of one scraped page.
type PageMetadata struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Domain string `json:"domain"`
}

// PageResult is the outcome of scraping one URL. Failures are reported
// per-page rather than failing the whole batch.
type PageResult struct {
	Content  string
	Metadata PageMetadata
	Success  bool
	Error    string
}

// Scraper fetches one or more web pages and returns their text content.
type Scraper interface {
	Scrape(ctx context.Context, urls []string) ([]PageResult, error)
}

// WebScraper fetches pages over HTTP and converts their HTML to markdown-ish
// plain text.
type WebScraper struct {
	client *http.Client
}

// NewWebScraper creates a WebScraper with a bounded request timeout.
func NewWebScraper(timeout time.Duration) *WebScraper {
	return &WebScraper{client: &http.Client{Timeout: timeout}}
}

// Scrape fetches every URL sequentially. A page that cannot be fetched or
// parsed yields a failed PageResult; the other pages are unaffected.
func (s *WebScraper) Scrape(ctx context.Context, urls []string) ([]PageResult, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no urls given")
	}
	results := make([]PageResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, s.scrapeOne(ctx, u))
	}
	return results, nil
}

func (s *WebScraper) scrapeOne(ctx context.Context, pageURL string) PageResult {
	result := PageResult{Metadata: PageMetadata{URL: pageURL}}
	if parsed, err := url.Parse(pageURL); err == nil {
		result.Metadata.Domain = parsed.Hostname()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	resp, err := s.client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	text, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Metadata.Title = extractHTMLTitle(string(body))
	result.Content = Sanitize(text)
	result.Success = result.Content != ""
	if !result.Success {
		result.Error = "page contained no extractable text"
	}
	return result
}

// extractHTMLText converts an HTML document to sanitized plain text. Used by
// the file extractor for uploaded .html files.
func extractHTMLText(htmlStr string) (string, error) {
	text, err := htmltomarkdown.ConvertString(htmlStr)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML: %w", err)
	}
	return text, nil
}

// extractHTMLTitle pulls the <title> element out of an HTML document.
func extractHTMLTitle(htmlStr string) string {
	z := html.NewTokenizer(strings.NewReader(htmlStr))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := z.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.EndTagToken:
			tn, _ := z.TagName()
			if string(tn) == "title" {
				inTitle = false
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(z.Text()))
			}
		}
	}
}

var _ Scraper = (*WebScraper)(nil)
