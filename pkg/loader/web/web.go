// Package web implements a loader.Loader that scrapes the text of a single
// web page using goquery.
package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/papercomputeco/pagerag/pkg/document"
	"github.com/papercomputeco/pagerag/pkg/loader"
)

const (
	// DefaultSelector matches the page body.
	DefaultSelector = "body"

	// DefaultUserAgent is sent with every page request.
	DefaultUserAgent = "pagerag/0 (+https://github.com/papercomputeco/pagerag)"

	// DefaultMaxBytes caps how much of a response body is read.
	DefaultMaxBytes = 2 << 20
)

// Config holds configuration for the web loader.
type Config struct {
	// URL is the page to scrape. Required.
	URL string

	// Selector is the CSS selector whose text is extracted.
	// Defaults to DefaultSelector if empty.
	Selector string

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// MaxBytes caps the response body size. Defaults to DefaultMaxBytes if zero.
	MaxBytes int64

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
}

// Loader scrapes one page.
type Loader struct {
	url        string
	selector   string
	userAgent  string
	maxBytes   int64
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLoader creates a new web page loader.
func NewLoader(c Config, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if c.URL == "" {
		return nil, fmt.Errorf("web loader URL is required")
	}

	l := &Loader{
		url:        c.URL,
		selector:   c.Selector,
		userAgent:  c.UserAgent,
		maxBytes:   c.MaxBytes,
		httpClient: c.HTTPClient,
		logger:     logger,
	}

	if l.selector == "" {
		l.selector = DefaultSelector
	}
	if l.userAgent == "" {
		l.userAgent = DefaultUserAgent
	}
	if l.maxBytes <= 0 {
		l.maxBytes = DefaultMaxBytes
	}
	if l.httpClient == nil {
		l.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return l, nil
}

// Load fetches the page and returns its text as a single document.
func (l *Loader) Load(ctx context.Context) ([]document.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", loader.ErrFetch, err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", loader.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned status %d: %s", loader.ErrFetch, l.url, resp.StatusCode, string(body))
	}

	body := io.LimitReader(resp.Body, l.maxBytes)

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(ct, "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %v", loader.ErrFetch, err)
		}
		return []document.Document{l.newDocument(string(raw), "")}, nil
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing html: %v", loader.ErrFetch, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Script and style contents are text nodes too; drop them before extraction.
	doc.Find("script, style, noscript, template").Remove()

	text := doc.Find(l.selector).Text()

	l.logger.Debug("loaded page",
		"url", l.url,
		"title", title,
		"selector", l.selector,
		"chars", len(text),
	)

	return []document.Document{l.newDocument(text, title)}, nil
}

func (l *Loader) newDocument(text, title string) document.Document {
	meta := map[string]string{"url": l.url}
	if title != "" {
		meta["title"] = title
	}

	return document.Document{
		Text:     CleanText(text),
		Source:   l.url,
		Metadata: meta,
	}
}

// CleanText trims every line and drops blank ones, which is most of what an
// HTML text dump consists of.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r", "")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}

// Ensure Loader implements loader.Loader
var _ loader.Loader = (*Loader)(nil)
