package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/normalize"
	"github.com/stugorf/hdc-digest/internal/scanner"
)

const (
	arxivBaseURL   = "https://arxiv.org"
	arxivPublisher = "arXiv"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls category listing pages and turns entries inside the
// requested window into paper items.
type ArxivScanner struct {
	client   *http.Client
	pageSize int
	logger   *slog.Logger
}

var _ scanner.Scanner = (*ArxivScanner)(nil)

// NewArxivScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivScanner(client *http.Client, log *slog.Logger) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivScanner{client: client, pageSize: 200, logger: log}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan walks each category URL and returns papers dated within the request window.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for section %s", req.Section)
	}

	from := req.WindowStart()
	to := req.Day.UTC().Truncate(24 * time.Hour)
	results := make([]domain.Item, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		skip := 0
		for {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := a.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			pageItems, shouldContinue := a.extractItems(doc, from, to)
			for _, item := range pageItems {
				key := normalize.CanonicalURL(item.URL)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				results = append(results, item)
			}
			a.debug("arxiv page scanned", "category", cat.Name, "skip", skip, "items", len(pageItems))

			if !shouldContinue || a.full(results, req.MaxItems) {
				break
			}
			skip += a.pageSize
		}
		if a.full(results, req.MaxItems) {
			break
		}
	}

	if req.MaxItems > 0 && len(results) > req.MaxItems {
		results = results[:req.MaxItems]
	}
	return results, nil
}

func (a *ArxivScanner) full(items []domain.Item, max int) bool {
	return max > 0 && len(items) >= max
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "hdc-digest/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractItems keeps entries dated in [from, to]. Listings are newest first,
// so an entry older than from stops the scan.
func (a *ArxivScanner) extractItems(doc *goquery.Document, from, to time.Time) ([]domain.Item, bool) {
	var (
		collected    []domain.Item
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		item, publishedAt, ok := parseEntry(dt, dd)
		if !ok {
			return true
		}

		day := publishedAt.UTC().Truncate(24 * time.Hour)
		if day.Before(from) {
			continueScan = false
			return false
		}
		if !day.After(to) {
			collected = append(collected, item)
		}

		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection) (domain.Item, time.Time, bool) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, exists := link.Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return domain.Item{}, time.Time{}, false
	}
	if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimPrefix(title, "Title:")
	title = strings.TrimSpace(title)

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:")
	summary = strings.TrimSpace(summary)

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	match := dateExpr.FindString(dateText)
	if match == "" {
		return domain.Item{}, time.Time{}, false
	}
	publishedAt, err := time.Parse("2 Jan 2006", match)
	if err != nil {
		return domain.Item{}, time.Time{}, false
	}

	return domain.Item{
		Title:         title,
		PublishedDate: publishedAt.Format(domain.DateLayout),
		URL:           href,
		Summary:       summary,
		SourceType:    "paper",
		Publisher:     arxivPublisher,
	}, publishedAt, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (a *ArxivScanner) debug(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
