package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stugorf/hdc-digest/internal/scanner"
)

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://export.arxiv.org/list/cs.ET/pastweek"
	u, err := buildPageURL(base, 200, 100)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	if parsed.Scheme != "https" || parsed.Host != "export.arxiv.org" {
		t.Fatalf("unexpected host: %s", parsed.Host)
	}

	q := parsed.Query()
	if q.Get("skip") != "200" {
		t.Fatalf("expected skip=200, got %s", q.Get("skip"))
	}
	if q.Get("show") != "100" {
		t.Fatalf("expected show=100, got %s", q.Get("show"))
	}
}

func TestParseEntry(t *testing.T) {
	t.Parallel()

	html := `
	<dl>
	  <dt>
	    <span class="list-identifier"><a href="/abs/1234.56789">arXiv:1234.56789</a></span>
	  </dt>
	  <dd>
	    <div class="list-date">Date: 8 Nov 2025</div>
	    <div class="list-title mathjax">Title: Hypervector Binding at Scale</div>
	    <p class="mathjax">Abstract: Sample abstract text.</p>
	  </dd>
	</dl>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	item, publishedAt, ok := parseEntry(doc.Find("dt").First(), doc.Find("dd").First())
	if !ok {
		t.Fatalf("parseEntry rejected a valid entry")
	}

	if item.URL != "https://arxiv.org/abs/1234.56789" {
		t.Fatalf("unexpected url: %s", item.URL)
	}
	if item.Title != "Hypervector Binding at Scale" {
		t.Fatalf("unexpected title: %s", item.Title)
	}
	if item.Summary != "Sample abstract text." {
		t.Fatalf("unexpected summary: %s", item.Summary)
	}
	if item.SourceType != "paper" || item.Publisher != "arXiv" {
		t.Fatalf("unexpected source: %s/%s", item.SourceType, item.Publisher)
	}
	if item.PublishedDate != "2025-11-08" || publishedAt.Day() != 8 {
		t.Fatalf("unexpected published date: %s %v", item.PublishedDate, publishedAt)
	}
}

func TestParseEntryWithoutDate(t *testing.T) {
	t.Parallel()

	html := `<dl><dt><a href="/abs/1">x</a></dt><dd><div class="list-title">Title: t</div></dd></dl>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	if _, _, ok := parseEntry(doc.Find("dt").First(), doc.Find("dd").First()); ok {
		t.Fatalf("expected entry without date to be rejected")
	}
}

const arxivListing = `
<dl>
  <dt><span class="list-identifier"><a href="/abs/2501.00001">arXiv:2501.00001</a></span></dt>
  <dd>
    <div class="list-date">Date: 8 Nov 2025</div>
    <div class="list-title mathjax">Title: Fresh Article</div>
    <p class="mathjax">Abstract: brand new.</p>
  </dd>
  <dt><span class="list-identifier"><a href="/abs/2501.00002">arXiv:2501.00002</a></span></dt>
  <dd>
    <div class="list-date">Date: 7 Nov 2025</div>
    <div class="list-title mathjax">Title: Yesterday Article</div>
    <p class="mathjax">Abstract: older.</p>
  </dd>
  <dt><span class="list-identifier"><a href="/abs/2501.00003">arXiv:2501.00003</a></span></dt>
  <dd>
    <div class="list-date">Date: 1 Nov 2025</div>
    <div class="list-title mathjax">Title: Old Article</div>
    <p class="mathjax">Abstract: oldest.</p>
  </dd>
</dl>`

func TestArxivScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(arxivListing))
	}))
	defer server.Close()

	sc := NewArxivScanner(server.Client(), nil)
	sc.pageSize = 10

	req := scanner.Request{
		Day:      time.Date(2025, time.November, 8, 15, 0, 0, 0, time.UTC),
		Section:  "Papers",
		DaysBack: 1,
		Categories: []scanner.Category{
			{Name: "cs.ET", URL: server.URL + "/list/cs.ET"},
		},
	}

	items, err := sc.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Fresh Article" || items[0].Summary != "brand new." {
		t.Fatalf("unexpected item: %+v", items[0])
	}
}

func TestArxivScannerScanWindowAndCap(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(arxivListing))
	}))
	defer server.Close()

	sc := NewArxivScanner(server.Client(), nil)
	sc.pageSize = 10

	base := scanner.Request{
		Day:      time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC),
		Section:  "Papers",
		DaysBack: 2,
		Categories: []scanner.Category{
			{Name: "cs.ET", URL: server.URL + "/list/cs.ET"},
			{Name: "cs.ET-dup", URL: server.URL + "/list/cs.ET"},
		},
	}

	items, err := sc.Scan(context.Background(), base)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 deduplicated items, got %d", len(items))
	}

	capped := base
	capped.MaxItems = 1
	items, err = sc.Scan(context.Background(), capped)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected cap of 1 item, got %d", len(items))
	}
}

func TestArxivScannerRequiresCategories(t *testing.T) {
	t.Parallel()

	sc := NewArxivScanner(nil, nil)
	if _, err := sc.Scan(context.Background(), scanner.Request{Section: "Papers"}); err == nil {
		t.Fatalf("expected error without categories")
	}
}
