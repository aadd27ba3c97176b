// Package scraper reads page metadata directly when the metadata engine cannot.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
	"grabarr/internal/parsing"
)

// PageMeta is what a watch page advertises about itself.
type PageMeta struct {
	ID        string
	Title     string
	VideoURL  string
	Thumbnail string
}

// Scraper handles web scraping operations.
type Scraper struct {
	cookieManager *CookieManager
	timeout       time.Duration
	transport     http.RoundTripper
}

// New returns a new Scraper instance.
func New(cm *CookieManager) *Scraper {
	return &Scraper{
		cookieManager: cm,
		timeout:       consts.ScraperTimeout,
	}
}

// WithTransport sets the HTTP transport used by collectors.
func (s *Scraper) WithTransport(rt http.RoundTripper) *Scraper {
	s.transport = rt
	return s
}

// PageMeta scrapes the Open Graph tags of a page.
func (s *Scraper) PageMeta(ctx context.Context, urlStr string) (PageMeta, error) {
	collector, err := s.initializeCollector(ctx, urlStr)
	if err != nil {
		return PageMeta{}, err
	}

	var meta PageMeta
	collector.OnHTML("html", func(container *colly.HTMLElement) {
		doc := container.DOM

		meta.Title = extractTitle(doc)
		meta.VideoURL = extractMetaContent(doc, "og:video:url", "og:video", "og:url")
		meta.Thumbnail = extractMetaContent(doc, "og:image")
	})

	logger.Pl.D(2, "Scraping %q for metadata...", urlStr)
	if err := collector.Visit(urlStr); err != nil {
		return PageMeta{}, fmt.Errorf("failed to visit URL %q: %w", urlStr, err)
	}
	collector.Wait()

	if meta.Title == "" {
		return PageMeta{}, fmt.Errorf("no title found at %q", urlStr)
	}

	for _, candidate := range []string{meta.VideoURL, urlStr} {
		if id, ok := parsing.VideoIDFromURL(candidate); ok {
			meta.ID = id
			break
		}
	}
	return meta, nil
}

// initializeCollector initializes Colly with any cookies.
func (s *Scraper) initializeCollector(ctx context.Context, urlStr string) (*colly.Collector, error) {
	jar, err := s.cookieManager.Jar(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	collector := colly.NewCollector()
	collector.SetRequestTimeout(s.timeout)
	if s.transport != nil {
		collector.WithTransport(s.transport)
	}
	collector.SetCookieJar(jar)
	return collector, nil
}

// extractTitle prefers og:title, then the document title.
func extractTitle(doc *goquery.Selection) string {
	if title := extractMetaContent(doc, "og:title"); title != "" {
		logger.Pl.D(2, "Scraped title: %s", title)
		return title
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		logger.Pl.D(2, "Scraped document title: %s", title)
	} else {
		logger.Pl.D(1, "Title not found")
	}
	return title
}

// extractMetaContent returns the content of the first matching meta property.
func extractMetaContent(doc *goquery.Selection, properties ...string) string {
	for _, p := range properties {
		sel := doc.Find(fmt.Sprintf("meta[property=%q], meta[name=%q]", p, p)).First()
		if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
