package extract

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/pagegate/core"
)

// defaultLanguage is assumed when a page declares none.
const defaultLanguage = "en"

// Metadata builds PageMetadata from the page URL and its raw HTML.
func Metadata(rawURL string, html string) core.PageMetadata {
	meta := core.PageMetadata{
		URL:       rawURL,
		Language:  defaultLanguage,
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		meta.Domain = parsed.Host
		meta.Path = parsed.Path
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}
	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if lang, ok := doc.Find("html").First().Attr("lang"); ok && strings.TrimSpace(lang) != "" {
		meta.Language = strings.TrimSpace(lang)
	}
	return meta
}
