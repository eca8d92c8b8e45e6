// Package extract implements the Extractor and TextExtractor interfaces.
// Extract isolates the main content from a full HTML page by:
//  1. Removing noise elements (nav, footer, scripts, images, etc.)
//  2. Finding the best content container (<main>, <article>, or <body>)
//
// ExtractText flattens a page into its visible text in reading order, with
// every anchor rendered inline as "text (absolute-href)".
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/pagegate/core"
)

// noiseSelectors are HTML elements removed before extraction.
// These contribute no meaningful content to the page text.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header", "aside",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

// textNoise is the smaller set dropped before visible-text extraction.
var textNoise = "script, style, noscript, footer, header, nav, aside"

// HTMLExtractor strips noise from HTML and returns the main content fragment.
type HTMLExtractor struct{}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract takes raw HTML and returns a cleaned HTML fragment containing
// only the main content. Images are excluded.
func (e *HTMLExtractor) Extract(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	// Remove noise elements first (operates on the whole document).
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}

	if content == nil {
		return "", fmt.Errorf("no content container found in HTML")
	}

	result, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}

	return result, nil
}

// ExtractText returns the visible text of raw and the absolute URLs of its
// links, in document order. Relative hrefs are resolved against baseURL.
func (e *HTMLExtractor) ExtractText(raw string, baseURL string) (*core.VisibleText, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("document is empty")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find(textNoise).Remove()

	base, _ := url.Parse(baseURL)

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}

	var (
		parts []string
		links []string
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		case html.ElementNode:
			if n.Data == "a" {
				a := goquery.NewDocumentFromNode(n).Selection
				if href, ok := a.Attr("href"); ok && href != "" {
					abs := resolve(base, href)
					if text := strings.TrimSpace(a.Text()); text != "" {
						parts = append(parts, fmt.Sprintf("%s (%s)", text, abs))
						links = append(links, abs)
					}
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}

	if links == nil {
		links = []string{}
	}
	return &core.VisibleText{Text: strings.Join(parts, " "), Links: links}, nil
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
