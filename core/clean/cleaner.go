// Package clean implements the Cleaner interface: it drops boilerplate
// tags and every element left without visible text.
package clean

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplate lists the tags removed outright.
var boilerplate = []string{"script", "style", "noscript", "footer", "header", "nav", "aside"}

// keepEmpty are void elements that carry layout but no text.
var keepEmpty = map[string]bool{"br": true, "hr": true, "html": true, "head": true, "body": true}

// HTMLCleaner removes boilerplate and empty elements from a document.
type HTMLCleaner struct{}

// New creates an HTMLCleaner.
func New() *HTMLCleaner {
	return &HTMLCleaner{}
}

// Clean returns the cleaned document as HTML.
func (c *HTMLCleaner) Clean(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	doc.Find(strings.Join(boilerplate, ", ")).Remove()

	// Deepest elements first, so a parent emptied by its children's removal
	// is itself removed on the same pass.
	all := doc.Find("*")
	for i := all.Length() - 1; i >= 0; i-- {
		el := all.Eq(i)
		if keepEmpty[goquery.NodeName(el)] {
			continue
		}
		if strings.TrimSpace(el.Text()) == "" && el.Find("br, hr").Length() == 0 {
			el.Remove()
		}
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serializing HTML: %w", err)
	}
	return out, nil
}
