// Package feed parses RSS 2.0, RSS 1.0 (RDF) and Atom documents into a
// flat list of entries.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

// Entry is one item of a feed.
type Entry struct {
	Title   string
	Link    string
	Summary string
	Date    string
}

// Feed is a parsed feed document.
type Feed struct {
	Title   string
	Entries []Entry
}

type rssDoc struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	// RDF feeds put items next to the channel, not inside it.
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string `xml:"pubDate"`
	DCDate      string `xml:"http://purl.org/dc/elements/1.1/ date"`
}

type atomDoc struct {
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string     `xml:"title"`
	Links   []atomLink `xml:"link"`
	Summary string     `xml:"summary"`
	Content string     `xml:"content"`
	Publish string     `xml:"published"`
	Updated string     `xml:"updated"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// Parse decodes data as whichever feed format its root element names.
func Parse(data []byte) (*Feed, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, err
	}

	switch root {
	case "rss", "RDF":
		var doc rssDoc
		if err := decode(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing RSS: %w", err)
		}
		items := append(doc.Channel.Items, doc.Items...)
		f := &Feed{Title: strings.TrimSpace(doc.Channel.Title), Entries: make([]Entry, 0, len(items))}
		for _, it := range items {
			f.Entries = append(f.Entries, Entry{
				Title:   strings.TrimSpace(it.Title),
				Link:    strings.TrimSpace(it.Link),
				Summary: strings.TrimSpace(firstNonEmpty(it.Description, it.Encoded)),
				Date:    strings.TrimSpace(firstNonEmpty(it.PubDate, it.DCDate)),
			})
		}
		return f, nil

	case "feed":
		var doc atomDoc
		if err := decode(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing Atom: %w", err)
		}
		f := &Feed{Title: strings.TrimSpace(doc.Title), Entries: make([]Entry, 0, len(doc.Entries))}
		for _, e := range doc.Entries {
			f.Entries = append(f.Entries, Entry{
				Title:   strings.TrimSpace(e.Title),
				Link:    atomHref(e.Links),
				Summary: strings.TrimSpace(firstNonEmpty(e.Summary, e.Content)),
				Date:    strings.TrimSpace(firstNonEmpty(e.Publish, e.Updated)),
			})
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported feed root element <%s>", root)
}

// rootElement returns the local name of the first element in data.
func rootElement(data []byte) (string, error) {
	dec := newDecoder(data)
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("reading feed: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

func decode(data []byte, v any) error {
	return newDecoder(data).Decode(v)
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false
	return dec
}

// atomHref prefers the alternate link, then any link.
func atomHref(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
