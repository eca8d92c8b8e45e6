package render

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/pagegate/core"
)

var (
	headingLine     = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	tableSeparator  = regexp.MustCompile(`^\|[-:| ]+\|$`)
	listItemLine    = regexp.MustCompile(`^\s*(?:[-*]|\d+\.)\s`)
	markdownLink    = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	emphasisMarks   = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	inlineCodeRegex = regexp.MustCompile("`([^`]+)`")
	blankRunRegex   = regexp.MustCompile(`\n{3,}`)
)

// JSONRenderer describes a Markdown document as a core.PageJSON: plain text,
// heading-delimited sections and a structural summary. Headings and list
// items inside fenced code are not counted.
type JSONRenderer struct{}

func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

func (r *JSONRenderer) Render(_ context.Context, markdown string, meta core.PageMetadata) ([]byte, error) {
	s := scanMarkdown(markdown)
	page := core.PageJSON{
		Metadata: meta,
		Content: core.PageContent{
			Text:     plainText(markdown),
			Markdown: markdown,
			Sections: s.sections,
		},
		Structure: core.PageStructure{
			Headings:   s.headings,
			Links:      s.links,
			CodeBlocks: s.codeBlocks,
			Tables:     s.tables,
			Lists:      s.listItems,
		},
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

func (r *JSONRenderer) Extension() string {
	return ".json"
}

type markdownScan struct {
	headings   []core.Heading
	links      []core.Link
	sections   []core.Section
	codeBlocks int
	tables     int
	listItems  int
}

func scanMarkdown(md string) markdownScan {
	s := markdownScan{
		headings: []core.Heading{},
		links:    []core.Link{},
	}

	var (
		current *core.Section
		body    []string
		inFence bool
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(body, "\n"))
		s.sections = append(s.sections, *current)
		body = nil
	}

	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if !inFence {
				s.codeBlocks++
			}
			inFence = !inFence
			body = append(body, line)
			continue
		}
		if inFence {
			body = append(body, line)
			continue
		}

		if m := headingLine.FindStringSubmatch(line); m != nil {
			h := core.Heading{Level: len(m[1]), Text: strings.TrimSpace(m[2])}
			s.headings = append(s.headings, h)
			flush()
			current = &core.Section{Heading: h.Text, Level: h.Level}
			continue
		}

		for _, m := range markdownLink.FindAllStringSubmatch(line, -1) {
			s.links = append(s.links, core.Link{Text: m[1], Href: m[2]})
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case tableSeparator.MatchString(trimmed):
			s.tables++
		case listItemLine.MatchString(line):
			s.listItems++
		}
		body = append(body, line)
	}
	flush()
	return s
}

func plainText(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		if m := headingLine.FindStringSubmatch(line); m != nil {
			lines[i] = m[2]
		}
	}
	text := strings.Join(lines, "\n")
	text = emphasisMarks.ReplaceAllString(text, "$1")
	text = markdownLink.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "```", "")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = blankRunRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
