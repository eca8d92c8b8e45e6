package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/pagegate/core"
)

const sample = "# Guide\n\nIntro with a [link](https://example.com/a).\n\n## Steps\n\n- first\n- second\n\n```\ncode\n```\n"

var meta = core.PageMetadata{URL: "https://example.com/guide", Domain: "example.com", Title: "Guide"}

func TestJSONRenderer_Render(t *testing.T) {
	data, err := NewJSONRenderer().Render(context.Background(), sample, meta)
	require.NoError(t, err)

	var page core.PageJSON
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Equal(t, meta, page.Metadata)
	require.Len(t, page.Structure.Headings, 2)
	assert.Equal(t, core.Heading{Level: 2, Text: "Steps"}, page.Structure.Headings[1])
	assert.Equal(t, []core.Link{{Text: "link", Href: "https://example.com/a"}}, page.Structure.Links)
	assert.Equal(t, 1, page.Structure.CodeBlocks)
	assert.Equal(t, 2, page.Structure.Lists)
	require.Len(t, page.Content.Sections, 2)
	assert.Equal(t, "Guide", page.Content.Sections[0].Heading)
	assert.NotContains(t, page.Content.Text, "](")
}

func TestMarkdownRenderer_Render(t *testing.T) {
	data, err := NewMarkdownRenderer().Render(context.Background(), sample, meta)
	require.NoError(t, err)
	assert.Equal(t, sample, string(data))

	data, err = (&MarkdownRenderer{Header: true}).Render(context.Background(), sample, meta)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Source: <https://example.com/guide>"))
}

func TestPDFRenderer_Render(t *testing.T) {
	data, err := NewPDFRenderer().Render(context.Background(), sample+"\nCafé – naïve\n", meta)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestPDFRenderer_Render_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPDFRenderer().Render(ctx, sample, meta)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text, model string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float64{float64(len(strings.Fields(text))), 0.5}, nil
}

func TestEmbeddingsRenderer_Render(t *testing.T) {
	emb := &fakeEmbedder{}
	r := NewEmbeddingsRenderer(emb, "nomic-embed-text", 2)

	data, err := r.Render(context.Background(), "one two three", meta)
	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)
	assert.Equal(t, 2, r.Chunks("one two three"))

	out := string(data)
	assert.Contains(t, out, "# model: nomic-embed-text")
	assert.Contains(t, out, "--- chunk 2 ---\nTEXT:\nthree")
	assert.Contains(t, out, "[2.0000, 0.5000]")
}

func TestEmbeddingsRenderer_Render_Errors(t *testing.T) {
	_, err := NewEmbeddingsRenderer(&fakeEmbedder{}, "m", 0).Render(context.Background(), "  ", meta)
	assert.Error(t, err)

	_, err = NewEmbeddingsRenderer(&fakeEmbedder{err: errors.New("down")}, "m", 0).Render(context.Background(), "text", meta)
	assert.ErrorContains(t, err, "embedding chunk 1")
}

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{"pdf": ".pdf", "markdown": ".md", "md": ".md", "json": ".json"} {
		r, err := ForFormat(format)
		require.NoError(t, err, format)
		assert.Equal(t, ext, r.Extension())
	}
	_, err := ForFormat("docx")
	assert.Error(t, err)
}
