package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>T</title><style>.x{}</style></head>
<body>
  <nav><a href="/menu">Menu</a></nav>
  <main>
    <h1>Rules</h1>
    <p>Read the <a href="/docs/guide">guide</a> first.</p>
    <p>Also see <a href="https://other.example/x">other</a>.</p>
    <img src="a.png">
  </main>
  <footer>bye</footer>
</body></html>`

func TestHTMLExtractor_Extract(t *testing.T) {
	out, err := New().Extract(page)
	require.NoError(t, err)

	assert.Contains(t, out, "<main>")
	assert.Contains(t, out, "Rules")
	assert.NotContains(t, out, "Menu")
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "bye")
}

func TestHTMLExtractor_ExtractText(t *testing.T) {
	vt, err := New().ExtractText(page, "https://example.com/start")
	require.NoError(t, err)

	assert.Equal(t,
		"Rules Read the guide (https://example.com/docs/guide) first. Also see other (https://other.example/x) .",
		vt.Text)
	assert.Equal(t, []string{"https://example.com/docs/guide", "https://other.example/x"}, vt.Links)
}

func TestHTMLExtractor_ExtractText_NoLinks(t *testing.T) {
	vt, err := New().ExtractText("<p>plain</p>", "")
	require.NoError(t, err)
	assert.Equal(t, "plain", vt.Text)
	assert.NotNil(t, vt.Links)
	assert.Empty(t, vt.Links)
}

func TestHTMLExtractor_ExtractText_Empty(t *testing.T) {
	_, err := New().ExtractText("   ", "https://example.com")
	assert.Error(t, err)
}

func TestMetadata(t *testing.T) {
	meta := Metadata("https://example.com/docs/a", `<html lang="fr"><head><title> Bonjour </title></head><body></body></html>`)
	assert.Equal(t, "example.com", meta.Domain)
	assert.Equal(t, "/docs/a", meta.Path)
	assert.Equal(t, "Bonjour", meta.Title)
	assert.Equal(t, "fr", meta.Language)
	assert.NotEmpty(t, meta.FetchedAt)

	assert.Equal(t, "en", Metadata("https://example.com", "<p>x</p>").Language)
}
