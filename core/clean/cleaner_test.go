package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLCleaner_Clean(t *testing.T) {
	raw := `<html><head><script>var x = 1;</script><style>p{}</style></head>
<body>
  <header>Site</header>
  <nav><a href="/">Home</a></nav>
  <div><span></span><p>Keep me</p><div><em> </em></div></div>
  <p>Line<br>break</p>
  <hr>
  <aside>ads</aside>
  <footer>(c)</footer>
</body></html>`

	out, err := New().Clean(raw)
	require.NoError(t, err)

	assert.Contains(t, out, "<p>Keep me</p>")
	assert.Contains(t, out, "<br/>")
	assert.Contains(t, out, "<hr/>")
	for _, gone := range []string{"<script", "<style", "Site", "Home", "ads", "(c)", "<span>", "<em>"} {
		assert.NotContains(t, out, gone)
	}
}

func TestHTMLCleaner_Clean_Idempotent(t *testing.T) {
	c := New()
	once, err := c.Clean(`<div><p>a</p><p></p></div>`)
	require.NoError(t, err)
	twice, err := c.Clean(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}
