package capabilities

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/clean"
	"github.com/gaurav-prasanna/pagegate/core/extract"
	"github.com/gaurav-prasanna/pagegate/core/fetch"
	"github.com/gaurav-prasanna/pagegate/core/gateway"
	"github.com/gaurav-prasanna/pagegate/core/normalize"
	"github.com/gaurav-prasanna/pagegate/core/registry"
)

const samplePage = `<html><head><title>Rule Update</title><script>track()</script></head>
<body><nav>menu</nav><h1>New Capital Rule</h1><div></div>
<p>Banks must hold more capital. <a href="/rules/1">Read the rule</a></p>
<footer>contact</footer></body></html>`

const cleanedPage = `<html><body><h1>New Capital Rule</h1><p>Banks must hold more capital.</p></body></html>`

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Regulator News</title>
<item><title>First</title><link>https://reg.example/1</link><description>one</description><pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate></item>
<item><title>Second</title><link>https://reg.example/2</link><description>two</description></item>
</channel></rss>`

// completerFunc adapts a function to core.Completer.
type completerFunc func(ctx context.Context, p core.Prompt) (string, error)

func (f completerFunc) Complete(ctx context.Context, p core.Prompt) (string, error) {
	return f(ctx, p)
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *fakeEmbedder) Embed(_ context.Context, text string, _ string) ([]float64, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return []float64{float64(len(text)), 0.5}, nil
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><a href="/a">A</a><a href="/b">B</a><a href="https://elsewhere.example/">x</a></body></html>`))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/a">back</a></body></html>`))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newDeps(t *testing.T, completer core.Completer, embedder core.Embedder) Deps {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	return Deps{
		Store:          store,
		Fetcher:        fetch.New(),
		Cleaner:        clean.New(),
		Text:           extract.New(),
		Normalizer:     normalize.New(),
		Completer:      completer,
		Embedder:       embedder,
		Logger:         zerolog.Nop(),
		ChatModel:      "test-chat",
		EmbeddingModel: "test-embed",
	}
}

func newGateway(t *testing.T, d Deps) *gateway.Gateway {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(context.Background(), All(d)...))
	return gateway.New(reg)
}

func invoke(t *testing.T, g *gateway.Gateway, name string, input map[string]any) map[string]any {
	t.Helper()
	res := g.Invoke(context.Background(), gateway.Request{Capability: name, Input: input})
	require.True(t, res.OK(), "invoke %s: %v", name, res.Err())
	return res.Output()
}

func TestAll_RegistersEveryKind(t *testing.T) {
	g := newGateway(t, newDeps(t, nil, nil))
	assert.ElementsMatch(t, []string{
		"scraper_tool", "cleaner_tool", "html_extractor_tool", "formatter_tool",
		"rss_fetcher_tool", "summarizer_tool", "prompt_tool", "llm_exclusion_tool",
		"site_crawler_tool", "embedding_tool", "debug_proxy_tool", "echo",
	}, g.ListCapabilities())
}

func TestPipeline_ScrapeCleanExtractSummarize(t *testing.T) {
	site := newSite(t)
	var prompts []core.Prompt
	completer := completerFunc(func(_ context.Context, p core.Prompt) (string, error) {
		prompts = append(prompts, p)
		return "Banks need more capital.", nil
	})
	g := newGateway(t, newDeps(t, completer, nil))
	pageURL := site.URL + "/a"

	scraped := invoke(t, g, "scraper_tool", map[string]any{"url": pageURL})
	scrapedFile, err := artifact.PathFrom(scraped, "scraped_file")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(scrapedFile), "_scraped_")

	cleaned := invoke(t, g, "cleaner_tool", map[string]any{"url": pageURL, "scraped_file": scrapedFile})
	assert.NotContains(t, cleaned["cleaned_html"], "track()")
	assert.NotContains(t, cleaned["cleaned_html"], "menu")
	cleanedFile, err := artifact.PathFrom(cleaned, "cleaned_file")
	require.NoError(t, err)

	extracted := invoke(t, g, "html_extractor_tool", map[string]any{"url": pageURL, "cleaned_file": cleanedFile})
	assert.Contains(t, extracted["extracted_text"], "Banks must hold more capital.")
	assert.Equal(t, []string{site.URL + "/rules/1"}, extracted["extracted_links"])
	extractedFile, err := artifact.PathFrom(extracted, "extracted_file")
	require.NoError(t, err)

	summary := invoke(t, g, "summarizer_tool", map[string]any{"url": pageURL, "extracted_file": extractedFile})
	assert.Equal(t, "Banks need more capital.", summary["summary"])
	assert.Equal(t, pageURL, summary["source_url"])
	require.Len(t, prompts, 1)
	assert.Equal(t, "test-chat", prompts[0].Model)
	assert.InDelta(t, 0.3, prompts[0].Temperature, 1e-9)
	assert.Contains(t, prompts[0].User, "Banks must hold more capital.")
}

func TestScraper_InvalidURL(t *testing.T) {
	g := newGateway(t, newDeps(t, nil, nil))
	res := g.Invoke(context.Background(), gateway.Request{Capability: "scraper_tool", Input: map[string]any{"url": "not a url"}})
	require.False(t, res.OK())
	assert.Equal(t, core.KindExecution, res.Failure().Kind)
}

func TestCleaner_MissingInput(t *testing.T) {
	g := newGateway(t, newDeps(t, nil, nil))

	res := g.Invoke(context.Background(), gateway.Request{Capability: "cleaner_tool", Input: map[string]any{"url": "https://x.example"}})
	require.False(t, res.OK())
	assert.Equal(t, core.KindMissingInput, res.Failure().Kind)

	res = g.Invoke(context.Background(), gateway.Request{Capability: "cleaner_tool", Input: map[string]any{
		"url":          "https://x.example",
		"scraped_file": filepath.Join(t.TempDir(), "absent.html"),
	}})
	require.False(t, res.OK())
	assert.Equal(t, core.KindMissingInput, res.Failure().Kind)
}

func TestCleaner_InlineHTML(t *testing.T) {
	g := newGateway(t, newDeps(t, nil, nil))
	out := invoke(t, g, "cleaner_tool", map[string]any{"url": "https://x.example", "scraped_html": samplePage})
	assert.Contains(t, out["cleaned_html"], "New Capital Rule")
	assert.NotContains(t, out["cleaned_html"], "contact")
}

func TestFormatter_Formats(t *testing.T) {
	d := newDeps(t, nil, nil)
	ref, err := d.Store.Write("https://x.example/rule", "cleaned", ".html", []byte(cleanedPage), nil)
	require.NoError(t, err)
	g := newGateway(t, d)

	tests := []struct {
		format string
		ext    string
		prefix string
	}{
		{"pdf", ".pdf", "%PDF"},
		{"markdown", ".md", "# New Capital Rule"},
		{"json", ".json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out := invoke(t, g, "formatter_tool", map[string]any{
				"url":          "https://x.example/rule",
				"cleaned_file": ref.Path,
				"format":       tt.format,
			})
			path, err := artifact.PathFrom(out, "output_file")
			require.NoError(t, err)
			assert.Equal(t, tt.ext, filepath.Ext(path))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), tt.prefix), "got %.40q", data)
			if tt.format == "pdf" {
				assert.Equal(t, path, out["pdf_file"])
			} else {
				assert.NotContains(t, out, "pdf_file")
			}
		})
	}
}

func TestFormatter_DefaultsToPDF(t *testing.T) {
	d := newDeps(t, nil, nil)
	ref, err := d.Store.Write("https://x.example/rule", "cleaned", ".html", []byte(cleanedPage), nil)
	require.NoError(t, err)
	out := invoke(t, newGateway(t, d), "formatter_tool", map[string]any{"url": "https://x.example/rule", "cleaned_file": ref.Path})
	assert.Equal(t, ".pdf", filepath.Ext(out["output_file"].(string)))
}

func TestFormatter_UnknownFormat(t *testing.T) {
	d := newDeps(t, nil, nil)
	ref, err := d.Store.Write("https://x.example/rule", "cleaned", ".html", []byte(cleanedPage), nil)
	require.NoError(t, err)
	res := newGateway(t, d).Invoke(context.Background(), gateway.Request{Capability: "formatter_tool", Input: map[string]any{
		"url": "https://x.example/rule", "cleaned_file": ref.Path, "format": "docx",
	}})
	require.False(t, res.OK())
	assert.Equal(t, core.KindExecution, res.Failure().Kind)
}

func TestRSSFetcher(t *testing.T) {
	site := newSite(t)
	g := newGateway(t, newDeps(t, nil, nil))

	out := invoke(t, g, "rss_fetcher_tool", map[string]any{"url": site.URL + "/feed.xml"})
	assert.Equal(t, []string{"https://reg.example/1", "https://reg.example/2"}, out["extracted_links"])
	assert.Contains(t, out["extracted_text"], "Title: First")

	out = invoke(t, g, "rss_fetcher_tool", map[string]any{"url": site.URL + "/feed.xml", "max_entries": 1})
	assert.Equal(t, []string{"https://reg.example/1"}, out["extracted_links"])
}

func TestSummarizer_InputVariants(t *testing.T) {
	completer := completerFunc(func(_ context.Context, p core.Prompt) (string, error) { return "ok", nil })
	g := newGateway(t, newDeps(t, completer, nil))

	out := invoke(t, g, "summarizer_tool", map[string]any{"text": "t", "source_url": "https://a.example"})
	assert.Equal(t, "https://a.example", out["source_url"])
	out = invoke(t, g, "summarizer_tool", map[string]any{"extracted_text": "t", "url": "https://b.example"})
	assert.Equal(t, "https://b.example", out["source_url"])

	res := g.Invoke(context.Background(), gateway.Request{Capability: "summarizer_tool", Input: map[string]any{"text": "orphan"}})
	require.False(t, res.OK())
	assert.Equal(t, core.KindExecution, res.Failure().Kind)
}

func TestSummarizer_ManifestOptions(t *testing.T) {
	var got core.Prompt
	completer := completerFunc(func(_ context.Context, p core.Prompt) (string, error) {
		got = p
		return "ok", nil
	})
	c, err := Catalog(newDeps(t, completer, nil))[KindSummarizer](registry.Spec{
		Kind:    KindSummarizer,
		Options: map[string]any{"model": "gpt-x", "temperature": 0, "instructions": "Be brief."},
	})
	require.NoError(t, err)
	_, err = c.Execute(context.Background(), map[string]any{"text": "body", "source_url": "https://a.example"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-x", got.Model)
	assert.Zero(t, got.Temperature)
	assert.True(t, strings.HasPrefix(got.User, "Be brief."))
}

func TestCatalog_RejectsUnknownOption(t *testing.T) {
	_, err := Catalog(newDeps(t, nil, nil))[KindPrompt](registry.Spec{
		Kind:    KindPrompt,
		Options: map[string]any{"modle": "typo"},
	})
	require.Error(t, err)
}

func TestPrompt(t *testing.T) {
	completer := completerFunc(func(_ context.Context, p core.Prompt) (string, error) {
		return "answer to " + strings.SplitN(p.User, "\n", 2)[0], nil
	})
	g := newGateway(t, newDeps(t, completer, nil))
	out := invoke(t, g, "prompt_tool", map[string]any{
		"url": "https://a.example", "full_text": "body", "custom_prompt": "List the dates",
	})
	assert.Equal(t, "answer to List the dates", out["llm_response"])
	data, err := os.ReadFile(out["output_file"].(string))
	require.NoError(t, err)
	assert.Contains(t, string(data), "### Prompt:\nList the dates")
}

func TestPrompt_ModelErrorSurfaces(t *testing.T) {
	completer := completerFunc(func(context.Context, core.Prompt) (string, error) { return "", errors.New("quota exceeded") })
	g := newGateway(t, newDeps(t, completer, nil))
	res := g.Invoke(context.Background(), gateway.Request{Capability: "prompt_tool", Input: map[string]any{
		"url": "https://a.example", "full_text": "body", "custom_prompt": "p",
	}})
	require.False(t, res.OK())
	assert.Equal(t, core.KindExecution, res.Failure().Kind)
	assert.Contains(t, res.Failure().Message, "quota exceeded")
}

func TestLLMCapabilities_NoCompleter(t *testing.T) {
	g := newGateway(t, newDeps(t, nil, nil))
	res := g.Invoke(context.Background(), gateway.Request{Capability: "prompt_tool", Input: map[string]any{
		"url": "https://a.example", "full_text": "body", "custom_prompt": "p",
	}})
	require.False(t, res.OK())
	assert.Contains(t, res.Failure().Message, "no language model configured")
}

func TestClassifier(t *testing.T) {
	completer := completerFunc(func(_ context.Context, p core.Prompt) (string, error) {
		assert.Equal(t, "You are a compliance content classifier.", p.System)
		switch {
		case strings.Contains(p.User, "Topic: Capital"):
			return "Sure:\n{\"recommendation\": \"Include\", \"reason\": \"affects banks\"}\n", nil
		case strings.Contains(p.User, "Topic: Picnic"):
			return `{"recommendation": "exclude", "reason": "social event"}`, nil
		default:
			return "no idea", nil
		}
	})
	d := newDeps(t, completer, nil)
	input := "topic,additional_context,regulator,link\n" +
		"Capital rule,new buffers,FED,https://fed.example/1\n" +
		"Picnic,annual picnic,OCC,https://occ.example/2\n" +
		"Mystery,,FDIC,not-a-link\n"
	ref, err := d.Store.Write("https://reg.example", "extracted", ".csv", []byte(input), nil)
	require.NoError(t, err)

	out := invoke(t, newGateway(t, d), "llm_exclusion_tool", map[string]any{"url": "https://reg.example", "extracted_file": ref.Path})
	assert.EqualValues(t, 1, out["included"])
	assert.EqualValues(t, 2, out["excluded"])

	f, err := os.Open(out["exclusion_file"].(string))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"topic", "additional_context", "regulator", "Recommendation", "Reason", "Link", "action"}, records[0])
	assert.Equal(t, []string{"Capital rule", "new buffers", "FED", "Include", "affects banks", "https://fed.example/1", ""}, records[1])
	assert.Equal(t, "Exclude", records[2][3])
	assert.Equal(t, "Exclude", records[3][3])
	assert.Contains(t, records[3][4], "LLM error or invalid output")
	assert.Empty(t, records[3][5])
}

func TestClassifier_MissingColumns(t *testing.T) {
	d := newDeps(t, completerFunc(func(context.Context, core.Prompt) (string, error) { return "{}", nil }), nil)
	ref, err := d.Store.Write("https://reg.example", "extracted", ".csv", []byte("topic,link\nx,y\n"), nil)
	require.NoError(t, err)
	res := newGateway(t, d).Invoke(context.Background(), gateway.Request{Capability: "llm_exclusion_tool", Input: map[string]any{
		"url": "https://reg.example", "extracted_file": ref.Path,
	}})
	require.False(t, res.OK())
	assert.Contains(t, res.Failure().Message, "additional_context, regulator")
}

func TestParseVerdict(t *testing.T) {
	v, err := parseVerdict(`prefix {"recommendation":"INCLUDE"} suffix`)
	require.NoError(t, err)
	assert.Equal(t, verdict{Recommendation: "Include", Reason: "No reason provided"}, v)

	_, err = parseVerdict("plain text")
	require.Error(t, err)
}

func TestCrawler(t *testing.T) {
	site := newSite(t)
	g := newGateway(t, newDeps(t, nil, nil))

	out := invoke(t, g, "site_crawler_tool", map[string]any{"url": site.URL + "/"})
	urls, ok := out["urls"].([]string)
	require.True(t, ok)
	assert.Equal(t, site.URL+"/", urls[0])
	assert.Contains(t, urls, site.URL+"/a")
	assert.Contains(t, urls, site.URL+"/b")
	for _, u := range urls {
		assert.True(t, strings.HasPrefix(u, site.URL), u)
	}

	out = invoke(t, g, "site_crawler_tool", map[string]any{"url": site.URL + "/", "max_pages": 1})
	assert.Len(t, out["urls"], 1)

	out = invoke(t, g, "site_crawler_tool", map[string]any{"url": site.URL + "/", "exclude": "/a, /feed.xml"})
	assert.NotContains(t, out["urls"], site.URL+"/a")
	assert.Contains(t, out["urls"], site.URL+"/b")
}

func TestEmbedder(t *testing.T) {
	emb := &fakeEmbedder{}
	d := newDeps(t, nil, emb)
	ref, err := d.Store.Write("https://x.example", "extracted", ".txt", []byte("# Title\n\nSome text to embed.\n"), nil)
	require.NoError(t, err)

	out := invoke(t, newGateway(t, d), "embedding_tool", map[string]any{"url": "https://x.example", "extracted_file": ref.Path})
	assert.EqualValues(t, 1, out["chunks"])
	assert.Equal(t, 1, emb.calls)
	path := out["embeddings_file"].(string)
	assert.True(t, strings.HasSuffix(path, ".embeddings.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# model: test-embed")
}

func TestDebugProxyAndEcho(t *testing.T) {
	g := newGateway(t, newDeps(t, nil, nil))
	out := invoke(t, g, "debug_proxy_tool", map[string]any{"scraped_html": "<p>x</p>"})
	assert.Equal(t, "<p>x</p>", out["scraped_html"])
	out = invoke(t, g, "echo", map[string]any{"text": "hello"})
	assert.Equal(t, map[string]any{"text": "hello"}, out)
}

func TestManifestDiscovery(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("web.yaml", `api_version: "1.0"
capabilities:
  - kind: scraper
  - kind: formatter
    name: markdown_formatter
    description: Renders cleaned pages as Markdown
    options:
      header: true
`)
	write("llm.yml", `api_version: "1.2"
capabilities:
  - kind: echo
`)
	write("broken.yaml", "api_version: [\n")
	write("future.yaml", "api_version: \"2.0\"\ncapabilities:\n  - kind: echo\n")
	write("unknown.yaml", "api_version: \"1.0\"\ncapabilities:\n  - kind: teleporter\n")
	write("notes.txt", "ignored")

	disc, err := registry.NewManifestDiscoverer(Catalog(newDeps(t, nil, nil)))
	require.NoError(t, err)
	reg := registry.New()
	snap, err := reg.Load(context.Background(), disc, dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"echo", "scraper_tool", "markdown_formatter"}, snap.Names())
	assert.Len(t, snap.Skipped(), 3)
	desc, err := gateway.New(reg).GetContract("markdown_formatter")
	require.NoError(t, err)
	assert.Equal(t, "Renders cleaned pages as Markdown", desc.Description)

	again, err := disc.Discover(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, snap.Names(), again.Names())
}
