package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/pagegate/core/fetch"
)

func TestScope_Admit(t *testing.T) {
	base, err := url.Parse("https://Example.com/docs/")
	require.NoError(t, err)
	sc := scope{host: "example.com", excludes: []string{"/private/**"}}

	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"guide", "https://example.com/docs/guide", true},
		{"/about/#team", "https://example.com/about", true},
		{"https://EXAMPLE.com/", "https://example.com/", true},
		{"https://example.com", "https://example.com/", true},
		{"https://example.com?lang=en", "https://example.com/?lang=en", true},
		{"https://other.com/a", "", false},
		{"/logo.PNG", "", false},
		{"mailto:x@example.com", "", false},
		{"javascript:void(0)", "", false},
		{"#top", "", false},
		{"/private/keys/a", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got, ok := sc.admit(base, tt.href)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrontier(t *testing.T) {
	f := newFrontier(3)
	assert.True(t, f.push("a"))
	assert.True(t, f.push("b"))
	assert.False(t, f.push("a"))

	u, ok := f.pop()
	require.True(t, ok)
	assert.Equal(t, "a", u)

	assert.True(t, f.push("c"))
	assert.True(t, f.full())
	assert.False(t, f.push("d"))
	assert.Equal(t, []string{"a", "b", "c"}, f.urls())
}

func TestCrawler_DiscoverAll_RootWithoutSlash(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			fmt.Fprint(w, `<p>leaf</p>`)
			return
		}
		fmt.Fprint(w, `<a href="/">home</a><a href="/docs">d</a>`)
	})
	mux.HandleFunc("/sitemap.xml", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	urls, err := New(fetch.New()).DiscoverAll(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/docs"}, urls)
}

func TestCrawler_DiscoverAll_Exclude(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			fmt.Fprint(w, `<p>leaf</p>`)
			return
		}
		fmt.Fprint(w, `<a href="/blog/2024/post">p</a><a href="/docs">d</a>`)
	})
	mux.HandleFunc("/sitemap.xml", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	urls, err := New(fetch.New(), WithExclude("/blog/**")).DiscoverAll(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/docs"}, urls)
}

func TestCrawler_DiscoverAll_Sitemap(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/docs/</loc></url>
  <url><loc>%[1]s/logo.png</loc></url>
  <url><loc>https://elsewhere.example/x</loc></url>
  <url><loc>%[1]s/about</loc></url>
</urlset>`, srv.URL)
	})

	urls, err := New(fetch.New()).DiscoverAll(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/docs", srv.URL + "/about"}, urls)
}

func TestCrawler_DiscoverAll_SitemapIndex(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<sitemapindex><sitemap><loc>%s/pages.xml</loc></sitemap></sitemapindex>`, srv.URL)
	})
	mux.HandleFunc("/pages.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%s/nested</loc></url></urlset>`, srv.URL)
	})

	urls, err := New(fetch.New()).DiscoverAll(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, urls, srv.URL+"/nested")
}

func TestCrawler_DiscoverAll_Links(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<a href="/a">a</a><a href="/b#frag">b</a><a href="mailto:x@y">m</a><a href="/img.jpg">i</a>`)
		case "/a":
			fmt.Fprint(w, `<a href="/c">c</a><a href="/">home</a>`)
		case "/b", "/c":
			fmt.Fprint(w, `<p>leaf</p>`)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	urls, err := New(fetch.New()).DiscoverAll(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}, urls)

	limited, err := New(fetch.New(), WithMaxPages(2)).DiscoverAll(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestCrawler_DiscoverAll_RelativeBase(t *testing.T) {
	_, err := New(fetch.New()).DiscoverAll(context.Background(), "/just/a/path")
	assert.Error(t, err)
}
