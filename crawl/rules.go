package crawl

import (
	"net/url"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var skippedExtensions = map[string]struct{}{}

func init() {
	for _, ext := range strings.Fields(`
		.png .jpg .jpeg .gif .svg .webp .ico .bmp
		.css .js .mjs .woff .woff2 .ttf .eot
		.mp4 .webm .mp3 .wav .zip .tar .gz
		.pdf .doc .docx .xls .xlsx`) {
		skippedExtensions[ext] = struct{}{}
	}
}

// scope decides which discovered links belong to a crawl: same host, not a
// static asset and not matching an exclude pattern.
type scope struct {
	host     string
	excludes []string
}

// admit resolves href against base and returns its canonical form when it
// is in scope.
func (s scope) admit(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(u.Host, s.host) {
		return "", false
	}
	if _, skip := skippedExtensions[strings.ToLower(path.Ext(u.Path))]; skip {
		return "", false
	}
	for _, pattern := range s.excludes {
		if ok, _ := doublestar.Match(pattern, u.Path); ok {
			return "", false
		}
	}
	return canonical(u), true
}

// canonical drops the fragment and a trailing slash and lowercases the host.
// The site root is always "/".
func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Host = strings.ToLower(c.Host)
	c.RawPath = ""
	if c.Path = strings.TrimSuffix(c.Path, "/"); c.Path == "" {
		c.Path = "/"
	}
	return c.String()
}
