// Package capabilities holds the concrete capabilities served by the
// gateway and the catalog that maps manifest kinds to them.
//
// Every capability that produces a file writes it through an artifact.Store
// and reports both a flat "<stage>_file" path and an "artifact" reference,
// so the next stage can be chained by path alone.
package capabilities

import (
	"fmt"
	"net/url"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/capability"
	"github.com/gaurav-prasanna/pagegate/core/registry"
)

// Manifest kinds understood by Catalog.
const (
	KindScraper    = "scraper"
	KindCleaner    = "cleaner"
	KindExtractor  = "html_extractor"
	KindFormatter  = "formatter"
	KindRSS        = "rss_fetcher"
	KindSummarizer = "summarizer"
	KindPrompt     = "prompt"
	KindClassifier = "classifier"
	KindCrawler    = "crawler"
	KindEmbedder   = "embedder"
	KindDebugProxy = "debug_proxy"
	KindEcho       = "echo"
)

// Deps are the stage implementations and stores capabilities are built on.
type Deps struct {
	Store      *artifact.Store
	Fetcher    core.Fetcher
	Cleaner    core.Cleaner
	Text       core.TextExtractor
	Normalizer core.Normalizer
	Completer  core.Completer
	Embedder   core.Embedder
	Logger     zerolog.Logger

	// ChatModel and EmbeddingModel are used when neither the manifest nor
	// the call names a model.
	ChatModel      string
	EmbeddingModel string
}

// Catalog returns the factories for every kind, bound to d.
func Catalog(d Deps) registry.Catalog {
	return registry.Catalog{
		KindScraper:    factory(d, NewScraper),
		KindCleaner:    factory(d, NewCleaner),
		KindExtractor:  factory(d, NewHTMLExtractor),
		KindFormatter:  factory(d, NewFormatter),
		KindRSS:        factory(d, NewRSSFetcher),
		KindSummarizer: factory(d, NewSummarizer),
		KindPrompt:     factory(d, NewPrompt),
		KindClassifier: factory(d, NewClassifier),
		KindCrawler:    factory(d, NewCrawler),
		KindEmbedder:   factory(d, NewEmbedder),
		KindDebugProxy: factory(d, NewDebugProxy),
		KindEcho:       factory(d, NewEcho),
	}
}

// All builds every capability with default options, in catalog kind order.
func All(d Deps) []capability.Capability {
	cat := Catalog(d)
	caps := make([]capability.Capability, 0, len(cat))
	for _, kind := range cat.Kinds() {
		c, err := cat[kind](registry.Spec{Kind: kind})
		if err != nil {
			continue
		}
		caps = append(caps, c)
	}
	return caps
}

func factory[O any](d Deps, build func(Deps, O) capability.Capability) registry.Factory {
	return func(spec registry.Spec) (capability.Capability, error) {
		var opts O
		if err := decodeOptions(spec.Options, &opts); err != nil {
			return nil, err
		}
		return build(d, opts), nil
	}
}

// decodeOptions decodes manifest options strictly: unknown keys are errors.
func decodeOptions(options map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("decoding options: %w", err)
	}
	return nil
}

// NoOptions is the option set of capabilities that take none.
type NoOptions struct{}

// requireURL checks that raw is an absolute http(s) URL.
func requireURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q: must be absolute http(s)", raw)
	}
	return nil
}

// withArtifact records ref in out under key and as the "artifact" reference.
func withArtifact(out map[string]any, key string, ref artifact.Ref) map[string]any {
	out[key] = ref.Path
	out["artifact"] = ref.Map()
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
