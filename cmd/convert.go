// Convert command.
// Chains scraper, cleaner and formatter (plus embedder for --embeddings)
// through the gateway by artifact path, then exports the final artifact
// under a stable name. Handles the --only and --all modes.

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/pagegate/core/artifact"
	"github.com/gaurav-prasanna/pagegate/core/gateway"
	"github.com/gaurav-prasanna/pagegate/crawl"
)

// Flag variables.
var (
	flagOnly        bool
	flagAll         bool
	flagPDF         bool
	flagMarkdown    bool
	flagJSON        bool
	flagEmbeddings  bool
	flagModel       string
	flagChunkSize   int
	flagOutputDir   string
	flagMaxPages    int
	flagConcurrency int
)

var convertCmd = &cobra.Command{
	Use:   "convert <url>",
	Short: "Convert a URL to the specified output format",
	Long: `Convert runs a page through the scraper, cleaner and formatter capabilities
and writes the result in the specified output format (PDF, Markdown, JSON, or
Embeddings). Intermediate artifacts stay in the artifacts directory.

Examples:
  pagegate convert https://example.com --markdown
  pagegate convert https://example.com --json --output_dir ./out
  pagegate convert https://example.com --all --pdf
  pagegate convert https://example.com --embeddings --model nomic-embed-text`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	// Mode flags.
	convertCmd.Flags().BoolVar(&flagOnly, "only", false, "Convert only the given URL (default)")
	convertCmd.Flags().BoolVar(&flagAll, "all", false, "Convert all discovered sub-pages")

	// Output format flags (mutually exclusive).
	convertCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")
	convertCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown")
	convertCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")
	convertCmd.Flags().BoolVar(&flagEmbeddings, "embeddings", false, "Output embeddings")

	// Embedding-specific flags.
	convertCmd.Flags().StringVar(&flagModel, "model", "", "Embedding model (default from embeddings.model)")
	convertCmd.Flags().IntVar(&flagChunkSize, "chunk_size", 512, "Token chunk size for embeddings")

	// Whole-site flags.
	convertCmd.Flags().IntVar(&flagMaxPages, "max_pages", crawl.DefaultMaxPages, "Maximum pages to convert with --all")
	convertCmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "Pages converted in parallel with --all")

	// Output directory.
	convertCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
}

// convertOptions is the validated form of the convert flags.
type convertOptions struct {
	Format      string
	Model       string
	ChunkSize   int
	MaxPages    int
	Concurrency int
}

// Extension returns the exported file extension for the format.
func (o convertOptions) Extension() string {
	switch o.Format {
	case "markdown":
		return ".md"
	case "json":
		return ".json"
	case "embeddings":
		return ".embeddings.txt"
	}
	return ".pdf"
}

func runConvert(cmd *cobra.Command, args []string) error {
	rawURL := args[0]

	// --- Validate flags ---
	opts, err := validateFlags()
	if err != nil {
		return err
	}

	// Validate URL.
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://example.com)", rawURL)
	}

	exporter, err := artifact.NewExporter(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing exporter: %w", err)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	if err := a.load(cmd.Context(), true); err != nil {
		return err
	}

	c := &converter{gateway: a.gateway, exporter: exporter, opts: opts, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	if flagAll {
		return c.runAll(cmd.Context(), rawURL)
	}
	return c.runOnly(cmd.Context(), rawURL)
}

// converter chains capabilities for one or many pages.
type converter struct {
	gateway  *gateway.Gateway
	exporter *artifact.Exporter
	opts     convertOptions

	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

// runOnly processes a single URL through the pipeline.
func (c *converter) runOnly(ctx context.Context, rawURL string) error {
	data, err := c.processURL(ctx, rawURL)
	if err != nil {
		return err
	}
	path, err := c.exporter.Flat(rawURL, data, c.opts.Extension())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "✓ Written: %s\n", path)
	return nil
}

// runAll discovers all internal pages and processes them in parallel. A
// failed page is reported and does not stop the others.
func (c *converter) runAll(ctx context.Context, rawURL string) error {
	fmt.Fprintf(c.out, "Discovering pages from %s...\n", rawURL)

	out, err := c.call(ctx, "site_crawler_tool", map[string]any{"url": rawURL, "max_pages": c.opts.MaxPages})
	if err != nil {
		return fmt.Errorf("discovering pages: %w", err)
	}
	urls, _ := out["urls"].([]string)
	fmt.Fprintf(c.out, "Found %d pages to process\n", len(urls))

	var (
		g        errgroup.Group
		errCount int
	)
	g.SetLimit(max(c.opts.Concurrency, 1))
	for i, pageURL := range urls {
		g.Go(func() error {
			data, err := c.processURL(ctx, pageURL)
			var path string
			if err == nil {
				path, err = c.exporter.Mirror(pageURL, data, c.opts.Extension())
			}

			c.mu.Lock()
			defer c.mu.Unlock()
			fmt.Fprintf(c.out, "[%d/%d] %s\n", i+1, len(urls), pageURL)
			if err != nil {
				fmt.Fprintf(c.errOut, "  ✗ Error: %v\n", err)
				errCount++
				return nil
			}
			fmt.Fprintf(c.out, "  ✓ Written: %s\n", path)
			return nil
		})
	}
	_ = g.Wait()

	if errCount > 0 {
		fmt.Fprintf(c.errOut, "\n%d/%d pages failed\n", errCount, len(urls))
	}
	return ctx.Err()
}

// processURL runs one page through the capability chain and returns the
// content of the final artifact.
func (c *converter) processURL(ctx context.Context, rawURL string) ([]byte, error) {
	// 1. Scrape
	scraped, err := c.call(ctx, "scraper_tool", map[string]any{"url": rawURL})
	if err != nil {
		return nil, err
	}
	scrapedFile, err := artifact.PathFrom(scraped, "scraped_file")
	if err != nil {
		return nil, fmt.Errorf("scrape: %w", err)
	}

	// 2. Clean
	cleaned, err := c.call(ctx, "cleaner_tool", map[string]any{"url": rawURL, "scraped_file": scrapedFile})
	if err != nil {
		return nil, err
	}
	cleanedFile, err := artifact.PathFrom(cleaned, "cleaned_file")
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	// 3. Format; embeddings are computed from the Markdown rendering.
	format := c.opts.Format
	if format == "embeddings" {
		format = "markdown"
	}
	formatted, err := c.call(ctx, "formatter_tool", map[string]any{"url": rawURL, "cleaned_file": cleanedFile, "format": format})
	if err != nil {
		return nil, err
	}
	final, err := artifact.PathFrom(formatted, "output_file")
	if err != nil {
		return nil, fmt.Errorf("format: %w", err)
	}

	// 4. Embed
	if c.opts.Format == "embeddings" {
		embedded, err := c.call(ctx, "embedding_tool", map[string]any{
			"url":            rawURL,
			"extracted_file": final,
			"model":          c.opts.Model,
			"chunk_size":     c.opts.ChunkSize,
		})
		if err != nil {
			return nil, err
		}
		if final, err = artifact.PathFrom(embedded, "embeddings_file"); err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
	}

	return artifact.Read(final)
}

// call invokes one capability and turns a failure into an error naming it.
func (c *converter) call(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	res := c.gateway.Invoke(ctx, gateway.Request{Capability: name, Input: input})
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return res.Output(), nil
}

// validateFlags checks that exactly one output format is chosen and
// that --only and --all are not both specified.
func validateFlags() (convertOptions, error) {
	opts := convertOptions{
		Model:       flagModel,
		ChunkSize:   flagChunkSize,
		MaxPages:    flagMaxPages,
		Concurrency: flagConcurrency,
	}

	// Check mutually exclusive mode flags.
	if flagOnly && flagAll {
		return opts, fmt.Errorf("--only and --all are mutually exclusive")
	}

	// Count output formats.
	var formats []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{flagPDF, "pdf"},
		{flagMarkdown, "markdown"},
		{flagJSON, "json"},
		{flagEmbeddings, "embeddings"},
	} {
		if f.set {
			formats = append(formats, f.name)
		}
	}

	if len(formats) == 0 {
		return opts, fmt.Errorf("exactly one output format is required: --pdf, --markdown, --json, or --embeddings")
	}
	if len(formats) > 1 {
		return opts, fmt.Errorf("only one output format allowed per run (got %d)", len(formats))
	}
	opts.Format = formats[0]

	if opts.ChunkSize <= 0 {
		return opts, fmt.Errorf("--chunk_size must be positive")
	}
	if opts.MaxPages <= 0 {
		return opts, fmt.Errorf("--max_pages must be positive")
	}
	return opts, nil
}
