package capabilities

import (
	"context"

	"github.com/gaurav-prasanna/pagegate/core/capability"
)

const previewLength = 500

// DebugProxyInput is the input of the debug_proxy capability.
type DebugProxyInput struct {
	ScrapedHTML string `json:"scraped_html" jsonschema_description:"HTML passed through unchanged"`
}

// EchoInput is the input of the echo capability.
type EchoInput struct {
	Text string `json:"text" jsonschema_description:"Text to return"`
}

// NewDebugProxy logs what it receives and passes it through.
func NewDebugProxy(d Deps, _ NoOptions) capability.Capability {
	return capability.New("debug_proxy_tool",
		"Logs the scraped HTML it receives and returns it unchanged",
		func(_ context.Context, in DebugProxyInput) (map[string]any, error) {
			preview := []rune(in.ScrapedHTML)
			if len(preview) > previewLength {
				preview = preview[:previewLength]
			}
			d.Logger.Info().
				Int("length", len(in.ScrapedHTML)).
				Str("preview", string(preview)).
				Msg("debug proxy received html")
			return map[string]any{"scraped_html": in.ScrapedHTML}, nil
		})
}

// NewEcho returns its text input.
func NewEcho(_ Deps, _ NoOptions) capability.Capability {
	return capability.New("echo",
		"Returns the given text unchanged",
		func(_ context.Context, in EchoInput) (map[string]any, error) {
			return map[string]any{"text": in.Text}, nil
		})
}
