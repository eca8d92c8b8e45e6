package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/pagegate/core/gateway"
)

var flagInput string

var invokeCmd = &cobra.Command{
	Use:   "invoke <name>",
	Short: "Invoke a capability once and print its result",
	Long: `Invoke validates the input against the capability's contract, runs it and
prints the result as JSON. Input is a JSON object, or @path to read it from a file.

Examples:
  pagegate invoke scraper_tool --input '{"url":"https://example.com"}'
  pagegate invoke summarizer_tool --input @request.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(invokeCmd)
	invokeCmd.Flags().StringVarP(&flagInput, "input", "i", "{}", "input object as JSON, or @file")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	input, err := parseInput(flagInput)
	if err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	res := a.gateway.Invoke(cmd.Context(), gateway.Request{Capability: args[0], Input: input})
	if err := printJSON(cmd, res); err != nil {
		return err
	}
	return res.Err()
}

// parseInput decodes a JSON object given inline or as @path.
func parseInput(raw string) (map[string]any, error) {
	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		data = b
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("input must be a JSON object: %w", err)
	}
	return input, nil
}
