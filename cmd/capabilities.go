package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var flagListJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered capabilities in registration order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		names := a.gateway.ListCapabilities()
		if flagListJSON {
			return printJSON(cmd, names)
		}
		for _, name := range names {
			d, err := a.gateway.GetContract(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", name, d.Description)
		}
		return nil
	},
}

var flagSchema bool

var contractCmd = &cobra.Command{
	Use:   "contract <name>",
	Short: "Print the contract of a capability",
	Long: `Contract prints the descriptor of a capability: its name, description and
input fields. With --schema the full JSON Schema of the input is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		if flagSchema {
			s, err := a.gateway.Schema(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		}
		d, err := a.gateway.GetContract(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	},
}

func init() {
	rootCmd.AddCommand(listCmd, contractCmd)
	listCmd.Flags().BoolVar(&flagListJSON, "json", false, "print names as a JSON array")
	contractCmd.Flags().BoolVar(&flagSchema, "schema", false, "print the JSON Schema of the input")
}

// loadApp builds the app and populates its registry.
func loadApp(cmd *cobra.Command) (*app, error) {
	a, err := newApp(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.load(cmd.Context(), flagBuiltin); err != nil {
		_ = a.Close(cmd.Context())
		return nil, err
	}
	return a, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
