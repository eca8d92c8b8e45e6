// Package cmd implements the CLI commands for pagegate using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gaurav-prasanna/pagegate/config"
	"github.com/gaurav-prasanna/pagegate/core/logging"
)

var (
	version     = "dev"
	cfgFile     string
	flagBuiltin bool
	v           = viper.New()
	cfg         config.Config
	logger      = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "pagegate",
	Short: "Discover, describe and invoke page-processing capabilities",
	Long: `pagegate discovers capabilities from manifest files, publishes a machine-readable
contract for each, and validates and dispatches calls to them.

Usage:
  pagegate serve
  pagegate list
  pagegate contract <name>
  pagegate invoke <name> --input '{"url":"https://example.com"}'
  pagegate convert <url> --pdf`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./pagegate.yaml or ~/.config/pagegate/pagegate.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("manifests", "", "directory of capability manifests")
	flags.String("artifacts-dir", "", "directory hand-off artifacts are written to")
	flags.BoolVar(&flagBuiltin, "builtin", false, "register every compiled-in capability instead of scanning manifests")

	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("registry.source", flags.Lookup("manifests"))
	_ = v.BindPFlag("artifacts.dir", flags.Lookup("artifacts-dir"))
}

func initConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = logging.New("pagegate", cfg.Log.Level, cfg.Log.Pretty, cmd.ErrOrStderr())
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug().Str("file", used).Msg("loaded config")
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
