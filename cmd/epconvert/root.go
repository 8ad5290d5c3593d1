package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"epconvert/internal/config"
	"epconvert/internal/logging"
)

const (
	appName    = "epconvert"
	appVersion = "0.1.0"
)

// commandContext carries flag state and the lazily loaded configuration
// shared by all subcommands.
type commandContext struct {
	configPath string
	resources  string
	data       string
	verbose    bool
	jsonOut    bool

	cfg *config.Config
}

// ensureConfig loads the TOML config (missing file keeps defaults), applies
// flag overrides, and initializes logging. Idempotent.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	base := config.NewConfig("resources", "resources/data")
	cfg, err := config.LoadFile(c.configPath, base)
	if err != nil {
		return nil, err
	}
	if c.resources != "" {
		cfg.ResourcesDir = c.resources
	}
	if c.data != "" {
		cfg.DataDir = c.data
	}

	level := logging.LevelInfo
	if c.verbose {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Convert legacy e-pass material bundles to the current format",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "epconvert.toml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ctx.resources, "resources", "", "Bundled resources directory")
	rootCmd.PersistentFlags().StringVar(&ctx.data, "data", "", "Operator data tables directory")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOut, "json", false, "Emit NDJSON events instead of terminal output")

	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newOperatorsCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		},
	}
}
