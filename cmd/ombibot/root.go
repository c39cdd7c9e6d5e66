package main

import (
	"fmt"
	"os"

	"github.com/springjools/ombibot/internal/cli"
	"github.com/springjools/ombibot/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ombibot",
	Short: "ombibot searches an Ombi server and files movie requests from chat",
	Long: `ombibot lets chat users search an Ombi media catalog by title or actor,
look at details and similar movies, and request a movie, all through buttons.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: config.yaml, config.yml or config.json)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

// setup loads the configuration, including secrets kept outside the file.
func setup(cmd *cobra.Command) (*config.Config, *cli.SignalContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cli.NewSignalContext(cmd.Context())
	if err := cli.LoadSecrets(ctx, cfg); err != nil {
		ctx.Cancel()
		return nil, nil, err
	}
	return cfg, ctx, nil
}
