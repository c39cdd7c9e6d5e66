package main

import (
	"github.com/springjools/ombibot/internal/cli"
	"github.com/springjools/ombibot/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Discord bot and the HTTP bridge",
	Long:  `Connects the bot to Discord and serves the HTTP bridge and metrics until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd, true)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve only the HTTP bridge",
	Long:  `Drives the conversation over the HTTP bridge without connecting to Discord.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd, false)
	},
}

func serve(cmd *cobra.Command, bot bool) error {
	cfg, ctx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer ctx.Cancel()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	logger, err := cli.NewLogger(cfg.Log, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tui.PrintBanner(out, Version)
	err = cli.Run(ctx, cfg, logger, cli.RunOptions{Bot: bot, Version: Version, Out: out})
	if sig := ctx.Signal(); sig != nil {
		logger.Info("Shut down on signal", "signal", sig.String())
	}
	return err
}

func init() {
	for _, c := range []*cobra.Command{runCmd, serveCmd} {
		c.Flags().String("addr", "", "Override http.addr")
		rootCmd.AddCommand(c)
	}
}
