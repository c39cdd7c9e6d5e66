package main

import (
	"os"
	"path/filepath"

	"github.com/springjools/ombibot/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Talk to the bot from the terminal",
	Long: `Starts an interactive conversation with the bot, as a chat user would have.
Buttons are listed with numbers; type a number to press one. Type exit to quit.`,
	Example: `  ombibot console
  ombibot console --user 123456789`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ctx, err := setup(cmd)
		if err != nil {
			return err
		}
		defer ctx.Cancel()

		if !cmd.Flags().Changed("log-level") {
			cfg.Log.Level = "warn"
		}
		logger, err := cli.NewLogger(cfg.Log, nil)
		if err != nil {
			return err
		}

		user, _ := cmd.Flags().GetString("user")
		name, _ := cmd.Flags().GetString("name")
		history := ""
		if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
			history = filepath.Join(os.TempDir(), ".ombibot_history")
		}

		return cli.Console(ctx, cfg, logger, cli.ConsoleOptions{
			UserID:      user,
			DisplayName: name,
			Out:         cmd.OutOrStdout(),
			History:     history,
			TTY:         term.IsTerminal(int(os.Stdout.Fd())),
		})
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("user", "console", "User id to converse as (looked up in the users mapping)")
	consoleCmd.Flags().String("name", "", "Display name reported with each message")
	consoleCmd.Flags().Bool("no-history", false, "Do not keep a history file")
}
