package main

import (
	"os"
	"strings"

	"github.com/springjools/ombibot/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [query]",
	Short: "Search the catalog from the terminal",
	Long: `Runs the searches the bot offers against the configured Ombi server:
by title (default), by actor (--actor), one item's detail (--id) or items
similar to it (--id --similar). Output is rendered when stdout is a terminal.`,
	Example: `  ombibot lookup inception
  ombibot lookup --actor "tom hardy"
  ombibot lookup --id 27205 --similar`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ctx, err := setup(cmd)
		if err != nil {
			return err
		}
		defer ctx.Cancel()

		logger, err := cli.NewLogger(cfg.Log, nil)
		if err != nil {
			return err
		}

		actor, _ := cmd.Flags().GetBool("actor")
		id, _ := cmd.Flags().GetString("id")
		similar, _ := cmd.Flags().GetBool("similar")
		plain, _ := cmd.Flags().GetBool("plain")

		return cli.Lookup(ctx, cfg, logger, cli.LookupOptions{
			Query:       strings.Join(args, " "),
			Contributor: actor,
			ID:          id,
			Similar:     similar,
			Out:         cmd.OutOrStdout(),
			TTY:         !plain && term.IsTerminal(int(os.Stdout.Fd())),
		})
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().Bool("actor", false, "Search by actor instead of title")
	lookupCmd.Flags().String("id", "", "Show the item with this id")
	lookupCmd.Flags().Bool("similar", false, "With --id, list similar items")
	lookupCmd.Flags().Bool("plain", false, "Never render markdown or colour")
}
