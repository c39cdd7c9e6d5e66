package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"
	"github.com/muesli/termenv"
	"github.com/springjools/ombibot/internal/config"
	"github.com/springjools/ombibot/pkg/adapters/console"
)

// ConsoleOptions configures an interactive conversation from the terminal.
type ConsoleOptions struct {
	UserID      string
	DisplayName string
	In          io.ReadCloser
	Out         io.Writer
	// History is the readline history file; empty keeps no history.
	History string
	TTY     bool
}

// Console converses with the bot as UserID until EOF, interrupt or "exit".
// It runs the same engine as the chat channels, against the configured catalog.
func Console(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ConsoleOptions) error {
	if !cfg.HasCatalog() {
		return errors.New("server and apiKey must be configured")
	}
	if opts.UserID == "" {
		opts.UserID = console.Name
	}

	app, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	defer app.Runner.Close(context.Background())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     opts.History,
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           opts.In,
		Stdout:          opts.Out,
	})
	if err != nil {
		return fmt.Errorf("error initializing readline: %w", err)
	}
	defer rl.Close()

	profile := termenv.Ascii
	if opts.TTY {
		profile = termenv.ANSI
	}
	conv := console.New(app.Runner, opts.UserID, rl.Stdout(),
		console.WithDisplayName(opts.DisplayName),
		console.WithProfile(profile),
	)

	printSystemMessage(rl.Stdout(), "Talking to the bot as %s (type a button number to press it, exit to quit)", opts.UserID)
	if err := conv.Say(ctx, "/start"); err != nil {
		return err
	}

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("error reading input: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		if err := conv.Say(ctx, input); err != nil {
			printSystemMessage(rl.Stdout(), "Error: %v", err)
		}
	}
}
